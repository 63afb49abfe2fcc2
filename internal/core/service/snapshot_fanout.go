package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/port"
)

const defaultPublishTimeout = time.Second

// PublishTo returns an observer forwarding every snapshot of a session to
// publisher. Publish failures are logged; the cart transition still stands.
//
// The publish runs inside the store's notification, so each mutation on the
// session waits for it, for at most timeout.
func PublishTo(publisher port.SnapshotPublisher, sessionID string, timeout time.Duration, logger *zap.Logger) Observer {
	if timeout <= 0 {
		timeout = defaultPublishTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return ObserverFunc(func(snapshot domain.Snapshot) {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if err := publisher.PublishSnapshot(ctx, sessionID, snapshot); err != nil {
			logger.Warn("snapshot publish failed",
				zap.String("session_id", sessionID),
				zap.Uint64("version", snapshot.Version()),
				zap.Error(err),
			)
		}
	})
}

// FanOut attaches a publishing observer to every session opened on sessions.
// Snapshots reach publisher in version order, each before the mutation that
// produced it returns; a slow publisher therefore stalls mutations on that
// session by up to timeout each.
func FanOut(sessions *Sessions, publisher port.SnapshotPublisher, timeout time.Duration, logger *zap.Logger) {
	sessions.OnOpen(func(sessionID string, store *CartStore) {
		store.Subscribe(PublishTo(publisher, sessionID, timeout, logger))
	})
}
