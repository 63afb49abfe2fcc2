package port

import (
	"context"

	"github.com/rl1809/minicart/internal/core/domain"
)

type SnapshotPublisher interface {
	// PublishSnapshot fans a cart snapshot out to listeners outside the process
	PublishSnapshot(ctx context.Context, sessionID string, snapshot domain.Snapshot) error
}
