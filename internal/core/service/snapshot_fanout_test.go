package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/rl1809/minicart/internal/core/domain"
)

// Mock SnapshotPublisher
type mockPublisher struct {
	mu        sync.Mutex
	published map[string][]uint64
	err       error
}

func newMockPublisher() *mockPublisher {
	return &mockPublisher{published: make(map[string][]uint64)}
}

func (m *mockPublisher) PublishSnapshot(ctx context.Context, sessionID string, snapshot domain.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published[sessionID] = append(m.published[sessionID], snapshot.Version())
	return nil
}

func TestFanOut_PublishesEverySessionSnapshot(t *testing.T) {
	sessions := NewSessions(nil)
	pub := newMockPublisher()
	FanOut(sessions, pub, 0, nil)

	a, storeA := sessions.Open()
	b, _ := sessions.Open()
	storeA.AddToCart(product(1, "1.00"))
	storeA.ClearCart()

	assert.Equal(t, []uint64{0, 1, 2}, pub.published[a])
	assert.Equal(t, []uint64{0}, pub.published[b])
}

func TestPublishTo_ErrorDoesNotStopCart(t *testing.T) {
	store := NewCartStore(nil)
	pub := newMockPublisher()
	pub.err = errors.New("redis down")
	store.Subscribe(PublishTo(pub, "s1", 0, nil))

	store.AddToCart(product(1, "2.00"))

	assert.Equal(t, 1, store.CartCount())
	assert.Empty(t, pub.published)
}

// stalledPublisher never completes a publish on its own
type stalledPublisher struct{}

func (stalledPublisher) PublishSnapshot(ctx context.Context, _ string, _ domain.Snapshot) error {
	<-ctx.Done()
	return ctx.Err()
}

func TestPublishTo_StalledPublisherBoundedByTimeout(t *testing.T) {
	store := NewCartStore(nil)
	store.Subscribe(PublishTo(stalledPublisher{}, "s1", 20*time.Millisecond, nil))

	start := time.Now()
	store.AddToCart(product(1, "2.00"))
	elapsed := time.Since(start)

	assert.GreaterOrEqual(t, elapsed, 20*time.Millisecond)
	assert.Less(t, elapsed, time.Second)
	assert.Equal(t, 1, store.CartCount())
}
