package service

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrSessionNotFound = errors.New("session not found")

// Sessions owns one CartStore per shopper session. Carts live only as long
// as the process.
type Sessions struct {
	mu     sync.RWMutex
	stores map[string]*CartStore
	onOpen []func(sessionID string, store *CartStore)
	logger *zap.Logger
}

func NewSessions(logger *zap.Logger) *Sessions {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sessions{
		stores: make(map[string]*CartStore),
		logger: logger,
	}
}

// OnOpen registers a hook run for every new session, before Open returns.
func (s *Sessions) OnOpen(hook func(sessionID string, store *CartStore)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onOpen = append(s.onOpen, hook)
}

func (s *Sessions) Open() (string, *CartStore) {
	id := uuid.NewString()
	store := NewCartStore(s.logger.With(zap.String("session_id", id)))

	s.mu.Lock()
	s.stores[id] = store
	hooks := make([]func(string, *CartStore), len(s.onOpen))
	copy(hooks, s.onOpen)
	s.mu.Unlock()

	for _, hook := range hooks {
		hook(id, store)
	}

	s.logger.Info("session opened", zap.String("session_id", id))
	return id, store
}

func (s *Sessions) Get(id string) (*CartStore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	store, ok := s.stores[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return store, nil
}

// Close forgets the session and closes its store, dropping every
// subscription on it.
func (s *Sessions) Close(id string) error {
	s.mu.Lock()
	store, ok := s.stores[id]
	if !ok {
		s.mu.Unlock()
		return ErrSessionNotFound
	}
	delete(s.stores, id)
	s.mu.Unlock()

	store.Close()
	s.logger.Info("session closed", zap.String("session_id", id))
	return nil
}

func (s *Sessions) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.stores)
}
