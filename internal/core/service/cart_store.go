package service

import (
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/minicart/internal/core/domain"
)

// Observer receives a complete snapshot after every cart transition.
type Observer interface {
	OnCartChanged(snapshot domain.Snapshot)
}

type ObserverFunc func(snapshot domain.Snapshot)

func (f ObserverFunc) OnCartChanged(snapshot domain.Snapshot) {
	f(snapshot)
}

type observerEntry struct {
	id       uint64
	observer Observer
}

// CartStore is the single source of truth for one shopper's cart.
//
// Mutations are serialized and every observer has been notified before the
// mutating call returns. Observers may read the store and unsubscribe, but
// must not mutate it, subscribe to it or close it.
type CartStore struct {
	writeMu sync.Mutex // held across apply + notify

	mu        sync.RWMutex
	items     []domain.LineItem
	version   uint64
	observers []observerEntry
	nextID    uint64

	done      chan struct{}
	closeOnce sync.Once

	logger *zap.Logger
}

func NewCartStore(logger *zap.Logger) *CartStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CartStore{done: make(chan struct{}), logger: logger}
}

// AddToCart increments the line item for product, appending a new one with
// quantity 1 when the product is not in the cart yet.
func (s *CartStore) AddToCart(product domain.Product) {
	s.mutate("add", func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, product.ID); i >= 0 {
			items[i].Quantity++
			return items
		}
		return append(items, domain.LineItem{Product: product, Quantity: 1})
	}, zap.Int64("product_id", product.ID))
}

func (s *CartStore) RemoveFromCart(productID int64) {
	s.mutate("remove", func(items []domain.LineItem) []domain.LineItem {
		return removeAt(items, indexOf(items, productID))
	}, zap.Int64("product_id", productID))
}

// UpdateQuantity sets the quantity of an existing line item. A quantity
// below 1 removes the line item, so a zero quantity is never observable.
func (s *CartStore) UpdateQuantity(productID int64, quantity int) {
	s.mutate("update_quantity", func(items []domain.LineItem) []domain.LineItem {
		i := indexOf(items, productID)
		if i < 0 {
			return items
		}
		if quantity < 1 {
			return removeAt(items, i)
		}
		items[i].Quantity = quantity
		return items
	}, zap.Int64("product_id", productID), zap.Int("quantity", quantity))
}

// Increase adds one unit of a product already in the cart.
func (s *CartStore) Increase(productID int64) {
	s.mutate("increase", func(items []domain.LineItem) []domain.LineItem {
		if i := indexOf(items, productID); i >= 0 {
			items[i].Quantity++
		}
		return items
	}, zap.Int64("product_id", productID))
}

// Decrease removes one unit; the last unit removes the line item.
func (s *CartStore) Decrease(productID int64) {
	s.mutate("decrease", func(items []domain.LineItem) []domain.LineItem {
		i := indexOf(items, productID)
		if i < 0 {
			return items
		}
		if items[i].Quantity <= 1 {
			return removeAt(items, i)
		}
		items[i].Quantity--
		return items
	}, zap.Int64("product_id", productID))
}

func (s *CartStore) ClearCart() {
	s.mutate("clear", func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// CartTotal is the sum of price x quantity over the current line items.
func (s *CartStore) CartTotal() decimal.Decimal {
	return s.Snapshot().Total()
}

// CartCount is the number of units in the cart, not distinct products.
func (s *CartStore) CartCount() int {
	return s.Snapshot().Count()
}

func (s *CartStore) Summary() domain.OrderSummary {
	return s.Snapshot().Summary()
}

func (s *CartStore) Snapshot() domain.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return domain.NewSnapshot(s.version, s.items)
}

// Subscribe registers observer and delivers the current snapshot to it
// before returning. Observers are notified in registration order. On a
// closed store the observer gets the current snapshot and nothing after.
func (s *CartStore) Subscribe(observer Observer) *Subscription {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	s.nextID++
	id := s.nextID
	if !s.closed() {
		s.observers = append(s.observers, observerEntry{id: id, observer: observer})
	}
	snap := domain.NewSnapshot(s.version, s.items)
	s.mu.Unlock()

	observer.OnCartChanged(snap)
	return &Subscription{store: s, id: id}
}

// Close drops every subscription and closes Done. The cart stays readable.
func (s *CartStore) Close() {
	s.closeOnce.Do(func() {
		s.writeMu.Lock()
		defer s.writeMu.Unlock()

		s.mu.Lock()
		dropped := len(s.observers)
		s.observers = nil
		close(s.done)
		s.mu.Unlock()

		s.logger.Debug("cart closed", zap.Int("dropped_observers", dropped))
	})
}

// Done is closed once the store is closed.
func (s *CartStore) Done() <-chan struct{} {
	return s.done
}

// closed must be called with mu held.
func (s *CartStore) closed() bool {
	select {
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *CartStore) unsubscribe(id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, e := range s.observers {
		if e.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

func (s *CartStore) mutate(op string, apply func([]domain.LineItem) []domain.LineItem, fields ...zap.Field) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.Lock()
	// apply works on a private copy so snapshots already handed out stay intact
	working := make([]domain.LineItem, len(s.items))
	copy(working, s.items)
	s.items = apply(working)
	s.version++
	snap := domain.NewSnapshot(s.version, s.items)
	observers := make([]observerEntry, len(s.observers))
	copy(observers, s.observers)
	s.mu.Unlock()

	s.logger.Debug("cart transition",
		append(fields,
			zap.String("op", op),
			zap.Uint64("version", snap.Version()),
			zap.Int("lines", snap.Len()),
			zap.Int("count", snap.Count()),
		)...,
	)

	for _, e := range observers {
		e.observer.OnCartChanged(snap)
	}
}

// Subscription ties an observer to a store until Unsubscribe is called.
type Subscription struct {
	store *CartStore
	id    uint64
	once  sync.Once
}

// Unsubscribe stops further deliveries. Calling it again is a no-op.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.store.unsubscribe(s.id)
	})
}

func indexOf(items []domain.LineItem, productID int64) int {
	for i, it := range items {
		if it.ID == productID {
			return i
		}
	}
	return -1
}

func removeAt(items []domain.LineItem, i int) []domain.LineItem {
	if i < 0 {
		return items
	}
	return append(items[:i], items[i+1:]...)
}
