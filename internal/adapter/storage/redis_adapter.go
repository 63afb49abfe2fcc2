package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/port"
)

const (
	productsKey          = "catalog:products"
	categoriesKey        = "catalog:categories"
	snapshotChannelFmt   = "cart:%s:snapshots"
	DefaultCatalogTTL    = 15 * time.Minute
	maxCatalogTTLJitter  = 5 // minutes
	snapshotChannelDepth = 16
)

// RedisAdapter caches the catalog and fans cart snapshots out over pub/sub.
// Cart contents are never written to keys.
type RedisAdapter struct {
	client  *redis.Client
	baseTTL time.Duration
}

func NewRedisAdapter(client *redis.Client, baseTTL time.Duration) *RedisAdapter {
	if baseTTL <= 0 {
		baseTTL = DefaultCatalogTTL
	}
	return &RedisAdapter{client: client, baseTTL: baseTTL}
}

func (r *RedisAdapter) GetProducts(ctx context.Context) ([]domain.Product, error) {
	var products []domain.Product
	if err := r.get(ctx, productsKey, &products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *RedisAdapter) SetProducts(ctx context.Context, products []domain.Product) error {
	return r.set(ctx, productsKey, products)
}

func (r *RedisAdapter) GetCategories(ctx context.Context) ([]string, error) {
	var categories []string
	if err := r.get(ctx, categoriesKey, &categories); err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *RedisAdapter) SetCategories(ctx context.Context, categories []string) error {
	return r.set(ctx, categoriesKey, categories)
}

func (r *RedisAdapter) PublishSnapshot(ctx context.Context, sessionID string, snapshot domain.Snapshot) error {
	payload, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot failed: %w", err)
	}
	if err := r.client.Publish(ctx, SnapshotChannel(sessionID), payload).Err(); err != nil {
		return fmt.Errorf("redis publish failed: %w", err)
	}
	return nil
}

// SubscribeSnapshots listens to a session's snapshot channel. The returned
// channel is closed once the subscription is closed or ctx is done.
func (r *RedisAdapter) SubscribeSnapshots(ctx context.Context, sessionID string) (<-chan domain.Snapshot, func() error, error) {
	pubsub := r.client.Subscribe(ctx, SnapshotChannel(sessionID))
	// wait for the subscription to be confirmed so no publish is missed
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("redis subscribe failed: %w", err)
	}

	msgs := pubsub.Channel()
	out := make(chan domain.Snapshot, snapshotChannelDepth)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var snap domain.Snapshot
				if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
					continue
				}
				select {
				case out <- snap:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, pubsub.Close, nil
}

func (r *RedisAdapter) get(ctx context.Context, key string, out interface{}) error {
	data, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return port.ErrCacheMiss
	}
	if err != nil {
		return fmt.Errorf("redis get failed: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("unmarshal %s failed: %w", key, err)
	}
	return nil
}

func (r *RedisAdapter) set(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal %s failed: %w", key, err)
	}

	// base TTL plus up to four minutes of jitter
	jitter := time.Duration(rand.Intn(maxCatalogTTLJitter)) * time.Minute
	if err := r.client.Set(ctx, key, data, r.baseTTL+jitter).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func SnapshotChannel(sessionID string) string {
	return fmt.Sprintf(snapshotChannelFmt, sessionID)
}
