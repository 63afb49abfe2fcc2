package handler

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/minicart/internal/adapter/storage"
	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/core/service"
)

// countingCatalog records how often the upstream catalog is hit
type countingCatalog struct {
	*mockCatalog
	calls int
}

func (c *countingCatalog) ListProducts(ctx context.Context) ([]domain.Product, error) {
	c.calls++
	return c.mockCatalog.ListProducts(ctx)
}

func TestIntegration_CartFlowWithRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	redisAdapter := storage.NewRedisAdapter(rdb, 0)
	upstream := &countingCatalog{mockCatalog: testCatalog()}

	sessions := service.NewSessions(nil)
	service.FanOut(sessions, redisAdapter, time.Second, nil)
	catalog := service.NewCatalogService(upstream, redisAdapter, nil)

	srv := &testServer{
		t:        t,
		handler:  NewHTTPHandler(sessions, catalog, nil).Routes(),
		sessions: sessions,
	}

	id := srv.open()
	base := "/api/sessions/" + id + "/cart"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	snaps, closeSub, err := redisAdapter.SubscribeSnapshots(ctx, id)
	require.NoError(t, err)
	defer closeSub()

	w := srv.do(http.MethodPost, base+"/items", `{"product_id":1}`)
	require.Equal(t, http.StatusOK, w.Code)

	// the first product lookup fills the catalog cache asynchronously
	require.Eventually(t, func() bool { return mr.Exists("catalog:products") }, time.Second, 10*time.Millisecond)

	srv.do(http.MethodPost, base+"/items", `{"product_id":2}`)
	srv.do(http.MethodPost, base+"/items", `{"product_id":1}`)
	assert.Equal(t, 1, upstream.calls, "later lookups are served from redis")

	var versions []uint64
	var last domain.Snapshot
	for len(versions) < 3 {
		select {
		case s := <-snaps:
			versions = append(versions, s.Version())
			last = s
		case <-ctx.Done():
			t.Fatalf("received only %v", versions)
		}
	}

	assert.Equal(t, []uint64{1, 2, 3}, versions)
	assert.Equal(t, 3, last.Count())
	assert.Equal(t, "$25.50", domain.FormatCurrency(last.Total()))

	// cart contents never land in redis keys
	assert.Equal(t, []string{"catalog:products"}, mr.Keys())
}
