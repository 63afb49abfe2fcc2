package handler

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/core/service"
)

const bufSize = 1024 * 1024

func setupGRPC(t *testing.T) (*CartClient, *service.Sessions, func()) {
	lis := bufconn.Listen(bufSize)

	sessions := service.NewSessions(nil)
	catalog := service.NewCatalogService(testCatalog(), nil, nil)

	srv := grpc.NewServer()
	RegisterCartServiceServer(srv, NewGRPCHandler(sessions, catalog, nil))
	go srv.Serve(lis)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)

	cleanup := func() {
		conn.Close()
		srv.Stop()
	}
	return NewCartClient(conn), sessions, cleanup
}

func TestGRPC_CartOperations(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, _, cleanup := setupGRPC(t)
	defer cleanup()

	ctx := context.Background()
	opened, err := client.OpenSession(ctx)
	require.NoError(t, err)
	id := opened.SessionID
	assert.True(t, opened.Cart.IsEmpty())

	_, err = client.AddItem(ctx, id, 1)
	require.NoError(t, err)
	_, err = client.AddItem(ctx, id, 2)
	require.NoError(t, err)
	resp, err := client.AddItem(ctx, id, 1)
	require.NoError(t, err)

	items := resp.Cart.Items()
	require.Len(t, items, 2)
	assert.Equal(t, int64(1), items[0].ID)
	assert.Equal(t, 2, items[0].Quantity)
	assert.Equal(t, "25.5", resp.Cart.Total().String())

	resp, err = client.UpdateQuantity(ctx, id, 2, -1)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Cart.Count())

	resp, err = client.RemoveItem(ctx, id, 99)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Cart.Count())

	resp, err = client.ClearCart(ctx, id)
	require.NoError(t, err)
	assert.True(t, resp.Cart.IsEmpty())

	resp, err = client.GetCart(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(6), resp.Cart.Version())
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client, _, cleanup := setupGRPC(t)
	defer cleanup()

	ctx := context.Background()
	_, err := client.GetCart(ctx, "missing")
	assert.Equal(t, codes.NotFound, status.Code(err))

	opened, err := client.OpenSession(ctx)
	require.NoError(t, err)

	_, err = client.AddItem(ctx, opened.SessionID, 0)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.AddItem(ctx, opened.SessionID, 404)
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_WatchStreamsSnapshots(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, _, cleanup := setupGRPC(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opened, err := client.OpenSession(ctx)
	require.NoError(t, err)
	id := opened.SessionID

	snaps := make(chan domain.Snapshot, 16)
	watchCtx, stopWatch := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() {
		done <- client.Watch(watchCtx, id, func(s domain.Snapshot) error {
			snaps <- s
			return nil
		})
	}()

	first := <-snaps
	assert.Equal(t, uint64(0), first.Version())
	assert.True(t, first.IsEmpty())

	_, err = client.AddItem(ctx, id, 1)
	require.NoError(t, err)
	_, err = client.AddItem(ctx, id, 3)
	require.NoError(t, err)

	var last domain.Snapshot
	prev := first.Version()
	for last.Version() < 2 {
		select {
		case last = <-snaps:
			assert.Greater(t, last.Version(), prev, "versions arrive in order")
			prev = last.Version()
		case <-ctx.Done():
			t.Fatal("watch did not deliver latest snapshot")
		}
	}
	assert.Equal(t, 2, last.Count())
	assert.True(t, last.Total().Equal(last.Summary().Subtotal))

	stopWatch()
	err = <-done
	assert.Equal(t, codes.Canceled, status.Code(err))
}

func TestGRPC_WatchUnknownSession(t *testing.T) {
	client, _, cleanup := setupGRPC(t)
	defer cleanup()

	err := client.Watch(context.Background(), "missing", func(domain.Snapshot) error { return nil })
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_WatchEndsWhenSessionCloses(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	client, sessions, cleanup := setupGRPC(t)
	defer cleanup()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	opened, err := client.OpenSession(ctx)
	require.NoError(t, err)
	id := opened.SessionID

	started := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		var once bool
		done <- client.Watch(ctx, id, func(domain.Snapshot) error {
			if !once {
				once = true
				close(started)
			}
			return nil
		})
	}()

	select {
	case <-started:
	case <-ctx.Done():
		t.Fatal("watch never delivered the initial snapshot")
	}

	require.NoError(t, sessions.Close(id))

	select {
	case err := <-done:
		assert.Equal(t, codes.NotFound, status.Code(err))
	case <-time.After(time.Second):
		t.Fatal("watch still open after session close")
	}
}
