package handler

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/core/service"
)

type GRPCHandler struct {
	sessions *service.Sessions
	catalog  *service.CatalogService
	logger   *zap.Logger
}

func NewGRPCHandler(sessions *service.Sessions, catalog *service.CatalogService, logger *zap.Logger) *GRPCHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GRPCHandler{sessions: sessions, catalog: catalog, logger: logger}
}

func (h *GRPCHandler) OpenSession(ctx context.Context, req *OpenSessionRequest) (*CartResponse, error) {
	id, store := h.sessions.Open()
	return &CartResponse{SessionID: id, Cart: store.Snapshot()}, nil
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *SessionRequest) (*CartResponse, error) {
	return h.apply(req.SessionID, func(*service.CartStore) {})
}

func (h *GRPCHandler) AddItem(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	if req.ProductID == 0 {
		return nil, status.Error(codes.InvalidArgument, "product_id is required")
	}
	store, err := h.store(req.SessionID)
	if err != nil {
		return nil, err
	}

	product, err := h.catalog.Product(ctx, req.ProductID)
	if errors.Is(err, service.ErrProductNotFound) {
		return nil, status.Errorf(codes.NotFound, "product %d not found", req.ProductID)
	}
	if err != nil {
		h.logger.Error("resolve product failed", zap.Int64("product_id", req.ProductID), zap.Error(err))
		return nil, status.Error(codes.Unavailable, "catalog unavailable")
	}

	store.AddToCart(product)
	return &CartResponse{SessionID: req.SessionID, Cart: store.Snapshot()}, nil
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *ItemRequest) (*CartResponse, error) {
	return h.apply(req.SessionID, func(store *service.CartStore) {
		store.RemoveFromCart(req.ProductID)
	})
}

func (h *GRPCHandler) UpdateQuantity(ctx context.Context, req *UpdateQuantityRequest) (*CartResponse, error) {
	return h.apply(req.SessionID, func(store *service.CartStore) {
		store.UpdateQuantity(req.ProductID, req.Quantity)
	})
}

func (h *GRPCHandler) ClearCart(ctx context.Context, req *SessionRequest) (*CartResponse, error) {
	return h.apply(req.SessionID, func(store *service.CartStore) {
		store.ClearCart()
	})
}

// Watch keeps only the newest undelivered snapshot; a slow reader skips
// intermediate versions. The stream ends with NotFound when the session is
// closed.
func (h *GRPCHandler) Watch(req *SessionRequest, stream grpc.ServerStream) error {
	store, err := h.store(req.SessionID)
	if err != nil {
		return err
	}

	latest := make(chan domain.Snapshot, 1)
	sub := store.Subscribe(service.ObserverFunc(func(s domain.Snapshot) {
		// observers run one at a time, so this is the only sender
		select {
		case <-latest:
		default:
		}
		latest <- s
	}))
	defer sub.Unsubscribe()

	h.logger.Debug("watch started", zap.String("session_id", req.SessionID))
	defer h.logger.Debug("watch ended", zap.String("session_id", req.SessionID))

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-store.Done():
			return status.Errorf(codes.NotFound, "session %q closed", req.SessionID)
		case snap := <-latest:
			if err := stream.SendMsg(&CartResponse{SessionID: req.SessionID, Cart: snap}); err != nil {
				return err
			}
		}
	}
}

func (h *GRPCHandler) apply(sessionID string, fn func(*service.CartStore)) (*CartResponse, error) {
	store, err := h.store(sessionID)
	if err != nil {
		return nil, err
	}
	fn(store)
	return &CartResponse{SessionID: sessionID, Cart: store.Snapshot()}, nil
}

func (h *GRPCHandler) store(sessionID string) (*service.CartStore, error) {
	store, err := h.sessions.Get(sessionID)
	if errors.Is(err, service.ErrSessionNotFound) {
		return nil, status.Errorf(codes.NotFound, "session %q not found", sessionID)
	}
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return store, nil
}
