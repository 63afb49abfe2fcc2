package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/rl1809/minicart/internal/core/domain"
	"github.com/rl1809/minicart/internal/core/service"
)

type HTTPHandler struct {
	sessions *service.Sessions
	catalog  *service.CatalogService
	logger   *zap.Logger
}

type AddItemHTTPRequest struct {
	ProductID int64 `json:"product_id"`
}

type UpdateQuantityHTTPRequest struct {
	Quantity *int `json:"quantity"`
}

type CartHTTPResponse struct {
	SessionID string          `json:"session_id"`
	Cart      domain.Snapshot `json:"cart"`
}

type SummaryHTTPResponse struct {
	SessionID string              `json:"session_id"`
	Summary   domain.OrderSummary `json:"summary"`
	Display   map[string]string   `json:"display"`
}

type ErrorHTTPResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func NewHTTPHandler(sessions *service.Sessions, catalog *service.CatalogService, logger *zap.Logger) *HTTPHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPHandler{sessions: sessions, catalog: catalog, logger: logger}
}

func (h *HTTPHandler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/categories", h.ListCategories)

		r.Post("/sessions", h.OpenSession)
		r.Route("/sessions/{sessionID}", func(r chi.Router) {
			r.Delete("/", h.CloseSession)
			r.Get("/cart", h.GetCart)
			r.Delete("/cart", h.ClearCart)
			r.Get("/cart/summary", h.GetSummary)
			r.Post("/cart/items", h.AddItem)
			r.Put("/cart/items/{productID}", h.UpdateQuantity)
			r.Delete("/cart/items/{productID}", h.RemoveItem)
			r.Post("/cart/items/{productID}/increase", h.IncreaseItem)
			r.Post("/cart/items/{productID}/decrease", h.DecreaseItem)
		})
	})

	return r
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.catalog.Search(r.Context(), q.Get("q"), q.Get("category"))
	if err != nil {
		h.logger.Error("list products failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load products")
		return
	}
	writeJSON(w, http.StatusOK, products)
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.logger.Error("list categories failed", zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load categories")
		return
	}
	writeJSON(w, http.StatusOK, categories)
}

func (h *HTTPHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, store := h.sessions.Open()
	writeJSON(w, http.StatusCreated, CartHTTPResponse{SessionID: id, Cart: store.Snapshot()})
}

func (h *HTTPHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(chi.URLParam(r, "sessionID")); err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	h.withStore(w, r, func(*service.CartStore) {})
}

func (h *HTTPHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	h.withStore(w, r, func(store *service.CartStore) {
		store.ClearCart()
	})
}

func (h *HTTPHandler) GetSummary(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	store, ok := h.store(w, id)
	if !ok {
		return
	}

	summary := store.Summary()
	writeJSON(w, http.StatusOK, SummaryHTTPResponse{
		SessionID: id,
		Summary:   summary,
		Display: map[string]string{
			"subtotal":                domain.FormatCurrency(summary.Subtotal),
			"delivery_fee":            deliveryLabel(summary),
			"tax":                     domain.FormatCurrency(summary.Tax),
			"grand_total":             domain.FormatCurrency(summary.GrandTotal),
			"free_delivery_remaining": domain.FormatCurrency(summary.FreeDeliveryRemaining),
		},
	})
}

func (h *HTTPHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	var req AddItemHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id := chi.URLParam(r, "sessionID")
	store, ok := h.store(w, id)
	if !ok {
		return
	}

	product, err := h.catalog.Product(r.Context(), req.ProductID)
	if errors.Is(err, service.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.logger.Error("resolve product failed", zap.Int64("product_id", req.ProductID), zap.Error(err))
		writeError(w, http.StatusBadGateway, "failed to load product")
		return
	}

	store.AddToCart(product)
	writeJSON(w, http.StatusOK, CartHTTPResponse{SessionID: id, Cart: store.Snapshot()})
}

func (h *HTTPHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}

	var req UpdateQuantityHTTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Quantity == nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.withStore(w, r, func(store *service.CartStore) {
		store.UpdateQuantity(productID, *req.Quantity)
	})
}

func (h *HTTPHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.withStore(w, r, func(store *service.CartStore) {
		store.RemoveFromCart(productID)
	})
}

func (h *HTTPHandler) IncreaseItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.withStore(w, r, func(store *service.CartStore) {
		store.Increase(productID)
	})
}

func (h *HTTPHandler) DecreaseItem(w http.ResponseWriter, r *http.Request) {
	productID, ok := productIDParam(w, r)
	if !ok {
		return
	}
	h.withStore(w, r, func(store *service.CartStore) {
		store.Decrease(productID)
	})
}

// withStore resolves the session, applies fn and responds with the cart.
func (h *HTTPHandler) withStore(w http.ResponseWriter, r *http.Request, fn func(*service.CartStore)) {
	id := chi.URLParam(r, "sessionID")
	store, ok := h.store(w, id)
	if !ok {
		return
	}
	fn(store)
	writeJSON(w, http.StatusOK, CartHTTPResponse{SessionID: id, Cart: store.Snapshot()})
}

func (h *HTTPHandler) store(w http.ResponseWriter, id string) (*service.CartStore, bool) {
	store, err := h.sessions.Get(id)
	if err != nil {
		writeError(w, http.StatusNotFound, "session not found")
		return nil, false
	}
	return store, true
}

func productIDParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return 0, false
	}
	return id, true
}

func deliveryLabel(s domain.OrderSummary) string {
	if s.FreeDelivery {
		return "FREE"
	}
	return domain.FormatCurrency(s.DeliveryFee)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorHTTPResponse{Success: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
