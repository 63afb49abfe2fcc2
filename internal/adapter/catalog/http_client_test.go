package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rl1809/minicart/internal/core/domain"
)

const productsBody = `[
  {"id":1,"title":"Fjallraven - Foldsack No. 1 Backpack","price":109.95,"description":"Your perfect pack","category":"men's clothing","image":"https://fakestoreapi.com/img/81fPKd-2AYL._AC_SL1500_.jpg","rating":{"rate":3.9,"count":120}},
  {"id":2,"title":"Mens Casual Premium Slim Fit T-Shirts","price":22.3,"description":"Slim-fitting style","category":"men's clothing","image":"https://fakestoreapi.com/img/71-3HjGNDUL._AC_SY879._SX._UX._SY._UY_.jpg","rating":{"rate":4.1,"count":259}}
]`

func newTestServer(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, time.Second)
}

func TestListProducts(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, productsPath, r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(productsBody))
	})

	products, err := client.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)

	p := products[0]
	assert.Equal(t, int64(1), p.ID)
	assert.True(t, decimal.RequireFromString("109.95").Equal(p.Price))
	assert.Equal(t, "men's clothing", p.Category)
	assert.Equal(t, domain.Rating{Rate: 3.9, Count: 120}, p.Rating)
}

func TestListProducts_RejectsInvalidRecords(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":1,"title":"x","price":-2}]`))
	})

	_, err := client.ListProducts(context.Background())
	assert.ErrorIs(t, err, domain.ErrInvalidProduct)
}

func TestListCategories(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, categoriesPath, r.URL.Path)
		w.Write([]byte(`["electronics","jewelery","men's clothing","women's clothing"]`))
	})

	categories, err := client.ListCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"electronics", "jewelery", "men's clothing", "women's clothing"}, categories)
}

func TestGet_UnexpectedStatus(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	})

	_, err := client.ListCategories(context.Background())
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestGet_MalformedBody(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"not":"a list"`))
	})

	_, err := client.ListProducts(context.Background())
	assert.ErrorContains(t, err, "decode response")
}

func TestNewHTTPClient_Defaults(t *testing.T) {
	c := NewHTTPClient("", 0)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.Equal(t, DefaultTimeout, c.client.Timeout)

	c = NewHTTPClient("http://example.test/", time.Second)
	assert.Equal(t, "http://example.test", c.baseURL)
}
