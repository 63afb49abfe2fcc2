package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessions_OpenGetClose(t *testing.T) {
	sessions := NewSessions(nil)

	id, store := sessions.Open()
	_, err := uuid.Parse(id)
	require.NoError(t, err)

	got, err := sessions.Get(id)
	require.NoError(t, err)
	assert.Same(t, store, got)
	assert.Equal(t, 1, sessions.Len())

	require.NoError(t, sessions.Close(id))
	_, err = sessions.Get(id)
	assert.True(t, errors.Is(err, ErrSessionNotFound))
	assert.ErrorIs(t, sessions.Close(id), ErrSessionNotFound)
}

func TestSessions_AreIsolated(t *testing.T) {
	sessions := NewSessions(nil)
	_, a := sessions.Open()
	_, b := sessions.Open()

	a.AddToCart(product(1, "1.00"))

	assert.Equal(t, 1, a.CartCount())
	assert.Equal(t, 0, b.CartCount())
}

func TestSessions_OnOpenHookRunsBeforeOpenReturns(t *testing.T) {
	sessions := NewSessions(nil)
	var hooked []string
	rec := &recorder{}
	sessions.OnOpen(func(id string, store *CartStore) {
		hooked = append(hooked, id)
		store.Subscribe(rec)
	})

	id, store := sessions.Open()
	store.AddToCart(product(1, "1.00"))

	assert.Equal(t, []string{id}, hooked)
	assert.Equal(t, 2, rec.len())
}

func TestSessions_CloseDropsSubscriptions(t *testing.T) {
	sessions := NewSessions(nil)
	rec := &recorder{}
	sessions.OnOpen(func(_ string, store *CartStore) {
		store.Subscribe(rec)
	})

	id, store := sessions.Open()
	require.NoError(t, sessions.Close(id))

	select {
	case <-store.Done():
	default:
		t.Fatal("store not closed with its session")
	}

	store.AddToCart(product(1, "1.00"))
	assert.Equal(t, 1, rec.len(), "no delivery after close")
}
