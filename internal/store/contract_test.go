package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// runStoreContract exercises the behaviour every backend must share.
func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Helper()

	t.Run("get_absent_returns_not_found", func(t *testing.T) {
		s := newStore(t)

		item, err := s.Get(context.Background(), "Milk")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, item)
	})

	t.Run("put_then_get_round_trips", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		doc := model.Document{Quantity: 2, Category: "Dairy", ExpirationDate: "2024-01-01"}

		require.NoError(t, s.Put(ctx, "Milk", doc))
		item, err := s.Get(ctx, "Milk")

		require.NoError(t, err)
		assert.Equal(t, model.FromDocument("Milk", doc), *item)
	})

	t.Run("put_fully_replaces", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "Rice", model.Document{Quantity: 3, Category: "Grains", ExpirationDate: "2025-01-01"}))
		require.NoError(t, s.Put(ctx, "Rice", model.Document{Quantity: 1}))
		item, err := s.Get(ctx, "Rice")

		require.NoError(t, err)
		assert.Equal(t, model.InventoryItem{Name: "Rice", Quantity: 1}, *item)
	})

	t.Run("keys_are_case_preserving", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "apple", model.Document{Quantity: 1}))
		require.NoError(t, s.Put(ctx, "Apple", model.Document{Quantity: 2}))
		items, err := s.List(ctx)

		require.NoError(t, err)
		assert.Len(t, items, 2)
	})

	t.Run("list_returns_all_sorted_by_name", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, name := range []string{"Grape", "Apple", "Banana"} {
			require.NoError(t, s.Put(ctx, name, model.Document{Quantity: 1}))
		}
		items, err := s.List(ctx)

		require.NoError(t, err)
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.Name)
		}
		assert.Equal(t, []string{"Apple", "Banana", "Grape"}, names)
	})

	t.Run("list_empty_collection", func(t *testing.T) {
		s := newStore(t)

		items, err := s.List(context.Background())

		require.NoError(t, err)
		assert.NotNil(t, items)
		assert.Empty(t, items)
	})

	t.Run("delete_removes_and_is_idempotent", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.Put(ctx, "Tea", model.Document{Quantity: 1}))
		require.NoError(t, s.Delete(ctx, "Tea"))
		require.NoError(t, s.Delete(ctx, "Tea"))

		_, err := s.Get(ctx, "Tea")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("empty_name_is_rejected", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		_, err := s.Get(ctx, "")
		assert.ErrorIs(t, err, ErrInvalidName)
		assert.ErrorIs(t, s.Put(ctx, "", model.Document{}), ErrInvalidName)
		assert.ErrorIs(t, s.Delete(ctx, ""), ErrInvalidName)
	})
}
