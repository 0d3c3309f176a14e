// Package store provides the inventory collection adapters.
package store

import (
	"context"
	"errors"
	"sort"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// DefaultCollection is the collection holding every pantry document.
const DefaultCollection = "inventory"

// Store errors.
var (
	ErrNotFound    = errors.New("item not found")
	ErrInvalidName = errors.New("invalid item name")
)

// Store defines the keyed-document operations consumed by the inventory
// controller. Documents are keyed by item name.
type Store interface {
	// List returns every document in the collection, tagged with its key.
	List(ctx context.Context) ([]model.InventoryItem, error)

	// Get retrieves a document by name. Returns ErrNotFound when absent.
	Get(ctx context.Context, name string) (*model.InventoryItem, error)

	// Put creates or fully replaces the document stored under name.
	Put(ctx context.Context, name string, doc model.Document) error

	// Delete removes the document stored under name. Absent names are a no-op.
	Delete(ctx context.Context, name string) error
}

// Pinger is implemented by stores that can report backend reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// sortByName orders items by key so every backend lists deterministically.
func sortByName(items []model.InventoryItem) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].Name < items[j].Name
	})
}

func checkContext(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
