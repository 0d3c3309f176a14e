package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// MemoryStore implements Store interface with in-memory storage.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]model.Document
}

// NewMemoryStore creates a new MemoryStore instance.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs: make(map[string]model.Document),
	}
}

// List returns all documents sorted by name.
func (s *MemoryStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	if err := checkContext(ctx); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	items := make([]model.InventoryItem, 0, len(s.docs))
	for name, doc := range s.docs {
		items = append(items, model.FromDocument(name, doc))
	}
	sortByName(items)

	return items, nil
}

// Get retrieves a document by name.
func (s *MemoryStore) Get(ctx context.Context, name string) (*model.InventoryItem, error) {
	if err := checkContext(ctx); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if name == "" {
		return nil, ErrInvalidName
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, exists := s.docs[name]
	if !exists {
		return nil, ErrNotFound
	}

	item := model.FromDocument(name, doc)
	return &item, nil
}

// Put creates or replaces the document stored under name.
func (s *MemoryStore) Put(ctx context.Context, name string, doc model.Document) error {
	if err := checkContext(ctx); err != nil {
		return fmt.Errorf("put item: %w", err)
	}

	if name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[name] = doc

	return nil
}

// Delete removes the document stored under name.
func (s *MemoryStore) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if name == "" {
		return ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.docs, name)

	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}
