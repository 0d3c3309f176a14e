package store

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// BoltStore keeps a collection in a bbolt bucket. Keys are item names and
// values are JSON-encoded documents.
type BoltStore struct {
	db     *bbolt.DB
	bucket []byte
	logger *zap.Logger
}

// OpenBoltStore opens (creating if needed) the database file at path and
// ensures the collection bucket exists.
func OpenBoltStore(path, collection string, logger *zap.Logger) (*BoltStore, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create bolt directory: %w", err)
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{
		Timeout:      1 * time.Second,
		FreelistType: bbolt.FreelistMapType,
	})
	if err != nil {
		return nil, fmt.Errorf("open bolt db: %w", err)
	}

	s := &BoltStore{
		db:     db,
		bucket: []byte(collection),
		logger: logger.With(zap.String("component", "bolt_store"), zap.String("collection", collection)),
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create bucket %s: %w", collection, err)
	}

	return s, nil
}

// List returns every document in key order. Documents that fail to decode
// are skipped.
func (s *BoltStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	if err := checkContext(ctx); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	var items []model.InventoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).ForEach(func(k, v []byte) error {
			var doc model.Document
			if err := json.Unmarshal(v, &doc); err != nil {
				s.logger.Warn("skipping malformed document", zap.ByteString("name", k), zap.Error(err))
				return nil
			}
			items = append(items, model.FromDocument(string(k), doc))
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}

	if items == nil {
		items = []model.InventoryItem{}
	}
	return items, nil
}

// Get retrieves a document by name.
func (s *BoltStore) Get(ctx context.Context, name string) (*model.InventoryItem, error) {
	if err := checkContext(ctx); err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}

	if name == "" {
		return nil, ErrInvalidName
	}

	var item *model.InventoryItem
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(s.bucket).Get([]byte(name))
		if data == nil {
			return ErrNotFound
		}

		var doc model.Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return fmt.Errorf("decode %q: %w", name, err)
		}

		found := model.FromDocument(name, doc)
		item = &found
		return nil
	})
	if err != nil {
		return nil, err
	}

	return item, nil
}

// Put creates or replaces the document stored under name.
func (s *BoltStore) Put(ctx context.Context, name string, doc model.Document) error {
	if err := checkContext(ctx); err != nil {
		return fmt.Errorf("put item: %w", err)
	}

	if name == "" {
		return ErrInvalidName
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("put item: encode %q: %w", name, err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(name), data)
	})
	if err != nil {
		return fmt.Errorf("put item: %w", err)
	}

	return nil
}

// Delete removes the document stored under name.
func (s *BoltStore) Delete(ctx context.Context, name string) error {
	if err := checkContext(ctx); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	if name == "" {
		return ErrInvalidName
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(name))
	})
	if err != nil {
		return fmt.Errorf("delete item: %w", err)
	}

	return nil
}

// Close closes the database file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}
