package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// KeyPrefix namespaces collection hashes in a shared Redis database.
const KeyPrefix = "pantry:"

// RedisStore keeps a collection in a single Redis hash. Hash fields are item
// names and values are JSON-encoded documents.
type RedisStore struct {
	client *redis.Client
	key    string
	logger *zap.Logger
}

// NewRedisStore creates a RedisStore for the named collection.
func NewRedisStore(client *redis.Client, collection string, logger *zap.Logger) *RedisStore {
	if collection == "" {
		collection = DefaultCollection
	}
	return &RedisStore{
		client: client,
		key:    KeyPrefix + collection,
		logger: logger.With(zap.String("component", "redis_store"), zap.String("collection", collection)),
	}
}

// List returns every document in the hash sorted by name. Documents that
// fail to decode are skipped.
func (s *RedisStore) List(ctx context.Context) ([]model.InventoryItem, error) {
	fields, err := s.client.HGetAll(ctx, s.key).Result()
	if err != nil {
		return nil, fmt.Errorf("list items: redis hgetall: %w", err)
	}

	items := make([]model.InventoryItem, 0, len(fields))
	for name, raw := range fields {
		var doc model.Document
		if err := json.Unmarshal([]byte(raw), &doc); err != nil {
			s.logger.Warn("skipping malformed document", zap.String("name", name), zap.Error(err))
			continue
		}
		items = append(items, model.FromDocument(name, doc))
	}
	sortByName(items)

	return items, nil
}

// Get retrieves a document by name.
func (s *RedisStore) Get(ctx context.Context, name string) (*model.InventoryItem, error) {
	if name == "" {
		return nil, ErrInvalidName
	}

	raw, err := s.client.HGet(ctx, s.key, name).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get item: redis hget: %w", err)
	}

	var doc model.Document
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("get item: decode %q: %w", name, err)
	}

	item := model.FromDocument(name, doc)
	return &item, nil
}

// Put creates or replaces the document stored under name.
func (s *RedisStore) Put(ctx context.Context, name string, doc model.Document) error {
	if name == "" {
		return ErrInvalidName
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("put item: encode %q: %w", name, err)
	}

	if err := s.client.HSet(ctx, s.key, name, data).Err(); err != nil {
		return fmt.Errorf("put item: redis hset: %w", err)
	}

	s.logger.Debug("document written", zap.String("name", name))
	return nil
}

// Delete removes the document stored under name.
func (s *RedisStore) Delete(ctx context.Context, name string) error {
	if name == "" {
		return ErrInvalidName
	}

	if err := s.client.HDel(ctx, s.key, name).Err(); err != nil {
		return fmt.Errorf("delete item: redis hdel: %w", err)
	}

	s.logger.Debug("document deleted", zap.String("name", name))
	return nil
}

// Ping checks that the Redis server is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

// Close closes the underlying client.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
