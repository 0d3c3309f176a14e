// Package inventory implements the pantry view-controller: an in-memory
// mirror of the inventory collection plus the read-modify-write operations
// that mutate it.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
	"github.com/vyrodovalexey/pantry-tracker/internal/store"
)

// Operation names used for logging, metrics and change events.
const (
	OpRefresh   = "refresh"
	OpAdd       = "add"
	OpIncrement = "increment"
	OpDecrement = "decrement"
	OpDelete    = "delete"
	OpEdit      = "edit"
)

// Controller errors.
var (
	ErrClosed          = errors.New("inventory controller is closed")
	ErrInvalidQuantity = errors.New("quantity must be a non-negative integer")
)

// Controller mirrors the inventory collection and applies user actions to
// it. Mutations are serialised: each one runs its read-modify-write and the
// follow-up refresh before the next one starts, so the mirror reflects the
// latest successful mutation of this process. Writers in other processes
// are not coordinated with.
type Controller struct {
	store  store.Store
	events *Broadcaster
	logger *zap.Logger

	actionMu sync.Mutex

	mu      sync.RWMutex
	items   []model.InventoryItem
	lastErr error
	closed  bool
}

// NewController creates a Controller over s. events may be nil.
func NewController(s store.Store, events *Broadcaster, logger *zap.Logger) *Controller {
	return &Controller{
		store:  s,
		events: events,
		logger: logger.With(zap.String("component", "inventory")),
		items:  []model.InventoryItem{},
	}
}

// Items returns a copy of the mirror.
func (c *Controller) Items() []model.InventoryItem {
	c.mu.RLock()
	defer c.mu.RUnlock()

	items := make([]model.InventoryItem, len(c.items))
	copy(items, c.items)
	return items
}

// Search filters the mirror by a case-insensitive substring of the name.
func (c *Controller) Search(query string) []model.InventoryItem {
	return Filter(c.Items(), query)
}

// Lookup returns the mirrored item with exactly the given name.
func (c *Controller) Lookup(name string) (model.InventoryItem, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, item := range c.items {
		if item.Name == name {
			return item, true
		}
	}
	return model.InventoryItem{}, false
}

// Err returns the error of the most recent failed operation, or nil once a
// later operation has succeeded.
func (c *Controller) Err() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// Close tears the controller down. Later calls return ErrClosed and results
// of operations still in flight are discarded.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// Refresh reloads the mirror from the store.
func (c *Controller) Refresh(ctx context.Context) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	return c.refreshLocked(ctx)
}

// Add merges quantity into the named item, creating it when absent. An
// existing item's category and expiration date are replaced by the supplied
// values, even when those are empty.
func (c *Controller) Add(ctx context.Context, name, category, expirationDate string, quantity int) error {
	if err := validateInput(name, expirationDate, quantity); err != nil {
		return err
	}

	return c.mutate(ctx, OpAdd, name, func(ctx context.Context) (bool, error) {
		doc := model.Document{
			Quantity:       quantity,
			Category:       category,
			ExpirationDate: expirationDate,
		}

		existing, err := c.store.Get(ctx, name)
		switch {
		case err == nil:
			doc.Quantity += existing.Quantity
		case !errors.Is(err, store.ErrNotFound):
			return false, err
		}

		return true, c.store.Put(ctx, name, doc)
	})
}

// QuickIncrement adds one to the named item and keeps its category and
// expiration date. An absent item is created with quantity 1.
func (c *Controller) QuickIncrement(ctx context.Context, name string) error {
	if err := model.ValidateName(name); err != nil {
		return err
	}

	return c.mutate(ctx, OpIncrement, name, func(ctx context.Context) (bool, error) {
		existing, err := c.store.Get(ctx, name)
		switch {
		case errors.Is(err, store.ErrNotFound):
			return true, c.store.Put(ctx, name, model.Document{Quantity: 1})
		case err != nil:
			return false, err
		}

		doc := existing.Document()
		doc.Quantity++
		return true, c.store.Put(ctx, name, doc)
	})
}

// Decrement removes one unit from the named item. The document is deleted
// when its quantity would drop to zero or below. Absent items are ignored.
func (c *Controller) Decrement(ctx context.Context, name string) error {
	if name == "" {
		return model.ErrEmptyName
	}

	return c.mutate(ctx, OpDecrement, name, func(ctx context.Context) (bool, error) {
		existing, err := c.store.Get(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			return false, nil
		}
		if err != nil {
			return false, err
		}

		if existing.Quantity <= 1 {
			return true, c.store.Delete(ctx, name)
		}

		doc := existing.Document()
		doc.Quantity--
		return true, c.store.Put(ctx, name, doc)
	})
}

// DeleteItem removes the named item if it exists.
func (c *Controller) DeleteItem(ctx context.Context, name string) error {
	if name == "" {
		return model.ErrEmptyName
	}

	return c.mutate(ctx, OpDelete, name, func(ctx context.Context) (bool, error) {
		if _, err := c.store.Get(ctx, name); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return false, nil
			}
			return false, err
		}
		return true, c.store.Delete(ctx, name)
	})
}

// Edit replaces the document stored under target with the supplied fields.
// target is the key captured when editing began; the name is never changed.
func (c *Controller) Edit(ctx context.Context, target, category, expirationDate string, quantity int) error {
	if err := validateInput(target, expirationDate, quantity); err != nil {
		return err
	}

	return c.mutate(ctx, OpEdit, target, func(ctx context.Context) (bool, error) {
		return true, c.store.Put(ctx, target, model.Document{
			Quantity:       quantity,
			Category:       category,
			ExpirationDate: expirationDate,
		})
	})
}

// Save submits f: edit mode replaces the document keyed by f.EditingTarget,
// add mode merges into f.Name. The form is closed on success and left open
// on failure.
func (c *Controller) Save(ctx context.Context, f *Form) error {
	var err error
	switch f.Mode {
	case FormEdit:
		err = c.Edit(ctx, f.EditingTarget, f.Category, f.ExpirationDate, f.Quantity)
	case FormAdd:
		err = c.Add(ctx, f.Name, f.Category, f.ExpirationDate, f.Quantity)
	default:
		return ErrFormClosed
	}
	if err != nil {
		return err
	}

	f.Close()
	return nil
}

// mutate runs one read-modify-write under the action lock, then refreshes
// the mirror and announces the change. fn reports whether it wrote.
func (c *Controller) mutate(ctx context.Context, op, name string, fn func(context.Context) (bool, error)) error {
	if c.isClosed() {
		return ErrClosed
	}

	c.actionMu.Lock()
	defer c.actionMu.Unlock()

	changed, err := fn(ctx)
	if err != nil {
		err = fmt.Errorf("%s %q: %w", op, name, err)
		c.recordFailure(op, err)
		return err
	}
	operationsTotal.WithLabelValues(op, resultSuccess).Inc()

	if changed {
		c.logger.Info("inventory changed", zap.String("operation", op), zap.String("name", name))
		if c.events != nil && !c.isClosed() {
			c.events.Publish(model.NewChangeEvent(op, name))
		}
	}

	return c.refreshLocked(ctx)
}

// refreshLocked reloads the mirror. The caller holds actionMu.
func (c *Controller) refreshLocked(ctx context.Context) error {
	items, err := c.store.List(ctx)
	if err != nil {
		err = fmt.Errorf("%s: %w", OpRefresh, err)
		c.recordFailure(OpRefresh, err)
		return err
	}
	operationsTotal.WithLabelValues(OpRefresh, resultSuccess).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}

	c.items = items
	c.lastErr = nil
	itemsGauge.Set(float64(len(items)))

	return nil
}

func (c *Controller) recordFailure(op string, err error) {
	operationsTotal.WithLabelValues(op, resultError).Inc()
	c.logger.Error("inventory operation failed", zap.String("operation", op), zap.Error(err))

	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.lastErr = err
	}
}

func (c *Controller) isClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

func validateInput(name, expirationDate string, quantity int) error {
	if err := model.ValidateName(name); err != nil {
		return err
	}
	if quantity < 0 {
		return ErrInvalidQuantity
	}
	return model.ValidateDate(expirationDate)
}

// Filter returns the items whose name contains query, ignoring case, in
// their original order. An empty query matches everything.
func Filter(items []model.InventoryItem, query string) []model.InventoryItem {
	if query == "" {
		return items
	}

	needle := strings.ToLower(query)
	filtered := make([]model.InventoryItem, 0, len(items))
	for _, item := range items {
		if strings.Contains(strings.ToLower(item.Name), needle) {
			filtered = append(filtered, item)
		}
	}
	return filtered
}
