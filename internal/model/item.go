// Package model defines data structures used throughout the application.
package model

import (
	"errors"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Validation errors for InventoryItem.
var (
	ErrEmptyName        = errors.New("name cannot be empty")
	ErrNameTooLong      = errors.New("name cannot exceed 255 characters")
	ErrReservedName     = errors.New(`name cannot be "." or ".."`)
	ErrNegativeQuantity = errors.New("quantity cannot be negative")
	ErrInvalidDate      = errors.New("expiration date must be formatted as YYYY-MM-DD")
)

// Validation constants.
const (
	MaxNameLength = 255
	DateLayout    = "2006-01-02"
)

// NotAvailable is rendered in place of an unset category or expiration date.
const NotAvailable = "N/A"

// InventoryItem is one pantry document. Name is the document key; the other
// fields form the stored document body.
type InventoryItem struct {
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	Category       string `json:"category"`
	ExpirationDate string `json:"expirationDate"`
}

// Document is the body persisted under an item's key.
type Document struct {
	Quantity       int    `json:"quantity"`
	Category       string `json:"category"`
	ExpirationDate string `json:"expirationDate"`
}

// Document returns the stored body of the item.
func (i InventoryItem) Document() Document {
	return Document{
		Quantity:       i.Quantity,
		Category:       i.Category,
		ExpirationDate: i.ExpirationDate,
	}
}

// FromDocument attaches a key to a stored document body.
func FromDocument(name string, doc Document) InventoryItem {
	return InventoryItem{
		Name:           name,
		Quantity:       doc.Quantity,
		Category:       doc.Category,
		ExpirationDate: doc.ExpirationDate,
	}
}

// Validate checks if the InventoryItem has valid field values.
func (i *InventoryItem) Validate() error {
	if err := ValidateName(i.Name); err != nil {
		return err
	}

	if i.Quantity < 0 {
		return ErrNegativeQuantity
	}

	return ValidateDate(i.ExpirationDate)
}

// ValidateName rejects names that cannot be used as a document key. "." and
// ".." are reserved because item URLs carry the name as a path segment.
func ValidateName(name string) error {
	switch {
	case strings.TrimSpace(name) == "":
		return ErrEmptyName
	case len(name) > MaxNameLength:
		return ErrNameTooLong
	case name == "." || name == "..":
		return ErrReservedName
	}
	return nil
}

// ValidateDate accepts an empty string or an ISO calendar date.
func ValidateDate(date string) error {
	if date == "" {
		return nil
	}
	if _, err := time.Parse(DateLayout, date); err != nil {
		return ErrInvalidDate
	}
	return nil
}

// DisplayName returns the name with its first letter upper-cased.
func (i InventoryItem) DisplayName() string {
	r, size := utf8.DecodeRuneInString(i.Name)
	if r == utf8.RuneError {
		return i.Name
	}
	return string(unicode.ToUpper(r)) + i.Name[size:]
}

// DisplayCategory returns the category or NotAvailable.
func (i InventoryItem) DisplayCategory() string {
	if i.Category == "" {
		return NotAvailable
	}
	return i.Category
}

// DisplayExpiry returns the expiration date or NotAvailable.
func (i InventoryItem) DisplayExpiry() string {
	if i.ExpirationDate == "" {
		return NotAvailable
	}
	return i.ExpirationDate
}

// APIResponse is a generic wrapper for API responses.
type APIResponse[T any] struct {
	Success bool   `json:"success"`
	Data    T      `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewSuccessResponse creates a successful API response.
func NewSuccessResponse[T any](data T) APIResponse[T] {
	return APIResponse[T]{
		Success: true,
		Data:    data,
	}
}

// NewErrorResponse creates an error API response.
func NewErrorResponse[T any](errMsg string) APIResponse[T] {
	return APIResponse[T]{
		Success: false,
		Error:   errMsg,
	}
}

// ErrorResponse represents an error response structure.
type ErrorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ChangeEvent is pushed to WebSocket subscribers after a mutation.
type ChangeEvent struct {
	Type      string    `json:"type"`
	Operation string    `json:"operation,omitempty"`
	Name      string    `json:"name,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// WSMessageTypeChanged is the type of every change feed message.
const WSMessageTypeChanged = "inventory_changed"

// NewChangeEvent creates a change notification for the given operation.
func NewChangeEvent(operation, name string) ChangeEvent {
	return ChangeEvent{
		Type:      WSMessageTypeChanged,
		Operation: operation,
		Name:      name,
		Timestamp: time.Now().UTC(),
	}
}
