package inventory

import (
	"errors"
	"strconv"
	"strings"

	"github.com/vyrodovalexey/pantry-tracker/internal/model"
)

// ErrFormClosed is returned when saving a form that is not open.
var ErrFormClosed = errors.New("form is not open")

// FormMode is the state of the add/edit modal.
type FormMode int

// Form modes.
const (
	FormClosed FormMode = iota
	FormAdd
	FormEdit
)

// String returns the mode name used in page URLs.
func (m FormMode) String() string {
	switch m {
	case FormAdd:
		return "add"
	case FormEdit:
		return "edit"
	default:
		return "closed"
	}
}

// Form holds the modal's field values. EditingTarget is the key captured
// when the form was opened for editing; saves in edit mode always write to
// it, whatever Name holds.
type Form struct {
	Mode           FormMode
	Name           string
	Category       string
	ExpirationDate string
	Quantity       int
	EditingTarget  string
}

// OpenForAdd opens the form with every field cleared.
func (f *Form) OpenForAdd() {
	*f = Form{Mode: FormAdd}
}

// OpenForEdit opens the form pre-filled from item with the name locked.
func (f *Form) OpenForEdit(item model.InventoryItem) {
	*f = Form{
		Mode:           FormEdit,
		Name:           item.Name,
		Category:       item.Category,
		ExpirationDate: item.ExpirationDate,
		Quantity:       item.Quantity,
		EditingTarget:  item.Name,
	}
}

// Close hides the form. Field values are kept until the next open.
func (f *Form) Close() {
	f.Mode = FormClosed
}

// IsOpen reports whether the modal is shown.
func (f *Form) IsOpen() bool {
	return f.Mode != FormClosed
}

// NameLocked reports whether the name field is read-only.
func (f *Form) NameLocked() bool {
	return f.Mode == FormEdit
}

// ParseQuantity converts form text to a quantity. Blank input is 0.
func ParseQuantity(s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, ErrInvalidQuantity
	}
	return n, nil
}
