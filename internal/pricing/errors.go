package pricing

import (
	"fmt"

	"github.com/bookexpress/cotizador/internal/shared"
)

// InvalidInputError names the field and value that could not be priced.
type InvalidInputError struct {
	Field  string
	Value  any
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("pricing: invalid %s %q: %s", e.Field, fmt.Sprint(e.Value), e.Reason)
}

// Unwrap lets callers match shared.ErrInvalidInput with errors.Is.
func (e *InvalidInputError) Unwrap() error {
	return shared.ErrInvalidInput
}

// BatchItemError identifies the batch item that aborted a batch computation.
type BatchItemError struct {
	Index     int
	ProductID int64
	Err       error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("pricing: batch item %d (product %d): %v", e.Index, e.ProductID, e.Err)
}

func (e *BatchItemError) Unwrap() error {
	return e.Err
}

func invalid(field string, value any, reason string) error {
	return &InvalidInputError{Field: field, Value: value, Reason: reason}
}
