package content

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidTimestamp is returned when a date is missing or cannot be parsed.
	ErrInvalidTimestamp = errors.New("invalid timestamp")

	// ErrMalformedDocument is returned when a CMS document lacks a required
	// field or carries a field of the wrong shape.
	ErrMalformedDocument = errors.New("malformed document")

	// ErrNotFound is returned when an adjacency lookup target is not in the list.
	ErrNotFound = errors.New("not found")
)

// DocumentError describes which field of which document failed validation.
type DocumentError struct {
	UID   string
	Field string
	Err   error
}

func (e *DocumentError) Error() string {
	if e.UID == "" {
		return fmt.Sprintf("content: field %s: %v", e.Field, e.Err)
	}
	return fmt.Sprintf("content: document %q: field %s: %v", e.UID, e.Field, e.Err)
}

func (e *DocumentError) Unwrap() error {
	return e.Err
}

func malformed(uid, field string) error {
	return &DocumentError{UID: uid, Field: field, Err: ErrMalformedDocument}
}
