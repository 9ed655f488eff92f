package shared

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// FieldError describes a single rejected input field.
type FieldError struct {
	Field string `json:"field"`
	Code  string `json:"code"`
}

// ValidationError aggregates every failed input check for a request.
// Checks are collected exhaustively so callers can render all field
// errors in one response.
type ValidationError struct {
	Errors []FieldError `json:"errors"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Errors))
	for _, fe := range e.Errors {
		parts = append(parts, fe.Field+": "+fe.Code)
	}
	return "validation failed: " + strings.Join(parts, ", ")
}

// Add appends a field error.
func (e *ValidationError) Add(field, code string) {
	e.Errors = append(e.Errors, FieldError{Field: field, Code: code})
}

// OrNil returns the error when at least one field was rejected.
func (e *ValidationError) OrNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// ConflictError reports the concrete blocking entity (booking,
// turnaround or void period) together with the earliest date that
// would resolve the conflict.
type ConflictError struct {
	EntityID     uuid.UUID `json:"entityId"`
	Reason       string    `json:"reason"`
	EarliestDate time.Time `json:"earliestDate"`
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict: %s (entity %s, earliest date %s)",
		e.Reason, e.EntityID, e.EarliestDate.Format("2006-01-02"))
}

// StateError indicates an operation that is not applicable to the
// resource's current state, e.g. cancelling an unscheduled archive.
type StateError struct {
	Code string `json:"code"`
}

func (e *StateError) Error() string {
	return "invalid state: " + e.Code
}
