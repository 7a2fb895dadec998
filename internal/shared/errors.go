package shared

import (
	"errors"
	"fmt"
)

// Error kinds shared across domain packages. Services wrap these with
// EntityError so callers can both match the kind and identify the record.
var (
	// ErrValidation indicates malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrAllocation indicates a contract that cannot be allocated.
	ErrAllocation = errors.New("allocation failed")
	// ErrConfiguration indicates missing setup, e.g. an unassigned account.
	ErrConfiguration = errors.New("configuration incomplete")
	// ErrUnbalancedEntry indicates debits != credits on a posting attempt.
	ErrUnbalancedEntry = errors.New("journal entry is not balanced")
	// ErrInvalidStateTransition indicates a lifecycle rule violation.
	ErrInvalidStateTransition = errors.New("invalid state transition")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
)

// EntityError ties an error kind to the offending entity so callers see a
// structured failure instead of a raw database error.
type EntityError struct {
	Kind     error
	Entity   string
	EntityID int64
	Msg      string
}

func (e *EntityError) Error() string {
	if e.Msg != "" {
		return fmt.Sprintf("%s %d: %s: %s", e.Entity, e.EntityID, e.Kind, e.Msg)
	}
	return fmt.Sprintf("%s %d: %s", e.Entity, e.EntityID, e.Kind)
}

func (e *EntityError) Unwrap() error { return e.Kind }

// NewEntityError builds an EntityError for the given kind and entity.
func NewEntityError(kind error, entity string, id int64, msg string) *EntityError {
	return &EntityError{Kind: kind, Entity: entity, EntityID: id, Msg: msg}
}
