package shared

import (
	"fmt"

	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// Sentinels wrap the cross-cutting taxonomy so callers can match either the
// domain error or the kind (errors.Is against shared.ErrUnbalancedEntry etc.).
var (
	// ErrUnbalanced indicates debit != credit at posting time.
	ErrUnbalanced = fmt.Errorf("accounting: journal lines must balance: %w", shared.ErrUnbalancedEntry)
	// ErrTooFewLines indicates less than two lines.
	ErrTooFewLines = fmt.Errorf("accounting: journal requires at least two lines: %w", shared.ErrValidation)
	// ErrJournalNotFound indicates missing entry.
	ErrJournalNotFound = fmt.Errorf("accounting: journal entry not found: %w", shared.ErrNotFound)
	// ErrInvalidStatus indicates action can't proceed from the current status.
	ErrInvalidStatus = fmt.Errorf("accounting: invalid status transition: %w", shared.ErrInvalidStateTransition)
	// ErrInvalidAccount indicates malformed account input.
	ErrInvalidAccount = fmt.Errorf("accounting: account requires org, code, name and a valid type: %w", shared.ErrValidation)
	// ErrAccountNotFound indicates missing account.
	ErrAccountNotFound = fmt.Errorf("accounting: account not found: %w", shared.ErrNotFound)
	// ErrAccountInUse indicates restrict-delete while referenced.
	ErrAccountInUse = fmt.Errorf("accounting: account is referenced and cannot be deleted: %w", shared.ErrValidation)
	// ErrSystemAccount indicates a guard on system accounts.
	ErrSystemAccount = fmt.Errorf("accounting: system accounts cannot be deleted or retyped: %w", shared.ErrValidation)
	// ErrDuplicateCode indicates a code collision within the organization.
	ErrDuplicateCode = fmt.Errorf("accounting: account code already exists: %w", shared.ErrValidation)
	// ErrAccountInactive indicates posting against a deactivated account.
	ErrAccountInactive = fmt.Errorf("accounting: account is inactive: %w", shared.ErrConfiguration)
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = fmt.Errorf("accounting: source already linked to a journal entry: %w", shared.ErrInvalidStateTransition)
)
