package shared

import (
	"fmt"

	"github.com/meridian-fin/meridian-fin/internal/shared"
)

// Sentinels wrap the cross-cutting taxonomy so callers can match either the
// domain error or the kind.
var (
	// ErrNoLines indicates allocation over an empty line set.
	ErrNoLines = fmt.Errorf("revenue: contract has no lines: %w", shared.ErrAllocation)
	// ErrNonPositiveTotal indicates a zero or negative transaction price.
	ErrNonPositiveTotal = fmt.Errorf("revenue: total transaction price must be positive: %w", shared.ErrValidation)
	// ErrNotAllocated indicates schedule generation before allocation.
	ErrNotAllocated = fmt.Errorf("revenue: line has no allocated transaction price: %w", shared.ErrValidation)
	// ErrMissingServicePeriod indicates a straight-line line without a start date.
	ErrMissingServicePeriod = fmt.Errorf("revenue: straight-line recognition requires a service period: %w", shared.ErrValidation)
	// ErrEmptyPeriodRange indicates a degenerate date range producing no periods.
	ErrEmptyPeriodRange = fmt.Errorf("revenue: service period produces no recognition periods: %w", shared.ErrConfiguration)
	// ErrMissingAccounts indicates a line without revenue/deferred accounts at posting time.
	ErrMissingAccounts = fmt.Errorf("revenue: revenue and deferred revenue accounts must be assigned: %w", shared.ErrConfiguration)
	// ErrLineNotPlanned indicates posting a schedule line outside PLANNED status.
	ErrLineNotPlanned = fmt.Errorf("revenue: schedule line is not planned: %w", shared.ErrInvalidStateTransition)
	// ErrAlreadyPosted indicates a concurrent run claimed the line first.
	ErrAlreadyPosted = fmt.Errorf("revenue: schedule line already posted: %w", shared.ErrInvalidStateTransition)
	// ErrScheduleNotFound indicates a missing schedule or schedule line.
	ErrScheduleNotFound = fmt.Errorf("revenue: schedule not found: %w", shared.ErrNotFound)
	// ErrContractNotFound indicates a missing contract.
	ErrContractNotFound = fmt.Errorf("revenue: contract not found: %w", shared.ErrNotFound)
	// ErrLineNotFound indicates a missing contract line.
	ErrLineNotFound = fmt.Errorf("revenue: contract line not found: %w", shared.ErrNotFound)
	// ErrInvalidStatus indicates a contract lifecycle rule violation.
	ErrInvalidStatus = fmt.Errorf("revenue: invalid status transition: %w", shared.ErrInvalidStateTransition)
)
