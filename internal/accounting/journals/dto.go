package journals

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

// LineInput describes a journal line for create/update requests.
type LineInput struct {
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	Department  *string
	Project     *string
	Class       *string
	Location    *string
}

// CreateEntryInput groups fields required to open a draft journal entry.
type CreateEntryInput struct {
	OrgID        int64
	EntryDate    time.Time
	Description  string
	SourceModule string
	SourceRef    *int64
	CreatedBy    int64
	Lines        []LineInput
}

// Validate ensures structural sanity. Drafts may be unbalanced; balance is
// only enforced at posting time.
func (in CreateEntryInput) Validate() error {
	if in.OrgID == 0 {
		return fmt.Errorf("accounting: organization required: %w", internalShared.ErrValidation)
	}
	if in.EntryDate.IsZero() {
		return fmt.Errorf("accounting: entry date required: %w", internalShared.ErrValidation)
	}
	return validateLines(in.Lines)
}

// UpdateEntryInput carries a draft edit.
type UpdateEntryInput struct {
	EntryID     int64
	EntryDate   time.Time
	Description string
	Lines       []LineInput
}

// PostInput wraps parameters for posting.
type PostInput struct {
	EntryID int64
	ActorID int64
}

// VoidInput wraps parameters for voiding.
type VoidInput struct {
	EntryID int64
	ActorID int64
	Reason  string
}

func validateLines(lines []LineInput) error {
	for idx, line := range lines {
		if line.AccountID == 0 {
			return fmt.Errorf("accounting: line %d missing account: %w", idx+1, internalShared.ErrValidation)
		}
		if line.Debit.IsNegative() || line.Credit.IsNegative() {
			return fmt.Errorf("accounting: line %d negative amount: %w", idx+1, internalShared.ErrValidation)
		}
		if line.Debit.IsPositive() && line.Credit.IsPositive() {
			return fmt.Errorf("accounting: line %d cannot be both debit and credit: %w", idx+1, internalShared.ErrValidation)
		}
	}
	return nil
}

// sumLines totals debits and credits at two decimal places.
func sumLines(lines []JournalLine) (debit, credit decimal.Decimal) {
	debit, credit = decimal.Zero, decimal.Zero
	for _, line := range lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit, credit
}

// checkBalanced enforces the double-entry invariant exactly, no tolerance.
func checkBalanced(lines []JournalLine) error {
	if len(lines) < 2 {
		return shared.ErrTooFewLines
	}
	debit, credit := sumLines(lines)
	if !debit.Equal(credit) {
		return shared.ErrUnbalanced
	}
	return nil
}
