package journals

import (
	"time"

	"github.com/shopspring/decimal"
)

// EntryStatus enumerates the journal entry lifecycle.
type EntryStatus string

const (
	EntryStatusDraft  EntryStatus = "DRAFT"
	EntryStatusPosted EntryStatus = "POSTED"
	EntryStatusVoided EntryStatus = "VOIDED"
)

// JournalEntry captures posting metadata. Numbers are sequential per
// organization and never reused, even after a draft is deleted.
type JournalEntry struct {
	ID           int64
	OrgID        int64
	Number       string
	EntryDate    time.Time
	Description  string
	SourceModule string
	SourceRef    *int64
	Status       EntryStatus
	PostedAt     *time.Time
	PostedBy     *int64
	VoidedAt     *time.Time
	VoidedBy     *int64
	VoidReason   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Lines        []JournalLine
}

// JournalLine stores a debit or credit amount for an account, with optional
// dimension tags. Line numbers are 1-based and sequential within an entry.
type JournalLine struct {
	ID          int64
	EntryID     int64
	LineNo      int
	AccountID   int64
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	Department  *string
	Project     *string
	Class       *string
	Location    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
