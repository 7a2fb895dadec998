package recognition

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type RunInput struct {
	OrgID   int64
	AsOf    time.Time
	ActorID int64
	DryRun  bool
}

// Outcome classifies what happened to one due line during a run.
type Outcome string

const (
	// OutcomeDue marks a line a dry run would have posted.
	OutcomeDue Outcome = "DUE"
	// OutcomePosted marks a line whose journal entry was created.
	OutcomePosted Outcome = "POSTED"
	// OutcomeSkipped marks a line another run claimed first.
	OutcomeSkipped Outcome = "SKIPPED"
	// OutcomeFailed marks a line that errored; the run continues past it.
	OutcomeFailed Outcome = "FAILED"
)

type LineResult struct {
	ScheduleLineID int64           `json:"schedule_line_id"`
	ContractLineID int64           `json:"contract_line_id"`
	ContractID     int64           `json:"contract_id"`
	ScheduleDate   time.Time       `json:"schedule_date"`
	Amount         decimal.Decimal `json:"amount"`
	Outcome        Outcome         `json:"outcome"`
	EntryID        *int64          `json:"entry_id,omitempty"`
	EntryNumber    string          `json:"entry_number,omitempty"`
	Reason         string          `json:"reason,omitempty"`
}

// RunResult summarises one recognition run. TotalAmount covers posted lines
// only, except in dry runs where it covers everything due.
type RunResult struct {
	RunID          uuid.UUID       `json:"run_id"`
	OrgID          int64           `json:"org_id"`
	AsOf           time.Time       `json:"as_of"`
	DryRun         bool            `json:"dry_run"`
	LinesProcessed int             `json:"lines_processed"`
	LinesPosted    int             `json:"lines_posted"`
	LinesSkipped   int             `json:"lines_skipped"`
	LinesFailed    int             `json:"lines_failed"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	Lines          []LineResult    `json:"lines"`
}
