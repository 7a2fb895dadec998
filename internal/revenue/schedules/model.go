package schedules

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian-fin/internal/revenue/contracts"
)

// ScheduleStatus is derived from the line statuses: PLANNED until the first
// posting, IN_PROGRESS while mixed, COMPLETED when no line remains planned.
type ScheduleStatus string

const (
	ScheduleStatusPlanned    ScheduleStatus = "PLANNED"
	ScheduleStatusInProgress ScheduleStatus = "IN_PROGRESS"
	ScheduleStatusCompleted  ScheduleStatus = "COMPLETED"
	ScheduleStatusCancelled  ScheduleStatus = "CANCELLED"
)

type LineStatus string

const (
	LineStatusPlanned   LineStatus = "PLANNED"
	LineStatusPosted    LineStatus = "POSTED"
	LineStatusCancelled LineStatus = "CANCELLED"
)

// Schedule is the recognition plan for one contract line. A contract line
// has at most one schedule; generation is create-once.
type Schedule struct {
	ID             int64
	ContractLineID int64
	Method         contracts.RecognitionPattern
	TotalAmount    decimal.Decimal
	Status         ScheduleStatus
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Lines          []ScheduleLine
}

// ScheduleLine is one period's recognition. ScheduleDate is the date the
// amount becomes due; recognition runs pick up planned lines with
// ScheduleDate on or before the run's as-of date.
type ScheduleLine struct {
	ID             int64
	ScheduleID     int64
	PeriodStart    time.Time
	PeriodEnd      time.Time
	ScheduleDate   time.Time
	Amount         decimal.Decimal
	Status         LineStatus
	JournalEntryID *int64
	PostedAt       *time.Time
	PostedBy       *int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
