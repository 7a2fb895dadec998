package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// ContractStatus enumerates the contract lifecycle.
type ContractStatus string

const (
	ContractStatusDraft     ContractStatus = "DRAFT"
	ContractStatusActive    ContractStatus = "ACTIVE"
	ContractStatusCompleted ContractStatus = "COMPLETED"
	ContractStatusCancelled ContractStatus = "CANCELLED"
)

// LineStatus mirrors the contract lifecycle at line granularity.
type LineStatus string

const (
	LineStatusDraft     LineStatus = "DRAFT"
	LineStatusActive    LineStatus = "ACTIVE"
	LineStatusCompleted LineStatus = "COMPLETED"
	LineStatusCancelled LineStatus = "CANCELLED"
)

// RecognitionPattern selects how a line's allocated price is recognised.
type RecognitionPattern string

const (
	PatternPointInTime  RecognitionPattern = "POINT_IN_TIME"
	PatternStraightLine RecognitionPattern = "STRAIGHT_LINE"
)

// Valid reports whether the pattern is known.
func (p RecognitionPattern) Valid() bool {
	return p == PatternPointInTime || p == PatternStraightLine
}

// Contract models a revenue contract. The invariant maintained by the
// allocation engine: the sum of line allocated prices equals TotalPrice
// exactly, with any rounding remainder absorbed by the last line.
type Contract struct {
	ID         int64
	OrgID      int64
	CustomerID int64
	Name       string
	Currency   string
	TotalPrice decimal.Decimal
	StartDate  time.Time
	EndDate    *time.Time
	Status     ContractStatus
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Lines      []ContractLine
}

// ContractLine models a performance obligation. AllocatedPrice stays nil
// until the allocation engine runs.
type ContractLine struct {
	ID                int64
	ContractID        int64
	Description       string
	ProductType       string
	Pattern           RecognitionPattern
	StartDate         *time.Time
	EndDate           *time.Time
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	SSPAmount         decimal.Decimal
	AllocatedPrice    *decimal.Decimal
	RevenueAccountID  *int64
	DeferredAccountID *int64
	Status            LineStatus
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
