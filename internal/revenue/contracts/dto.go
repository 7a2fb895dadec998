package contracts

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type LineInput struct {
	Description       string
	ProductType       string
	Pattern           RecognitionPattern
	StartDate         *time.Time
	EndDate           *time.Time
	Quantity          decimal.Decimal
	UnitPrice         decimal.Decimal
	SSPAmount         decimal.Decimal
	RevenueAccountID  *int64
	DeferredAccountID *int64
}

type CreateContractInput struct {
	OrgID      int64
	CustomerID int64
	Name       string
	Currency   string
	TotalPrice decimal.Decimal
	StartDate  time.Time
	EndDate    *time.Time
	ActorID    int64
	Lines      []LineInput
}

type UpdateContractInput struct {
	ContractID int64
	Name       string
	TotalPrice decimal.Decimal
	StartDate  time.Time
	EndDate    *time.Time
	ActorID    int64
	Lines      []LineInput
}

func (in CreateContractInput) Validate() error {
	if in.OrgID == 0 {
		return fmt.Errorf("revenue: org id required: %w", internalShared.ErrValidation)
	}
	if in.Name == "" {
		return fmt.Errorf("revenue: contract name required: %w", internalShared.ErrValidation)
	}
	if in.StartDate.IsZero() {
		return fmt.Errorf("revenue: contract start date required: %w", internalShared.ErrValidation)
	}
	if in.EndDate != nil && in.EndDate.Before(in.StartDate) {
		return fmt.Errorf("revenue: contract end date before start date: %w", internalShared.ErrValidation)
	}
	if !in.TotalPrice.IsPositive() {
		return fmt.Errorf("revenue: total transaction price must be positive: %w", internalShared.ErrValidation)
	}
	return validateLines(in.Lines)
}

func validateLines(lines []LineInput) error {
	for i, line := range lines {
		if !line.Pattern.Valid() {
			return fmt.Errorf("revenue: line %d: unknown recognition pattern %q: %w", i+1, line.Pattern, internalShared.ErrValidation)
		}
		if line.SSPAmount.IsNegative() {
			return fmt.Errorf("revenue: line %d: standalone selling price cannot be negative: %w", i+1, internalShared.ErrValidation)
		}
		if line.Quantity.IsNegative() || line.UnitPrice.IsNegative() {
			return fmt.Errorf("revenue: line %d: quantity and unit price cannot be negative: %w", i+1, internalShared.ErrValidation)
		}
		if line.Pattern == PatternStraightLine && line.StartDate == nil {
			return fmt.Errorf("revenue: line %d: straight-line recognition requires a service start date: %w", i+1, internalShared.ErrValidation)
		}
		if line.StartDate != nil && line.EndDate != nil && line.EndDate.Before(*line.StartDate) {
			return fmt.Errorf("revenue: line %d: service end date before start date: %w", i+1, internalShared.ErrValidation)
		}
	}
	return nil
}
