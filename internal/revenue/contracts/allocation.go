package contracts

import (
	"github.com/shopspring/decimal"

	sharedrev "github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

// Allocate distributes the contract's total transaction price across its
// lines in proportion to each line's standalone selling price. Rounding
// happens per line at two decimal places and the last line absorbs the
// remainder, so the allocated amounts always sum to the total exactly.
// When every SSP is zero the total splits evenly instead.
//
// Allocation mutates the receiver's lines and is all-or-nothing: on error
// no line is touched. Lines are processed in stored order, so repeated
// runs over the same contract produce identical results.
func Allocate(c *Contract) (int, error) {
	if len(c.Lines) == 0 {
		return 0, sharedrev.ErrNoLines
	}
	if !c.TotalPrice.IsPositive() {
		return 0, sharedrev.ErrNonPositiveTotal
	}
	weights := make([]decimal.Decimal, len(c.Lines))
	for i, line := range c.Lines {
		weights[i] = line.SSPAmount
	}
	parts := sharedrev.SplitProportional(c.TotalPrice, weights)
	for i := range c.Lines {
		amount := parts[i]
		c.Lines[i].AllocatedPrice = &amount
	}
	return len(c.Lines), nil
}
