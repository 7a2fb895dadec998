package waterfall

import (
	"time"

	"github.com/shopspring/decimal"
)

// BucketRow is one month/status aggregate straight from storage.
type BucketRow struct {
	Month  time.Time
	Status string
	Amount decimal.Decimal
}

// Period is one month of the waterfall. Recognized is what posted,
// Scheduled is what remains planned for that month, Total is both.
type Period struct {
	Month      string          `json:"month"`
	Recognized decimal.Decimal `json:"recognized"`
	Scheduled  decimal.Decimal `json:"scheduled"`
	Total      decimal.Decimal `json:"total"`
}

// Report is the revenue waterfall for one organisation and date range.
// DeferredBalance is the sum of all still-planned amounts in range: revenue
// billed into deferral that has not yet been recognized.
type Report struct {
	OrgID           int64           `json:"org_id"`
	From            time.Time       `json:"from"`
	To              time.Time       `json:"to"`
	Periods         []Period        `json:"periods"`
	TotalRecognized decimal.Decimal `json:"total_recognized"`
	TotalScheduled  decimal.Decimal `json:"total_scheduled"`
	DeferredBalance decimal.Decimal `json:"deferred_balance"`
}
