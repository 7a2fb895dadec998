package schedules

import (
	"time"

	"github.com/meridian-fin/meridian-fin/internal/revenue/contracts"
	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

// defaultTermMonths is the schedule horizon for straight-line lines with no
// explicit end date anywhere on the line or the contract.
const defaultTermMonths = 12

// buildLines computes the planned schedule lines for an allocated contract
// line.
//
// POINT_IN_TIME yields a single line due at the line's service start, or at
// the contract start when the line carries no dates. STRAIGHT_LINE splits
// the allocated price evenly across the calendar months of the service
// period, one line per month due on the period end; the last line absorbs
// the rounding remainder so the lines always sum to the allocated price
// exactly.
func buildLines(line contracts.ContractLine, contractStart time.Time, contractEnd *time.Time) ([]ScheduleLine, error) {
	if line.AllocatedPrice == nil {
		return nil, shared.ErrNotAllocated
	}
	amount := shared.RoundCents(*line.AllocatedPrice)

	switch line.Pattern {
	case contracts.PatternPointInTime:
		when := contractStart
		if line.StartDate != nil {
			when = *line.StartDate
		}
		return []ScheduleLine{{
			PeriodStart:  when,
			PeriodEnd:    when,
			ScheduleDate: when,
			Amount:       amount,
			Status:       LineStatusPlanned,
		}}, nil

	case contracts.PatternStraightLine:
		if line.StartDate == nil {
			return nil, shared.ErrMissingServicePeriod
		}
		start := *line.StartDate
		end := straightLineEnd(line, contractEnd, start)
		periods := monthPeriods(start, end)
		if len(periods) == 0 {
			return nil, shared.ErrEmptyPeriodRange
		}
		amounts := shared.SplitEven(amount, len(periods))
		lines := make([]ScheduleLine, 0, len(periods))
		for i, p := range periods {
			lines = append(lines, ScheduleLine{
				PeriodStart:  p.start,
				PeriodEnd:    p.end,
				ScheduleDate: p.end,
				Amount:       amounts[i],
				Status:       LineStatusPlanned,
			})
		}
		return lines, nil

	default:
		return nil, shared.ErrMissingServicePeriod
	}
}

func straightLineEnd(line contracts.ContractLine, contractEnd *time.Time, start time.Time) time.Time {
	if line.EndDate != nil {
		return *line.EndDate
	}
	if contractEnd != nil {
		return *contractEnd
	}
	return start.AddDate(0, defaultTermMonths, 0).AddDate(0, 0, -1)
}

type period struct {
	start time.Time
	end   time.Time
}

// monthPeriods slices [start, end] into calendar-month periods. The first
// and last period are clipped to the service dates; everything in between
// runs first-of-month to end-of-month.
func monthPeriods(start, end time.Time) []period {
	if end.Before(start) {
		return nil
	}
	var periods []period
	cursor := start
	for !cursor.After(end) {
		monthEnd := endOfMonth(cursor)
		if monthEnd.After(end) {
			monthEnd = end
		}
		periods = append(periods, period{start: cursor, end: monthEnd})
		cursor = startOfMonth(cursor).AddDate(0, 1, 0)
	}
	return periods
}

func startOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

func endOfMonth(t time.Time) time.Time {
	return startOfMonth(t).AddDate(0, 1, -1)
}
