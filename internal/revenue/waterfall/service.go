package waterfall

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"

	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type Service struct {
	repo  Repository
	group singleflight.Group
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Report builds the waterfall for one organisation. Concurrent requests for
// the same org and range share a single aggregation query.
func (s *Service) Report(ctx context.Context, orgID int64, from, to time.Time) (Report, error) {
	if orgID == 0 {
		return Report{}, fmt.Errorf("revenue: org id required: %w", internalShared.ErrValidation)
	}
	if to.Before(from) {
		return Report{}, fmt.Errorf("revenue: waterfall range end before start: %w", internalShared.ErrValidation)
	}
	key := fmt.Sprintf("waterfall:%d:%s:%s", orgID, from.Format("2006-01-02"), to.Format("2006-01-02"))
	resultChan := s.group.DoChan(key, func() (interface{}, error) {
		buckets, err := s.repo.MonthlyBuckets(ctx, orgID, from, to)
		if err != nil {
			return nil, err
		}
		return build(orgID, from, to, buckets), nil
	})
	select {
	case <-ctx.Done():
		return Report{}, ctx.Err()
	case res := <-resultChan:
		if res.Err != nil {
			return Report{}, res.Err
		}
		return res.Val.(Report), nil
	}
}

// build folds status buckets into one row per calendar month. Months inside
// the range with no activity still appear, zero-valued, so the report reads
// as a contiguous timeline.
func build(orgID int64, from, to time.Time, buckets []BucketRow) Report {
	type bucketKey struct{ year int; month time.Month }
	byMonth := make(map[bucketKey]*Period)
	for _, b := range buckets {
		k := bucketKey{b.Month.Year(), b.Month.Month()}
		p, ok := byMonth[k]
		if !ok {
			p = &Period{
				Month:      b.Month.Format("2006-01"),
				Recognized: decimal.Zero,
				Scheduled:  decimal.Zero,
				Total:      decimal.Zero,
			}
			byMonth[k] = p
		}
		switch b.Status {
		case "POSTED":
			p.Recognized = p.Recognized.Add(b.Amount)
		case "PLANNED":
			p.Scheduled = p.Scheduled.Add(b.Amount)
		}
		p.Total = p.Recognized.Add(p.Scheduled)
	}

	report := Report{
		OrgID:           orgID,
		From:            from,
		To:              to,
		TotalRecognized: decimal.Zero,
		TotalScheduled:  decimal.Zero,
	}
	cursor := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(last) {
		k := bucketKey{cursor.Year(), cursor.Month()}
		p, ok := byMonth[k]
		if !ok {
			p = &Period{
				Month:      cursor.Format("2006-01"),
				Recognized: decimal.Zero,
				Scheduled:  decimal.Zero,
				Total:      decimal.Zero,
			}
		}
		report.Periods = append(report.Periods, *p)
		report.TotalRecognized = report.TotalRecognized.Add(p.Recognized)
		report.TotalScheduled = report.TotalScheduled.Add(p.Scheduled)
		cursor = cursor.AddDate(0, 1, 0)
	}
	sort.SliceStable(report.Periods, func(i, j int) bool {
		return report.Periods[i].Month < report.Periods[j].Month
	})
	report.DeferredBalance = report.TotalScheduled
	return report
}
