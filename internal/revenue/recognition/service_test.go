package recognition

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	sharedrev "github.com/meridian-fin/meridian-fin/internal/revenue/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type memoryRecognitionRepo struct {
	lines       map[int64]*DueLine
	nextEntryID int64
	postErr     map[int64]error
}

func newMemoryRecognitionRepo() *memoryRecognitionRepo {
	return &memoryRecognitionRepo{lines: make(map[int64]*DueLine), postErr: make(map[int64]error)}
}

func (m *memoryRecognitionRepo) add(line DueLine) {
	if line.Status == "" {
		line.Status = "PLANNED"
	}
	m.lines[line.ScheduleLineID] = &line
}

func (m *memoryRecognitionRepo) ListDue(_ context.Context, orgID int64, asOf time.Time) ([]DueLine, error) {
	var due []DueLine
	for _, l := range m.lines {
		if l.OrgID == orgID && l.Status == "PLANNED" && !l.ScheduleDate.After(asOf) {
			due = append(due, *l)
		}
	}
	return due, nil
}

func (m *memoryRecognitionRepo) GetLine(_ context.Context, id int64) (DueLine, error) {
	l, ok := m.lines[id]
	if !ok {
		return DueLine{}, sharedrev.ErrScheduleNotFound
	}
	return *l, nil
}

func (m *memoryRecognitionRepo) ListActiveOrgIDs(_ context.Context) ([]int64, error) {
	seen := map[int64]bool{}
	var ids []int64
	for _, l := range m.lines {
		if !seen[l.OrgID] {
			seen[l.OrgID] = true
			ids = append(ids, l.OrgID)
		}
	}
	return ids, nil
}

func (m *memoryRecognitionRepo) PostLine(_ context.Context, line DueLine, actorID int64, at time.Time) (PostedEntry, error) {
	if err := m.postErr[line.ScheduleLineID]; err != nil {
		return PostedEntry{}, err
	}
	stored, ok := m.lines[line.ScheduleLineID]
	if !ok {
		return PostedEntry{}, sharedrev.ErrScheduleNotFound
	}
	if stored.Status != "PLANNED" {
		return PostedEntry{}, sharedrev.ErrAlreadyPosted
	}
	stored.Status = "POSTED"
	m.nextEntryID++
	return PostedEntry{EntryID: m.nextEntryID, Number: fmt.Sprintf("JE-%06d", m.nextEntryID)}, nil
}

type recordingMetrics struct {
	posted, failed int
	runs           int
}

func (r *recordingMetrics) ObserveRecognitionRun(posted, failed int) {
	r.runs++
	r.posted += posted
	r.failed += failed
}

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func int64Ptr(v int64) *int64 { return &v }

func dueLine(t *testing.T, id int64, amount string, scheduleDate time.Time) DueLine {
	t.Helper()
	return DueLine{
		ScheduleLineID:    id,
		ScheduleID:        id,
		ContractLineID:    id,
		ContractID:        1,
		OrgID:             1,
		Currency:          "USD",
		ContractName:      "Platform subscription",
		ScheduleDate:      scheduleDate,
		Amount:            dec(t, amount),
		RevenueAccountID:  int64Ptr(400),
		DeferredAccountID: int64Ptr(240),
	}
}

func newTestService(repo Repository, metrics MetricsPort) *Service {
	svc := NewService(slog.New(slog.NewTextHandler(io.Discard, nil)), repo, nil, metrics)
	svc.WithNow(func() time.Time { return date(2026, time.March, 31) })
	return svc
}

func TestRunPostsDueLinesOnly(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	metrics := &recordingMetrics{}
	svc := newTestService(repo, metrics)
	ctx := context.Background()

	repo.add(dueLine(t, 1, "1000.00", date(2026, time.January, 31)))
	repo.add(dueLine(t, 2, "1000.00", date(2026, time.February, 28)))
	repo.add(dueLine(t, 3, "1000.00", date(2026, time.June, 30)))

	result, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.February, 28), ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, 2, result.LinesProcessed)
	require.Equal(t, 2, result.LinesPosted)
	require.Equal(t, 0, result.LinesFailed)
	require.Equal(t, "2000.00", result.TotalAmount.StringFixed(2))
	require.Equal(t, "PLANNED", repo.lines[3].Status, "future lines untouched")
	require.Equal(t, 2, metrics.posted)
}

func TestRunIsIdempotent(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.add(dueLine(t, 1, "500.00", date(2026, time.January, 31)))

	first, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.March, 1), ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, 1, first.LinesPosted)

	second, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.March, 1), ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, 0, second.LinesProcessed)
	require.Equal(t, 0, second.LinesPosted)
}

func TestRunDryRunPostsNothing(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	metrics := &recordingMetrics{}
	svc := newTestService(repo, metrics)
	ctx := context.Background()

	repo.add(dueLine(t, 1, "750.25", date(2026, time.January, 31)))

	result, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.March, 1), DryRun: true})
	require.NoError(t, err)
	require.Equal(t, 1, result.LinesProcessed)
	require.Equal(t, 0, result.LinesPosted)
	require.Equal(t, OutcomeDue, result.Lines[0].Outcome)
	require.Equal(t, "750.25", result.TotalAmount.StringFixed(2))
	require.Equal(t, "PLANNED", repo.lines[1].Status)
	require.Equal(t, 0, metrics.runs, "dry runs stay out of the counters")
}

func TestRunMissingAccountsFailsLineAndContinues(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	broken := dueLine(t, 1, "100.00", date(2026, time.January, 31))
	broken.RevenueAccountID = nil
	repo.add(broken)
	repo.add(dueLine(t, 2, "200.00", date(2026, time.January, 31)))

	result, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.March, 1), ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, 2, result.LinesProcessed)
	require.Equal(t, 1, result.LinesPosted)
	require.Equal(t, 1, result.LinesFailed)
	require.Equal(t, "PLANNED", repo.lines[1].Status, "failed line stays planned")
	require.Equal(t, "POSTED", repo.lines[2].Status)

	for _, lr := range result.Lines {
		if lr.ScheduleLineID == 1 {
			require.Equal(t, OutcomeFailed, lr.Outcome)
			require.NotEmpty(t, lr.Reason)
		}
	}
}

func TestRunSkipsConcurrentlyPostedLines(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.add(dueLine(t, 1, "100.00", date(2026, time.January, 31)))
	repo.postErr[1] = sharedrev.ErrAlreadyPosted

	result, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.March, 1), ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, 1, result.LinesSkipped)
	require.Equal(t, OutcomeSkipped, result.Lines[0].Outcome)
}

func TestRunCollectsUnexpectedErrors(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.add(dueLine(t, 1, "100.00", date(2026, time.January, 31)))
	repo.add(dueLine(t, 2, "200.00", date(2026, time.January, 31)))
	repo.postErr[1] = errors.New("connection reset")

	result, err := svc.Run(ctx, RunInput{OrgID: 1, AsOf: date(2026, time.March, 1), ActorID: 9})
	require.NoError(t, err, "per-line failures never abort the run")
	require.Equal(t, 1, result.LinesFailed)
	require.Equal(t, 1, result.LinesPosted)
}

func TestPostRecognitionSingleLine(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	repo.add(dueLine(t, 1, "1000.00", date(2026, time.June, 30)))

	// Due date is in the future; manual posting ignores it.
	posted, err := svc.PostRecognition(ctx, 1, 9)
	require.NoError(t, err)
	require.NotZero(t, posted.EntryID)
	require.Equal(t, "POSTED", repo.lines[1].Status)

	_, err = svc.PostRecognition(ctx, 1, 9)
	require.ErrorIs(t, err, sharedrev.ErrAlreadyPosted)
	require.ErrorIs(t, err, internalShared.ErrInvalidStateTransition)
}

func TestPostRecognitionMissingAccounts(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	line := dueLine(t, 1, "100.00", date(2026, time.January, 31))
	line.DeferredAccountID = nil
	repo.add(line)

	_, err := svc.PostRecognition(ctx, 1, 9)
	require.ErrorIs(t, err, sharedrev.ErrMissingAccounts)
	require.ErrorIs(t, err, internalShared.ErrConfiguration)
	require.Equal(t, "PLANNED", repo.lines[1].Status)
}

func TestPostRecognitionCancelledLine(t *testing.T) {
	repo := newMemoryRecognitionRepo()
	svc := newTestService(repo, nil)
	ctx := context.Background()

	line := dueLine(t, 1, "100.00", date(2026, time.January, 31))
	line.Status = "CANCELLED"
	repo.add(line)

	_, err := svc.PostRecognition(ctx, 1, 9)
	require.ErrorIs(t, err, sharedrev.ErrLineNotPlanned)
}
