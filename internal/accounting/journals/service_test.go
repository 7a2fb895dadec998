package journals

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type memoryJournalRepo struct {
	entries map[int64]*JournalEntry
	lines   map[int64][]JournalLine
	sources map[string]int64
	numbers map[int64]int64
	nextID  int64
	lineID  int64
}

func newMemoryJournalRepo() *memoryJournalRepo {
	return &memoryJournalRepo{
		entries: make(map[int64]*JournalEntry),
		lines:   make(map[int64][]JournalLine),
		sources: make(map[string]int64),
		numbers: make(map[int64]int64),
	}
}

func (r *memoryJournalRepo) List(ctx context.Context, orgID int64, status EntryStatus) ([]JournalEntry, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if e.OrgID != orgID {
			continue
		}
		if status != "" && e.Status != status {
			continue
		}
		out = append(out, *e)
	}
	return out, nil
}

func (r *memoryJournalRepo) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	out := *e
	out.Lines = r.lines[entryID]
	return out, nil
}

func (r *memoryJournalRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, r)
}

func (r *memoryJournalRepo) NextEntryNumber(ctx context.Context, orgID int64) (string, error) {
	r.numbers[orgID]++
	return fmt.Sprintf("JE-%06d", r.numbers[orgID]), nil
}

func (r *memoryJournalRepo) InsertEntry(ctx context.Context, in CreateEntryInput, number string, status EntryStatus, postedAt *time.Time, postedBy *int64) (JournalEntry, error) {
	r.nextID++
	e := JournalEntry{
		ID:           r.nextID,
		OrgID:        in.OrgID,
		Number:       number,
		EntryDate:    in.EntryDate,
		Description:  in.Description,
		SourceModule: in.SourceModule,
		SourceRef:    in.SourceRef,
		Status:       status,
		PostedAt:     postedAt,
		PostedBy:     postedBy,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	r.entries[e.ID] = &e
	return e, nil
}

func (r *memoryJournalRepo) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	var out []JournalLine
	for idx, line := range lines {
		r.lineID++
		l := JournalLine{
			ID:          r.lineID,
			EntryID:     entryID,
			LineNo:      idx + 1,
			AccountID:   line.AccountID,
			Debit:       line.Debit,
			Credit:      line.Credit,
			Description: line.Description,
			Department:  line.Department,
			Project:     line.Project,
			Class:       line.Class,
			Location:    line.Location,
		}
		out = append(out, l)
	}
	r.lines[entryID] = out
	return out, nil
}

func (r *memoryJournalRepo) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	delete(r.lines, entryID)
	return r.InsertLines(ctx, entryID, lines)
}

func (r *memoryJournalRepo) GetEntryForUpdate(ctx context.Context, entryID int64) (JournalEntry, error) {
	e, ok := r.entries[entryID]
	if !ok {
		return JournalEntry{}, shared.ErrJournalNotFound
	}
	return *e, nil
}

func (r *memoryJournalRepo) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return r.lines[entryID], nil
}

func (r *memoryJournalRepo) MarkPosted(ctx context.Context, entryID int64, at time.Time, by int64) error {
	e, ok := r.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	e.Status = EntryStatusPosted
	e.PostedAt = &at
	e.PostedBy = &by
	return nil
}

func (r *memoryJournalRepo) MarkVoided(ctx context.Context, entryID int64, at time.Time, by int64, reason string) error {
	e, ok := r.entries[entryID]
	if !ok {
		return shared.ErrJournalNotFound
	}
	e.Status = EntryStatusVoided
	e.VoidedAt = &at
	e.VoidedBy = &by
	e.VoidReason = reason
	return nil
}

func (r *memoryJournalRepo) DeleteEntry(ctx context.Context, entryID int64) error {
	if _, ok := r.entries[entryID]; !ok {
		return shared.ErrJournalNotFound
	}
	delete(r.entries, entryID)
	delete(r.lines, entryID)
	return nil
}

func (r *memoryJournalRepo) LinkSource(ctx context.Context, module string, refID int64, entryID int64) error {
	key := fmt.Sprintf("%s:%d", module, refID)
	if _, ok := r.sources[key]; ok {
		return shared.ErrSourceConflict
	}
	r.sources[key] = entryID
	return nil
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func balancedLines() []LineInput {
	return []LineInput{
		{AccountID: 10, Debit: dec("250.00")},
		{AccountID: 20, Credit: dec("250.00")},
	}
}

func newDraft(t *testing.T, svc *Service, lines []LineInput) JournalEntry {
	t.Helper()
	entry, err := svc.CreateDraft(context.Background(), CreateEntryInput{
		OrgID:       1,
		EntryDate:   time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC),
		Description: "manual entry",
		CreatedBy:   7,
		Lines:       lines,
	})
	require.NoError(t, err)
	return entry
}

func TestCreateDraftAssignsSequentialNumbers(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	first := newDraft(t, svc, balancedLines())
	second := newDraft(t, svc, balancedLines())

	require.Equal(t, "JE-000001", first.Number)
	require.Equal(t, "JE-000002", second.Number)
	require.Equal(t, EntryStatusDraft, first.Status)
	require.Equal(t, 1, first.Lines[0].LineNo)
	require.Equal(t, 2, first.Lines[1].LineNo)
}

func TestCreateDraftAllowsUnbalancedLines(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, []LineInput{{AccountID: 10, Debit: dec("100.00")}})
	require.Equal(t, EntryStatusDraft, entry.Status)
}

func TestCreateDraftRejectsNegativeAmounts(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	_, err := svc.CreateDraft(context.Background(), CreateEntryInput{
		OrgID:     1,
		EntryDate: time.Now(),
		Lines:     []LineInput{{AccountID: 10, Debit: dec("-5.00")}},
	})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestCreateDraftRejectsDebitAndCredit(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	_, err := svc.CreateDraft(context.Background(), CreateEntryInput{
		OrgID:     1,
		EntryDate: time.Now(),
		Lines:     []LineInput{{AccountID: 10, Debit: dec("5.00"), Credit: dec("5.00")}},
	})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestPostBalancedEntry(t *testing.T) {
	repo := newMemoryJournalRepo()
	svc := NewService(repo, nil)
	fixed := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	svc.WithNow(func() time.Time { return fixed })

	entry := newDraft(t, svc, balancedLines())

	posted, err := svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 9})
	require.NoError(t, err)
	require.Equal(t, EntryStatusPosted, posted.Status)
	require.Equal(t, fixed, *posted.PostedAt)
	require.Equal(t, int64(9), *posted.PostedBy)
}

func TestPostUnbalancedEntryFails(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, []LineInput{
		{AccountID: 10, Debit: dec("100.00")},
		{AccountID: 20, Credit: dec("99.99")},
	})

	_, err := svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 9})
	require.ErrorIs(t, err, shared.ErrUnbalanced)
	require.ErrorIs(t, err, internalShared.ErrUnbalancedEntry)
}

func TestPostRequiresTwoLines(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, []LineInput{{AccountID: 10, Debit: dec("0.00")}})

	_, err := svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 9})
	require.ErrorIs(t, err, shared.ErrTooFewLines)
}

func TestPostTwiceFails(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, balancedLines())
	_, err := svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 9})
	require.NoError(t, err)

	_, err = svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 9})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
	require.ErrorIs(t, err, internalShared.ErrInvalidStateTransition)
}

func TestVoidPostedEntry(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, balancedLines())
	_, err := svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 9})
	require.NoError(t, err)

	voided, err := svc.Void(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 3, Reason: "duplicate booking"})
	require.NoError(t, err)
	require.Equal(t, EntryStatusVoided, voided.Status)
	require.Equal(t, "duplicate booking", voided.VoidReason)
	require.NotNil(t, voided.VoidedAt)
}

func TestVoidDraftFails(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, balancedLines())
	_, err := svc.Void(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 3, Reason: "nope"})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}

func TestVoidRequiresReason(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, balancedLines())
	_, err := svc.Void(context.Background(), VoidInput{EntryID: entry.ID, ActorID: 3})
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestDeleteDraftOnly(t *testing.T) {
	repo := newMemoryJournalRepo()
	svc := NewService(repo, nil)

	draft := newDraft(t, svc, balancedLines())
	require.NoError(t, svc.Delete(context.Background(), draft.ID))
	_, err := svc.Get(context.Background(), draft.ID)
	require.ErrorIs(t, err, shared.ErrJournalNotFound)

	posted := newDraft(t, svc, balancedLines())
	_, err = svc.Post(context.Background(), PostInput{EntryID: posted.ID, ActorID: 1})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(context.Background(), posted.ID), shared.ErrInvalidStatus)
}

func TestNumbersNotReusedAfterDelete(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	first := newDraft(t, svc, balancedLines())
	require.NoError(t, svc.Delete(context.Background(), first.ID))

	second := newDraft(t, svc, balancedLines())
	require.Equal(t, "JE-000002", second.Number)
}

func TestUpdateDraftReplacesLines(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, balancedLines())
	updated, err := svc.UpdateDraft(context.Background(), UpdateEntryInput{
		EntryID:     entry.ID,
		Description: "corrected",
		Lines: []LineInput{
			{AccountID: 10, Debit: dec("300.00")},
			{AccountID: 20, Credit: dec("300.00")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "corrected", updated.Description)
	require.True(t, dec("300.00").Equal(updated.Lines[0].Debit))
}

func TestUpdatePostedEntryFails(t *testing.T) {
	svc := NewService(newMemoryJournalRepo(), nil)

	entry := newDraft(t, svc, balancedLines())
	_, err := svc.Post(context.Background(), PostInput{EntryID: entry.ID, ActorID: 1})
	require.NoError(t, err)

	_, err = svc.UpdateDraft(context.Background(), UpdateEntryInput{EntryID: entry.ID, Lines: balancedLines()})
	require.ErrorIs(t, err, shared.ErrInvalidStatus)
}
