package contracts

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	sharedrev "github.com/meridian-fin/meridian-fin/internal/revenue/shared"
	internalShared "github.com/meridian-fin/meridian-fin/internal/shared"
)

type memoryContractRepo struct {
	nextContractID     int64
	nextLineID         int64
	contracts          map[int64]*Contract
	schedulesCancelled map[int64]bool
}

func newMemoryContractRepo() *memoryContractRepo {
	return &memoryContractRepo{
		contracts:          make(map[int64]*Contract),
		schedulesCancelled: make(map[int64]bool),
	}
}

func (m *memoryContractRepo) List(_ context.Context, orgID int64, limit, offset int) ([]Contract, int, error) {
	var out []Contract
	for _, c := range m.contracts {
		if c.OrgID == orgID {
			out = append(out, *c)
		}
	}
	total := len(out)
	if offset > len(out) {
		offset = len(out)
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, total, nil
}

func (m *memoryContractRepo) Get(_ context.Context, id int64) (Contract, error) {
	c, ok := m.contracts[id]
	if !ok {
		return Contract{}, sharedrev.ErrContractNotFound
	}
	return m.snapshot(c), nil
}

func (m *memoryContractRepo) snapshot(c *Contract) Contract {
	out := *c
	out.Lines = make([]ContractLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

func (m *memoryContractRepo) Create(_ context.Context, in CreateContractInput) (Contract, error) {
	m.nextContractID++
	c := &Contract{
		ID:         m.nextContractID,
		OrgID:      in.OrgID,
		CustomerID: in.CustomerID,
		Name:       in.Name,
		Currency:   in.Currency,
		TotalPrice: in.TotalPrice,
		StartDate:  in.StartDate,
		EndDate:    in.EndDate,
		Status:     ContractStatusDraft,
	}
	for _, li := range in.Lines {
		m.nextLineID++
		c.Lines = append(c.Lines, ContractLine{
			ID:                m.nextLineID,
			ContractID:        c.ID,
			Description:       li.Description,
			Pattern:           li.Pattern,
			StartDate:         li.StartDate,
			EndDate:           li.EndDate,
			Quantity:          li.Quantity,
			UnitPrice:         li.UnitPrice,
			SSPAmount:         li.SSPAmount,
			RevenueAccountID:  li.RevenueAccountID,
			DeferredAccountID: li.DeferredAccountID,
			Status:            LineStatusDraft,
		})
	}
	m.contracts[c.ID] = c
	return m.snapshot(c), nil
}

func (m *memoryContractRepo) Update(_ context.Context, in UpdateContractInput) (Contract, error) {
	c, ok := m.contracts[in.ContractID]
	if !ok {
		return Contract{}, sharedrev.ErrContractNotFound
	}
	c.Name = in.Name
	c.TotalPrice = in.TotalPrice
	c.StartDate = in.StartDate
	c.EndDate = in.EndDate
	c.Lines = nil
	for _, li := range in.Lines {
		m.nextLineID++
		c.Lines = append(c.Lines, ContractLine{
			ID:         m.nextLineID,
			ContractID: c.ID,
			Pattern:    li.Pattern,
			StartDate:  li.StartDate,
			EndDate:    li.EndDate,
			SSPAmount:  li.SSPAmount,
			Status:     LineStatusDraft,
		})
	}
	return m.snapshot(c), nil
}

func (m *memoryContractRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.contracts[id]; !ok {
		return sharedrev.ErrContractNotFound
	}
	delete(m.contracts, id)
	return nil
}

func (m *memoryContractRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, m)
}

func (m *memoryContractRepo) GetForUpdate(ctx context.Context, id int64) (Contract, error) {
	return m.Get(ctx, id)
}

func (m *memoryContractRepo) SetLineAllocation(_ context.Context, lineID int64, amount decimal.Decimal) error {
	for _, c := range m.contracts {
		for i := range c.Lines {
			if c.Lines[i].ID == lineID {
				a := amount
				c.Lines[i].AllocatedPrice = &a
				return nil
			}
		}
	}
	return sharedrev.ErrLineNotFound
}

func (m *memoryContractRepo) SetStatus(_ context.Context, id int64, status ContractStatus) error {
	c, ok := m.contracts[id]
	if !ok {
		return sharedrev.ErrContractNotFound
	}
	c.Status = status
	return nil
}

func (m *memoryContractRepo) SetLineStatuses(_ context.Context, id int64, from, to LineStatus) error {
	c, ok := m.contracts[id]
	if !ok {
		return sharedrev.ErrContractNotFound
	}
	for i := range c.Lines {
		if c.Lines[i].Status == from {
			c.Lines[i].Status = to
		}
	}
	return nil
}

func (m *memoryContractRepo) CancelSchedules(_ context.Context, id int64) error {
	m.schedulesCancelled[id] = true
	return nil
}

type stubGenerator struct {
	lineIDs []int64
	err     error
}

func (g *stubGenerator) GenerateForContractLine(_ context.Context, line ContractLine, _ time.Time, _ *time.Time) error {
	if g.err != nil {
		return g.err
	}
	g.lineIDs = append(g.lineIDs, line.ID)
	return nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func draftInput(t *testing.T) CreateContractInput {
	t.Helper()
	start := date(2026, time.January, 1)
	return CreateContractInput{
		OrgID:      1,
		CustomerID: 7,
		Name:       "Platform subscription",
		Currency:   "USD",
		TotalPrice: dec(t, "50000"),
		StartDate:  start,
		Lines: []LineInput{
			{Description: "License", Pattern: PatternPointInTime, SSPAmount: dec(t, "28000")},
			{Description: "Support", Pattern: PatternStraightLine, SSPAmount: dec(t, "15000"), StartDate: &start},
			{Description: "Training", Pattern: PatternPointInTime, SSPAmount: dec(t, "12000")},
		},
	}
}

func newTestService(t *testing.T) (*Service, *memoryContractRepo, *stubGenerator) {
	t.Helper()
	repo := newMemoryContractRepo()
	gen := &stubGenerator{}
	svc := NewService(repo, gen, nil)
	svc.WithNow(func() time.Time { return date(2026, time.March, 1) })
	return svc, repo, gen
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	in := draftInput(t)
	in.TotalPrice = decimal.Zero
	_, err := svc.Create(ctx, in)
	require.ErrorIs(t, err, internalShared.ErrValidation)

	in = draftInput(t)
	in.Lines[0].Pattern = "WEEKLY"
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, internalShared.ErrValidation)

	in = draftInput(t)
	in.Lines[1].StartDate = nil
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, internalShared.ErrValidation)

	in = draftInput(t)
	end := in.StartDate.AddDate(0, -1, 0)
	in.EndDate = &end
	_, err = svc.Create(ctx, in)
	require.ErrorIs(t, err, internalShared.ErrValidation)
}

func TestActivateAllocatesAndGeneratesSchedules(t *testing.T) {
	svc, _, gen := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	require.Equal(t, ContractStatusDraft, created.Status)

	activated, err := svc.Activate(ctx, created.ID, 42)
	require.NoError(t, err)
	require.Equal(t, ContractStatusActive, activated.Status)
	require.Equal(t, "25454.55", activated.Lines[0].AllocatedPrice.StringFixed(2))
	require.Equal(t, "13636.36", activated.Lines[1].AllocatedPrice.StringFixed(2))
	require.Equal(t, "10909.09", activated.Lines[2].AllocatedPrice.StringFixed(2))
	for _, line := range activated.Lines {
		require.Equal(t, LineStatusActive, line.Status)
	}
	require.Len(t, gen.lineIDs, 3, "one schedule per line")
}

func TestActivateNonDraftFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, created.ID, 42)
	require.NoError(t, err)

	_, err = svc.Activate(ctx, created.ID, 42)
	require.ErrorIs(t, err, sharedrev.ErrInvalidStatus)
	require.ErrorIs(t, err, internalShared.ErrInvalidStateTransition)
}

func TestActivateFailedAllocationLeavesDraft(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	// Force an invalid total behind the service's back to exercise the
	// allocation guard.
	repo.contracts[created.ID].TotalPrice = decimal.Zero

	_, err = svc.Activate(ctx, created.ID, 42)
	require.ErrorIs(t, err, sharedrev.ErrNonPositiveTotal)

	stored, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, ContractStatusDraft, stored.Status)
	for _, line := range stored.Lines {
		require.Nil(t, line.AllocatedPrice)
	}
}

func TestCancelActiveCancelsSchedules(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, created.ID, 42)
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, created.ID, 42)
	require.NoError(t, err)
	require.Equal(t, ContractStatusCancelled, cancelled.Status)
	require.True(t, repo.schedulesCancelled[created.ID])
	for _, line := range cancelled.Lines {
		require.Equal(t, LineStatusCancelled, line.Status)
	}
}

func TestCancelDraftFails(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)

	_, err = svc.Cancel(ctx, created.ID, 42)
	require.ErrorIs(t, err, sharedrev.ErrInvalidStatus)
}

func TestCompleteActiveKeepsSchedules(t *testing.T) {
	svc, repo, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, created.ID, 42)
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, created.ID, 42)
	require.NoError(t, err)
	require.Equal(t, ContractStatusCompleted, completed.Status)
	require.False(t, repo.schedulesCancelled[created.ID], "completion must not cancel schedules")
}

func TestDeleteDraftOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, created.ID))

	created, err = svc.Create(ctx, draftInput(t))
	require.NoError(t, err)
	_, err = svc.Activate(ctx, created.ID, 42)
	require.NoError(t, err)
	err = svc.Delete(ctx, created.ID)
	require.ErrorIs(t, err, sharedrev.ErrInvalidStatus)
}

func TestUpdateDraftOnly(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, draftInput(t))
	require.NoError(t, err)

	updated, err := svc.UpdateDraft(ctx, UpdateContractInput{
		ContractID: created.ID,
		Name:       "Platform subscription v2",
		TotalPrice: dec(t, "60000"),
		StartDate:  created.StartDate,
		Lines: []LineInput{
			{Pattern: PatternPointInTime, SSPAmount: dec(t, "60000")},
		},
	})
	require.NoError(t, err)
	require.Equal(t, "Platform subscription v2", updated.Name)
	require.Len(t, updated.Lines, 1)

	_, err = svc.Activate(ctx, created.ID, 42)
	require.NoError(t, err)
	_, err = svc.UpdateDraft(ctx, UpdateContractInput{
		ContractID: created.ID,
		Name:       "nope",
		TotalPrice: dec(t, "1"),
		StartDate:  created.StartDate,
	})
	require.ErrorIs(t, err, sharedrev.ErrInvalidStatus)
}
