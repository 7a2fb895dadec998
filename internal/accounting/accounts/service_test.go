package accounts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
)

type memoryAccountRepo struct {
	accounts map[int64]*Account
	refs     map[int64]int64
	nextID   int64
}

func newMemoryAccountRepo() *memoryAccountRepo {
	return &memoryAccountRepo{accounts: make(map[int64]*Account), refs: make(map[int64]int64)}
}

func (r *memoryAccountRepo) List(ctx context.Context, orgID int64) ([]Account, error) {
	var out []Account
	for _, a := range r.accounts {
		if a.OrgID == orgID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (r *memoryAccountRepo) Get(ctx context.Context, id int64) (Account, error) {
	a, ok := r.accounts[id]
	if !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	return *a, nil
}

func (r *memoryAccountRepo) Insert(ctx context.Context, a Account) (Account, error) {
	for _, existing := range r.accounts {
		if existing.OrgID == a.OrgID && existing.Code == a.Code {
			return Account{}, shared.ErrDuplicateCode
		}
	}
	r.nextID++
	a.ID = r.nextID
	r.accounts[a.ID] = &a
	return a, nil
}

func (r *memoryAccountRepo) Update(ctx context.Context, a Account) (Account, error) {
	if _, ok := r.accounts[a.ID]; !ok {
		return Account{}, shared.ErrAccountNotFound
	}
	r.accounts[a.ID] = &a
	return a, nil
}

func (r *memoryAccountRepo) Delete(ctx context.Context, id int64) error {
	if _, ok := r.accounts[id]; !ok {
		return shared.ErrAccountNotFound
	}
	delete(r.accounts, id)
	return nil
}

func (r *memoryAccountRepo) CountReferences(ctx context.Context, id int64) (int64, error) {
	return r.refs[id], nil
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryAccountRepo())

	account, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "4000", Name: "Revenue", Type: AccountTypeRevenue})
	require.NoError(t, err)
	require.Equal(t, "4000", account.Code)
	require.True(t, account.IsActive)
	require.False(t, account.IsSystem)
}

func TestCreateAccountRejectsBadType(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryAccountRepo())

	_, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "4000", Name: "Revenue", Type: "CONTRA"})
	require.ErrorIs(t, err, shared.ErrInvalidAccount)
}

func TestCreateAccountDuplicateCode(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryAccountRepo())

	_, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "4000", Name: "Revenue", Type: AccountTypeRevenue})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{OrgID: 1, Code: "4000", Name: "Other", Type: AccountTypeRevenue})
	require.ErrorIs(t, err, shared.ErrDuplicateCode)
}

func TestUpdateSystemAccountCannotBeRetyped(t *testing.T) {
	ctx := context.Background()
	svc := NewService(newMemoryAccountRepo())

	account, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "2400", Name: "Deferred Revenue", Type: AccountTypeLiability, IsSystem: true})
	require.NoError(t, err)

	_, err = svc.Update(ctx, UpdateInput{ID: account.ID, Code: "2400", Name: "Deferred Revenue", Type: AccountTypeRevenue, IsActive: true})
	require.ErrorIs(t, err, shared.ErrSystemAccount)

	// Renaming without a type change is fine.
	updated, err := svc.Update(ctx, UpdateInput{ID: account.ID, Code: "2400", Name: "Unearned Revenue", Type: AccountTypeLiability, IsActive: true})
	require.NoError(t, err)
	require.Equal(t, "Unearned Revenue", updated.Name)
}

func TestDeleteAccountGuards(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryAccountRepo()
	svc := NewService(repo)

	system, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "1000", Name: "Cash", Type: AccountTypeAsset, IsSystem: true})
	require.NoError(t, err)
	require.ErrorIs(t, svc.Delete(ctx, system.ID), shared.ErrSystemAccount)

	used, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "4000", Name: "Revenue", Type: AccountTypeRevenue})
	require.NoError(t, err)
	repo.refs[used.ID] = 3
	require.ErrorIs(t, svc.Delete(ctx, used.ID), shared.ErrAccountInUse)

	free, err := svc.Create(ctx, CreateInput{OrgID: 1, Code: "5000", Name: "Expense", Type: AccountTypeExpense})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, free.ID))
	_, err = svc.Get(ctx, free.ID)
	require.ErrorIs(t, err, shared.ErrAccountNotFound)
}
