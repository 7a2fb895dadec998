package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
)

type Repository interface {
	List(ctx context.Context, orgID int64) ([]Account, error)
	Get(ctx context.Context, id int64) (Account, error)
	Insert(ctx context.Context, a Account) (Account, error)
	Update(ctx context.Context, a Account) (Account, error)
	Delete(ctx context.Context, id int64) error
	CountReferences(ctx context.Context, id int64) (int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const accountColumns = `id, org_id, code, name, type, is_active, is_system, created_at, updated_at`

func scanAccount(row pgx.Row) (Account, error) {
	var a Account
	err := row.Scan(&a.ID, &a.OrgID, &a.Code, &a.Name, &a.Type, &a.IsActive, &a.IsSystem, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, shared.ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

func (r *repository) List(ctx context.Context, orgID int64) ([]Account, error) {
	rows, err := r.db.Query(ctx, `SELECT `+accountColumns+` FROM accounts WHERE org_id=$1 ORDER BY code`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var accounts []Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id=$1`, id)
	return scanAccount(row)
}

func (r *repository) Insert(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `INSERT INTO accounts (org_id, code, name, type, is_active, is_system)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+accountColumns, a.OrgID, a.Code, a.Name, a.Type, a.IsActive, a.IsSystem)
	inserted, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_org_code" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return inserted, nil
}

func (r *repository) Update(ctx context.Context, a Account) (Account, error) {
	row := r.db.QueryRow(ctx, `UPDATE accounts SET code=$2, name=$3, type=$4, is_active=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+accountColumns, a.ID, a.Code, a.Name, a.Type, a.IsActive)
	updated, err := scanAccount(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_accounts_org_code" {
			return Account{}, shared.ErrDuplicateCode
		}
		return Account{}, err
	}
	return updated, nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM accounts WHERE id=$1`, id)
	if err != nil {
		var pgErr *pgconn.PgError
		// foreign_key_violation: still referenced by journal or contract lines
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return shared.ErrAccountInUse
		}
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrAccountNotFound
	}
	return nil
}

func (r *repository) CountReferences(ctx context.Context, id int64) (int64, error) {
	var journalRefs, contractRefs int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM journal_lines WHERE account_id=$1`, id).Scan(&journalRefs); err != nil {
		return 0, err
	}
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contract_lines WHERE revenue_account_id=$1 OR deferred_account_id=$1`, id).Scan(&contractRefs); err != nil {
		return 0, err
	}
	return journalRefs + contractRefs, nil
}
