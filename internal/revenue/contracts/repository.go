package contracts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

// Repository encapsulates DB operations for revenue contracts.
type Repository interface {
	List(ctx context.Context, orgID int64, limit, offset int) ([]Contract, int, error)
	Get(ctx context.Context, contractID int64) (Contract, error)
	Create(ctx context.Context, in CreateContractInput) (Contract, error)
	Update(ctx context.Context, in UpdateContractInput) (Contract, error)
	Delete(ctx context.Context, contractID int64) error
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	GetForUpdate(ctx context.Context, contractID int64) (Contract, error)
	SetLineAllocation(ctx context.Context, lineID int64, amount decimal.Decimal) error
	SetStatus(ctx context.Context, contractID int64, status ContractStatus) error
	SetLineStatuses(ctx context.Context, contractID int64, from, to LineStatus) error
	CancelSchedules(ctx context.Context, contractID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const contractColumns = `id, org_id, customer_id, name, currency, total_price, start_date, end_date, status, created_at, updated_at`

const lineColumns = `id, contract_id, description, product_type, pattern, start_date, end_date, quantity, unit_price, ssp_amount, allocated_price, revenue_account_id, deferred_account_id, status, created_at, updated_at`

func scanContract(row pgx.Row) (Contract, error) {
	var c Contract
	err := row.Scan(&c.ID, &c.OrgID, &c.CustomerID, &c.Name, &c.Currency, &c.TotalPrice,
		&c.StartDate, &c.EndDate, &c.Status, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Contract{}, shared.ErrContractNotFound
		}
		return Contract{}, err
	}
	return c, nil
}

func (r *repository) List(ctx context.Context, orgID int64, limit, offset int) ([]Contract, int, error) {
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM contracts WHERE org_id=$1`, orgID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.db.Query(ctx, `SELECT `+contractColumns+` FROM contracts WHERE org_id=$1 ORDER BY id DESC LIMIT $2 OFFSET $3`,
		orgID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var contracts []Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, 0, err
		}
		contracts = append(contracts, c)
	}
	return contracts, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, contractID int64) (Contract, error) {
	c, err := scanContract(r.db.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id=$1`, contractID))
	if err != nil {
		return Contract{}, err
	}
	lines, err := queryContractLines(ctx, r.db, contractID)
	if err != nil {
		return Contract{}, err
	}
	c.Lines = lines
	return c, nil
}

func (r *repository) Create(ctx context.Context, in CreateContractInput) (Contract, error) {
	var contract Contract
	err := r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		w := tx.(*txRepository)
		row := w.tx.QueryRow(ctx, `INSERT INTO contracts (org_id, customer_id, name, currency, total_price, start_date, end_date, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+contractColumns,
			in.OrgID, in.CustomerID, in.Name, in.Currency, in.TotalPrice, in.StartDate, in.EndDate, ContractStatusDraft)
		inserted, err := scanContract(row)
		if err != nil {
			return err
		}
		lines, err := w.insertLines(ctx, inserted.ID, in.Lines)
		if err != nil {
			return err
		}
		inserted.Lines = lines
		contract = inserted
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	return contract, nil
}

// Update replaces the header and the full line set of a draft contract.
// Replacing lines drops any stale allocation, which is correct: allocation
// only happens at activation and drafts are never allocated.
func (r *repository) Update(ctx context.Context, in UpdateContractInput) (Contract, error) {
	var contract Contract
	err := r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		w := tx.(*txRepository)
		row := w.tx.QueryRow(ctx, `UPDATE contracts SET name=$2, total_price=$3, start_date=$4, end_date=$5, updated_at=NOW()
WHERE id=$1 RETURNING `+contractColumns,
			in.ContractID, in.Name, in.TotalPrice, in.StartDate, in.EndDate)
		updated, err := scanContract(row)
		if err != nil {
			return err
		}
		if _, err := w.tx.Exec(ctx, `DELETE FROM contract_lines WHERE contract_id=$1`, in.ContractID); err != nil {
			return err
		}
		lines, err := w.insertLines(ctx, in.ContractID, in.Lines)
		if err != nil {
			return err
		}
		updated.Lines = lines
		contract = updated
		return nil
	})
	if err != nil {
		return Contract{}, err
	}
	return contract, nil
}

func (r *repository) Delete(ctx context.Context, contractID int64) error {
	return r.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		w := tx.(*txRepository)
		if _, err := w.tx.Exec(ctx, `DELETE FROM contract_lines WHERE contract_id=$1`, contractID); err != nil {
			return err
		}
		cmd, err := w.tx.Exec(ctx, `DELETE FROM contracts WHERE id=$1`, contractID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return shared.ErrContractNotFound
		}
		return nil
	})
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) GetForUpdate(ctx context.Context, contractID int64) (Contract, error) {
	c, err := scanContract(r.tx.QueryRow(ctx, `SELECT `+contractColumns+` FROM contracts WHERE id=$1 FOR UPDATE`, contractID))
	if err != nil {
		return Contract{}, err
	}
	lines, err := queryContractLines(ctx, r.tx, contractID)
	if err != nil {
		return Contract{}, err
	}
	c.Lines = lines
	return c, nil
}

func (r *txRepository) SetLineAllocation(ctx context.Context, lineID int64, amount decimal.Decimal) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE contract_lines SET allocated_price=$2, updated_at=NOW() WHERE id=$1`, lineID, amount)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrLineNotFound
	}
	return nil
}

func (r *txRepository) SetStatus(ctx context.Context, contractID int64, status ContractStatus) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE contracts SET status=$2, updated_at=NOW() WHERE id=$1`, contractID, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrContractNotFound
	}
	return nil
}

func (r *txRepository) SetLineStatuses(ctx context.Context, contractID int64, from, to LineStatus) error {
	_, err := r.tx.Exec(ctx, `UPDATE contract_lines SET status=$3, updated_at=NOW() WHERE contract_id=$1 AND status=$2`,
		contractID, from, to)
	return err
}

// CancelSchedules cancels the contract's schedules and their unposted lines.
// Posted schedule lines keep their status: the journal entries they produced
// stay in the ledger and are voided separately if needed.
func (r *txRepository) CancelSchedules(ctx context.Context, contractID int64) error {
	if _, err := r.tx.Exec(ctx, `UPDATE revenue_schedule_lines SET status='CANCELLED', updated_at=NOW()
WHERE status='PLANNED' AND schedule_id IN (
  SELECT s.id FROM revenue_schedules s
  JOIN contract_lines cl ON cl.id = s.contract_line_id
  WHERE cl.contract_id=$1)`, contractID); err != nil {
		return err
	}
	_, err := r.tx.Exec(ctx, `UPDATE revenue_schedules SET status='CANCELLED', updated_at=NOW()
WHERE contract_line_id IN (SELECT id FROM contract_lines WHERE contract_id=$1)`, contractID)
	return err
}

func (r *txRepository) insertLines(ctx context.Context, contractID int64, lines []LineInput) ([]ContractLine, error) {
	out := make([]ContractLine, 0, len(lines))
	for _, line := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO contract_lines (contract_id, description, product_type, pattern, start_date, end_date, quantity, unit_price, ssp_amount, revenue_account_id, deferred_account_id, status)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) RETURNING `+lineColumns,
			contractID, line.Description, line.ProductType, line.Pattern, line.StartDate, line.EndDate,
			line.Quantity, line.UnitPrice, line.SSPAmount, line.RevenueAccountID, line.DeferredAccountID, LineStatusDraft)
		l, err := scanContractLine(row)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func scanContractLine(row pgx.Row) (ContractLine, error) {
	var l ContractLine
	err := row.Scan(&l.ID, &l.ContractID, &l.Description, &l.ProductType, &l.Pattern, &l.StartDate, &l.EndDate,
		&l.Quantity, &l.UnitPrice, &l.SSPAmount, &l.AllocatedPrice, &l.RevenueAccountID, &l.DeferredAccountID,
		&l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ContractLine{}, shared.ErrLineNotFound
		}
		return ContractLine{}, err
	}
	return l, nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryContractLines(ctx context.Context, q queryer, contractID int64) ([]ContractLine, error) {
	rows, err := q.Query(ctx, `SELECT `+lineColumns+` FROM contract_lines WHERE contract_id=$1 ORDER BY id ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []ContractLine
	for rows.Next() {
		l, err := scanContractLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
