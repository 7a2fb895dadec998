package recognition

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

// DueLine is the denormalised view the poster works from: a planned
// schedule line joined with its contract line's posting accounts and the
// contract header.
type DueLine struct {
	ScheduleLineID    int64
	ScheduleID        int64
	ContractLineID    int64
	ContractID        int64
	OrgID             int64
	Currency          string
	ContractName      string
	LineDescription   string
	ScheduleDate      time.Time
	Amount            decimal.Decimal
	Status            string
	RevenueAccountID  *int64
	DeferredAccountID *int64
}

type PostedEntry struct {
	EntryID int64
	Number  string
}

// Repository encapsulates DB operations for recognition runs.
type Repository interface {
	ListDue(ctx context.Context, orgID int64, asOf time.Time) ([]DueLine, error)
	GetLine(ctx context.Context, scheduleLineID int64) (DueLine, error)
	PostLine(ctx context.Context, line DueLine, actorID int64, at time.Time) (PostedEntry, error)
	ListActiveOrgIDs(ctx context.Context) ([]int64, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const dueLineQuery = `SELECT sl.id, sl.schedule_id, cl.id, c.id, c.org_id, c.currency, c.name,
cl.description, sl.schedule_date, sl.amount, sl.status, cl.revenue_account_id, cl.deferred_account_id
FROM revenue_schedule_lines sl
JOIN revenue_schedules s ON s.id = sl.schedule_id
JOIN contract_lines cl ON cl.id = s.contract_line_id
JOIN contracts c ON c.id = cl.contract_id`

func scanDueLine(row pgx.Row) (DueLine, error) {
	var d DueLine
	err := row.Scan(&d.ScheduleLineID, &d.ScheduleID, &d.ContractLineID, &d.ContractID, &d.OrgID, &d.Currency,
		&d.ContractName, &d.LineDescription, &d.ScheduleDate, &d.Amount, &d.Status, &d.RevenueAccountID, &d.DeferredAccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return DueLine{}, shared.ErrScheduleNotFound
		}
		return DueLine{}, err
	}
	return d, nil
}

func (r *repository) ListDue(ctx context.Context, orgID int64, asOf time.Time) ([]DueLine, error) {
	rows, err := r.db.Query(ctx, dueLineQuery+`
WHERE c.org_id=$1 AND c.status='ACTIVE' AND sl.status='PLANNED' AND sl.schedule_date<=$2
ORDER BY sl.schedule_date ASC, sl.id ASC`, orgID, asOf)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var due []DueLine
	for rows.Next() {
		d, err := scanDueLine(rows)
		if err != nil {
			return nil, err
		}
		due = append(due, d)
	}
	return due, rows.Err()
}

func (r *repository) GetLine(ctx context.Context, scheduleLineID int64) (DueLine, error) {
	return scanDueLine(r.db.QueryRow(ctx, dueLineQuery+` WHERE sl.id=$1`, scheduleLineID))
}

func (r *repository) ListActiveOrgIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT org_id FROM contracts WHERE status='ACTIVE' ORDER BY org_id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PostLine claims one planned schedule line and writes its journal entry in
// a single transaction. The claim is a status-guarded UPDATE, so two
// concurrent runs cannot both post the same line: the loser sees zero rows
// and gets ErrAlreadyPosted. The journal_sources row is a second, durable
// guard against replays.
func (r *repository) PostLine(ctx context.Context, line DueLine, actorID int64, at time.Time) (PostedEntry, error) {
	var posted PostedEntry
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		cmd, err := tx.Exec(ctx, `UPDATE revenue_schedule_lines SET status='POSTED', posted_at=$2, posted_by=$3, updated_at=NOW()
WHERE id=$1 AND status='PLANNED'`, line.ScheduleLineID, at, actorID)
		if err != nil {
			return err
		}
		if cmd.RowsAffected() == 0 {
			return shared.ErrAlreadyPosted
		}

		// Numbering duplicated from the journals repo; the upsert has to run on
		// this transaction's connection to stay atomic with the claim above.
		var next int64
		err = tx.QueryRow(ctx, `INSERT INTO journal_numbers (org_id, last_number) VALUES ($1, 1)
ON CONFLICT (org_id) DO UPDATE SET last_number = journal_numbers.last_number + 1
RETURNING last_number`, line.OrgID).Scan(&next)
		if err != nil {
			return err
		}
		number := fmt.Sprintf("JE-%06d", next)

		description := fmt.Sprintf("Revenue recognition: %s", line.ContractName)
		if line.LineDescription != "" {
			description += " / " + line.LineDescription
		}
		var entryID int64
		err = tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, number, entry_date, description, source_module, source_ref, status, posted_at, posted_by)
VALUES ($1,$2,$3,$4,'revenue',$5,'POSTED',$6,$7) RETURNING id`,
			line.OrgID, number, line.ScheduleDate, description, line.ScheduleLineID, at, actorID).Scan(&entryID)
		if err != nil {
			return err
		}

		// Debit deferred revenue, credit revenue.
		if _, err := tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, line_no, account_id, debit, credit, description)
VALUES ($1,1,$2,$4,0,$5), ($1,2,$3,0,$4,$5)`,
			entryID, line.DeferredAccountID, line.RevenueAccountID, line.Amount, description); err != nil {
			return err
		}

		if _, err := tx.Exec(ctx, `INSERT INTO journal_sources (module, ref_id, entry_id) VALUES ('revenue',$1,$2)`,
			line.ScheduleLineID, entryID); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_sources" {
				return shared.ErrAlreadyPosted
			}
			return err
		}

		if _, err := tx.Exec(ctx, `UPDATE revenue_schedule_lines SET journal_entry_id=$2 WHERE id=$1`,
			line.ScheduleLineID, entryID); err != nil {
			return err
		}

		// Re-derive the parent schedule status from its lines.
		if _, err := tx.Exec(ctx, `UPDATE revenue_schedules SET status = CASE
WHEN NOT EXISTS (SELECT 1 FROM revenue_schedule_lines WHERE schedule_id=$1 AND status='PLANNED') THEN 'COMPLETED'
ELSE 'IN_PROGRESS' END, updated_at=NOW()
WHERE id=$1 AND status <> 'CANCELLED'`, line.ScheduleID); err != nil {
			return err
		}

		// Completion cascade: a fully recognised schedule completes its
		// contract line, and a contract with no active lines left completes.
		if _, err := tx.Exec(ctx, `UPDATE contract_lines SET status='COMPLETED', updated_at=NOW()
WHERE id=$1 AND status='ACTIVE'
AND EXISTS (SELECT 1 FROM revenue_schedules WHERE contract_line_id=$1 AND status='COMPLETED')`,
			line.ContractLineID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `UPDATE contracts SET status='COMPLETED', updated_at=NOW()
WHERE id=$1 AND status='ACTIVE'
AND NOT EXISTS (SELECT 1 FROM contract_lines WHERE contract_id=$1 AND status='ACTIVE')`,
			line.ContractID); err != nil {
			return err
		}

		posted = PostedEntry{EntryID: entryID, Number: number}
		return nil
	})
	if err != nil {
		return PostedEntry{}, err
	}
	return posted, nil
}
