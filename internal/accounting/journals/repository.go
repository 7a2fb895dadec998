package journals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-fin/meridian-fin/internal/accounting/shared"
	"github.com/meridian-fin/meridian-fin/internal/platform/db"
)

// Repository encapsulates DB operations for journal entries.
type Repository interface {
	List(ctx context.Context, orgID int64, status EntryStatus) ([]JournalEntry, error)
	Get(ctx context.Context, entryID int64) (JournalEntry, error)
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
}

// TxRepository exposes methods available within a transaction.
type TxRepository interface {
	NextEntryNumber(ctx context.Context, orgID int64) (string, error)
	InsertEntry(ctx context.Context, in CreateEntryInput, number string, status EntryStatus, postedAt *time.Time, postedBy *int64) (JournalEntry, error)
	InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error)
	GetEntryForUpdate(ctx context.Context, entryID int64) (JournalEntry, error)
	GetLines(ctx context.Context, entryID int64) ([]JournalLine, error)
	MarkPosted(ctx context.Context, entryID int64, at time.Time, by int64) error
	MarkVoided(ctx context.Context, entryID int64, at time.Time, by int64, reason string) error
	DeleteEntry(ctx context.Context, entryID int64) error
	LinkSource(ctx context.Context, module string, refID int64, entryID int64) error
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const entryColumns = `id, org_id, number, entry_date, description, source_module, source_ref, status, posted_at, posted_by, voided_at, voided_by, void_reason, created_at, updated_at`

func scanEntry(row pgx.Row) (JournalEntry, error) {
	var e JournalEntry
	err := row.Scan(&e.ID, &e.OrgID, &e.Number, &e.EntryDate, &e.Description, &e.SourceModule, &e.SourceRef,
		&e.Status, &e.PostedAt, &e.PostedBy, &e.VoidedAt, &e.VoidedBy, &e.VoidReason, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, shared.ErrJournalNotFound
		}
		return JournalEntry{}, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, orgID int64, status EntryStatus) ([]JournalEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM journal_entries WHERE org_id=$1`
	args := []any{orgID}
	if status != "" {
		query += ` AND status=$2`
		args = append(args, status)
	}
	query += ` ORDER BY number DESC`
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *repository) Get(ctx context.Context, entryID int64) (JournalEntry, error) {
	entry, err := scanEntry(r.db.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1`, entryID))
	if err != nil {
		return JournalEntry{}, err
	}
	lines, err := queryLines(ctx, r.db, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

type txRepository struct {
	tx pgx.Tx
}

// NextEntryNumber increments the per-organization counter and formats it as
// JE-000001. The counter row is upserted under the tx lock so numbers are
// never reused even when the entry is later deleted.
func (r *txRepository) NextEntryNumber(ctx context.Context, orgID int64) (string, error) {
	var next int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_numbers (org_id, last_number) VALUES ($1, 1)
ON CONFLICT (org_id) DO UPDATE SET last_number = journal_numbers.last_number + 1
RETURNING last_number`, orgID).Scan(&next)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JE-%06d", next), nil
}

func (r *txRepository) InsertEntry(ctx context.Context, in CreateEntryInput, number string, status EntryStatus, postedAt *time.Time, postedBy *int64) (JournalEntry, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries (org_id, number, entry_date, description, source_module, source_ref, status, posted_at, posted_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9) RETURNING `+entryColumns,
		in.OrgID, number, in.EntryDate, in.Description, in.SourceModule, in.SourceRef, status, postedAt, postedBy)
	return scanEntry(row)
}

func (r *txRepository) InsertLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	out := make([]JournalLine, 0, len(lines))
	for idx, line := range lines {
		row := r.tx.QueryRow(ctx, `INSERT INTO journal_lines (entry_id, line_no, account_id, debit, credit, description, dim_department, dim_project, dim_class, dim_location)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
RETURNING id, entry_id, line_no, account_id, debit, credit, description, dim_department, dim_project, dim_class, dim_location, created_at, updated_at`,
			entryID, idx+1, line.AccountID, line.Debit, line.Credit, line.Description, line.Department, line.Project, line.Class, line.Location)
		var l JournalLine
		if err := row.Scan(&l.ID, &l.EntryID, &l.LineNo, &l.AccountID, &l.Debit, &l.Credit, &l.Description,
			&l.Department, &l.Project, &l.Class, &l.Location, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, nil
}

func (r *txRepository) ReplaceLines(ctx context.Context, entryID int64, lines []LineInput) ([]JournalLine, error) {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return nil, err
	}
	return r.InsertLines(ctx, entryID, lines)
}

func (r *txRepository) GetEntryForUpdate(ctx context.Context, entryID int64) (JournalEntry, error) {
	return scanEntry(r.tx.QueryRow(ctx, `SELECT `+entryColumns+` FROM journal_entries WHERE id=$1 FOR UPDATE`, entryID))
}

func (r *txRepository) GetLines(ctx context.Context, entryID int64) ([]JournalLine, error) {
	return queryLines(ctx, r.tx, entryID)
}

func (r *txRepository) MarkPosted(ctx context.Context, entryID int64, at time.Time, by int64) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, posted_at=$3, posted_by=$4, updated_at=NOW() WHERE id=$1`,
		entryID, EntryStatusPosted, at, by)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) MarkVoided(ctx context.Context, entryID int64, at time.Time, by int64, reason string) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE journal_entries SET status=$2, voided_at=$3, voided_by=$4, void_reason=$5, updated_at=NOW() WHERE id=$1`,
		entryID, EntryStatusVoided, at, by, reason)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) DeleteEntry(ctx context.Context, entryID int64) error {
	if _, err := r.tx.Exec(ctx, `DELETE FROM journal_lines WHERE entry_id=$1`, entryID); err != nil {
		return err
	}
	cmd, err := r.tx.Exec(ctx, `DELETE FROM journal_entries WHERE id=$1`, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return shared.ErrJournalNotFound
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, module string, refID int64, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO journal_sources (module, ref_id, entry_id) VALUES ($1,$2,$3)`, module, refID, entryID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_journal_sources" {
			return shared.ErrSourceConflict
		}
		return err
	}
	return nil
}

type queryer interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

func queryLines(ctx context.Context, q queryer, entryID int64) ([]JournalLine, error) {
	rows, err := q.Query(ctx, `SELECT id, entry_id, line_no, account_id, debit, credit, description, dim_department, dim_project, dim_class, dim_location, created_at, updated_at
FROM journal_lines WHERE entry_id=$1 ORDER BY line_no ASC`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var l JournalLine
		if err := rows.Scan(&l.ID, &l.EntryID, &l.LineNo, &l.AccountID, &l.Debit, &l.Credit, &l.Description,
			&l.Department, &l.Project, &l.Class, &l.Location, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
