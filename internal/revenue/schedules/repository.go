package schedules

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-fin/meridian-fin/internal/platform/db"
	"github.com/meridian-fin/meridian-fin/internal/revenue/shared"
)

// errScheduleExists reports a concurrent generation for the same contract
// line. The service treats it as success.
var errScheduleExists = errors.New("revenue: schedule already generated for line")

// Repository encapsulates DB operations for recognition schedules.
type Repository interface {
	Get(ctx context.Context, scheduleID int64) (Schedule, error)
	GetByContractLine(ctx context.Context, contractLineID int64) (Schedule, error)
	ListByContract(ctx context.Context, contractID int64) ([]Schedule, error)
	Create(ctx context.Context, schedule Schedule) (Schedule, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

const scheduleColumns = `id, contract_line_id, method, total_amount, status, created_at, updated_at`

const scheduleLineColumns = `id, schedule_id, period_start, period_end, schedule_date, amount, status, journal_entry_id, posted_at, posted_by, created_at, updated_at`

func scanSchedule(row pgx.Row) (Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.ContractLineID, &s.Method, &s.TotalAmount, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Schedule{}, shared.ErrScheduleNotFound
		}
		return Schedule{}, err
	}
	return s, nil
}

func scanScheduleLine(row pgx.Row) (ScheduleLine, error) {
	var l ScheduleLine
	err := row.Scan(&l.ID, &l.ScheduleID, &l.PeriodStart, &l.PeriodEnd, &l.ScheduleDate, &l.Amount,
		&l.Status, &l.JournalEntryID, &l.PostedAt, &l.PostedBy, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ScheduleLine{}, shared.ErrScheduleNotFound
		}
		return ScheduleLine{}, err
	}
	return l, nil
}

func (r *repository) Get(ctx context.Context, scheduleID int64) (Schedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM revenue_schedules WHERE id=$1`, scheduleID))
	if err != nil {
		return Schedule{}, err
	}
	lines, err := r.queryLines(ctx, s.ID)
	if err != nil {
		return Schedule{}, err
	}
	s.Lines = lines
	return s, nil
}

func (r *repository) GetByContractLine(ctx context.Context, contractLineID int64) (Schedule, error) {
	s, err := scanSchedule(r.db.QueryRow(ctx, `SELECT `+scheduleColumns+` FROM revenue_schedules WHERE contract_line_id=$1`, contractLineID))
	if err != nil {
		return Schedule{}, err
	}
	lines, err := r.queryLines(ctx, s.ID)
	if err != nil {
		return Schedule{}, err
	}
	s.Lines = lines
	return s, nil
}

func (r *repository) ListByContract(ctx context.Context, contractID int64) ([]Schedule, error) {
	rows, err := r.db.Query(ctx, `SELECT `+scheduleColumns+` FROM revenue_schedules
WHERE contract_line_id IN (SELECT id FROM contract_lines WHERE contract_id=$1) ORDER BY contract_line_id ASC`, contractID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	for i := range out {
		lines, err := r.queryLines(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Lines = lines
	}
	return out, nil
}

func (r *repository) Create(ctx context.Context, schedule Schedule) (Schedule, error) {
	var inserted Schedule
	err := db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `INSERT INTO revenue_schedules (contract_line_id, method, total_amount, status)
VALUES ($1,$2,$3,$4) RETURNING `+scheduleColumns,
			schedule.ContractLineID, schedule.Method, schedule.TotalAmount, ScheduleStatusPlanned)
		s, err := scanSchedule(row)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.ConstraintName == "uq_revenue_schedules_line" {
				return errScheduleExists
			}
			return err
		}
		for _, line := range schedule.Lines {
			lineRow := tx.QueryRow(ctx, `INSERT INTO revenue_schedule_lines (schedule_id, period_start, period_end, schedule_date, amount, status)
VALUES ($1,$2,$3,$4,$5,$6) RETURNING `+scheduleLineColumns,
				s.ID, line.PeriodStart, line.PeriodEnd, line.ScheduleDate, line.Amount, LineStatusPlanned)
			l, err := scanScheduleLine(lineRow)
			if err != nil {
				return err
			}
			s.Lines = append(s.Lines, l)
		}
		inserted = s
		return nil
	})
	if err != nil {
		return Schedule{}, err
	}
	return inserted, nil
}

func (r *repository) queryLines(ctx context.Context, scheduleID int64) ([]ScheduleLine, error) {
	rows, err := r.db.Query(ctx, `SELECT `+scheduleLineColumns+` FROM revenue_schedule_lines
WHERE schedule_id=$1 ORDER BY schedule_date ASC, id ASC`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []ScheduleLine
	for rows.Next() {
		l, err := scanScheduleLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
