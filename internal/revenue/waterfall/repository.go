package waterfall

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository aggregates schedule lines into monthly buckets.
type Repository interface {
	MonthlyBuckets(ctx context.Context, orgID int64, from, to time.Time) ([]BucketRow, error)
}

type repository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) MonthlyBuckets(ctx context.Context, orgID int64, from, to time.Time) ([]BucketRow, error) {
	rows, err := r.db.Query(ctx, `SELECT date_trunc('month', sl.schedule_date)::date AS month, sl.status, COALESCE(SUM(sl.amount), 0)
FROM revenue_schedule_lines sl
JOIN revenue_schedules s ON s.id = sl.schedule_id
JOIN contract_lines cl ON cl.id = s.contract_line_id
JOIN contracts c ON c.id = cl.contract_id
WHERE c.org_id=$1 AND sl.status <> 'CANCELLED' AND sl.schedule_date >= $2 AND sl.schedule_date <= $3
GROUP BY 1, 2
ORDER BY 1 ASC`, orgID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var buckets []BucketRow
	for rows.Next() {
		var b BucketRow
		if err := rows.Scan(&b.Month, &b.Status, &b.Amount); err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}
