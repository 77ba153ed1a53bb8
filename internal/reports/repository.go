package reports

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository computes report aggregates straight from the ledger tables.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) DailyCollections(ctx context.Context, from, to time.Time) ([]DailyCollection, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT transaction_date::date AS day, payment_mode, SUM(amount_paid), COUNT(*)
		 FROM fee_transactions
		 WHERE transaction_date >= $1 AND transaction_date < $2
		 GROUP BY day, payment_mode
		 ORDER BY day`,
		from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	byDay := make(map[string]*DailyCollection)
	var order []string
	for rows.Next() {
		var (
			day    time.Time
			mode   string
			amount float64
			count  int64
		)
		if err := rows.Scan(&day, &mode, &amount, &count); err != nil {
			return nil, err
		}
		key := day.Format("2006-01-02")
		dc, ok := byDay[key]
		if !ok {
			dc = &DailyCollection{Date: key, ByMode: make(map[string]float64)}
			byDay[key] = dc
			order = append(order, key)
		}
		dc.TotalAmount += amount
		dc.Count += count
		dc.ByMode[mode] += amount
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]DailyCollection, 0, len(order))
	for _, key := range order {
		out = append(out, *byDay[key])
	}
	return out, nil
}

func (r *Repository) OutstandingByClass(ctx context.Context, academicYear string) ([]ClassOutstanding, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT c.id, c.name || CASE WHEN c.section <> '' THEN ' ' || c.section ELSE '' END,
		        COUNT(fa.id), COALESCE(SUM(fa.total_fee), 0), COALESCE(SUM(fa.total_paid), 0), COALESCE(SUM(fa.balance), 0)
		 FROM classes c
		 JOIN students s ON s.class_id = c.id
		 JOIN fee_accounts fa ON fa.student_id = s.id AND fa.academic_year = $1
		 GROUP BY c.id, c.name, c.section
		 ORDER BY c.name, c.section`,
		academicYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ClassOutstanding
	for rows.Next() {
		var co ClassOutstanding
		if err := rows.Scan(&co.ClassID, &co.ClassName, &co.Students, &co.TotalFee, &co.TotalPaid, &co.Outstanding); err != nil {
			return nil, err
		}
		out = append(out, co)
	}
	return out, rows.Err()
}
