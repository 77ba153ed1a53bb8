package fees

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beacon-sis/beacon/internal/shared"
)

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) ListForClass(ctx context.Context, classID int64, academicYear string) ([]FeeStructure, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, class_id, academic_year, name, amount, created_at, updated_at
		 FROM fee_structures WHERE class_id = $1 AND academic_year = $2 ORDER BY name`,
		classID, academicYear)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []FeeStructure
	for rows.Next() {
		var fs FeeStructure
		if err := rows.Scan(&fs.ID, &fs.ClassID, &fs.AcademicYear, &fs.Name, &fs.Amount, &fs.CreatedAt, &fs.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, fs)
	}
	return out, rows.Err()
}

// Upsert creates or reprices one component for the class and year.
func (r *Repository) Upsert(ctx context.Context, fs *FeeStructure) (*FeeStructure, error) {
	var out FeeStructure
	err := r.pool.QueryRow(ctx,
		`INSERT INTO fee_structures (class_id, academic_year, name, amount)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (class_id, academic_year, name)
		 DO UPDATE SET amount = EXCLUDED.amount, updated_at = NOW()
		 RETURNING id, class_id, academic_year, name, amount, created_at, updated_at`,
		fs.ClassID, fs.AcademicYear, fs.Name, fs.Amount).
		Scan(&out.ID, &out.ClassID, &out.AcademicYear, &out.Name, &out.Amount, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM fee_structures WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: fee structure %d", shared.ErrNotFound, id)
	}
	return nil
}

// TotalForClass sums all components priced for the class and year.
func (r *Repository) TotalForClass(ctx context.Context, classID int64, academicYear string) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM fee_structures
		 WHERE class_id = $1 AND academic_year = $2`,
		classID, academicYear).Scan(&total)
	return total, err
}

// TotalForStudent resolves the student's class and sums its components.
func (r *Repository) TotalForStudent(ctx context.Context, studentID int64, academicYear string) (float64, error) {
	var total float64
	err := r.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(fs.amount), 0)
		 FROM students s
		 JOIN fee_structures fs ON fs.class_id = s.class_id AND fs.academic_year = $2
		 WHERE s.id = $1`,
		studentID, academicYear).Scan(&total)
	return total, err
}

func (r *Repository) GetDueDate(ctx context.Context, academicYear string) (*DueDate, error) {
	var d DueDate
	err := r.pool.QueryRow(ctx,
		`SELECT academic_year, due_date FROM fee_due_dates WHERE academic_year = $1`,
		academicYear).Scan(&d.AcademicYear, &d.DueDate)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: due date for %s", shared.ErrNotFound, academicYear)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *Repository) SetDueDate(ctx context.Context, academicYear string, due time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO fee_due_dates (academic_year, due_date) VALUES ($1, $2)
		 ON CONFLICT (academic_year) DO UPDATE SET due_date = EXCLUDED.due_date`,
		academicYear, due)
	return err
}
