package students

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/beacon-sis/beacon/internal/platform/db"
	"github.com/beacon-sis/beacon/internal/shared"
)

const studentColumns = `id, admission_no, full_name, class_id, guardian_name, guardian_phone, guardian_email, enrollment_date, is_active, created_at, updated_at`

// Repository provides PostgreSQL backed persistence.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Get(ctx context.Context, id int64) (*Student, error) {
	return scanStudent(r.pool.QueryRow(ctx,
		`SELECT `+studentColumns+` FROM students WHERE id = $1`, id))
}

func (r *Repository) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM students WHERE id = $1 AND is_active)`, id).Scan(&ok)
	return ok, err
}

// ListClass returns the ids of active students in the class.
func (r *Repository) ListClass(ctx context.Context, classID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id FROM students WHERE class_id = $1 AND is_active ORDER BY id`, classID)
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

func (r *Repository) ListByClass(ctx context.Context, classID int64) ([]Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students WHERE class_id = $1 AND is_active ORDER BY full_name`, classID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (r *Repository) Search(ctx context.Context, query string, p shared.Pagination) ([]Student, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+studentColumns+` FROM students
		 WHERE is_active AND (full_name ILIKE '%' || $1 || '%' OR admission_no = $1)
		 ORDER BY full_name LIMIT $2 OFFSET $3`,
		query, p.PerPage, p.Offset())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Student
	for rows.Next() {
		st, err := scanStudent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *st)
	}
	return out, rows.Err()
}

func (r *Repository) Create(ctx context.Context, st *Student) (*Student, error) {
	created, err := scanStudent(r.pool.QueryRow(ctx,
		`INSERT INTO students (admission_no, full_name, class_id, guardian_name, guardian_phone, guardian_email, enrollment_date, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
		 RETURNING `+studentColumns,
		st.AdmissionNo, st.FullName, st.ClassID, st.GuardianName, st.GuardianPhone, st.GuardianEmail, st.EnrollmentDate))
	if err != nil {
		if db.IsUniqueViolation(err, "students_admission_no_key") {
			return nil, fmt.Errorf("%w: admission number %s is taken", shared.ErrInvalidState, st.AdmissionNo)
		}
		return nil, err
	}
	return created, nil
}

func (r *Repository) Update(ctx context.Context, st *Student) (*Student, error) {
	updated, err := scanStudent(r.pool.QueryRow(ctx,
		`UPDATE students
		 SET full_name = $2, class_id = $3, guardian_name = $4, guardian_phone = $5, guardian_email = $6, updated_at = NOW()
		 WHERE id = $1
		 RETURNING `+studentColumns,
		st.ID, st.FullName, st.ClassID, st.GuardianName, st.GuardianPhone, st.GuardianEmail))
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) GetClass(ctx context.Context, id int64) (*Class, error) {
	var c Class
	err := r.pool.QueryRow(ctx, `SELECT id, name, section FROM classes WHERE id = $1`, id).
		Scan(&c.ID, &c.Name, &c.Section)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: class %d", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *Repository) ListClasses(ctx context.Context) ([]Class, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, section FROM classes ORDER BY name, section`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Class
	for rows.Next() {
		var c Class
		if err := rows.Scan(&c.ID, &c.Name, &c.Section); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStudent(row rowScanner) (*Student, error) {
	var st Student
	err := row.Scan(&st.ID, &st.AdmissionNo, &st.FullName, &st.ClassID, &st.GuardianName, &st.GuardianPhone, &st.GuardianEmail, &st.EnrollmentDate, &st.IsActive, &st.CreatedAt, &st.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: student", shared.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &st, nil
}
