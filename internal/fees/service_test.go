package fees

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/beacon-sis/beacon/internal/shared"
)

type memoryFeeRepo struct {
	structures map[string]*FeeStructure
	dueDates   map[string]time.Time
	classOf    map[int64]int64
	nextID     int64
}

func newMemoryFeeRepo() *memoryFeeRepo {
	return &memoryFeeRepo{
		structures: make(map[string]*FeeStructure),
		dueDates:   make(map[string]time.Time),
		classOf:    make(map[int64]int64),
	}
}

func structureKey(classID int64, year, name string) string {
	return fmt.Sprintf("%d|%s|%s", classID, year, name)
}

func (r *memoryFeeRepo) ListForClass(_ context.Context, classID int64, year string) ([]FeeStructure, error) {
	var out []FeeStructure
	for _, fs := range r.structures {
		if fs.ClassID == classID && fs.AcademicYear == year {
			out = append(out, *fs)
		}
	}
	return out, nil
}

func (r *memoryFeeRepo) Upsert(_ context.Context, fs *FeeStructure) (*FeeStructure, error) {
	key := structureKey(fs.ClassID, fs.AcademicYear, fs.Name)
	if existing, ok := r.structures[key]; ok {
		existing.Amount = fs.Amount
		cp := *existing
		return &cp, nil
	}
	r.nextID++
	cp := *fs
	cp.ID = r.nextID
	r.structures[key] = &cp
	out := cp
	return &out, nil
}

func (r *memoryFeeRepo) Delete(_ context.Context, id int64) error {
	for key, fs := range r.structures {
		if fs.ID == id {
			delete(r.structures, key)
			return nil
		}
	}
	return fmt.Errorf("%w: fee structure %d", shared.ErrNotFound, id)
}

func (r *memoryFeeRepo) TotalForClass(_ context.Context, classID int64, year string) (float64, error) {
	var total float64
	for _, fs := range r.structures {
		if fs.ClassID == classID && fs.AcademicYear == year {
			total += fs.Amount
		}
	}
	return total, nil
}

func (r *memoryFeeRepo) TotalForStudent(ctx context.Context, studentID int64, year string) (float64, error) {
	return r.TotalForClass(ctx, r.classOf[studentID], year)
}

func (r *memoryFeeRepo) GetDueDate(_ context.Context, year string) (*DueDate, error) {
	due, ok := r.dueDates[year]
	if !ok {
		return nil, fmt.Errorf("%w: due date for %s", shared.ErrNotFound, year)
	}
	return &DueDate{AcademicYear: year, DueDate: due}, nil
}

func (r *memoryFeeRepo) SetDueDate(_ context.Context, year string, due time.Time) error {
	r.dueDates[year] = due
	return nil
}

const testYear = "2026-2027"

func TestSetStructureValidation(t *testing.T) {
	svc := NewService(newMemoryFeeRepo())

	_, err := svc.SetStructure(context.Background(), FeeStructure{AcademicYear: testYear, Name: "Tuition", Amount: 100})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SetStructure(context.Background(), FeeStructure{ClassID: 1, AcademicYear: "bad", Name: "Tuition"})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SetStructure(context.Background(), FeeStructure{ClassID: 1, AcademicYear: testYear, Name: "  "})
	require.ErrorIs(t, err, shared.ErrValidation)

	_, err = svc.SetStructure(context.Background(), FeeStructure{ClassID: 1, AcademicYear: testYear, Name: "Tuition", Amount: -5})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestTotalForClassSumsComponents(t *testing.T) {
	repo := newMemoryFeeRepo()
	svc := NewService(repo)

	for name, amount := range map[string]float64{"Tuition": 1200, "Transport": 250, "Lab": 50} {
		_, err := svc.SetStructure(context.Background(), FeeStructure{
			ClassID: 1, AcademicYear: testYear, Name: name, Amount: amount,
		})
		require.NoError(t, err)
	}

	total, err := svc.TotalForClass(context.Background(), 1, testYear)
	require.NoError(t, err)
	require.Equal(t, 1500.0, total)
}

func TestUpsertReprices(t *testing.T) {
	svc := NewService(newMemoryFeeRepo())

	_, err := svc.SetStructure(context.Background(), FeeStructure{ClassID: 1, AcademicYear: testYear, Name: "Tuition", Amount: 1000})
	require.NoError(t, err)
	_, err = svc.SetStructure(context.Background(), FeeStructure{ClassID: 1, AcademicYear: testYear, Name: "Tuition", Amount: 1100})
	require.NoError(t, err)

	total, err := svc.TotalForClass(context.Background(), 1, testYear)
	require.NoError(t, err)
	require.Equal(t, 1100.0, total)
}

func TestDueDatePassed(t *testing.T) {
	repo := newMemoryFeeRepo()
	svc := NewService(repo)
	svc.now = func() time.Time { return time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC) }

	// No deadline configured: never overdue.
	passed, err := svc.DueDatePassed(context.Background(), testYear)
	require.NoError(t, err)
	require.False(t, passed)

	require.NoError(t, svc.SetDueDate(context.Background(), testYear, time.Date(2027, 1, 31, 0, 0, 0, 0, time.UTC)))
	passed, err = svc.DueDatePassed(context.Background(), testYear)
	require.NoError(t, err)
	require.True(t, passed)

	svc.now = func() time.Time { return time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC) }
	passed, err = svc.DueDatePassed(context.Background(), testYear)
	require.NoError(t, err)
	require.False(t, passed)
}
