package fees

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/beacon-sis/beacon/internal/shared"
)

// RepositoryPort defines data access for fee structures and due dates.
type RepositoryPort interface {
	ListForClass(ctx context.Context, classID int64, academicYear string) ([]FeeStructure, error)
	Upsert(ctx context.Context, fs *FeeStructure) (*FeeStructure, error)
	Delete(ctx context.Context, id int64) error
	TotalForClass(ctx context.Context, classID int64, academicYear string) (float64, error)
	TotalForStudent(ctx context.Context, studentID int64, academicYear string) (float64, error)
	GetDueDate(ctx context.Context, academicYear string) (*DueDate, error)
	SetDueDate(ctx context.Context, academicYear string, due time.Time) error
}

// Service manages fee structures. It is also the ledger's fee schedule
// and due date policy.
type Service struct {
	repo RepositoryPort
	now  func() time.Time
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, now: time.Now}
}

func (s *Service) ListForClass(ctx context.Context, classID int64, academicYear string) ([]FeeStructure, error) {
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return nil, err
	}
	return s.repo.ListForClass(ctx, classID, academicYear)
}

// SetStructure creates or reprices a fee component.
func (s *Service) SetStructure(ctx context.Context, fs FeeStructure) (*FeeStructure, error) {
	fs.Name = strings.TrimSpace(fs.Name)
	if fs.ClassID <= 0 {
		return nil, shared.Validationf("class is required")
	}
	if err := shared.ValidateAcademicYear(fs.AcademicYear); err != nil {
		return nil, err
	}
	if fs.Name == "" {
		return nil, shared.Validationf("fee name is required")
	}
	if fs.Amount < 0 {
		return nil, shared.Validationf("fee amount cannot be negative")
	}
	return s.repo.Upsert(ctx, &fs)
}

func (s *Service) DeleteStructure(ctx context.Context, id int64) error {
	if id <= 0 {
		return shared.Validationf("fee structure id is required")
	}
	return s.repo.Delete(ctx, id)
}

// TotalForClass sums the class fee schedule for the year.
func (s *Service) TotalForClass(ctx context.Context, classID int64, academicYear string) (float64, error) {
	return s.repo.TotalForClass(ctx, classID, academicYear)
}

// TotalForStudent sums the schedule of the student's class for the year.
func (s *Service) TotalForStudent(ctx context.Context, studentID int64, academicYear string) (float64, error) {
	return s.repo.TotalForStudent(ctx, studentID, academicYear)
}

// SetDueDate records the year-wide payment deadline.
func (s *Service) SetDueDate(ctx context.Context, academicYear string, due time.Time) error {
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return err
	}
	if due.IsZero() {
		return shared.Validationf("due date is required")
	}
	return s.repo.SetDueDate(ctx, academicYear, due)
}

// DueDatePassed reports whether the year's deadline is behind us. A year
// with no configured deadline never counts as passed.
func (s *Service) DueDatePassed(ctx context.Context, academicYear string) (bool, error) {
	d, err := s.repo.GetDueDate(ctx, academicYear)
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return s.now().After(d.DueDate), nil
}
