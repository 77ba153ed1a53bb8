package students

import (
	"context"
	"strings"
	"time"

	"github.com/beacon-sis/beacon/internal/shared"
)

// RepositoryPort defines data access methods for students.
type RepositoryPort interface {
	Get(ctx context.Context, id int64) (*Student, error)
	Exists(ctx context.Context, id int64) (bool, error)
	ListClass(ctx context.Context, classID int64) ([]int64, error)
	ListByClass(ctx context.Context, classID int64) ([]Student, error)
	Search(ctx context.Context, query string, p shared.Pagination) ([]Student, error)
	Create(ctx context.Context, st *Student) (*Student, error)
	Update(ctx context.Context, st *Student) (*Student, error)
	GetClass(ctx context.Context, id int64) (*Class, error)
	ListClasses(ctx context.Context) ([]Class, error)
}

// Service handles student management logic. It also serves as the
// student directory for the fee ledger.
type Service struct {
	repo RepositoryPort
}

func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) Get(ctx context.Context, id int64) (*Student, error) {
	return s.repo.Get(ctx, id)
}

// Exists reports whether an active student with the id is enrolled.
func (s *Service) Exists(ctx context.Context, id int64) (bool, error) {
	return s.repo.Exists(ctx, id)
}

// ListClass returns the active roster ids for the class.
func (s *Service) ListClass(ctx context.Context, classID int64) ([]int64, error) {
	return s.repo.ListClass(ctx, classID)
}

func (s *Service) ListByClass(ctx context.Context, classID int64) ([]Student, error) {
	return s.repo.ListByClass(ctx, classID)
}

func (s *Service) Search(ctx context.Context, query string, p shared.Pagination) ([]Student, error) {
	return s.repo.Search(ctx, strings.TrimSpace(query), p)
}

func (s *Service) GetClass(ctx context.Context, id int64) (*Class, error) {
	return s.repo.GetClass(ctx, id)
}

func (s *Service) ListClasses(ctx context.Context) ([]Class, error) {
	return s.repo.ListClasses(ctx)
}

// Enroll registers a new student.
func (s *Service) Enroll(ctx context.Context, st Student) (*Student, error) {
	st.AdmissionNo = strings.TrimSpace(st.AdmissionNo)
	st.FullName = strings.TrimSpace(st.FullName)
	if st.AdmissionNo == "" {
		return nil, shared.Validationf("admission number is required")
	}
	if st.FullName == "" {
		return nil, shared.Validationf("full name is required")
	}
	if st.ClassID <= 0 {
		return nil, shared.Validationf("class is required")
	}
	if st.EnrollmentDate.IsZero() {
		st.EnrollmentDate = time.Now()
	}
	return s.repo.Create(ctx, &st)
}

// Update edits mutable student details. Admission number is fixed at enrollment.
func (s *Service) Update(ctx context.Context, st Student) (*Student, error) {
	if st.ID <= 0 {
		return nil, shared.Validationf("student id is required")
	}
	st.FullName = strings.TrimSpace(st.FullName)
	if st.FullName == "" {
		return nil, shared.Validationf("full name is required")
	}
	if st.ClassID <= 0 {
		return nil, shared.Validationf("class is required")
	}
	if _, err := s.repo.Get(ctx, st.ID); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, &st)
}
