package users

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/beacon-sis/beacon/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context) ([]User, error)
	GetUser(ctx context.Context, id int64) (*User, error)
	CreateUser(ctx context.Context, email, fullName, passwordHash string) (*User, error)
	SetActive(ctx context.Context, id int64, active bool) error
}

// RoleAssigner grants and revokes roles; the rbac service satisfies it.
type RoleAssigner interface {
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// Service handles user management logic.
type Service struct {
	repo  RepositoryPort
	roles RoleAssigner
	audit *shared.AuditLogger
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, roles RoleAssigner, audit *shared.AuditLogger) *Service {
	return &Service{repo: repo, roles: roles, audit: audit}
}

// ListUsers returns all users.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	return s.repo.ListUsers(ctx)
}

// GetUser returns one user with roles.
func (s *Service) GetUser(ctx context.Context, id int64) (*User, error) {
	return s.repo.GetUser(ctx, id)
}

// CreateUser hashes the password and creates the account.
func (s *Service) CreateUser(ctx context.Context, email, fullName, password string, actorID int64) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, shared.Validationf("email is required")
	}
	if len(password) < 8 {
		return nil, shared.Validationf("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user, err := s.repo.CreateUser(ctx, email, strings.TrimSpace(fullName), string(hash))
	if err != nil {
		return nil, err
	}
	s.recordAudit(ctx, actorID, "users.create", user.ID)
	return user, nil
}

// Deactivate disables login for the account without deleting history.
func (s *Service) Deactivate(ctx context.Context, id, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, false); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users.deactivate", id)
	return nil
}

// Activate re-enables a previously deactivated account.
func (s *Service) Activate(ctx context.Context, id, actorID int64) error {
	if err := s.repo.SetActive(ctx, id, true); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users.activate", id)
	return nil
}

// AssignRole grants a role to the user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID, actorID int64) error {
	if err := s.roles.AssignRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users.role.assign", userID)
	return nil
}

// RemoveRole revokes a role from the user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID, actorID int64) error {
	if err := s.roles.RemoveRole(ctx, userID, roleID); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "users.role.remove", userID)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, userID int64) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "user",
		EntityID: fmt.Sprintf("%d", userID),
	})
}
