package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/beacon-sis/beacon/internal/shared"
)

// RepositoryPort is the storage contract for fee accounts and transactions.
type RepositoryPort interface {
	GetAccount(ctx context.Context, studentID int64, academicYear string) (*FeeAccount, error)
	GetTransaction(ctx context.Context, id int64) (*FeeTransaction, error)
	ListTransactions(ctx context.Context, studentID int64, academicYear string) ([]FeeTransaction, error)
	MarkOverdue(ctx context.Context, academicYear string) (int64, error)
	InTx(ctx context.Context, fn func(TxPort) error) error
}

// TxPort exposes the mutations that must happen inside one database
// transaction. Implementations guarantee all-or-nothing visibility.
type TxPort interface {
	GetOrCreateAccount(ctx context.Context, studentID int64, academicYear string, totalFee float64) (acct *FeeAccount, created bool, err error)
	NextReceiptSeq(ctx context.Context, academicYear string) (int64, error)
	InsertTransaction(ctx context.Context, txn *FeeTransaction) (*FeeTransaction, error)
	DeleteTransaction(ctx context.Context, id int64) (*FeeTransaction, error)
	ApplyDelta(ctx context.Context, accountID int64, delta float64) (*FeeAccount, error)
	SetStatus(ctx context.Context, accountID int64, status FeeStatus) error
}

// StudentDirectory answers existence and roster questions about students.
type StudentDirectory interface {
	Exists(ctx context.Context, studentID int64) (bool, error)
	ListClass(ctx context.Context, classID int64) ([]int64, error)
}

// FeeSchedule resolves the total fee owed for a student or class in a year.
type FeeSchedule interface {
	TotalForStudent(ctx context.Context, studentID int64, academicYear string) (float64, error)
	TotalForClass(ctx context.Context, classID int64, academicYear string) (float64, error)
}

// DueDatePolicy reports whether the payment due date for a year has passed.
type DueDatePolicy interface {
	DueDatePassed(ctx context.Context, academicYear string) (bool, error)
}

// Auditor records who did what. shared.AuditLogger satisfies it.
type Auditor interface {
	Record(ctx context.Context, entry shared.AuditLog) error
}

type Service struct {
	repo     RepositoryPort
	students StudentDirectory
	schedule FeeSchedule
	due      DueDatePolicy
	audit    Auditor
}

func NewService(repo RepositoryPort, students StudentDirectory, schedule FeeSchedule, due DueDatePolicy, audit Auditor) *Service {
	return &Service{repo: repo, students: students, schedule: schedule, due: due, audit: audit}
}

// RecordPaymentInput carries one payment to be recorded. TransactionDate
// defaults to now when zero.
type RecordPaymentInput struct {
	StudentID       int64
	AcademicYear    string
	Amount          float64
	Mode            PaymentMode
	PaymentFor      string
	PaidMonths      []string
	Remarks         string
	TransactionDate time.Time
	RecordedBy      int64
}

// PaymentReceipt is the caller-facing result of a recorded payment.
type PaymentReceipt struct {
	TransactionID int64     `json:"transaction_id"`
	ReceiptNumber string    `json:"receipt_number"`
	NewBalance    float64   `json:"new_balance"`
	NewStatus     FeeStatus `json:"new_status"`
}

func (in RecordPaymentInput) validate() error {
	if in.StudentID <= 0 {
		return shared.Validationf("student_id is required")
	}
	if err := shared.ValidateAcademicYear(in.AcademicYear); err != nil {
		return err
	}
	if in.Amount <= 0 {
		return shared.Validationf("amount must be positive, got %.2f", in.Amount)
	}
	if !in.Mode.Valid() {
		return shared.Validationf("unknown payment mode %q", in.Mode)
	}
	return nil
}

// RecordPayment appends an immutable transaction to the student's account
// for the year, creating the account on first contact, and recomputes the
// cached balance and status atomically with the insert.
func (s *Service) RecordPayment(ctx context.Context, in RecordPaymentInput) (*PaymentReceipt, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	ok, err := s.students.Exists(ctx, in.StudentID)
	if err != nil {
		return nil, fmt.Errorf("check student: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: student %d", shared.ErrNotFound, in.StudentID)
	}

	totalFee, err := s.totalFeeFor(ctx, in.StudentID, in.AcademicYear)
	if err != nil {
		return nil, err
	}
	duePassed, err := s.due.DueDatePassed(ctx, in.AcademicYear)
	if err != nil {
		return nil, fmt.Errorf("due date policy: %w", err)
	}

	when := in.TransactionDate
	if when.IsZero() {
		when = time.Now()
	}

	var receipt PaymentReceipt
	err = s.repo.InTx(ctx, func(tx TxPort) error {
		acct, _, err := tx.GetOrCreateAccount(ctx, in.StudentID, in.AcademicYear, totalFee)
		if err != nil {
			return err
		}
		seq, err := tx.NextReceiptSeq(ctx, in.AcademicYear)
		if err != nil {
			return err
		}
		txn, err := tx.InsertTransaction(ctx, &FeeTransaction{
			AccountID:       acct.ID,
			StudentID:       in.StudentID,
			AcademicYear:    in.AcademicYear,
			ReceiptNumber:   FormatReceiptNumber(in.AcademicYear, seq),
			AmountPaid:      in.Amount,
			PaymentMode:     in.Mode,
			PaymentFor:      in.PaymentFor,
			PaidMonths:      in.PaidMonths,
			Remarks:         in.Remarks,
			TransactionDate: when,
			RecordedBy:      in.RecordedBy,
		})
		if err != nil {
			return err
		}
		updated, err := tx.ApplyDelta(ctx, acct.ID, in.Amount)
		if err != nil {
			return err
		}
		status := DeriveStatus(updated.TotalFee, updated.TotalPaid, duePassed)
		if err := tx.SetStatus(ctx, acct.ID, status); err != nil {
			return err
		}
		receipt = PaymentReceipt{
			TransactionID: txn.ID,
			ReceiptNumber: txn.ReceiptNumber,
			NewBalance:    updated.Balance,
			NewStatus:     status,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditRecord(ctx, in.RecordedBy, "fees.payment.record", "fee_transaction", receipt.ReceiptNumber, map[string]any{
		"student_id":    in.StudentID,
		"academic_year": in.AcademicYear,
		"amount":        in.Amount,
		"payment_mode":  in.Mode,
	})
	return &receipt, nil
}

// DeletePayment reverses a recorded payment: the transaction row is
// removed and the account's paid total shrinks by its amount in the same
// database transaction. The receipt number is retired, not recycled.
func (s *Service) DeletePayment(ctx context.Context, transactionID, actorID int64) (*FeeAccount, error) {
	if transactionID <= 0 {
		return nil, shared.Validationf("transaction id is required")
	}
	existing, err := s.repo.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	duePassed, err := s.due.DueDatePassed(ctx, existing.AcademicYear)
	if err != nil {
		return nil, fmt.Errorf("due date policy: %w", err)
	}

	var after *FeeAccount
	err = s.repo.InTx(ctx, func(tx TxPort) error {
		txn, err := tx.DeleteTransaction(ctx, transactionID)
		if err != nil {
			return err
		}
		updated, err := tx.ApplyDelta(ctx, txn.AccountID, -txn.AmountPaid)
		if err != nil {
			if errors.Is(err, shared.ErrInvalidState) {
				return fmt.Errorf("%w: reversing receipt %s would drive paid total negative", shared.ErrInvalidState, txn.ReceiptNumber)
			}
			return err
		}
		status := DeriveStatus(updated.TotalFee, updated.TotalPaid, duePassed)
		if err := tx.SetStatus(ctx, updated.ID, status); err != nil {
			return err
		}
		updated.Status = status
		after = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.auditRecord(ctx, actorID, "fees.payment.delete", "fee_transaction", existing.ReceiptNumber, map[string]any{
		"student_id":    existing.StudentID,
		"academic_year": existing.AcademicYear,
		"amount":        existing.AmountPaid,
	})
	return after, nil
}

// GetAccount returns the current account snapshot for a student and year.
func (s *Service) GetAccount(ctx context.Context, studentID int64, academicYear string) (*FeeAccount, error) {
	if studentID <= 0 {
		return nil, shared.Validationf("student id is required")
	}
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return nil, err
	}
	return s.repo.GetAccount(ctx, studentID, academicYear)
}

// ListTransactions returns the live payment history, newest first.
func (s *Service) ListTransactions(ctx context.Context, studentID int64, academicYear string) ([]FeeTransaction, error) {
	if studentID <= 0 {
		return nil, shared.Validationf("student id is required")
	}
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return nil, err
	}
	return s.repo.ListTransactions(ctx, studentID, academicYear)
}

// SyncClassAccounts ensures every student in a class has a fee account
// for the year, priced from the class fee schedule. Existing accounts are
// left untouched. Returns how many accounts were created.
func (s *Service) SyncClassAccounts(ctx context.Context, classID int64, academicYear string, actorID int64) (int, error) {
	if classID <= 0 {
		return 0, shared.Validationf("class id is required")
	}
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return 0, err
	}
	roster, err := s.students.ListClass(ctx, classID)
	if err != nil {
		return 0, fmt.Errorf("class roster: %w", err)
	}
	totalFee, err := s.schedule.TotalForClass(ctx, classID, academicYear)
	if err != nil {
		return 0, err
	}
	duePassed, err := s.due.DueDatePassed(ctx, academicYear)
	if err != nil {
		return 0, fmt.Errorf("due date policy: %w", err)
	}

	created := 0
	for _, studentID := range roster {
		err := s.repo.InTx(ctx, func(tx TxPort) error {
			acct, isNew, err := tx.GetOrCreateAccount(ctx, studentID, academicYear, totalFee)
			if err != nil {
				return err
			}
			if isNew {
				created++
				// A fresh account may not owe anything (zero-fee class),
				// so the stored status must come from the derivation.
				if status := DeriveStatus(acct.TotalFee, acct.TotalPaid, duePassed); status != acct.Status {
					if err := tx.SetStatus(ctx, acct.ID, status); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			return created, fmt.Errorf("sync student %d: %w", studentID, err)
		}
	}

	s.auditRecord(ctx, actorID, "fees.accounts.sync", "class", fmt.Sprintf("%d", classID), map[string]any{
		"academic_year": academicYear,
		"created":       created,
	})
	return created, nil
}

// SweepOverdue flips unpaid accounts for the year to overdue once the due
// date has passed. A no-op before the due date.
func (s *Service) SweepOverdue(ctx context.Context, academicYear string) (int64, error) {
	if err := shared.ValidateAcademicYear(academicYear); err != nil {
		return 0, err
	}
	passed, err := s.due.DueDatePassed(ctx, academicYear)
	if err != nil {
		return 0, fmt.Errorf("due date policy: %w", err)
	}
	if !passed {
		return 0, nil
	}
	return s.repo.MarkOverdue(ctx, academicYear)
}

func (s *Service) totalFeeFor(ctx context.Context, studentID int64, academicYear string) (float64, error) {
	acct, err := s.repo.GetAccount(ctx, studentID, academicYear)
	if err == nil {
		return acct.TotalFee, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return 0, err
	}
	total, err := s.schedule.TotalForStudent(ctx, studentID, academicYear)
	if err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Service) auditRecord(ctx context.Context, actorID int64, action, entity, entityID string, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Meta:     meta,
	})
}
