// Package ledger implements per-student fee accounts, immutable payment
// transactions and the workflow that keeps both consistent.
package ledger

import (
	"fmt"
	"time"

	"github.com/beacon-sis/beacon/internal/shared"
)

// FeeStatus summarises the payment state of a fee account.
type FeeStatus string

const (
	StatusPending FeeStatus = "pending"
	StatusPartial FeeStatus = "partial"
	StatusPaid    FeeStatus = "paid"
	StatusOverdue FeeStatus = "overdue"
)

// PaymentMode enumerates accepted payment channels.
type PaymentMode string

const (
	ModeCash         PaymentMode = "cash"
	ModeUPI          PaymentMode = "upi"
	ModeBankTransfer PaymentMode = "bank_transfer"
	ModeCheque       PaymentMode = "cheque"
	ModeOnline       PaymentMode = "online"
)

// Valid reports whether the mode is one of the accepted channels.
func (m PaymentMode) Valid() bool {
	switch m {
	case ModeCash, ModeUPI, ModeBankTransfer, ModeCheque, ModeOnline:
		return true
	}
	return false
}

// FeeAccount is the running ledger for one student in one academic year.
// TotalPaid always equals the sum of its live transactions; Balance and
// Status are materialized caches recomputed on every mutation, never
// edited independently.
type FeeAccount struct {
	ID           int64     `json:"id"`
	StudentID    int64     `json:"student_id"`
	AcademicYear string    `json:"academic_year"`
	TotalFee     float64   `json:"total_fee"`
	TotalPaid    float64   `json:"total_paid"`
	Balance      float64   `json:"balance"`
	Status       FeeStatus `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// FeeTransaction is one immutable payment event against a FeeAccount.
// Corrections happen via delete and re-entry, never in-place edits.
type FeeTransaction struct {
	ID              int64       `json:"id"`
	AccountID       int64       `json:"account_id"`
	StudentID       int64       `json:"student_id"`
	AcademicYear    string      `json:"academic_year"`
	ReceiptNumber   string      `json:"receipt_number"`
	AmountPaid      float64     `json:"amount_paid"`
	PaymentMode     PaymentMode `json:"payment_mode"`
	PaymentFor      string      `json:"payment_for"`
	PaidMonths      []string    `json:"paid_months,omitempty"`
	Remarks         string      `json:"remarks,omitempty"`
	TransactionDate time.Time   `json:"transaction_date"`
	RecordedBy      int64       `json:"recorded_by"`
	CreatedAt       time.Time   `json:"created_at"`
}

// DeriveStatus is the single source of truth for account status. It is a
// pure function of the arithmetic state plus the injected due-date flag;
// callers recompute it from scratch after every mutation so the stored
// status can never drift from the totals.
func DeriveStatus(totalFee, totalPaid float64, dueDatePassed bool) FeeStatus {
	if totalFee-totalPaid <= 0 {
		return StatusPaid
	}
	if dueDatePassed {
		return StatusOverdue
	}
	if totalPaid > 0 {
		return StatusPartial
	}
	return StatusPending
}

// FormatReceiptNumber renders the receipt identifier for a per-year
// sequence value, e.g. "26-27-000123". Sequence values are allocated
// atomically and never reused, even after a reversal.
func FormatReceiptNumber(academicYear string, seq int64) string {
	return fmt.Sprintf("%s-%06d", shared.ShortAcademicYear(academicYear), seq)
}
