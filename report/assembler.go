package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/beacon-sis/beacon/internal/ledger"
	"github.com/beacon-sis/beacon/internal/students"
)

// LedgerSource supplies transaction and account snapshots.
type LedgerSource interface {
	GetTransaction(ctx context.Context, id int64) (*ledger.FeeTransaction, error)
	GetAccount(ctx context.Context, studentID int64, academicYear string) (*ledger.FeeAccount, error)
}

// StudentSource supplies student and class details.
type StudentSource interface {
	Get(ctx context.Context, id int64) (*students.Student, error)
	GetClass(ctx context.Context, id int64) (*students.Class, error)
}

// Assembler joins ledger, student and class records into receipt data.
type Assembler struct {
	ledger     LedgerSource
	students   StudentSource
	schoolName string
}

func NewAssembler(ledgerSrc LedgerSource, studentSrc StudentSource, schoolName string) *Assembler {
	return &Assembler{ledger: ledgerSrc, students: studentSrc, schoolName: schoolName}
}

// ReceiptData builds the printable receipt for one transaction.
func (a *Assembler) ReceiptData(ctx context.Context, transactionID int64) (*ReceiptData, error) {
	txn, err := a.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	student, err := a.students.Get(ctx, txn.StudentID)
	if err != nil {
		return nil, fmt.Errorf("receipt student: %w", err)
	}
	className := ""
	if class, err := a.students.GetClass(ctx, student.ClassID); err == nil {
		className = strings.TrimSpace(class.Name + " " + class.Section)
	}
	acct, err := a.ledger.GetAccount(ctx, txn.StudentID, txn.AcademicYear)
	if err != nil {
		return nil, fmt.Errorf("receipt account: %w", err)
	}

	return &ReceiptData{
		SchoolName:      a.schoolName,
		ReceiptNumber:   txn.ReceiptNumber,
		AcademicYear:    txn.AcademicYear,
		StudentName:     student.FullName,
		AdmissionNo:     student.AdmissionNo,
		ClassName:       className,
		Amount:          txn.AmountPaid,
		PaymentMode:     string(txn.PaymentMode),
		PaymentFor:      txn.PaymentFor,
		PaidMonths:      txn.PaidMonths,
		TransactionDate: txn.TransactionDate,
		Balance:         acct.Balance,
		Status:          string(acct.Status),
	}, nil
}

// GuardianEmail returns where the receipt email should go, empty when the
// guardian has no address on file.
func (a *Assembler) GuardianEmail(ctx context.Context, transactionID int64) (string, error) {
	txn, err := a.ledger.GetTransaction(ctx, transactionID)
	if err != nil {
		return "", err
	}
	student, err := a.students.Get(ctx, txn.StudentID)
	if err != nil {
		return "", err
	}
	return student.GuardianEmail, nil
}
