package ledger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/beacon-sis/beacon/internal/shared"
)

type memoryRepo struct {
	mu           sync.Mutex
	accounts     map[int64]*FeeAccount
	accountIndex map[string]int64
	transactions map[int64]*FeeTransaction
	sequences    map[string]int64
	nextAcctID   int64
	nextTxnID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts:     make(map[int64]*FeeAccount),
		accountIndex: make(map[string]int64),
		transactions: make(map[int64]*FeeTransaction),
		sequences:    make(map[string]int64),
	}
}

func accountKey(studentID int64, year string) string {
	return fmt.Sprintf("%d|%s", studentID, year)
}

func (r *memoryRepo) GetAccount(_ context.Context, studentID int64, year string) (*FeeAccount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.accountIndex[accountKey(studentID, year)]
	if !ok {
		return nil, fmt.Errorf("%w: fee account", shared.ErrNotFound)
	}
	cp := *r.accounts[id]
	return &cp, nil
}

func (r *memoryRepo) GetTransaction(_ context.Context, id int64) (*FeeTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	txn, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: fee transaction", shared.ErrNotFound)
	}
	cp := *txn
	return &cp, nil
}

func (r *memoryRepo) ListTransactions(_ context.Context, studentID int64, year string) ([]FeeTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []FeeTransaction
	for _, txn := range r.transactions {
		if txn.StudentID == studentID && txn.AcademicYear == year {
			out = append(out, *txn)
		}
	}
	return out, nil
}

func (r *memoryRepo) MarkOverdue(_ context.Context, year string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, acct := range r.accounts {
		if acct.AcademicYear == year && acct.Balance > 0 && (acct.Status == StatusPending || acct.Status == StatusPartial) {
			acct.Status = StatusOverdue
			n++
		}
	}
	return n, nil
}

// InTx serializes writers and restores a snapshot when fn fails, matching
// the all-or-nothing behavior of the real transaction.
func (r *memoryRepo) InTx(_ context.Context, fn func(TxPort) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snap := r.snapshot()
	if err := fn(&memoryTx{repo: r}); err != nil {
		r.restore(snap)
		return err
	}
	return nil
}

type memorySnapshot struct {
	accounts     map[int64]*FeeAccount
	accountIndex map[string]int64
	transactions map[int64]*FeeTransaction
	sequences    map[string]int64
	nextAcctID   int64
	nextTxnID    int64
}

func (r *memoryRepo) snapshot() memorySnapshot {
	snap := memorySnapshot{
		accounts:     make(map[int64]*FeeAccount, len(r.accounts)),
		accountIndex: make(map[string]int64, len(r.accountIndex)),
		transactions: make(map[int64]*FeeTransaction, len(r.transactions)),
		sequences:    make(map[string]int64, len(r.sequences)),
		nextAcctID:   r.nextAcctID,
		nextTxnID:    r.nextTxnID,
	}
	for id, acct := range r.accounts {
		cp := *acct
		snap.accounts[id] = &cp
	}
	for k, v := range r.accountIndex {
		snap.accountIndex[k] = v
	}
	for id, txn := range r.transactions {
		cp := *txn
		snap.transactions[id] = &cp
	}
	for k, v := range r.sequences {
		snap.sequences[k] = v
	}
	return snap
}

func (r *memoryRepo) restore(snap memorySnapshot) {
	r.accounts = snap.accounts
	r.accountIndex = snap.accountIndex
	r.transactions = snap.transactions
	r.sequences = snap.sequences
	r.nextAcctID = snap.nextAcctID
	r.nextTxnID = snap.nextTxnID
}

type memoryTx struct {
	repo *memoryRepo
}

func (t *memoryTx) GetOrCreateAccount(_ context.Context, studentID int64, year string, totalFee float64) (*FeeAccount, bool, error) {
	r := t.repo
	if id, ok := r.accountIndex[accountKey(studentID, year)]; ok {
		cp := *r.accounts[id]
		return &cp, false, nil
	}
	r.nextAcctID++
	now := time.Now()
	acct := &FeeAccount{
		ID:           r.nextAcctID,
		StudentID:    studentID,
		AcademicYear: year,
		TotalFee:     totalFee,
		Balance:      totalFee,
		Status:       StatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.accounts[acct.ID] = acct
	r.accountIndex[accountKey(studentID, year)] = acct.ID
	cp := *acct
	return &cp, true, nil
}

func (t *memoryTx) NextReceiptSeq(_ context.Context, year string) (int64, error) {
	t.repo.sequences[year]++
	return t.repo.sequences[year], nil
}

func (t *memoryTx) InsertTransaction(_ context.Context, txn *FeeTransaction) (*FeeTransaction, error) {
	r := t.repo
	r.nextTxnID++
	cp := *txn
	cp.ID = r.nextTxnID
	cp.CreatedAt = time.Now()
	r.transactions[cp.ID] = &cp
	out := cp
	return &out, nil
}

func (t *memoryTx) DeleteTransaction(_ context.Context, id int64) (*FeeTransaction, error) {
	r := t.repo
	txn, ok := r.transactions[id]
	if !ok {
		return nil, fmt.Errorf("%w: fee transaction", shared.ErrNotFound)
	}
	delete(r.transactions, id)
	cp := *txn
	return &cp, nil
}

func (t *memoryTx) ApplyDelta(_ context.Context, accountID int64, delta float64) (*FeeAccount, error) {
	acct, ok := t.repo.accounts[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: fee account %d", shared.ErrNotFound, accountID)
	}
	if acct.TotalPaid+delta < 0 {
		return nil, fmt.Errorf("%w: paid total for account %d cannot go negative", shared.ErrInvalidState, accountID)
	}
	acct.TotalPaid += delta
	acct.Balance = acct.TotalFee - acct.TotalPaid
	acct.UpdatedAt = time.Now()
	cp := *acct
	return &cp, nil
}

func (t *memoryTx) SetStatus(_ context.Context, accountID int64, status FeeStatus) error {
	acct, ok := t.repo.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: fee account %d", shared.ErrNotFound, accountID)
	}
	acct.Status = status
	return nil
}

type stubStudents struct {
	ids     map[int64]bool
	classes map[int64][]int64
}

func (s stubStudents) Exists(_ context.Context, id int64) (bool, error) {
	return s.ids[id], nil
}

func (s stubStudents) ListClass(_ context.Context, classID int64) ([]int64, error) {
	return s.classes[classID], nil
}

type stubSchedule struct {
	perStudent map[int64]float64
	perClass   map[int64]float64
}

func (s stubSchedule) TotalForStudent(_ context.Context, studentID int64, _ string) (float64, error) {
	total, ok := s.perStudent[studentID]
	if !ok {
		return 0, fmt.Errorf("%w: fee structure for student %d", shared.ErrNotFound, studentID)
	}
	return total, nil
}

func (s stubSchedule) TotalForClass(_ context.Context, classID int64, _ string) (float64, error) {
	total, ok := s.perClass[classID]
	if !ok {
		return 0, fmt.Errorf("%w: fee structure for class %d", shared.ErrNotFound, classID)
	}
	return total, nil
}

type stubDuePolicy struct {
	passed bool
}

func (d stubDuePolicy) DueDatePassed(context.Context, string) (bool, error) {
	return d.passed, nil
}

type recordingAuditor struct {
	mu      sync.Mutex
	entries []shared.AuditLog
}

func (a *recordingAuditor) Record(_ context.Context, entry shared.AuditLog) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

const testYear = "2026-2027"

func newTestService(repo *memoryRepo, due stubDuePolicy) (*Service, *recordingAuditor) {
	audit := &recordingAuditor{}
	svc := NewService(repo,
		stubStudents{
			ids:     map[int64]bool{1: true, 2: true, 3: true},
			classes: map[int64][]int64{10: {1, 2, 3}},
		},
		stubSchedule{
			perStudent: map[int64]float64{1: 1000, 2: 1500, 3: 2000},
			perClass:   map[int64]float64{10: 1500},
		},
		due, audit)
	return svc, audit
}

func TestRecordPaymentSettlesAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit := newTestService(repo, stubDuePolicy{})

	receipt, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       1000,
		Mode:         ModeUPI,
		RecordedBy:   42,
	})
	require.NoError(t, err)
	require.Equal(t, "26-27-000001", receipt.ReceiptNumber)
	require.Equal(t, StatusPaid, receipt.NewStatus)
	require.Zero(t, receipt.NewBalance)

	acct, err := svc.GetAccount(context.Background(), 1, testYear)
	require.NoError(t, err)
	require.Equal(t, 1000.0, acct.TotalPaid)
	require.Equal(t, StatusPaid, acct.Status)

	audit.mu.Lock()
	defer audit.mu.Unlock()
	require.Len(t, audit.entries, 1)
	require.Equal(t, "fees.payment.record", audit.entries[0].Action)
}

func TestRecordPaymentPartial(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	receipt, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       400,
		Mode:         ModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPartial, receipt.NewStatus)
	require.Equal(t, 600.0, receipt.NewBalance)
}

func TestRecordPaymentRejectsNonPositiveAmount(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	for _, amount := range []float64{0, -50} {
		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
			StudentID:    1,
			AcademicYear: testYear,
			Amount:       amount,
			Mode:         ModeCash,
		})
		require.ErrorIs(t, err, shared.ErrValidation)
	}
	_, err := svc.GetAccount(context.Background(), 1, testYear)
	require.ErrorIs(t, err, shared.ErrNotFound, "rejected payment must not create an account")
}

func TestRecordPaymentRejectsUnknownMode(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       100,
		Mode:         PaymentMode("barter"),
	})
	require.ErrorIs(t, err, shared.ErrValidation)
}

func TestRecordPaymentRejectsMalformedYear(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	for _, year := range []string{"2026", "2026-2028", "26-27", ""} {
		_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
			StudentID:    1,
			AcademicYear: year,
			Amount:       100,
			Mode:         ModeCash,
		})
		require.ErrorIs(t, err, shared.ErrValidation, "year %q", year)
	}
}

func TestRecordPaymentUnknownStudent(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    99,
		AcademicYear: testYear,
		Amount:       100,
		Mode:         ModeCash,
	})
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestRecordPaymentMarksOverdueAfterDueDate(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{passed: true})

	receipt, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       400,
		Mode:         ModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, receipt.NewStatus)
}

func TestDeletePaymentRestoresAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	first, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       400,
		Mode:         ModeCash,
	})
	require.NoError(t, err)

	before, err := svc.GetAccount(context.Background(), 1, testYear)
	require.NoError(t, err)

	acct, err := svc.DeletePayment(context.Background(), first.TransactionID, 42)
	require.NoError(t, err)
	require.Zero(t, acct.TotalPaid)
	require.Equal(t, before.TotalFee, acct.Balance)
	require.Equal(t, StatusPending, acct.Status)

	txns, err := svc.ListTransactions(context.Background(), 1, testYear)
	require.NoError(t, err)
	require.Empty(t, txns)
}

func TestDeletePaymentTwiceFails(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	receipt, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       400,
		Mode:         ModeCash,
	})
	require.NoError(t, err)

	_, err = svc.DeletePayment(context.Background(), receipt.TransactionID, 42)
	require.NoError(t, err)
	_, err = svc.DeletePayment(context.Background(), receipt.TransactionID, 42)
	require.ErrorIs(t, err, shared.ErrNotFound)
}

func TestDeletePaymentGuardsNegativeTotals(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	receipt, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID:    1,
		AcademicYear: testYear,
		Amount:       400,
		Mode:         ModeCash,
	})
	require.NoError(t, err)

	// Shrink the paid total behind the service's back so the reversal
	// would overdraw it.
	repo.mu.Lock()
	acctID := repo.accountIndex[accountKey(1, testYear)]
	repo.accounts[acctID].TotalPaid = 100
	repo.mu.Unlock()

	_, err = svc.DeletePayment(context.Background(), receipt.TransactionID, 42)
	require.ErrorIs(t, err, shared.ErrInvalidState)

	// The whole reversal must roll back: the transaction survives.
	_, err = svc.repo.GetTransaction(context.Background(), receipt.TransactionID)
	require.NoError(t, err)
}

func TestReceiptNumbersAreNeverRecycled(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	first, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID: 1, AcademicYear: testYear, Amount: 100, Mode: ModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, "26-27-000001", first.ReceiptNumber)

	_, err = svc.DeletePayment(context.Background(), first.TransactionID, 42)
	require.NoError(t, err)

	second, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID: 1, AcademicYear: testYear, Amount: 100, Mode: ModeCash,
	})
	require.NoError(t, err)
	require.Equal(t, "26-27-000002", second.ReceiptNumber, "retired sequence values must not be reused")
}

func TestConcurrentPaymentsLoseNothing(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	const workers = 8
	const amount = 250.0

	var g errgroup.Group
	for i := 0; i < workers; i++ {
		g.Go(func() error {
			_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
				StudentID:    3,
				AcademicYear: testYear,
				Amount:       amount,
				Mode:         ModeOnline,
			})
			return err
		})
	}
	require.NoError(t, g.Wait())

	acct, err := svc.GetAccount(context.Background(), 3, testYear)
	require.NoError(t, err)
	require.Equal(t, workers*amount, acct.TotalPaid)
	require.Equal(t, StatusPaid, acct.Status)

	txns, err := svc.ListTransactions(context.Background(), 3, testYear)
	require.NoError(t, err)
	require.Len(t, txns, workers)

	receipts := make(map[string]bool, workers)
	for _, txn := range txns {
		require.False(t, receipts[txn.ReceiptNumber], "duplicate receipt %s", txn.ReceiptNumber)
		receipts[txn.ReceiptNumber] = true
	}
}

func TestSyncClassAccounts(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	created, err := svc.SyncClassAccounts(context.Background(), 10, testYear, 42)
	require.NoError(t, err)
	require.Equal(t, 3, created)

	acct, err := svc.GetAccount(context.Background(), 2, testYear)
	require.NoError(t, err)
	require.Equal(t, 1500.0, acct.TotalFee)
	require.Equal(t, StatusPending, acct.Status)

	// Second run finds everything in place.
	created, err = svc.SyncClassAccounts(context.Background(), 10, testYear, 42)
	require.NoError(t, err)
	require.Zero(t, created)
}

func TestSyncClassAccountsZeroFeeDerivesPaid(t *testing.T) {
	repo := newMemoryRepo()
	audit := &recordingAuditor{}
	svc := NewService(repo,
		stubStudents{ids: map[int64]bool{7: true}, classes: map[int64][]int64{20: {7}}},
		stubSchedule{perClass: map[int64]float64{20: 0}},
		stubDuePolicy{}, audit)

	created, err := svc.SyncClassAccounts(context.Background(), 20, testYear, 42)
	require.NoError(t, err)
	require.Equal(t, 1, created)

	// Nothing owed, so the account must not sit in pending.
	acct, err := svc.GetAccount(context.Background(), 7, testYear)
	require.NoError(t, err)
	require.Zero(t, acct.Balance)
	require.Equal(t, StatusPaid, acct.Status)
}

func TestSweepOverdue(t *testing.T) {
	repo := newMemoryRepo()
	svc, _ := newTestService(repo, stubDuePolicy{})

	_, err := svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID: 1, AcademicYear: testYear, Amount: 400, Mode: ModeCash,
	})
	require.NoError(t, err)
	_, err = svc.RecordPayment(context.Background(), RecordPaymentInput{
		StudentID: 2, AcademicYear: testYear, Amount: 1500, Mode: ModeCash,
	})
	require.NoError(t, err)

	// Before the due date the sweep is a no-op.
	n, err := svc.SweepOverdue(context.Background(), testYear)
	require.NoError(t, err)
	require.Zero(t, n)

	svc.due = stubDuePolicy{passed: true}
	n, err = svc.SweepOverdue(context.Background(), testYear)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	acct, err := svc.GetAccount(context.Background(), 1, testYear)
	require.NoError(t, err)
	require.Equal(t, StatusOverdue, acct.Status)

	paid, err := svc.GetAccount(context.Background(), 2, testYear)
	require.NoError(t, err)
	require.Equal(t, StatusPaid, paid.Status)
}
