package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"

	"github.com/beacon-sis/beacon/internal/ledger"
	"github.com/beacon-sis/beacon/internal/shared"
	"github.com/beacon-sis/beacon/internal/students"
	_ "github.com/beacon-sis/beacon/internal/testing/guard"
	"github.com/beacon-sis/beacon/report"
)

type stubSweeper struct {
	swept map[string]int64
}

func (s *stubSweeper) SweepOverdue(_ context.Context, year string) (int64, error) {
	s.swept[year] = 3
	return 3, nil
}

type stubLedgerSource struct {
	txn  *ledger.FeeTransaction
	acct *ledger.FeeAccount
}

func (s *stubLedgerSource) GetTransaction(_ context.Context, id int64) (*ledger.FeeTransaction, error) {
	if s.txn == nil || s.txn.ID != id {
		return nil, fmt.Errorf("%w: fee transaction", shared.ErrNotFound)
	}
	return s.txn, nil
}

func (s *stubLedgerSource) GetAccount(context.Context, int64, string) (*ledger.FeeAccount, error) {
	return s.acct, nil
}

type stubStudentSource struct {
	student *students.Student
}

func (s *stubStudentSource) Get(context.Context, int64) (*students.Student, error) {
	return s.student, nil
}

func (s *stubStudentSource) GetClass(context.Context, int64) (*students.Class, error) {
	return &students.Class{ID: 1, Name: "Grade 6", Section: "B"}, nil
}

type recordingMailer struct {
	to      string
	subject string
	body    string
}

func (m *recordingMailer) Send(_ context.Context, to, subject, htmlBody string, _ []byte, _ string) error {
	m.to = to
	m.subject = subject
	m.body = htmlBody
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestHandleOverdueSweep(t *testing.T) {
	sweeper := &stubSweeper{swept: map[string]int64{}}
	h := &Handlers{Sweeper: sweeper, Logger: discardLogger()}

	task, err := NewOverdueSweepTask(OverdueSweepPayload{AcademicYear: "2026-2027"})
	require.NoError(t, err)
	require.NoError(t, h.HandleOverdueSweep(context.Background(), task))
	require.Equal(t, int64(3), sweeper.swept["2026-2027"])
}

func TestHandleOverdueSweepEmptyYearUsesCurrent(t *testing.T) {
	sweeper := &stubSweeper{swept: map[string]int64{}}
	h := &Handlers{Sweeper: sweeper, Logger: discardLogger()}

	// Cron registrations enqueue an empty payload so a worker that
	// outlives the April rollover sweeps the right year.
	task, err := NewOverdueSweepTask(OverdueSweepPayload{})
	require.NoError(t, err)
	require.NoError(t, h.HandleOverdueSweep(context.Background(), task))

	want := shared.CurrentAcademicYear(time.Now())
	require.Equal(t, int64(3), sweeper.swept[want])
}

func TestHandleOverdueSweepBadPayload(t *testing.T) {
	h := &Handlers{Sweeper: &stubSweeper{swept: map[string]int64{}}, Logger: discardLogger()}

	task := asynq.NewTask(TaskTypeOverdueSweep, []byte("not json"))
	err := h.HandleOverdueSweep(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
}

func receiptHandlers(mailer Mailer, guardianEmail string) *Handlers {
	ledgerSrc := &stubLedgerSource{
		txn: &ledger.FeeTransaction{
			ID:              11,
			StudentID:       1,
			AcademicYear:    "2026-2027",
			ReceiptNumber:   "26-27-000011",
			AmountPaid:      500,
			PaymentMode:     ledger.ModeCash,
			TransactionDate: time.Now(),
		},
		acct: &ledger.FeeAccount{
			StudentID: 1, AcademicYear: "2026-2027", TotalFee: 1000, TotalPaid: 500,
			Balance: 500, Status: ledger.StatusPartial,
		},
	}
	studentSrc := &stubStudentSource{student: &students.Student{
		ID: 1, AdmissionNo: "ADM-1", FullName: "Asha Rao", ClassID: 1,
		GuardianEmail: guardianEmail,
	}}
	return &Handlers{
		Assembler: report.NewAssembler(ledgerSrc, studentSrc, "Beacon Public School"),
		Mailer:    mailer,
		Logger:    discardLogger(),
	}
}

func TestHandleReceiptEmail(t *testing.T) {
	mailer := &recordingMailer{}
	h := receiptHandlers(mailer, "parent@beacon.test")

	task, err := NewReceiptEmailTask(ReceiptEmailPayload{TransactionID: 11})
	require.NoError(t, err)
	require.NoError(t, h.HandleReceiptEmail(context.Background(), task))

	require.Equal(t, "parent@beacon.test", mailer.to)
	require.Contains(t, mailer.subject, "26-27-000011")
	require.Contains(t, mailer.body, "Asha Rao")
}

func TestHandleReceiptEmailNoGuardianAddress(t *testing.T) {
	mailer := &recordingMailer{}
	h := receiptHandlers(mailer, "")

	task, err := NewReceiptEmailTask(ReceiptEmailPayload{TransactionID: 11})
	require.NoError(t, err)
	require.NoError(t, h.HandleReceiptEmail(context.Background(), task))
	require.Empty(t, mailer.to)
}

func TestTaskPayloadRoundTrip(t *testing.T) {
	task, err := NewReceiptEmailTask(ReceiptEmailPayload{TransactionID: 42})
	require.NoError(t, err)
	require.Equal(t, TaskTypeReceiptEmail, task.Type())

	var payload ReceiptEmailPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	require.Equal(t, int64(42), payload.TransactionID)
}
