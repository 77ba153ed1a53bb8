package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/beacon-sis/beacon/internal/jobs"
	"github.com/beacon-sis/beacon/internal/shared"
	"github.com/beacon-sis/beacon/report"
)

// OverdueSweeper marks unpaid accounts overdue; the ledger service
// satisfies it.
type OverdueSweeper interface {
	SweepOverdue(ctx context.Context, academicYear string) (int64, error)
}

// Handlers bundles the domain dependencies the task handlers need.
type Handlers struct {
	Sweeper   OverdueSweeper
	Assembler *report.Assembler
	Renderer  *report.Client
	Mailer    Mailer
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
}

// HandleOverdueSweep marks unpaid accounts overdue for the academic year.
// An empty year means the year current at execution time, so a
// long-running cron entry follows the April rollover.
func (h *Handlers) HandleOverdueSweep(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track("overdue_sweep")
	var payload OverdueSweepPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	year := payload.AcademicYear
	if year == "" {
		year = shared.CurrentAcademicYear(time.Now())
	}
	n, err := h.Sweeper.SweepOverdue(ctx, year)
	if err != nil {
		h.Logger.Error("overdue sweep failed", "academic_year", year, "error", err)
		return tracker.End(err)
	}
	h.Logger.Info("overdue sweep done", "academic_year", year, "accounts", n)
	return tracker.End(nil)
}

// HandleReceiptEmail processes fees:receipt_email tasks. Payments for
// students without a guardian email succeed as no-ops.
func (h *Handlers) HandleReceiptEmail(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track("receipt_email")
	var payload ReceiptEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}

	to, err := h.Assembler.GuardianEmail(ctx, payload.TransactionID)
	if err != nil {
		return tracker.End(err)
	}
	if to == "" {
		h.Logger.Info("receipt email skipped, no guardian address", "transaction_id", payload.TransactionID)
		return tracker.End(nil)
	}

	data, err := h.Assembler.ReceiptData(ctx, payload.TransactionID)
	if err != nil {
		return tracker.End(err)
	}
	html, err := report.RenderReceiptHTML(*data)
	if err != nil {
		return tracker.End(err)
	}

	// PDF attachment is best effort; the HTML body alone is a valid receipt.
	var pdf []byte
	var attachName string
	if h.Renderer != nil {
		if rendered, err := h.Renderer.RenderHTML(ctx, html); err == nil {
			pdf = rendered
			attachName = fmt.Sprintf("receipt-%s.pdf", data.ReceiptNumber)
		} else {
			h.Logger.Warn("receipt pdf render failed", "transaction_id", payload.TransactionID, "error", err)
		}
	}

	subject := fmt.Sprintf("Fee receipt %s for %s", data.ReceiptNumber, data.StudentName)
	if err := h.Mailer.Send(ctx, to, subject, html, pdf, attachName); err != nil {
		h.Logger.Error("receipt email failed", "transaction_id", payload.TransactionID, "error", err)
		return tracker.End(err)
	}
	return tracker.End(nil)
}

// HandleSendEmail processes mail:send tasks.
func (h *Handlers) HandleSendEmail(ctx context.Context, t *asynq.Task) error {
	tracker := h.Metrics.Track("send_email")
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return tracker.End(asynq.SkipRetry)
	}
	return tracker.End(h.Mailer.Send(ctx, payload.To, payload.Subject, payload.HTMLBody, payload.Attachment, payload.AttachName))
}
