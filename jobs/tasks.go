// Package jobs defines the background task types and the asynq worker
// that processes them.
package jobs

import (
	"context"
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail delivers one transactional email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeReceiptEmail renders and emails a payment receipt.
	TaskTypeReceiptEmail = "fees:receipt_email"
	// TaskTypeOverdueSweep flips unpaid accounts to overdue after the
	// year's due date.
	TaskTypeOverdueSweep = "fees:overdue_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To          string `json:"to"`
	Subject     string `json:"subject"`
	HTMLBody    string `json:"html_body"`
	Attachment  []byte `json:"attachment,omitempty"`
	AttachName  string `json:"attach_name,omitempty"`
	ContentType string `json:"content_type,omitempty"`
}

// NewSendEmailTask constructs an asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// ReceiptEmailPayload identifies the payment whose receipt should be mailed.
type ReceiptEmailPayload struct {
	TransactionID int64 `json:"transaction_id"`
}

// NewReceiptEmailTask constructs an asynq task.
func NewReceiptEmailTask(payload ReceiptEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeReceiptEmail, data), nil
}

// OverdueSweepPayload scopes one sweep run to an academic year.
type OverdueSweepPayload struct {
	AcademicYear string `json:"academic_year"`
}

// NewOverdueSweepTask constructs an asynq task.
func NewOverdueSweepTask(payload OverdueSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeOverdueSweep, data), nil
}

// Mailer delivers email. The SMTP implementation lives in mailer.go; the
// worker falls back to a log-only mailer when SMTP is not configured.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string, attachment []byte, attachName string) error
}
