package jobs

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
)

// SMTPMailer sends mail through a plain SMTP relay (Mailpit in dev).
type SMTPMailer struct {
	addr string
	from string
	auth smtp.Auth
}

// NewSMTPMailer builds a mailer for host:port. Empty username skips auth.
func NewSMTPMailer(addr, from, username, password string) *SMTPMailer {
	var auth smtp.Auth
	if username != "" {
		host, _, _ := cutHostPort(addr)
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPMailer{addr: addr, from: from, auth: auth}
}

func cutHostPort(addr string) (host, port string, ok bool) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:], true
		}
	}
	return addr, "", false
}

// Send delivers one message, optionally with a single attachment.
func (m *SMTPMailer) Send(_ context.Context, to, subject, htmlBody string, attachment []byte, attachName string) error {
	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", m.from)
	fmt.Fprintf(&msg, "To: %s\r\n", to)
	fmt.Fprintf(&msg, "Subject: %s\r\n", subject)
	msg.WriteString("MIME-Version: 1.0\r\n")

	if len(attachment) == 0 {
		msg.WriteString("Content-Type: text/html; charset=utf-8\r\n\r\n")
		msg.WriteString(htmlBody)
	} else {
		writer := multipart.NewWriter(&msg)
		fmt.Fprintf(&msg, "Content-Type: multipart/mixed; boundary=%s\r\n\r\n", writer.Boundary())

		htmlPart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type": {"text/html; charset=utf-8"},
		})
		if err != nil {
			return err
		}
		if _, err := htmlPart.Write([]byte(htmlBody)); err != nil {
			return err
		}

		attachPart, err := writer.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {"application/pdf"},
			"Content-Transfer-Encoding": {"base64"},
			"Content-Disposition":       {fmt.Sprintf("attachment; filename=%q", attachName)},
		})
		if err != nil {
			return err
		}
		encoded := base64.StdEncoding.EncodeToString(attachment)
		if _, err := attachPart.Write([]byte(encoded)); err != nil {
			return err
		}
		if err := writer.Close(); err != nil {
			return err
		}
	}

	return smtp.SendMail(m.addr, m.auth, m.from, []string{to}, msg.Bytes())
}

// LogMailer records sends without delivering anything. Used when SMTP is
// not configured and in tests.
type LogMailer struct {
	Logger *slog.Logger
}

func (m *LogMailer) Send(_ context.Context, to, subject, _ string, _ []byte, _ string) error {
	if m.Logger != nil {
		m.Logger.Info("mail suppressed", "to", to, "subject", subject)
	}
	return nil
}
