// Package mailer sends transactional email for invoices, subscription
// requests, and account events.
package mailer

import (
	"context"
	"fmt"

	"tradepost/internal/config"
	"tradepost/internal/observability"
)

// Result reports the outcome of a dispatch attempt. PreviewURL is set only
// by the development file transport and points at the rendered message.
type Result struct {
	Sent       bool   `json:"sent"`
	PreviewURL string `json:"preview_url,omitempty"`
}

// Mailer dispatches transactional email. Implementations must be safe for
// concurrent use.
type Mailer interface {
	SendInvoice(ctx context.Context, data InvoiceEmail) (Result, error)
	SendSubscriptionRequest(ctx context.Context, data RequestEmail) (Result, error)
	SendWelcome(ctx context.Context, to, userName string) (Result, error)
}

// NewFromConfig picks the transport: SMTP when a host is configured,
// otherwise the file transport that writes messages to disk for inspection.
func NewFromConfig(cfg *config.Config) Mailer {
	if cfg.SMTPHost != "" {
		return NewSMTPMailer(cfg)
	}
	return NewFileMailer(cfg.EmailFrom, "")
}

func recordDispatch(template string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	observability.MailDispatchTotal.WithLabelValues(template, outcome).Inc()
}

func buildMessage(from, to, subject, htmlBody string) []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=\"UTF-8\"\r\n\r\n%s",
		from, to, subject, htmlBody,
	))
}
