package mailer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
)

// FileMailer writes rendered messages to a local directory instead of
// delivering them. Used in development and tests where no SMTP server is
// available; the returned PreviewURL points at the written file.
type FileMailer struct {
	from string
	dir  string
	seq  atomic.Uint64
}

// NewFileMailer returns a file-backed Mailer. An empty dir defaults to a
// tradepost-mail directory under the system temp dir.
func NewFileMailer(from, dir string) *FileMailer {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "tradepost-mail")
	}
	return &FileMailer{from: from, dir: dir}
}

func (m *FileMailer) write(template, to, subject, htmlBody string) (Result, error) {
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("create mail directory: %w", err)
	}

	name := fmt.Sprintf("%d-%d-%s.html", time.Now().UnixMilli(), m.seq.Add(1), template)
	path := filepath.Join(m.dir, name)
	msg := buildMessage(m.from, to, subject, htmlBody)
	if err := os.WriteFile(path, msg, 0o644); err != nil {
		return Result{}, fmt.Errorf("write mail file: %w", err)
	}
	return Result{Sent: true, PreviewURL: "file://" + path}, nil
}

// SendInvoice writes the invoice notification to disk.
func (m *FileMailer) SendInvoice(_ context.Context, data InvoiceEmail) (Result, error) {
	body, err := renderInvoice(data)
	if err != nil {
		recordDispatch(TemplateInvoice, err)
		return Result{}, err
	}
	subject := fmt.Sprintf("Invoice %s - Subscription Payment", data.InvoiceNumber)
	result, err := m.write(TemplateInvoice, data.To, subject, body)
	recordDispatch(TemplateInvoice, err)
	return result, err
}

// SendSubscriptionRequest writes the admin notification to disk.
func (m *FileMailer) SendSubscriptionRequest(_ context.Context, data RequestEmail) (Result, error) {
	body, err := renderRequest(data)
	if err != nil {
		recordDispatch(TemplateSubscriptionRequest, err)
		return Result{}, err
	}
	subject := fmt.Sprintf("New Subscription Request - %s", data.UserName)
	result, err := m.write(TemplateSubscriptionRequest, data.To, subject, body)
	recordDispatch(TemplateSubscriptionRequest, err)
	return result, err
}

// SendWelcome writes the welcome message to disk.
func (m *FileMailer) SendWelcome(_ context.Context, to, userName string) (Result, error) {
	body, err := renderWelcome(userName)
	if err != nil {
		recordDispatch(TemplateWelcome, err)
		return Result{}, err
	}
	result, err := m.write(TemplateWelcome, to, "Welcome to Our Marketplace!", body)
	recordDispatch(TemplateWelcome, err)
	return result, err
}
