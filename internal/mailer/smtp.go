package mailer

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"

	"tradepost/internal/config"
	"tradepost/internal/middleware"
)

// SMTPMailer delivers mail over SMTP with mandatory STARTTLS.
type SMTPMailer struct {
	host string
	port string
	user string
	pass string
	from string
	log  *slog.Logger
}

// NewSMTPMailer returns a Mailer backed by the configured SMTP server.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		host: cfg.SMTPHost,
		port: cfg.SMTPPort,
		user: cfg.SMTPUser,
		pass: cfg.SMTPPassword,
		from: cfg.EmailFrom,
		log:  middleware.Logger,
	}
}

func (m *SMTPMailer) connect() (*smtp.Client, error) {
	addr := net.JoinHostPort(m.host, m.port)

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("dial SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, m.host)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("create SMTP client: %w", err)
	}

	if ok, _ := client.Extension("STARTTLS"); !ok {
		_ = client.Close()
		return nil, fmt.Errorf("smtp server does not support STARTTLS")
	}
	tlsConfig := &tls.Config{
		ServerName: m.host,
		MinVersion: tls.VersionTLS12,
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("start TLS: %w", err)
	}

	if m.user != "" {
		auth := smtp.PlainAuth("", m.user, m.pass, m.host)
		if err := client.Auth(auth); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("smtp auth: %w", err)
		}
	}

	return client, nil
}

func (m *SMTPMailer) send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	client, err := m.connect()
	if err != nil {
		return err
	}
	defer func() {
		if quitErr := client.Quit(); quitErr != nil {
			_ = client.Close()
		}
	}()

	if err := client.Mail(m.from); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := client.Rcpt(to); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := writer.Write(buildMessage(m.from, to, subject, htmlBody)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("write message body: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("finish message: %w", err)
	}
	return nil
}

// SendInvoice delivers the invoice notification to the subscriber.
func (m *SMTPMailer) SendInvoice(ctx context.Context, data InvoiceEmail) (Result, error) {
	body, err := renderInvoice(data)
	if err != nil {
		recordDispatch(TemplateInvoice, err)
		return Result{}, err
	}

	subject := fmt.Sprintf("Invoice %s - Subscription Payment", data.InvoiceNumber)
	err = m.send(ctx, data.To, subject, body)
	recordDispatch(TemplateInvoice, err)
	if err != nil {
		m.log.Error("invoice email dispatch failed",
			slog.String("to", data.To),
			slog.String("invoice_number", data.InvoiceNumber),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}

	m.log.Info("invoice email sent",
		slog.String("to", data.To),
		slog.String("invoice_number", data.InvoiceNumber),
	)
	return Result{Sent: true}, nil
}

// SendSubscriptionRequest notifies the admin of a new pending request.
func (m *SMTPMailer) SendSubscriptionRequest(ctx context.Context, data RequestEmail) (Result, error) {
	body, err := renderRequest(data)
	if err != nil {
		recordDispatch(TemplateSubscriptionRequest, err)
		return Result{}, err
	}

	subject := fmt.Sprintf("New Subscription Request - %s", data.UserName)
	err = m.send(ctx, data.To, subject, body)
	recordDispatch(TemplateSubscriptionRequest, err)
	if err != nil {
		m.log.Error("subscription request email dispatch failed",
			slog.String("to", data.To),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}

	m.log.Info("subscription request email sent", slog.String("to", data.To))
	return Result{Sent: true}, nil
}

// SendWelcome greets a newly registered user.
func (m *SMTPMailer) SendWelcome(ctx context.Context, to, userName string) (Result, error) {
	body, err := renderWelcome(userName)
	if err != nil {
		recordDispatch(TemplateWelcome, err)
		return Result{}, err
	}

	err = m.send(ctx, to, "Welcome to Our Marketplace!", body)
	recordDispatch(TemplateWelcome, err)
	if err != nil {
		m.log.Error("welcome email dispatch failed",
			slog.String("to", to),
			slog.String("error", err.Error()),
		)
		return Result{}, err
	}
	return Result{Sent: true}, nil
}
