package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

// Template names used for metrics labels and file transport naming.
const (
	TemplateInvoice             = "invoice"
	TemplateSubscriptionRequest = "subscription_request"
	TemplateWelcome             = "welcome"
)

// InvoiceEmail carries the fields rendered into the invoice notification.
type InvoiceEmail struct {
	To             string
	UserName       string
	InvoiceNumber  string
	Amount         float64
	DurationMonths int
	StartDate      time.Time
	EndDate        time.Time
}

// RequestEmail carries the fields rendered into the admin notification for a
// new subscription request.
type RequestEmail struct {
	To        string
	UserName  string
	UserEmail string
	Plan      string
	RequestID uint
	Message   string
	AdminURL  string
}

var invoiceTemplate = template.Must(template.New(TemplateInvoice).Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #4CAF50; color: white; padding: 20px; text-align: center; }
.content { background: #f9f9f9; padding: 20px; margin-top: 20px; }
.invoice-details { background: white; padding: 20px; margin-top: 20px; border-radius: 5px; }
.footer { text-align: center; margin-top: 30px; color: #666; font-size: 12px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 10px; text-align: left; border-bottom: 1px solid #ddd; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>Subscription Invoice</h1></div>
  <div class="content">
    <p>Dear {{.UserName}},</p>
    <p>Thank you for your subscription! Your payment has been processed successfully.</p>
  </div>
  <div class="invoice-details">
    <h2>Invoice Details</h2>
    <table>
      <tr><th>Invoice Number:</th><td>{{.InvoiceNumber}}</td></tr>
      <tr><th>Amount:</th><td>${{printf "%.2f" .Amount}}</td></tr>
      <tr><th>Duration:</th><td>{{.DurationMonths}} month(s)</td></tr>
      <tr><th>Start Date:</th><td>{{.StartDate.Format "Jan 2, 2006"}}</td></tr>
      <tr><th>End Date:</th><td>{{.EndDate.Format "Jan 2, 2006"}}</td></tr>
      <tr><th>Status:</th><td><strong>PAID</strong></td></tr>
    </table>
  </div>
  <div class="footer">
    <p>Thank you for your business!</p>
    <p>If you have any questions, please contact us.</p>
  </div>
</div>
</body>
</html>
`))

var requestTemplate = template.Must(template.New(TemplateSubscriptionRequest).Parse(`<!DOCTYPE html>
<html>
<head>
<style>
body { font-family: Arial, sans-serif; line-height: 1.6; color: #333; }
.container { max-width: 600px; margin: 0 auto; padding: 20px; }
.header { background: #3498db; color: white; padding: 20px; text-align: center; }
.content { background: #f9f9f9; padding: 20px; margin-top: 20px; }
.request-details { background: white; padding: 20px; margin-top: 20px; border-radius: 5px; }
.footer { text-align: center; margin-top: 30px; color: #666; font-size: 12px; }
table { width: 100%; border-collapse: collapse; }
th, td { padding: 10px; text-align: left; border-bottom: 1px solid #ddd; }
.action-button { background: #27ae60; color: white; padding: 12px 24px; text-decoration: none; border-radius: 5px; display: inline-block; margin: 10px 5px; }
</style>
</head>
<body>
<div class="container">
  <div class="header"><h1>New Subscription Request</h1></div>
  <div class="content">
    <p>A user has requested a subscription to your marketplace platform.</p>
  </div>
  <div class="request-details">
    <h2>Request Details</h2>
    <table>
      <tr><th>User Name:</th><td>{{.UserName}}</td></tr>
      <tr><th>Email:</th><td>{{.UserEmail}}</td></tr>
      <tr><th>Plan:</th><td>{{.Plan}}</td></tr>
      <tr><th>Request ID:</th><td>#{{.RequestID}}</td></tr>
      <tr><th>Message:</th><td>{{if .Message}}{{.Message}}{{else}}No message provided{{end}}</td></tr>
    </table>
    <div style="text-align: center; margin-top: 20px;">
      <a href="{{.AdminURL}}" class="action-button">Manage Subscription</a>
    </div>
  </div>
  <div class="footer">
    <p>This is an automated notification from your marketplace platform.</p>
    <p>Please log in to your admin panel to process this request.</p>
  </div>
</div>
</body>
</html>
`))

var welcomeTemplate = template.Must(template.New(TemplateWelcome).Parse(`<h2>Welcome {{.UserName}}!</h2>
<p>Thank you for registering on our marketplace platform.</p>
<p>You can now:</p>
<ul>
  <li>Create and publish posts</li>
  <li>Browse other users' posts</li>
  <li>Subscribe to access contact information</li>
</ul>
<p>Best regards,<br>The Marketplace Team</p>
`))

func renderInvoice(data InvoiceEmail) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render invoice email: %w", err)
	}
	return buf.String(), nil
}

func renderRequest(data RequestEmail) (string, error) {
	var buf bytes.Buffer
	if err := requestTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render request email: %w", err)
	}
	return buf.String(), nil
}

func renderWelcome(userName string) (string, error) {
	var buf bytes.Buffer
	if err := welcomeTemplate.Execute(&buf, struct{ UserName string }{userName}); err != nil {
		return "", fmt.Errorf("render welcome email: %w", err)
	}
	return buf.String(), nil
}
