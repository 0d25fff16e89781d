// Package notify sends the approval email that carries an export CSV to the reviewer.
package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"mime/multipart"
	"net"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// ErrNotConfigured is returned when SMTP settings are incomplete.
var ErrNotConfigured = errors.New("smtp not configured")

// SMTPConfig configures the approval mailer.
type SMTPConfig struct {
	Host      string
	Port      int
	Username  string
	Password  string
	From      string
	To        string
	PublicURL string // dashboard base URL used in the approve/edit links
	Logger    *zap.Logger
}

// Approval is one approval email.
type Approval struct {
	Filename   string
	CSV        []byte
	OrderCount int
}

// Mailer sends approval emails over SMTP.
type Mailer struct {
	cfg    SMTPConfig
	logger *zap.Logger
	now    func() time.Time
	send   func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewMailer creates a Mailer.
func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:3001"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Mailer{cfg: cfg, logger: logger, now: time.Now, send: smtp.SendMail}
}

// Configured reports whether the mailer can send.
func (m *Mailer) Configured() bool {
	return m.cfg.Host != "" && m.cfg.From != "" && m.cfg.To != ""
}

// SendApproval emails the CSV as an attachment.
func (m *Mailer) SendApproval(ctx context.Context, a Approval) error {
	if !m.Configured() {
		return ErrNotConfigured
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := m.Build(a)
	if err != nil {
		return err
	}

	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	if err := m.send(addr, auth, m.cfg.From, []string{m.cfg.To}, msg); err != nil {
		return fmt.Errorf("failed to send approval email: %w", err)
	}
	m.logger.Info("approval email sent", zap.String("filename", a.Filename), zap.Int("orders", a.OrderCount))
	return nil
}

var bodyTemplate = template.Must(template.New("approval").Parse(`<h2>Fulfillment CSV Generated</h2>
<p>Please review the attached CSV file.</p>
<h3>Summary</h3>
<p>Total Orders: <b>{{.OrderCount}}</b></p>
<div style="margin: 30px 0;">
  <a href="{{.ApproveURL}}" style="background-color: #10B981; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: bold; margin-right: 15px;">APPROVE &amp; UPLOAD</a>
  <a href="{{.EditURL}}" style="background-color: #3B82F6; color: white; padding: 12px 24px; text-decoration: none; border-radius: 6px; font-weight: bold;">EDIT CSV</a>
</div>
<p style="color: #666; font-size: 12px; margin-top: 30px;">Clicking 'Edit' will open the dashboard where you can modify the order details before sending.</p>
`))

// Build renders the MIME message: an HTML body and the CSV attachment.
func (m *Mailer) Build(a Approval) ([]byte, error) {
	var body bytes.Buffer
	base := strings.TrimSuffix(m.cfg.PublicURL, "/")
	if err := bodyTemplate.Execute(&body, map[string]any{
		"OrderCount": a.OrderCount,
		"ApproveURL": base + "/dashboard?action=approve",
		"EditURL":    base + "/dashboard?action=edit",
	}); err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	headers := []string{
		"From: " + m.cfg.From,
		"To: " + m.cfg.To,
		"Subject: " + mime.QEncoding.Encode("utf-8", "[ACTION REQUIRED] Fulfillment Approval: "+a.Filename),
		"Date: " + m.now().Format(time.RFC1123Z),
		"MIME-Version: 1.0",
		"Content-Type: multipart/mixed; boundary=" + mw.Boundary(),
	}
	header := strings.Join(headers, "\r\n") + "\r\n\r\n"

	htmlPart, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {"text/html; charset=utf-8"},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(htmlPart, body.Bytes()); err != nil {
		return nil, err
	}

	attachment, err := mw.CreatePart(textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType("text/csv", map[string]string{"charset": "utf-8", "name": a.Filename})},
		"Content-Disposition":       {mime.FormatMediaType("attachment", map[string]string{"filename": a.Filename})},
		"Content-Transfer-Encoding": {"base64"},
	})
	if err != nil {
		return nil, err
	}
	if err := writeBase64(attachment, a.CSV); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	return append([]byte(header), buf.Bytes()...), nil
}

// writeBase64 writes data base64-encoded in 76-character lines.
func writeBase64(w interface{ Write([]byte) (int, error) }, data []byte) error {
	encoded := base64.StdEncoding.EncodeToString(data)
	for len(encoded) > 76 {
		if _, err := w.Write([]byte(encoded[:76] + "\r\n")); err != nil {
			return err
		}
		encoded = encoded[76:]
	}
	_, err := w.Write([]byte(encoded + "\r\n"))
	return err
}
