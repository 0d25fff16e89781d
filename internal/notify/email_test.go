package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/mail"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testMailer() *Mailer {
	m := NewMailer(SMTPConfig{
		Host:      "smtp.example.com",
		Username:  "ops@example.com",
		Password:  "app-password",
		From:      "ops@example.com",
		To:        "reviewer@example.com",
		PublicURL: "https://ops.example.com/",
	})
	m.now = func() time.Time { return time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC) }
	return m
}

func TestBuild_MessageStructure(t *testing.T) {
	m := testMailer()
	csv := []byte("\uFEFFCategory,Model\nPremium Tough Case,iPhone 15\n")

	raw, err := m.Build(Approval{Filename: "FULFILLMENT-3-4.csv", CSV: csv, OrderCount: 12})
	require.NoError(t, err)

	msg, err := mail.ReadMessage(strings.NewReader(string(raw)))
	require.NoError(t, err)
	assert.Equal(t, "reviewer@example.com", msg.Header.Get("To"))

	subject, err := new(mime.WordDecoder).DecodeHeader(msg.Header.Get("Subject"))
	require.NoError(t, err)
	assert.Equal(t, "[ACTION REQUIRED] Fulfillment Approval: FULFILLMENT-3-4.csv", subject)

	mediaType, params, err := mime.ParseMediaType(msg.Header.Get("Content-Type"))
	require.NoError(t, err)
	assert.Equal(t, "multipart/mixed", mediaType)

	mr := multipart.NewReader(msg.Body, params["boundary"])

	htmlPart, err := mr.NextPart()
	require.NoError(t, err)
	htmlBody := decodePart(t, htmlPart)
	assert.Contains(t, htmlBody, "Total Orders: <b>12</b>")
	assert.Contains(t, htmlBody, "https://ops.example.com/dashboard?action=approve")

	attachment, err := mr.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "FULFILLMENT-3-4.csv", attachment.FileName())
	assert.Equal(t, string(csv), decodePart(t, attachment))

	_, err = mr.NextPart()
	assert.Equal(t, io.EOF, err)
}

func decodePart(t *testing.T, p *multipart.Part) string {
	t.Helper()
	data, err := io.ReadAll(base64.NewDecoder(base64.StdEncoding, p))
	require.NoError(t, err)
	return string(data)
}

func TestSendApproval_UsesSMTP(t *testing.T) {
	m := testMailer()
	var gotAddr, gotFrom string
	var gotTo []string
	m.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		assert.NotEmpty(t, msg)
		return nil
	}

	err := m.SendApproval(context.Background(), Approval{Filename: "a.csv", CSV: []byte("x"), OrderCount: 1})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "ops@example.com", gotFrom)
	assert.Equal(t, []string{"reviewer@example.com"}, gotTo)
}

func TestSendApproval_Errors(t *testing.T) {
	unconfigured := NewMailer(SMTPConfig{})
	assert.True(t, errors.Is(unconfigured.SendApproval(context.Background(), Approval{}), ErrNotConfigured))

	m := testMailer()
	m.send = func(string, smtp.Auth, string, []string, []byte) error { return errors.New("535 auth failed") }
	err := m.SendApproval(context.Background(), Approval{Filename: "a.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")
}
