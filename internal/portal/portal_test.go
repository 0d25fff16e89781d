package portal

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const loginPage = `<html><body>
<form><input name="username"><input type="password" name="password">
<button type="submit">Sign in</button></form>
</body></html>`

const uploadPage = `<html><body>
<h5>Upload Orders</h5>
<textarea placeholder="Note"></textarea>
<input type="file" accept=".csv">
<button class="btn">  Upload   Order </button>
</body></html>`

func TestInspectPage_Login(t *testing.T) {
	state, err := InspectPage(loginPage)
	require.NoError(t, err)
	assert.True(t, state.LoginForm)
	assert.True(t, state.SubmitButton)
	assert.False(t, state.FileInput)
}

func TestInspectPage_Upload(t *testing.T) {
	state, err := InspectPage(uploadPage)
	require.NoError(t, err)
	assert.False(t, state.LoginForm)
	assert.True(t, state.FileInput)
	assert.True(t, state.NoteField)
	assert.False(t, state.SubmitButton)
	// The caption is split by whitespace, so it does not count as "Upload Order".
	assert.False(t, state.UploadOrderButton)

	state, err = InspectPage(`<button>Upload Order</button>`)
	require.NoError(t, err)
	assert.True(t, state.UploadOrderButton)
}

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		name string
		html string
		want Outcome
	}{
		{
			name: "success toast",
			html: `<div class="Toastify__toast Toastify__toast--success"> Order
				uploaded successfully </div>`,
			want: Outcome{Status: OutcomeSuccess, Message: "Order uploaded successfully"},
		},
		{
			name: "error wins",
			html: `<div class="Toastify__toast--success">ok</div><div class="Toastify__toast--error">Invalid CSV header</div>`,
			want: Outcome{Status: OutcomeError, Message: "Invalid CSV header"},
		},
		{
			name: "nothing yet",
			html: `<html><body><h5>Upload Orders</h5></body></html>`,
			want: Outcome{Status: OutcomePending},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseOutcome(tt.html)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestUpload_RequiresCredentials(t *testing.T) {
	u := New(Config{URL: "https://portal.example/upload"})
	assert.False(t, u.Configured())

	_, err := u.Upload(context.Background(), "orders.csv")
	assert.True(t, errors.Is(err, ErrNotConfigured))
}
