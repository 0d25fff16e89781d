package carrier

import (
	"context"
	"errors"
	"net/http"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token string `json:"token"`
}

// Authenticate returns the bearer token, logging in on first use.
// The token is kept for the life of the Client; call ResetToken to force a new login.
func (c *Client) Authenticate(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" {
		return c.token, nil
	}

	var resp loginResponse
	err := c.send(ctx, http.MethodPost, "/v1/external/auth/login", "", loginRequest{
		Email:    c.email,
		Password: c.password,
	}, &resp)
	if err != nil {
		c.logger.Error("authentication failed", fieldsForError(err)...)
		return "", &AuthenticationError{Cause: err}
	}
	if resp.Token == "" {
		return "", &AuthenticationError{Cause: errors.New("login response carried no token")}
	}

	c.token = resp.Token
	return c.token, nil
}

// ResetToken drops the memoized token.
func (c *Client) ResetToken() {
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
}
