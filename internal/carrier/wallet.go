package carrier

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type accountDetailsResponse struct {
	Data struct {
		WalletBalance *flexFloat `json:"wallet_balance"`
	} `json:"data"`
}

// GetWalletBalance returns the prepaid wallet balance.
//
// A nil balance means unknown: the endpoint was unreachable, answered non-2xx, or omitted the
// field. Callers must not treat it as zero. Only an authentication failure is returned as an error.
func (c *Client) GetWalletBalance(ctx context.Context) (*float64, error) {
	token, err := c.Authenticate(ctx)
	if err != nil {
		return nil, err
	}

	var resp accountDetailsResponse
	if err := c.send(ctx, http.MethodGet, "/v1/external/account/details", token, nil, &resp); err != nil {
		c.logger.Warn("failed to fetch wallet balance, skipping check", fieldsForError(err)...)
		return nil, nil
	}
	if resp.Data.WalletBalance == nil {
		c.logger.Warn("wallet balance missing from account details")
		return nil, nil
	}

	balance := float64(*resp.Data.WalletBalance)
	c.logger.Debug("wallet balance", zap.Float64("balance", balance))
	return &balance, nil
}
