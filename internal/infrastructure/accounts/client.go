// Package accounts talks to the CRM core account API to validate that a
// tenant account exists before a session is provisioned for it.
package accounts

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"zapcrm/messaging-gateway/internal/config"
	"zapcrm/messaging-gateway/internal/domain/tenant"
)

// Client implements tenant.AccountRegistry against the CRM core HTTP API.
type Client struct {
	http    *resty.Client
	baseURL string
	log     zerolog.Logger
}

var _ tenant.AccountRegistry = (*Client)(nil)

func NewClient(cfg *config.Config, log zerolog.Logger) *Client {
	httpClient := resty.New().
		SetTimeout(cfg.AccountAPITimeout).
		SetHeader("User-Agent", "zapcrm-messaging-gateway/1.0")
	if cfg.AccountAPIKey != "" {
		httpClient.SetHeader("Authorization", "Bearer "+cfg.AccountAPIKey)
	}
	return &Client{
		http:    httpClient,
		baseURL: cfg.AccountAPIURL,
		log:     log.With().Str("component", "account-client").Logger(),
	}
}

// ValidateAccount reports whether the account exists in the CRM core.
func (c *Client) ValidateAccount(ctx context.Context, accountID string) (bool, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/v1/accounts/%s", c.baseURL, accountID))
	if err != nil {
		return false, fmt.Errorf("query account %s: %w", accountID, err)
	}
	switch resp.StatusCode() {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		c.log.Warn().Str("account_id", accountID).Int("status", resp.StatusCode()).Msg("unexpected account API response")
		return false, fmt.Errorf("account API returned status %d", resp.StatusCode())
	}
}
