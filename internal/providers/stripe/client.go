package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Client is the narrow slice of the provider API the reconcilers need:
// resolving a charge to its payment intent when a dispute arrives.
type Client interface {
	GetCharge(ctx context.Context, chargeID string) (*Charge, error)
}

type Charge struct {
	ID              string `json:"id"`
	PaymentIntentID string `json:"payment_intent"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

var ErrNotConfigured = errors.New("stripe_api_not_configured")

type Config struct {
	APIKey  string
	BaseURL string
}

type HTTPClient struct {
	cfg    Config
	client *http.Client
}

func NewHTTPClient(cfg Config) *HTTPClient {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = "https://api.stripe.com"
	}
	cfg.BaseURL = base
	return &HTTPClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *HTTPClient) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	chargeID = strings.TrimSpace(chargeID)
	if chargeID == "" {
		return nil, errors.New("charge id is empty")
	}
	if strings.TrimSpace(c.cfg.APIKey) == "" {
		return nil, ErrNotConfigured
	}

	url := fmt.Sprintf("%s/v1/charges/%s", c.cfg.BaseURL, chargeID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("stripe charge lookup returned status %d", resp.StatusCode)
	}

	var charge Charge
	if err := json.NewDecoder(resp.Body).Decode(&charge); err != nil {
		return nil, err
	}
	return &charge, nil
}

// NoOpClient is used when no API key is configured; dispute resolution
// then falls back to the charge's own payment reference.
type NoOpClient struct{}

func (NoOpClient) GetCharge(ctx context.Context, chargeID string) (*Charge, error) {
	return nil, ErrNotConfigured
}
