// Package taxrate resolves the sales tax rate applied at checkout.
package taxrate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/httpclient"
)

// Provider returns the tax rate to charge, as a fraction (0.0825 = 8.25%).
type Provider interface {
	TaxRate(ctx context.Context) (decimal.Decimal, error)
}

// Static always returns the same rate.
type Static decimal.Decimal

// TaxRate implements Provider.
func (s Static) TaxRate(context.Context) (decimal.Decimal, error) {
	return decimal.Decimal(s), nil
}

// Validate reports whether rate is usable: 0 <= rate < 1.
func Validate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return apperrors.Validationf("tax rate must be in [0, 1), got %s", rate)
	}
	return nil
}

type settingsResponse struct {
	TaxRate *decimal.Decimal `json:"tax_rate"`
}

// SettingsClient reads the rate from the business-settings service. A good
// answer is cached for cacheTTL. When the service fails, the last good rate
// is used, and the configured default when there is none.
type SettingsClient struct {
	client   *httpclient.BreakerClient
	url      string
	fallback decimal.Decimal
	cacheTTL time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu        sync.Mutex
	last      decimal.Decimal
	hasLast   bool
	fetchedAt time.Time
}

// NewSettingsClient creates a client for GET url.
func NewSettingsClient(client *httpclient.BreakerClient, url string, fallback decimal.Decimal, cacheTTL time.Duration, logger *slog.Logger) *SettingsClient {
	return &SettingsClient{
		client:   client,
		url:      url,
		fallback: fallback,
		cacheTTL: cacheTTL,
		logger:   logger,
		now:      time.Now,
	}
}

// TaxRate implements Provider. It never fails.
func (c *SettingsClient) TaxRate(ctx context.Context) (decimal.Decimal, error) {
	c.mu.Lock()
	if c.hasLast && c.now().Sub(c.fetchedAt) < c.cacheTTL {
		rate := c.last
		c.mu.Unlock()
		return rate, nil
	}
	c.mu.Unlock()

	rate, err := c.fetch(ctx)
	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.client.RecordFallback(ctx, err)
		if c.hasLast {
			return c.last, nil
		}
		return c.fallback, nil
	}

	c.last, c.hasLast, c.fetchedAt = rate, true, c.now()
	return rate, nil
}

func (c *SettingsClient) fetch(ctx context.Context) (decimal.Decimal, error) {
	resp, err := c.client.Get(ctx, c.url)
	if err != nil {
		return decimal.Zero, fmt.Errorf("get business settings: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, httpclient.ParseResponseError(resp, "business-settings")
	}
	defer func() { _ = resp.Body.Close() }()

	var body settingsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return decimal.Zero, fmt.Errorf("decode business settings: %w", err)
	}
	if body.TaxRate == nil {
		return decimal.Zero, fmt.Errorf("business settings have no tax_rate")
	}
	if err := Validate(*body.TaxRate); err != nil {
		return decimal.Zero, err
	}
	return *body.TaxRate, nil
}
