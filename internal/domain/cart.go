package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Cart is the register cart of one POS session.
type Cart struct {
	SessionID string     `json:"session_id"`
	Lines     []CartLine `json:"items"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Totals prices the cart at rate for display. Checkout re-prices from the
// catalog, so these figures are advisory.
func (c *Cart) Totals(rate decimal.Decimal) Totals {
	return ComputeTotals(c.Lines, rate)
}
