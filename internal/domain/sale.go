package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MoneyPlaces is the number of decimal places money is rounded to.
const MoneyPlaces = 2

// CartLine is one priced line of a sale.
type CartLine struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity"`
}

// Total returns price * quantity.
func (l CartLine) Total() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals are the money figures of a sale.
type Totals struct {
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// ComputeTotals prices lines at rate. Tax is rounded half away from zero to
// cents before it is added, so Total == Subtotal + TaxAmount exactly.
func ComputeTotals(lines []CartLine, rate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.Total())
	}
	tax := subtotal.Mul(rate).Round(MoneyPlaces)
	return Totals{
		Subtotal:  subtotal,
		TaxRate:   rate,
		TaxAmount: tax,
		Total:     subtotal.Add(tax).Round(MoneyPlaces),
	}
}

// Sale is the receipt returned to the register after checkout.
type Sale struct {
	OrderID       string           `json:"orderId"`
	Items         []CartLine       `json:"items"`
	Subtotal      decimal.Decimal  `json:"subtotal"`
	TaxRate       decimal.Decimal  `json:"taxRate"`
	TaxAmount     decimal.Decimal  `json:"taxAmount"`
	Total         decimal.Decimal  `json:"total"`
	PaymentMethod PaymentMethod    `json:"paymentMethod"`
	PaymentStatus PaymentStatus    `json:"paymentStatus"`
	CashReceived  *decimal.Decimal `json:"cashReceived,omitempty"`
	ChangeAmount  *decimal.Decimal `json:"changeAmount,omitempty"`
	Timestamp     time.Time        `json:"timestamp"`
}

// SaleFromOrder rebuilds the receipt of a stored order for a reprint. The
// tax amount is the stored total less the line subtotal; rate is only
// reported. Cash tendered is not stored, so no change is shown.
func SaleFromOrder(o *Order, rate decimal.Decimal) *Sale {
	lines := make([]CartLine, 0, len(o.Lines))
	for _, l := range o.Lines {
		lines = append(lines, CartLine{SKU: l.SKU, Name: l.Name, Price: l.Price, Quantity: l.Quantity})
	}
	subtotal := o.Subtotal()
	return &Sale{
		OrderID:       o.ID,
		Items:         lines,
		Subtotal:      subtotal,
		TaxRate:       rate,
		TaxAmount:     o.Total.Sub(subtotal),
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		PaymentStatus: o.PaymentStatus,
		Timestamp:     o.CreatedAt,
	}
}

// ImpliedTaxRate recovers the rate an order was taxed at from its stored
// total, to four places. It is zero for an order with no subtotal.
func ImpliedTaxRate(o *Order) decimal.Decimal {
	subtotal := o.Subtotal()
	if subtotal.IsZero() {
		return decimal.Zero
	}
	return o.Total.Sub(subtotal).Div(subtotal).Round(4)
}
