package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order is a committed sale. It is created once by checkout and afterwards
// changed only one field at a time by staff.
type Order struct {
	ID              string          `json:"id"`
	UserID          *string         `json:"user_id,omitempty"`
	CreatedAt       time.Time       `json:"date"`
	Total           decimal.Decimal `json:"total"`
	OrderStatus     OrderStatus     `json:"order_status"`
	PaymentStatus   PaymentStatus   `json:"payment_status"`
	PaymentMethod   PaymentMethod   `json:"payment_method"`
	PaymentDate     *time.Time      `json:"payment_date,omitempty"`
	ShippingMethod  ShippingMethod  `json:"shipping_method"`
	ShippingAddress *Address        `json:"shipping_address,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	PaymentNotes    string          `json:"payment_notes,omitempty"`
	Lines           []OrderLine     `json:"items"`

	// Joined from the customer record for display; empty for guests.
	CustomerName    string   `json:"customer_name,omitempty"`
	CustomerEmail   string   `json:"customer_email,omitempty"`
	CustomerAddress *Address `json:"customer_address,omitempty"`
}

// OrderLine is one SKU of an order. Price is the retail price when the order
// was placed and never follows later catalog changes.
type OrderLine struct {
	OrderID  string          `json:"order_id"`
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// Subtotal returns price * quantity.
func (l OrderLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Address is a shipping address. It is stored serialized as JSON text.
type Address struct {
	Line1   string `json:"address_line1"`
	Line2   string `json:"address_line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// IsZero reports whether no address field is set.
func (a *Address) IsZero() bool {
	return a == nil || *a == Address{}
}

// Subtotal sums the order lines.
func (o *Order) Subtotal() decimal.Decimal {
	sum := decimal.Zero
	for _, l := range o.Lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}
