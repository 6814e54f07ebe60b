package domain

import (
	"strings"
	"time"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// AllStatuses is the order_status filter value that disables the default
// Processing filter.
const AllStatuses = "All"

// DateLayout is the wire format of calendar dates.
const DateLayout = "2006-01-02"

// StatusMode says how a StatusFilter constrains order_status.
type StatusMode int

const (
	// StatusUnset shows the staff work queue: Processing orders only.
	StatusUnset StatusMode = iota
	// StatusAll applies no order_status constraint.
	StatusAll
	// StatusOnly matches a single status.
	StatusOnly
)

// StatusFilter distinguishes "not supplied" from an explicit "All".
type StatusFilter struct {
	Mode   StatusMode
	Status OrderStatus
}

// Effective returns the status to match and whether one applies.
func (f StatusFilter) Effective() (OrderStatus, bool) {
	switch f.Mode {
	case StatusAll:
		return "", false
	case StatusOnly:
		return f.Status, true
	default:
		return OrderStatusProcessing, true
	}
}

// ParseStatusFilter reads the order_status query parameter.
func ParseStatusFilter(raw string) (StatusFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return StatusFilter{Mode: StatusUnset}, nil
	}
	if strings.EqualFold(raw, AllStatuses) {
		return StatusFilter{Mode: StatusAll}, nil
	}
	for _, s := range OrderStatuses() {
		if strings.EqualFold(raw, string(s)) {
			return StatusFilter{Mode: StatusOnly, Status: s}, nil
		}
	}
	return StatusFilter{}, apperrors.Validationf("unknown order_status %q", raw)
}

// OrderQuery is a sparse set of fulfillment filter criteria. Nil fields are
// not filtered on.
type OrderQuery struct {
	Date           *time.Time
	ItemsSearch    *string
	OrderStatus    StatusFilter
	PaymentMethod  *string
	ShippingMethod *string
	PaymentStatus  *string
}

// FilterOptions are the distinct non-empty values currently stored in each
// filterable column.
type FilterOptions struct {
	OrderStatus    []string `json:"order_status"`
	PaymentMethod  []string `json:"payment_method"`
	ShippingMethod []string `json:"shipping_method"`
	PaymentStatus  []string `json:"payment_status"`
}

// OptionColumn names a column whose distinct values feed FilterOptions.
type OptionColumn string

const (
	OptionOrderStatus    OptionColumn = "order_status"
	OptionPaymentMethod  OptionColumn = "payment_method"
	OptionShippingMethod OptionColumn = "shipping_method"
	OptionPaymentStatus  OptionColumn = "payment_status"
)

// OptionColumns lists the filterable columns.
func OptionColumns() []OptionColumn {
	return []OptionColumn{OptionOrderStatus, OptionPaymentMethod, OptionShippingMethod, OptionPaymentStatus}
}

// Set stores values under column.
func (o *FilterOptions) Set(column OptionColumn, values []string) {
	switch column {
	case OptionOrderStatus:
		o.OrderStatus = values
	case OptionPaymentMethod:
		o.PaymentMethod = values
	case OptionShippingMethod:
		o.ShippingMethod = values
	case OptionPaymentStatus:
		o.PaymentStatus = values
	}
}

// FulfillmentView is one page of the fulfillment dashboard.
type FulfillmentView struct {
	Orders  []Order       `json:"orders"`
	Options FilterOptions `json:"options"`
}
