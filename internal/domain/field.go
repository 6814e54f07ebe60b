package domain

import (
	"strings"
	"time"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// OrderField is a field staff may change on an existing order. Names are the
// ones the dashboard sends.
type OrderField string

const (
	FieldPaymentStatus  OrderField = "paymentStatus"
	FieldPaymentDate    OrderField = "paymentDate"
	FieldOrderStatus    OrderField = "order_status"
	FieldPaymentMethod  OrderField = "paymentMethod"
	FieldShippingMethod OrderField = "shippingMethod"
)

// fieldColumns is the update allow-list. Nothing outside it is ever written.
var fieldColumns = map[OrderField]string{
	FieldPaymentStatus:  "payment_status",
	FieldPaymentDate:    "payment_date",
	FieldOrderStatus:    "order_status",
	FieldPaymentMethod:  "payment_method",
	FieldShippingMethod: "shipping_method",
}

// Column returns the orders column backing f.
func (f OrderField) Column() string {
	return fieldColumns[f]
}

// FieldUpdate is a validated single-field change to one order.
type FieldUpdate struct {
	OrderID string
	Field   OrderField
	// Value is canonical: enum values in their stored spelling, dates as
	// YYYY-MM-DD, "" for a cleared payment date.
	Value string
}

// NewFieldUpdate checks field against the allow-list first and then
// validates value for that field.
func NewFieldUpdate(orderID, field, value string) (*FieldUpdate, error) {
	f := OrderField(field)
	if _, ok := fieldColumns[f]; !ok {
		return nil, apperrors.Validationf("field %q cannot be updated", field).
			WithDetails(map[string]any{"field": field})
	}
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return nil, apperrors.Validation("orderId is required")
	}

	canonical, err := canonicalValue(f, strings.TrimSpace(value))
	if err != nil {
		return nil, err
	}
	return &FieldUpdate{OrderID: orderID, Field: f, Value: canonical}, nil
}

func canonicalValue(f OrderField, v string) (string, error) {
	switch f {
	case FieldOrderStatus:
		for _, s := range OrderStatuses() {
			if strings.EqualFold(v, string(s)) {
				return string(s), nil
			}
		}
	case FieldPaymentStatus:
		for _, s := range PaymentStatuses() {
			if strings.EqualFold(v, string(s)) {
				return string(s), nil
			}
		}
	case FieldPaymentMethod:
		for _, m := range PaymentMethods() {
			if strings.EqualFold(v, string(m)) {
				return string(m), nil
			}
		}
	case FieldShippingMethod:
		for _, m := range ShippingMethods() {
			if strings.EqualFold(v, string(m)) {
				return string(m), nil
			}
		}
	case FieldPaymentDate:
		if v == "" {
			return "", nil
		}
		if t, err := time.Parse(DateLayout, v); err == nil {
			return t.Format(DateLayout), nil
		}
		return "", apperrors.Validationf("paymentDate must be a date in the form YYYY-MM-DD, got %q", v)
	}
	return "", apperrors.Validationf("%q is not a valid value for %s", v, f).
		WithDetails(map[string]any{"field": string(f), "value": v})
}

// Arg is the value bound to the update statement.
func (u *FieldUpdate) Arg() any {
	if u.Field != FieldPaymentDate {
		return u.Value
	}
	if u.Value == "" {
		return nil
	}
	t, _ := time.Parse(DateLayout, u.Value)
	return t
}

// Current returns o's value of the field in canonical form.
func (u *FieldUpdate) Current(o *Order) string {
	switch u.Field {
	case FieldOrderStatus:
		return string(o.OrderStatus)
	case FieldPaymentStatus:
		return string(o.PaymentStatus)
	case FieldPaymentMethod:
		return string(o.PaymentMethod)
	case FieldShippingMethod:
		return string(o.ShippingMethod)
	case FieldPaymentDate:
		if o.PaymentDate == nil {
			return ""
		}
		return o.PaymentDate.Format(DateLayout)
	}
	return ""
}

// Classify reports how the update moves o.
func (u *FieldUpdate) Classify(o *Order) Transition {
	switch u.Field {
	case FieldOrderStatus:
		return ClassifyOrderTransition(o.OrderStatus, OrderStatus(u.Value))
	case FieldPaymentStatus:
		return ClassifyPaymentTransition(o.PaymentStatus, PaymentStatus(u.Value))
	}
	if u.Current(o) == u.Value {
		return TransitionNoop
	}
	return TransitionNormal
}
