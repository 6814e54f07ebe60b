package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

func TestNewFieldUpdate_RejectsFieldsOutsideAllowList(t *testing.T) {
	for _, field := range []string{"adminNotes", "total", "id", "payment_status", ""} {
		_, err := NewFieldUpdate("00A15P01", field, "x")
		require.Error(t, err, field)
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	}
}

func TestNewFieldUpdate_ChecksFieldBeforeOrderID(t *testing.T) {
	_, err := NewFieldUpdate("", "adminNotes", "x")
	appErr, ok := apperrors.As(err)
	require.True(t, ok)
	assert.Contains(t, appErr.Message, "adminNotes")
}

func TestNewFieldUpdate_CanonicalizesEnums(t *testing.T) {
	tests := []struct {
		field, value, want string
	}{
		{"order_status", "shipped", "Shipped"},
		{"paymentStatus", "RECEIVED", "Received"},
		{"paymentMethod", "credit card", "Credit Card"},
		{"shippingMethod", " usps ", "USPS"},
		{"paymentDate", "2026-01-15", "2026-01-15"},
		{"paymentDate", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.field+"="+tt.value, func(t *testing.T) {
			u, err := NewFieldUpdate("00A15P01", tt.field, tt.value)
			require.NoError(t, err)
			assert.Equal(t, tt.want, u.Value)
			assert.Equal(t, OrderField(tt.field), u.Field)
		})
	}
}

func TestNewFieldUpdate_InvalidValues(t *testing.T) {
	tests := []struct{ field, value string }{
		{"order_status", "Lost"},
		{"paymentStatus", "Maybe"},
		{"paymentMethod", "Bitcoin"},
		{"shippingMethod", "Drone"},
		{"paymentDate", "15/01/2026"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			_, err := NewFieldUpdate("00A15P01", tt.field, tt.value)
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestFieldUpdate_Column(t *testing.T) {
	assert.Equal(t, "payment_status", FieldPaymentStatus.Column())
	assert.Equal(t, "payment_date", FieldPaymentDate.Column())
	assert.Equal(t, "order_status", FieldOrderStatus.Column())
	assert.Equal(t, "payment_method", FieldPaymentMethod.Column())
	assert.Equal(t, "shipping_method", FieldShippingMethod.Column())
	assert.Empty(t, OrderField("notes").Column())
}

func TestFieldUpdate_Arg(t *testing.T) {
	u, _ := NewFieldUpdate("X", "paymentDate", "2026-01-15")
	assert.Equal(t, time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC), u.Arg())

	u, _ = NewFieldUpdate("X", "paymentDate", "")
	assert.Nil(t, u.Arg())

	u, _ = NewFieldUpdate("X", "paymentMethod", "Cash")
	assert.Equal(t, "Cash", u.Arg())
}

func TestFieldUpdate_Classify(t *testing.T) {
	paid := time.Date(2026, time.January, 15, 0, 0, 0, 0, time.UTC)
	o := &Order{
		OrderStatus:    OrderStatusDelivered,
		PaymentStatus:  PaymentStatusReceived,
		PaymentMethod:  PaymentMethodCash,
		ShippingMethod: ShippingMethodPickup,
		PaymentDate:    &paid,
	}

	classify := func(field, value string) Transition {
		u, err := NewFieldUpdate("X", field, value)
		require.NoError(t, err)
		return u.Classify(o)
	}

	assert.Equal(t, TransitionOverride, classify("order_status", "Shipped"))
	assert.Equal(t, TransitionNoop, classify("order_status", "delivered"))
	assert.Equal(t, TransitionNormal, classify("paymentStatus", "Refunded"))
	assert.Equal(t, TransitionNoop, classify("paymentMethod", "Cash"))
	assert.Equal(t, TransitionNormal, classify("paymentMethod", "Venmo"))
	assert.Equal(t, TransitionNoop, classify("paymentDate", "2026-01-15"))
	assert.Equal(t, TransitionNormal, classify("paymentDate", ""))
}
