package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// Checkout outcomes.
const (
	outcomeSuccess           = "success"
	outcomeReplayed          = "replayed"
	outcomeValidation        = "validation"
	outcomeUnknownSKU        = "unknown_sku"
	outcomeInsufficientStock = "insufficient_stock"
	outcomeInsufficientCash  = "insufficient_cash"
	outcomeConflict          = "conflict"
	outcomeError             = "error"
)

// Metrics holds the business counters of the back office. A nil *Metrics
// records nothing.
type Metrics struct {
	checkouts    *prometheus.CounterVec
	revenue      *prometheus.CounterVec
	fieldUpdates *prometheus.CounterVec
}

// NewMetrics creates and registers business metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkouts_total",
			Help: "Checkouts by outcome",
		}, []string{"outcome"}),
		revenue: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "checkout_revenue_total",
			Help: "Order totals of committed checkouts, by payment method",
		}, []string{"payment_method"}),
		fieldUpdates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "order_field_updates_total",
			Help: "Fulfillment field updates by field and transition kind",
		}, []string{"field", "transition"}),
	}
	reg.MustRegister(m.checkouts, m.revenue, m.fieldUpdates)
	return m
}

func (m *Metrics) observeCheckout(outcome string) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observeSale(sale *domain.Sale) {
	if m == nil {
		return
	}
	m.checkouts.WithLabelValues(outcomeSuccess).Inc()
	m.revenue.WithLabelValues(string(sale.PaymentMethod)).Add(sale.Total.InexactFloat64())
}

func (m *Metrics) observeFieldUpdate(field domain.OrderField, kind domain.Transition) {
	if m == nil {
		return
	}
	m.fieldUpdates.WithLabelValues(string(field), kind.String()).Inc()
}

// checkoutOutcome labels a failed checkout.
func checkoutOutcome(err error) string {
	var (
		stock   *domain.InsufficientStockError
		unknown *domain.UnknownSKUError
		cash    *domain.InsufficientCashError
	)
	switch {
	case errors.As(err, &stock):
		return outcomeInsufficientStock
	case errors.As(err, &unknown):
		return outcomeUnknownSKU
	case errors.As(err, &cash):
		return outcomeInsufficientCash
	case errors.Is(err, apperrors.ErrInvalidInput):
		return outcomeValidation
	case errors.Is(err, apperrors.ErrConflict):
		return outcomeConflict
	default:
		return outcomeError
	}
}
