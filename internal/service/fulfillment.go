package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/event"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/logger"
)

// FulfillmentService serves the back-office order dashboard.
type FulfillmentService struct {
	orders   repository.OrderRepository
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
}

// NewFulfillmentService creates a fulfillment service. metrics may be nil.
func NewFulfillmentService(orders repository.OrderRepository, producer *event.Producer, metrics *Metrics, logger *slog.Logger) *FulfillmentService {
	return &FulfillmentService{
		orders:   orders,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
	}
}

// ListOrders returns the orders matching q, newest first, with the filter
// choices currently present in the ledger.
func (s *FulfillmentService) ListOrders(ctx context.Context, q domain.OrderQuery) (*domain.FulfillmentView, error) {
	orders, err := s.orders.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	if orders == nil {
		orders = []domain.Order{}
	}

	view := &domain.FulfillmentView{Orders: orders}
	for _, col := range domain.OptionColumns() {
		values, err := s.orders.DistinctValues(ctx, col)
		if err != nil {
			return nil, fmt.Errorf("load %s options: %w", col, err)
		}
		if values == nil {
			values = []string{}
		}
		view.Options.Set(col, values)
	}
	return view, nil
}

// GetOrder returns one order with its lines.
func (s *FulfillmentService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.Validation("orderId is required")
	}
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	return order, nil
}

// Receipt rebuilds the sale receipt of a stored order.
func (s *FulfillmentService) Receipt(ctx context.Context, id string) (*domain.Sale, error) {
	order, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	return domain.SaleFromOrder(order, domain.ImpliedTaxRate(order)), nil
}

// UpdateField sets one allow-listed field of one order. The field name is
// checked before anything is read. Writing the current value succeeds
// without touching the store, so retries are idempotent.
// Moves outside the normal status flow are allowed and logged.
func (s *FulfillmentService) UpdateField(ctx context.Context, orderID, field, value string) error {
	update, err := domain.NewFieldUpdate(strings.TrimSpace(orderID), field, value)
	if err != nil {
		return err
	}

	order, err := s.orders.GetByID(ctx, update.OrderID)
	if err != nil {
		return fmt.Errorf("update order field: %w", err)
	}

	previous := update.Current(order)
	kind := update.Classify(order)
	if kind == domain.TransitionNoop {
		// A repeated update already holds; report success without writing.
		s.metrics.observeFieldUpdate(update.Field, kind)
		logger.WithContext(ctx, s.logger).InfoContext(ctx, "order field already set, nothing written",
			slog.String("order_id", update.OrderID),
			slog.String("field", string(update.Field)),
			slog.String("value", update.Value),
		)
		return nil
	}

	if err := s.orders.UpdateField(ctx, update); err != nil {
		return fmt.Errorf("update order field: %w", err)
	}
	s.metrics.observeFieldUpdate(update.Field, kind)

	log := logger.WithContext(ctx, s.logger).With(
		slog.String("order_id", update.OrderID),
		slog.String("field", string(update.Field)),
		slog.String("from", previous),
		slog.String("to", update.Value),
	)
	if kind == domain.TransitionOverride {
		log.WarnContext(ctx, "order field override outside the normal flow")
	} else {
		log.InfoContext(ctx, "order field updated")
	}

	if err := s.producer.PublishOrderFieldUpdated(ctx, update, previous, kind == domain.TransitionOverride); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.field_updated event",
			slog.String("order_id", update.OrderID),
			slog.String("error", err.Error()),
		)
	}
	return nil
}
