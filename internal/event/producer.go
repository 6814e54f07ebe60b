package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	pkgkafka "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/kafka"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/logger"
)

// Topics produced by the back office.
var (
	TopicOrderCreated      = pkgkafka.Topic("order", "created")
	TopicOrderFieldUpdated = pkgkafka.Topic("order", "field_updated")
	TopicInventoryLowStock = pkgkafka.Topic("inventory", "low_stock")
)

// Aggregate types.
const (
	AggregateTypeOrder = "order"
	AggregateTypeItem  = "item"
)

// SourceBackoffice identifies events originating from this service.
const SourceBackoffice = "backoffice"

// OrderLineData is one line of an order.created payload.
type OrderLineData struct {
	SKU      string          `json:"sku"`
	Name     string          `json:"name"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
}

// OrderCreatedData is the payload of an order.created event. Downstream
// consumers use it to send the order confirmation.
type OrderCreatedData struct {
	OrderID        string          `json:"order_id"`
	UserID         *string         `json:"user_id,omitempty"`
	Items          []OrderLineData `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	TaxAmount      decimal.Decimal `json:"tax_amount"`
	Total          decimal.Decimal `json:"total"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentStatus  string          `json:"payment_status"`
	ShippingMethod string          `json:"shipping_method"`
	CreatedAt      time.Time       `json:"created_at"`
}

// OrderFieldUpdatedData is the payload of an order.field_updated event.
type OrderFieldUpdatedData struct {
	OrderID  string `json:"order_id"`
	Field    string `json:"field"`
	Previous string `json:"previous"`
	Value    string `json:"value"`
	Override bool   `json:"override"`
}

// LowStockData is the payload of an inventory.low_stock event.
type LowStockData struct {
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	StockLevel   int    `json:"stock_level"`
	ReorderPoint int    `json:"reorder_point"`
}

// Producer publishes back-office domain events.
type Producer struct {
	kafka  pkgkafka.Publisher
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishOrderCreated publishes an order.created event for a committed sale.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order, sale *domain.Sale) error {
	items := make([]OrderLineData, 0, len(order.Lines))
	for _, l := range order.Lines {
		items = append(items, OrderLineData{SKU: l.SKU, Name: l.Name, Quantity: l.Quantity, Price: l.Price})
	}
	data := OrderCreatedData{
		OrderID:        order.ID,
		UserID:         order.UserID,
		Items:          items,
		Subtotal:       sale.Subtotal,
		TaxAmount:      sale.TaxAmount,
		Total:          order.Total,
		PaymentMethod:  string(order.PaymentMethod),
		PaymentStatus:  string(order.PaymentStatus),
		ShippingMethod: string(order.ShippingMethod),
		CreatedAt:      order.CreatedAt,
	}

	if err := p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.created event",
		slog.String("order_id", order.ID),
		slog.String("total", order.Total.StringFixed(domain.MoneyPlaces)),
	)
	return nil
}

// PublishOrderFieldUpdated publishes an order.field_updated event.
func (p *Producer) PublishOrderFieldUpdated(ctx context.Context, update *domain.FieldUpdate, previous string, override bool) error {
	data := OrderFieldUpdatedData{
		OrderID:  update.OrderID,
		Field:    string(update.Field),
		Previous: previous,
		Value:    update.Value,
		Override: override,
	}

	if err := p.publish(ctx, TopicOrderFieldUpdated, update.OrderID, AggregateTypeOrder, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published order.field_updated event",
		slog.String("order_id", update.OrderID),
		slog.String("field", string(update.Field)),
	)
	return nil
}

// PublishLowStock publishes an inventory.low_stock event.
func (p *Producer) PublishLowStock(ctx context.Context, item domain.Item) error {
	data := LowStockData{
		SKU:          item.SKU,
		Name:         item.Name,
		StockLevel:   item.StockLevel,
		ReorderPoint: item.ReorderPoint,
	}

	if err := p.publish(ctx, TopicInventoryLowStock, item.SKU, AggregateTypeItem, data); err != nil {
		return err
	}

	p.logger.DebugContext(ctx, "published inventory.low_stock event",
		slog.String("sku", item.SKU),
		slog.Int("stock_level", item.StockLevel),
	)
	return nil
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceBackoffice, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		event.WithCorrelationID(id)
	}
	if id := logger.StaffIDFromContext(ctx); id != "" {
		event.WithMetadata("staff_id", id)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
