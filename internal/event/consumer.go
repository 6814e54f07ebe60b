package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
	pkgkafka "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/kafka"
)

// TopicInventoryRestocked is produced by inventory management when stock
// arrives.
var TopicInventoryRestocked = pkgkafka.Topic("inventory", "restocked")

// RestockService defines the interface required by the event consumer.
type RestockService interface {
	Restock(ctx context.Context, sku string, quantity int) (*domain.Item, error)
}

// RestockedData is the expected payload of an inventory.restocked event.
type RestockedData struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// Consumer processes incoming Kafka events.
type Consumer struct {
	service RestockService
	logger  *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(service RestockService, logger *slog.Logger) *Consumer {
	return &Consumer{
		service: service,
		logger:  logger,
	}
}

// HandleRestocked adds the restocked quantity to the item. Payloads that
// can never succeed are logged and acknowledged instead of being retried
// into the dead letter queue.
func (c *Consumer) HandleRestocked(ctx context.Context, event *pkgkafka.Event) error {
	var data RestockedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal inventory.restocked data: %w", err)
	}

	if data.SKU == "" || data.Quantity <= 0 {
		c.logger.WarnContext(ctx, "skipping invalid inventory.restocked event",
			slog.String("event_id", event.EventID),
			slog.String("sku", data.SKU),
			slog.Int("quantity", data.Quantity),
		)
		return nil
	}

	item, err := c.service.Restock(ctx, data.SKU, data.Quantity)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.logger.WarnContext(ctx, "restock for unknown sku ignored",
				slog.String("event_id", event.EventID),
				slog.String("sku", data.SKU),
			)
			return nil
		}
		return fmt.Errorf("restock %s: %w", data.SKU, err)
	}

	c.logger.InfoContext(ctx, "item restocked",
		slog.String("sku", item.SKU),
		slog.Int("quantity", data.Quantity),
		slog.Int("stock_level", item.StockLevel),
	)
	return nil
}
