package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// SearchLimit caps the rows returned to the POS item picker.
const SearchLimit = 50

// CatalogService implements the catalog operations.
type CatalogService struct {
	items  repository.ItemRepository
	logger *slog.Logger
}

// NewCatalogService creates a new catalog service.
func NewCatalogService(items repository.ItemRepository, logger *slog.Logger) *CatalogService {
	return &CatalogService{items: items, logger: logger}
}

// GetItem returns one item by SKU.
func (s *CatalogService) GetItem(ctx context.Context, sku string) (*domain.Item, error) {
	sku = strings.TrimSpace(sku)
	if sku == "" {
		return nil, apperrors.Validation("sku is required")
	}
	item, err := s.items.GetBySKU(ctx, sku)
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	return item, nil
}

// SearchItems matches term against SKU and name. An empty term lists the
// catalog.
func (s *CatalogService) SearchItems(ctx context.Context, term string) ([]domain.Item, error) {
	items, err := s.items.Search(ctx, strings.TrimSpace(term), SearchLimit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	if items == nil {
		items = []domain.Item{}
	}
	return items, nil
}

// Restock adds quantity units to the SKU. It is driven by inventory
// management events.
func (s *CatalogService) Restock(ctx context.Context, sku string, quantity int) (*domain.Item, error) {
	if quantity <= 0 {
		return nil, apperrors.Validationf("restock quantity must be positive, got %d", quantity)
	}
	item, err := s.items.Restock(ctx, sku, quantity)
	if err != nil {
		return nil, fmt.Errorf("restock: %w", err)
	}

	s.logger.InfoContext(ctx, "stock replenished",
		slog.String("sku", sku),
		slog.Int("quantity", quantity),
		slog.Int("stock_level", item.StockLevel),
	)
	return item, nil
}
