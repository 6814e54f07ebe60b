package repository

import (
	"context"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
)

// TxRunner runs fn in one database transaction. fn's Querier must be passed
// to every repository call that has to commit or roll back with it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(q database.Querier) error) error
}

// ItemRepository is the catalog store.
type ItemRepository interface {
	// GetBySKU returns apperrors.ErrNotFound when the SKU does not exist.
	GetBySKU(ctx context.Context, sku string) (*domain.Item, error)

	// GetBySKUs loads the given SKUs through q. Missing SKUs are absent
	// from the map.
	GetBySKUs(ctx context.Context, q database.Querier, skus []string) (map[string]domain.Item, error)

	// Search matches term against SKU and name, case-insensitively.
	Search(ctx context.Context, term string, limit int) ([]domain.Item, error)

	// DecrementStock removes qty from the SKU only if at least qty is on
	// hand, and returns the new level. It fails with an insufficient stock
	// error when the condition does not hold.
	DecrementStock(ctx context.Context, q database.Querier, sku string, qty int) (int, error)

	// Restock adds qty to the SKU.
	Restock(ctx context.Context, sku string, qty int) (*domain.Item, error)
}

// OrderRepository is the order ledger.
type OrderRepository interface {
	// Create inserts the order and its lines through q.
	Create(ctx context.Context, q database.Querier, order *domain.Order) error

	// NextSequence returns the next free order ID sequence for prefix. It
	// holds a transaction-scoped lock on the prefix, so q must be a
	// transaction.
	NextSequence(ctx context.Context, q database.Querier, prefix string) (int, error)

	// GetByID returns the order with its lines and customer display fields.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns the orders matching query, newest first.
	List(ctx context.Context, query domain.OrderQuery) ([]domain.Order, error)

	// DistinctValues returns the distinct non-empty values of column.
	DistinctValues(ctx context.Context, column domain.OptionColumn) ([]string, error)

	// UpdateField writes one allow-listed field of one order.
	UpdateField(ctx context.Context, update *domain.FieldUpdate) error
}
