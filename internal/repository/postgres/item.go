package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

const itemColumns = `sku, name, retail_price, cost_price, stock_level, reorder_point, image_url`

// ItemRepository implements repository.ItemRepository using PostgreSQL.
type ItemRepository struct {
	pool database.DBTX
}

// NewItemRepository creates a new PostgreSQL-backed catalog store.
func NewItemRepository(pool database.DBTX) *ItemRepository {
	return &ItemRepository{pool: pool}
}

func scanItem(row pgx.Row) (*domain.Item, error) {
	var it domain.Item
	if err := row.Scan(
		&it.SKU,
		&it.Name,
		&it.RetailPrice,
		&it.CostPrice,
		&it.StockLevel,
		&it.ReorderPoint,
		&it.ImageURL,
	); err != nil {
		return nil, err
	}
	return &it, nil
}

// GetBySKU retrieves one item.
func (r *ItemRepository) GetBySKU(ctx context.Context, sku string) (it *domain.Item, err error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = $1`
	ctx, end := database.TraceQuery(ctx, "GetItemBySKU", query)
	defer func() { end(err) }()

	it, err = scanItem(r.pool.QueryRow(ctx, query, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", sku)
		}
		return nil, fmt.Errorf("get item %s: %w", sku, err)
	}
	return it, nil
}

// GetBySKUs loads several items in one round trip.
func (r *ItemRepository) GetBySKUs(ctx context.Context, q database.Querier, skus []string) (_ map[string]domain.Item, err error) {
	query := `SELECT ` + itemColumns + ` FROM items WHERE sku = ANY($1)`
	ctx, end := database.TraceQuery(ctx, "GetItemsBySKU", query)
	defer func() { end(err) }()

	rows, err := q.Query(ctx, query, skus)
	if err != nil {
		return nil, fmt.Errorf("query items: %w", err)
	}
	defer rows.Close()

	items := make(map[string]domain.Item, len(skus))
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items[it.SKU] = *it
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// Search returns items whose SKU or name contains term, ordered by name. An
// empty term lists the catalog.
func (r *ItemRepository) Search(ctx context.Context, term string, limit int) (_ []domain.Item, err error) {
	query := `SELECT ` + itemColumns + ` FROM items
		WHERE $1 = '' OR sku ILIKE $2 ESCAPE '\' OR name ILIKE $2 ESCAPE '\'
		ORDER BY name, sku
		LIMIT $3`
	ctx, end := database.TraceQuery(ctx, "SearchItems", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, term, containsPattern(term), limit)
	if err != nil {
		return nil, fmt.Errorf("search items: %w", err)
	}
	defer rows.Close()

	items := make([]domain.Item, 0)
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item: %w", err)
		}
		items = append(items, *it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return items, nil
}

// DecrementStock is the only statement that lowers stock. The WHERE clause
// makes check and write one atomic step, so concurrent checkouts cannot
// oversell: when the row no longer satisfies stock_level >= qty nothing is
// updated and no row is returned.
func (r *ItemRepository) DecrementStock(ctx context.Context, q database.Querier, sku string, qty int) (remaining int, err error) {
	query := `UPDATE items SET stock_level = stock_level - $1, updated_at = NOW()
		WHERE sku = $2 AND stock_level >= $1
		RETURNING stock_level`
	ctx, end := database.TraceQuery(ctx, "DecrementStock", query)
	defer func() { end(err) }()

	err = q.QueryRow(ctx, query, qty, sku).Scan(&remaining)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domain.ErrInsufficientStock(sku, qty, -1)
		}
		return 0, fmt.Errorf("decrement stock for %s: %w", sku, err)
	}
	return remaining, nil
}

// Restock adds qty units to the SKU.
func (r *ItemRepository) Restock(ctx context.Context, sku string, qty int) (it *domain.Item, err error) {
	query := `UPDATE items SET stock_level = stock_level + $1, updated_at = NOW()
		WHERE sku = $2
		RETURNING ` + itemColumns
	ctx, end := database.TraceQuery(ctx, "RestockItem", query)
	defer func() { end(err) }()

	it, err = scanItem(r.pool.QueryRow(ctx, query, qty, sku))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("item", sku)
		}
		return nil, fmt.Errorf("restock %s: %w", sku, err)
	}
	return it, nil
}
