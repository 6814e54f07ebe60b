package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

const orderSelect = `
	SELECT
		o.id, o.user_id, o.created_at, o.total, o.order_status, o.payment_status,
		o.payment_method, o.payment_date, o.shipping_method, o.shipping_address,
		o.notes, o.payment_notes,
		COALESCE(TRIM(u.first_name || ' ' || u.last_name), ''), COALESCE(u.email, ''),
		COALESCE(u.address_line1, ''), COALESCE(u.address_line2, ''),
		COALESCE(u.city, ''), COALESCE(u.state, ''), COALESCE(u.zip_code, '')
	FROM orders o
	LEFT JOIN users u ON u.id = o.user_id`

const lineSelect = `
	SELECT oi.order_id, oi.sku, COALESCE(i.name, oi.sku), oi.quantity, oi.price
	FROM order_items oi
	LEFT JOIN items i ON i.sku = oi.sku`

// OrderRepository implements repository.OrderRepository using PostgreSQL.
type OrderRepository struct {
	pool     database.DBTX
	location *time.Location
}

// NewOrderRepository creates a new PostgreSQL-backed order ledger. location
// is the store's time zone; date filters select that zone's calendar day.
func NewOrderRepository(pool database.DBTX, location *time.Location) *OrderRepository {
	if location == nil {
		location = time.UTC
	}
	return &OrderRepository{pool: pool, location: location}
}

// Create inserts the order and its lines. It never opens its own
// transaction; q decides what commits together.
func (r *OrderRepository) Create(ctx context.Context, q database.Querier, o *domain.Order) (err error) {
	ctx, end := database.TraceQuery(ctx, "CreateOrder", "INSERT INTO orders")
	defer func() { end(err) }()

	var address *string
	if !o.ShippingAddress.IsZero() {
		raw, err := json.Marshal(o.ShippingAddress)
		if err != nil {
			return fmt.Errorf("marshal shipping address: %w", err)
		}
		s := string(raw)
		address = &s
	}

	_, err = q.Exec(ctx, `
		INSERT INTO orders (id, user_id, created_at, total, order_status, payment_status,
			payment_method, payment_date, shipping_method, shipping_address, notes, payment_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		o.ID,
		o.UserID,
		o.CreatedAt,
		o.Total,
		string(o.OrderStatus),
		string(o.PaymentStatus),
		string(o.PaymentMethod),
		o.PaymentDate,
		string(o.ShippingMethod),
		address,
		o.Notes,
		o.PaymentNotes,
	)
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}

	for _, l := range o.Lines {
		_, err = q.Exec(ctx,
			`INSERT INTO order_items (order_id, sku, quantity, price) VALUES ($1, $2, $3, $4)`,
			o.ID, l.SKU, l.Quantity, l.Price,
		)
		if err != nil {
			return fmt.Errorf("insert order line %s: %w", l.SKU, err)
		}
	}
	return nil
}

// NextSequence serializes ID allocation per prefix with an advisory lock that
// is released when the caller's transaction ends.
func (r *OrderRepository) NextSequence(ctx context.Context, q database.Querier, prefix string) (seq int, err error) {
	query := `
		SELECT COALESCE(MAX(CAST(SUBSTRING(id FROM $2) AS INTEGER)), 0) + 1
		FROM orders
		WHERE LEFT(id, $3) = $1 AND SUBSTRING(id FROM $2) ~ '^[0-9]+$'`
	ctx, end := database.TraceQuery(ctx, "NextOrderSequence", query)
	defer func() { end(err) }()

	if _, err = q.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, prefix); err != nil {
		return 0, fmt.Errorf("lock order prefix %s: %w", prefix, err)
	}
	if err = q.QueryRow(ctx, query, prefix, len(prefix)+1, len(prefix)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence for %s: %w", prefix, err)
	}
	return seq, nil
}

// GetByID retrieves an order with its lines.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (o *domain.Order, err error) {
	query := orderSelect + ` WHERE o.id = $1`
	ctx, end := database.TraceQuery(ctx, "GetOrder", query)
	defer func() { end(err) }()

	o, err = scanOrder(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("order", id)
		}
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}

	lines, err := r.linesFor(ctx, []string{id})
	if err != nil {
		return nil, err
	}
	o.Lines = lines[id]
	if o.Lines == nil {
		o.Lines = []domain.OrderLine{}
	}
	return o, nil
}

// List runs the fulfillment query.
func (r *OrderRepository) List(ctx context.Context, q domain.OrderQuery) (_ []domain.Order, err error) {
	where, args := BuildOrderFilter(q, r.location)
	query := orderSelect + "\n" + where + "\nORDER BY o.created_at DESC, o.id DESC"
	ctx, end := database.TraceQuery(ctx, "ListOrders", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	defer rows.Close()

	orders := make([]domain.Order, 0)
	ids := make([]string, 0)
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan order: %w", err)
		}
		orders = append(orders, *o)
		ids = append(ids, o.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate orders: %w", err)
	}
	rows.Close()

	if len(ids) == 0 {
		return orders, nil
	}
	lines, err := r.linesFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range orders {
		orders[i].Lines = lines[orders[i].ID]
		if orders[i].Lines == nil {
			orders[i].Lines = []domain.OrderLine{}
		}
	}
	return orders, nil
}

func (r *OrderRepository) linesFor(ctx context.Context, orderIDs []string) (map[string][]domain.OrderLine, error) {
	rows, err := r.pool.Query(ctx, lineSelect+` WHERE oi.order_id = ANY($1) ORDER BY oi.order_id, oi.id`, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("query order lines: %w", err)
	}
	defer rows.Close()

	lines := make(map[string][]domain.OrderLine, len(orderIDs))
	for rows.Next() {
		var l domain.OrderLine
		if err := rows.Scan(&l.OrderID, &l.SKU, &l.Name, &l.Quantity, &l.Price); err != nil {
			return nil, fmt.Errorf("scan order line: %w", err)
		}
		lines[l.OrderID] = append(lines[l.OrderID], l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate order lines: %w", err)
	}
	return lines, nil
}

// DistinctValues lists the values stored in one filterable column.
func (r *OrderRepository) DistinctValues(ctx context.Context, column domain.OptionColumn) (_ []string, err error) {
	if !slices.Contains(domain.OptionColumns(), column) {
		return nil, apperrors.Validationf("%q is not a filterable column", column)
	}
	col := string(column)
	query := fmt.Sprintf(`SELECT DISTINCT %[1]s FROM orders WHERE %[1]s IS NOT NULL AND %[1]s <> '' ORDER BY %[1]s`, col)
	ctx, end := database.TraceQuery(ctx, "DistinctOrderValues", query)
	defer func() { end(err) }()

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("distinct %s: %w", col, err)
	}
	defer rows.Close()

	values := make([]string, 0)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan %s: %w", col, err)
		}
		values = append(values, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", col, err)
	}
	return values, nil
}

// UpdateField writes one column of one order. The column name comes from the
// allow-list in domain, never from the caller.
func (r *OrderRepository) UpdateField(ctx context.Context, u *domain.FieldUpdate) (err error) {
	column := u.Field.Column()
	if column == "" {
		return apperrors.Validationf("field %q cannot be updated", u.Field)
	}
	query := fmt.Sprintf(`UPDATE orders SET %s = $1 WHERE id = $2`, column)
	ctx, end := database.TraceQuery(ctx, "UpdateOrderField", query)
	defer func() { end(err) }()

	tag, err := r.pool.Exec(ctx, query, u.Arg(), u.OrderID)
	if err != nil {
		return fmt.Errorf("update order %s %s: %w", u.OrderID, u.Field, err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("order", u.OrderID)
	}
	return nil
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o                              domain.Order
		orderStatus, paymentStatus     string
		paymentMethod, shippingMethod  string
		address                        *string
		line1, line2, city, state, zip string
	)
	if err := row.Scan(
		&o.ID,
		&o.UserID,
		&o.CreatedAt,
		&o.Total,
		&orderStatus,
		&paymentStatus,
		&paymentMethod,
		&o.PaymentDate,
		&shippingMethod,
		&address,
		&o.Notes,
		&o.PaymentNotes,
		&o.CustomerName,
		&o.CustomerEmail,
		&line1, &line2, &city, &state, &zip,
	); err != nil {
		return nil, err
	}

	o.OrderStatus = domain.OrderStatus(orderStatus)
	o.PaymentStatus = domain.PaymentStatus(paymentStatus)
	o.PaymentMethod = domain.PaymentMethod(paymentMethod)
	o.ShippingMethod = domain.ShippingMethod(shippingMethod)
	o.ShippingAddress = decodeAddress(address)

	customer := &domain.Address{Line1: line1, Line2: line2, City: city, State: state, ZipCode: zip}
	if !customer.IsZero() {
		o.CustomerAddress = customer
	}
	return &o, nil
}

// decodeAddress reads the serialized shipping address. Text that is not a
// JSON address is kept verbatim as the first address line.
func decodeAddress(raw *string) *domain.Address {
	if raw == nil || *raw == "" || *raw == "null" {
		return nil
	}
	var addr domain.Address
	if err := json.Unmarshal([]byte(*raw), &addr); err != nil {
		return &domain.Address{Line1: *raw}
	}
	if addr.IsZero() {
		return nil
	}
	return &addr
}
