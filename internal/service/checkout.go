package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/event"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository"
	redisrepo "github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository/redis"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/taxrate"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// MaxLineQuantity bounds a line's quantity after lines sharing a SKU are merged.
const MaxLineQuantity = 100000

// CheckoutLine is one requested line. Price and name come from the catalog.
type CheckoutLine struct {
	SKU      string `json:"sku"`
	Quantity int    `json:"quantity"`
}

// CheckoutInput is a register sale request.
type CheckoutInput struct {
	Items           []CheckoutLine        `json:"items"`
	PaymentMethod   domain.PaymentMethod  `json:"paymentMethod"`
	CashReceived    *decimal.Decimal      `json:"cashReceived,omitempty"`
	UserID          *string               `json:"userId,omitempty"`
	ShippingMethod  domain.ShippingMethod `json:"shippingMethod"`
	ShippingAddress *domain.Address       `json:"shippingAddress,omitempty"`
	Notes           string                `json:"notes,omitempty"`
	IdempotencyKey  string                `json:"-"`
}

// IdempotencyStore remembers checkout results by client key.
type IdempotencyStore interface {
	Reserve(ctx context.Context, key, fingerprint string) (*domain.Sale, error)
	Complete(ctx context.Context, key, fingerprint string, sale *domain.Sale) error
	Release(ctx context.Context, key string) error
}

// CheckoutService turns a cart into a committed order.
type CheckoutService struct {
	tx       repository.TxRunner
	items    repository.ItemRepository
	orders   repository.OrderRepository
	taxes    taxrate.Provider
	idem     IdempotencyStore
	producer *event.Producer
	metrics  *Metrics
	logger   *slog.Logger
	location *time.Location
	now      func() time.Time
}

// NewCheckoutService creates a checkout service. idem and metrics may be
// nil. location is the store's time zone; order IDs carry the local date.
func NewCheckoutService(
	tx repository.TxRunner,
	items repository.ItemRepository,
	orders repository.OrderRepository,
	taxes taxrate.Provider,
	idem IdempotencyStore,
	producer *event.Producer,
	metrics *Metrics,
	logger *slog.Logger,
	location *time.Location,
) *CheckoutService {
	if location == nil {
		location = time.UTC
	}
	return &CheckoutService{
		tx:       tx,
		items:    items,
		orders:   orders,
		taxes:    taxes,
		idem:     idem,
		producer: producer,
		metrics:  metrics,
		logger:   logger,
		location: location,
		now:      time.Now,
	}
}

// Checkout validates in, then prices, decrements stock and writes the order
// in one transaction. Either every line is sold or nothing changes.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (*domain.Sale, error) {
	if err := normalizeCheckout(&in); err != nil {
		s.metrics.observeCheckout(outcomeValidation)
		return nil, err
	}

	rate, err := s.taxes.TaxRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve tax rate: %w", err)
	}
	if err := taxrate.Validate(rate); err != nil {
		return nil, apperrors.Internal(err)
	}

	key, fingerprint, replay, err := s.reserveKey(ctx, in)
	if err != nil {
		s.metrics.observeCheckout(checkoutOutcome(err))
		return nil, err
	}
	if replay != nil {
		s.metrics.observeCheckout(outcomeReplayed)
		s.logger.InfoContext(ctx, "checkout replayed from idempotency key",
			slog.String("order_id", replay.OrderID),
		)
		return replay, nil
	}

	order, sale, lowStock, err := s.commit(ctx, in, rate)
	if err != nil {
		if key != "" {
			if relErr := s.idem.Release(ctx, key); relErr != nil {
				s.logger.WarnContext(ctx, "failed to release idempotency key", slog.String("error", relErr.Error()))
			}
		}
		s.metrics.observeCheckout(checkoutOutcome(err))
		if errors.Is(err, apperrors.ErrPersistence) {
			s.logger.ErrorContext(ctx, "checkout failed", slog.String("error", err.Error()))
		}
		return nil, err
	}

	if key != "" {
		if err := s.idem.Complete(ctx, key, fingerprint, sale); err != nil {
			s.logger.WarnContext(ctx, "failed to store checkout result", slog.String("error", err.Error()))
		}
	}

	if err := s.producer.PublishOrderCreated(ctx, order, sale); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.created event",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
	for _, item := range lowStock {
		if err := s.producer.PublishLowStock(ctx, item); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish inventory.low_stock event",
				slog.String("sku", item.SKU),
				slog.String("error", err.Error()),
			)
		}
	}

	s.metrics.observeSale(sale)
	s.logger.InfoContext(ctx, "checkout completed",
		slog.String("order_id", order.ID),
		slog.String("payment_method", string(order.PaymentMethod)),
		slog.String("total", order.Total.StringFixed(domain.MoneyPlaces)),
		slog.Int("lines", len(order.Lines)),
	)
	return sale, nil
}

// reserveKey claims the idempotency key. A stored sale means the request
// already completed. Store outages do not block sales.
func (s *CheckoutService) reserveKey(ctx context.Context, in CheckoutInput) (key, fingerprint string, replay *domain.Sale, err error) {
	if in.IdempotencyKey == "" || s.idem == nil {
		return "", "", nil, nil
	}

	fingerprint, err = checkoutFingerprint(in)
	if err != nil {
		return "", "", nil, apperrors.Internal(err)
	}

	sale, err := s.idem.Reserve(ctx, in.IdempotencyKey, fingerprint)
	switch {
	case errors.Is(err, redisrepo.ErrCheckoutInProgress):
		return "", "", nil, apperrors.Conflict("a checkout with this idempotency key is still in progress")
	case errors.Is(err, redisrepo.ErrKeyReused):
		return "", "", nil, apperrors.Conflict("idempotency key was already used for a different checkout")
	case err != nil:
		s.logger.WarnContext(ctx, "idempotency store unavailable, continuing without it",
			slog.String("error", err.Error()),
		)
		return "", "", nil, nil
	case sale != nil:
		return "", "", sale, nil
	}
	return in.IdempotencyKey, fingerprint, nil, nil
}

func (s *CheckoutService) commit(ctx context.Context, in CheckoutInput, rate decimal.Decimal) (*domain.Order, *domain.Sale, []domain.Item, error) {
	var (
		order    *domain.Order
		sale     *domain.Sale
		lowStock []domain.Item
	)

	err := s.tx.InTx(ctx, func(q database.Querier) error {
		skus := make([]string, 0, len(in.Items))
		for _, l := range in.Items {
			skus = append(skus, l.SKU)
		}
		catalog, err := s.items.GetBySKUs(ctx, q, skus)
		if err != nil {
			return err
		}

		priced := make([]domain.CartLine, 0, len(in.Items))
		for _, l := range in.Items {
			item, ok := catalog[l.SKU]
			if !ok {
				return domain.ErrUnknownSKU(l.SKU)
			}
			if l.Quantity > item.StockLevel {
				return domain.ErrInsufficientStock(l.SKU, l.Quantity, item.StockLevel)
			}
			priced = append(priced, domain.CartLine{
				SKU:      item.SKU,
				Name:     item.Name,
				Price:    item.RetailPrice,
				Quantity: l.Quantity,
			})
		}

		totals := domain.ComputeTotals(priced, rate)
		if in.PaymentMethod == domain.PaymentMethodCash && in.CashReceived.LessThan(totals.Total) {
			return domain.ErrInsufficientCash(totals.Total, *in.CashReceived)
		}

		for _, l := range priced {
			remaining, err := s.items.DecrementStock(ctx, q, l.SKU, l.Quantity)
			if err != nil {
				return err
			}
			item := catalog[l.SKU]
			item.StockLevel = remaining
			if item.IsLowStock() {
				lowStock = append(lowStock, item)
			}
		}

		now := s.now().In(s.location)
		prefix := domain.OrderIDPrefix(in.UserID, now, in.ShippingMethod)
		seq, err := s.orders.NextSequence(ctx, q, prefix)
		if err != nil {
			return err
		}

		order = buildOrder(domain.FormatOrderID(prefix, seq), in, priced, totals, now)
		if err := s.orders.Create(ctx, q, order); err != nil {
			return err
		}
		sale = buildSale(order, priced, totals, in.CashReceived)
		return nil
	})
	if err != nil {
		if _, ok := apperrors.As(err); !ok {
			err = apperrors.Persistence(err)
		}
		return nil, nil, nil, err
	}
	return order, sale, lowStock, nil
}

func buildOrder(id string, in CheckoutInput, priced []domain.CartLine, totals domain.Totals, now time.Time) *domain.Order {
	status := in.PaymentMethod.InitialPaymentStatus()
	var paymentDate *time.Time
	if status == domain.PaymentStatusReceived {
		day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		paymentDate = &day
	}

	lines := make([]domain.OrderLine, 0, len(priced))
	for _, l := range priced {
		lines = append(lines, domain.OrderLine{
			OrderID:  id,
			SKU:      l.SKU,
			Name:     l.Name,
			Quantity: l.Quantity,
			Price:    l.Price,
		})
	}

	return &domain.Order{
		ID:              id,
		UserID:          in.UserID,
		CreatedAt:       now,
		Total:           totals.Total,
		OrderStatus:     domain.OrderStatusProcessing,
		PaymentStatus:   status,
		PaymentMethod:   in.PaymentMethod,
		PaymentDate:     paymentDate,
		ShippingMethod:  in.ShippingMethod,
		ShippingAddress: in.ShippingAddress,
		Notes:           in.Notes,
		Lines:           lines,
	}
}

func buildSale(order *domain.Order, priced []domain.CartLine, totals domain.Totals, cash *decimal.Decimal) *domain.Sale {
	sale := &domain.Sale{
		OrderID:       order.ID,
		Items:         priced,
		Subtotal:      totals.Subtotal,
		TaxRate:       totals.TaxRate,
		TaxAmount:     totals.TaxAmount,
		Total:         totals.Total,
		PaymentMethod: order.PaymentMethod,
		PaymentStatus: order.PaymentStatus,
		Timestamp:     order.CreatedAt,
	}
	if cash != nil {
		received := *cash
		change := received.Sub(totals.Total)
		sale.CashReceived = &received
		sale.ChangeAmount = &change
	}
	return sale
}

// normalizeCheckout validates in before any side effect and rewrites it in
// canonical form: SKUs trimmed, duplicate SKUs merged in first-seen order,
// the default shipping method applied, and cash dropped for non-cash
// payments.
func normalizeCheckout(in *CheckoutInput) error {
	if len(in.Items) == 0 {
		return apperrors.Validation("items must not be empty")
	}
	merged, err := mergeLines(in.Items)
	if err != nil {
		return err
	}
	in.Items = merged

	if !in.PaymentMethod.IsValid() {
		return apperrors.Validationf("unknown payment method %q", in.PaymentMethod)
	}

	if in.ShippingMethod == "" {
		in.ShippingMethod = domain.DefaultShippingMethod
	}
	if !in.ShippingMethod.IsValid() {
		return apperrors.Validationf("unknown shipping method %q", in.ShippingMethod)
	}

	if in.PaymentMethod == domain.PaymentMethodCash {
		if in.CashReceived == nil {
			return apperrors.Validation("cashReceived is required for cash payments")
		}
		if in.CashReceived.IsNegative() {
			return apperrors.Validation("cashReceived must not be negative")
		}
	} else {
		in.CashReceived = nil
	}

	if in.UserID != nil && strings.TrimSpace(*in.UserID) == "" {
		in.UserID = nil
	}
	if in.ShippingAddress.IsZero() {
		in.ShippingAddress = nil
	}
	in.Notes = strings.TrimSpace(in.Notes)
	return nil
}

// mergeLines trims SKUs, rejects blank SKUs and quantities outside
// [1, MaxLineQuantity], and sums lines sharing a SKU into the first occurrence.
func mergeLines(lines []CheckoutLine) ([]CheckoutLine, error) {
	merged := make([]CheckoutLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for i, l := range lines {
		sku := strings.TrimSpace(l.SKU)
		if sku == "" {
			return nil, apperrors.Validationf("items[%d].sku is required", i)
		}
		if l.Quantity <= 0 {
			return nil, apperrors.Validationf("items[%d].quantity must be positive, got %d", i, l.Quantity)
		}
		if l.Quantity > MaxLineQuantity {
			return nil, apperrors.Validationf("items[%d].quantity must not exceed %d, got %d", i, MaxLineQuantity, l.Quantity)
		}
		if at, ok := index[sku]; ok {
			// Both operands are within the cap, so the sum cannot overflow.
			if merged[at].Quantity+l.Quantity > MaxLineQuantity {
				return nil, apperrors.Validationf("quantity for sku %q must not exceed %d", sku, MaxLineQuantity)
			}
			merged[at].Quantity += l.Quantity
			continue
		}
		index[sku] = len(merged)
		merged = append(merged, CheckoutLine{SKU: sku, Quantity: l.Quantity})
	}
	return merged, nil
}

// checkoutFingerprint identifies a normalized request, so a key replayed
// with a different body is detected.
func checkoutFingerprint(in CheckoutInput) (string, error) {
	raw, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("fingerprint checkout: %w", err)
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}
