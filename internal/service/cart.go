package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/taxrate"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

// CartStore persists register carts between requests.
type CartStore interface {
	Get(ctx context.Context, sessionID string) (*domain.Cart, error)
	Save(ctx context.Context, cart *domain.Cart) error
	Delete(ctx context.Context, sessionID string) error
}

// CartView is a cart with display totals at the current tax rate.
type CartView struct {
	*domain.Cart
	Subtotal  decimal.Decimal `json:"subtotal"`
	TaxRate   decimal.Decimal `json:"taxRate"`
	TaxAmount decimal.Decimal `json:"taxAmount"`
	Total     decimal.Decimal `json:"total"`
}

// CartService manages the cart of a POS session.
type CartService struct {
	carts    CartStore
	items    repository.ItemRepository
	taxes    taxrate.Provider
	checkout *CheckoutService
	logger   *slog.Logger
}

// NewCartService creates a new cart service.
func NewCartService(carts CartStore, items repository.ItemRepository, taxes taxrate.Provider, checkout *CheckoutService, logger *slog.Logger) *CartService {
	return &CartService{
		carts:    carts,
		items:    items,
		taxes:    taxes,
		checkout: checkout,
		logger:   logger,
	}
}

// GetCart returns the session's cart. A session with no cart gets an empty
// one.
func (s *CartService) GetCart(ctx context.Context, sessionID string) (*CartView, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get cart: %w", err)
	}
	return s.view(ctx, cart)
}

// SetCart replaces the session's lines. Names and prices are looked up in
// the catalog; they are refreshed again at checkout.
func (s *CartService) SetCart(ctx context.Context, sessionID string, lines []CheckoutLine) (*CartView, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	merged, err := mergeLines(lines)
	if err != nil {
		return nil, err
	}

	cart := &domain.Cart{SessionID: sessionID, Lines: make([]domain.CartLine, 0, len(merged))}
	for _, l := range merged {
		item, err := s.items.GetBySKU(ctx, l.SKU)
		if err != nil {
			if errors.Is(err, apperrors.ErrNotFound) {
				return nil, domain.ErrUnknownSKU(l.SKU)
			}
			return nil, fmt.Errorf("set cart: %w", err)
		}
		cart.Lines = append(cart.Lines, domain.CartLine{
			SKU:      item.SKU,
			Name:     item.Name,
			Price:    item.RetailPrice,
			Quantity: l.Quantity,
		})
	}

	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, fmt.Errorf("set cart: %w", err)
	}
	return s.view(ctx, cart)
}

// ClearCart drops the session's cart.
func (s *CartService) ClearCart(ctx context.Context, sessionID string) error {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return err
	}
	if err := s.carts.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("clear cart: %w", err)
	}
	return nil
}

// CheckoutCart sells the session's cart. in supplies everything but the
// items. The cart is cleared only after the sale commits.
func (s *CartService) CheckoutCart(ctx context.Context, sessionID string, in CheckoutInput) (*domain.Sale, error) {
	sessionID, err := requireSession(sessionID)
	if err != nil {
		return nil, err
	}
	cart, err := s.carts.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("checkout cart: %w", err)
	}
	if len(cart.Lines) == 0 {
		return nil, apperrors.Validation("cart is empty")
	}

	in.Items = make([]CheckoutLine, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		in.Items = append(in.Items, CheckoutLine{SKU: l.SKU, Quantity: l.Quantity})
	}

	sale, err := s.checkout.Checkout(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.carts.Delete(ctx, sessionID); err != nil {
		s.logger.WarnContext(ctx, "failed to clear cart after checkout",
			slog.String("session_id", sessionID),
			slog.String("order_id", sale.OrderID),
			slog.String("error", err.Error()),
		)
	}
	return sale, nil
}

func (s *CartService) view(ctx context.Context, cart *domain.Cart) (*CartView, error) {
	rate, err := s.taxes.TaxRate(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve tax rate: %w", err)
	}
	totals := cart.Totals(rate)
	return &CartView{
		Cart:      cart,
		Subtotal:  totals.Subtotal,
		TaxRate:   totals.TaxRate,
		TaxAmount: totals.TaxAmount,
		Total:     totals.Total,
	}, nil
}

func requireSession(sessionID string) (string, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return "", apperrors.Validation("session id is required")
	}
	return sessionID, nil
}
