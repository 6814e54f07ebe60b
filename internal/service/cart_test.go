package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	redisrepo "github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository/redis"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/taxrate"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
)

type cartFixture struct {
	svc      *CartService
	checkout *checkoutFixture
	mr       *miniredis.Miniredis
}

func newCartFixture(t *testing.T) *cartFixture {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	co := newCheckoutFixture(t, nil)
	store := redisrepo.NewCartStore(client, 30*time.Minute)
	svc := NewCartService(store, co.items, taxrate.Static(dec("0.0825")), co.svc, newTestLogger())
	return &cartFixture{svc: svc, checkout: co, mr: mr}
}

func TestGetCart_EmptySession(t *testing.T) {
	f := newCartFixture(t)

	view, err := f.svc.GetCart(context.Background(), "reg-1")

	require.NoError(t, err)
	assert.Equal(t, "reg-1", view.SessionID)
	assert.Empty(t, view.Lines)
	assert.True(t, view.Total.IsZero())
}

func TestGetCart_RequiresSession(t *testing.T) {
	f := newCartFixture(t)

	_, err := f.svc.GetCart(context.Background(), "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestSetCart_PricesFromCatalog(t *testing.T) {
	f := newCartFixture(t)
	m := mug()
	f.checkout.items.On("GetBySKU", mock.Anything, "MUG-01").Return(&m, nil)

	view, err := f.svc.SetCart(context.Background(), "reg-1", []CheckoutLine{
		{SKU: "MUG-01", Quantity: 1},
		{SKU: "MUG-01", Quantity: 1},
	})

	require.NoError(t, err)
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "Frog Mug", view.Lines[0].Name)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.True(t, view.Total.Equal(dec("21.65")))

	stored, err := f.svc.GetCart(context.Background(), "reg-1")
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
	assert.True(t, f.mr.TTL("pos:cart:reg-1") > 0)
}

func TestSetCart_UnknownSKU(t *testing.T) {
	f := newCartFixture(t)
	f.checkout.items.On("GetBySKU", mock.Anything, "GHOST").Return(nil, apperrors.NotFound("item", "GHOST"))

	_, err := f.svc.SetCart(context.Background(), "reg-1", []CheckoutLine{{SKU: "GHOST", Quantity: 1}})

	var unknown *domain.UnknownSKUError
	require.ErrorAs(t, err, &unknown)
	assert.False(t, f.mr.Exists("pos:cart:reg-1"))
}

func TestClearCart(t *testing.T) {
	f := newCartFixture(t)
	m := mug()
	f.checkout.items.On("GetBySKU", mock.Anything, "MUG-01").Return(&m, nil)
	_, err := f.svc.SetCart(context.Background(), "reg-1", []CheckoutLine{{SKU: "MUG-01", Quantity: 1}})
	require.NoError(t, err)

	require.NoError(t, f.svc.ClearCart(context.Background(), "reg-1"))
	assert.False(t, f.mr.Exists("pos:cart:reg-1"))
}

func TestCheckoutCart_EmptyCart(t *testing.T) {
	f := newCartFixture(t)

	_, err := f.svc.CheckoutCart(context.Background(), "reg-1", CheckoutInput{PaymentMethod: domain.PaymentMethodCreditCard})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestCheckoutCart_ClearsCartAfterSale(t *testing.T) {
	f := newCartFixture(t)
	m := mug()
	f.checkout.items.On("GetBySKU", mock.Anything, "MUG-01").Return(&m, nil)
	_, err := f.svc.SetCart(context.Background(), "reg-1", []CheckoutLine{{SKU: "MUG-01", Quantity: 2}})
	require.NoError(t, err)
	expectCashSale(f.checkout)

	sale, err := f.svc.CheckoutCart(context.Background(), "reg-1", CheckoutInput{
		PaymentMethod: domain.PaymentMethodCash,
		CashReceived:  decPtr("25"),
	})

	require.NoError(t, err)
	assert.Equal(t, "00A15P01", sale.OrderID)
	assert.False(t, f.mr.Exists("pos:cart:reg-1"))
}

func TestCheckoutCart_KeepsCartWhenSaleFails(t *testing.T) {
	f := newCartFixture(t)
	m := mug()
	f.checkout.items.On("GetBySKU", mock.Anything, "MUG-01").Return(&m, nil)
	_, err := f.svc.SetCart(context.Background(), "reg-1", []CheckoutLine{{SKU: "MUG-01", Quantity: 2}})
	require.NoError(t, err)
	f.checkout.items.On("GetBySKUs", mock.Anything, mock.Anything, []string{"MUG-01"}).
		Return(map[string]domain.Item{"MUG-01": mug()}, nil)

	_, err = f.svc.CheckoutCart(context.Background(), "reg-1", CheckoutInput{
		PaymentMethod: domain.PaymentMethodCash,
		CashReceived:  decPtr("5"),
	})

	var cash *domain.InsufficientCashError
	require.ErrorAs(t, err, &cash)
	assert.True(t, f.mr.Exists("pos:cart:reg-1"))
}
