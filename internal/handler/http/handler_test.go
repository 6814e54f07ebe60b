package http

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/event"
	redisrepo "github.com/r0ckitj0n/whimsicalfrog-sub015/internal/repository/redis"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/service"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/taxrate"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/health"
	pkgkafka "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/kafka"
)

// ============================================================================
// Mock Repositories
// ============================================================================

type mockItemRepository struct {
	mock.Mock
}

func (m *mockItemRepository) GetBySKU(ctx context.Context, sku string) (*domain.Item, error) {
	args := m.Called(ctx, sku)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

func (m *mockItemRepository) GetBySKUs(ctx context.Context, q database.Querier, skus []string) (map[string]domain.Item, error) {
	args := m.Called(ctx, q, skus)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.Item), args.Error(1)
}

func (m *mockItemRepository) Search(ctx context.Context, term string, limit int) ([]domain.Item, error) {
	args := m.Called(ctx, term, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Item), args.Error(1)
}

func (m *mockItemRepository) DecrementStock(ctx context.Context, q database.Querier, sku string, qty int) (int, error) {
	args := m.Called(ctx, q, sku, qty)
	return args.Int(0), args.Error(1)
}

func (m *mockItemRepository) Restock(ctx context.Context, sku string, qty int) (*domain.Item, error) {
	args := m.Called(ctx, sku, qty)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Item), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, q database.Querier, order *domain.Order) error {
	return m.Called(ctx, q, order).Error(0)
}

func (m *mockOrderRepository) NextSequence(ctx context.Context, q database.Querier, prefix string) (int, error) {
	args := m.Called(ctx, q, prefix)
	return args.Int(0), args.Error(1)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, query domain.OrderQuery) ([]domain.Order, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Order), args.Error(1)
}

func (m *mockOrderRepository) DistinctValues(ctx context.Context, column domain.OptionColumn) ([]string, error) {
	args := m.Called(ctx, column)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *mockOrderRepository) UpdateField(ctx context.Context, update *domain.FieldUpdate) error {
	return m.Called(ctx, update).Error(0)
}

type passthroughTx struct{}

func (passthroughTx) InTx(_ context.Context, fn func(q database.Querier) error) error {
	return fn(nil)
}

type discardPublisher struct{}

func (discardPublisher) Publish(context.Context, string, *pkgkafka.Event) error { return nil }

// ============================================================================
// Test Helpers
// ============================================================================

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type testServer struct {
	router http.Handler
	items  *mockItemRepository
	orders *mockOrderRepository
	redis  *miniredis.Miniredis
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	logger := newTestLogger()
	items := new(mockItemRepository)
	orders := new(mockOrderRepository)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	rate := taxrate.Static(decimal.RequireFromString("0.0825"))
	producer := event.NewProducer(discardPublisher{}, logger)
	reg := prometheus.NewRegistry()
	metrics := service.NewMetrics(reg)

	checkout := service.NewCheckoutService(passthroughTx{}, items, orders, rate,
		redisrepo.NewCheckoutIdempotencyStore(client, time.Hour, time.Minute), producer, metrics, logger, time.UTC)
	svcs := Services{
		Catalog:     service.NewCatalogService(items, logger),
		Checkout:    checkout,
		Fulfillment: service.NewFulfillmentService(orders, producer, metrics, logger),
		Carts:       service.NewCartService(redisrepo.NewCartStore(client, time.Hour), items, rate, checkout, logger),
	}

	router := NewRouter(svcs, health.NewHandler(), reg, logger, RouterOptions{PprofAllowedCIDRs: []string{"127.0.0.0/8"}})
	return &testServer{router: router, items: items, orders: orders, redis: mr}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Fields  map[string]any `json:"fields"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func mug() domain.Item {
	return domain.Item{
		SKU:          "MUG-01",
		Name:         "Frog Mug",
		RetailPrice:  decimal.RequireFromString("10.00"),
		StockLevel:   5,
		ReorderPoint: 2,
	}
}
