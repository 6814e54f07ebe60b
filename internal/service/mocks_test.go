package service

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/event"
	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
	apperrors "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/errors"
	pkgkafka "github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/kafka"
)

// --- Mock ItemRepository ---

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

// --- Mock OrderRepository ---

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, q database.Querier, order *domain.Order) error {
	args := m.Called(ctx, q, order)
	return args.Error(0)
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
	args := m.Called(ctx, update)
	return args.Error(0)
}

// --- Fake TxRunner ---

// fakeTx runs fn with a nil Querier and records whether it committed.
type fakeTx struct {
	commits   int
	rollbacks int
}

func (f *fakeTx) InTx(_ context.Context, fn func(q database.Querier) error) error {
	if err := fn(nil); err != nil {
		f.rollbacks++
		return err
	}
	f.commits++
	return nil
}

// --- Recording event publisher ---

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, topic string, _ *pkgkafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.topics = append(p.topics, topic)
	return nil
}

func (p *recordingPublisher) published() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.topics...)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestProducer() (*event.Producer, *recordingPublisher) {
	pub := &recordingPublisher{}
	return event.NewProducer(pub, newTestLogger()), pub
}

// --- In-memory catalog ---

// memoryCatalog applies the conditional decrement under a lock, the way the
// store's single UPDATE ... WHERE stock_level >= qty does. When reads is set,
// GetBySKUs blocks until that many callers have taken their snapshot.
type memoryCatalog struct {
	mu    sync.Mutex
	items map[string]domain.Item
	reads *sync.WaitGroup
}

func newMemoryCatalog(items ...domain.Item) *memoryCatalog {
	c := &memoryCatalog{items: make(map[string]domain.Item, len(items))}
	for _, it := range items {
		c.items[it.SKU] = it
	}
	return c
}

func (c *memoryCatalog) stock(sku string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.items[sku].StockLevel
}

func (c *memoryCatalog) GetBySKU(_ context.Context, sku string) (*domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it, ok := c.items[sku]
	if !ok {
		return nil, apperrors.NotFound("item", sku)
	}
	return &it, nil
}

func (c *memoryCatalog) GetBySKUs(_ context.Context, _ database.Querier, skus []string) (map[string]domain.Item, error) {
	c.mu.Lock()
	out := make(map[string]domain.Item, len(skus))
	for _, sku := range skus {
		if it, ok := c.items[sku]; ok {
			out[sku] = it
		}
	}
	c.mu.Unlock()
	if c.reads != nil {
		c.reads.Done()
		c.reads.Wait()
	}
	return out, nil
}

func (c *memoryCatalog) Search(context.Context, string, int) ([]domain.Item, error) {
	return nil, nil
}

func (c *memoryCatalog) DecrementStock(_ context.Context, _ database.Querier, sku string, qty int) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.items[sku]
	if it.StockLevel < qty {
		return 0, domain.ErrInsufficientStock(sku, qty, -1)
	}
	it.StockLevel -= qty
	c.items[sku] = it
	return it.StockLevel, nil
}

func (c *memoryCatalog) Restock(_ context.Context, sku string, qty int) (*domain.Item, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	it := c.items[sku]
	it.StockLevel += qty
	c.items[sku] = it
	return &it, nil
}

// lockedTx counts outcomes safely across goroutines. Decrements are not
// undone on rollback, so callers should only fail before or at the first
// decrement.
type lockedTx struct {
	mu        sync.Mutex
	commits   int
	rollbacks int
}

func (l *lockedTx) InTx(_ context.Context, fn func(q database.Querier) error) error {
	err := fn(nil)
	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.rollbacks++
		return err
	}
	l.commits++
	return nil
}
