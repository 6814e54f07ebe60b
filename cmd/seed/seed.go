package main

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/pkg/database"
)

type seedItem struct {
	SKU          string
	Name         string
	Retail       string
	Cost         string
	Stock        int
	ReorderPoint int
}

type seedCustomer struct {
	ID        string
	FirstName string
	LastName  string
	Email     string
	Line1     string
	City      string
	State     string
	Zip       string
}

var demoItems = []seedItem{
	{"WF-TS-001", "Lily Pad Tee", "19.99", "7.50", 40, 10},
	{"WF-TS-002", "Leap Year Tee", "21.99", "8.25", 25, 8},
	{"WF-TU-001", "Frog Pond Tumbler", "24.00", "9.10", 18, 5},
	{"WF-MG-001", "Ribbit Mug", "12.50", "4.00", 30, 10},
	{"WF-ST-001", "Sticker Sheet", "4.99", "0.80", 200, 50},
	{"WF-HT-001", "Toad Trucker Hat", "22.00", "8.75", 3, 5},
	{"WF-WW-001", "Window Wrap Sample", "0.00", "0.00", 0, 0},
}

var demoCustomers = []seedCustomer{
	{"U-1042", "Ada", "Frogmore", "ada@example.com", "12 Pond Rd", "Austin", "TX", "78701"},
	{"U-2077", "Tad", "Pole", "tad@example.com", "400 Marsh Ln", "Round Rock", "TX", "78664"},
}

const upsertItemSQL = `
	INSERT INTO items (sku, name, retail_price, cost_price, stock_level, reorder_point)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (sku) DO UPDATE SET
		name = EXCLUDED.name,
		retail_price = EXCLUDED.retail_price,
		cost_price = EXCLUDED.cost_price,
		reorder_point = EXCLUDED.reorder_point,
		updated_at = NOW()`

const upsertCustomerSQL = `
	INSERT INTO users (id, first_name, last_name, email, address_line1, city, state, zip_code)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	ON CONFLICT (id) DO UPDATE SET
		first_name = EXCLUDED.first_name,
		last_name = EXCLUDED.last_name,
		email = EXCLUDED.email`

// seedCatalog upserts the demo items and customers. Existing stock levels
// are left alone so a reseed never resets counts.
func seedCatalog(ctx context.Context, q database.Querier) (items, customers int, err error) {
	for _, it := range demoItems {
		retail, err := decimal.NewFromString(it.Retail)
		if err != nil {
			return items, customers, fmt.Errorf("item %s retail price: %w", it.SKU, err)
		}
		cost, err := decimal.NewFromString(it.Cost)
		if err != nil {
			return items, customers, fmt.Errorf("item %s cost price: %w", it.SKU, err)
		}
		if _, err := q.Exec(ctx, upsertItemSQL, it.SKU, it.Name, retail, cost, it.Stock, it.ReorderPoint); err != nil {
			return items, customers, fmt.Errorf("upsert item %s: %w", it.SKU, err)
		}
		items++
	}
	for _, c := range demoCustomers {
		if _, err := q.Exec(ctx, upsertCustomerSQL, c.ID, c.FirstName, c.LastName, c.Email, c.Line1, c.City, c.State, c.Zip); err != nil {
			return items, customers, fmt.Errorf("upsert customer %s: %w", c.ID, err)
		}
		customers++
	}
	return items, customers, nil
}
