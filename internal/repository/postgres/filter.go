package postgres

import (
	"fmt"
	"strings"
	"time"

	"github.com/r0ckitj0n/whimsicalfrog-sub015/internal/domain"
)

// BuildOrderFilter turns q into a WHERE clause over orders aliased "o" and
// its positional arguments. Every criterion present becomes one AND-ed
// predicate whose value is bound, never spliced into the SQL text. Absent
// criteria add nothing. The clause is empty when nothing applies.
//
// The date criterion is a calendar day in loc, the store's zone, bound as a
// half-open [midnight, next midnight) instant range so the session time zone
// plays no part.
func BuildOrderFilter(q domain.OrderQuery, loc *time.Location) (string, []any) {
	if loc == nil {
		loc = time.UTC
	}
	var (
		conds []string
		args  []any
	)
	bind := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Date != nil {
		y, m, d := q.Date.Date()
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		from := bind(start)
		to := bind(start.AddDate(0, 0, 1))
		conds = append(conds, "o.created_at >= "+from+" AND o.created_at < "+to)
	}

	if q.ItemsSearch != nil {
		if term := strings.TrimSpace(*q.ItemsSearch); term != "" {
			p := bind(containsPattern(term))
			conds = append(conds, `EXISTS (
				SELECT 1 FROM order_items oi
				LEFT JOIN items i ON i.sku = oi.sku
				WHERE oi.order_id = o.id
				  AND (COALESCE(i.name, oi.sku) ILIKE `+p+` ESCAPE '\' OR oi.sku ILIKE `+p+` ESCAPE '\')
			)`)
		}
	}

	if status, ok := q.OrderStatus.Effective(); ok {
		conds = append(conds, "o.order_status = "+bind(string(status)))
	}

	for _, eq := range []struct {
		column string
		value  *string
	}{
		{"o.payment_method", q.PaymentMethod},
		{"o.shipping_method", q.ShippingMethod},
		{"o.payment_status", q.PaymentStatus},
	} {
		if eq.value != nil && *eq.value != "" {
			conds = append(conds, eq.column+" = "+bind(*eq.value))
		}
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE substring pattern matching term literally.
func containsPattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}
