// Package target is the gateway to the target data store. It knows identity and
// uniqueness of target entities and nothing of their business rules.
package target

import (
	"context"
	"fmt"
	"slices"
	"time"

	"stagehand/pkg/platform/sentinel"
)

// EntityKind names a target table.
type EntityKind string

const (
	EntityUser        EntityKind = "user"
	EntityUserProfile EntityKind = "user_profile"
	EntityAddress     EntityKind = "address"
	EntityOrder       EntityKind = "order"
	EntityProduct     EntityKind = "product"

	EntityCustomerSummary EntityKind = "customer_summary"
	EntityDailySales      EntityKind = "daily_sales"
)

// ErrAlreadyExists is returned by CreateEntity when a uniqueness constraint
// rejects the insert.
var ErrAlreadyExists = fmt.Errorf("already exists: %w", sentinel.ErrConflict)

// NaturalKey holds business identifiers by column. An entity matches when ANY
// of the columns matches (username OR email for users).
type NaturalKey map[string]string

// Columns returns the non-empty key columns in a stable order.
func (k NaturalKey) Columns() []string {
	cols := make([]string, 0, len(k))
	for col, v := range k {
		if v != "" {
			cols = append(cols, col)
		}
	}
	slices.Sort(cols)
	return cols
}

// OrderFact is the part of a stored order that reporting summaries aggregate.
type OrderFact struct {
	ID            int64
	OrderNumber   string
	CustomerEmail string
	CustomerID    *int64
	TotalCents    int64
	Status        string
	OrderedAt     *time.Time
}

// OrderFilter selects orders. Set fields combine with AND; an empty filter
// matches nothing.
type OrderFilter struct {
	CustomerEmails []string
	// From and To bound ordered_at as [From, To). Orders without ordered_at never match.
	From, To time.Time
}

func (f OrderFilter) empty() bool {
	return len(f.CustomerEmails) == 0 && f.From.IsZero() && f.To.IsZero()
}

// Tx is the view of the target store inside one write group.
type Tx interface {
	FindByNaturalKey(ctx context.Context, kind EntityKind, key NaturalKey) (id int64, found bool, err error)
	CreateEntity(ctx context.Context, kind EntityKind, fields map[string]any) (int64, error)
	// UpsertEntity inserts fields or, when a row already holds the same value in
	// the table's single unique column, overwrites that row's given columns.
	UpsertEntity(ctx context.Context, kind EntityKind, fields map[string]any) (int64, error)
	// ListOrders returns matching orders in id order.
	ListOrders(ctx context.Context, filter OrderFilter) ([]OrderFact, error)
}

// Gateway runs write groups. Everything fn writes commits together or not at all.
type Gateway interface {
	WriteGroup(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

type table struct {
	name    string
	columns []string
	unique  []string
}

var tables = map[EntityKind]table{
	EntityUser: {
		name:    "users",
		columns: []string{"username", "email", "password_hash", "email_verified", "is_active"},
		unique:  []string{"username", "email"},
	},
	EntityUserProfile: {
		name:    "user_profiles",
		columns: []string{"user_id", "first_name", "last_name", "display_name", "phone", "date_of_birth"},
		unique:  []string{"user_id"},
	},
	EntityAddress: {
		name:    "addresses",
		columns: []string{"owner_kind", "owner_id", "line1", "line2", "city", "region", "postal_code", "country_code"},
	},
	EntityOrder: {
		name:    "orders",
		columns: []string{"order_number", "customer_email", "customer_id", "total_amount_cents", "currency", "order_status", "ordered_at"},
		unique:  []string{"order_number"},
	},
	EntityProduct: {
		name:    "products",
		columns: []string{"sku", "name", "description", "price_cents", "stock_quantity", "is_active"},
		unique:  []string{"sku"},
	},
	EntityCustomerSummary: {
		name: "customer_summaries",
		columns: []string{"customer_email", "customer_id", "total_orders", "total_spent_cents",
			"avg_order_cents", "min_order_cents", "max_order_cents", "first_order_at", "last_order_at",
			"days_since_last_order", "segment", "calculated_at"},
		unique: []string{"customer_email"},
	},
	EntityDailySales: {
		name: "daily_sales_summaries",
		columns: []string{"summary_date", "total_orders", "total_value_cents", "avg_order_cents",
			"total_customers", "new_customers", "returning_customers", "day_of_week", "is_weekend",
			"calculated_at"},
		unique: []string{"summary_date"},
	},
}

func lookupTable(kind EntityKind) (table, error) {
	t, ok := tables[kind]
	if !ok {
		return table{}, fmt.Errorf("unknown target entity kind %q", kind)
	}
	return t, nil
}

// insertColumns validates fields against the table and returns them in a stable order.
func (t table) insertColumns(fields map[string]any) ([]string, error) {
	cols := make([]string, 0, len(fields))
	for col := range fields {
		if !slices.Contains(t.columns, col) {
			return nil, fmt.Errorf("column %q is not writable on %s", col, t.name)
		}
		cols = append(cols, col)
	}
	slices.Sort(cols)
	return cols, nil
}

func (t table) keyColumns(key NaturalKey) ([]string, error) {
	cols := key.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("natural key for %s is empty", t.name)
	}
	for _, col := range cols {
		if !slices.Contains(t.unique, col) {
			return nil, fmt.Errorf("column %q is not a natural key of %s", col, t.name)
		}
	}
	return cols, nil
}

// conflictColumn is the column an upsert matches on.
func (t table) conflictColumn(fields map[string]any) (string, error) {
	if len(t.unique) != 1 {
		return "", fmt.Errorf("%s has no single upsert key", t.name)
	}
	col := t.unique[0]
	if v, ok := fields[col]; !ok || v == nil {
		return "", fmt.Errorf("upsert into %s requires %s", t.name, col)
	}
	return col, nil
}
