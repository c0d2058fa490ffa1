package target

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

// PostgresGateway writes target entities through a pgx pool. Each write group is
// one database transaction.
type PostgresGateway struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) *PostgresGateway {
	return &PostgresGateway{pool: pool}
}

func (g *PostgresGateway) WriteGroup(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return pgx.BeginFunc(ctx, g.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTx{tx: tx})
	})
}

type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) FindByNaturalKey(ctx context.Context, kind EntityKind, key NaturalKey) (int64, bool, error) {
	tbl, err := lookupTable(kind)
	if err != nil {
		return 0, false, err
	}
	cols, err := tbl.keyColumns(key)
	if err != nil {
		return 0, false, err
	}
	conds := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		conds[i] = fmt.Sprintf("%s = $%d", col, i+1)
		args[i] = key[col]
	}
	query := fmt.Sprintf(`SELECT id FROM %s WHERE %s ORDER BY id LIMIT 1`, tbl.name, strings.Join(conds, " OR "))

	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("find %s by natural key: %w", tbl.name, err)
	}
	return id, true, nil
}

func (t *pgTx) CreateEntity(ctx context.Context, kind EntityKind, fields map[string]any) (int64, error) {
	tbl, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	cols, err := tbl.insertColumns(fields)
	if err != nil {
		return 0, err
	}
	placeholders := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		args[i] = fields[col]
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) RETURNING id`,
		tbl.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "))

	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return 0, fmt.Errorf("insert %s: %w", tbl.name, ErrAlreadyExists)
		}
		return 0, fmt.Errorf("insert %s: %w", tbl.name, err)
	}
	return id, nil
}

func (t *pgTx) UpsertEntity(ctx context.Context, kind EntityKind, fields map[string]any) (int64, error) {
	tbl, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	cols, err := tbl.insertColumns(fields)
	if err != nil {
		return 0, err
	}
	conflict, err := tbl.conflictColumn(fields)
	if err != nil {
		return 0, err
	}
	placeholders := make([]string, len(cols))
	updates := make([]string, len(cols))
	args := make([]any, len(cols))
	for i, col := range cols {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		updates[i] = fmt.Sprintf("%s = EXCLUDED.%s", col, col)
		args[i] = fields[col]
	}
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (%s) DO UPDATE SET %s RETURNING id`,
		tbl.name, strings.Join(cols, ", "), strings.Join(placeholders, ", "), conflict, strings.Join(updates, ", "))

	var id int64
	if err := t.tx.QueryRow(ctx, query, args...).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert %s: %w", tbl.name, err)
	}
	return id, nil
}

func (t *pgTx) ListOrders(ctx context.Context, filter OrderFilter) ([]OrderFact, error) {
	if filter.empty() {
		return nil, nil
	}
	var conds []string
	var args []any
	if len(filter.CustomerEmails) > 0 {
		args = append(args, filter.CustomerEmails)
		conds = append(conds, fmt.Sprintf("customer_email = ANY($%d)", len(args)))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		conds = append(conds, fmt.Sprintf("ordered_at >= $%d", len(args)))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		conds = append(conds, fmt.Sprintf("ordered_at < $%d", len(args)))
	}
	query := `SELECT id, order_number, customer_email, customer_id, total_amount_cents, order_status, ordered_at
		FROM orders WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY id`

	rows, err := t.tx.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (OrderFact, error) {
		var o OrderFact
		err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerEmail, &o.CustomerID, &o.TotalCents, &o.Status, &o.OrderedAt)
		return o, err
	})
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return out, nil
}
