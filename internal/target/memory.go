package target

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"
)

// MemoryGateway is an in-memory target store. Write groups are serialized by one
// lock and buffered so a failing group leaves no trace.
type MemoryGateway struct {
	mu       sync.Mutex
	nextID   int64
	entities map[EntityKind]map[int64]map[string]any
	hook     func(ctx context.Context, kind EntityKind, fields map[string]any) error
}

type MemoryOption func(*MemoryGateway)

// WithCreateHook runs before every CreateEntity and UpsertEntity; a non-nil error
// aborts the write.
// Tests use it to inject failures and delays.
func WithCreateHook(hook func(ctx context.Context, kind EntityKind, fields map[string]any) error) MemoryOption {
	return func(g *MemoryGateway) {
		g.hook = hook
	}
}

func NewMemoryGateway(opts ...MemoryOption) *MemoryGateway {
	g := &MemoryGateway{entities: make(map[EntityKind]map[int64]map[string]any)}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Seed inserts an entity outside any write group and returns its id.
func (g *MemoryGateway) Seed(kind EntityKind, fields map[string]any) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	g.put(kind, g.nextID, fields)
	return g.nextID
}

// Count returns how many entities of kind exist.
func (g *MemoryGateway) Count(kind EntityKind) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.entities[kind])
}

// Get returns a copy of an entity's fields.
func (g *MemoryGateway) Get(kind EntityKind, id int64) (map[string]any, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	fields, ok := g.entities[kind][id]
	if !ok {
		return nil, false
	}
	return maps.Clone(fields), true
}

// List returns copies of every entity of kind in id order.
func (g *MemoryGateway) List(kind EntityKind) []map[string]any {
	g.mu.Lock()
	defer g.mu.Unlock()
	ids := slices.Sorted(maps.Keys(g.entities[kind]))
	out := make([]map[string]any, 0, len(ids))
	for _, id := range ids {
		out = append(out, maps.Clone(g.entities[kind][id]))
	}
	return out
}

func (g *MemoryGateway) put(kind EntityKind, id int64, fields map[string]any) {
	if g.entities[kind] == nil {
		g.entities[kind] = make(map[int64]map[string]any)
	}
	g.entities[kind][id] = maps.Clone(fields)
}

func (g *MemoryGateway) WriteGroup(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := &memoryTx{g: g, nextID: g.nextID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, w := range tx.writes {
		g.put(w.kind, w.id, w.fields)
	}
	g.nextID = tx.nextID
	return nil
}

type pendingWrite struct {
	kind   EntityKind
	id     int64
	fields map[string]any
}

type memoryTx struct {
	g      *MemoryGateway
	nextID int64
	writes []pendingWrite
}

func (t *memoryTx) FindByNaturalKey(ctx context.Context, kind EntityKind, key NaturalKey) (int64, bool, error) {
	tbl, err := lookupTable(kind)
	if err != nil {
		return 0, false, err
	}
	cols, err := tbl.keyColumns(key)
	if err != nil {
		return 0, false, err
	}
	var best int64
	match := func(id int64, fields map[string]any) {
		for _, col := range cols {
			if v, ok := fields[col]; ok && fmt.Sprint(v) == key[col] {
				if best == 0 || id < best {
					best = id
				}
				return
			}
		}
	}
	for id, fields := range t.g.entities[kind] {
		match(id, fields)
	}
	for _, w := range t.writes {
		if w.kind == kind {
			match(w.id, w.fields)
		}
	}
	return best, best != 0, ctx.Err()
}

func (t *memoryTx) CreateEntity(ctx context.Context, kind EntityKind, fields map[string]any) (int64, error) {
	tbl, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	if _, err := tbl.insertColumns(fields); err != nil {
		return 0, err
	}
	if t.g.hook != nil {
		if err := t.g.hook(ctx, kind, fields); err != nil {
			return 0, err
		}
	}
	for _, col := range tbl.unique {
		v, ok := fields[col]
		if !ok {
			continue
		}
		if _, found, _ := t.FindByNaturalKey(ctx, kind, NaturalKey{col: fmt.Sprint(v)}); found {
			return 0, fmt.Errorf("insert %s: %w", tbl.name, ErrAlreadyExists)
		}
	}
	t.nextID++
	t.writes = append(t.writes, pendingWrite{kind: kind, id: t.nextID, fields: maps.Clone(fields)})
	return t.nextID, nil
}

func (t *memoryTx) UpsertEntity(ctx context.Context, kind EntityKind, fields map[string]any) (int64, error) {
	tbl, err := lookupTable(kind)
	if err != nil {
		return 0, err
	}
	if _, err := tbl.insertColumns(fields); err != nil {
		return 0, err
	}
	col, err := tbl.conflictColumn(fields)
	if err != nil {
		return 0, err
	}
	if t.g.hook != nil {
		if err := t.g.hook(ctx, kind, fields); err != nil {
			return 0, err
		}
	}
	id, found, err := t.FindByNaturalKey(ctx, kind, NaturalKey{col: fmt.Sprint(fields[col])})
	if err != nil {
		return 0, err
	}
	if !found {
		t.nextID++
		t.writes = append(t.writes, pendingWrite{kind: kind, id: t.nextID, fields: maps.Clone(fields)})
		return t.nextID, nil
	}
	merged := maps.Clone(t.current(kind, id))
	maps.Copy(merged, fields)
	t.writes = append(t.writes, pendingWrite{kind: kind, id: id, fields: merged})
	return id, nil
}

// current is the latest version of an entity as seen inside the write group.
func (t *memoryTx) current(kind EntityKind, id int64) map[string]any {
	for i := len(t.writes) - 1; i >= 0; i-- {
		if w := t.writes[i]; w.kind == kind && w.id == id {
			return w.fields
		}
	}
	return t.g.entities[kind][id]
}

func (t *memoryTx) ListOrders(ctx context.Context, filter OrderFilter) ([]OrderFact, error) {
	if filter.empty() {
		return nil, nil
	}
	latest := make(map[int64]map[string]any, len(t.g.entities[EntityOrder]))
	for id, fields := range t.g.entities[EntityOrder] {
		latest[id] = fields
	}
	for _, w := range t.writes {
		if w.kind == EntityOrder {
			latest[w.id] = w.fields
		}
	}

	var out []OrderFact
	for _, id := range slices.Sorted(maps.Keys(latest)) {
		o := orderFact(id, latest[id])
		if filter.matches(o) {
			out = append(out, o)
		}
	}
	return out, ctx.Err()
}

func (f OrderFilter) matches(o OrderFact) bool {
	if len(f.CustomerEmails) > 0 && !slices.Contains(f.CustomerEmails, o.CustomerEmail) {
		return false
	}
	if f.From.IsZero() && f.To.IsZero() {
		return true
	}
	if o.OrderedAt == nil {
		return false
	}
	if !f.From.IsZero() && o.OrderedAt.Before(f.From) {
		return false
	}
	return f.To.IsZero() || o.OrderedAt.Before(f.To)
}

func orderFact(id int64, fields map[string]any) OrderFact {
	o := OrderFact{ID: id}
	o.OrderNumber, _ = fields["order_number"].(string)
	o.CustomerEmail, _ = fields["customer_email"].(string)
	o.Status, _ = fields["order_status"].(string)
	if cid, ok := asInt64(fields["customer_id"]); ok {
		o.CustomerID = &cid
	}
	o.TotalCents, _ = asInt64(fields["total_amount_cents"])
	switch ts := fields["ordered_at"].(type) {
	case time.Time:
		o.OrderedAt = &ts
	case *time.Time:
		o.OrderedAt = ts
	}
	return o
}

func asInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	}
	return 0, false
}
