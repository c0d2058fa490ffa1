// Package summary computes the reporting rollups kept next to the loaded orders:
// one row per customer with a lifecycle segment, and one row per sales day.
// It is pure: callers supply the orders and the clock.
package summary

import (
	"time"

	"stagehand/internal/target"
)

// Segment is a customer's lifecycle bucket.
type Segment string

const (
	SegmentNew     Segment = "new"
	SegmentRegular Segment = "regular"
	SegmentVIP     Segment = "vip"
	SegmentAtRisk  Segment = "at_risk"
	SegmentChurned Segment = "churned"
)

const (
	VIPSpendCents int64 = 500_000
	VIPOrders           = 20
	AtRiskDays          = 180
	ChurnedDays         = 365
)

// StatusCancelled orders are left out of every summary.
const StatusCancelled = "cancelled"

// Classify buckets a customer. Recency wins over spend: a big spender silent for
// more than AtRiskDays is at risk, not vip.
func Classify(orders int, spentCents int64, daysSinceLast *int) Segment {
	switch {
	case orders == 0:
		return SegmentNew
	case daysSinceLast != nil && *daysSinceLast > ChurnedDays:
		return SegmentChurned
	case daysSinceLast != nil && *daysSinceLast > AtRiskDays:
		return SegmentAtRisk
	case spentCents > VIPSpendCents || orders > VIPOrders:
		return SegmentVIP
	case orders > 1:
		return SegmentRegular
	}
	return SegmentNew
}

// Customer is one customer's order rollup.
type Customer struct {
	Email              string
	CustomerID         *int64
	TotalOrders        int
	TotalSpentCents    int64
	AvgOrderCents      int64
	MinOrderCents      int64
	MaxOrderCents      int64
	FirstOrderAt       *time.Time
	LastOrderAt        *time.Time
	DaysSinceLastOrder *int
	Segment            Segment
	CalculatedAt       time.Time
}

// ForCustomer rolls up a customer's orders. Cancelled orders are ignored; orders
// without a timestamp count toward totals but not toward recency.
func ForCustomer(email string, customerID *int64, orders []target.OrderFact, now time.Time) Customer {
	c := Customer{Email: email, CustomerID: customerID, CalculatedAt: now.UTC()}
	for _, o := range orders {
		if o.Status == StatusCancelled {
			continue
		}
		if c.TotalOrders == 0 || o.TotalCents < c.MinOrderCents {
			c.MinOrderCents = o.TotalCents
		}
		if o.TotalCents > c.MaxOrderCents {
			c.MaxOrderCents = o.TotalCents
		}
		c.TotalOrders++
		c.TotalSpentCents += o.TotalCents
		if o.OrderedAt == nil {
			continue
		}
		at := o.OrderedAt.UTC()
		if c.FirstOrderAt == nil || at.Before(*c.FirstOrderAt) {
			c.FirstOrderAt = &at
		}
		if c.LastOrderAt == nil || at.After(*c.LastOrderAt) {
			c.LastOrderAt = &at
		}
	}
	if c.TotalOrders > 0 {
		c.AvgOrderCents = average(c.TotalSpentCents, c.TotalOrders)
	}
	if c.LastOrderAt != nil {
		days := max(int(now.Sub(*c.LastOrderAt).Hours()/24), 0)
		c.DaysSinceLastOrder = &days
	}
	c.Segment = Classify(c.TotalOrders, c.TotalSpentCents, c.DaysSinceLastOrder)
	return c
}

// Fields is the customer_summaries row.
func (c Customer) Fields() map[string]any {
	return map[string]any{
		"customer_email":        c.Email,
		"customer_id":           nullable(c.CustomerID),
		"total_orders":          c.TotalOrders,
		"total_spent_cents":     c.TotalSpentCents,
		"avg_order_cents":       c.AvgOrderCents,
		"min_order_cents":       c.MinOrderCents,
		"max_order_cents":       c.MaxOrderCents,
		"first_order_at":        nullable(c.FirstOrderAt),
		"last_order_at":         nullable(c.LastOrderAt),
		"days_since_last_order": nullable(c.DaysSinceLastOrder),
		"segment":               string(c.Segment),
		"calculated_at":         c.CalculatedAt,
	}
}

// Daily is one sales day's rollup.
type Daily struct {
	Date               time.Time
	TotalOrders        int
	TotalValueCents    int64
	AvgOrderCents      int64
	TotalCustomers     int
	NewCustomers       int
	ReturningCustomers int
	DayOfWeek          string
	IsWeekend          bool
	CalculatedAt       time.Time
}

// Day truncates t to its UTC calendar day.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FirstOrderDays maps each customer email to the day of their first counted order.
func FirstOrderDays(orders []target.OrderFact) map[string]time.Time {
	first := make(map[string]time.Time)
	for _, o := range orders {
		if o.Status == StatusCancelled || o.OrderedAt == nil {
			continue
		}
		day := Day(*o.OrderedAt)
		if prev, ok := first[o.CustomerEmail]; !ok || day.Before(prev) {
			first[o.CustomerEmail] = day
		}
	}
	return first
}

// ForDay rolls up the counted orders placed on day. A customer is new on the day
// of their first order, per firstOrder, and returning on any later day.
func ForDay(day time.Time, orders []target.OrderFact, firstOrder map[string]time.Time, now time.Time) Daily {
	day = Day(day)
	d := Daily{
		Date:         day,
		DayOfWeek:    day.Weekday().String(),
		IsWeekend:    day.Weekday() == time.Saturday || day.Weekday() == time.Sunday,
		CalculatedAt: now.UTC(),
	}
	customers := make(map[string]struct{})
	for _, o := range orders {
		if o.Status == StatusCancelled || o.OrderedAt == nil || !Day(*o.OrderedAt).Equal(day) {
			continue
		}
		d.TotalOrders++
		d.TotalValueCents += o.TotalCents
		if _, seen := customers[o.CustomerEmail]; seen {
			continue
		}
		customers[o.CustomerEmail] = struct{}{}
		if first, ok := firstOrder[o.CustomerEmail]; !ok || !first.Before(day) {
			d.NewCustomers++
		}
	}
	d.TotalCustomers = len(customers)
	d.ReturningCustomers = d.TotalCustomers - d.NewCustomers
	if d.TotalOrders > 0 {
		d.AvgOrderCents = average(d.TotalValueCents, d.TotalOrders)
	}
	return d
}

// Fields is the daily_sales_summaries row.
func (d Daily) Fields() map[string]any {
	return map[string]any{
		"summary_date":        d.Date,
		"total_orders":        d.TotalOrders,
		"total_value_cents":   d.TotalValueCents,
		"avg_order_cents":     d.AvgOrderCents,
		"total_customers":     d.TotalCustomers,
		"new_customers":       d.NewCustomers,
		"returning_customers": d.ReturningCustomers,
		"day_of_week":         d.DayOfWeek,
		"is_weekend":          d.IsWeekend,
		"calculated_at":       d.CalculatedAt,
	}
}

// average rounds half away from zero; amounts are never negative.
func average(total int64, n int) int64 {
	return (total + int64(n)/2) / int64(n)
}

func nullable[T any](p *T) any {
	if p == nil {
		return nil
	}
	return *p
}
