// Package memory keeps raw receivable rows in memory and aggregates them the
// same way the database views do.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

// TrendRecord is one month of aging percentages reported by a division.
type TrendRecord struct {
	Division  collections.Division
	Month     time.Time
	Over30Pct float64
	Over90Pct float64
}

// CustomerRecord is a customer's overdue position in a report month.
type CustomerRecord struct {
	Division        collections.Division
	Month           time.Time
	CustomerNumber  string
	CustomerName    string
	Over30          float64
	Over90          float64
	ForecastBadDebt float64
}

// Store is a concurrency-safe collections.Repository over in-memory rows.
type Store struct {
	mu        sync.RWMutex
	trends    []TrendRecord
	customers []CustomerRecord
}

// New constructs a Store holding the given rows.
func New(trends []TrendRecord, customers []CustomerRecord) *Store {
	s := &Store{}
	s.Replace(trends, customers)
	return s
}

// Replace swaps the full row set atomically.
func (s *Store) Replace(trends []TrendRecord, customers []CustomerRecord) {
	t := make([]TrendRecord, len(trends))
	copy(t, trends)
	for i := range t {
		t[i].Month = firstOfMonth(t[i].Month)
	}
	c := make([]CustomerRecord, len(customers))
	copy(c, customers)
	for i := range c {
		c[i].Month = firstOfMonth(c[i].Month)
	}
	s.mu.Lock()
	s.trends = t
	s.customers = c
	s.mu.Unlock()
}

// Months lists distinct report months newest first.
func (s *Store) Months(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := make(map[time.Time]struct{})
	for _, r := range s.customers {
		seen[r.Month] = struct{}{}
	}
	months := make([]time.Time, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].After(months[j]) })
	out := make([]string, 0, len(months))
	for _, m := range months {
		out = append(out, m.Format("2006-01"))
	}
	return out, nil
}

// TrendRows returns a division's trend history in ascending month order.
func (s *Store) TrendRows(ctx context.Context, division collections.Division) ([]collections.TrendRow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([]collections.TrendRow, 0)
	for _, r := range s.trends {
		if r.Division != division {
			continue
		}
		rows = append(rows, collections.TrendRow{Month: r.Month, Over30Pct: r.Over30Pct, Over90Pct: r.Over90Pct})
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Month.Before(rows[j].Month) })
	return rows, nil
}

// Balances sums the overdue amounts of a division for month.
func (s *Store) Balances(ctx context.Context, division collections.Division, month string) (collections.Balances, error) {
	target, err := collections.ParseMonth(month)
	if err != nil {
		return collections.Balances{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var b collections.Balances
	for _, r := range s.customers {
		if r.Division == division && r.Month.Equal(target) {
			b.TotalOver30 += r.Over30
			b.TotalOver90 += r.Over90
		}
	}
	return b, nil
}

// TopCustomers ranks customers by bucket amount, one row per customer number.
func (s *Store) TopCustomers(ctx context.Context, division collections.Division, month string, bucket collections.Bucket, limit int) ([]collections.CustomerBalance, error) {
	target, err := collections.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	totals := make(map[string]*collections.CustomerBalance)
	order := make([]string, 0)
	for _, r := range s.customers {
		if r.Division != division || !r.Month.Equal(target) {
			continue
		}
		amount := r.Over30
		if bucket == collections.Over90 {
			amount = r.Over90
		}
		entry, ok := totals[r.CustomerNumber]
		if !ok {
			entry = &collections.CustomerBalance{CustomerNumber: r.CustomerNumber, CustomerName: r.CustomerName}
			totals[r.CustomerNumber] = entry
			order = append(order, r.CustomerNumber)
		}
		entry.Amount += amount
	}
	s.mu.RUnlock()

	rows := make([]collections.CustomerBalance, 0, len(order))
	for _, id := range order {
		if totals[id].Amount > 0 {
			rows = append(rows, *totals[id])
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Amount > rows[j].Amount })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

// ForecastBadDebt sums forecast bad debt for the latest report month not after month.
func (s *Store) ForecastBadDebt(ctx context.Context, division collections.Division, month string) (float64, error) {
	target, err := collections.ParseMonth(month)
	if err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	latest := s.latestReport(division, target)
	if latest.IsZero() {
		return 0, nil
	}
	total := 0.0
	for _, r := range s.customers {
		if r.Division == division && r.Month.Equal(latest) {
			total += r.ForecastBadDebt
		}
	}
	return total, nil
}

// latestReport returns the newest customer report month of division not
// after target. Callers hold s.mu.
func (s *Store) latestReport(division collections.Division, target time.Time) time.Time {
	var latest time.Time
	for _, r := range s.customers {
		if r.Division == division && !r.Month.After(target) && r.Month.After(latest) {
			latest = r.Month
		}
	}
	return latest
}

// TopBadDebt ranks customers by forecast bad debt in the same report month
// ForecastBadDebt totals.
func (s *Store) TopBadDebt(ctx context.Context, division collections.Division, month string, limit int) ([]collections.BadDebtCustomer, error) {
	target, err := collections.ParseMonth(month)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	latest := s.latestReport(division, target)
	totals := make(map[string]*collections.BadDebtCustomer)
	order := make([]string, 0)
	for _, r := range s.customers {
		if latest.IsZero() || r.Division != division || !r.Month.Equal(latest) || r.ForecastBadDebt <= 0 {
			continue
		}
		entry, ok := totals[r.CustomerNumber]
		if !ok {
			entry = &collections.BadDebtCustomer{CustomerName: r.CustomerName}
			totals[r.CustomerNumber] = entry
			order = append(order, r.CustomerNumber)
		}
		entry.Amount += r.ForecastBadDebt
	}
	s.mu.RUnlock()

	rows := make([]collections.BadDebtCustomer, 0, len(order))
	for _, id := range order {
		rows = append(rows, *totals[id])
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Amount > rows[j].Amount })
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func firstOfMonth(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
