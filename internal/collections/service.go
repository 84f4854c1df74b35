package collections

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/odyssey-erp/arcollect/internal/format"
)

// Bucket selects an aging bucket for customer rankings.
type Bucket string

// Aging buckets.
const (
	Over30 Bucket = "over30"
	Over90 Bucket = "over90"
)

// TrendRow is one month of upstream aging percentages for a division.
type TrendRow struct {
	Month     time.Time
	Over30Pct float64
	Over90Pct float64
}

// Balances are the overdue totals of a division for a month.
type Balances struct {
	TotalOver30 float64
	TotalOver90 float64
}

// CustomerBalance is a customer's overdue amount within a bucket.
type CustomerBalance struct {
	CustomerNumber string
	CustomerName   string
	Amount         float64
}

// Repository reads pre-aggregated receivable metrics.
type Repository interface {
	Months(ctx context.Context) ([]string, error)
	TrendRows(ctx context.Context, division Division) ([]TrendRow, error)
	Balances(ctx context.Context, division Division, month string) (Balances, error)
	TopCustomers(ctx context.Context, division Division, month string, bucket Bucket, limit int) ([]CustomerBalance, error)
	ForecastBadDebt(ctx context.Context, division Division, month string) (float64, error)
	TopBadDebt(ctx context.Context, division Division, month string, limit int) ([]BadDebtCustomer, error)
}

// ActionCounter counts open follow-up actions of a division within a month.
type ActionCounter interface {
	CountPending(ctx context.Context, division Division, month string) (int, error)
}

// FallbackRecorder observes snapshots replaced by the empty fallback.
type FallbackRecorder interface {
	SnapshotFallback(division string)
}

// errPartial marks a loaded value that is served but never cached.
var errPartial = errors.New("collections: partial snapshot")

// Service loads division snapshots through the cache and combines them.
type Service struct {
	repo      Repository
	counter   ActionCounter
	cache     *Cache
	logger    *slog.Logger
	fallbacks FallbackRecorder
	now       func() time.Time
}

// NewService wires a Repository with the action counter and cache.
func NewService(repo Repository, counter ActionCounter, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:    repo,
		counter: counter,
		cache:   cache,
		logger:  logger,
		now:     time.Now,
	}
}

// WithNow overrides the service clock.
func (s *Service) WithNow(fn func() time.Time) {
	if fn != nil {
		s.now = fn
	}
}

// WithFallbackRecorder reports empty-snapshot fallbacks to r.
func (s *Service) WithFallbackRecorder(r FallbackRecorder) {
	s.fallbacks = r
}

// AvailableMonths lists report months newest first.
func (s *Service) AvailableMonths(ctx context.Context) ([]string, error) {
	var months []string
	err := s.cached(ctx, keyMonths(), &months, func(ctx context.Context) (any, error) {
		return s.repo.Months(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("collections: months: %w", err)
	}
	return months, nil
}

// LatestMonth returns the newest report month, or the current month when none exist.
func (s *Service) LatestMonth(ctx context.Context) (string, error) {
	months, err := s.AvailableMonths(ctx)
	if err != nil {
		return "", err
	}
	return s.resolveMonth("", months)
}

// Snapshot loads one division's metrics for month. Any repository failure is
// logged and replaced by EmptySnapshot.
func (s *Service) Snapshot(ctx context.Context, division Division, month string) MetricSnapshot {
	var snap MetricSnapshot
	err := s.cached(ctx, keySnapshot(division, month), &snap, func(ctx context.Context) (any, error) {
		return s.loadSnapshot(ctx, division, month)
	})
	if err != nil {
		s.logger.Error("load division snapshot",
			slog.String("division", division.String()),
			slog.String("month", month),
			slog.Any("error", err))
		if s.fallbacks != nil {
			s.fallbacks.SnapshotFallback(division.String())
		}
		return EmptySnapshot()
	}
	return normalise(snap)
}

// Overview loads all divisions concurrently for month and combines them. An
// empty month selects the latest available one.
func (s *Service) Overview(ctx context.Context, month string) (Overview, error) {
	months := s.monthsOrEmpty(ctx)
	resolved, err := s.resolveMonth(month, months)
	if err != nil {
		return Overview{}, err
	}

	divisions := Divisions()
	snaps := make([]MetricSnapshot, len(divisions))
	g, gctx := errgroup.WithContext(ctx)
	for i, d := range divisions {
		g.Go(func() error {
			snaps[i] = s.Snapshot(gctx, d, resolved)
			return nil
		})
	}
	_ = g.Wait()

	combined := Combine(snaps[0], snaps[1], snaps[2])
	byDivision := make(map[Division]MetricSnapshot, len(divisions))
	for i, d := range divisions {
		byDivision[d] = snaps[i]
	}
	return Overview{
		Month:         resolved,
		Months:        months,
		Divisions:     byDivision,
		Combined:      combined,
		CriticalCases: len(combined.TopCustomers90),
	}, nil
}

// Division loads a single division's dashboard for month.
func (s *Service) Division(ctx context.Context, division Division, month string) (DivisionView, error) {
	months := s.monthsOrEmpty(ctx)
	resolved, err := s.resolveMonth(month, months)
	if err != nil {
		return DivisionView{}, err
	}

	var (
		snap    MetricSnapshot
		badDebt []BadDebtCustomer
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap = s.Snapshot(gctx, division, resolved)
		return nil
	})
	g.Go(func() error {
		badDebt = s.badDebt(gctx, division, resolved)
		return nil
	})
	_ = g.Wait()

	return DivisionView{
		Division:      division,
		Month:         resolved,
		Months:        months,
		Snapshot:      snap,
		BadDebt:       badDebt,
		CriticalCases: len(snap.TopCustomers90),
	}, nil
}

// Invalidate drops every cached snapshot.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) badDebt(ctx context.Context, division Division, month string) []BadDebtCustomer {
	var rows []BadDebtCustomer
	err := s.cached(ctx, keyBadDebt(division, month), &rows, func(ctx context.Context) (any, error) {
		return s.repo.TopBadDebt(ctx, division, month, TopCustomerLimit)
	})
	if err != nil {
		s.logger.Error("load bad debt customers",
			slog.String("division", division.String()),
			slog.String("month", month),
			slog.Any("error", err))
		return []BadDebtCustomer{}
	}
	if rows == nil {
		rows = []BadDebtCustomer{}
	}
	return rows
}

func (s *Service) loadSnapshot(ctx context.Context, division Division, month string) (MetricSnapshot, error) {
	snap := EmptySnapshot()

	rows, err := s.repo.TrendRows(ctx, division)
	if err != nil {
		return snap, fmt.Errorf("trend rows: %w", err)
	}
	for _, row := range rows {
		label := format.MonthLabelTime(row.Month, format.MonthShort)
		snap.TrendSeries30 = append(snap.TrendSeries30, TrendPoint{Month: label, Target: Over30Target, Actual: row.Over30Pct})
		snap.TrendSeries90 = append(snap.TrendSeries90, TrendPoint{Month: label, Target: Over90Target, Actual: row.Over90Pct})
	}

	balances, err := s.repo.Balances(ctx, division, month)
	if err != nil {
		return snap, fmt.Errorf("balances: %w", err)
	}
	snap.TotalOver30 = nonNegative(balances.TotalOver30)
	snap.TotalOver90 = nonNegative(balances.TotalOver90)

	top30, err := s.repo.TopCustomers(ctx, division, month, Over30, TopCustomerLimit)
	if err != nil {
		return snap, fmt.Errorf("top over30 customers: %w", err)
	}
	snap.TopCustomers30 = rankCustomers(top30, BucketOver30, Overdue30)

	top90, err := s.repo.TopCustomers(ctx, division, month, Over90, TopCustomerLimit)
	if err != nil {
		return snap, fmt.Errorf("top over90 customers: %w", err)
	}
	snap.TopCustomers90 = rankCustomers(top90, BucketOver90, Overdue90)

	// Bad debt and action counts degrade to zero on their own; the snapshot
	// is then served uncached so the next request retries them.
	degraded := false
	if badDebt, err := s.repo.ForecastBadDebt(ctx, division, month); err != nil {
		s.logger.Warn("load forecast bad debt", slog.String("division", division.String()), slog.Any("error", err))
		degraded = true
	} else {
		snap.TotalForecastBadDebt = nonNegative(badDebt)
	}
	if s.counter != nil {
		if count, err := s.counter.CountPending(ctx, division, month); err != nil {
			s.logger.Warn("count pending actions", slog.String("division", division.String()), slog.Any("error", err))
			degraded = true
		} else if count > 0 {
			snap.PendingActionCount = count
		}
	}
	if degraded {
		return snap, errPartial
	}
	return snap, nil
}

func (s *Service) monthsOrEmpty(ctx context.Context) []string {
	months, err := s.AvailableMonths(ctx)
	if err != nil {
		s.logger.Warn("available months", slog.Any("error", err))
		return []string{}
	}
	if months == nil {
		return []string{}
	}
	return months
}

func (s *Service) resolveMonth(month string, months []string) (string, error) {
	month = strings.TrimSpace(month)
	if month == "" {
		if len(months) > 0 {
			return months[0], nil
		}
		return s.now().UTC().Format("2006-01"), nil
	}
	if _, err := ParseMonth(month); err != nil {
		return "", err
	}
	return month, nil
}

// cached serves dest from the cache, loading directly when Redis is unavailable.
// A loader returning errPartial has its value served without being stored.
func (s *Service) cached(ctx context.Context, parts []string, dest any, loader func(context.Context) (any, error)) error {
	var (
		loaded    any
		loaderRan bool
		loaderErr error
	)
	tracked := func(ctx context.Context) (any, error) {
		loaded, loaderErr = loader(ctx)
		loaderRan = true
		return loaded, loaderErr
	}
	key, cacheErr := s.cache.BuildKey(ctx, parts...)
	if cacheErr == nil {
		cacheErr = s.cache.FetchJSON(ctx, key, dest, tracked)
	}
	switch {
	case !loaderRan && cacheErr == nil:
		return nil
	case !loaderRan:
		s.logger.Warn("collections cache unavailable", slog.Any("error", cacheErr))
		_, _ = tracked(ctx)
	case cacheErr != nil && loaderErr == nil:
		s.logger.Warn("collections cache store failed", slog.Any("error", cacheErr))
	}
	if loaderErr != nil && !errors.Is(loaderErr, errPartial) {
		return loaderErr
	}
	if loaderErr == nil && cacheErr == nil {
		return nil
	}
	return roundTrip(loaded, dest)
}

// rankCustomers sorts descending by amount, drops repeated customer numbers and
// caps the list.
func rankCustomers(rows []CustomerBalance, bucket, overdue string) []TopCustomer {
	sorted := make([]CustomerBalance, len(rows))
	copy(sorted, rows)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Amount > sorted[j].Amount })

	seen := make(map[string]struct{}, len(sorted))
	out := make([]TopCustomer, 0, TopCustomerLimit)
	for _, row := range sorted {
		id := row.CustomerNumber
		if id == "" {
			id = "name:" + row.CustomerName
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, TopCustomer{
			CustomerName:     row.CustomerName,
			AmountOwed:       row.Amount,
			BucketLabel:      bucket,
			DaysOverdueLabel: overdue,
		})
		if len(out) == TopCustomerLimit {
			break
		}
	}
	return out
}

func normalise(snap MetricSnapshot) MetricSnapshot {
	if snap.TrendSeries30 == nil {
		snap.TrendSeries30 = []TrendPoint{}
	}
	if snap.TrendSeries90 == nil {
		snap.TrendSeries90 = []TrendPoint{}
	}
	if snap.TopCustomers30 == nil {
		snap.TopCustomers30 = []TopCustomer{}
	}
	if snap.TopCustomers90 == nil {
		snap.TopCustomers90 = []TopCustomer{}
	}
	return snap
}

func nonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
