// Package db reads receivable metrics from the Postgres reporting views.
package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

// Querier is the subset of pgxpool.Pool used by the repository.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements collections.Repository on top of the reporting views.
type Repository struct {
	q Querier
}

var _ collections.Repository = (*Repository)(nil)

// NewRepository constructs a repository backed by pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{q: pool}
}

// NewRepositoryWithQuerier allows injecting a transaction or test double.
func NewRepositoryWithQuerier(q Querier) *Repository {
	return &Repository{q: q}
}

const monthsQuery = `
SELECT DISTINCT to_char(month_of_report, 'YYYY-MM') AS month
FROM total_balances_per_entity
ORDER BY month DESC`

// Months lists report months newest first.
func (r *Repository) Months(ctx context.Context) ([]string, error) {
	rows, err := r.q.Query(ctx, monthsQuery)
	if err != nil {
		return nil, fmt.Errorf("collections/db: months: %w", err)
	}
	months, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collections/db: months: %w", err)
	}
	return months, nil
}

const trendQuery = `
SELECT month, over30_percentage, over90_percentage
FROM trending_data_charts
WHERE entity = $1
ORDER BY month ASC`

// TrendRows returns the trend history of a division in ascending order.
func (r *Repository) TrendRows(ctx context.Context, division collections.Division) ([]collections.TrendRow, error) {
	rows, err := r.q.Query(ctx, trendQuery, division.String())
	if err != nil {
		return nil, fmt.Errorf("collections/db: trend rows: %w", err)
	}
	defer rows.Close()

	var out []collections.TrendRow
	for rows.Next() {
		var (
			month          time.Time
			over30, over90 pgtype.Numeric
		)
		if err := rows.Scan(&month, &over30, &over90); err != nil {
			return nil, fmt.Errorf("collections/db: scan trend row: %w", err)
		}
		out = append(out, collections.TrendRow{
			Month:     month,
			Over30Pct: numericToFloat(over30),
			Over90Pct: numericToFloat(over90),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collections/db: trend rows: %w", err)
	}
	return out, nil
}

const balancesQuery = `
SELECT total_over30, total_over90
FROM total_balances_per_entity
WHERE entity = $1 AND month_of_report >= $2 AND month_of_report < $3`

// Balances returns the overdue totals of a division for month. A month with
// no rows yields zero totals.
func (r *Repository) Balances(ctx context.Context, division collections.Division, month string) (collections.Balances, error) {
	from, to, err := collections.MonthRange(month)
	if err != nil {
		return collections.Balances{}, err
	}
	rows, err := r.q.Query(ctx, balancesQuery, division.String(), from, to)
	if err != nil {
		return collections.Balances{}, fmt.Errorf("collections/db: balances: %w", err)
	}
	defer rows.Close()

	var b collections.Balances
	for rows.Next() {
		var over30, over90 pgtype.Numeric
		if err := rows.Scan(&over30, &over90); err != nil {
			return collections.Balances{}, fmt.Errorf("collections/db: scan balances: %w", err)
		}
		b.TotalOver30 += numericToFloat(over30)
		b.TotalOver90 += numericToFloat(over90)
	}
	if err := rows.Err(); err != nil {
		return collections.Balances{}, fmt.Errorf("collections/db: balances: %w", err)
	}
	return b, nil
}

const (
	topOver30Query = `
SELECT customer_number, customer_name, total_over30
FROM top_10_over30_customers_monthly
WHERE entity = $1 AND month_of_report >= $2 AND month_of_report < $3
ORDER BY total_over30 DESC, customer_number
LIMIT $4`

	topOver90Query = `
SELECT customer_number, customer_name, total_over90
FROM top_10_over90_customers_monthly
WHERE entity = $1 AND month_of_report >= $2 AND month_of_report < $3
ORDER BY total_over90 DESC, customer_number
LIMIT $4`
)

// TopCustomers returns the largest debtors of a bucket for month.
func (r *Repository) TopCustomers(ctx context.Context, division collections.Division, month string, bucket collections.Bucket, limit int) ([]collections.CustomerBalance, error) {
	from, to, err := collections.MonthRange(month)
	if err != nil {
		return nil, err
	}
	query := topOver30Query
	if bucket == collections.Over90 {
		query = topOver90Query
	}
	rows, err := r.q.Query(ctx, query, division.String(), from, to, limit)
	if err != nil {
		return nil, fmt.Errorf("collections/db: top %s customers: %w", bucket, err)
	}
	defer rows.Close()

	var out []collections.CustomerBalance
	for rows.Next() {
		var (
			row    collections.CustomerBalance
			amount pgtype.Numeric
		)
		if err := rows.Scan(&row.CustomerNumber, &row.CustomerName, &amount); err != nil {
			return nil, fmt.Errorf("collections/db: scan top customer: %w", err)
		}
		row.Amount = numericToFloat(amount)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collections/db: top %s customers: %w", bucket, err)
	}
	return out, nil
}

const forecastBadDebtQuery = `
SELECT total_fc_bd_eoq
FROM total_fc_bd_eoq_entities
WHERE entity = $1 AND month_of_report < $2
ORDER BY month_of_report DESC
LIMIT 1`

// ForecastBadDebt returns the forecast bad debt of the latest report up to month.
func (r *Repository) ForecastBadDebt(ctx context.Context, division collections.Division, month string) (float64, error) {
	_, to, err := collections.MonthRange(month)
	if err != nil {
		return 0, err
	}
	var total pgtype.Numeric
	err = r.q.QueryRow(ctx, forecastBadDebtQuery, division.String(), to).Scan(&total)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("collections/db: forecast bad debt: %w", err)
	}
	return numericToFloat(total), nil
}

// topBadDebtQuery ranks customers of the report ForecastBadDebt reads, the
// latest one before $2.
const topBadDebtQuery = `
SELECT customer_name, total_fc_bd_eoq
FROM top_10_fc_bd_eoq_entities
WHERE entity = $1 AND month_of_report = (
	SELECT max(month_of_report)
	FROM total_fc_bd_eoq_entities
	WHERE entity = $1 AND month_of_report < $2
)
ORDER BY total_fc_bd_eoq DESC
LIMIT $3`

// TopBadDebt returns the customers with the largest forecast bad debt in the
// latest report up to month.
func (r *Repository) TopBadDebt(ctx context.Context, division collections.Division, month string, limit int) ([]collections.BadDebtCustomer, error) {
	_, to, err := collections.MonthRange(month)
	if err != nil {
		return nil, err
	}
	rows, err := r.q.Query(ctx, topBadDebtQuery, division.String(), to, limit)
	if err != nil {
		return nil, fmt.Errorf("collections/db: top bad debt: %w", err)
	}
	defer rows.Close()

	out := make([]collections.BadDebtCustomer, 0, limit)
	for rows.Next() {
		var (
			row    collections.BadDebtCustomer
			amount pgtype.Numeric
		)
		if err := rows.Scan(&row.CustomerName, &amount); err != nil {
			return nil, fmt.Errorf("collections/db: scan bad debt: %w", err)
		}
		row.Amount = numericToFloat(amount)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("collections/db: top bad debt: %w", err)
	}
	return out, nil
}

func numericToFloat(n pgtype.Numeric) float64 {
	if !n.Valid {
		return 0
	}
	f, err := n.Float64Value()
	if err != nil || !f.Valid {
		return 0
	}
	return f.Float64
}
