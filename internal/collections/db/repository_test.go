package db

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

type fakeRows struct {
	values [][]any
	idx    int
	err    error
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return r.err }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.values) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Values() ([]any, error) { return r.values[r.idx-1], nil }

func (r *fakeRows) Scan(dest ...any) error {
	row := r.values[r.idx-1]
	if len(dest) != len(row) {
		return fmt.Errorf("scan: want %d columns, got %d", len(row), len(dest))
	}
	for i, d := range dest {
		switch target := d.(type) {
		case *string:
			*target = row[i].(string)
		case *time.Time:
			*target = row[i].(time.Time)
		case *pgtype.Numeric:
			if err := target.Scan(fmt.Sprint(row[i])); err != nil {
				return err
			}
		default:
			return fmt.Errorf("scan: unsupported destination %T", d)
		}
	}
	return nil
}

type fakeRow struct {
	rows *fakeRows
	err  error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if !r.rows.Next() {
		return pgx.ErrNoRows
	}
	return r.rows.Scan(dest...)
}

type call struct {
	sql  string
	args []any
}

type fakeQuerier struct {
	rows  map[string][][]any
	err   error
	calls []call
}

func (f *fakeQuerier) lookup(sql string) [][]any {
	for view, rows := range f.rows {
		if strings.Contains(sql, view) {
			return rows
		}
	}
	return nil
}

func (f *fakeQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.calls = append(f.calls, call{sql: sql, args: args})
	if f.err != nil {
		return nil, f.err
	}
	return &fakeRows{values: f.lookup(sql)}, nil
}

func (f *fakeQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	f.calls = append(f.calls, call{sql: sql, args: args})
	return fakeRow{rows: &fakeRows{values: f.lookup(sql)}, err: f.err}
}

func TestRepositoryTrendRows(t *testing.T) {
	q := &fakeQuerier{rows: map[string][][]any{
		"trending_data_charts": {
			{time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), "45.5", "25"},
			{time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), "35", "20.25"},
		},
	}}
	repo := NewRepositoryWithQuerier(q)

	rows, err := repo.TrendRows(context.Background(), collections.DivisionPPA)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.InDelta(t, 45.5, rows[0].Over30Pct, 1e-9)
	assert.InDelta(t, 20.25, rows[1].Over90Pct, 1e-9)
	assert.Equal(t, []any{"PPA"}, q.calls[0].args)
}

func TestRepositoryBalancesUsesMonthRange(t *testing.T) {
	q := &fakeQuerier{rows: map[string][][]any{
		"total_balances_per_entity": {{"1500.50", "300"}},
	}}
	repo := NewRepositoryWithQuerier(q)

	b, err := repo.Balances(context.Background(), collections.DivisionMCS, "2024-03")
	require.NoError(t, err)
	assert.InDelta(t, 1500.5, b.TotalOver30, 1e-9)
	assert.InDelta(t, 300.0, b.TotalOver90, 1e-9)

	args := q.calls[0].args
	require.Len(t, args, 3)
	assert.Equal(t, "MCS", args[0])
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), args[1])
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), args[2])
}

func TestRepositoryBalancesMissingMonthIsZero(t *testing.T) {
	repo := NewRepositoryWithQuerier(&fakeQuerier{})
	b, err := repo.Balances(context.Background(), collections.DivisionEPM, "2024-03")
	require.NoError(t, err)
	assert.Equal(t, collections.Balances{}, b)
}

func TestRepositoryTopCustomersPicksBucketView(t *testing.T) {
	q := &fakeQuerier{rows: map[string][][]any{
		"top_10_over90_customers_monthly": {{"C-1", "Acme", "9000"}},
		"top_10_over30_customers_monthly": {{"C-2", "Beta", "100"}},
	}}
	repo := NewRepositoryWithQuerier(q)

	rows, err := repo.TopCustomers(context.Background(), collections.DivisionPPA, "2024-03", collections.Over90, 10)
	require.NoError(t, err)
	assert.Equal(t, []collections.CustomerBalance{{CustomerNumber: "C-1", CustomerName: "Acme", Amount: 9000}}, rows)
	assert.Contains(t, q.calls[0].sql, "top_10_over90_customers_monthly")
	assert.Equal(t, 10, q.calls[0].args[3])
}

func TestRepositoryForecastBadDebtNoRowsIsZero(t *testing.T) {
	repo := NewRepositoryWithQuerier(&fakeQuerier{})
	total, err := repo.ForecastBadDebt(context.Background(), collections.DivisionPPA, "2024-03")
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestRepositoryForecastBadDebt(t *testing.T) {
	q := &fakeQuerier{rows: map[string][][]any{"total_fc_bd_eoq_entities": {{"4200"}}}}
	repo := NewRepositoryWithQuerier(q)
	total, err := repo.ForecastBadDebt(context.Background(), collections.DivisionPPA, "2024-03")
	require.NoError(t, err)
	assert.InDelta(t, 4200.0, total, 1e-9)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC), q.calls[0].args[1])
}

func TestRepositoryTopBadDebtUsesForecastReportMonth(t *testing.T) {
	q := &fakeQuerier{rows: map[string][][]any{
		"top_10_fc_bd_eoq_entities": {{"Acme", "300"}, {"Beta", "200"}},
	}}
	repo := NewRepositoryWithQuerier(q)

	rows, err := repo.TopBadDebt(context.Background(), collections.DivisionPPA, "2024-12", 10)
	require.NoError(t, err)
	assert.Equal(t, []collections.BadDebtCustomer{{CustomerName: "Acme", Amount: 300}, {CustomerName: "Beta", Amount: 200}}, rows)
	assert.Contains(t, q.calls[0].sql, "max(month_of_report)")
	assert.Contains(t, q.calls[0].sql, "total_fc_bd_eoq_entities")
	assert.Equal(t, []any{"PPA", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), 10}, q.calls[0].args)
}

func TestRepositoryPropagatesQueryErrors(t *testing.T) {
	boom := errors.New("connection refused")
	repo := NewRepositoryWithQuerier(&fakeQuerier{err: boom})
	ctx := context.Background()

	_, err := repo.Months(ctx)
	assert.ErrorIs(t, err, boom)
	_, err = repo.TopBadDebt(ctx, collections.DivisionPPA, "2024-03", 10)
	assert.ErrorIs(t, err, boom)
	_, err = repo.ForecastBadDebt(ctx, collections.DivisionPPA, "2024-03")
	assert.ErrorIs(t, err, boom)
}

func TestRepositoryRejectsMalformedMonth(t *testing.T) {
	q := &fakeQuerier{}
	repo := NewRepositoryWithQuerier(q)
	_, err := repo.TopBadDebt(context.Background(), collections.DivisionPPA, "03/2024", 10)
	assert.ErrorIs(t, err, collections.ErrInvalidMonth)
	assert.Empty(t, q.calls)
}

func TestRepositoryMonths(t *testing.T) {
	q := &fakeQuerier{rows: map[string][][]any{"total_balances_per_entity": {{"2024-12"}, {"2024-11"}}}}
	months, err := NewRepositoryWithQuerier(q).Months(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-12", "2024-11"}, months)
}
