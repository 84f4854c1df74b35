package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/odyssey-erp/arcollect/internal/collections/memory"
	platformdb "github.com/odyssey-erp/arcollect/internal/platform/db"
)

// SeedResult counts the rows written by Seed.
type SeedResult struct {
	Trends    int
	Customers int
}

// Seed replaces the report rows of every month present in trends and
// customers inside one transaction.
func Seed(ctx context.Context, pool *pgxpool.Pool, trends []memory.TrendRecord, customers []memory.CustomerRecord) (SeedResult, error) {
	var res SeedResult
	err := platformdb.WithTx(ctx, pool, func(tx pgx.Tx) error {
		res = SeedResult{}
		for _, t := range trends {
			if _, err := tx.Exec(ctx, `
				INSERT INTO trending_data_charts (entity, month, over30_percentage, over90_percentage)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (entity, month) DO UPDATE
				SET over30_percentage = EXCLUDED.over30_percentage,
				    over90_percentage = EXCLUDED.over90_percentage`,
				t.Division.String(), monthStart(t.Month), t.Over30Pct, t.Over90Pct); err != nil {
				return fmt.Errorf("trend %s %s: %w", t.Division, t.Month.Format("2006-01"), err)
			}
			res.Trends++
		}

		months := make(map[time.Time]struct{})
		for _, c := range customers {
			months[monthStart(c.Month)] = struct{}{}
		}
		for m := range months {
			if _, err := tx.Exec(ctx, `DELETE FROM dashboard_data WHERE month_of_report = $1`, m); err != nil {
				return fmt.Errorf("clear %s: %w", m.Format("2006-01"), err)
			}
		}

		n, err := tx.CopyFrom(ctx,
			pgx.Identifier{"dashboard_data"},
			[]string{"customer_number", "customer_name", "entity", "open_amount", "past_due", "over30", "over90", "fc_bd_eoq", "month_of_report"},
			pgx.CopyFromSlice(len(customers), func(i int) ([]any, error) {
				c := customers[i]
				pastDue := 31
				if c.Over90 > 0 {
					pastDue = 91
				}
				return []any{
					c.CustomerNumber,
					c.CustomerName,
					c.Division.String(),
					c.Over30,
					pastDue,
					c.Over30,
					c.Over90,
					c.ForecastBadDebt,
					monthStart(c.Month),
				}, nil
			}),
		)
		if err != nil {
			return fmt.Errorf("copy customers: %w", err)
		}
		res.Customers = int(n)
		return nil
	})
	if err != nil {
		return SeedResult{}, fmt.Errorf("collections/db: seed: %w", err)
	}
	return res, nil
}

func monthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
