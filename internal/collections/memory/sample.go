package memory

import (
	"fmt"
	"time"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

type sampleCustomer struct {
	name        string
	amount      float64
	daysOverdue int
}

type sampleDivision struct {
	over30    [12]float64
	over90    [12]float64
	customers []sampleCustomer
}

var sampleDivisions = map[collections.Division]sampleDivision{
	collections.DivisionPPA: {
		over30: [12]float64{45, 35, 30, 25, 18, 14, 13, 12, 11, 10, 9, 8},
		over90: [12]float64{25, 20, 15, 12, 8, 5, 4, 4, 3, 3, 2, 2},
		customers: []sampleCustomer{
			{"PPA Customer A", 10000, 45}, {"PPA Customer B", 15000, 60}, {"PPA Customer C", 8000, 35},
			{"PPA Customer D", 12500, 55}, {"PPA Customer E", 9500, 40}, {"PPA Customer F", 25000, 120},
			{"PPA Customer G", 18000, 150}, {"PPA Customer H", 22000, 180}, {"PPA Customer I", 16500, 135},
			{"PPA Customer J", 20000, 165},
		},
	},
	collections.DivisionMCS: {
		over30: [12]float64{48, 40, 35, 28, 20, 16, 15, 14, 13, 12, 11, 10},
		over90: [12]float64{28, 22, 18, 14, 10, 7, 6, 5, 4, 4, 3, 3},
		customers: []sampleCustomer{
			{"MCS Customer A", 12000, 45}, {"MCS Customer B", 18000, 60}, {"MCS Customer C", 9500, 35},
			{"MCS Customer D", 14500, 55}, {"MCS Customer E", 11000, 40}, {"MCS Customer F", 28000, 120},
			{"MCS Customer G", 21000, 150}, {"MCS Customer H", 24500, 180}, {"MCS Customer I", 19500, 135},
			{"MCS Customer J", 23000, 165},
		},
	},
	collections.DivisionEPM: {
		over30: [12]float64{42, 38, 32, 26, 22, 17, 16, 15, 14, 13, 12, 11},
		over90: [12]float64{24, 20, 16, 12, 9, 8, 7, 6, 5, 5, 4, 4},
		customers: []sampleCustomer{
			{"EPM Customer A", 11000, 45}, {"EPM Customer B", 16500, 60}, {"EPM Customer C", 8800, 35},
			{"EPM Customer D", 13500, 55}, {"EPM Customer E", 10200, 40}, {"EPM Customer F", 26000, 120},
			{"EPM Customer G", 19500, 150}, {"EPM Customer H", 23000, 180}, {"EPM Customer I", 17500, 135},
			{"EPM Customer J", 21500, 165},
		},
	},
}

// badDebtRatio is the share of over-90 balances forecast as uncollectible.
const badDebtRatio = 0.4

// SampleData returns a year of demonstration rows for every division. The
// last two months of the year carry customer balances.
func SampleData(year int) ([]TrendRecord, []CustomerRecord) {
	trends := make([]TrendRecord, 0, 36)
	customers := make([]CustomerRecord, 0, 60)
	for _, division := range collections.Divisions() {
		sample := sampleDivisions[division]
		for i := 0; i < 12; i++ {
			trends = append(trends, TrendRecord{
				Division:  division,
				Month:     time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC),
				Over30Pct: sample.over30[i],
				Over90Pct: sample.over90[i],
			})
		}
		for _, m := range []struct {
			month time.Month
			scale float64
		}{{time.November, 0.9}, {time.December, 1}} {
			for idx, c := range sample.customers {
				amount := c.amount * m.scale
				rec := CustomerRecord{
					Division:       division,
					Month:          time.Date(year, m.month, 1, 0, 0, 0, 0, time.UTC),
					CustomerNumber: fmt.Sprintf("%s-%03d", division, idx+1),
					CustomerName:   c.name,
					Over30:         amount,
				}
				if c.daysOverdue >= 90 {
					rec.Over90 = amount
					rec.ForecastBadDebt = amount * badDebtRatio
				}
				customers = append(customers, rec)
			}
		}
	}
	return trends, customers
}

// NewSample returns a Store seeded with SampleData.
func NewSample(year int) *Store {
	trends, customers := SampleData(year)
	return New(trends, customers)
}
