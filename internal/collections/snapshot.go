package collections

// Trend targets in percent of the outstanding balance.
const (
	Over30Target = 15.0
	Over90Target = 6.0
)

// Labels attached to top-customer rows.
const (
	BucketOver30 = "Over 30"
	BucketOver90 = "Over 90"
	Overdue30    = "30+"
	Overdue90    = "90+"
)

// TopCustomerLimit caps the ranked customer lists of a single division.
const TopCustomerLimit = 10

// TrendPoint is one month of a target versus actual percentage series.
type TrendPoint struct {
	Month  string  `json:"month"`
	Target float64 `json:"target"`
	Actual float64 `json:"actual"`
}

// TopCustomer is a ranked customer contributing to an aging bucket.
type TopCustomer struct {
	CustomerName     string  `json:"customerName"`
	AmountOwed       float64 `json:"amountOwed"`
	BucketLabel      string  `json:"bucketLabel"`
	DaysOverdueLabel string  `json:"daysOverdueLabel"`
}

// MetricSnapshot holds one division's metrics for a report month.
type MetricSnapshot struct {
	TrendSeries30        []TrendPoint  `json:"trendSeries30"`
	TrendSeries90        []TrendPoint  `json:"trendSeries90"`
	TopCustomers30       []TopCustomer `json:"topCustomers30"`
	TopCustomers90       []TopCustomer `json:"topCustomers90"`
	TotalOver30          float64       `json:"totalOver30"`
	TotalOver90          float64       `json:"totalOver90"`
	TotalForecastBadDebt float64       `json:"totalForecastBadDebt"`
	PendingActionCount   int           `json:"pendingActionCount"`
}

// CombinedSnapshot is the cross-division aggregate produced by Combine.
type CombinedSnapshot MetricSnapshot

// EmptySnapshot returns a snapshot with zero totals and empty, non-nil series.
func EmptySnapshot() MetricSnapshot {
	return MetricSnapshot{
		TrendSeries30:  []TrendPoint{},
		TrendSeries90:  []TrendPoint{},
		TopCustomers30: []TopCustomer{},
		TopCustomers90: []TopCustomer{},
	}
}

// BadDebtCustomer is a customer ranked by forecast bad debt at end of quarter.
type BadDebtCustomer struct {
	CustomerName string  `json:"customerName"`
	Amount       float64 `json:"amount"`
}

// Overview is the dashboard landing data for a report month.
type Overview struct {
	Month         string                      `json:"month"`
	Months        []string                    `json:"months"`
	Divisions     map[Division]MetricSnapshot `json:"divisions"`
	Combined      CombinedSnapshot            `json:"combined"`
	CriticalCases int                         `json:"criticalCases"`
}

// DivisionView is the data behind a single-division dashboard.
type DivisionView struct {
	Division      Division          `json:"division"`
	Month         string            `json:"month"`
	Months        []string          `json:"months"`
	Snapshot      MetricSnapshot    `json:"snapshot"`
	BadDebt       []BadDebtCustomer `json:"badDebt"`
	CriticalCases int               `json:"criticalCases"`
}
