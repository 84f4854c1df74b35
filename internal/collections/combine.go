package collections

// Combine merges three division snapshots. Trend series are averaged per month
// over the divisions that reported the month, in order of first appearance.
// Top-customer lists are concatenated in argument order and totals are summed.
func Combine(a, b, c MetricSnapshot) CombinedSnapshot {
	return CombinedSnapshot{
		TrendSeries30:        averageByMonth(a.TrendSeries30, b.TrendSeries30, c.TrendSeries30),
		TrendSeries90:        averageByMonth(a.TrendSeries90, b.TrendSeries90, c.TrendSeries90),
		TopCustomers30:       concatCustomers(a.TopCustomers30, b.TopCustomers30, c.TopCustomers30),
		TopCustomers90:       concatCustomers(a.TopCustomers90, b.TopCustomers90, c.TopCustomers90),
		TotalOver30:          a.TotalOver30 + b.TotalOver30 + c.TotalOver30,
		TotalOver90:          a.TotalOver90 + b.TotalOver90 + c.TotalOver90,
		TotalForecastBadDebt: a.TotalForecastBadDebt + b.TotalForecastBadDebt + c.TotalForecastBadDebt,
		PendingActionCount:   a.PendingActionCount + b.PendingActionCount + c.PendingActionCount,
	}
}

type monthAccumulator struct {
	sumActual float64
	sumTarget float64
	count     int
}

func averageByMonth(series ...[]TrendPoint) []TrendPoint {
	order := make([]string, 0)
	acc := make(map[string]*monthAccumulator)
	for _, points := range series {
		for _, p := range points {
			entry, ok := acc[p.Month]
			if !ok {
				entry = &monthAccumulator{}
				acc[p.Month] = entry
				order = append(order, p.Month)
			}
			entry.sumActual += p.Actual
			entry.sumTarget += p.Target
			entry.count++
		}
	}
	out := make([]TrendPoint, 0, len(order))
	for _, month := range order {
		entry := acc[month]
		out = append(out, TrendPoint{
			Month:  month,
			Actual: entry.sumActual / float64(entry.count),
			Target: entry.sumTarget / float64(entry.count),
		})
	}
	return out
}

func concatCustomers(lists ...[]TopCustomer) []TopCustomer {
	n := 0
	for _, l := range lists {
		n += len(l)
	}
	out := make([]TopCustomer, 0, n)
	for _, l := range lists {
		out = append(out, l...)
	}
	return out
}
