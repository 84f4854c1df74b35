package export

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

// Sections accepted by WriteOverviewCSV.
const (
	SectionSummary   = "summary"
	SectionTrend     = "trend"
	SectionCustomers = "customers"
)

// ValidSection reports whether s names a CSV section.
func ValidSection(s string) bool {
	switch s {
	case SectionSummary, SectionTrend, SectionCustomers:
		return true
	}
	return false
}

// WriteOverviewCSV serialises one section of the overview.
func WriteOverviewCSV(w io.Writer, ov collections.Overview, section string) error {
	switch section {
	case SectionTrend:
		return WriteTrendCSV(w, ov.Combined.TrendSeries30, ov.Combined.TrendSeries90)
	case SectionCustomers:
		rows := make([]collections.TopCustomer, 0, len(ov.Combined.TopCustomers30)+len(ov.Combined.TopCustomers90))
		rows = append(rows, ov.Combined.TopCustomers30...)
		rows = append(rows, ov.Combined.TopCustomers90...)
		return WriteCustomersCSV(w, rows)
	default:
		return WriteSummaryCSV(w, ov)
	}
}

// WriteSummaryCSV emits the per-division totals followed by the combined row.
func WriteSummaryCSV(w io.Writer, ov collections.Overview) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Month", "Division", "Over 30", "Over 90", "Forecast Bad Debt", "Pending Actions", "Critical Cases"}); err != nil {
		return err
	}
	for _, d := range collections.Divisions() {
		snap, ok := ov.Divisions[d]
		if !ok {
			snap = collections.EmptySnapshot()
		}
		if err := writer.Write(summaryRecord(ov.Month, d.String(), snap, len(snap.TopCustomers90))); err != nil {
			return err
		}
	}
	if err := writer.Write(summaryRecord(ov.Month, "All", collections.MetricSnapshot(ov.Combined), ov.CriticalCases)); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteTrendCSV emits the over 30 and over 90 series side by side, keyed by month label.
func WriteTrendCSV(w io.Writer, over30, over90 []collections.TrendPoint) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Month", "Over 30 Target", "Over 30 Actual", "Over 90 Target", "Over 90 Actual"}); err != nil {
		return err
	}
	index := make(map[string]collections.TrendPoint, len(over90))
	for _, p := range over90 {
		index[p.Month] = p
	}
	for _, p := range over30 {
		record := []string{p.Month, formatFloat(p.Target), formatFloat(p.Actual), "", ""}
		if q, ok := index[p.Month]; ok {
			record[3] = formatFloat(q.Target)
			record[4] = formatFloat(q.Actual)
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCustomersCSV prints ranked customers.
func WriteCustomersCSV(w io.Writer, customers []collections.TopCustomer) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()
	if err := writer.Write([]string{"Customer", "Amount Owed", "Bucket", "Days Overdue"}); err != nil {
		return err
	}
	for _, c := range customers {
		if err := writer.Write([]string{c.CustomerName, formatFloat(c.AmountOwed), c.BucketLabel, c.DaysOverdueLabel}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func summaryRecord(month, label string, snap collections.MetricSnapshot, critical int) []string {
	return []string{
		month,
		label,
		formatFloat(snap.TotalOver30),
		formatFloat(snap.TotalOver90),
		formatFloat(snap.TotalForecastBadDebt),
		strconv.Itoa(snap.PendingActionCount),
		strconv.Itoa(critical),
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
