// Package ui turns collection snapshots into formatted view models.
package ui

import (
	"fmt"
	"html/template"
	"strconv"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/collections/svg"
	"github.com/odyssey-erp/arcollect/internal/format"
)

// Chart geometry and fixed trend domains.
const (
	chartWidth  = 640
	chartHeight = 260

	over30Max  = 50
	over30Step = 10
	over90Max  = 30
	over90Step = 5
)

const (
	colorTarget = "#94a3b8"
	colorOver30 = "#f59e0b"
	colorOver90 = "#dc2626"
)

// BuildOverview formats the combined dashboard.
func BuildOverview(ov collections.Overview, charts ChartRenderer) (OverviewViewModel, error) {
	combined := collections.MetricSnapshot(ov.Combined)
	trends, err := buildTrends(combined, charts)
	if err != nil {
		return OverviewViewModel{}, err
	}

	divisions := collections.Divisions()
	labels := make([]string, 0, len(divisions))
	over30 := make([]float64, 0, len(divisions))
	over90 := make([]float64, 0, len(divisions))
	for _, d := range divisions {
		snap := ov.Divisions[d]
		labels = append(labels, d.String())
		over30 = append(over30, snap.TotalOver30)
		over90 = append(over90, snap.TotalOver90)
	}
	balances, err := charts.Bars(chartWidth, chartHeight, labels, []svg.Series{
		{Name: "Over 30", Color: colorOver30, Values: over30},
		{Name: "Over 90", Color: colorOver90, Values: over90},
	}, svg.BarsOpts{Title: "Overdue balances by division", ValueFormat: format.Currency})
	if err != nil {
		return OverviewViewModel{}, fmt.Errorf("ui: balances chart: %w", err)
	}

	return OverviewViewModel{
		Month:     ov.Month,
		MonthName: format.MonthLabel(ov.Month, format.MonthLong),
		Months:    MonthOptions(ov.Months, ov.Month),
		Divisions: DivisionLinks(""),
		Cards: []Card{
			{Title: "Pending Actions", Value: strconv.Itoa(combined.PendingActionCount), Hint: "Requested this month", Tone: "info"},
			{Title: "Over 30 Days Impact", Value: format.Currency(combined.TotalOver30), Hint: "Outstanding over 30 days", Tone: "warning"},
			{Title: "Over 90 Days Impact", Value: format.Currency(combined.TotalOver90), Hint: "Outstanding over 90 days", Tone: "danger"},
			{Title: "Critical Cases", Value: strconv.Itoa(ov.CriticalCases), Hint: "Customers over 90 days", Tone: "danger"},
		},
		Trends:   trends,
		Balances: balances,
		Top30:    CustomerRows(combined.TopCustomers30),
		Top90:    CustomerRows(combined.TopCustomers90),
	}, nil
}

// BuildDivision formats a single division dashboard.
func BuildDivision(dv collections.DivisionView, charts ChartRenderer) (DivisionViewModel, error) {
	trends, err := buildTrends(dv.Snapshot, charts)
	if err != nil {
		return DivisionViewModel{}, err
	}
	labels := make([]string, 0, len(dv.BadDebt))
	values := make([]float64, 0, len(dv.BadDebt))
	for _, row := range dv.BadDebt {
		labels = append(labels, row.CustomerName)
		values = append(values, row.Amount)
	}
	badDebt, err := charts.HBars(chartWidth, labels, values, svg.HBarsOpts{
		Title:       "Top 10 forecast bad debt",
		Color:       colorOver90,
		ValueFormat: format.Currency,
	})
	if err != nil {
		return DivisionViewModel{}, fmt.Errorf("ui: bad debt chart: %w", err)
	}

	snap := dv.Snapshot
	return DivisionViewModel{
		Division:  dv.Division.String(),
		Slug:      dv.Division.Slug(),
		Month:     dv.Month,
		MonthName: format.MonthLabel(dv.Month, format.MonthLong),
		Months:    MonthOptions(dv.Months, dv.Month),
		Divisions: DivisionLinks(dv.Division),
		Cards: []Card{
			{Title: "Pending Actions", Value: strconv.Itoa(snap.PendingActionCount), Hint: "Requested this month", Tone: "info"},
			{Title: "Over 30 Days Impact", Value: format.Currency(snap.TotalOver30), Hint: "Outstanding over 30 days", Tone: "warning"},
			{Title: "Over 90 Days Impact", Value: format.Currency(snap.TotalOver90), Hint: "Outstanding over 90 days", Tone: "danger"},
			{Title: "Forecast Bad Debt", Value: format.Currency(snap.TotalForecastBadDebt), Hint: "End of quarter", Tone: "danger"},
		},
		Trends:  trends,
		BadDebt: badDebt,
		Top30:   CustomerRows(snap.TopCustomers30),
		Top90:   CustomerRows(snap.TopCustomers90),
	}, nil
}

// BuildActions formats a division's action list.
func BuildActions(division collections.Division, items []actions.Action) ActionsViewModel {
	rows := make([]ActionRow, 0, len(items))
	for _, a := range items {
		rows = append(rows, ActionRow{
			ID:          a.ID,
			ParentName:  a.ParentName,
			RequestedOn: a.RequestedOn.Format("02 Jan 2006"),
			Owner:       a.Owner,
			Comment:     a.Comment,
			Total:       format.Currency(a.Total.InexactFloat64()),
		})
	}
	return ActionsViewModel{
		Division:  division.String(),
		Slug:      division.Slug(),
		Divisions: DivisionLinks(division),
		Items:     rows,
		Errors:    map[string]string{},
	}
}

// CustomerRows formats top-customer entries, preserving their order.
func CustomerRows(customers []collections.TopCustomer) []CustomerRow {
	rows := make([]CustomerRow, 0, len(customers))
	for _, c := range customers {
		rows = append(rows, CustomerRow{
			Customer:    c.CustomerName,
			Amount:      format.Currency(c.AmountOwed),
			Bucket:      c.BucketLabel,
			DaysOverdue: c.DaysOverdueLabel,
		})
	}
	return rows
}

// MonthOptions builds selector entries, adding selected when it is missing
// from months.
func MonthOptions(months []string, selected string) []MonthOption {
	opts := make([]MonthOption, 0, len(months)+1)
	found := false
	for _, m := range months {
		opts = append(opts, MonthOption{Value: m, Label: format.MonthLabel(m, format.MonthLong), Selected: m == selected})
		found = found || m == selected
	}
	if !found && selected != "" {
		opts = append([]MonthOption{{Value: selected, Label: format.MonthLabel(selected, format.MonthLong), Selected: true}}, opts...)
	}
	return opts
}

// DivisionLinks lists every division, marking active.
func DivisionLinks(active collections.Division) []DivisionLink {
	divisions := collections.Divisions()
	links := make([]DivisionLink, 0, len(divisions))
	for _, d := range divisions {
		links = append(links, DivisionLink{Code: d.String(), Slug: d.Slug(), Active: d == active})
	}
	return links
}

func buildTrends(snap collections.MetricSnapshot, charts ChartRenderer) (TrendCharts, error) {
	over30, err := trendChart(snap.TrendSeries30, charts, "Over 30 days trend", colorOver30, over30Max, over30Step)
	if err != nil {
		return TrendCharts{}, fmt.Errorf("ui: over 30 chart: %w", err)
	}
	over90, err := trendChart(snap.TrendSeries90, charts, "Over 90 days trend", colorOver90, over90Max, over90Step)
	if err != nil {
		return TrendCharts{}, fmt.Errorf("ui: over 90 chart: %w", err)
	}
	return TrendCharts{Over30: over30, Over90: over90}, nil
}

func trendChart(points []collections.TrendPoint, charts ChartRenderer, title, color string, yMax, step float64) (template.HTML, error) {
	labels := make([]string, 0, len(points))
	target := make([]float64, 0, len(points))
	actual := make([]float64, 0, len(points))
	for _, p := range points {
		labels = append(labels, p.Month)
		target = append(target, p.Target)
		actual = append(actual, p.Actual)
	}
	return charts.Lines(chartWidth, chartHeight, labels, []svg.Series{
		{Name: "Target", Color: colorTarget, Values: target, Dashed: true},
		{Name: "Actual", Color: color, Values: actual},
	}, svg.LinesOpts{
		Title:       title,
		YMin:        0,
		YMax:        yMax,
		TickStep:    step,
		ShowDots:    true,
		ValueFormat: format.Percent,
	})
}
