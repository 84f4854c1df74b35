package export

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/odyssey-erp/arcollect/internal/collections"
	"github.com/odyssey-erp/arcollect/internal/format"
)

// Renderer converts an HTML document to PDF.
type Renderer interface {
	RenderHTML(ctx context.Context, name, html string) ([]byte, error)
}

// PDFExporter renders the overview through Gotenberg.
type PDFExporter struct {
	Renderer Renderer
}

// RenderOverview builds the overview document and returns the PDF bytes.
func (p *PDFExporter) RenderOverview(ctx context.Context, ov collections.Overview) ([]byte, error) {
	if p == nil || p.Renderer == nil {
		return nil, errors.New("export: pdf renderer not initialised")
	}
	data, err := p.Renderer.RenderHTML(ctx, "dashboard.html", OverviewHTML(ov))
	if err != nil {
		return nil, fmt.Errorf("export: render overview: %w", err)
	}
	return data, nil
}

// OverviewHTML renders a print-friendly overview document.
func OverviewHTML(ov collections.Overview) string {
	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;margin-bottom:16px;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;}section{margin-bottom:24px;} .label{text-align:left;}")
	b.WriteString("</style></head><body>")
	b.WriteString(fmt.Sprintf("<h1>Collections Overview: %s</h1>", html.EscapeString(format.MonthLabel(ov.Month, format.MonthLong))))

	b.WriteString("<section><h2>Summary</h2><table><thead><tr><th>Division</th><th>Over 30</th><th>Over 90</th><th>Forecast Bad Debt</th><th>Pending Actions</th></tr></thead><tbody>")
	for _, d := range collections.Divisions() {
		snap, ok := ov.Divisions[d]
		if !ok {
			snap = collections.EmptySnapshot()
		}
		writeSummaryRow(&b, d.String(), snap)
	}
	writeSummaryRow(&b, "All divisions", collections.MetricSnapshot(ov.Combined))
	b.WriteString("</tbody></table>")
	b.WriteString(fmt.Sprintf("<p>Critical cases: %d</p></section>", ov.CriticalCases))

	if len(ov.Combined.TrendSeries30) > 0 {
		b.WriteString("<section><h2>Aging Trend</h2><table><thead><tr><th>Month</th><th>Over 30 Actual</th><th>Over 30 Target</th><th>Over 90 Actual</th><th>Over 90 Target</th></tr></thead><tbody>")
		over90 := make(map[string]collections.TrendPoint, len(ov.Combined.TrendSeries90))
		for _, p := range ov.Combined.TrendSeries90 {
			over90[p.Month] = p
		}
		for _, p := range ov.Combined.TrendSeries30 {
			q := over90[p.Month]
			b.WriteString("<tr><td class=\"label\">")
			b.WriteString(html.EscapeString(p.Month))
			b.WriteString("</td><td>")
			b.WriteString(format.Percent(p.Actual))
			b.WriteString("</td><td>")
			b.WriteString(format.Percent(p.Target))
			b.WriteString("</td><td>")
			b.WriteString(format.Percent(q.Actual))
			b.WriteString("</td><td>")
			b.WriteString(format.Percent(q.Target))
			b.WriteString("</td></tr>")
		}
		b.WriteString("</tbody></table></section>")
	}

	writeCustomers(&b, "Top Customers Over 30", ov.Combined.TopCustomers30)
	writeCustomers(&b, "Top Customers Over 90", ov.Combined.TopCustomers90)

	b.WriteString("</body></html>")
	return b.String()
}

func writeSummaryRow(b *strings.Builder, label string, snap collections.MetricSnapshot) {
	b.WriteString("<tr><td class=\"label\">")
	b.WriteString(html.EscapeString(label))
	b.WriteString("</td><td>")
	b.WriteString(format.Currency(snap.TotalOver30))
	b.WriteString("</td><td>")
	b.WriteString(format.Currency(snap.TotalOver90))
	b.WriteString("</td><td>")
	b.WriteString(format.Currency(snap.TotalForecastBadDebt))
	b.WriteString(fmt.Sprintf("</td><td>%d</td></tr>", snap.PendingActionCount))
}

func writeCustomers(b *strings.Builder, title string, rows []collections.TopCustomer) {
	if len(rows) == 0 {
		return
	}
	b.WriteString("<section><h2>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</h2><table><thead><tr><th>Customer</th><th>Amount Owed</th><th>Days Overdue</th></tr></thead><tbody>")
	for _, c := range rows {
		b.WriteString("<tr><td class=\"label\">")
		b.WriteString(html.EscapeString(c.CustomerName))
		b.WriteString("</td><td>")
		b.WriteString(format.Currency(c.AmountOwed))
		b.WriteString("</td><td>")
		b.WriteString(html.EscapeString(c.DaysOverdueLabel))
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table></section>")
}
