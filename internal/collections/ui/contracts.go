package ui

import (
	"html/template"

	"github.com/odyssey-erp/arcollect/internal/collections/svg"
)

// MonthOption is an entry of the month selector.
type MonthOption struct {
	Value    string
	Label    string
	Selected bool
}

// Card is a headline metric on the dashboard.
type Card struct {
	Title string
	Value string
	Hint  string
	Tone  string
}

// CustomerRow is a formatted top-customer table row.
type CustomerRow struct {
	Customer    string
	Amount      string
	Bucket      string
	DaysOverdue string
}

// DivisionLink points at a division dashboard.
type DivisionLink struct {
	Code   string
	Slug   string
	Active bool
}

// TrendCharts holds the rendered trend charts.
type TrendCharts struct {
	Over30 template.HTML
	Over90 template.HTML
}

// OverviewViewModel is the data behind the combined dashboard page.
type OverviewViewModel struct {
	Month     string
	MonthName string
	Months    []MonthOption
	Divisions []DivisionLink
	Cards     []Card
	Trends    TrendCharts
	Balances  template.HTML
	Top30     []CustomerRow
	Top90     []CustomerRow
}

// DivisionViewModel is the data behind a single division page.
type DivisionViewModel struct {
	Division  string
	Slug      string
	Month     string
	MonthName string
	Months    []MonthOption
	Divisions []DivisionLink
	Cards     []Card
	Trends    TrendCharts
	BadDebt   template.HTML
	Top30     []CustomerRow
	Top90     []CustomerRow
}

// ActionRow is a formatted follow-up action.
type ActionRow struct {
	ID          int64
	ParentName  string
	RequestedOn string
	Owner       string
	Comment     string
	Total       string
}

// ActionForm echoes submitted values after a failed create.
type ActionForm struct {
	ParentName  string
	RequestedOn string
	Owner       string
	Comment     string
	Total       string
}

// ActionsViewModel is the data behind the actions page.
type ActionsViewModel struct {
	Division  string
	Slug      string
	Divisions []DivisionLink
	Items     []ActionRow
	Form      ActionForm
	Errors    map[string]string
	EditID    int64
}

// ChartRenderer abstracts SVG rendering for the dashboard.
type ChartRenderer interface {
	Lines(width, height int, labels []string, series []svg.Series, opts svg.LinesOpts) (template.HTML, error)
	Bars(width, height int, labels []string, series []svg.Series, opts svg.BarsOpts) (template.HTML, error)
	HBars(width int, labels []string, values []float64, opts svg.HBarsOpts) (template.HTML, error)
}

// SVGRenderer renders charts with the svg package.
type SVGRenderer struct{}

// Lines implements ChartRenderer.
func (SVGRenderer) Lines(width, height int, labels []string, series []svg.Series, opts svg.LinesOpts) (template.HTML, error) {
	return svg.Lines(width, height, labels, series, opts)
}

// Bars implements ChartRenderer.
func (SVGRenderer) Bars(width, height int, labels []string, series []svg.Series, opts svg.BarsOpts) (template.HTML, error) {
	return svg.Bars(width, height, labels, series, opts)
}

// HBars implements ChartRenderer.
func (SVGRenderer) HBars(width int, labels []string, values []float64, opts svg.HBarsOpts) (template.HTML, error) {
	return svg.HBars(width, labels, values, opts)
}
