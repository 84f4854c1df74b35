// Package svg renders the dashboard charts as inline SVG markup.
package svg

// Series is one named set of values drawn on a chart.
type Series struct {
	Name   string
	Color  string
	Values []float64
	// Dashed draws a line series with a dash pattern, used for targets.
	Dashed bool
}

// LinesOpts customises Lines.
type LinesOpts struct {
	Title       string
	Description string
	// YMin and YMax fix the value domain. When YMax <= YMin the domain is
	// derived from the data.
	YMin      float64
	YMax      float64
	TickStep  float64
	AxisColor string
	GridColor string
	Padding   float64
	ShowDots  bool
	// ValueFormat renders tick labels. Defaults to compact numbers.
	ValueFormat func(float64) string
}

// BarsOpts customises Bars.
type BarsOpts struct {
	Title       string
	Description string
	AxisColor   string
	GridColor   string
	Padding     float64
	TickCount   int
	ValueFormat func(float64) string
}

// HBarsOpts customises HBars.
type HBarsOpts struct {
	Title       string
	Description string
	Color       string
	AxisColor   string
	LabelWidth  float64
	RowHeight   float64
	ValueFormat func(float64) string
}

// Defaults shared by the renderers.
const (
	DefaultWidth   = 720
	DefaultHeight  = 260
	DefaultPadding = 32.0
	DefaultTicks   = 5
)

var palette = []string{"#2563eb", "#dc2626", "#16a34a", "#f59e0b", "#7c3aed"}
