package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Bars renders a grouped bar chart with one bar per series in each group.
func Bars(width, height int, labels []string, series []Series, opts BarsOpts) (template.HTML, error) {
	if len(labels) == 0 || len(series) == 0 {
		return Empty(width, height, opts.Title), nil
	}
	for _, s := range series {
		if len(s.Values) != len(labels) {
			return "", fmt.Errorf("svg: series %q has %d values for %d labels", s.Name, len(s.Values), len(labels))
		}
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	padding := opts.Padding
	if padding <= 0 {
		padding = DefaultPadding
	}
	tickCount := opts.TickCount
	if tickCount <= 0 {
		tickCount = DefaultTicks
	}
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#e2e8f0")
	valueFormat := opts.ValueFormat
	if valueFormat == nil {
		valueFormat = compact
	}

	// Leave room for wide currency ticks on the left.
	left := padding * 2
	chartWidth := float64(width) - left - padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	values := make([][]float64, 0, len(series))
	for _, s := range series {
		values = append(values, s.Values)
	}
	minVal, maxVal := extent(values...)
	scale := chartHeight / (maxVal - minVal)
	zeroY := padding + chartHeight - (0-minVal)*scale

	var b strings.Builder
	header(&b, width, height, opts.Title, fallback(opts.Description, "Grouped comparison"), "bar", "Bar chart")

	for i := 0; i <= tickCount; i++ {
		ratio := float64(i) / float64(tickCount)
		value := minVal + (maxVal-minVal)*ratio
		y := padding + chartHeight - ratio*chartHeight
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="3,3" aria-hidden="true"></line>`, left, y, left+chartWidth, y, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, left-6, y+4, axisColor, template.HTMLEscapeString(valueFormat(value)))
	}
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="1"></line>`, left, zeroY, left+chartWidth, zeroY, axisColor)

	groupWidth := chartWidth / float64(len(labels))
	barWidth := groupWidth * 0.8 / float64(len(series))
	for i, label := range labels {
		groupX := left + float64(i)*groupWidth + groupWidth*0.1
		for idx, s := range series {
			v := s.Values[i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			h := math.Abs(v) * scale
			y := zeroY - h
			if v < 0 {
				y = zeroY
			}
			fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="%s"><title>%s %s: %s</title></rect>`,
				groupX+float64(idx)*barWidth, y, barWidth*0.92, h, colorAt(s.Color, idx),
				template.HTMLEscapeString(label), template.HTMLEscapeString(s.Name), template.HTMLEscapeString(valueFormat(v)))
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, left+float64(i)*groupWidth+groupWidth/2, padding+chartHeight+14, axisColor, template.HTMLEscapeString(label))
	}

	legendX := left
	for idx, s := range series {
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="10" fill="%s"></rect>`, legendX, padding-20, colorAt(s.Color, idx))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10">%s</text>`, legendX+14, padding-11, axisColor, template.HTMLEscapeString(s.Name))
		legendX += 24 + float64(len(s.Name))*6
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}

// HBars renders a horizontal ranking, one row per label, largest value
// spanning the full width. The height follows the number of rows.
func HBars(width int, labels []string, values []float64, opts HBarsOpts) (template.HTML, error) {
	if len(labels) != len(values) {
		return "", fmt.Errorf("svg: %d labels for %d values", len(labels), len(values))
	}
	if width <= 0 {
		width = DefaultWidth
	}
	if len(labels) == 0 {
		return Empty(width, DefaultHeight, opts.Title), nil
	}
	labelWidth := opts.LabelWidth
	if labelWidth <= 0 {
		labelWidth = 180
	}
	rowHeight := opts.RowHeight
	if rowHeight <= 0 {
		rowHeight = 26
	}
	color := fallback(opts.Color, "#dc2626")
	axisColor := fallback(opts.AxisColor, "#475569")
	valueFormat := opts.ValueFormat
	if valueFormat == nil {
		valueFormat = compact
	}

	const valueGutter = 90.0
	barArea := float64(width) - labelWidth - valueGutter
	if barArea <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}
	height := int(math.Ceil(rowHeight*float64(len(labels)) + 8))

	_, maxVal := extent(values)

	var b strings.Builder
	header(&b, width, height, opts.Title, fallback(opts.Description, "Ranking"), "hbar", "Ranking")
	for i, label := range labels {
		v := math.Max(0, values[i])
		y := 4 + float64(i)*rowHeight
		w := v / maxVal * barArea
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="11" text-anchor="end">%s</text>`, labelWidth-8, y+rowHeight/2+4, axisColor, template.HTMLEscapeString(label))
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" rx="2" fill="%s"><title>%s: %s</title></rect>`,
			labelWidth, y+3, w, rowHeight-6, color, template.HTMLEscapeString(label), template.HTMLEscapeString(valueFormat(v)))
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10">%s</text>`, labelWidth+w+6, y+rowHeight/2+4, axisColor, template.HTMLEscapeString(valueFormat(v)))
	}
	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
