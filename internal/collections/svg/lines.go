package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

// Lines renders one or more line series over shared x labels. With a fixed
// domain, values outside it are clamped to the chart edge.
func Lines(width, height int, labels []string, series []Series, opts LinesOpts) (template.HTML, error) {
	if len(labels) == 0 {
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
	axisColor := fallback(opts.AxisColor, "#475569")
	gridColor := fallback(opts.GridColor, "#e2e8f0")
	tickFormat := opts.ValueFormat
	if tickFormat == nil {
		tickFormat = compact
	}

	chartWidth := float64(width) - 2*padding
	chartHeight := float64(height) - 2*padding
	if chartWidth <= 0 || chartHeight <= 0 {
		return "", fmt.Errorf("svg: viewport too small")
	}

	yMin, yMax := opts.YMin, opts.YMax
	if yMax <= yMin {
		values := make([][]float64, 0, len(series))
		for _, s := range series {
			values = append(values, s.Values)
		}
		yMin, yMax = extent(values...)
	}
	step := opts.TickStep
	if step <= 0 {
		step = (yMax - yMin) / DefaultTicks
	}

	xAt := func(i int) float64 {
		if len(labels) == 1 {
			return padding + chartWidth/2
		}
		return padding + float64(i)*chartWidth/float64(len(labels)-1)
	}
	yAt := func(v float64) float64 {
		return padding + chartHeight - (clamp(v, yMin, yMax)-yMin)/(yMax-yMin)*chartHeight
	}

	var b strings.Builder
	header(&b, width, height, opts.Title, fallback(opts.Description, "Trend over time"), "line", "Line chart")

	ticks := int(math.Round((yMax - yMin) / step))
	for i := 0; i <= ticks; i++ {
		value := yMin + float64(i)*step
		y := yAt(value)
		fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="0.5" stroke-dasharray="3,3" aria-hidden="true"></line>`, padding, y, padding+chartWidth, y, gridColor)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="end">%s</text>`, padding-6, y+4, axisColor, template.HTMLEscapeString(tickFormat(value)))
	}
	fmt.Fprintf(&b, `<g stroke="%s" aria-hidden="true">`, axisColor)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, padding, padding, padding, padding+chartHeight)
	fmt.Fprintf(&b, `<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke-width="1"></line>`, padding, padding+chartHeight, padding+chartWidth, padding+chartHeight)
	b.WriteString("</g>")

	for idx, s := range series {
		color := colorAt(s.Color, idx)
		var path strings.Builder
		for i, v := range s.Values {
			cmd := "L"
			if i == 0 {
				cmd = "M"
			}
			fmt.Fprintf(&path, "%s%.2f %.2f ", cmd, xAt(i), yAt(v))
		}
		dash := ""
		if s.Dashed {
			dash = ` stroke-dasharray="6,4"`
		}
		fmt.Fprintf(&b, `<path d="%s" fill="none" stroke="%s" stroke-width="2" stroke-linejoin="round" stroke-linecap="round"%s><title>%s</title></path>`,
			strings.TrimSpace(path.String()), color, dash, template.HTMLEscapeString(s.Name))
		if opts.ShowDots && !s.Dashed {
			for i, v := range s.Values {
				fmt.Fprintf(&b, `<circle cx="%.2f" cy="%.2f" r="3" fill="%s"><title>%s %s: %s</title></circle>`,
					xAt(i), yAt(v), color, template.HTMLEscapeString(s.Name), template.HTMLEscapeString(labels[i]), template.HTMLEscapeString(tickFormat(v)))
			}
		}
	}

	// Thin out x labels so long histories stay legible.
	every := 1
	if maxLabels := int(chartWidth / 56); maxLabels > 0 && len(labels) > maxLabels {
		every = int(math.Ceil(float64(len(labels)) / float64(maxLabels)))
	}
	for i, label := range labels {
		if i%every != 0 && i != len(labels)-1 {
			continue
		}
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10" text-anchor="middle">%s</text>`, xAt(i), padding+chartHeight+14, axisColor, template.HTMLEscapeString(label))
	}

	legendX := padding
	for idx, s := range series {
		color := colorAt(s.Color, idx)
		fmt.Fprintf(&b, `<rect x="%.2f" y="%.2f" width="10" height="3" fill="%s"></rect>`, legendX, padding-16, color)
		fmt.Fprintf(&b, `<text x="%.2f" y="%.2f" fill="%s" font-size="10">%s</text>`, legendX+14, padding-12, axisColor, template.HTMLEscapeString(s.Name))
		legendX += 24 + float64(len(s.Name))*6
	}

	b.WriteString("</svg>")
	return template.HTML(b.String()), nil
}
