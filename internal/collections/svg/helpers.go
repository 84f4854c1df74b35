package svg

import (
	"fmt"
	"html/template"
	"math"
	"strings"
)

func fallback(value, defaultValue string) string {
	if strings.TrimSpace(value) == "" {
		return defaultValue
	}
	return value
}

func colorAt(color string, idx int) string {
	return fallback(color, palette[idx%len(palette)])
}

// extent returns the min and max over every value, always including zero.
func extent(series ...[]float64) (float64, float64) {
	minVal, maxVal := 0.0, 0.0
	for _, values := range series {
		for _, v := range values {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				continue
			}
			minVal = math.Min(minVal, v)
			maxVal = math.Max(maxVal, v)
		}
	}
	if almostEqual(minVal, maxVal) {
		maxVal = minVal + 1
	}
	return minVal, maxVal
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(hi, v))
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func makeID(base, suffix string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		}
		return '-'
	}, strings.ToLower(strings.TrimSpace(base)))
	cleaned = strings.Trim(cleaned, "-")
	if cleaned == "" {
		cleaned = "chart"
	}
	return cleaned + "-" + suffix
}

// compact renders axis ticks such as 1.5k or 2.0M.
func compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1_000_000_000:
		return fmt.Sprintf("%.1fB", v/1_000_000_000)
	case abs >= 1_000_000:
		return fmt.Sprintf("%.1fM", v/1_000_000)
	case abs >= 1_000:
		return fmt.Sprintf("%.1fk", v/1_000)
	case almostEqual(v, math.Round(v)):
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}

func header(b *strings.Builder, width, height int, title, desc, kind, defaultTitle string) {
	titleID := makeID(title, kind+"-title")
	descID := makeID(title, kind+"-desc")
	fmt.Fprintf(b, `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %d %d" role="img" aria-labelledby="%s %s">`, width, height, titleID, descID)
	fmt.Fprintf(b, `<title id="%s">%s</title>`, titleID, template.HTMLEscapeString(fallback(title, defaultTitle)))
	fmt.Fprintf(b, `<desc id="%s">%s</desc>`, descID, template.HTMLEscapeString(desc))
}

// Empty renders a placeholder used when a chart has no data.
func Empty(width, height int, title string) template.HTML {
	if width <= 0 {
		width = DefaultWidth
	}
	if height <= 0 {
		height = DefaultHeight
	}
	var b strings.Builder
	header(&b, width, height, title, "No data available", "empty", "Chart")
	fmt.Fprintf(&b, `<text x="%d" y="%d" fill="#64748b" font-size="12" text-anchor="middle">No data available</text>`, width/2, height/2)
	b.WriteString("</svg>")
	return template.HTML(b.String())
}
