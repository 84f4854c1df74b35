package format

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MonthStyle selects the month label layout.
type MonthStyle int

const (
	// MonthShort renders "Jan 2024".
	MonthShort MonthStyle = iota
	// MonthLong renders "January 2024".
	MonthLong
)

var monthLayouts = []string{
	"2006-01",
	"2006-01-02",
	time.RFC3339,
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// ParseMonth parses raw into the first day of its month in UTC.
func ParseMonth(raw string) (time.Time, error) {
	value := strings.TrimSpace(raw)
	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("format: unrecognised month %q", raw)
}

// MonthLabel renders raw as a display label. Unparseable input is returned unchanged.
func MonthLabel(raw string, style MonthStyle) string {
	t, err := ParseMonth(raw)
	if err != nil {
		return raw
	}
	return MonthLabelTime(t, style)
}

// MonthLabelTime renders t as a display label.
func MonthLabelTime(t time.Time, style MonthStyle) string {
	if style == MonthLong {
		return t.Format("January 2006")
	}
	return t.Format("Jan 2006")
}

// Percent renders a percentage with at most one decimal, e.g. "12.5%".
func Percent(v float64) string {
	if math.Abs(v-math.Round(v)) < 1e-9 {
		return fmt.Sprintf("%.0f%%", v)
	}
	return fmt.Sprintf("%.1f%%", v)
}
