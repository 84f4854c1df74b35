package svg

import (
	"strings"
	"testing"
)

func TestLinesFixedDomainTicks(t *testing.T) {
	html, err := Lines(600, 240, []string{"Jan 2024", "Feb 2024", "Mar 2024"}, []Series{
		{Name: "Target", Values: []float64{15, 15, 15}, Dashed: true},
		{Name: "Actual", Values: []float64{45, 35, 80}},
	}, LinesOpts{Title: "Over 30 Trend", YMin: 0, YMax: 50, TickStep: 10, ShowDots: true})
	if err != nil {
		t.Fatalf("lines renderer error: %v", err)
	}
	out := string(html)
	if !strings.HasPrefix(out, "<svg") || !strings.HasSuffix(out, "</svg>") {
		t.Fatalf("expected svg document, got %s", out)
	}
	for _, tick := range []string{">0<", ">10<", ">20<", ">30<", ">40<", ">50<"} {
		if !strings.Contains(out, tick) {
			t.Fatalf("expected tick %s in output", tick)
		}
	}
	if strings.Contains(out, ">60<") {
		t.Fatalf("domain must stay fixed at 50")
	}
	if got := strings.Count(out, "<path"); got != 2 {
		t.Fatalf("expected 2 paths, got %d", got)
	}
	if !strings.Contains(out, `stroke-dasharray="6,4"`) {
		t.Fatalf("expected dashed target line")
	}
	// Only the actual series carries dots.
	if got := strings.Count(out, "<circle"); got != 3 {
		t.Fatalf("expected 3 dots, got %d", got)
	}
	if !strings.Contains(out, `aria-labelledby="over-30-trend-line-title over-30-trend-line-desc"`) {
		t.Fatalf("expected accessibility attributes")
	}
}

func TestLinesEmptyRendersPlaceholder(t *testing.T) {
	html, err := Lines(0, 0, nil, nil, LinesOpts{Title: "Over 90 Trend"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(html), "No data available") {
		t.Fatalf("expected placeholder, got %s", html)
	}
}

func TestLinesRejectsMismatchedSeries(t *testing.T) {
	_, err := Lines(400, 200, []string{"a", "b"}, []Series{{Name: "x", Values: []float64{1}}}, LinesOpts{})
	if err == nil {
		t.Fatalf("expected error for mismatched series")
	}
}

func TestLinesEscapesLabels(t *testing.T) {
	html, err := Lines(400, 200, []string{"<b>"}, []Series{{Name: "A&B", Values: []float64{1}}}, LinesOpts{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(html)
	if strings.Contains(out, "<b>") || !strings.Contains(out, "&lt;b&gt;") || !strings.Contains(out, "A&amp;B") {
		t.Fatalf("expected escaped labels, got %s", out)
	}
}
