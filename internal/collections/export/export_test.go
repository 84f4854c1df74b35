package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/collections"
)

func sampleOverview() collections.Overview {
	ppa := collections.EmptySnapshot()
	ppa.TotalOver30 = 1000
	ppa.TotalOver90 = 400
	ppa.PendingActionCount = 2
	ppa.TrendSeries30 = []collections.TrendPoint{{Month: "Nov 2024", Target: 15, Actual: 20}, {Month: "Dec 2024", Target: 15, Actual: 18}}
	ppa.TrendSeries90 = []collections.TrendPoint{{Month: "Dec 2024", Target: 6, Actual: 7}}
	ppa.TopCustomers30 = []collections.TopCustomer{{CustomerName: "Acme & Sons", AmountOwed: 600, BucketLabel: collections.BucketOver30, DaysOverdueLabel: collections.Overdue30}}
	ppa.TopCustomers90 = []collections.TopCustomer{{CustomerName: "Globex", AmountOwed: 400, BucketLabel: collections.BucketOver90, DaysOverdueLabel: collections.Overdue90}}
	mcs := collections.EmptySnapshot()
	mcs.TotalOver30 = 500
	combined := collections.Combine(ppa, mcs, collections.EmptySnapshot())
	return collections.Overview{
		Month:         "2024-12",
		Months:        []string{"2024-12"},
		Divisions:     map[collections.Division]collections.MetricSnapshot{collections.DivisionPPA: ppa, collections.DivisionMCS: mcs},
		Combined:      combined,
		CriticalCases: len(combined.TopCustomers90),
	}
}

func readCSV(t *testing.T, buf *bytes.Buffer) [][]string {
	t.Helper()
	records, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSummaryCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteOverviewCSV(buf, sampleOverview(), SectionSummary))
	records := readCSV(t, buf)
	require.Len(t, records, 5)
	assert.Equal(t, []string{"2024-12", "PPA", "1000.00", "400.00", "0.00", "2", "1"}, records[1])
	assert.Equal(t, []string{"2024-12", "EPM", "0.00", "0.00", "0.00", "0", "0"}, records[3])
	assert.Equal(t, []string{"2024-12", "All", "1500.00", "400.00", "0.00", "2", "1"}, records[4])
}

func TestWriteTrendCSVJoinsSeriesByMonth(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteOverviewCSV(buf, sampleOverview(), SectionTrend))
	records := readCSV(t, buf)
	require.Len(t, records, 3)
	assert.Equal(t, []string{"Nov 2024", "15.00", "20.00", "", ""}, records[1])
	assert.Equal(t, []string{"Dec 2024", "15.00", "18.00", "6.00", "7.00"}, records[2])
}

func TestWriteCustomersCSV(t *testing.T) {
	buf := &bytes.Buffer{}
	require.NoError(t, WriteOverviewCSV(buf, sampleOverview(), SectionCustomers))
	records := readCSV(t, buf)
	require.Len(t, records, 3)
	assert.Equal(t, "Acme & Sons", records[1][0])
	assert.Equal(t, "90+", records[2][3])
}

func TestValidSection(t *testing.T) {
	assert.True(t, ValidSection(SectionTrend))
	assert.False(t, ValidSection("everything"))
}

type stubRenderer struct {
	name string
	html string
	err  error
}

func (s *stubRenderer) RenderHTML(ctx context.Context, name, html string) ([]byte, error) {
	s.name = name
	s.html = html
	if s.err != nil {
		return nil, s.err
	}
	return []byte("PDF"), nil
}

func TestPDFExporterRenderOverview(t *testing.T) {
	renderer := &stubRenderer{}
	exporter := &PDFExporter{Renderer: renderer}
	data, err := exporter.RenderOverview(context.Background(), sampleOverview())
	require.NoError(t, err)
	assert.Equal(t, "PDF", string(data))
	assert.Equal(t, "dashboard.html", renderer.name)
	assert.Contains(t, renderer.html, "December 2024")
	assert.Contains(t, renderer.html, "$1,500")
	assert.Contains(t, renderer.html, "Acme &amp; Sons")
	assert.Contains(t, renderer.html, "Critical cases: 1")
	assert.False(t, strings.Contains(renderer.html, "Acme & Sons"))
}

func TestPDFExporterErrors(t *testing.T) {
	var nilExporter *PDFExporter
	_, err := nilExporter.RenderOverview(context.Background(), sampleOverview())
	require.Error(t, err)

	upstream := errors.New("gotenberg down")
	_, err = (&PDFExporter{Renderer: &stubRenderer{err: upstream}}).RenderOverview(context.Background(), sampleOverview())
	assert.ErrorIs(t, err, upstream)
}
