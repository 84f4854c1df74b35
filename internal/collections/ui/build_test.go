package ui

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/arcollect/internal/actions"
	"github.com/odyssey-erp/arcollect/internal/collections"
)

func sampleOverview() collections.Overview {
	ppa := collections.EmptySnapshot()
	ppa.TrendSeries30 = []collections.TrendPoint{{Month: "Jan 2024", Target: 15, Actual: 45}}
	ppa.TrendSeries90 = []collections.TrendPoint{{Month: "Jan 2024", Target: 6, Actual: 25}}
	ppa.TopCustomers90 = []collections.TopCustomer{{CustomerName: "Acme", AmountOwed: 25000, BucketLabel: collections.BucketOver90, DaysOverdueLabel: collections.Overdue90}}
	ppa.TotalOver30 = 1234.5
	ppa.TotalOver90 = 25000
	ppa.PendingActionCount = 2

	divisions := map[collections.Division]collections.MetricSnapshot{
		collections.DivisionPPA: ppa,
		collections.DivisionMCS: collections.EmptySnapshot(),
		collections.DivisionEPM: collections.EmptySnapshot(),
	}
	combined := collections.Combine(ppa, collections.EmptySnapshot(), collections.EmptySnapshot())
	return collections.Overview{
		Month:         "2024-12",
		Months:        []string{"2024-12", "2024-11"},
		Divisions:     divisions,
		Combined:      combined,
		CriticalCases: len(combined.TopCustomers90),
	}
}

func TestBuildOverview(t *testing.T) {
	vm, err := BuildOverview(sampleOverview(), SVGRenderer{})
	require.NoError(t, err)

	assert.Equal(t, "December 2024", vm.MonthName)
	require.Len(t, vm.Cards, 4)
	assert.Equal(t, "Pending Actions", vm.Cards[0].Title)
	assert.Equal(t, "2", vm.Cards[0].Value)
	assert.Equal(t, "$1,235", vm.Cards[1].Value)
	assert.Equal(t, "$25,000", vm.Cards[2].Value)
	assert.Equal(t, "Critical Cases", vm.Cards[3].Title)
	assert.Equal(t, "1", vm.Cards[3].Value)

	assert.True(t, strings.HasPrefix(string(vm.Trends.Over30), "<svg"))
	assert.Contains(t, string(vm.Trends.Over30), ">50%<")
	assert.Contains(t, string(vm.Trends.Over90), ">30%<")
	assert.Contains(t, string(vm.Balances), "PPA Over 90: $25,000")

	require.Len(t, vm.Top90, 1)
	assert.Equal(t, CustomerRow{Customer: "Acme", Amount: "$25,000", Bucket: "Over 90", DaysOverdue: "90+"}, vm.Top90[0])
	assert.Empty(t, vm.Top30)
	require.Len(t, vm.Months, 2)
	assert.True(t, vm.Months[0].Selected)
}

func TestBuildOverviewEmptyRendersPlaceholders(t *testing.T) {
	ov := collections.Overview{
		Month:     "2025-03",
		Divisions: map[collections.Division]collections.MetricSnapshot{},
		Combined:  collections.CombinedSnapshot(collections.EmptySnapshot()),
	}
	vm, err := BuildOverview(ov, SVGRenderer{})
	require.NoError(t, err)
	assert.Contains(t, string(vm.Trends.Over30), "No data available")
	assert.Equal(t, "$0", vm.Cards[1].Value)
	// The selected month is offered even when no data exists for it.
	require.Len(t, vm.Months, 1)
	assert.Equal(t, "March 2025", vm.Months[0].Label)
}

func TestBuildDivision(t *testing.T) {
	snap := collections.EmptySnapshot()
	snap.TotalForecastBadDebt = 10000
	vm, err := BuildDivision(collections.DivisionView{
		Division: collections.DivisionMCS,
		Month:    "2024-12",
		Snapshot: snap,
		BadDebt:  []collections.BadDebtCustomer{{CustomerName: "Beta", Amount: 10000}},
	}, SVGRenderer{})
	require.NoError(t, err)
	assert.Equal(t, "mcs", vm.Slug)
	assert.Equal(t, "Forecast Bad Debt", vm.Cards[3].Title)
	assert.Equal(t, "$10,000", vm.Cards[3].Value)
	assert.Contains(t, string(vm.BadDebt), "Beta: $10,000")
	for _, link := range vm.Divisions {
		assert.Equal(t, link.Code == "MCS", link.Active)
	}
}

func TestBuildActions(t *testing.T) {
	vm := BuildActions(collections.DivisionEPM, []actions.Action{{
		ID:          3,
		ParentName:  "Acme",
		RequestedOn: time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC),
		Owner:       "Dana",
		Total:       decimal.RequireFromString("1500.4"),
	}})
	require.Len(t, vm.Items, 1)
	assert.Equal(t, "03 May 2024", vm.Items[0].RequestedOn)
	assert.Equal(t, "$1,500", vm.Items[0].Total)
	assert.Equal(t, "epm", vm.Slug)
}
