package campaign

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/simulator"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/timemachine"
)

// 2024-03-04 is a Monday.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func weekStore(t *testing.T, instruments ...string) *market.MemoryStore {
	t.Helper()
	store := market.NewMemoryStore()
	for _, instrument := range instruments {
		for i := 0; i < 5; i++ {
			require.NoError(t, store.Put(market.Bar{
				Instrument: instrument,
				Date:       monday.AddDate(0, 0, i),
				Open:       fixed.FromFloat64(99.5),
				High:       fixed.FromFloat64(100.5),
				Low:        fixed.FromFloat64(99.0),
				Close:      fixed.FromFloat64(100.0),
				Volume:     fixed.FromInt(2000000, 0),
			}))
		}
	}
	return store
}

func testRun(name string) Run {
	return Run{
		Name:        name,
		Start:       monday,
		End:         monday.AddDate(0, 0, 4),
		InitialCash: fixed.FromInt(1000000, 0),
		Fill:        simulator.DefaultFillConfig(),
		Instruments: []string{"AAPL"},
		Targets:     map[string]fixed.Point{"AAPL": fixed.FromInt(100, 0)},
	}
}

func TestExecuteRun(t *testing.T) {
	store := weekStore(t, "AAPL")

	result, err := ExecuteRun(t.Context(), store, timemachine.NewWeekdayCalendar(), testRun("run-1"), nil)
	require.NoError(t, err)

	report := result.Report
	assert.Equal(t, 5, report.DaysResolved)
	// The target is reached on day one and held; exactly one fill.
	assert.Equal(t, 1, report.TotalFills)
	assert.True(t, report.InitialEquity.Eq(fixed.FromInt(1000000, 0)))
	// Friction-free fills at a flat price leave equity unchanged.
	assert.True(t, report.FinalEquity.Eq(report.InitialEquity), "got %s", report.FinalEquity)
}

func TestExecuteRun_CarriedOrderNotReplanned(t *testing.T) {
	store := market.NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(market.Bar{
			Instrument: "AAPL",
			Date:       monday.AddDate(0, 0, i),
			Open:       fixed.FromFloat64(100.0),
			High:       fixed.FromFloat64(100.0),
			Low:        fixed.FromFloat64(100.0),
			Close:      fixed.FromFloat64(100.0),
			Volume:     fixed.FromInt(1000, 0),
		}))
	}

	run := testRun("carry")
	run.Fill.UseVolumeConstraints = true
	run.Fill.MaxParticipationRate = fixed.FromFloat64(0.10)
	run.Fill.RemainderPolicy = simulator.RemainderCarry
	run.Targets = map[string]fixed.Point{"AAPL": fixed.FromInt(250, 0)}

	result, err := ExecuteRun(t.Context(), store, timemachine.NewWeekdayCalendar(), run, nil)
	require.NoError(t, err)

	// One order capped at 100 shares per day fills over three days. The day
	// loop must not stack a second order while the first is still working.
	assert.Equal(t, 3, result.Report.TotalFills)
}

func TestExecuteRun_BadWindow(t *testing.T) {
	store := weekStore(t, "AAPL")
	run := testRun("bad")
	run.End = run.Start.AddDate(0, 0, -1)

	_, err := ExecuteRun(t.Context(), store, timemachine.NewWeekdayCalendar(), run, nil)
	require.Error(t, err)
}

func TestRunner_Execute(t *testing.T) {
	store := weekStore(t, "AAPL", "MSFT")
	runner := NewRunner(store, timemachine.NewWeekdayCalendar(), nil, 4)

	runs := []Run{testRun("a"), testRun("b"), testRun("c")}
	runs[1].Targets = map[string]fixed.Point{"MSFT": fixed.FromInt(50, 0)}
	runs[1].Instruments = []string{"MSFT"}

	results, err := runner.Execute(t.Context(), runs)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Results come back in input order.
	assert.Equal(t, "a", results[0].Name)
	assert.Equal(t, "b", results[1].Name)
	assert.Equal(t, "c", results[2].Name)
	for _, result := range results {
		assert.Equal(t, 5, result.Report.DaysResolved)
	}
}

func TestRunner_FirstErrorCancels(t *testing.T) {
	store := weekStore(t, "AAPL")
	runner := NewRunner(store, timemachine.NewWeekdayCalendar(), nil, 2)

	bad := testRun("bad")
	bad.InitialCash = fixed.Zero

	_, err := runner.Execute(t.Context(), []Run{testRun("ok"), bad})
	require.Error(t, err)
}
