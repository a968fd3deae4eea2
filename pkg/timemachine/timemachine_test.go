package timemachine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
)

// 2024-03-04 is a Monday.
var monday = time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC)

func storeWithWeek(t *testing.T) *market.MemoryStore {
	t.Helper()
	store := market.NewMemoryStore()
	for i := 0; i < 5; i++ {
		require.NoError(t, store.Put(market.Bar{
			Instrument: "AAPL",
			Date:       monday.AddDate(0, 0, i),
			Open:       fixed.FromFloat64(99.0),
			High:       fixed.FromFloat64(101.0),
			Low:        fixed.FromFloat64(98.0),
			Close:      fixed.FromFloat64(100.0),
			Volume:     fixed.FromInt(1000000, 0),
		}))
	}
	return store
}

func TestWeekdayCalendar(t *testing.T) {
	saturday := monday.AddDate(0, 0, 5)
	holiday := monday.AddDate(0, 0, 2)
	calendar := NewWeekdayCalendar(holiday)

	assert.True(t, calendar.IsTradingDay(monday))
	assert.False(t, calendar.IsTradingDay(saturday))
	assert.False(t, calendar.IsTradingDay(saturday.AddDate(0, 0, 1)))
	assert.False(t, calendar.IsTradingDay(holiday))
}

func TestTimeMachine_New(t *testing.T) {
	store := storeWithWeek(t)
	calendar := NewWeekdayCalendar()

	t.Run("positions at first trading day", func(t *testing.T) {
		// Window starts on a Saturday; first trading day is the Monday after.
		saturday := monday.AddDate(0, 0, -2)
		tm, err := New(store, calendar, saturday, monday.AddDate(0, 0, 4))
		require.NoError(t, err)
		assert.Equal(t, monday, tm.Current())
		assert.True(t, tm.Strict())
	})

	t.Run("end before start", func(t *testing.T) {
		_, err := New(store, calendar, monday, monday.AddDate(0, 0, -1))
		require.Error(t, err)
	})

	t.Run("no trading days", func(t *testing.T) {
		saturday := monday.AddDate(0, 0, 5)
		_, err := New(store, calendar, saturday, saturday.AddDate(0, 0, 1))
		require.Error(t, err)
	})
}

func TestTimeMachine_Advance(t *testing.T) {
	store := storeWithWeek(t)
	holiday := monday.AddDate(0, 0, 1)
	tm, err := New(store, NewWeekdayCalendar(holiday), monday, monday.AddDate(0, 0, 4))
	require.NoError(t, err)

	// Tuesday is a holiday, so the sequence is Mon, Wed, Thu, Fri.
	next, err := tm.Advance()
	require.NoError(t, err)
	assert.Equal(t, monday.AddDate(0, 0, 2), next)

	_, err = tm.Advance()
	require.NoError(t, err)
	next, err = tm.Advance()
	require.NoError(t, err)
	assert.Equal(t, monday.AddDate(0, 0, 4), next)

	_, err = tm.Advance()
	require.ErrorIs(t, err, ErrEndOfHistory)
	assert.Equal(t, monday.AddDate(0, 0, 4), tm.Current())
}

func TestTimeMachine_TradingDays(t *testing.T) {
	store := storeWithWeek(t)
	tm, err := New(store, NewWeekdayCalendar(), monday, monday.AddDate(0, 0, 6))
	require.NoError(t, err)

	days := tm.TradingDays()
	require.Len(t, days, 5)
	assert.Equal(t, days, tm.TradingDays())
}

func TestTimeMachine_StrictLookahead(t *testing.T) {
	store := storeWithWeek(t)
	tm, err := New(store, NewWeekdayCalendar(), monday, monday.AddDate(0, 0, 4))
	require.NoError(t, err)
	ctx := t.Context()

	_, err = tm.ReadBar(ctx, "AAPL", monday)
	require.NoError(t, err)

	_, err = tm.ReadBar(ctx, "AAPL", monday.AddDate(0, 0, 1))
	require.ErrorIs(t, err, ErrLookaheadViolation)

	_, err = tm.ReadRange(ctx, "AAPL", monday, monday.AddDate(0, 0, 3))
	require.ErrorIs(t, err, ErrLookaheadViolation)

	// After advancing the same read succeeds.
	_, err = tm.Advance()
	require.NoError(t, err)
	_, err = tm.ReadBar(ctx, "AAPL", monday.AddDate(0, 0, 1))
	require.NoError(t, err)
}

func TestTimeMachine_LenientLookaheadClamps(t *testing.T) {
	store := storeWithWeek(t)
	tm, err := New(store, NewWeekdayCalendar(), monday, monday.AddDate(0, 0, 4), WithLenientLookahead())
	require.NoError(t, err)
	ctx := t.Context()

	assert.False(t, tm.Strict())

	bar, err := tm.ReadBar(ctx, "AAPL", monday.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, monday, bar.Date)

	bars, err := tm.ReadRange(ctx, "AAPL", monday, monday.AddDate(0, 0, 3))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, monday, bars[0].Date)
}
