// Package timemachine owns the simulated current date and gates every read
// of historical data so a backtest can never observe the future.
package timemachine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
)

var (
	ErrEndOfHistory       = errors.New("end of history")
	ErrLookaheadViolation = errors.New("lookahead violation")
)

type Option func(*TimeMachine)

// WithLenientLookahead clamps future-dated reads to the current date instead
// of failing. Strict mode is the default; a trusted backtest should never
// run lenient.
func WithLenientLookahead() Option {
	return func(tm *TimeMachine) {
		tm.strict = false
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(tm *TimeMachine) {
		tm.logger = logger
	}
}

// TimeMachine tracks the current simulation date inside a fixed
// [start, end] window and is the sole sanctioned path to the historical
// store. Not safe for concurrent use; create one per run.
type TimeMachine struct {
	calendar Calendar
	reader   market.BarReader
	logger   *zap.Logger

	start   time.Time
	end     time.Time
	current time.Time
	strict  bool
}

// New positions the current date at the first trading day of the window.
// A window with no trading days, or end before start, is a configuration
// error and fails fast.
func New(reader market.BarReader, calendar Calendar, start, end time.Time, options ...Option) (*TimeMachine, error) {
	start, end = market.Day(start), market.Day(end)
	if end.Before(start) {
		return nil, fmt.Errorf("time machine: end %s before start %s",
			end.Format(time.DateOnly), start.Format(time.DateOnly))
	}
	if reader == nil {
		return nil, errors.New("time machine: nil bar reader")
	}
	if calendar == nil {
		return nil, errors.New("time machine: nil calendar")
	}

	tm := &TimeMachine{
		calendar: calendar,
		reader:   reader,
		logger:   zap.NewNop(),
		start:    start,
		end:      end,
		strict:   true,
	}
	for _, option := range options {
		option(tm)
	}

	first, ok := tm.nextTradingDay(start.AddDate(0, 0, -1))
	if !ok {
		return nil, fmt.Errorf("time machine: no trading days in [%s, %s]",
			start.Format(time.DateOnly), end.Format(time.DateOnly))
	}
	tm.current = first

	tm.logger.Debug("time machine initialized",
		zap.Time("start", tm.start),
		zap.Time("end", tm.end),
		zap.Time("current", tm.current),
		zap.Bool("strict", tm.strict))
	return tm, nil
}

// Current returns the simulation date. Pure, no side effects.
func (tm *TimeMachine) Current() time.Time {
	return tm.current
}

// Strict reports whether lookahead reads fail rather than clamp.
func (tm *TimeMachine) Strict() bool {
	return tm.strict
}

// Advance moves the current date to the next trading day. Returns
// ErrEndOfHistory when the window is exhausted; the current date never moves
// backwards.
func (tm *TimeMachine) Advance() (time.Time, error) {
	next, ok := tm.nextTradingDay(tm.current)
	if !ok {
		return time.Time{}, fmt.Errorf("%w: no trading day after %s",
			ErrEndOfHistory, tm.current.Format(time.DateOnly))
	}
	tm.current = next
	return next, nil
}

// TradingDays returns the full deterministic day sequence of the window.
func (tm *TimeMachine) TradingDays() []time.Time {
	var days []time.Time
	for day := tm.start; !day.After(tm.end); day = day.AddDate(0, 0, 1) {
		if tm.calendar.IsTradingDay(day) {
			days = append(days, day)
		}
	}
	return days
}

// ReadBar returns the bar for asOf, enforcing the no-lookahead gate. In
// strict mode a request beyond the current date fails with
// ErrLookaheadViolation; in lenient mode it is clamped to the current date.
func (tm *TimeMachine) ReadBar(ctx context.Context, instrument string, asOf time.Time) (market.Bar, error) {
	asOf, err := tm.gate(market.Day(asOf))
	if err != nil {
		return market.Bar{}, err
	}
	return tm.reader.ReadBar(ctx, instrument, asOf)
}

// ReadRange returns bars in [from, to], gating to the same way as ReadBar.
func (tm *TimeMachine) ReadRange(ctx context.Context, instrument string, from, to time.Time) ([]market.Bar, error) {
	to, err := tm.gate(market.Day(to))
	if err != nil {
		return nil, err
	}
	return tm.reader.ReadRange(ctx, instrument, market.Day(from), to)
}

func (tm *TimeMachine) gate(asOf time.Time) (time.Time, error) {
	if !asOf.After(tm.current) {
		return asOf, nil
	}
	if tm.strict {
		return time.Time{}, fmt.Errorf("%w: requested %s, current %s",
			ErrLookaheadViolation, asOf.Format(time.DateOnly), tm.current.Format(time.DateOnly))
	}
	tm.logger.Debug("clamping lookahead read",
		zap.Time("requested", asOf),
		zap.Time("current", tm.current))
	return tm.current, nil
}

func (tm *TimeMachine) nextTradingDay(after time.Time) (time.Time, bool) {
	for day := after.AddDate(0, 0, 1); !day.After(tm.end); day = day.AddDate(0, 0, 1) {
		if tm.calendar.IsTradingDay(day) {
			return day, true
		}
	}
	return time.Time{}, false
}
