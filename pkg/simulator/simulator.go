// Package simulator implements the deterministic market simulator: a
// per-run ledger of cash, positions, and open orders that resolves fills
// against EOD bars through the time-gated clock. It satisfies the broker
// execution port, so decision logic cannot tell it apart from a live
// backend.
package simulator

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/audit"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/broker"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/metrics"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/timemachine"
)

var (
	ErrOutOfSequence     = errors.New("out of sequence resolution")
	ErrUnknownInstrument = errors.New("unknown instrument")
)

// fillIDNamespace makes fill ids a deterministic function of the order id
// and fill ordinal, so identical runs produce identical audit trails.
var fillIDNamespace = uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

type openOrder struct {
	order     broker.Order
	seq       uint64
	remaining fixed.Point
	filled    fixed.Point
	fillCount int
}

// MarketSimulator is the stateful ledger for one simulated account. It is
// single-writer and single-threaded by construction: nothing here mutates
// concurrently within a run, and independent runs share no state.
type MarketSimulator struct {
	logger *zap.Logger
	clock  *timemachine.TimeMachine
	model  *FillModel

	auditLog    audit.Log
	met         *metrics.Metrics
	instruments map[string]struct{}

	cash      fixed.Point
	positions map[string]broker.Position
	orders    map[broker.OrderID]*openOrder
	open      []*openOrder
	fills     []broker.Fill

	seq          uint64
	initialCash  fixed.Point
	realizedPnL  fixed.Point
	commissions  fixed.Point
	lastResolved time.Time
	equityCurve  []fixed.Point
	abortOnData  bool
}

// New builds a simulator for one run. Configuration errors fail here, never
// mid-run.
func New(clock *timemachine.TimeMachine, initialCash fixed.Point, cfg FillConfig, options ...Option) (*MarketSimulator, error) {
	if clock == nil {
		return nil, errors.New("simulator: nil time machine")
	}
	if !initialCash.IsPos() {
		return nil, fmt.Errorf("simulator: initial cash must be positive, got %s", initialCash)
	}
	model, err := NewFillModel(cfg)
	if err != nil {
		return nil, fmt.Errorf("simulator: %w", err)
	}

	s := &MarketSimulator{
		logger:      zap.NewNop(),
		clock:       clock,
		model:       model,
		auditLog:    audit.Nop{},
		cash:        initialCash,
		initialCash: initialCash,
		positions:   make(map[string]broker.Position),
		orders:      make(map[broker.OrderID]*openOrder),
		realizedPnL: fixed.Zero,
		commissions: fixed.Zero,
		abortOnData: cfg.AbortOnDataError,
	}
	for _, option := range options {
		option(s)
	}
	return s, nil
}

// Submit validates the order's shape, marks it Submitted, and stores it in
// the open book. It never blocks and never consults market data.
func (s *MarketSimulator) Submit(order broker.Order) (broker.OrderID, error) {
	if err := order.Validate(); err != nil {
		return broker.OrderID{}, err
	}
	if s.instruments != nil {
		if _, ok := s.instruments[order.Instrument]; !ok {
			return broker.OrderID{}, fmt.Errorf("%w: %s", ErrUnknownInstrument, order.Instrument)
		}
	}
	if _, exists := s.orders[order.ID]; exists {
		return broker.OrderID{}, fmt.Errorf("%w: duplicate id %s", broker.ErrInvalidOrder, order.ID)
	}
	if err := broker.ValidateTransition(order.Status, broker.StatusSubmitted); err != nil {
		return broker.OrderID{}, err
	}

	from := order.Status
	order.Status = broker.StatusSubmitted
	s.seq++
	oo := &openOrder{
		order:     order,
		seq:       s.seq,
		remaining: order.Quantity,
		filled:    fixed.Zero,
	}
	s.orders[order.ID] = oo
	s.open = append(s.open, oo)

	s.auditLog.OrderTransition(audit.OrderEvent{
		Order: order, From: from, To: broker.StatusSubmitted, Date: s.clock.Current(),
	})
	if s.met != nil {
		s.met.OrdersSubmitted.Inc()
	}
	return order.ID, nil
}

// Cancel removes an open order from the book. Cancelling a terminal order is
// not an error; it reports CancelTooLate so callers never have to
// distinguish races from bugs.
func (s *MarketSimulator) Cancel(id broker.OrderID) (broker.CancelResult, error) {
	oo, ok := s.orders[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", broker.ErrUnknownOrder, id)
	}
	if !broker.CanCancel(oo.order.Status) {
		return broker.CancelTooLate, nil
	}
	s.transition(oo, broker.StatusCancelled, "cancelled by caller")
	s.removeOpen(oo)
	if s.met != nil {
		s.met.OrdersCancelled.Inc()
	}
	return broker.CancelDone, nil
}

func (s *MarketSimulator) OrderStatus(id broker.OrderID) (broker.Status, error) {
	oo, ok := s.orders[id]
	if !ok {
		return "", fmt.Errorf("%w: %s", broker.ErrUnknownOrder, id)
	}
	return oo.order.Status, nil
}

// FillsSince returns fills strictly after the given timestamp.
func (s *MarketSimulator) FillsSince(since time.Time) []broker.Fill {
	var out []broker.Fill
	for _, fill := range s.fills {
		if fill.Time.After(since) {
			out = append(out, fill)
		}
	}
	return out
}

// Positions returns a copy of the book at the last resolved prices. It never
// triggers resolution.
func (s *MarketSimulator) Positions() map[string]broker.Position {
	out := make(map[string]broker.Position, len(s.positions))
	for instrument, pos := range s.positions {
		out[instrument] = pos
	}
	return out
}

// Account recomputes equity from cash plus position market values; nothing
// is stored that could drift from its inputs.
func (s *MarketSimulator) Account() broker.AccountState {
	equity := s.cash
	for _, pos := range s.positions {
		equity = equity.Add(pos.MarketValue)
	}
	return broker.AccountState{Cash: s.cash, Equity: equity, AsOf: s.lastResolved}
}

// Sync is a no-op: the simulator is always authoritative for itself.
func (s *MarketSimulator) Sync() error {
	return nil
}

// RealizedPnL is the cumulative P&L locked in by position reductions.
func (s *MarketSimulator) RealizedPnL() fixed.Point { return s.realizedPnL }

// Commissions is the cumulative commission paid.
func (s *MarketSimulator) Commissions() fixed.Point { return s.commissions }

// EquityCurve returns the end-of-day equity series resolved so far.
func (s *MarketSimulator) EquityCurve() []fixed.Point {
	return append([]fixed.Point(nil), s.equityCurve...)
}

// ResolveDay resolves every open order against the given date's bars, then
// reprices the book and snapshots the account. The date must be exactly the
// clock's current date and must not have been resolved already; anything
// else is a caller bug and fails loudly.
func (s *MarketSimulator) ResolveDay(ctx context.Context, date time.Time) ([]broker.Fill, error) {
	date = market.Day(date)
	current := s.clock.Current()
	if !date.Equal(current) {
		return nil, fmt.Errorf("%w: resolving %s while clock is at %s",
			ErrOutOfSequence, date.Format(time.DateOnly), current.Format(time.DateOnly))
	}
	if date.Equal(s.lastResolved) {
		return nil, fmt.Errorf("%w: %s already resolved",
			ErrOutOfSequence, date.Format(time.DateOnly))
	}

	// Stable resolution order: ascending submission sequence. Result
	// ordering must never depend on incidental iteration order.
	pending := append([]*openOrder(nil), s.open...)
	sort.Slice(pending, func(i, j int) bool { return pending[i].seq < pending[j].seq })

	var dayFills []broker.Fill
	for _, oo := range pending {
		fills, err := s.resolveOrder(ctx, oo, date)
		if err != nil {
			return nil, err
		}
		dayFills = append(dayFills, fills...)
	}

	s.repriceAll(ctx, date)
	s.lastResolved = date

	account := s.Account()
	s.equityCurve = append(s.equityCurve, account.Equity)
	s.auditLog.Snapshot(audit.SnapshotEvent{
		Account:   account,
		Positions: s.sortedPositions(),
		Date:      date,
	})
	if s.met != nil {
		s.met.DaysResolved.Inc()
		if equity, ok := account.Equity.Float64(); ok {
			s.met.Equity.Set(equity)
		}
		if cash, ok := account.Cash.Float64(); ok {
			s.met.Cash.Set(cash)
		}
	}

	s.logger.Debug("day resolved",
		zap.String("date", date.Format(time.DateOnly)),
		zap.Int("fills", len(dayFills)),
		zap.String("equity", account.Equity.String()))
	return dayFills, nil
}

func (s *MarketSimulator) resolveOrder(ctx context.Context, oo *openOrder, date time.Time) ([]broker.Fill, error) {
	bar, err := s.clock.ReadBar(ctx, oo.order.Instrument, date)
	switch {
	case errors.Is(err, market.ErrNoMarketData):
		if s.abortOnData {
			return nil, fmt.Errorf("resolve %s: %w", oo.order.ID, err)
		}
		s.transition(oo, broker.StatusRejected, "no market data")
		s.removeOpen(oo)
		if s.met != nil {
			s.met.OrdersRejected.Inc()
		}
		return nil, nil
	case err != nil:
		// Invalid market data, lookahead, and sequencing errors all abort.
		return nil, fmt.Errorf("resolve %s: %w", oo.order.ID, err)
	}

	outcome, err := s.model.Resolve(oo.order, oo.remaining, bar)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", oo.order.ID, err)
	}
	if !outcome.Filled() {
		if outcome.Remainder.IsPos() && s.model.cfg.RemainderPolicy == RemainderReject {
			// Zero-capacity day under the reject policy kills the order.
			s.transition(oo, broker.StatusRejected, "no executable volume")
			s.removeOpen(oo)
			if s.met != nil {
				s.met.OrdersRejected.Inc()
			}
		}
		return nil, nil
	}

	fill := s.applyFill(oo, outcome, date)

	switch {
	case outcome.Remainder.IsPos() && s.model.cfg.RemainderPolicy == RemainderCarry:
		s.transition(oo, broker.StatusPartiallyFilled, "volume cap, remainder carried")
	case outcome.Remainder.IsPos():
		s.transition(oo, broker.StatusPartiallyFilled, "volume cap")
		s.transition(oo, broker.StatusCancelled, "remainder rejected by volume policy")
		s.removeOpen(oo)
		if s.met != nil {
			s.met.OrdersCancelled.Inc()
		}
	default:
		s.transition(oo, broker.StatusFilled, "")
		s.removeOpen(oo)
		if s.met != nil {
			s.met.OrdersFilled.Inc()
		}
	}

	return []broker.Fill{fill}, nil
}

// applyFill mutates cash and positions for one execution and records it.
func (s *MarketSimulator) applyFill(oo *openOrder, outcome Outcome, date time.Time) broker.Fill {
	oo.fillCount++
	fill := broker.Fill{
		ID:         uuid.NewSHA1(fillIDNamespace, []byte(fmt.Sprintf("%s/%d", oo.order.ID, oo.fillCount))),
		OrderID:    oo.order.ID,
		Instrument: oo.order.Instrument,
		Side:       oo.order.Side,
		Quantity:   outcome.Quantity,
		Price:      outcome.Price,
		Commission: outcome.Commission,
		Time:       date.Add(23*time.Hour + 59*time.Minute),
		Metadata:   oo.order.Metadata,
	}

	notional := outcome.Quantity.Mul(outcome.Price)
	if oo.order.Side == broker.SideBuy {
		s.cash = s.cash.Sub(notional)
	} else {
		s.cash = s.cash.Add(notional)
	}
	s.cash = s.cash.Sub(outcome.Commission)
	s.commissions = s.commissions.Add(outcome.Commission)

	s.applyToPosition(oo.order.Instrument, oo.order.Side, outcome.Quantity, outcome.Price, date)

	oo.remaining = oo.remaining.Sub(outcome.Quantity)
	oo.filled = oo.filled.Add(outcome.Quantity)

	s.fills = append(s.fills, fill)
	s.auditLog.Fill(audit.FillEvent{Fill: fill, Date: date})
	if s.met != nil {
		s.met.Fills.Inc()
		if commission, ok := outcome.Commission.Float64(); ok {
			s.met.CommissionPaid.Add(commission)
		}
	}
	return fill
}

// applyToPosition updates signed quantity and volume-weighted average cost.
// Additions reprice the average; reductions realize P&L against it; crossing
// through zero starts a fresh cost basis on the far side.
func (s *MarketSimulator) applyToPosition(instrument string, side broker.Side, quantity, price fixed.Point, date time.Time) {
	delta := quantity.Mul(side.Sign())

	pos, ok := s.positions[instrument]
	if !ok {
		pos = broker.Position{Instrument: instrument, Quantity: fixed.Zero, AvgCost: fixed.Zero}
	}

	sameDirection := pos.Quantity.IsZero() ||
		(pos.Quantity.IsPos() && delta.IsPos()) ||
		(pos.Quantity.IsNeg() && delta.IsNeg())

	if sameDirection {
		oldAbs := pos.Quantity.Abs()
		newAbs := oldAbs.Add(delta.Abs())
		pos.AvgCost = pos.AvgCost.Mul(oldAbs).Add(price.Mul(delta.Abs())).Div(newAbs)
		pos.Quantity = pos.Quantity.Add(delta)
	} else {
		closing := delta.Abs().Min(pos.Quantity.Abs())
		direction := fixed.One
		if pos.Quantity.IsNeg() {
			direction = fixed.One.Neg()
		}
		s.realizedPnL = s.realizedPnL.Add(price.Sub(pos.AvgCost).Mul(closing).Mul(direction))

		pos.Quantity = pos.Quantity.Add(delta)
		if pos.Quantity.IsZero() {
			delete(s.positions, instrument)
			return
		}
		if delta.Abs().Gt(closing) {
			// Crossed through zero: the leftover opens at the fill price.
			pos.AvgCost = price
		}
	}

	pos = pos.Reprice(price, date)
	s.positions[instrument] = pos
}

// repriceAll marks every position to the day's close. A missing bar keeps
// the last known price; bad data aborts the run.
func (s *MarketSimulator) repriceAll(ctx context.Context, date time.Time) {
	for instrument, pos := range s.positions {
		bar, err := s.clock.ReadBar(ctx, instrument, date)
		if errors.Is(err, market.ErrNoMarketData) {
			s.logger.Warn("no bar to reprice position, keeping last price",
				zap.String("instrument", instrument),
				zap.String("date", date.Format(time.DateOnly)))
			continue
		}
		if err != nil {
			s.logger.Warn("reprice failed", zap.String("instrument", instrument), zap.Error(err))
			continue
		}
		s.positions[instrument] = pos.Reprice(bar.Close, date)
	}
}

func (s *MarketSimulator) transition(oo *openOrder, to broker.Status, reason string) {
	from := oo.order.Status
	if err := broker.ValidateTransition(from, to); err != nil {
		// Transitions are driven by the resolution logic itself; a bad one
		// is a bug in this package.
		panic(err)
	}
	oo.order.Status = to
	s.auditLog.OrderTransition(audit.OrderEvent{
		Order: oo.order, From: from, To: to, Reason: reason, Date: s.clock.Current(),
	})
}

func (s *MarketSimulator) removeOpen(target *openOrder) {
	for i, oo := range s.open {
		if oo == target {
			s.open = append(s.open[:i], s.open[i+1:]...)
			return
		}
	}
}

func (s *MarketSimulator) sortedPositions() []broker.Position {
	out := make([]broker.Position, 0, len(s.positions))
	for _, pos := range s.positions {
		out = append(out, pos)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Instrument < out[j].Instrument })
	return out
}
