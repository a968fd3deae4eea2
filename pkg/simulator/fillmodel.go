package simulator

import (
	"errors"
	"fmt"
	"math/rand"

	"go.uber.org/multierr"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/broker"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/market"
)

// RemainderPolicy decides what happens to the unfilled remainder of a
// volume-capped order. There is no default: the choice materially changes
// backtest turnover, so configuration must pick one explicitly.
type RemainderPolicy string

const (
	// RemainderCarry keeps the remainder open for the next trading day.
	RemainderCarry RemainderPolicy = "CARRY"
	// RemainderReject cancels the remainder after the capped fill.
	RemainderReject RemainderPolicy = "REJECT"
)

// CommissionKind selects how commission is computed from a fill.
type CommissionKind string

const (
	CommissionFlat     CommissionKind = "FLAT"
	CommissionPerShare CommissionKind = "PER_SHARE"
	CommissionTiered   CommissionKind = "TIERED"
)

// CommissionTier charges Rate per unit of notional for fills whose notional
// does not exceed UpToNotional. Tiers must be sorted ascending; the last
// tier's bound may be zero to mean unbounded.
type CommissionTier struct {
	UpToNotional fixed.Point
	Rate         fixed.Point
}

type CommissionConfig struct {
	Kind     CommissionKind
	Flat     fixed.Point
	PerShare fixed.Point
	Tiers    []CommissionTier
}

// Charge computes the commission for a fill. Always non-negative.
func (c CommissionConfig) Charge(quantity, price fixed.Point) fixed.Point {
	switch c.Kind {
	case CommissionFlat:
		return c.Flat
	case CommissionPerShare:
		return c.PerShare.Mul(quantity)
	case CommissionTiered:
		notional := quantity.Mul(price)
		for _, tier := range c.Tiers {
			if tier.UpToNotional.IsZero() || notional.Lte(tier.UpToNotional) {
				return notional.Mul(tier.Rate)
			}
		}
		return fixed.Zero
	default:
		return fixed.Zero
	}
}

func (c CommissionConfig) validate() error {
	var err error
	switch c.Kind {
	case CommissionFlat:
		if c.Flat.IsNeg() {
			err = multierr.Append(err, errors.New("flat commission must be non-negative"))
		}
	case CommissionPerShare:
		if c.PerShare.IsNeg() {
			err = multierr.Append(err, errors.New("per-share commission must be non-negative"))
		}
	case CommissionTiered:
		if len(c.Tiers) == 0 {
			err = multierr.Append(err, errors.New("tiered commission requires at least one tier"))
		}
		for i, tier := range c.Tiers {
			if tier.Rate.IsNeg() {
				err = multierr.Append(err, fmt.Errorf("tier %d rate must be non-negative", i))
			}
		}
	case "":
		err = multierr.Append(err, errors.New("commission kind is required"))
	default:
		err = multierr.Append(err, fmt.Errorf("unknown commission kind %q", c.Kind))
	}
	return err
}

// FillConfig parameterizes the fill model. Validate fails fast on
// construction; nothing is silently clamped.
type FillConfig struct {
	// SlippageBps worsens market fill prices directionally: buys pay more,
	// sells receive less.
	SlippageBps fixed.Point
	// UseVolumeConstraints caps a single fill at
	// bar.Volume * MaxParticipationRate.
	UseVolumeConstraints bool
	MaxParticipationRate fixed.Point
	// RemainderPolicy must be set whenever volume constraints are on.
	RemainderPolicy RemainderPolicy
	// LimitFillProb gates limit fills to model queue position. 1 means a
	// crossed limit always fills.
	LimitFillProb float64
	// Seed fixes the RNG for probabilistic limit fills.
	Seed int64
	Commission CommissionConfig
	// AbortOnDataError turns per-instrument NoMarketData rejections into a
	// fatal run error.
	AbortOnDataError bool
}

// DefaultFillConfig is a deterministic, friction-only starting point.
func DefaultFillConfig() FillConfig {
	return FillConfig{
		SlippageBps:     fixed.Zero,
		RemainderPolicy: RemainderReject,
		LimitFillProb:   1.0,
		Commission:      CommissionConfig{Kind: CommissionFlat, Flat: fixed.Zero},
	}
}

func (c FillConfig) Validate() error {
	var err error
	if c.SlippageBps.IsNeg() {
		err = multierr.Append(err, errors.New("slippage bps must be non-negative"))
	}
	if c.UseVolumeConstraints {
		if !c.MaxParticipationRate.IsPos() || c.MaxParticipationRate.Gt(fixed.One) {
			err = multierr.Append(err, errors.New("max participation rate must be in (0, 1]"))
		}
	}
	switch c.RemainderPolicy {
	case RemainderCarry, RemainderReject:
	case "":
		err = multierr.Append(err, errors.New("remainder policy is required"))
	default:
		err = multierr.Append(err, fmt.Errorf("unknown remainder policy %q", c.RemainderPolicy))
	}
	if c.LimitFillProb <= 0 || c.LimitFillProb > 1 {
		err = multierr.Append(err, errors.New("limit fill probability must be in (0, 1]"))
	}
	err = multierr.Append(err, c.Commission.validate())
	return err
}

// Outcome is the result of resolving one order against one day's bar.
type Outcome struct {
	// Quantity actually executed; zero when the order stays open untouched.
	Quantity   fixed.Point
	Price      fixed.Point
	Commission fixed.Point
	// Remainder is the quantity left unexecuted by a volume cap.
	Remainder fixed.Point
}

func (o Outcome) Filled() bool { return o.Quantity.IsPos() }

// FillModel maps (order, bar, config) to an outcome. Stateless apart from
// the seeded RNG used for probabilistic limit fills, so the same seed and
// inputs always reproduce the same result sequence.
type FillModel struct {
	cfg FillConfig
	rng *rand.Rand
}

func NewFillModel(cfg FillConfig) (*FillModel, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fill config: %w", err)
	}
	return &FillModel{
		cfg: cfg,
		rng: rand.New(rand.NewSource(cfg.Seed)),
	}, nil
}

// Resolve executes remaining quantity of the order against the bar. The bar
// must already be validated; zero or negative prices never reach this point.
func (m *FillModel) Resolve(order broker.Order, remaining fixed.Point, bar market.Bar) (Outcome, error) {
	switch order.Type {
	case broker.OrderTypeMarket:
		return m.marketFill(order.Side, remaining, bar), nil
	case broker.OrderTypeLimit:
		return m.limitFill(order.LimitPrice, remaining, bar), nil
	case broker.OrderTypeStop:
		if !m.stopTriggered(order.Side, order.StopPrice, bar) {
			return Outcome{}, nil
		}
		return m.marketFill(order.Side, remaining, bar), nil
	case broker.OrderTypeStopLimit:
		if !m.stopTriggered(order.Side, order.StopPrice, bar) {
			return Outcome{}, nil
		}
		return m.limitFill(order.LimitPrice, remaining, bar), nil
	default:
		return Outcome{}, fmt.Errorf("%w: unknown order type %d", broker.ErrInvalidOrder, order.Type)
	}
}

// marketFill executes at the day's close adjusted by slippage, optionally
// capped by the participation constraint.
func (m *FillModel) marketFill(side broker.Side, remaining fixed.Point, bar market.Bar) Outcome {
	bps := m.cfg.SlippageBps
	if side == broker.SideSell {
		bps = bps.Neg()
	}
	price := bar.Close.AddBps(bps)

	quantity := remaining
	remainder := fixed.Zero
	if m.cfg.UseVolumeConstraints {
		maxQty := bar.Volume.Mul(m.cfg.MaxParticipationRate)
		if quantity.Gt(maxQty) {
			quantity = maxQty
			remainder = remaining.Sub(maxQty)
		}
	}
	if !quantity.IsPos() {
		return Outcome{Remainder: remaining}
	}

	return Outcome{
		Quantity:   quantity,
		Price:      price,
		Commission: m.cfg.Commission.Charge(quantity, price),
		Remainder:  remainder,
	}
}

// limitFill executes at the limit price when the day's [low, high] range
// crossed it. A limit outside the range stays open: the price never traded,
// so no fill can happen there.
func (m *FillModel) limitFill(limit, remaining fixed.Point, bar market.Bar) Outcome {
	if !bar.Crosses(limit) {
		return Outcome{}
	}
	if m.cfg.LimitFillProb < 1 && m.rng.Float64() >= m.cfg.LimitFillProb {
		return Outcome{}
	}
	return Outcome{
		Quantity:   remaining,
		Price:      limit,
		Commission: m.cfg.Commission.Charge(remaining, limit),
	}
}

// stopTriggered reports whether the day's range crossed the stop price. A
// buy stop triggers when the high reaches it, a sell stop when the low does.
func (m *FillModel) stopTriggered(side broker.Side, stop fixed.Point, bar market.Bar) bool {
	if side == broker.SideBuy {
		return bar.High.Gte(stop)
	}
	return bar.Low.Lte(stop)
}
