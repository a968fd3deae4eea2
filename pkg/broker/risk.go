package broker

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

var ErrRiskLimitExceeded = errors.New("risk limit exceeded")

// RiskLimits configures the pre-trade checks of RiskGuard. A zero value
// disables the corresponding check.
type RiskLimits struct {
	MaxOrderNotional    fixed.Point
	MaxOrderQuantity    fixed.Point
	MaxPositionQuantity fixed.Point
	MaxGrossExposure    fixed.Point
}

// PriceFunc supplies a reference price for an instrument. Used to estimate
// notional for market orders; the bool reports availability.
type PriceFunc func(instrument string) (fixed.Point, bool)

// RiskGuard wraps another Broker and enforces configurable execution limits
// before forwarding orders. It blocks only when a configured limit would be
// exceeded; everything else is delegated untouched.
type RiskGuard struct {
	inner  Broker
	limits RiskLimits
	price  PriceFunc
	logger *zap.Logger
}

func NewRiskGuard(inner Broker, limits RiskLimits, price PriceFunc, logger *zap.Logger) *RiskGuard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RiskGuard{inner: inner, limits: limits, price: price, logger: logger}
}

func (g *RiskGuard) Submit(order Order) (OrderID, error) {
	if err := g.enforce(order); err != nil {
		g.logger.Warn("order blocked by risk guard",
			zap.String("order_id", order.ID.String()),
			zap.String("instrument", order.Instrument),
			zap.Error(err))
		return OrderID{}, err
	}
	return g.inner.Submit(order)
}

func (g *RiskGuard) Cancel(id OrderID) (CancelResult, error) { return g.inner.Cancel(id) }
func (g *RiskGuard) OrderStatus(id OrderID) (Status, error)  { return g.inner.OrderStatus(id) }
func (g *RiskGuard) FillsSince(since time.Time) []Fill       { return g.inner.FillsSince(since) }
func (g *RiskGuard) Positions() map[string]Position          { return g.inner.Positions() }
func (g *RiskGuard) Account() AccountState                   { return g.inner.Account() }
func (g *RiskGuard) Sync() error                             { return g.inner.Sync() }

func (g *RiskGuard) enforce(order Order) error {
	if !g.limits.MaxOrderQuantity.IsZero() && order.Quantity.Gt(g.limits.MaxOrderQuantity) {
		return fmt.Errorf("%w: order quantity %s exceeds max %s",
			ErrRiskLimitExceeded, order.Quantity, g.limits.MaxOrderQuantity)
	}

	refPrice, havePrice := g.referencePrice(order)

	if !g.limits.MaxOrderNotional.IsZero() && havePrice {
		notional := order.Quantity.Mul(refPrice)
		if notional.Gt(g.limits.MaxOrderNotional) {
			return fmt.Errorf("%w: order notional %s exceeds max %s",
				ErrRiskLimitExceeded, notional, g.limits.MaxOrderNotional)
		}
	}

	if !g.limits.MaxPositionQuantity.IsZero() {
		current := fixed.Zero
		if pos, ok := g.inner.Positions()[order.Instrument]; ok {
			current = pos.Quantity
		}
		resulting := current.Add(order.Quantity.Mul(order.Side.Sign()))
		if resulting.Abs().Gt(g.limits.MaxPositionQuantity) {
			return fmt.Errorf("%w: resulting position %s exceeds max %s",
				ErrRiskLimitExceeded, resulting, g.limits.MaxPositionQuantity)
		}
	}

	if !g.limits.MaxGrossExposure.IsZero() && havePrice {
		gross := order.Quantity.Mul(refPrice)
		for _, pos := range g.inner.Positions() {
			gross = gross.Add(pos.MarketValue.Abs())
		}
		if gross.Gt(g.limits.MaxGrossExposure) {
			return fmt.Errorf("%w: gross exposure %s exceeds max %s",
				ErrRiskLimitExceeded, gross, g.limits.MaxGrossExposure)
		}
	}

	return nil
}

// referencePrice prefers the order's own limit price, then the configured
// price source. Checks that need a price are skipped when neither exists.
func (g *RiskGuard) referencePrice(order Order) (fixed.Point, bool) {
	if order.LimitPrice.IsPos() {
		return order.LimitPrice, true
	}
	if g.price != nil {
		return g.price(order.Instrument)
	}
	return fixed.Zero, false
}
