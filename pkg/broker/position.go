package broker

import (
	"time"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

// Position is the aggregated holding of one instrument. Quantity is signed;
// AvgCost is meaningless when Quantity is zero and a zero position is removed
// from the book entirely.
type Position struct {
	Instrument    string
	Quantity      fixed.Point
	AvgCost       fixed.Point
	MarketValue   fixed.Point
	UnrealizedPnL fixed.Point
	PricedAt      time.Time
}

// Reprice recomputes market value and unrealized P&L against a new price.
func (p Position) Reprice(price fixed.Point, at time.Time) Position {
	p.MarketValue = p.Quantity.Mul(price)
	p.UnrealizedPnL = price.Sub(p.AvgCost).Mul(p.Quantity)
	p.PricedAt = at
	return p
}

// AccountState is a point-in-time account valuation. Equity is always
// recomputed from cash and position market values, never stored on its own.
type AccountState struct {
	Cash   fixed.Point
	Equity fixed.Point
	AsOf   time.Time
}
