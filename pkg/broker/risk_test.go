package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

type riskInner struct {
	stubBroker
	positions map[string]Position
}

func (b *riskInner) Positions() map[string]Position { return b.positions }

func TestRiskGuard_Submit(t *testing.T) {
	price := func(string) (fixed.Point, bool) { return fixed.FromInt(100, 0), true }

	tests := []struct {
		name      string
		limits    RiskLimits
		positions map[string]Position
		order     Order
		blocked   bool
	}{
		{
			name:   "no limits passes everything",
			limits: RiskLimits{},
			order:  NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(1000000, 0)),
		},
		{
			name:    "order quantity cap",
			limits:  RiskLimits{MaxOrderQuantity: fixed.FromInt(100, 0)},
			order:   NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(101, 0)),
			blocked: true,
		},
		{
			name:   "order quantity at cap",
			limits: RiskLimits{MaxOrderQuantity: fixed.FromInt(100, 0)},
			order:  NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(100, 0)),
		},
		{
			name:    "notional cap uses reference price",
			limits:  RiskLimits{MaxOrderNotional: fixed.FromInt(5000, 0)},
			order:   NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(51, 0)),
			blocked: true,
		},
		{
			name: "position cap counts existing holdings",
			limits: RiskLimits{
				MaxPositionQuantity: fixed.FromInt(100, 0),
			},
			positions: map[string]Position{
				"AAPL": {Instrument: "AAPL", Quantity: fixed.FromInt(80, 0)},
			},
			order:   NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(30, 0)),
			blocked: true,
		},
		{
			name: "reducing order passes position cap",
			limits: RiskLimits{
				MaxPositionQuantity: fixed.FromInt(100, 0),
			},
			positions: map[string]Position{
				"AAPL": {Instrument: "AAPL", Quantity: fixed.FromInt(80, 0)},
			},
			order: NewOrder("AAPL", SideSell, OrderTypeMarket, fixed.FromInt(30, 0)),
		},
		{
			name:   "gross exposure cap",
			limits: RiskLimits{MaxGrossExposure: fixed.FromInt(10000, 0)},
			positions: map[string]Position{
				"MSFT": {Instrument: "MSFT", Quantity: fixed.FromInt(50, 0), MarketValue: fixed.FromInt(9000, 0)},
			},
			order:   NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(20, 0)),
			blocked: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &riskInner{positions: tt.positions}
			if inner.positions == nil {
				inner.positions = map[string]Position{}
			}
			guard := NewRiskGuard(inner, tt.limits, price, nil)

			_, err := guard.Submit(tt.order)
			if tt.blocked {
				require.ErrorIs(t, err, ErrRiskLimitExceeded)
				assert.Empty(t, inner.submitted)
			} else {
				require.NoError(t, err)
				assert.Len(t, inner.submitted, 1)
			}
		})
	}
}

func TestRiskGuard_LimitPricePreferred(t *testing.T) {
	inner := &riskInner{positions: map[string]Position{}}
	guard := NewRiskGuard(inner, RiskLimits{MaxOrderNotional: fixed.FromInt(1000, 0)}, nil, nil)

	order := NewOrder("AAPL", SideBuy, OrderTypeLimit, fixed.FromInt(20, 0))
	order.LimitPrice = fixed.FromInt(100, 0)

	_, err := guard.Submit(order)
	require.ErrorIs(t, err, ErrRiskLimitExceeded)
}

func TestRiskGuard_NoPriceSkipsNotionalCheck(t *testing.T) {
	inner := &riskInner{positions: map[string]Position{}}
	guard := NewRiskGuard(inner, RiskLimits{MaxOrderNotional: fixed.FromInt(1000, 0)}, nil, nil)

	order := NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(1000000, 0))
	_, err := guard.Submit(order)
	require.NoError(t, err)
}
