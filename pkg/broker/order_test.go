package broker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

func TestNewOrder(t *testing.T) {
	a := NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(100, 0))
	b := NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(100, 0))

	assert.Equal(t, StatusPending, a.Status)
	assert.Equal(t, "AAPL", a.Instrument)
	assert.NotEqual(t, a.ID, b.ID)

	assert.False(t, a.CreatedAt.IsZero())
	assert.Equal(t, time.UTC, a.CreatedAt.Location())
	assert.False(t, b.CreatedAt.Before(a.CreatedAt))
}

func TestOrder_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Order)
		wantErr bool
	}{
		{"valid market", func(o *Order) {}, false},
		{"empty instrument", func(o *Order) { o.Instrument = "" }, true},
		{"zero quantity", func(o *Order) { o.Quantity = fixed.Zero }, true},
		{"negative quantity", func(o *Order) { o.Quantity = fixed.FromInt(-5, 0) }, true},
		{"limit without price", func(o *Order) { o.Type = OrderTypeLimit }, true},
		{"limit with price", func(o *Order) {
			o.Type = OrderTypeLimit
			o.LimitPrice = fixed.FromFloat64(99.5)
		}, false},
		{"stop without price", func(o *Order) { o.Type = OrderTypeStop }, true},
		{"stop with price", func(o *Order) {
			o.Type = OrderTypeStop
			o.StopPrice = fixed.FromFloat64(95)
		}, false},
		{"stop-limit missing limit", func(o *Order) {
			o.Type = OrderTypeStopLimit
			o.StopPrice = fixed.FromFloat64(95)
		}, true},
		{"stop-limit complete", func(o *Order) {
			o.Type = OrderTypeStopLimit
			o.StopPrice = fixed.FromFloat64(95)
			o.LimitPrice = fixed.FromFloat64(94)
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := NewOrder("AAPL", SideBuy, OrderTypeMarket, fixed.FromInt(10, 0))
			tt.mutate(&order)
			err := order.Validate()
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidOrder)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestSide_Sign(t *testing.T) {
	assert.True(t, SideBuy.Sign().Eq(fixed.One))
	assert.True(t, SideSell.Sign().Eq(fixed.One.Neg()))
}

func TestFill_Notional(t *testing.T) {
	fill := Fill{Quantity: fixed.FromInt(100, 0), Price: fixed.FromFloat64(10.5)}
	assert.True(t, fill.Notional().Eq(fixed.FromInt(1050, 0)))
}
