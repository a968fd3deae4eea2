// Package market models EOD price history and the read-only stores that
// serve it. Stores are append-only from the core's point of view and must
// support concurrent readers.
package market

import (
	"errors"
	"fmt"
	"time"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

var (
	ErrNoMarketData      = errors.New("no market data")
	ErrInvalidMarketData = errors.New("invalid market data")
)

// Bar is one instrument's OHLCV record for a single trading day.
type Bar struct {
	Instrument string
	Date       time.Time
	Open       fixed.Point
	High       fixed.Point
	Low        fixed.Point
	Close      fixed.Point
	Volume     fixed.Point
}

// Day normalizes a timestamp to its UTC midnight, the canonical form of a
// trading date throughout the module.
func Day(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Validate rejects bars that could produce nonsensical fills: non-positive
// prices, inverted ranges, or opens/closes outside [low, high].
func (b Bar) Validate() error {
	prices := []struct {
		name  string
		value fixed.Point
	}{
		{"open", b.Open},
		{"high", b.High},
		{"low", b.Low},
		{"close", b.Close},
	}
	for _, p := range prices {
		if !p.value.IsPos() {
			return fmt.Errorf("%w: %s/%s non-positive %s price %s",
				ErrInvalidMarketData, b.Instrument, b.Date.Format(time.DateOnly), p.name, p.value)
		}
	}
	if b.Low.Gt(b.High) {
		return fmt.Errorf("%w: %s/%s low %s above high %s",
			ErrInvalidMarketData, b.Instrument, b.Date.Format(time.DateOnly), b.Low, b.High)
	}
	if b.Open.Lt(b.Low) || b.Open.Gt(b.High) || b.Close.Lt(b.Low) || b.Close.Gt(b.High) {
		return fmt.Errorf("%w: %s/%s open/close outside [low, high]",
			ErrInvalidMarketData, b.Instrument, b.Date.Format(time.DateOnly))
	}
	if b.Volume.IsNeg() {
		return fmt.Errorf("%w: %s/%s negative volume %s",
			ErrInvalidMarketData, b.Instrument, b.Date.Format(time.DateOnly), b.Volume)
	}
	return nil
}

// Crosses reports whether price falls within the bar's [low, high] range.
func (b Bar) Crosses(price fixed.Point) bool {
	return price.Gte(b.Low) && price.Lte(b.High)
}
