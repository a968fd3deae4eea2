// Package planner converts target positions into the minimal set of orders
// needed to reach them.
package planner

import (
	"sort"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/broker"
	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

type Options struct {
	// MinQuantity suppresses dust orders from rounding differences. Deltas
	// with an absolute value at or below it produce no order.
	MinQuantity fixed.Point
	OrderType   broker.OrderType
	Account     string
}

// Plan diffs current against target positions and returns at most one order
// per instrument, sorted ascending by instrument id. Identical inputs always
// yield the identical list in identical order, which keeps downstream fill
// resolution reproducible. Instruments absent from targets are closed out.
func Plan(current map[string]broker.Position, targets map[string]fixed.Point, opts Options) []broker.Order {
	instruments := make(map[string]struct{}, len(current)+len(targets))
	for instrument := range current {
		instruments[instrument] = struct{}{}
	}
	for instrument := range targets {
		instruments[instrument] = struct{}{}
	}

	sorted := make([]string, 0, len(instruments))
	for instrument := range instruments {
		sorted = append(sorted, instrument)
	}
	sort.Strings(sorted)

	var orders []broker.Order
	for _, instrument := range sorted {
		held := fixed.Zero
		if pos, ok := current[instrument]; ok {
			held = pos.Quantity
		}
		target := fixed.Zero
		if t, ok := targets[instrument]; ok {
			target = t
		}

		delta := target.Sub(held)
		if delta.Abs().Lte(opts.MinQuantity) {
			continue
		}

		side := broker.SideBuy
		if delta.IsNeg() {
			side = broker.SideSell
		}
		order := broker.NewOrder(instrument, side, opts.OrderType, delta.Abs())
		order.Account = opts.Account
		orders = append(orders, order)
	}
	return orders
}
