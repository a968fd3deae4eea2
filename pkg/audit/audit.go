// Package audit receives every order transition, fill, and daily account
// snapshot produced by an execution backend. Records are self-describing so
// a run can be replayed from the audit trail alone. All sinks are
// fire-and-forget: the simulator never blocks on, or fails because of, the
// audit path.
package audit

import (
	"time"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/broker"
)

// OrderEvent records one status transition of an order.
type OrderEvent struct {
	Order  broker.Order
	From   broker.Status
	To     broker.Status
	Reason string
	Date   time.Time
}

// FillEvent records one execution.
type FillEvent struct {
	Fill broker.Fill
	Date time.Time
}

// SnapshotEvent records end-of-day account state and open positions.
type SnapshotEvent struct {
	Account   broker.AccountState
	Positions []broker.Position
	Date      time.Time
}

type Log interface {
	OrderTransition(event OrderEvent)
	Fill(event FillEvent)
	Snapshot(event SnapshotEvent)
}

// Nop discards everything.
type Nop struct{}

func (Nop) OrderTransition(OrderEvent) {}
func (Nop) Fill(FillEvent)             {}
func (Nop) Snapshot(SnapshotEvent)     {}

// Tee fans records out to several sinks in order.
type Tee []Log

func (t Tee) OrderTransition(event OrderEvent) {
	for _, log := range t {
		log.OrderTransition(event)
	}
}

func (t Tee) Fill(event FillEvent) {
	for _, log := range t {
		log.Fill(event)
	}
}

func (t Tee) Snapshot(event SnapshotEvent) {
	for _, log := range t {
		log.Snapshot(event)
	}
}
