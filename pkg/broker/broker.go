// Package broker defines the execution port: one contract implemented by the
// backtest simulator and by live/paper connectivity adapters, so that
// decision logic cannot tell which one it is talking to.
package broker

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Mode selects which execution backend a factory constructs. It is always an
// explicit parameter, never ambient process state, so a simulation and a
// live shadow can coexist in one process.
type Mode string

const (
	ModeBacktest Mode = "BACKTEST"
	ModePaper    Mode = "PAPER"
	ModeLive     Mode = "LIVE"
)

// CancelResult tells the caller what a cancel request achieved. Races with
// fills are never errors; an already-terminal order yields CancelTooLate.
type CancelResult string

const (
	CancelDone    CancelResult = "CANCELLED"
	CancelTooLate CancelResult = "TOO_LATE"
)

var (
	ErrUnknownOrder = errors.New("unknown order")
	ErrUnknownMode  = errors.New("unknown execution mode")
)

// Broker is the uniform execution contract. Every implementation must satisfy
// identical pre/post-conditions for every method:
//
//   - Submit validates shape, returns the accepted order's id and never
//     blocks on market activity.
//   - Cancel returns CancelTooLate for terminal orders rather than an error.
//   - FillsSince must be safe to call concurrently with Submit.
//   - Positions and Account are read-only snapshots with no side effects.
//   - Sync reconciles local state with the authoritative source; it must be
//     idempotent and safe after a connectivity interruption. The simulator is
//     authoritative for itself, so its Sync only revalues positions.
type Broker interface {
	Submit(order Order) (OrderID, error)
	Cancel(id OrderID) (CancelResult, error)
	OrderStatus(id OrderID) (Status, error)
	FillsSince(since time.Time) []Fill
	Positions() map[string]Position
	Account() AccountState
	Sync() error
}

// Constructor builds a Broker for one mode. Configuration travels inside the
// closure so the registry stays mode-agnostic.
type Constructor func() (Broker, error)

var (
	registryMu sync.RWMutex
	registry   = map[Mode]Constructor{}
)

// Register installs a constructor for a mode, replacing any previous one.
func Register(mode Mode, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[mode] = ctor
}

// New constructs a broker for the requested mode.
func New(mode Mode) (Broker, error) {
	registryMu.RLock()
	ctor, ok := registry[mode]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownMode, mode)
	}
	return ctor()
}

// Modes lists the registered modes in stable order.
func Modes() []Mode {
	registryMu.RLock()
	defer registryMu.RUnlock()
	modes := make([]Mode, 0, len(registry))
	for mode := range registry {
		modes = append(modes, mode)
	}
	sort.Slice(modes, func(i, j int) bool { return modes[i] < modes[j] })
	return modes
}
