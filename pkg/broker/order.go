package broker

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/FeanorKingofNoldor/prometheus-v2-sub000/pkg/fixed"
)

type OrderID = uuid.UUID
type FillID = uuid.UUID

type Side int
type OrderType int

const (
	SideBuy Side = iota
	SideSell
)

const (
	OrderTypeMarket OrderType = iota
	OrderTypeLimit
	OrderTypeStop
	OrderTypeStopLimit
)

var ErrInvalidOrder = errors.New("invalid order")

func (s Side) String() string {
	if s == SideBuy {
		return "buy"
	}
	return "sell"
}

// Sign returns +1 for buys and -1 for sells.
func (s Side) Sign() fixed.Point {
	if s == SideBuy {
		return fixed.One
	}
	return fixed.One.Neg()
}

func (t OrderType) String() string {
	switch t {
	case OrderTypeMarket:
		return "market"
	case OrderTypeLimit:
		return "limit"
	case OrderTypeStop:
		return "stop"
	case OrderTypeStopLimit:
		return "stop-limit"
	default:
		return "unknown"
	}
}

// Order is a request to trade a single instrument. Quantity is always
// positive; the direction is carried by Side. Metadata is never interpreted
// by the core, only passed through to the audit log.
type Order struct {
	ID         OrderID
	Instrument string
	Side       Side
	Type       OrderType
	Quantity   fixed.Point
	LimitPrice fixed.Point
	StopPrice  fixed.Point
	Status     Status
	Account    string
	Metadata   map[string]string
	CreatedAt  time.Time
}

// NewOrder creates a Pending order with a fresh id.
func NewOrder(instrument string, side Side, orderType OrderType, quantity fixed.Point) Order {
	return Order{
		ID:         uuid.Must(uuid.NewV7()),
		Instrument: instrument,
		Side:       side,
		Type:       orderType,
		Quantity:   quantity,
		Status:     StatusPending,
		CreatedAt:  time.Now().UTC(),
	}
}

// Validate checks the order shape. It does not consult market data.
func (o Order) Validate() error {
	if o.Instrument == "" {
		return fmt.Errorf("%w: empty instrument", ErrInvalidOrder)
	}
	if !o.Quantity.IsPos() {
		return fmt.Errorf("%w: quantity must be positive, got %s", ErrInvalidOrder, o.Quantity)
	}
	switch o.Type {
	case OrderTypeLimit:
		if !o.LimitPrice.IsPos() {
			return fmt.Errorf("%w: limit order requires a positive limit price", ErrInvalidOrder)
		}
	case OrderTypeStop:
		if !o.StopPrice.IsPos() {
			return fmt.Errorf("%w: stop order requires a positive stop price", ErrInvalidOrder)
		}
	case OrderTypeStopLimit:
		if !o.LimitPrice.IsPos() || !o.StopPrice.IsPos() {
			return fmt.Errorf("%w: stop-limit order requires positive stop and limit prices", ErrInvalidOrder)
		}
	}
	return nil
}

// Fill is an execution of part or all of an order. Time always falls within
// the simulated day that produced it.
type Fill struct {
	ID         FillID
	OrderID    OrderID
	Instrument string
	Side       Side
	Quantity   fixed.Point
	Price      fixed.Point
	Commission fixed.Point
	Time       time.Time
	Metadata   map[string]string
}

// Notional returns quantity * price.
func (f Fill) Notional() fixed.Point {
	return f.Quantity.Mul(f.Price)
}
