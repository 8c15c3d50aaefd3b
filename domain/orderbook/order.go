package orderbook

import "github.com/shopspring/decimal"

type Side int
type Status int

const (
	Buy Side = iota
	Sell
)

const (
	Open Status = iota
	PartiallyFilled
	Filled
	Cancelled
)

func (s Side) String() string {
	if s == Sell {
		return "sell"
	}
	return "buy"
}

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// ParseSide maps the wire representation to a Side.
func ParseSide(v string) (Side, error) {
	switch v {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	default:
		return 0, ErrInvalidOrder
	}
}

func (s Status) String() string {
	switch s {
	case Open:
		return "open"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == Filled || s == Cancelled
}

// Order is a single limit order. Price and quantities are exact decimals;
// Remaining only ever decreases. Seq breaks price ties (FIFO within a level)
// and equals ID at creation.
type Order struct {
	ID        uint64
	Owner     string
	Side      Side
	Price     decimal.Decimal
	Original  decimal.Decimal
	Remaining decimal.Decimal
	Seq       uint64
	Status    Status

	next *Order
	prev *Order
}

// NewOrder builds an Open order. id doubles as the arrival sequence.
func NewOrder(id uint64, owner string, side Side, price, qty decimal.Decimal) *Order {
	return &Order{
		ID:        id,
		Owner:     owner,
		Side:      side,
		Price:     price,
		Original:  qty,
		Remaining: qty,
		Seq:       id,
		Status:    Open,
	}
}

// Next returns the order behind this one at the same price level.
func (o *Order) Next() *Order { return o.next }

// Filled returns the quantity executed so far.
func (o *Order) Filled() decimal.Decimal {
	return o.Original.Sub(o.Remaining)
}

// Clone returns a detached copy safe to hand outside the book.
func (o *Order) Clone() *Order {
	c := *o
	c.next = nil
	c.prev = nil
	return &c
}
