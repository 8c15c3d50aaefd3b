package engine

import "matchbook/domain/orderbook"

// BookSnapshot is an immutable copy of the resting book, both sides in
// priority order. The actor rebuilds it after every mutating request and
// swaps it in atomically, so readers never observe a half-applied match:
// a decremented remaining quantity and its book removal appear together.
type BookSnapshot struct {
	Bids []orderbook.Order
	Asks []orderbook.Order
}

func (e *Engine) buildSnapshot() *BookSnapshot {
	s := &BookSnapshot{}
	e.book.WalkBids(func(o *orderbook.Order) {
		s.Bids = append(s.Bids, *o.Clone())
	})
	e.book.WalkAsks(func(o *orderbook.Order) {
		s.Asks = append(s.Asks, *o.Clone())
	})
	return s
}
