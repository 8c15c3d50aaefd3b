package orderbook

import "fmt"

// Book holds the two priority orderings over resting orders for one
// instrument. Bids serve best from the highest price level, asks from the
// lowest; within a level orders queue FIFO by arrival sequence, so the
// comparator (price, seq) is total and no two orders ever tie.
//
// The book itself is not goroutine safe. All mutation goes through the
// single matching authority that owns it.
type Book struct {
	bids   *RBTree
	asks   *RBTree
	orders map[uint64]*Order
}

func NewBook() *Book {
	return &Book{
		bids:   NewRBTree(),
		asks:   NewRBTree(),
		orders: make(map[uint64]*Order),
	}
}

// Insert adds a live order at the position dictated by its side's ordering.
func (b *Book) Insert(o *Order) error {
	if o.Price.Sign() <= 0 || o.Original.Sign() <= 0 || o.Remaining.Sign() <= 0 {
		return fmt.Errorf("%w: price and quantity must be positive", ErrInvalidOrder)
	}
	if o.Status.Terminal() {
		return fmt.Errorf("%w: terminal order %d", ErrInvalidOrder, o.ID)
	}
	if _, ok := b.orders[o.ID]; ok {
		return fmt.Errorf("%w: duplicate id %d", ErrInvalidOrder, o.ID)
	}
	b.side(o.Side).UpsertLevel(o.Price).enqueue(o)
	b.orders[o.ID] = o
	return nil
}

// BestBid peeks the highest-priority resting buy order, nil when empty.
func (b *Book) BestBid() *Order {
	if lvl := b.bids.MaxLevel(); lvl != nil {
		return lvl.head
	}
	return nil
}

// BestAsk peeks the highest-priority resting sell order, nil when empty.
func (b *Book) BestAsk() *Order {
	if lvl := b.asks.MinLevel(); lvl != nil {
		return lvl.head
	}
	return nil
}

// Remove takes an order out of the book wherever it sits, dropping its
// price level when that empties. Used on full fill and on cancel.
func (b *Book) Remove(id uint64) (*Order, error) {
	o, ok := b.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrOrderNotFound, id)
	}
	tree := b.side(o.Side)
	lvl := tree.FindLevel(o.Price)
	if lvl != nil {
		lvl.unlink(o)
		if lvl.head == nil {
			tree.DeleteLevel(o.Price)
		}
	}
	delete(b.orders, id)
	return o, nil
}

// Find returns the resting order with the given id, nil when absent.
func (b *Book) Find(id uint64) *Order {
	return b.orders[id]
}

// Len reports the number of resting orders on one side.
func (b *Book) Len(s Side) int {
	n := 0
	b.walk(s, func(o *Order) { n++ })
	return n
}

// Crossed reports whether the best bid meets or exceeds the best ask.
// A resting book is never crossed (the matching loop drives it back).
func (b *Book) Crossed() bool {
	bid, ask := b.BestBid(), b.BestAsk()
	return bid != nil && ask != nil && bid.Price.GreaterThanOrEqual(ask.Price)
}

// WalkBids visits resting buy orders in priority order.
func (b *Book) WalkBids(fn func(*Order)) { b.walk(Buy, fn) }

// WalkAsks visits resting sell orders in priority order.
func (b *Book) WalkAsks(fn func(*Order)) { b.walk(Sell, fn) }

func (b *Book) walk(s Side, fn func(*Order)) {
	visit := func(lvl *PriceLevel) bool {
		for o := lvl.head; o != nil; o = o.next {
			fn(o)
		}
		return true
	}
	if s == Buy {
		b.bids.ForEachDescending(visit)
	} else {
		b.asks.ForEachAscending(visit)
	}
}

func (b *Book) side(s Side) *RBTree {
	if s == Buy {
		return b.bids
	}
	return b.asks
}
