package engine

import (
	"time"

	"github.com/shopspring/decimal"

	"matchbook/domain/orderbook"
)

// match drives the book to its fixed point: while the best bid meets the
// best ask, execute at the resting ask's price for the smaller remaining
// quantity, then re-check the global bests. Each iteration strictly reduces
// resting quantity or removes an order, so the loop terminates and
// un-crosses a book regardless of how the cross arose.
//
// Each iteration persists both touched records in one store batch before
// the in-memory book is mutated: a storage failure aborts that iteration
// with prior state intact, earlier iterations stand.
func (e *Engine) match() (trades []orderbook.Trade, selfCross bool, err error) {
	for {
		bid, ask := e.book.BestBid(), e.book.BestAsk()
		if bid == nil || ask == nil || bid.Price.LessThan(ask.Price) {
			return trades, false, nil
		}
		if e.policy == SelfTradeReject && bid.Owner == ask.Owner {
			return trades, true, nil
		}

		qty := decimal.Min(bid.Remaining, ask.Remaining)
		price := ask.Price

		nb, na := bid.Clone(), ask.Clone()
		fill(nb, qty)
		fill(na, qty)
		if err := e.store.Put(nb, na); err != nil {
			return trades, false, err
		}

		bid.Remaining, bid.Status = nb.Remaining, nb.Status
		ask.Remaining, ask.Status = na.Remaining, na.Status
		if bid.Status == orderbook.Filled {
			if _, err := e.book.Remove(bid.ID); err != nil {
				return trades, false, err
			}
		}
		if ask.Status == orderbook.Filled {
			if _, err := e.book.Remove(ask.ID); err != nil {
				return trades, false, err
			}
		}

		trades = append(trades, orderbook.Trade{
			Seq:         e.seq.Next(),
			BuyOrderID:  bid.ID,
			SellOrderID: ask.ID,
			Price:       price,
			Quantity:    qty,
			Time:        time.Now().UnixNano(),
		})
	}
}

// fill decrements remaining by qty and moves the status. The zero check is
// exact decimal equality; no rounding residue can keep a filled order alive.
func fill(o *orderbook.Order, qty decimal.Decimal) {
	o.Remaining = o.Remaining.Sub(qty)
	if o.Remaining.IsZero() {
		o.Status = orderbook.Filled
	} else {
		o.Status = orderbook.PartiallyFilled
	}
}
