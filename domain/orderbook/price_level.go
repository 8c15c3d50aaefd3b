package orderbook

import "github.com/shopspring/decimal"

// PriceLevel is a FIFO queue of resting orders at one price.
// Arrival order is preserved by appending at the tail, which together with
// the tree ordering gives price-time priority.
type PriceLevel struct {
	Price      decimal.Decimal
	head       *Order
	tail       *Order
	OrderCount int
}

// Head returns the order with time priority at this level.
func (p *PriceLevel) Head() *Order { return p.head }

func (p *PriceLevel) enqueue(o *Order) {
	if p.head == nil {
		p.head = o
		p.tail = o
	} else {
		p.tail.next = o
		o.prev = p.tail
		p.tail = o
	}
	p.OrderCount++
}

func (p *PriceLevel) unlink(o *Order) {
	if o.prev != nil {
		o.prev.next = o.next
	} else {
		p.head = o.next
	}
	if o.next != nil {
		o.next.prev = o.prev
	} else {
		p.tail = o.prev
	}
	o.next = nil
	o.prev = nil
	p.OrderCount--
}

// TotalQty sums the remaining quantity resting at this level.
func (p *PriceLevel) TotalQty() decimal.Decimal {
	total := decimal.Zero
	for o := p.head; o != nil; o = o.next {
		total = total.Add(o.Remaining)
	}
	return total
}
