package orderbook

import "github.com/shopspring/decimal"

// Trade is the result of one match iteration. It is transient: produced by
// the engine, journaled and published, never held in the book. Seq comes
// from the same allocator as order ids, so emitted trades order totally.
type Trade struct {
	Seq         uint64
	BuyOrderID  uint64
	SellOrderID uint64
	Price       decimal.Decimal
	Quantity    decimal.Decimal
	Time        int64 // unix nanos
}
