// Package store persists order records keyed by id, plus the two ordered
// side indices the book is rebuilt from after a restart.
package store

import (
	"errors"

	"matchbook/domain/orderbook"
)

// ErrUnavailable wraps persistence failures. A request that hits it fails
// as a whole; the book mutation it would have committed is not applied.
var ErrUnavailable = errors.New("order store unavailable")

// Store is the durable order-record mapping. Put with several orders must
// commit them and their index entries atomically: the engine persists both
// sides of a trade as one unit.
//
// Reads are safe concurrently with writes; read-after-write holds for the
// writer. Terminal orders keep their record (audit) but leave the indices.
type Store interface {
	Put(orders ...*orderbook.Order) error
	Get(id uint64) (*orderbook.Order, error)
	Delete(id uint64) error

	// Resting returns every non-terminal order, asks then bids, each side
	// in its priority order.
	Resting() ([]*orderbook.Order, error)

	// MaxID returns the highest order id ever stored, 0 when empty.
	MaxID() (uint64, error)

	Close() error
}
