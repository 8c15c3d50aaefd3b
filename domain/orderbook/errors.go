package orderbook

import "errors"

var (
	// ErrInvalidOrder is returned when side, price or quantity fail validation.
	// Nothing is mutated; the caller corrects and resubmits.
	ErrInvalidOrder = errors.New("invalid order")

	// ErrOrderNotFound is returned for lookups and cancels on unknown ids.
	ErrOrderNotFound = errors.New("order not found")

	// ErrInvalidState is returned when a cancel hits an order that is
	// already Filled or Cancelled.
	ErrInvalidState = errors.New("order not cancellable")

	// ErrSelfTrade is returned under the reject policy when an incoming
	// order would execute against the same owner's resting order.
	ErrSelfTrade = errors.New("self trade rejected")
)
