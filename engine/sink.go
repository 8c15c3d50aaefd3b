package engine

import (
	"log/slog"

	"matchbook/domain/orderbook"
)

// TradeSink receives completed trades for downstream settlement.
// Publish is best-effort and runs outside the matching critical section:
// an error is logged by the publisher, never rolled back into the match.
type TradeSink interface {
	Publish(orderbook.Trade) error
}

// LogSink writes trades to the structured log. Default for dev runs.
type LogSink struct {
	Log *slog.Logger
}

func (s LogSink) Publish(t orderbook.Trade) error {
	s.Log.Info("trade",
		"seq", t.Seq,
		"buy_order", t.BuyOrderID,
		"sell_order", t.SellOrderID,
		"price", t.Price,
		"qty", t.Quantity,
	)
	return nil
}
