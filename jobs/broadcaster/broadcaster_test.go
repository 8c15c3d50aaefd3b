package broadcaster

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/IBM/sarama/mocks"
	"github.com/shopspring/decimal"

	"matchbook/domain/orderbook"
	"matchbook/infra/outbox"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func openTestOutbox(t *testing.T) *outbox.Outbox {
	t.Helper()
	ob, err := outbox.Open(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ob.Close() })
	return ob
}

func trade(seq uint64) orderbook.Trade {
	return orderbook.Trade{
		Seq:         seq,
		BuyOrderID:  1,
		SellOrderID: 2,
		Price:       decimal.NewFromInt(100),
		Quantity:    decimal.NewFromInt(1),
		Time:        1,
	}
}

func pendingCount(t *testing.T, ob *outbox.Outbox) int {
	t.Helper()
	n := 0
	if err := ob.ScanPending(func(outbox.Record) error {
		n++
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	return n
}

func TestDrainPublishesAndAcks(t *testing.T) {
	ob := openTestOutbox(t)
	_ = ob.Append(trade(1))
	_ = ob.Append(trade(2))

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndSucceed()

	b := New(ob, producer, "trades", time.Second, discard())
	b.DrainOnce()

	if n := pendingCount(t, ob); n != 0 {
		t.Errorf("pending after drain = %d, want 0", n)
	}
}

func TestDrainRetriesOnBrokerFailure(t *testing.T) {
	ob := openTestOutbox(t)
	_ = ob.Append(trade(1))

	producer := mocks.NewSyncProducer(t, nil)
	producer.ExpectSendMessageAndFail(errors.New("broker down"))

	b := New(ob, producer, "trades", time.Second, discard())
	b.DrainOnce()

	// still pending, marked sent, will be retried next tick
	if n := pendingCount(t, ob); n != 1 {
		t.Fatalf("pending after failed drain = %d, want 1", n)
	}

	producer.ExpectSendMessageAndSucceed()
	b.DrainOnce()
	if n := pendingCount(t, ob); n != 0 {
		t.Errorf("pending after retry = %d, want 0", n)
	}
}

func TestDrainParksAfterMaxRetries(t *testing.T) {
	ob := openTestOutbox(t)
	_ = ob.Append(trade(1))

	producer := mocks.NewSyncProducer(t, nil)
	for i := 0; i < maxRetries; i++ {
		producer.ExpectSendMessageAndFail(errors.New("broker down"))
	}

	b := New(ob, producer, "trades", time.Second, discard())
	for i := 0; i < maxRetries+1; i++ {
		b.DrainOnce()
	}

	if n := pendingCount(t, ob); n != 0 {
		t.Errorf("record should be parked as FAILED, still pending: %d", n)
	}
}
