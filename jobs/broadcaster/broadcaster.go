// Package broadcaster drains the trade outbox into Kafka. Together with the
// engine's synchronous outbox append this gives at-least-once delivery to
// settlement: entries survive restarts and are retried until the broker
// acknowledges them.
package broadcaster

import (
	"context"
	"encoding/binary"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	"matchbook/infra/journal"
	"matchbook/infra/outbox"
)

const maxRetries = 5

type Broadcaster struct {
	outbox   *outbox.Outbox
	producer sarama.SyncProducer
	topic    string
	interval time.Duration
	log      *slog.Logger
}

// NewProducer builds the sarama producer the broadcaster normally runs with.
func NewProducer(brokers []string) (sarama.SyncProducer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	return sarama.NewSyncProducer(brokers, cfg)
}

// New wires a broadcaster. The producer is injected so tests can use
// sarama's mocks.
func New(ob *outbox.Outbox, producer sarama.SyncProducer, topic string, interval time.Duration, log *slog.Logger) *Broadcaster {
	return &Broadcaster{
		outbox:   ob,
		producer: producer,
		topic:    topic,
		interval: interval,
		log:      log,
	}
}

// Run drains the outbox on a ticker until the context ends.
func (b *Broadcaster) Run(ctx context.Context) {
	b.log.Info("broadcaster started", "topic", b.topic, "interval", b.interval)
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			b.log.Info("broadcaster stopped")
			return
		case <-ticker.C:
			b.DrainOnce()
		}
	}
}

// DrainOnce walks pending entries: mark sent, publish, mark acked.
// Publish failures leave the entry pending for the next tick; an entry
// that keeps failing is parked as FAILED.
func (b *Broadcaster) DrainOnce() {
	err := b.outbox.ScanPending(func(rec outbox.Record) error {
		if rec.Retries >= maxRetries {
			b.log.Error("trade event giving up", "seq", rec.Seq, "retries", rec.Retries)
			return b.outbox.MarkFailed(rec.Seq)
		}

		if err := b.outbox.MarkSent(rec.Seq); err != nil {
			return err
		}

		msg := &sarama.ProducerMessage{
			Topic: b.topic,
			Key:   sarama.ByteEncoder(keyFor(rec.Seq)),
			Value: sarama.ByteEncoder(journal.EncodeTrade(rec.Trade)),
		}
		if _, _, err := b.producer.SendMessage(msg); err != nil {
			b.log.Warn("trade event publish failed", "seq", rec.Seq, "err", err)
			return nil // retry next tick
		}

		return b.outbox.MarkAcked(rec.Seq)
	})
	if err != nil {
		b.log.Error("outbox drain failed", "err", err)
	}
}

func (b *Broadcaster) Close() error {
	return b.producer.Close()
}

func keyFor(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
