// Package kafka is the direct fire-and-forget trade sink. For at-least-once
// delivery use the outbox plus broadcaster instead.
package kafka

import (
	"context"
	"encoding/binary"
	"time"

	segkafka "github.com/segmentio/kafka-go"

	"matchbook/domain/orderbook"
	"matchbook/infra/journal"
)

type Producer struct {
	writer  *segkafka.Writer
	timeout time.Duration
}

func NewProducer(brokers []string, topic string) *Producer {
	return &Producer{
		writer: &segkafka.Writer{
			Addr:         segkafka.TCP(brokers...),
			Topic:        topic,
			RequiredAcks: segkafka.RequireAll,
			Async:        false,
			BatchTimeout: 10 * time.Millisecond,
		},
		timeout: 5 * time.Second,
	}
}

// Publish sends one trade, keyed by sequence. Errors are the caller's to
// log; a completed match is never rolled back over a publish failure.
func (p *Producer) Publish(t orderbook.Trade) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, t.Seq)
	return p.writer.WriteMessages(ctx, segkafka.Message{
		Key:   key,
		Value: journal.EncodeTrade(t),
	})
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
