// Package outbox is the durable hand-off between the matching engine and
// Kafka. Trades land here synchronously after a match commits; the
// broadcaster drains pending entries, so a crash between commit and publish
// loses nothing.
package outbox

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"matchbook/domain/orderbook"
	"matchbook/infra/journal"
)

type State uint8

const (
	StateNew State = iota
	StateSent
	StateAcked
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "NEW"
	case StateSent:
		return "SENT"
	case StateAcked:
		return "ACKED"
	case StateFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// Record is one outbox entry.
// value encoding: [state:1][retries:4][lastAttempt:8][trade body]
type Record struct {
	Seq         uint64
	State       State
	Retries     uint32
	LastAttempt int64
	Trade       orderbook.Trade
}

const headerLen = 1 + 4 + 8

type Outbox struct {
	db *pebble.DB
}

func Open(dir string) (*Outbox, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("outbox: open %s: %w", dir, err)
	}
	return &Outbox{db: db}, nil
}

func (o *Outbox) Close() error {
	return o.db.Close()
}

// Append stores a freshly executed trade as NEW, synced before returning.
func (o *Outbox) Append(t orderbook.Trade) error {
	rec := Record{Seq: t.Seq, State: StateNew, Trade: t}
	return o.db.Set(keyFor(t.Seq), encode(rec), pebble.Sync)
}

// ScanPending visits NEW and SENT records in sequence order.
func (o *Outbox) ScanPending(fn func(Record) error) error {
	iter, err := o.db.NewIter(nil)
	if err != nil {
		return err
	}
	defer iter.Close()

	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decode(binary.BigEndian.Uint64(iter.Key()), iter.Value())
		if err != nil {
			return err
		}
		if rec.State != StateNew && rec.State != StateSent {
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// MarkSent records a delivery attempt.
func (o *Outbox) MarkSent(seq uint64) error {
	return o.update(seq, StateSent)
}

// MarkFailed parks a record after the broadcaster gives up on it.
func (o *Outbox) MarkFailed(seq uint64) error {
	return o.update(seq, StateFailed)
}

// MarkAcked drops the record: the broker has taken responsibility.
func (o *Outbox) MarkAcked(seq uint64) error {
	return o.db.Delete(keyFor(seq), pebble.Sync)
}

func (o *Outbox) update(seq uint64, state State) error {
	rec, err := o.get(seq)
	if err != nil {
		return err
	}
	rec.State = state
	rec.Retries++
	rec.LastAttempt = time.Now().UnixNano()
	return o.db.Set(keyFor(seq), encode(rec), pebble.Sync)
}

func (o *Outbox) get(seq uint64) (Record, error) {
	val, closer, err := o.db.Get(keyFor(seq))
	if errors.Is(err, pebble.ErrNotFound) {
		return Record{}, fmt.Errorf("outbox: no record for seq %d", seq)
	}
	if err != nil {
		return Record{}, err
	}
	defer closer.Close()
	return decode(seq, val)
}

func keyFor(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}

func encode(r Record) []byte {
	body := journal.EncodeTrade(r.Trade)
	buf := make([]byte, headerLen+len(body))
	buf[0] = byte(r.State)
	binary.BigEndian.PutUint32(buf[1:5], r.Retries)
	binary.BigEndian.PutUint64(buf[5:13], uint64(r.LastAttempt))
	copy(buf[headerLen:], body)
	return buf
}

func decode(seq uint64, b []byte) (Record, error) {
	if len(b) < headerLen {
		return Record{}, fmt.Errorf("outbox: short record for seq %d", seq)
	}
	t, err := journal.DecodeTrade(b[headerLen:])
	if err != nil {
		return Record{}, err
	}
	return Record{
		Seq:         seq,
		State:       State(b[0]),
		Retries:     binary.BigEndian.Uint32(b[1:5]),
		LastAttempt: int64(binary.BigEndian.Uint64(b[5:13])),
		Trade:       t,
	}, nil
}
