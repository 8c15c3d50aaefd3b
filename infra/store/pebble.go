package store

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"

	"matchbook/domain/orderbook"
)

// Pebble is the durable Store. Layout:
//
//	'o' <id:8>                      -> order record (protobuf wire)
//	'a' <price:8> <seq:8>           -> id   resting asks, price ascending
//	'b' <^price:8> <seq:8>          -> id   resting bids, price descending
//
// Bid prices are bit-complemented so natural ascending key order walks both
// indices best-first. Prices index at 1e-8 resolution.
//
// A record put and its index update commit in one synced batch, so a trade's
// two order updates are atomic on disk.
type Pebble struct {
	db *pebble.DB
}

const (
	prefixRecord = 'o'
	prefixAsk    = 'a'
	prefixBid    = 'b'

	// priceShift scales decimal prices into index keys.
	priceShift = 8
)

func OpenPebble(dir string) (*Pebble, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrUnavailable, dir, err)
	}
	return &Pebble{db: db}, nil
}

func (s *Pebble) Close() error {
	return s.db.Close()
}

func (s *Pebble) Put(orders ...*orderbook.Order) error {
	batch := s.db.NewBatch()
	defer batch.Close()

	for _, o := range orders {
		if err := batch.Set(recordKey(o.ID), encodeOrder(o), nil); err != nil {
			return fmt.Errorf("%w: set record %d: %v", ErrUnavailable, o.ID, err)
		}
		ik := indexKey(o)
		if o.Status.Terminal() {
			if err := batch.Delete(ik, nil); err != nil {
				return fmt.Errorf("%w: drop index %d: %v", ErrUnavailable, o.ID, err)
			}
		} else {
			var idv [8]byte
			binary.BigEndian.PutUint64(idv[:], o.ID)
			if err := batch.Set(ik, idv[:], nil); err != nil {
				return fmt.Errorf("%w: set index %d: %v", ErrUnavailable, o.ID, err)
			}
		}
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("%w: commit: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *Pebble) Get(id uint64) (*orderbook.Order, error) {
	val, closer, err := s.db.Get(recordKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, fmt.Errorf("%w: id %d", orderbook.ErrOrderNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get %d: %v", ErrUnavailable, id, err)
	}
	defer closer.Close()
	return decodeOrder(val)
}

func (s *Pebble) Delete(id uint64) error {
	o, err := s.Get(id)
	if errors.Is(err, orderbook.ErrOrderNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	defer batch.Close()
	_ = batch.Delete(recordKey(id), nil)
	_ = batch.Delete(indexKey(o), nil)
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		return fmt.Errorf("%w: delete %d: %v", ErrUnavailable, id, err)
	}
	return nil
}

func (s *Pebble) Resting() ([]*orderbook.Order, error) {
	var out []*orderbook.Order
	for _, prefix := range []byte{prefixAsk, prefixBid} {
		iter, err := s.db.NewIter(&pebble.IterOptions{
			LowerBound: []byte{prefix},
			UpperBound: []byte{prefix + 1},
		})
		if err != nil {
			return nil, fmt.Errorf("%w: index iter: %v", ErrUnavailable, err)
		}
		for iter.First(); iter.Valid(); iter.Next() {
			id := binary.BigEndian.Uint64(iter.Value())
			o, err := s.Get(id)
			if err != nil {
				iter.Close()
				return nil, fmt.Errorf("index entry %d: %w", id, err)
			}
			out = append(out, o)
		}
		if err := iter.Close(); err != nil {
			return nil, fmt.Errorf("%w: index iter close: %v", ErrUnavailable, err)
		}
	}
	return out, nil
}

func (s *Pebble) MaxID() (uint64, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefixRecord},
		UpperBound: []byte{prefixRecord + 1},
	})
	if err != nil {
		return 0, fmt.Errorf("%w: record iter: %v", ErrUnavailable, err)
	}
	defer iter.Close()
	if !iter.Last() {
		return 0, nil
	}
	return binary.BigEndian.Uint64(iter.Key()[1:9]), nil
}

func recordKey(id uint64) []byte {
	k := make([]byte, 9)
	k[0] = prefixRecord
	binary.BigEndian.PutUint64(k[1:], id)
	return k
}

func indexKey(o *orderbook.Order) []byte {
	k := make([]byte, 17)
	price := uint64(o.Price.Shift(priceShift).IntPart())
	if o.Side == orderbook.Buy {
		k[0] = prefixBid
		price = ^price
	} else {
		k[0] = prefixAsk
	}
	binary.BigEndian.PutUint64(k[1:9], price)
	binary.BigEndian.PutUint64(k[9:17], o.Seq)
	return k
}
