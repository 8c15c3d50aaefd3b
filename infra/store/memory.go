package store

import (
	"fmt"
	"sort"
	"sync"

	"matchbook/domain/orderbook"
)

// Memory is an in-process Store for tests and ephemeral runs. It keeps
// clones, never the book's live pointers.
type Memory struct {
	mu     sync.RWMutex
	orders map[uint64]*orderbook.Order
	maxID  uint64
}

func NewMemory() *Memory {
	return &Memory{orders: make(map[uint64]*orderbook.Order)}
}

func (m *Memory) Put(orders ...*orderbook.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range orders {
		m.orders[o.ID] = o.Clone()
		if o.ID > m.maxID {
			m.maxID = o.ID
		}
	}
	return nil
}

func (m *Memory) Get(id uint64) (*orderbook.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", orderbook.ErrOrderNotFound, id)
	}
	return o.Clone(), nil
}

func (m *Memory) Delete(id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.orders, id)
	return nil
}

func (m *Memory) Resting() ([]*orderbook.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*orderbook.Order, 0, len(m.orders))
	for _, o := range m.orders {
		if !o.Status.Terminal() {
			out = append(out, o.Clone())
		}
	}
	// asks first, then bids, each side best-first to mirror the pebble scan
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Side != b.Side {
			return a.Side == orderbook.Sell
		}
		if !a.Price.Equal(b.Price) {
			if a.Side == orderbook.Sell {
				return a.Price.LessThan(b.Price)
			}
			return a.Price.GreaterThan(b.Price)
		}
		return a.Seq < b.Seq
	})
	return out, nil
}

func (m *Memory) MaxID() (uint64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.maxID, nil
}

func (m *Memory) Close() error { return nil }
