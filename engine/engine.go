// Package engine hosts the matching authority: one Engine per instrument,
// one goroutine owning the book. Submits and cancels queue on an inbox and
// execute one at a time, which makes allocate-id, persist, insert and
// match-to-fixed-point a single linearizable unit without fine-grained
// locking. Queries read an immutable snapshot and never enter the loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"

	"matchbook/domain/orderbook"
	"matchbook/infra/journal"
	"matchbook/infra/sequence"
	"matchbook/infra/store"
)

// ErrStopped is returned for requests against an engine that is not running.
var ErrStopped = errors.New("engine stopped")

// SelfTradePolicy decides what happens when an incoming order would execute
// against the same owner's resting order.
type SelfTradePolicy int

const (
	// SelfTradeAllow lets the trade happen (reference behavior).
	SelfTradeAllow SelfTradePolicy = iota
	// SelfTradeReject cancels the incoming order's remaining quantity the
	// moment its best counterparty is its own owner. The resting order is
	// untouched and the book stays uncrossed.
	SelfTradeReject
)

type Config struct {
	Symbol        string
	Policy        SelfTradePolicy
	PublishBuffer int // staged-trade queue size, default 1024
}

type Engine struct {
	symbol string
	policy SelfTradePolicy

	book    *orderbook.Book
	store   store.Store
	seq     *sequence.Sequencer
	sink    TradeSink
	journal *journal.Journal // optional
	log     *slog.Logger

	inbox chan *request
	pub   chan orderbook.Trade
	snap  atomic.Pointer[BookSnapshot]

	running atomic.Bool
	quit    chan struct{}
	wgRun   sync.WaitGroup
	wgPub   sync.WaitGroup
	dropped atomic.Uint64
}

type reqKind int

const (
	reqSubmit reqKind = iota
	reqCancel
)

type request struct {
	kind  reqKind
	owner string
	side  orderbook.Side
	price decimal.Decimal
	qty   decimal.Decimal
	id    uint64
	reply chan response
}

type response struct {
	order *orderbook.Order
	err   error
}

// New wires an engine. The journal may be nil.
func New(cfg Config, bk *orderbook.Book, st store.Store, seq *sequence.Sequencer,
	sink TradeSink, jrnl *journal.Journal, log *slog.Logger) *Engine {

	buf := cfg.PublishBuffer
	if buf <= 0 {
		buf = 1024
	}
	e := &Engine{
		symbol:  cfg.Symbol,
		policy:  cfg.Policy,
		book:    bk,
		store:   st,
		seq:     seq,
		sink:    sink,
		journal: jrnl,
		log:     log.With("instrument", cfg.Symbol),
		inbox:   make(chan *request),
		pub:     make(chan orderbook.Trade, buf),
		quit:    make(chan struct{}),
	}
	e.snap.Store(&BookSnapshot{})
	return e
}

// Restore rebuilds the book from the store's resting-order indices and
// raises the sequencer above every persisted id. Must run before Start.
func (e *Engine) Restore() error {
	resting, err := e.store.Resting()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	for _, o := range resting {
		if err := e.book.Insert(o); err != nil {
			return fmt.Errorf("restore order %d: %w", o.ID, err)
		}
	}
	maxID, err := e.store.MaxID()
	if err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	e.seq.Floor(maxID)
	e.snap.Store(e.buildSnapshot())
	if len(resting) > 0 {
		e.log.Info("book restored", "resting", len(resting), "max_id", maxID)
	}
	return nil
}

func (e *Engine) Start() error {
	if !e.running.CompareAndSwap(false, true) {
		return errors.New("engine already running")
	}
	e.wgRun.Add(1)
	go e.run()
	e.wgPub.Add(1)
	go e.publisher()
	e.log.Info("engine started", "policy", e.policy)
	return nil
}

// Stop drains nothing: in-flight requests fail with ErrStopped, staged
// trades are flushed to the journal and sink before Stop returns.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	close(e.quit)
	e.wgRun.Wait()
	close(e.pub)
	e.wgPub.Wait()
	e.log.Info("engine stopped")
}

// Running reports liveness for health checks.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// Symbol returns the instrument this authority matches.
func (e *Engine) Symbol() string {
	return e.symbol
}

// Submit validates, admits and matches a new order, returning its state
// after any immediate matching. Under the reject policy the returned error
// may be ErrSelfTrade, with the order reflecting the cancelled remainder.
func (e *Engine) Submit(ctx context.Context, owner string, side orderbook.Side,
	price, qty decimal.Decimal) (*orderbook.Order, error) {

	if side != orderbook.Buy && side != orderbook.Sell {
		return nil, fmt.Errorf("%w: bad side", orderbook.ErrInvalidOrder)
	}
	if price.Sign() <= 0 {
		return nil, fmt.Errorf("%w: price must be positive", orderbook.ErrInvalidOrder)
	}
	if qty.Sign() <= 0 {
		return nil, fmt.Errorf("%w: quantity must be positive", orderbook.ErrInvalidOrder)
	}
	return e.send(ctx, &request{
		kind:  reqSubmit,
		owner: owner,
		side:  side,
		price: price,
		qty:   qty,
		reply: make(chan response, 1),
	})
}

// Cancel moves a live order to Cancelled and removes it from the book.
// It never triggers a matching pass: shrinking the book cannot cross it.
func (e *Engine) Cancel(ctx context.Context, id uint64) (*orderbook.Order, error) {
	return e.send(ctx, &request{
		kind:  reqCancel,
		id:    id,
		reply: make(chan response, 1),
	})
}

// ListBook returns the resting orders both sides, best-first, from the
// snapshot published at the end of the last completed matching run.
func (e *Engine) ListBook() *BookSnapshot {
	return e.snap.Load()
}

// GetOrder looks a record up in the store, including terminal ones.
func (e *Engine) GetOrder(id uint64) (*orderbook.Order, error) {
	return e.store.Get(id)
}

func (e *Engine) send(ctx context.Context, req *request) (*orderbook.Order, error) {
	if !e.running.Load() {
		return nil, ErrStopped
	}
	select {
	case e.inbox <- req:
	case <-e.quit:
		return nil, ErrStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-req.reply:
		return resp.order, resp.err
	case <-e.quit:
		return nil, ErrStopped
	}
}

func (e *Engine) run() {
	defer e.wgRun.Done()
	for {
		select {
		case <-e.quit:
			return
		case req := <-e.inbox:
			var resp response
			switch req.kind {
			case reqSubmit:
				resp.order, resp.err = e.handleSubmit(req)
			case reqCancel:
				resp.order, resp.err = e.handleCancel(req.id)
			}
			req.reply <- resp
		}
	}
}

func (e *Engine) handleSubmit(req *request) (*orderbook.Order, error) {
	id := e.seq.Next()
	o := orderbook.NewOrder(id, req.owner, req.side, req.price, req.qty)

	if err := e.store.Put(o); err != nil {
		return nil, err
	}
	if err := e.book.Insert(o); err != nil {
		// undo the admission record; validation ran before the actor
		_ = e.store.Delete(id)
		return nil, err
	}

	trades, selfCross, err := e.match()
	var submitErr error
	switch {
	case err != nil:
		// committed iterations stand, the failed one rolled back
		submitErr = err
	case selfCross:
		submitErr = e.cancelRemainder(o)
	}

	e.snap.Store(e.buildSnapshot())
	e.stage(trades)
	return o.Clone(), submitErr
}

func (e *Engine) handleCancel(id uint64) (*orderbook.Order, error) {
	o := e.book.Find(id)
	if o == nil {
		// distinguish unknown ids from already-terminal records
		rec, err := e.store.Get(id)
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("%w: order %d is %s", orderbook.ErrInvalidState, id, rec.Status)
	}

	c := o.Clone()
	c.Status = orderbook.Cancelled
	if err := e.store.Put(c); err != nil {
		return nil, err
	}
	o.Status = orderbook.Cancelled
	if _, err := e.book.Remove(id); err != nil {
		return nil, err
	}
	e.snap.Store(e.buildSnapshot())
	return c, nil
}

// cancelRemainder implements the reject policy: the taker's remaining
// quantity is pulled, whatever already traded stands.
func (e *Engine) cancelRemainder(o *orderbook.Order) error {
	c := o.Clone()
	c.Status = orderbook.Cancelled
	if err := e.store.Put(c); err != nil {
		return err
	}
	o.Status = orderbook.Cancelled
	if _, err := e.book.Remove(o.ID); err != nil {
		return err
	}
	return fmt.Errorf("%w: owner %s on both sides", orderbook.ErrSelfTrade, o.Owner)
}

func (e *Engine) stage(trades []orderbook.Trade) {
	for _, t := range trades {
		select {
		case e.pub <- t:
		default:
			e.dropped.Add(1)
			e.log.Warn("trade publish queue full, dropping", "seq", t.Seq)
		}
	}
}

func (e *Engine) publisher() {
	defer e.wgPub.Done()
	for t := range e.pub {
		if e.journal != nil {
			if err := e.journal.Append(t); err != nil {
				e.log.Error("journal append failed", "seq", t.Seq, "err", err)
			}
		}
		if err := e.sink.Publish(t); err != nil {
			e.log.Warn("trade publish failed", "seq", t.Seq, "err", err)
		}
	}
}
