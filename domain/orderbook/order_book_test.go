package orderbook

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestInsertAndPeek(t *testing.T) {
	b := NewBook()
	if err := b.Insert(NewOrder(1, "alice", Buy, dec("100"), dec("5"))); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := b.Insert(NewOrder(2, "bob", Sell, dec("101"), dec("3"))); err != nil {
		t.Fatalf("insert: %v", err)
	}

	if got := b.BestBid(); got == nil || got.ID != 1 {
		t.Errorf("best bid = %v, want order 1", got)
	}
	if got := b.BestAsk(); got == nil || got.ID != 2 {
		t.Errorf("best ask = %v, want order 2", got)
	}
	if b.Crossed() {
		t.Error("bid 100 vs ask 101 should not cross")
	}
}

func TestInsertValidation(t *testing.T) {
	cases := []struct {
		name  string
		price string
		qty   string
	}{
		{"zero price", "0", "5"},
		{"negative price", "-1", "5"},
		{"zero qty", "100", "0"},
		{"negative qty", "100", "-2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := NewBook()
			err := b.Insert(NewOrder(1, "alice", Buy, dec(tc.price), dec(tc.qty)))
			if !errors.Is(err, ErrInvalidOrder) {
				t.Errorf("err = %v, want ErrInvalidOrder", err)
			}
			if b.Len(Buy) != 0 {
				t.Error("rejected order must not rest")
			}
		})
	}
}

func TestInsertDuplicateID(t *testing.T) {
	b := NewBook()
	if err := b.Insert(NewOrder(7, "alice", Buy, dec("100"), dec("1"))); err != nil {
		t.Fatal(err)
	}
	if err := b.Insert(NewOrder(7, "bob", Buy, dec("99"), dec("1"))); !errors.Is(err, ErrInvalidOrder) {
		t.Errorf("duplicate id err = %v, want ErrInvalidOrder", err)
	}
}

func TestPricePriority(t *testing.T) {
	b := NewBook()
	_ = b.Insert(NewOrder(1, "a", Buy, dec("99"), dec("1")))
	_ = b.Insert(NewOrder(2, "b", Buy, dec("101"), dec("1")))
	_ = b.Insert(NewOrder(3, "c", Buy, dec("100"), dec("1")))

	if got := b.BestBid(); got.ID != 2 {
		t.Errorf("best bid id = %d, want 2 (highest price)", got.ID)
	}

	_ = b.Insert(NewOrder(4, "d", Sell, dec("105"), dec("1")))
	_ = b.Insert(NewOrder(5, "e", Sell, dec("103"), dec("1")))
	if got := b.BestAsk(); got.ID != 5 {
		t.Errorf("best ask id = %d, want 5 (lowest price)", got.ID)
	}
}

func TestTimePriorityWithinLevel(t *testing.T) {
	b := NewBook()
	_ = b.Insert(NewOrder(1, "a", Buy, dec("100"), dec("1")))
	_ = b.Insert(NewOrder(2, "b", Buy, dec("100"), dec("1")))
	_ = b.Insert(NewOrder(3, "c", Buy, dec("100"), dec("1")))

	if got := b.BestBid(); got.ID != 1 {
		t.Fatalf("best bid id = %d, want 1 (earliest arrival)", got.ID)
	}
	if _, err := b.Remove(1); err != nil {
		t.Fatal(err)
	}
	if got := b.BestBid(); got.ID != 2 {
		t.Errorf("after removing head, best bid id = %d, want 2", got.ID)
	}
}

func TestRemove(t *testing.T) {
	b := NewBook()
	_ = b.Insert(NewOrder(1, "a", Buy, dec("100"), dec("1")))
	_ = b.Insert(NewOrder(2, "b", Buy, dec("100"), dec("1")))

	o, err := b.Remove(2)
	if err != nil {
		t.Fatalf("remove: %v", err)
	}
	if o.ID != 2 {
		t.Errorf("removed id = %d, want 2", o.ID)
	}
	if b.Len(Buy) != 1 {
		t.Errorf("len = %d, want 1", b.Len(Buy))
	}

	// level must disappear when the last order leaves
	if _, err := b.Remove(1); err != nil {
		t.Fatal(err)
	}
	if b.BestBid() != nil {
		t.Error("empty side should have no best bid")
	}

	if _, err := b.Remove(99); !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("remove unknown: err = %v, want ErrOrderNotFound", err)
	}
}

func TestWalkOrdering(t *testing.T) {
	b := NewBook()
	_ = b.Insert(NewOrder(1, "a", Buy, dec("100"), dec("1")))
	_ = b.Insert(NewOrder(2, "b", Buy, dec("101"), dec("1")))
	_ = b.Insert(NewOrder(3, "c", Buy, dec("101"), dec("1")))
	_ = b.Insert(NewOrder(4, "d", Buy, dec("99"), dec("1")))

	var ids []uint64
	b.WalkBids(func(o *Order) { ids = append(ids, o.ID) })

	want := []uint64{2, 3, 1, 4}
	if len(ids) != len(want) {
		t.Fatalf("walked %d orders, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("walk[%d] = %d, want %d", i, ids[i], want[i])
		}
	}
}

func TestFilledConservation(t *testing.T) {
	o := NewOrder(1, "a", Buy, dec("100"), dec("10"))
	o.Remaining = dec("3.5")
	if !o.Filled().Equal(dec("6.5")) {
		t.Errorf("filled = %s, want 6.5", o.Filled())
	}
	if !o.Filled().Add(o.Remaining).Equal(o.Original) {
		t.Error("filled + remaining must equal original")
	}
}
