package orderbook

import (
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
)

func TestTreeUpsertFindDelete(t *testing.T) {
	tr := NewRBTree()
	p := dec("100.25")

	lvl := tr.UpsertLevel(p)
	if lvl == nil || !lvl.Price.Equal(p) {
		t.Fatal("upsert did not create level")
	}
	if tr.UpsertLevel(p) != lvl {
		t.Error("upsert on existing price must return the same level")
	}
	if tr.FindLevel(p) != lvl {
		t.Error("find did not return the level")
	}
	if !tr.DeleteLevel(p) {
		t.Error("delete returned false for existing level")
	}
	if tr.FindLevel(p) != nil {
		t.Error("level still present after delete")
	}
	if tr.DeleteLevel(p) {
		t.Error("delete on absent level must return false")
	}
}

func TestTreeOrderedWalks(t *testing.T) {
	tr := NewRBTree()
	prices := []string{"101.5", "99", "100", "102", "98.75", "100.5"}
	for _, p := range prices {
		tr.UpsertLevel(dec(p))
	}

	var asc []decimal.Decimal
	tr.ForEachAscending(func(l *PriceLevel) bool {
		asc = append(asc, l.Price)
		return true
	})
	for i := 1; i < len(asc); i++ {
		if !asc[i-1].LessThan(asc[i]) {
			t.Fatalf("ascending walk out of order at %d: %s >= %s", i, asc[i-1], asc[i])
		}
	}

	var desc []decimal.Decimal
	tr.ForEachDescending(func(l *PriceLevel) bool {
		desc = append(desc, l.Price)
		return true
	})
	for i := 1; i < len(desc); i++ {
		if !desc[i-1].GreaterThan(desc[i]) {
			t.Fatalf("descending walk out of order at %d", i)
		}
	}

	if !tr.MinLevel().Price.Equal(dec("98.75")) {
		t.Errorf("min = %s, want 98.75", tr.MinLevel().Price)
	}
	if !tr.MaxLevel().Price.Equal(dec("102")) {
		t.Errorf("max = %s, want 102", tr.MaxLevel().Price)
	}
}

func TestTreeRandomChurn(t *testing.T) {
	tr := NewRBTree()
	rng := rand.New(rand.NewSource(42))
	live := map[int64]bool{}

	for i := 0; i < 5000; i++ {
		k := int64(rng.Intn(500))
		p := decimal.NewFromInt(k)
		if live[k] && rng.Intn(2) == 0 {
			if !tr.DeleteLevel(p) {
				t.Fatalf("delete of live key %d failed", k)
			}
			delete(live, k)
		} else {
			tr.UpsertLevel(p)
			live[k] = true
		}
	}

	if tr.Size() != len(live) {
		t.Fatalf("size = %d, want %d", tr.Size(), len(live))
	}
	prev := decimal.NewFromInt(-1)
	count := 0
	tr.ForEachAscending(func(l *PriceLevel) bool {
		if !prev.LessThan(l.Price) {
			t.Fatalf("walk out of order after churn: %s then %s", prev, l.Price)
		}
		prev = l.Price
		count++
		return true
	})
	if count != len(live) {
		t.Fatalf("walk visited %d levels, want %d", count, len(live))
	}
}
