package engine

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"exec-engine/internal/order"
)

func testOrder(id string, quantity string) *order.Order {
	return &order.Order{
		ID:       id,
		Symbol:   "AAPL",
		Side:     order.SideBuy,
		Quantity: decimal.RequireFromString(quantity),
		Type:     order.TypeMarket,
	}
}

func TestRegistry_RegisterAndDuplicate(t *testing.T) {
	r := NewRegistry()
	now := time.Now().UTC()

	entry, err := r.Register(testOrder("o-1", "100"), decimal.NewFromInt(50), now)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if !entry.State.Remaining.Equal(decimal.NewFromInt(100)) {
		t.Fatalf("remaining = %s, want 100", entry.State.Remaining)
	}

	if _, err := r.Register(testOrder("o-1", "200"), decimal.NewFromInt(50), now); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate register error = %v, want ErrAlreadyRegistered", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_RejectsEmptyID(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Register(testOrder("", "100"), decimal.NewFromInt(50), time.Now().UTC()); err == nil {
		t.Fatalf("expected error for empty order id")
	}
	if _, err := r.Register(nil, decimal.NewFromInt(50), time.Now().UTC()); err == nil {
		t.Fatalf("expected error for nil order")
	}
}

func TestRegistry_ReinstateKeepsPartialFills(t *testing.T) {
	r := NewRegistry()
	now := time.Now().UTC()

	entry, err := r.Register(testOrder("o-1", "100"), decimal.NewFromInt(50), now)
	if err != nil {
		t.Fatalf("Register returned error: %v", err)
	}
	if err := entry.State.ApplyFill(decimal.NewFromInt(40), decimal.NewFromInt(50), now); err != nil {
		t.Fatalf("ApplyFill returned error: %v", err)
	}

	r.Remove("o-1")
	if r.Len() != 0 {
		t.Fatalf("Len after remove = %d, want 0", r.Len())
	}

	if err := r.Reinstate(entry); err != nil {
		t.Fatalf("Reinstate returned error: %v", err)
	}

	got, ok := r.Get("o-1")
	if !ok {
		t.Fatalf("reinstated order not found")
	}
	if !got.State.Executed.Equal(decimal.NewFromInt(40)) {
		t.Fatalf("executed = %s, want 40 preserved across reinstate", got.State.Executed)
	}

	if err := r.Reinstate(entry); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("duplicate reinstate error = %v, want ErrAlreadyRegistered", err)
	}
}

func TestEntry_TryLockExcludesSecondStep(t *testing.T) {
	entry := &Entry{Order: testOrder("o-1", "100")}

	if !entry.TryLock() {
		t.Fatalf("first TryLock failed")
	}
	if entry.TryLock() {
		t.Fatalf("second TryLock succeeded while the step was running")
	}
	entry.Unlock()
	if !entry.TryLock() {
		t.Fatalf("TryLock failed after Unlock")
	}
	entry.Unlock()
}

func TestRegistry_ConcurrentDistinctOrders(t *testing.T) {
	r := NewRegistry()
	now := time.Now().UTC()
	ids := []string{"o-1", "o-2", "o-3", "o-4"}

	for _, id := range ids {
		if _, err := r.Register(testOrder(id, "1000"), decimal.NewFromInt(50), now); err != nil {
			t.Fatalf("Register(%s) returned error: %v", id, err)
		}
	}

	var wg sync.WaitGroup
	for _, id := range ids {
		for i := 0; i < 10; i++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				entry, ok := r.Get(id)
				if !ok {
					t.Errorf("order %s missing", id)
					return
				}
				if !entry.TryLock() {
					return
				}
				defer entry.Unlock()
				_ = entry.State.ApplyFill(decimal.NewFromInt(10), decimal.NewFromInt(50), time.Now().UTC())
			}(id)
		}
	}
	wg.Wait()

	for _, st := range r.States() {
		total := st.Executed.Add(st.Remaining)
		if !total.Equal(decimal.NewFromInt(1000)) {
			t.Fatalf("order %s executed+remaining = %s, want 1000", st.OrderID, total)
		}
	}
}
