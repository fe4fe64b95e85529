package event

import (
	"context"
	"testing"

	"exec-engine/internal/execution"
)

func TestChannelEmitter_DeliversInOrder(t *testing.T) {
	e := NewChannelEmitter(4, nil)

	e.Publish(context.Background(), "o-1", execution.Trade{ID: "t-1"})
	e.Publish(context.Background(), "o-1", execution.Trade{ID: "t-2"})

	first := <-e.Events()
	second := <-e.Events()
	if first.Trade.ID != "t-1" || second.Trade.ID != "t-2" {
		t.Fatalf("events out of order: %s, %s", first.Trade.ID, second.Trade.ID)
	}
	if first.OrderID != "o-1" {
		t.Fatalf("order id = %s, want o-1", first.OrderID)
	}
}

func TestChannelEmitter_DropsWhenFull(t *testing.T) {
	e := NewChannelEmitter(1, nil)

	e.Publish(context.Background(), "o-1", execution.Trade{ID: "t-1"})
	// 通道已满: 发布不得阻塞执行步骤
	e.Publish(context.Background(), "o-1", execution.Trade{ID: "t-2"})

	got := <-e.Events()
	if got.Trade.ID != "t-1" {
		t.Fatalf("kept event = %s, want t-1", got.Trade.ID)
	}
	select {
	case extra := <-e.Events():
		t.Fatalf("overflow event was not dropped: %s", extra.Trade.ID)
	default:
	}
}

type countingEmitter struct {
	calls int
}

func (c *countingEmitter) Publish(context.Context, string, execution.Trade) {
	c.calls++
}

func TestMulti_FansOutToAll(t *testing.T) {
	a := &countingEmitter{}
	b := &countingEmitter{}

	Multi{a, b}.Publish(context.Background(), "o-1", execution.Trade{ID: "t-1"})

	if a.calls != 1 || b.calls != 1 {
		t.Fatalf("fan-out calls = %d/%d, want 1/1", a.calls, b.calls)
	}
}
