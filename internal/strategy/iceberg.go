package strategy

import (
	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// Iceberg 只在市场上暴露一个可见切片：可见量耗尽时补充为
// min(maxOrderSize, remaining)，每轮执行 min(可见量, minOrderSize)。
// 可见量的补充发生在决策阶段，消耗由切片执行器在成交后扣减。
type Iceberg struct{}

func (Iceberg) Name() order.Algorithm { return order.AlgoIceberg }

func (Iceberg) Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	if !st.IcebergClip.IsPositive() {
		clip := o.Params.MaxOrderSize
		if clip.IsZero() || clip.GreaterThan(st.Remaining) {
			clip = st.Remaining
		}
		st.IcebergClip = clip
	}

	size := st.IcebergClip
	if o.Params.MinOrderSize.IsPositive() && o.Params.MinOrderSize.LessThan(size) {
		size = o.Params.MinOrderSize
	}

	size = clampToRemaining(size, st)
	if !size.IsPositive() {
		return execution.Slice{}, false
	}

	return execution.Slice{
		Size:  size,
		Price: snap.Price,
		Type:  execution.TradeTypeIceberg,
	}, true
}
