package strategy

import (
	"github.com/shopspring/decimal"

	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// TWAP 把时间预算均分为固定数量的切片，按间隔匀速执行。
// 切片数量取 ceil(remaining/sliceCount)，向上取整保证预算内完全出清。
type TWAP struct{}

func (TWAP) Name() order.Algorithm { return order.AlgoTWAP }

func (TWAP) Decide(_ *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	anchor := st.LastSliceAt
	if anchor.IsZero() {
		anchor = st.StartedAt
	}
	if st.TWAPInterval > 0 && snap.At.Sub(anchor) < st.TWAPInterval {
		return execution.Slice{}, false
	}

	slices := st.TWAPSliceTarget
	if slices <= 0 {
		slices = order.DefaultTWAPSlices
	}

	size := st.Remaining.Div(decimal.NewFromInt(int64(slices))).Ceil()
	size = clampToRemaining(size, st)
	if !size.IsPositive() {
		return execution.Slice{}, false
	}

	return execution.Slice{
		Size:  size,
		Price: snap.Price,
		Type:  execution.TradeTypeAlgorithmic,
	}, true
}
