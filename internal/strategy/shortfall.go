package strategy

import (
	"github.com/shopspring/decimal"

	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// Shortfall 实施差额算法：基础切片为 ceil(remaining/10)，按紧迫度缩放，
// 下限为最小切片数量。到达价已在注册时记录于执行状态，供延迟成本核算。
type Shortfall struct{}

func (Shortfall) Name() order.Algorithm { return order.AlgoShortfall }

func (Shortfall) Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	base := st.Remaining.Div(ten).Ceil()
	size := base.Mul(decimal.NewFromFloat(o.Params.Urgency)).Ceil()

	if o.Params.MinOrderSize.IsPositive() && size.LessThan(o.Params.MinOrderSize) {
		size = o.Params.MinOrderSize
	}

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
