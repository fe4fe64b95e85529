package strategy

import (
	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// VWAP 按当前市场成交量与参与率折算切片数量，成交量不足时跳过本轮。
type VWAP struct{}

func (VWAP) Name() order.Algorithm { return order.AlgoVWAP }

func (VWAP) Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	size := participationSize(snap.Volume, o.Params.ParticipationRate)
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
