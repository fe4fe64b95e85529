package strategy

import (
	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// POV 跟随市场成交量的固定参与率执行，目标量为零时不动作。
type POV struct{}

func (POV) Name() order.Algorithm { return order.AlgoPOV }

func (POV) Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	target := participationSize(snap.Volume, o.Params.ParticipationRate)
	target = clampToRemaining(target, st)
	if !target.IsPositive() {
		return execution.Slice{}, false
	}

	return execution.Slice{
		Size:  target,
		Price: snap.Price,
		Type:  execution.TradeTypeAlgorithmic,
	}, true
}
