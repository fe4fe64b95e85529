package strategy

import (
	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// Market 规则：以当前市价一次性成交全部剩余数量。
type Market struct{}

func (Market) Name() order.Algorithm { return "market" }

func (Market) Decide(_ *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}
	return execution.Slice{
		Size:  st.Remaining,
		Price: snap.Price,
		Type:  execution.TradeTypeRegular,
	}, true
}

// Limit 规则：买入类方向在市价不高于限价时成交，卖出类方向在市价不低于限价时成交；
// 成交价为限价而非市价。
type Limit struct{}

func (Limit) Name() order.Algorithm { return "limit" }

func (Limit) Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	executable := false
	if o.Side.IsSell() {
		executable = snap.Price.GreaterThanOrEqual(o.LimitPrice)
	} else {
		executable = snap.Price.LessThanOrEqual(o.LimitPrice)
	}
	if !executable {
		return execution.Slice{}, false
	}

	return execution.Slice{
		Size:  st.Remaining,
		Price: o.LimitPrice,
		Type:  execution.TradeTypeRegular,
	}, true
}
