// Package strategy 实现各执行算法的切片决策。
//
// 每个策略是 (订单, 执行状态, 行情快照) 到可选切片的决策函数：
// 共享的累计字段只读，算法私有的步调字段(如冰山可见量的补充)允许策略更新，
// 调度器保证同一订单的步骤串行，不存在并发写。
// 所有策略都会把切片数量裁剪到剩余数量以内，剩余为零时不产生切片。
package strategy

import (
	"github.com/shopspring/decimal"

	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// Strategy 为执行算法的决策抽象，新增算法时实现本接口并注册到 Set。
type Strategy interface {
	Name() order.Algorithm
	Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool)
}

// Set 按算法枚举索引策略。
type Set map[order.Algorithm]Strategy

// NewSet 构建全部内置算法策略。
func NewSet(venues []Venue) Set {
	set := Set{}
	for _, s := range []Strategy{
		TWAP{},
		VWAP{},
		Shortfall{},
		POV{},
		Iceberg{},
		NewSOR(venues),
	} {
		set[s.Name()] = s
	}
	return set
}

// Lookup 返回算法对应的策略。
func (s Set) Lookup(algo order.Algorithm) (Strategy, bool) {
	st, ok := s[algo]
	return st, ok
}

var (
	ten      = decimal.NewFromInt(10)
	hundred  = decimal.NewFromInt(100)
	tenThous = decimal.NewFromInt(10000)
)

// clampToRemaining 把切片数量裁剪到剩余数量。
func clampToRemaining(size decimal.Decimal, st *execution.State) decimal.Decimal {
	if size.GreaterThan(st.Remaining) {
		return st.Remaining
	}
	return size
}

// participationSize 计算按参与率折算的目标数量: floor(volume * rate / 100)。
func participationSize(volume, rate decimal.Decimal) decimal.Decimal {
	return volume.Mul(rate).Div(hundred).Floor()
}
