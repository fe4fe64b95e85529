package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side 表示订单方向。
type Side string

const (
	SideBuy        Side = "buy"
	SideSell       Side = "sell"
	SideSellShort  Side = "sell_short"
	SideBuyToCover Side = "buy_to_cover"
)

// IsSell 判断该方向是否属于卖出类，税费仅对卖出类成交收取。
func (s Side) IsSell() bool {
	return s == SideSell || s == SideSellShort
}

// Type 表示订单类型。
type Type string

const (
	TypeMarket      Type = "market"
	TypeLimit       Type = "limit"
	TypeAlgorithmic Type = "algorithmic"
)

// Algorithm 表示算法订单采用的执行算法。
type Algorithm string

const (
	AlgoTWAP      Algorithm = "twap"
	AlgoVWAP      Algorithm = "vwap"
	AlgoShortfall Algorithm = "implementation_shortfall"
	AlgoPOV       Algorithm = "pov"
	AlgoIceberg   Algorithm = "iceberg"
	AlgoSOR       Algorithm = "sor"
)

// ExecutionParameters 为算法提供的只读调优参数。
type ExecutionParameters struct {
	// ParticipationRate 为市场成交量参与率，单位为百分比。
	ParticipationRate decimal.Decimal
	// Urgency 位于 [0,1]，1 表示最激进。
	Urgency float64
	// MinOrderSize 与 MaxOrderSize 约束单笔切片的可见数量。
	MinOrderSize decimal.Decimal
	MaxOrderSize decimal.Decimal
	// HorizonMinutes 为算法的时间预算。
	HorizonMinutes int
	// TWAPSlices 为 TWAP 的目标切片数，零值时使用默认值 20。
	TWAPSlices int
}

// DefaultTWAPSlices 为 TWAP 切片数缺省值。
const DefaultTWAPSlices = 20

// SliceCount 返回 TWAP 的有效切片数。
func (p ExecutionParameters) SliceCount() int {
	if p.TWAPSlices > 0 {
		return p.TWAPSlices
	}
	return DefaultTWAPSlices
}

// Horizon 返回时间预算对应的 Duration。
func (p ExecutionParameters) Horizon() time.Duration {
	return time.Duration(p.HorizonMinutes) * time.Minute
}

// Order 为不可变的父订单意图，注册后不再修改。
type Order struct {
	ID          string
	PortfolioID string
	UserID      string
	Symbol      string
	Side        Side
	Quantity    decimal.Decimal
	LimitPrice  decimal.Decimal // 仅限价单有效
	Type        Type
	Algorithm   Algorithm
	Params      ExecutionParameters
	CreatedAt   time.Time
}
