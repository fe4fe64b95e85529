package execution

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"exec-engine/internal/order"
)

// State 为单个活跃订单的可变执行状态，订单活跃期间由引擎独占。
// 不变量: Remaining + Executed == Quantity 且 Remaining >= 0。
// 共享字段由切片执行器写入；算法私有字段(TWAP间隔、冰山可见量等)由对应策略维护。
type State struct {
	OrderID  string          `json:"order_id"`
	Quantity decimal.Decimal `json:"quantity"`

	Remaining  decimal.Decimal `json:"remaining"`
	Executed   decimal.Decimal `json:"executed"`
	Notional   decimal.Decimal `json:"notional"`
	TradeCount int             `json:"trade_count"`

	StartedAt   time.Time `json:"started_at"`
	LastTradeAt time.Time `json:"last_trade_at"`
	LastSliceAt time.Time `json:"last_slice_at"`

	// TWAP 私有字段
	TWAPInterval    time.Duration `json:"twap_interval"`
	TWAPSliceTarget int           `json:"twap_slice_target"`

	// VWAP 运行均价及其成交量累计
	VWAP       decimal.Decimal `json:"vwap"`
	VWAPVolume decimal.Decimal `json:"vwap_volume"`

	// ArrivalPrice 在注册时捕获一次，供实施差额的延迟成本核算使用。
	ArrivalPrice decimal.Decimal `json:"arrival_price"`

	// IcebergClip 为冰山算法当前可见的剩余数量。
	IcebergClip decimal.Decimal `json:"iceberg_clip"`
}

// NewState 为订单创建初始执行状态并捕获到达价。
func NewState(o *order.Order, arrivalPrice decimal.Decimal, now time.Time) *State {
	st := &State{
		OrderID:      o.ID,
		Quantity:     o.Quantity,
		Remaining:    o.Quantity,
		Executed:     decimal.Zero,
		Notional:     decimal.Zero,
		StartedAt:    now,
		ArrivalPrice: arrivalPrice,
	}

	if o.Algorithm == order.AlgoTWAP {
		slices := o.Params.SliceCount()
		st.TWAPSliceTarget = slices
		if horizon := o.Params.Horizon(); horizon > 0 {
			st.TWAPInterval = horizon / time.Duration(slices)
		}
	}

	return st
}

// ApplyFill 将一笔成交应用到执行状态，维护全部累计量与运行 VWAP。
func (s *State) ApplyFill(size, price decimal.Decimal, now time.Time) error {
	if !size.IsPositive() {
		return fmt.Errorf("成交数量必须为正: %s", size)
	}
	if size.GreaterThan(s.Remaining) {
		return fmt.Errorf("成交数量 %s 超出剩余数量 %s", size, s.Remaining)
	}

	notional := size.Mul(price)

	newVolume := s.VWAPVolume.Add(size)
	s.VWAP = s.VWAP.Mul(s.VWAPVolume).Add(notional).Div(newVolume)
	s.VWAPVolume = newVolume

	s.Executed = s.Executed.Add(size)
	s.Remaining = s.Remaining.Sub(size)
	s.Notional = s.Notional.Add(notional)
	s.TradeCount++
	s.LastTradeAt = now
	s.LastSliceAt = now

	return nil
}

// Completed 判断订单是否已全部成交。
func (s *State) Completed() bool {
	return s.Remaining.IsZero()
}

// Snapshot 返回状态的值拷贝，供监控读取。
func (s *State) Snapshot() State {
	return *s
}
