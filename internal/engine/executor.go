package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"exec-engine/internal/cost"
	"exec-engine/internal/event"
	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
	"exec-engine/internal/strategy"
)

const settlementDays = 2

// SliceExecutor 把切片决策转化为成交记录：计算成本、更新执行状态并发布事件。
type SliceExecutor struct {
	costs   *cost.Model
	emitter event.Emitter
	logger  *zap.Logger
}

// NewSliceExecutor 创建切片执行器。
func NewSliceExecutor(costs *cost.Model, emitter event.Emitter, logger *zap.Logger) *SliceExecutor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SliceExecutor{
		costs:   costs,
		emitter: emitter,
		logger:  logger,
	}
}

// Execute 应用一笔切片。数量非法视为策略缺陷，按致命错误返回。
func (x *SliceExecutor) Execute(ctx context.Context, entry *Entry, slice execution.Slice, snap market.Snapshot) (execution.Trade, error) {
	start := time.Now()

	if !slice.Size.IsPositive() {
		return execution.Trade{}, fmt.Errorf("切片数量非法: %s", slice.Size)
	}
	if slice.Size.GreaterThan(entry.State.Remaining) {
		return execution.Trade{}, fmt.Errorf("切片数量 %s 超出剩余 %s", slice.Size, entry.State.Remaining)
	}

	o := entry.Order
	now := time.Now().UTC()
	notional := slice.Size.Mul(slice.Price)

	venue := slice.Venue
	if venue == "" {
		venue = strategy.DefaultVenueName
	}

	trade := execution.Trade{
		ID:             uuid.NewString(),
		OrderID:        o.ID,
		Symbol:         o.Symbol,
		Side:           o.Side,
		Quantity:       slice.Size,
		Price:          slice.Price,
		Notional:       notional,
		ExecutedAt:     now,
		SettlementDate: now.AddDate(0, 0, settlementDays),
		Type:           slice.Type,
		Venue:          venue,
		Market:         snap,
		Costs:          x.costs.Assess(o.Side, slice.Size, notional),
		Slippage:       slippage(o, entry.State.ArrivalPrice, slice.Price),
		Status:         execution.TradeStatusPending,
	}

	if err := entry.State.ApplyFill(slice.Size, slice.Price, now); err != nil {
		return execution.Trade{}, fmt.Errorf("应用成交失败: %w", err)
	}

	if slice.Type == execution.TradeTypeIceberg {
		entry.State.IcebergClip = entry.State.IcebergClip.Sub(slice.Size)
	}

	trade.LatencyMicros = time.Since(start).Microseconds()
	trade.Status = execution.TradeStatusExecuted

	x.emitter.Publish(ctx, o.ID, trade)

	x.logger.Debug("切片已成交",
		zap.String("order_id", o.ID),
		zap.String("trade_id", trade.ID),
		zap.String("quantity", trade.Quantity.String()),
		zap.String("price", trade.Price.String()),
		zap.String("remaining", entry.State.Remaining.String()),
	)

	return trade, nil
}

// slippage 相对到达价衡量执行质量：正值表示不利方向。
func slippage(o *order.Order, arrival, price decimal.Decimal) decimal.Decimal {
	if arrival.IsZero() {
		return decimal.Zero
	}
	if o.Side.IsSell() {
		return arrival.Sub(price).Round(4)
	}
	return price.Sub(arrival).Round(4)
}
