// Package event 对外发布成交事件，供仓位管理、台账等下游消费。
// 发布是即发即弃的：实现不得阻塞执行步骤，发布失败由消费方自行处理。
package event

import (
	"context"

	"go.uber.org/zap"

	"exec-engine/internal/execution"
)

// Emitter 为成交事件的发布边界。
type Emitter interface {
	Publish(ctx context.Context, orderID string, trade execution.Trade)
}

// TradeEvent 为通道发布携带的事件载体。
type TradeEvent struct {
	OrderID string
	Trade   execution.Trade
}

// LogEmitter 把成交事件写入日志。
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter 创建日志发布器。
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmitter{logger: logger}
}

func (e *LogEmitter) Publish(_ context.Context, orderID string, trade execution.Trade) {
	e.logger.Info("成交事件",
		zap.String("order_id", orderID),
		zap.String("trade_id", trade.ID),
		zap.String("symbol", trade.Symbol),
		zap.String("side", string(trade.Side)),
		zap.String("quantity", trade.Quantity.String()),
		zap.String("price", trade.Price.String()),
		zap.String("venue", trade.Venue),
	)
}

// ChannelEmitter 把事件投递到有界通道，满时丢弃并告警而不是阻塞。
type ChannelEmitter struct {
	ch     chan TradeEvent
	logger *zap.Logger
}

// NewChannelEmitter 创建通道发布器。
func NewChannelEmitter(size int, logger *zap.Logger) *ChannelEmitter {
	if size <= 0 {
		size = 256
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChannelEmitter{
		ch:     make(chan TradeEvent, size),
		logger: logger,
	}
}

// Events 返回事件消费通道。
func (e *ChannelEmitter) Events() <-chan TradeEvent {
	return e.ch
}

func (e *ChannelEmitter) Publish(_ context.Context, orderID string, trade execution.Trade) {
	select {
	case e.ch <- TradeEvent{OrderID: orderID, Trade: trade}:
	default:
		e.logger.Warn("事件通道已满，丢弃成交事件",
			zap.String("order_id", orderID),
			zap.String("trade_id", trade.ID),
		)
	}
}

// Multi 将事件扇出到多个发布器。
type Multi []Emitter

func (m Multi) Publish(ctx context.Context, orderID string, trade execution.Trade) {
	for _, emitter := range m {
		emitter.Publish(ctx, orderID, trade)
	}
}
