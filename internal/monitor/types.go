package monitor

import (
	"time"

	"exec-engine/internal/engine"
	"exec-engine/internal/execution"
)

// EventType 标识监控事件类别。
type EventType string

const (
	EventTradeExecuted  EventType = "trade_executed"
	EventRetryScheduled EventType = "retry_scheduled"
	EventDeadLetter     EventType = "dead_letter"
	EventError          EventType = "error"
)

// Event 为写入事件日志的通用载体。
type Event struct {
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// StoredEvent 为从事件日志读出的记录。
type StoredEvent struct {
	ID        int64     `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Payload   string    `json:"payload"`
}

// TradePayload 记录一笔成交事件。
type TradePayload struct {
	OrderID string          `json:"order_id"`
	Trade   execution.Trade `json:"trade"`
}

// RetryPayload 记录一次重试安排。
type RetryPayload struct {
	OrderID string `json:"order_id"`
	Attempt int    `json:"attempt"`
	DelayMS int64  `json:"delay_ms"`
	Cause   string `json:"cause"`
}

// DeadLetterPayload 记录一条死信。
type DeadLetterPayload struct {
	Letter engine.DeadLetter `json:"letter"`
}

// ErrorPayload 记录一般性错误。
type ErrorPayload struct {
	Message string                 `json:"message"`
	Error   string                 `json:"error"`
	Fields  map[string]interface{} `json:"fields,omitempty"`
}
