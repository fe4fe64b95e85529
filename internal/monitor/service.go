package monitor

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"exec-engine/internal/engine"
	"exec-engine/internal/execution"
	"exec-engine/internal/store"
)

// Service 把引擎事件落入事件日志，并为读取接口提供查询。
// 写入失败只告警不中断：监控是旁路，不参与执行语义。
type Service struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewService 初始化监控服务，创建所需表结构。
func NewService(store *store.Store, logger *zap.Logger) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("monitor: store 不能为空")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := store.Migrate(eventSchema); err != nil {
		return nil, fmt.Errorf("monitor: %w", err)
	}

	return &Service{
		db:     store.DB(),
		logger: logger,
	}, nil
}

const eventSchema = `
CREATE TABLE IF NOT EXISTS engine_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	event_type TEXT NOT NULL,
	payload TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_engine_events_type ON engine_events(event_type);
`

// Record 写入单个事件。
func (s *Service) Record(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("monitor: 序列化事件失败: %w", err)
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO engine_events (event_type, payload, created_at) VALUES (?, ?, ?)`,
		string(event.Type), string(payload), event.Timestamp.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("monitor: 写入事件失败: %w", err)
	}

	return nil
}

// Publish 实现 event.Emitter，把成交事件写入日志。
func (s *Service) Publish(ctx context.Context, orderID string, trade execution.Trade) {
	if err := s.Record(ctx, Event{
		Type:      EventTradeExecuted,
		Timestamp: trade.ExecutedAt,
		Payload:   TradePayload{OrderID: orderID, Trade: trade},
	}); err != nil {
		s.logger.Warn("记录成交事件失败", zap.Error(err))
	}
}

// RetryScheduled 实现 engine.Reporter。
func (s *Service) RetryScheduled(orderID string, attempt int, delay time.Duration, cause error) {
	if err := s.Record(context.Background(), Event{
		Type: EventRetryScheduled,
		Payload: RetryPayload{
			OrderID: orderID,
			Attempt: attempt,
			DelayMS: delay.Milliseconds(),
			Cause:   cause.Error(),
		},
	}); err != nil {
		s.logger.Warn("记录重试事件失败", zap.Error(err))
	}
}

// DeadLettered 实现 engine.Reporter。
func (s *Service) DeadLettered(letter engine.DeadLetter) {
	if err := s.Record(context.Background(), Event{
		Type:      EventDeadLetter,
		Timestamp: letter.At,
		Payload:   DeadLetterPayload{Letter: letter},
	}); err != nil {
		s.logger.Warn("记录死信事件失败", zap.Error(err))
	}
}

// RecordError 记录一般性错误。
func (s *Service) RecordError(ctx context.Context, message string, cause error, fields map[string]interface{}) {
	payload := ErrorPayload{Message: message, Fields: fields}
	if cause != nil {
		payload.Error = cause.Error()
	}
	if err := s.Record(ctx, Event{Type: EventError, Payload: payload}); err != nil {
		s.logger.Warn("记录错误事件失败", zap.Error(err))
	}
}

// ListEvents 按类型倒序查询事件，eventType 为空时返回全部。
func (s *Service) ListEvents(ctx context.Context, eventType EventType, limit int) ([]StoredEvent, error) {
	if limit <= 0 {
		limit = 200
	}

	query := `SELECT id, event_type, payload, created_at FROM engine_events`
	args := make([]interface{}, 0, 2)
	if eventType != "" {
		query += ` WHERE event_type = ?`
		args = append(args, string(eventType))
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("monitor: 查询事件失败: %w", err)
	}
	defer rows.Close()

	events := make([]StoredEvent, 0, limit)
	for rows.Next() {
		var (
			event     StoredEvent
			eventKind string
			createdAt string
		)
		if err := rows.Scan(&event.ID, &eventKind, &event.Payload, &createdAt); err != nil {
			return nil, fmt.Errorf("monitor: 读取事件失败: %w", err)
		}
		event.Type = EventType(eventKind)
		if ts, parseErr := time.Parse(time.RFC3339, createdAt); parseErr == nil {
			event.Timestamp = ts
		}
		events = append(events, event)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("monitor: 遍历事件失败: %w", err)
	}
	return events, nil
}
