package engine

import (
	"context"
	"errors"
	"net"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	"go.uber.org/zap"

	"exec-engine/internal/config"
	"exec-engine/internal/execution"
)

// transientKeywords 为瞬时故障的消息关键字集合。
var transientKeywords = []string{"timeout", "connection", "temporary"}

// IsRetryable 判断步骤失败是否可重试。
// 可重试：超时、连接类故障、带瞬时关键字的错误；其余一律致命。
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var ccxtErr *ccxt.Error
	if errors.As(err, &ccxtErr) {
		switch ccxtErr.Type {
		case ccxt.NetworkErrorErrType,
			ccxt.RequestTimeoutErrType,
			ccxt.ExchangeNotAvailableErrType,
			ccxt.RateLimitExceededErrType,
			ccxt.DDoSProtectionErrType,
			ccxt.BadResponseErrType,
			ccxt.NullResponseErrType:
			return true
		default:
			return false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	message := strings.ToLower(err.Error())
	for _, keyword := range transientKeywords {
		if strings.Contains(message, keyword) {
			return true
		}
	}
	return false
}

// DeadLetter 记录被终止订单的最终状态，已有部分成交保持不变。
type DeadLetter struct {
	OrderID  string          `json:"order_id"`
	Reason   string          `json:"reason"`
	Attempts int             `json:"attempts"`
	State    execution.State `json:"state"`
	At       time.Time       `json:"at"`
}

// Reporter 把监督器的处置结果上报给监控。
type Reporter interface {
	RetryScheduled(orderID string, attempt int, delay time.Duration, cause error)
	DeadLettered(letter DeadLetter)
}

// Supervisor 对步骤失败分类处置：可重试订单按指数退避延迟后重新挂回注册表，
// 超过次数上限或致命失败的订单立即摘除并进入死信记录。
type Supervisor struct {
	cfg      config.RetryConfig
	registry *Registry
	reporter Reporter
	logger   *zap.Logger

	mu       sync.Mutex
	attempts map[string]int
	dead     []DeadLetter
}

// NewSupervisor 创建错误监督器。
func NewSupervisor(cfg config.RetryConfig, registry *Registry, reporter Reporter, logger *zap.Logger) *Supervisor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Supervisor{
		cfg:      cfg,
		registry: registry,
		reporter: reporter,
		logger:   logger,
		attempts: make(map[string]int),
	}
}

// HandleFailure 处理一次步骤失败。调用时该订单的步骤锁仍由调用方持有。
func (s *Supervisor) HandleFailure(ctx context.Context, entry *Entry, cause error) {
	orderID := entry.Order.ID

	if !IsRetryable(cause) {
		s.evict(orderID, entry, cause, "fatal")
		return
	}

	s.mu.Lock()
	attempt := s.attempts[orderID] + 1
	s.attempts[orderID] = attempt
	s.mu.Unlock()

	if attempt > s.cfg.MaxAttempts {
		s.evict(orderID, entry, cause, "retries exhausted")
		return
	}

	delay := s.backoffDelay(attempt)
	s.registry.Remove(orderID)

	s.logger.Warn("步骤失败，已安排重试",
		zap.String("order_id", orderID),
		zap.Int("attempt", attempt),
		zap.Duration("delay", delay),
		zap.Error(cause),
	)
	if s.reporter != nil {
		s.reporter.RetryScheduled(orderID, attempt, delay, cause)
	}

	time.AfterFunc(delay, func() {
		if ctx.Err() != nil {
			return
		}
		if err := s.registry.Reinstate(entry); err != nil {
			s.logger.Warn("重试恢复失败", zap.String("order_id", orderID), zap.Error(err))
			return
		}
		s.logger.Info("订单已恢复执行",
			zap.String("order_id", orderID),
			zap.Int("attempt", attempt),
		)
	})
}

// MarkRecovered 在订单成功执行一步后清零其重试计数。
func (s *Supervisor) MarkRecovered(orderID string) {
	s.mu.Lock()
	delete(s.attempts, orderID)
	s.mu.Unlock()
}

// DeadLetters 返回死信记录的快照。
func (s *Supervisor) DeadLetters() []DeadLetter {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]DeadLetter, len(s.dead))
	copy(out, s.dead)
	return out
}

func (s *Supervisor) evict(orderID string, entry *Entry, cause error, reason string) {
	s.registry.Remove(orderID)

	s.mu.Lock()
	attempts := s.attempts[orderID]
	delete(s.attempts, orderID)
	letter := DeadLetter{
		OrderID:  orderID,
		Reason:   reason + ": " + cause.Error(),
		Attempts: attempts,
		State:    entry.State.Snapshot(),
		At:       time.Now().UTC(),
	}
	s.dead = append(s.dead, letter)
	s.mu.Unlock()

	s.logger.Error("订单已终止，部分成交保持不变",
		zap.String("order_id", orderID),
		zap.String("reason", reason),
		zap.Error(cause),
	)
	if s.reporter != nil {
		s.reporter.DeadLettered(letter)
	}
}

// backoffDelay 计算第 attempt 次重试的等待时长: min_delay * 2^(attempt-1)，封顶 max_delay。
func (s *Supervisor) backoffDelay(attempt int) time.Duration {
	delay := s.cfg.MinDelay
	if delay <= 0 {
		delay = 5 * time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
		if s.cfg.MaxDelay > 0 && delay >= s.cfg.MaxDelay {
			return s.cfg.MaxDelay
		}
	}
	if s.cfg.MaxDelay > 0 && delay > s.cfg.MaxDelay {
		delay = s.cfg.MaxDelay
	}
	return delay
}
