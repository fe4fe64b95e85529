package market

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Provider 抽象行情数据来源。
type Provider interface {
	Snapshot(ctx context.Context, symbol string) (Snapshot, error)
}

// Fallback 包装任意 Provider：上游失败时退回最近一次快照或配置的默认值，
// 只记录日志而不让调度步骤失败。行情源对模拟进程的推进不具有否决权。
type Fallback struct {
	inner         Provider
	defaultPrice  decimal.Decimal
	defaultVolume decimal.Decimal
	logger        *zap.Logger

	mu   sync.Mutex
	last map[string]Snapshot
}

// NewFallback 创建带兜底的行情装饰器。
func NewFallback(inner Provider, defaultPrice, defaultVolume decimal.Decimal, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{
		inner:         inner,
		defaultPrice:  defaultPrice,
		defaultVolume: defaultVolume,
		logger:        logger,
		last:          make(map[string]Snapshot),
	}
}

// Snapshot 永不返回错误。
func (f *Fallback) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	snapshot, err := f.inner.Snapshot(ctx, symbol)
	if err == nil {
		f.mu.Lock()
		f.last[symbol] = snapshot
		f.mu.Unlock()
		return snapshot, nil
	}

	f.mu.Lock()
	cached, ok := f.last[symbol]
	f.mu.Unlock()

	if ok {
		f.logger.Warn("行情拉取失败，使用最近快照",
			zap.String("symbol", symbol),
			zap.Error(err),
		)
		return cached, nil
	}

	f.logger.Warn("行情拉取失败且无历史快照，使用默认值",
		zap.String("symbol", symbol),
		zap.Error(err),
	)
	return Snapshot{
		Symbol: symbol,
		Price:  f.defaultPrice,
		Volume: f.defaultVolume,
		At:     time.Now().UTC(),
	}, nil
}
