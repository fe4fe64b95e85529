// Package engine 实现订单执行引擎：注册表、定时调度、切片执行与失败监督。
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"exec-engine/internal/config"
	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
	"exec-engine/internal/strategy"
)

// Engine 以固定节奏驱动全部活跃订单的执行步骤。
// 不同订单的步骤并行执行，同一订单的步骤通过条目锁在时间上串行。
type Engine struct {
	cfg        config.EngineConfig
	registry   *Registry
	strategies strategy.Set
	marketRule strategy.Strategy
	limitRule  strategy.Strategy
	executor   *SliceExecutor
	supervisor *Supervisor
	provider   market.Provider
	logger     *zap.Logger
}

// New 组装执行引擎。
func New(
	cfg config.EngineConfig,
	registry *Registry,
	strategies strategy.Set,
	executor *SliceExecutor,
	supervisor *Supervisor,
	provider market.Provider,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		cfg:        cfg,
		registry:   registry,
		strategies: strategies,
		marketRule: strategy.Market{},
		limitRule:  strategy.Limit{},
		executor:   executor,
		supervisor: supervisor,
		provider:   provider,
		logger:     logger,
	}
}

// Schedule 响应外部"订单已调度"信号：捕获到达价并登记订单。
// 引擎不做业务校验，订单的合法性由上游保证。
func (e *Engine) Schedule(ctx context.Context, o *order.Order) error {
	arrival := decimal.Zero
	if snap, err := e.provider.Snapshot(ctx, o.Symbol); err == nil {
		arrival = snap.Price
	} else {
		e.logger.Warn("捕获到达价失败", zap.String("order_id", o.ID), zap.Error(err))
	}

	if _, err := e.registry.Register(o, arrival, time.Now().UTC()); err != nil {
		return fmt.Errorf("注册订单失败: %w", err)
	}

	e.logger.Info("订单已进入执行",
		zap.String("order_id", o.ID),
		zap.String("symbol", o.Symbol),
		zap.String("side", string(o.Side)),
		zap.String("type", string(o.Type)),
		zap.String("algorithm", string(o.Algorithm)),
		zap.String("quantity", o.Quantity.String()),
		zap.String("arrival_price", arrival.String()),
	)
	return nil
}

// Cancel 撤销订单：从注册表摘除即停止后续步骤；
// 进行中的步骤仍会完成并发布自己的事件。
func (e *Engine) Cancel(orderID string) bool {
	if _, ok := e.registry.Get(orderID); !ok {
		return false
	}
	e.registry.Remove(orderID)
	e.supervisor.MarkRecovered(orderID)
	e.logger.Info("订单已撤销", zap.String("order_id", orderID))
	return true
}

// ActiveStates 返回全部活跃订单的执行状态快照。
func (e *Engine) ActiveStates() []execution.State {
	return e.registry.States()
}

// DeadLetters 返回死信记录。
func (e *Engine) DeadLetters() []DeadLetter {
	return e.supervisor.DeadLetters()
}

// Run 启动调度循环，直到上下文取消。任何步骤失败都不会终止循环。
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.TickInterval
	if interval <= 0 {
		interval = time.Second
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	e.logger.Info("执行引擎已启动",
		zap.Duration("tick_interval", interval),
		zap.Int("max_workers", e.cfg.MaxWorkers),
	)

	for {
		select {
		case <-ctx.Done():
			if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("引擎异常退出: %w", err)
			}
			e.logger.Info("执行引擎收到退出信号，正在停止")
			return nil
		case <-ticker.C:
			e.tick(ctx)
		}
	}
}

// tick 对活跃订单快照逐一派发执行步骤，跨订单并行。
func (e *Engine) tick(ctx context.Context) {
	ids := e.registry.ListActive()
	if len(ids) == 0 {
		return
	}

	group := new(errgroup.Group)
	if e.cfg.MaxWorkers > 0 {
		group.SetLimit(e.cfg.MaxWorkers)
	}

	for _, id := range ids {
		orderID := id
		group.Go(func() error {
			e.step(ctx, orderID)
			return nil
		})
	}

	_ = group.Wait()
}

// step 为单个订单执行一步。失败与 panic 都在此边界截获并交给监督器。
func (e *Engine) step(ctx context.Context, orderID string) {
	entry, ok := e.registry.Get(orderID)
	if !ok {
		return
	}

	if !entry.TryLock() {
		// 上一轮步骤尚未结束，本轮跳过，保证同一订单串行。
		e.logger.Debug("上一步骤仍在进行，跳过本轮", zap.String("order_id", orderID))
		return
	}
	defer entry.Unlock()

	defer func() {
		if r := recover(); r != nil {
			e.supervisor.HandleFailure(ctx, entry, fmt.Errorf("步骤发生panic: %v", r))
		}
	}()

	stepCtx := ctx
	if e.cfg.StepTimeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, e.cfg.StepTimeout)
		defer cancel()
	}

	if err := e.executeStep(stepCtx, entry); err != nil {
		e.supervisor.HandleFailure(ctx, entry, err)
		return
	}

	e.supervisor.MarkRecovered(orderID)

	if entry.State.Completed() {
		e.registry.Remove(orderID)
		e.logger.Info("订单执行完成",
			zap.String("order_id", orderID),
			zap.String("executed", entry.State.Executed.String()),
			zap.Int("trade_count", entry.State.TradeCount),
			zap.String("avg_price", entry.State.VWAP.Round(4).String()),
		)
	}
}

func (e *Engine) executeStep(ctx context.Context, entry *Entry) error {
	snap, err := e.provider.Snapshot(ctx, entry.Order.Symbol)
	if err != nil {
		return fmt.Errorf("拉取行情失败: %w", err)
	}

	strat, err := e.resolveStrategy(entry.Order)
	if err != nil {
		return err
	}

	slice, ok := strat.Decide(entry.Order, entry.State, snap)
	if !ok {
		return nil
	}

	if _, err := e.executor.Execute(ctx, entry, slice, snap); err != nil {
		return err
	}
	return nil
}

// resolveStrategy 按订单类型选择简单规则，算法单再按算法枚举分派。
func (e *Engine) resolveStrategy(o *order.Order) (strategy.Strategy, error) {
	switch o.Type {
	case order.TypeMarket:
		return e.marketRule, nil
	case order.TypeLimit:
		return e.limitRule, nil
	case order.TypeAlgorithmic:
		if strat, ok := e.strategies.Lookup(o.Algorithm); ok {
			return strat, nil
		}
		return nil, fmt.Errorf("未知执行算法: %q", o.Algorithm)
	default:
		return nil, fmt.Errorf("未知订单类型: %q", o.Type)
	}
}
