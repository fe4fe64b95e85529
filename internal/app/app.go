package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"exec-engine/internal/config"
	"exec-engine/internal/cost"
	"exec-engine/internal/engine"
	"exec-engine/internal/event"
	"exec-engine/internal/market"
	"exec-engine/internal/monitor"
	"exec-engine/internal/order"
	"exec-engine/internal/store"
	"exec-engine/internal/strategy"
)

// App 聚合核心依赖并驱动系统生命周期。
type App struct {
	cfg    *config.Config
	logger *zap.Logger
	store  *store.Store
}

// New 创建 App 实例。
func New(cfg *config.Config, logger *zap.Logger, store *store.Store) *App {
	return &App{
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
}

// Run 组装引擎并阻塞运行，直至收到退出信号。
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("执行引擎已初始化",
		zap.String("environment", a.cfg.App.Environment),
		zap.String("market_source", a.cfg.Market.Source),
		zap.Int("demo_orders", len(a.cfg.Simulation.Orders)),
	)

	monitorSvc, err := monitor.NewService(a.store, a.logger)
	if err != nil {
		return fmt.Errorf("初始化监控服务失败: %w", err)
	}

	costModel, err := cost.NewModel(a.cfg.Cost)
	if err != nil {
		return fmt.Errorf("初始化成本模型失败: %w", err)
	}

	provider, err := a.buildProvider()
	if err != nil {
		return fmt.Errorf("初始化行情源失败: %w", err)
	}

	venues := make([]strategy.Venue, 0, len(a.cfg.Venues))
	for _, v := range a.cfg.Venues {
		venues = append(venues, strategy.Venue{
			Name:           v.Name,
			PriceAdjustBps: v.PriceAdjustBps,
			Default:        v.Default,
		})
	}

	registry := engine.NewRegistry()
	emitter := event.Multi{event.NewLogEmitter(a.logger), monitorSvc}
	executor := engine.NewSliceExecutor(costModel, emitter, a.logger)
	supervisor := engine.NewSupervisor(a.cfg.Retry, registry, monitorSvc, a.logger)

	eng := engine.New(
		a.cfg.Engine,
		registry,
		strategy.NewSet(venues),
		executor,
		supervisor,
		provider,
		a.logger,
	)

	if a.cfg.Monitor.Enabled {
		if err := startMonitorServer(ctx, eng, monitorSvc, a.cfg.Monitor.Port, a.logger); err != nil {
			return err
		}
	}

	if err := a.scheduleDemoOrders(ctx, eng); err != nil {
		return err
	}

	return eng.Run(ctx)
}

// buildProvider 按配置选择行情来源，并统一包上兜底装饰器。
func (a *App) buildProvider() (market.Provider, error) {
	defaultPrice, err := decimal.NewFromString(a.cfg.Market.DefaultPrice)
	if err != nil {
		return nil, fmt.Errorf("解析 market.default_price 失败: %w", err)
	}
	defaultVolume, err := decimal.NewFromString(a.cfg.Market.DefaultVolume)
	if err != nil {
		return nil, fmt.Errorf("解析 market.default_volume 失败: %w", err)
	}

	var inner market.Provider
	switch a.cfg.Market.Source {
	case "live":
		live, err := market.NewLiveProvider(a.cfg.Market.Live, a.logger)
		if err != nil {
			return nil, err
		}
		inner = live
	default:
		inner = market.NewSimProvider(a.cfg.Market.Sim, defaultPrice, defaultVolume)
	}

	return market.NewFallback(inner, defaultPrice, defaultVolume, a.logger), nil
}

// scheduleDemoOrders 把配置中的演示订单注入引擎。
func (a *App) scheduleDemoOrders(ctx context.Context, eng *engine.Engine) error {
	for i, spec := range a.cfg.Simulation.Orders {
		o, err := buildOrder(spec)
		if err != nil {
			return fmt.Errorf("解析演示订单 simulation.orders[%d] 失败: %w", i, err)
		}
		if err := eng.Schedule(ctx, o); err != nil {
			return err
		}
	}
	return nil
}

func buildOrder(spec config.SimOrderConfig) (*order.Order, error) {
	quantity, err := decimal.NewFromString(spec.Quantity)
	if err != nil {
		return nil, fmt.Errorf("数量非法 %q: %w", spec.Quantity, err)
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("数量必须为正: %s", quantity)
	}

	side, err := parseSide(spec.Side)
	if err != nil {
		return nil, err
	}

	orderType, err := parseType(spec.Type)
	if err != nil {
		return nil, err
	}

	o := &order.Order{
		ID:        spec.ID,
		Symbol:    spec.Symbol,
		Side:      side,
		Quantity:  quantity,
		Type:      orderType,
		CreatedAt: time.Now().UTC(),
	}
	if o.ID == "" {
		o.ID = uuid.NewString()
	}
	if o.Symbol == "" {
		return nil, fmt.Errorf("symbol 不能为空")
	}

	if orderType == order.TypeLimit {
		limitPrice, err := decimal.NewFromString(spec.LimitPrice)
		if err != nil {
			return nil, fmt.Errorf("限价非法 %q: %w", spec.LimitPrice, err)
		}
		o.LimitPrice = limitPrice
	}

	if orderType == order.TypeAlgorithmic {
		algo, err := parseAlgorithm(spec.Algorithm)
		if err != nil {
			return nil, err
		}
		o.Algorithm = algo

		params := order.ExecutionParameters{
			Urgency:        spec.Urgency,
			HorizonMinutes: spec.HorizonMinutes,
			TWAPSlices:     spec.TWAPSlices,
		}
		if spec.ParticipationRate != "" {
			rate, err := decimal.NewFromString(spec.ParticipationRate)
			if err != nil {
				return nil, fmt.Errorf("参与率非法 %q: %w", spec.ParticipationRate, err)
			}
			params.ParticipationRate = rate
		}
		if spec.MinOrderSize != "" {
			minSize, err := decimal.NewFromString(spec.MinOrderSize)
			if err != nil {
				return nil, fmt.Errorf("最小切片非法 %q: %w", spec.MinOrderSize, err)
			}
			params.MinOrderSize = minSize
		}
		if spec.MaxOrderSize != "" {
			maxSize, err := decimal.NewFromString(spec.MaxOrderSize)
			if err != nil {
				return nil, fmt.Errorf("最大切片非法 %q: %w", spec.MaxOrderSize, err)
			}
			params.MaxOrderSize = maxSize
		}
		o.Params = params
	}

	return o, nil
}

func parseSide(value string) (order.Side, error) {
	switch order.Side(strings.ToLower(strings.TrimSpace(value))) {
	case order.SideBuy:
		return order.SideBuy, nil
	case order.SideSell:
		return order.SideSell, nil
	case order.SideSellShort:
		return order.SideSellShort, nil
	case order.SideBuyToCover:
		return order.SideBuyToCover, nil
	default:
		return "", fmt.Errorf("订单方向非法: %q", value)
	}
}

func parseType(value string) (order.Type, error) {
	switch order.Type(strings.ToLower(strings.TrimSpace(value))) {
	case order.TypeMarket:
		return order.TypeMarket, nil
	case order.TypeLimit:
		return order.TypeLimit, nil
	case order.TypeAlgorithmic:
		return order.TypeAlgorithmic, nil
	default:
		return "", fmt.Errorf("订单类型非法: %q", value)
	}
}

func parseAlgorithm(value string) (order.Algorithm, error) {
	switch order.Algorithm(strings.ToLower(strings.TrimSpace(value))) {
	case order.AlgoTWAP:
		return order.AlgoTWAP, nil
	case order.AlgoVWAP:
		return order.AlgoVWAP, nil
	case order.AlgoShortfall:
		return order.AlgoShortfall, nil
	case order.AlgoPOV:
		return order.AlgoPOV, nil
	case order.AlgoIceberg:
		return order.AlgoIceberg, nil
	case order.AlgoSOR:
		return order.AlgoSOR, nil
	default:
		return "", fmt.Errorf("执行算法非法: %q", value)
	}
}
