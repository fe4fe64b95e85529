package market

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	ccxt "github.com/ccxt/ccxt/go/v4"
	talib "github.com/markcheno/go-talib"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"exec-engine/internal/config"
)

const (
	liveTimeframe      = "1m"
	liveOrderBookDepth = int64(20)
)

// LiveProvider 通过 ccxt 从真实交易所拉取行情。
// 价格取盘口中间价，波动率由近期K线收盘价的标准差估算。
type LiveProvider struct {
	cfg      config.LiveMarketConfig
	logger   *zap.Logger
	exchange *ccxt.Binance

	marketsMu     sync.Mutex
	marketsLoaded bool
}

// NewLiveProvider 构造真实行情源，目前支持 binance。
func NewLiveProvider(cfg config.LiveMarketConfig, logger *zap.Logger) (*LiveProvider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	if !strings.EqualFold(cfg.Exchange, "binance") {
		return nil, fmt.Errorf("不支持的行情交易所: %q", cfg.Exchange)
	}

	userConfig := map[string]interface{}{
		"enableRateLimit": true,
	}
	if cfg.APIKey != "" {
		userConfig["apiKey"] = cfg.APIKey
	}
	if cfg.APISecret != "" {
		userConfig["secret"] = cfg.APISecret
	}

	ex := ccxt.NewBinance(userConfig)
	if cfg.UseSandbox {
		ex.SetSandboxMode(true)
	}

	return &LiveProvider{
		cfg:      cfg,
		logger:   logger,
		exchange: ex,
	}, nil
}

// Snapshot 并行拉取K线与盘口，聚合为行情快照。
func (p *LiveProvider) Snapshot(ctx context.Context, symbol string) (Snapshot, error) {
	if err := p.ensureMarketsLoaded(ctx); err != nil {
		return Snapshot{}, err
	}

	limit := int64(p.cfg.CandleLimit)
	if limit <= 0 {
		limit = 30
	}

	var (
		candles []ccxt.OHLCV
		book    ccxt.OrderBook
	)

	group, _ := errgroup.WithContext(ctx)

	group.Go(func() error {
		result, err := p.exchange.FetchOHLCV(
			symbol,
			ccxt.WithFetchOHLCVTimeframe(liveTimeframe),
			ccxt.WithFetchOHLCVLimit(limit),
		)
		if err != nil {
			return fmt.Errorf("拉取K线失败: %w", err)
		}
		candles = result
		return nil
	})

	group.Go(func() error {
		result, err := p.exchange.FetchOrderBook(
			symbol,
			ccxt.WithFetchOrderBookLimit(liveOrderBookDepth),
		)
		if err != nil {
			return fmt.Errorf("拉取盘口失败: %w", err)
		}
		book = result
		return nil
	})

	if err := group.Wait(); err != nil {
		return Snapshot{}, err
	}

	return p.assemble(symbol, candles, book)
}

func (p *LiveProvider) assemble(symbol string, candles []ccxt.OHLCV, book ccxt.OrderBook) (Snapshot, error) {
	if len(candles) == 0 {
		return Snapshot{}, fmt.Errorf("行情数据为空: %s", symbol)
	}

	closes := make([]float64, 0, len(candles))
	for _, c := range candles {
		closes = append(closes, c.Close)
	}
	last := candles[len(candles)-1]

	price := last.Close
	spread := 0.0
	liquidity := 0.0

	if len(book.Bids) > 0 && len(book.Asks) > 0 &&
		len(book.Bids[0]) >= 2 && len(book.Asks[0]) >= 2 {
		bid := book.Bids[0][0]
		ask := book.Asks[0][0]
		price = (bid + ask) / 2
		spread = ask - bid
		for _, level := range book.Bids {
			if len(level) >= 2 {
				liquidity += level[1]
			}
		}
		for _, level := range book.Asks {
			if len(level) >= 2 {
				liquidity += level[1]
			}
		}
	}

	volatility := estimateVolatility(closes)

	return Snapshot{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(price).Round(2),
		Volume:     decimal.NewFromFloat(last.Volume).Floor(),
		Volatility: decimal.NewFromFloat(volatility).Round(6),
		Liquidity:  decimal.NewFromFloat(liquidity).Round(4),
		Spread:     decimal.NewFromFloat(spread).Round(4),
		At:         time.Now().UTC(),
	}, nil
}

// estimateVolatility 以收盘价标准差与均值之比估算相对波动率。
func estimateVolatility(closes []float64) float64 {
	if len(closes) < 5 {
		return 0
	}

	period := len(closes) - 1
	if period > 20 {
		period = 20
	}

	stddev := talib.StdDev(closes, period, 1.0)
	latest := stddev[len(stddev)-1]

	var sum float64
	for _, c := range closes[len(closes)-period:] {
		sum += c
	}
	mean := sum / float64(period)

	if mean <= 0 || math.IsNaN(latest) {
		return 0
	}
	return latest / mean
}

func (p *LiveProvider) ensureMarketsLoaded(ctx context.Context) error {
	if p.marketsLoaded {
		return nil
	}

	p.marketsMu.Lock()
	defer p.marketsMu.Unlock()

	if p.marketsLoaded {
		return nil
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}

	if _, err := p.exchange.LoadMarkets(); err != nil {
		return fmt.Errorf("加载市场元数据失败: %w", err)
	}

	p.marketsLoaded = true
	p.logger.Info("已完成市场元数据加载", zap.String("exchange", p.cfg.Exchange))
	return nil
}
