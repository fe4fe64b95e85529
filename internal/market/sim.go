package market

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"exec-engine/internal/config"
)

// SimProvider 以随机游走生成行情，供演示与测试使用。
// 价格按 price *= 1 + drift + volatility*N(0,1) 演化，成交量围绕基准值波动。
type SimProvider struct {
	cfg       config.SimMarketConfig
	basePrice decimal.Decimal
	baseVol   decimal.Decimal

	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
}

// NewSimProvider 创建模拟行情源。seed 为 0 时使用当前时间。
func NewSimProvider(cfg config.SimMarketConfig, basePrice, baseVolume decimal.Decimal) *SimProvider {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &SimProvider{
		cfg:       cfg,
		basePrice: basePrice,
		baseVol:   baseVolume,
		rng:       rand.New(rand.NewSource(seed)),
		prices:    make(map[string]float64),
	}
}

// SetPrice 固定某个标的的当前价格，用于构造确定性场景。
func (s *SimProvider) SetPrice(symbol string, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prices[symbol] = price.InexactFloat64()
}

// Snapshot 返回该标的的下一个行情点。
func (s *SimProvider) Snapshot(_ context.Context, symbol string) (Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, ok := s.prices[symbol]
	if !ok {
		price = s.basePrice.InexactFloat64()
	}

	if s.cfg.Volatility > 0 || s.cfg.Drift != 0 {
		price *= 1 + s.cfg.Drift + s.cfg.Volatility*s.rng.NormFloat64()
		if price <= 0 {
			price = s.basePrice.InexactFloat64()
		}
		s.prices[symbol] = price
	}

	volume := s.baseVol.InexactFloat64() * (0.5 + s.rng.Float64())
	spread := price * 0.0005

	return Snapshot{
		Symbol:     symbol,
		Price:      decimal.NewFromFloat(price).Round(2),
		Volume:     decimal.NewFromFloat(volume).Floor(),
		Volatility: decimal.NewFromFloat(s.cfg.Volatility),
		Liquidity:  decimal.NewFromFloat(volume * 0.1).Floor(),
		Spread:     decimal.NewFromFloat(spread).Round(4),
		At:         time.Now().UTC(),
	}, nil
}
