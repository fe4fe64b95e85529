package execution

import (
	"time"

	"github.com/shopspring/decimal"

	"exec-engine/internal/cost"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// TradeType 区分成交记录的来源。
type TradeType string

const (
	TradeTypeRegular     TradeType = "regular"
	TradeTypeAlgorithmic TradeType = "algorithmic"
	TradeTypeIceberg     TradeType = "iceberg"
)

// TradeStatus 表示成交记录状态。
type TradeStatus string

const (
	TradeStatusPending  TradeStatus = "pending"
	TradeStatusExecuted TradeStatus = "executed"
)

// Slice 为策略计算出的一次切片决策。
type Slice struct {
	Size  decimal.Decimal
	Price decimal.Decimal
	Venue string
	Type  TradeType
}

// Trade 为不可变的子订单成交记录。
type Trade struct {
	ID             string          `json:"id"`
	OrderID        string          `json:"order_id"`
	Symbol         string          `json:"symbol"`
	Side           order.Side      `json:"side"`
	Quantity       decimal.Decimal `json:"quantity"`
	Price          decimal.Decimal `json:"price"`
	Notional       decimal.Decimal `json:"notional"`
	ExecutedAt     time.Time       `json:"executed_at"`
	SettlementDate time.Time       `json:"settlement_date"`
	Type           TradeType       `json:"type"`
	Venue          string          `json:"venue"`
	Market         market.Snapshot `json:"market"`
	Costs          cost.Breakdown  `json:"costs"`
	Slippage       decimal.Decimal `json:"slippage"`
	LatencyMicros  int64           `json:"latency_micros"`
	Status         TradeStatus     `json:"status"`
}
