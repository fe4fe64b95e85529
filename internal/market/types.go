package market

import (
	"time"

	"github.com/shopspring/decimal"
)

// Snapshot 为切片决策时读取的行情快照，引擎自身不持久化。
type Snapshot struct {
	Symbol     string
	Price      decimal.Decimal
	Volume     decimal.Decimal
	Volatility decimal.Decimal
	Liquidity  decimal.Decimal
	Spread     decimal.Decimal
	At         time.Time
}
