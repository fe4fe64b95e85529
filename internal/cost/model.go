package cost

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"exec-engine/internal/config"
	"exec-engine/internal/order"
)

// 金额一律保留两位小数、四舍五入；冲击成本保留六位。
const (
	moneyScale  = 2
	impactScale = 6
)

// Breakdown 为单笔切片的成本拆解。
type Breakdown struct {
	Commission    decimal.Decimal `json:"commission"`
	Tax           decimal.Decimal `json:"tax"`
	RegulatoryFee decimal.Decimal `json:"regulatory_fee"`
	MarketImpact  decimal.Decimal `json:"market_impact"`
}

// Total 返回佣金、税与规费之和，不含冲击估计。
func (b Breakdown) Total() decimal.Decimal {
	return b.Commission.Add(b.Tax).Add(b.RegulatoryFee)
}

// Model 计算佣金、交易税、规费与市场冲击估计。
type Model struct {
	commissionRate    decimal.Decimal
	minCommission     decimal.Decimal
	taxRate           decimal.Decimal
	regulatoryRate    decimal.Decimal
	impactCoefficient decimal.Decimal
	averageDailyVol   decimal.Decimal
}

// NewModel 从配置解析成本参数。
func NewModel(cfg config.CostConfig) (*Model, error) {
	parse := func(name, value string) (decimal.Decimal, error) {
		d, err := decimal.NewFromString(value)
		if err != nil {
			return decimal.Zero, fmt.Errorf("解析成本参数 %s=%q 失败: %w", name, value, err)
		}
		if d.IsNegative() {
			return decimal.Zero, fmt.Errorf("成本参数 %s 不能为负: %s", name, value)
		}
		return d, nil
	}

	commissionRate, err := parse("commission_rate", cfg.CommissionRate)
	if err != nil {
		return nil, err
	}
	minCommission, err := parse("min_commission", cfg.MinCommission)
	if err != nil {
		return nil, err
	}
	taxRate, err := parse("tax_rate", cfg.TaxRate)
	if err != nil {
		return nil, err
	}
	regulatoryRate, err := parse("regulatory_rate", cfg.RegulatoryRate)
	if err != nil {
		return nil, err
	}
	impactCoefficient, err := parse("impact_coefficient", cfg.ImpactCoefficient)
	if err != nil {
		return nil, err
	}
	adv, err := parse("average_daily_volume", cfg.AverageDailyVolume)
	if err != nil {
		return nil, err
	}
	if adv.IsZero() {
		return nil, fmt.Errorf("成本参数 average_daily_volume 必须大于0")
	}

	return &Model{
		commissionRate:    commissionRate,
		minCommission:     minCommission,
		taxRate:           taxRate,
		regulatoryRate:    regulatoryRate,
		impactCoefficient: impactCoefficient,
		averageDailyVol:   adv,
	}, nil
}

// Assess 计算一笔切片的全部成本。税与规费仅对卖出类方向收取。
func (m *Model) Assess(side order.Side, size, notional decimal.Decimal) Breakdown {
	commission := notional.Mul(m.commissionRate).Round(moneyScale)
	if commission.LessThan(m.minCommission) {
		commission = m.minCommission
	}

	breakdown := Breakdown{
		Commission:    commission,
		Tax:           decimal.Zero,
		RegulatoryFee: decimal.Zero,
		MarketImpact:  m.Impact(size),
	}

	if side.IsSell() {
		breakdown.Tax = notional.Mul(m.taxRate).Round(moneyScale)
		breakdown.RegulatoryFee = notional.Mul(m.regulatoryRate).Round(moneyScale)
	}

	return breakdown
}

// Impact 估计市场冲击: sqrt(size/ADV) * coefficient。
// 平方根没有精确的十进制表示，这里以 float64 计算后重新定标。
func (m *Model) Impact(size decimal.Decimal) decimal.Decimal {
	ratio := size.Div(m.averageDailyVol).InexactFloat64()
	if ratio <= 0 {
		return decimal.Zero
	}
	impact := math.Sqrt(ratio) * m.impactCoefficient.InexactFloat64()
	return decimal.NewFromFloat(impact).Round(impactScale)
}
