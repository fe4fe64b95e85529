package strategy

import (
	"github.com/shopspring/decimal"

	"exec-engine/internal/execution"
	"exec-engine/internal/market"
	"exec-engine/internal/order"
)

// Venue 描述一个可选执行场所，报价相对市价按基点偏移。
type Venue struct {
	Name           string
	PriceAdjustBps int
	Default        bool
}

// DefaultVenueName 为未配置场所时的兜底场所。
const DefaultVenueName = "PRIMARY"

// SOR 智能路由：在全部场所中为订单方向挑选有效价最优者，
// 切片数量为 ceil(remaining/5)，成交价为所选场所的报价。
type SOR struct {
	venues []Venue
}

// NewSOR 构造智能路由策略。
func NewSOR(venues []Venue) SOR {
	if len(venues) == 0 {
		venues = []Venue{{Name: DefaultVenueName, Default: true}}
	}
	return SOR{venues: venues}
}

func (SOR) Name() order.Algorithm { return order.AlgoSOR }

func (s SOR) Decide(o *order.Order, st *execution.State, snap market.Snapshot) (execution.Slice, bool) {
	if !st.Remaining.IsPositive() {
		return execution.Slice{}, false
	}

	venue, price := s.selectVenue(o.Side, snap.Price)

	size := st.Remaining.Div(decimal.NewFromInt(5)).Ceil()
	size = clampToRemaining(size, st)
	if !size.IsPositive() {
		return execution.Slice{}, false
	}

	return execution.Slice{
		Size:  size,
		Price: price,
		Venue: venue,
		Type:  execution.TradeTypeAlgorithmic,
	}, true
}

// selectVenue 返回有效价最优的场所：买入取最低报价，卖出取最高报价，
// 无差异时落回默认场所。
func (s SOR) selectVenue(side order.Side, marketPrice decimal.Decimal) (string, decimal.Decimal) {
	best := s.defaultVenue()
	bestPrice := venuePrice(marketPrice, best)

	for _, v := range s.venues {
		price := venuePrice(marketPrice, v)
		if side.IsSell() {
			if price.GreaterThan(bestPrice) {
				best, bestPrice = v, price
			}
		} else {
			if price.LessThan(bestPrice) {
				best, bestPrice = v, price
			}
		}
	}

	return best.Name, bestPrice
}

func (s SOR) defaultVenue() Venue {
	for _, v := range s.venues {
		if v.Default {
			return v
		}
	}
	return s.venues[0]
}

func venuePrice(marketPrice decimal.Decimal, v Venue) decimal.Decimal {
	if v.PriceAdjustBps == 0 {
		return marketPrice
	}
	adjust := marketPrice.Mul(decimal.NewFromInt(int64(v.PriceAdjustBps))).Div(tenThous)
	return marketPrice.Add(adjust).Round(4)
}
