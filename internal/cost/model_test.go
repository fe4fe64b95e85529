package cost

import (
	"testing"

	"github.com/shopspring/decimal"

	"exec-engine/internal/config"
	"exec-engine/internal/order"
)

func testConfig() config.CostConfig {
	return config.CostConfig{
		CommissionRate:     "0.001",
		MinCommission:      "1.00",
		TaxRate:            "0.001",
		RegulatoryRate:     "0.0000229",
		ImpactCoefficient:  "0.1",
		AverageDailyVolume: "1000000",
	}
}

func TestAssess_CommissionFloor(t *testing.T) {
	model, err := NewModel(testConfig())
	if err != nil {
		t.Fatalf("NewModel returned error: %v", err)
	}

	// 100 * 5.00 = 500 notional, commission 0.50 < min 1.00
	breakdown := model.Assess(order.SideBuy,
		decimal.NewFromInt(100), decimal.NewFromInt(500))

	if !breakdown.Commission.Equal(decimal.RequireFromString("1.00")) {
		t.Fatalf("commission = %s, want 1.00", breakdown.Commission)
	}
	if !breakdown.Tax.IsZero() || !breakdown.RegulatoryFee.IsZero() {
		t.Fatalf("buy trade must not pay tax/fee: tax=%s fee=%s",
			breakdown.Tax, breakdown.RegulatoryFee)
	}
}

func TestAssess_SellSideTaxAndFee(t *testing.T) {
	model, err := NewModel(testConfig())
	if err != nil {
		t.Fatalf("NewModel returned error: %v", err)
	}

	notional := decimal.NewFromInt(100000)
	for _, side := range []order.Side{order.SideSell, order.SideSellShort} {
		breakdown := model.Assess(side, decimal.NewFromInt(1000), notional)

		if !breakdown.Commission.Equal(decimal.RequireFromString("100.00")) {
			t.Errorf("side %s: commission = %s, want 100.00", side, breakdown.Commission)
		}
		if !breakdown.Tax.Equal(decimal.RequireFromString("100.00")) {
			t.Errorf("side %s: tax = %s, want 100.00", side, breakdown.Tax)
		}
		if !breakdown.RegulatoryFee.Equal(decimal.RequireFromString("2.29")) {
			t.Errorf("side %s: regulatory fee = %s, want 2.29", side, breakdown.RegulatoryFee)
		}
	}
}

func TestImpact_SquareRootScaling(t *testing.T) {
	model, err := NewModel(testConfig())
	if err != nil {
		t.Fatalf("NewModel returned error: %v", err)
	}

	// sqrt(10000/1000000) * 0.1 = 0.01
	impact := model.Impact(decimal.NewFromInt(10000))
	if !impact.Equal(decimal.RequireFromString("0.01")) {
		t.Fatalf("impact = %s, want 0.01", impact)
	}

	if !model.Impact(decimal.Zero).IsZero() {
		t.Fatalf("impact of zero size must be zero")
	}
}

func TestNewModel_RejectsBadParameters(t *testing.T) {
	cfg := testConfig()
	cfg.CommissionRate = "not-a-number"
	if _, err := NewModel(cfg); err == nil {
		t.Fatalf("expected error for invalid commission rate")
	}

	cfg = testConfig()
	cfg.AverageDailyVolume = "0"
	if _, err := NewModel(cfg); err == nil {
		t.Fatalf("expected error for zero ADV")
	}
}
