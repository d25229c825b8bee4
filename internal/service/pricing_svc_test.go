package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
)

// ==================== 测试辅助 ====================

// fixedClock 固定在指定月份（季节系数 1.00 的月份用 4 月）
func fixedClock(month time.Month) func() time.Time {
	return func() time.Time {
		return time.Date(2026, month, 15, 12, 0, 0, 0, time.UTC)
	}
}

func newTestPricing(month time.Month) *PricingService {
	svc := NewPricingService(NewFeeTableService(), nil)
	svc.SetClock(fixedClock(month))
	return svc
}

func electronicsReq() *PriceRequest {
	return &PriceRequest{
		Marketplace:  model.MarketplaceUzum,
		Category:     "electronics",
		CostPriceUZS: 100000,
		WeightKg:     0.4,
		Fulfillment:  model.FulfillmentFBS,
		PayoutFreq:   model.PayoutMonthly,
	}
}

// ==================== 基准计算 ====================

func TestCalculateTargetMarginPath(t *testing.T) {
	svc := newTestPricing(time.April)

	// cost 100 000, 佣金 0.12 + 回款 0 + 税 0.04, 物流 8 000, 目标毛利 0.25
	// withMargin = 108 000 / 0.59 ≈ 183 050.85
	calc, err := svc.Calculate(electronicsReq())
	require.NoError(t, err)

	assert.Equal(t, int64(183051), calc.OptimalPriceUZS)
	assert.Equal(t, int64(112000), calc.MinPriceUZS) // cost × 1.12
	assert.Equal(t, int64(228814), calc.MaxPriceUZS) // optimal × 1.25

	// 目标毛利价的定义保证调整后毛利恰好等于目标毛利率
	assert.Equal(t, 0.25, calc.ActualMargin)
	assert.True(t, calc.IsProfitable)
	assert.True(t, calc.IsCompetitive)

	assert.Equal(t, 0.12, calc.CommissionRate)
	assert.Equal(t, 0.04, calc.TaxRate)
	assert.Equal(t, int64(8000), calc.LogisticsFeeUZS)
	assert.Equal(t, 1.0, calc.SeasonalMultiple)
}

func TestCalculateOptimalNeverBelowMin(t *testing.T) {
	svc := newTestPricing(time.July) // 淡季 0.90，最容易跌破下限

	costs := []int64{5000, 50000, 100000, 1200000, 25000000}
	categories := []string{"electronics", "clothing", "cosmetics", "food", "прочее"}
	for _, cost := range costs {
		for _, cat := range categories {
			req := electronicsReq()
			req.Category = cat
			req.CostPriceUZS = cost
			req.CompetitorAvgUZS = cost / 2 // 恶意低竞品价也不能拖穿下限

			calc, err := svc.Calculate(req)
			require.NoError(t, err)
			assert.GreaterOrEqual(t, calc.OptimalPriceUZS, calc.MinPriceUZS,
				"cost=%d cat=%s", cost, cat)
			assert.GreaterOrEqual(t, calc.MaxPriceUZS, calc.OptimalPriceUZS)
		}
	}
}

// ==================== 竞品收敛 ====================

func TestCalculateCompetitorClampHigh(t *testing.T) {
	svc := newTestPricing(time.April)

	req := electronicsReq()
	req.CompetitorAvgUZS = 120000

	// 目标毛利价 183 051 高于 1.10 × 120 000，收敛到 132 000
	calc, err := svc.Calculate(req)
	require.NoError(t, err)
	assert.Equal(t, int64(132000), calc.OptimalPriceUZS)
	assert.True(t, calc.IsCompetitive)
}

func TestCalculateCompetitorBelowMinFloor(t *testing.T) {
	svc := newTestPricing(time.April)

	req := electronicsReq()
	req.CompetitorAvgUZS = 80000

	// 竞品收敛想压到 88 000，但最低价 112 000 优先
	calc, err := svc.Calculate(req)
	require.NoError(t, err)
	assert.Equal(t, int64(112000), calc.OptimalPriceUZS)
	assert.False(t, calc.IsCompetitive) // 112 000 > 1.15 × 80 000
}

// ==================== 季节系数 ====================

func TestCalculateSeasonalDecemberUplift(t *testing.T) {
	base, err := newTestPricing(time.April).Calculate(electronicsReq())
	require.NoError(t, err)

	dec, err := newTestPricing(time.December).Calculate(electronicsReq())
	require.NoError(t, err)

	assert.Equal(t, 1.20, dec.SeasonalMultiple)
	assert.InDelta(t, float64(base.OptimalPriceUZS)*1.20, float64(dec.OptimalPriceUZS), 1.0)
}

// ==================== 错误路径 ====================

func TestCalculateUnknownMarketplace(t *testing.T) {
	svc := newTestPricing(time.April)

	req := electronicsReq()
	req.Marketplace = model.MarketplaceWildberries

	_, err := svc.Calculate(req)
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnknownCategory, apperr.KindOf(err))
}

// ==================== 竞品均价来源 ====================

func TestEstimateCompetitorAvgHeuristicWithoutModel(t *testing.T) {
	svc := newTestPricing(time.April) // ai == nil

	avg, summary := svc.EstimateCompetitorAvg(context.Background(),
		&CardProduct{Name: "Чайник", Category: "home"}, model.MarketplaceUzum, 200000)
	assert.Equal(t, int64(220000), avg) // 1.1 × 成本
	assert.Empty(t, summary)
}
