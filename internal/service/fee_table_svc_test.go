package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
)

// ==================== 佣金率 ====================

func TestCommissionRateSubcategoryWins(t *testing.T) {
	fees := NewFeeTableService()

	// 子类目命中优先于主类目
	rate, err := fees.CommissionRate(model.MarketplaceUzum, "home", "electronics")
	require.NoError(t, err)
	assert.Equal(t, 0.12, rate)
}

func TestCommissionRateFallbackDefault(t *testing.T) {
	fees := NewFeeTableService()

	rate, err := fees.CommissionRate(model.MarketplaceYandex, "неизвестная категория", "")
	require.NoError(t, err)
	assert.Equal(t, 0.13, rate)
	assert.Greater(t, rate, 0.0)
}

func TestCommissionRateUnknownMarketplace(t *testing.T) {
	fees := NewFeeTableService()

	// 未收录市场必须报 UnknownCategory，绝不能静默返回 0 费率
	_, err := fees.CommissionRate(model.MarketplaceWildberries, "electronics", "")
	require.Error(t, err)
	assert.Equal(t, apperr.KindUnknownCategory, apperr.KindOf(err))
}

func TestCommissionRateCaseInsensitive(t *testing.T) {
	fees := NewFeeTableService()

	rate, err := fees.CommissionRate(model.MarketplaceUzum, "  Electronics ", "")
	require.NoError(t, err)
	assert.Equal(t, 0.12, rate)
}

// ==================== 物流费档位 ====================

func TestLogisticsFeeBuckets(t *testing.T) {
	fees := NewFeeTableService()

	cases := []struct {
		weightKg float64
		wantUZS  int64
	}{
		{0.3, 8000},
		{0.5, 8000}, // 档位边界含等于
		{0.51, 10000},
		{2.5, 15000},
		{9.9, 25000},
		{25.0, 40000}, // 兜底档
	}
	for _, c := range cases {
		fee, err := fees.LogisticsFee(model.MarketplaceUzum, model.FulfillmentFBS, c.weightKg)
		require.NoError(t, err)
		assert.Equal(t, c.wantUZS, fee, "weight %.2f", c.weightKg)
	}
}

func TestLogisticsFeeUnknownFulfillmentFallsBackToFBS(t *testing.T) {
	fees := NewFeeTableService()

	fee, err := fees.LogisticsFee(model.MarketplaceUzum, model.FulfillmentFBY, 0.4)
	require.NoError(t, err)
	assert.Equal(t, int64(8000), fee)
}

func TestLogisticsFeeUnknownMarketplace(t *testing.T) {
	fees := NewFeeTableService()

	_, err := fees.LogisticsFee(model.MarketplaceOzon, model.FulfillmentFBS, 1)
	assert.Equal(t, apperr.KindUnknownCategory, apperr.KindOf(err))
}

// ==================== 回款费率与税 ====================

func TestPayoutFeeEmptyFreqIsMonthly(t *testing.T) {
	fees := NewFeeTableService()

	rate, err := fees.PayoutFee(model.MarketplaceUzum, "")
	require.NoError(t, err)
	assert.Equal(t, 0.0, rate)

	daily, err := fees.PayoutFee(model.MarketplaceUzum, model.PayoutDaily)
	require.NoError(t, err)
	assert.Equal(t, 0.015, daily)
}

func TestTaxRate(t *testing.T) {
	fees := NewFeeTableService()
	assert.Equal(t, 0.04, fees.TaxRate(model.MarketplaceUzum))
	assert.Equal(t, 0.04, fees.TaxRate(model.MarketplaceYandex))
}

// ==================== 季节系数与上限 ====================

func TestSeasonalMultiplier(t *testing.T) {
	fees := NewFeeTableService()

	assert.Equal(t, 1.20, fees.SeasonalMultiplier(time.December))
	assert.Equal(t, 0.90, fees.SeasonalMultiplier(time.July))
	assert.Equal(t, 1.0, fees.SeasonalMultiplier(time.Month(0)))
	assert.Equal(t, 1.0, fees.SeasonalMultiplier(time.Month(13)))
}

func TestTitleCapsPerMarketplace(t *testing.T) {
	fees := NewFeeTableService()

	assert.Equal(t, 80, fees.TitleCap(model.MarketplaceUzum))
	assert.Equal(t, 150, fees.TitleCap(model.MarketplaceYandex))
	assert.Equal(t, 80, fees.TitleCap(model.MarketplaceOzon)) // 未收录回落
}

func TestMediaSpec(t *testing.T) {
	fees := NewFeeTableService()

	uz := fees.MediaSpec(model.MarketplaceUzum)
	assert.Equal(t, "3:4", uz.Ratio)

	ya := fees.MediaSpec(model.MarketplaceYandex)
	assert.Equal(t, "1:1", ya.Ratio)
	assert.Equal(t, "white", ya.Background)

	// 未收录市场回落 uzum 规格
	assert.Equal(t, uz, fees.MediaSpec(model.MarketplaceOzon))
}

func TestStopWordsLowercased(t *testing.T) {
	fees := NewFeeTableService()

	stop := fees.StopWords(model.MarketplaceUzum)
	_, ok := stop["оригинал"]
	assert.True(t, ok)
	_, ok = stop["sale"]
	assert.True(t, ok)
}

func TestCategoryRules(t *testing.T) {
	fees := NewFeeTableService()

	assert.Equal(t, 0.45, fees.TargetMargin("cosmetics"))
	assert.Equal(t, 0.25, fees.MinMarkup("cosmetics"))

	// 未收录类目走 default 行
	assert.Equal(t, 0.30, fees.TargetMargin("мебель"))
	assert.Equal(t, 0.15, fees.MinMarkup("мебель"))
}
