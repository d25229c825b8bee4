package service

import (
	"strings"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/model"
)

// ==================== 结构定义 ====================

// MediaSpec 市场主图规格
type MediaSpec struct {
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Ratio      string `json:"ratio"`
	MaxBytes   int64  `json:"max_bytes"`
	Background string `json:"background"`
}

// weightBucket 物流费重量档位；MaxKg <= 0 表示兜底档
type weightBucket struct {
	MaxKg  float64
	FeeUZS int64
}

// categoryRule 类目定价规则
type categoryRule struct {
	TargetMargin float64 // 目标毛利率
	MinMarkup    float64 // 最低加价率 (min_price = cost × (1+MinMarkup))
}

// ==================== 服务 ====================

// FeeTableService 费率与规则表
// 进程内唯一数据源，启动时构建后只读，全链路共享无需加锁
type FeeTableService struct {
	commissions map[model.Marketplace]map[string]float64
	logistics   map[model.Marketplace]map[model.Fulfillment][]weightBucket
	payouts     map[model.Marketplace]map[model.PayoutFrequency]float64
	taxRegimes  map[model.Marketplace]float64
	stopWords   map[model.Marketplace]map[string]struct{}
	mediaSpecs  map[model.Marketplace]MediaSpec
	categories  map[string]categoryRule
	seasonal    [13]float64 // 下标 1..12
	titleCaps   map[model.Marketplace]int
	minDescLens map[model.Marketplace]int
}

// NewFeeTableService 构建静态费率表
func NewFeeTableService() *FeeTableService {
	s := &FeeTableService{
		commissions: map[model.Marketplace]map[string]float64{
			model.MarketplaceUzum: {
				"electronics": 0.12,
				"clothing":    0.20,
				"cosmetics":   0.18,
				"perfume":     0.18,
				"food":        0.10,
				"toys":        0.15,
				"home":        0.15,
				"default":     0.15,
			},
			model.MarketplaceYandex: {
				"electronics": 0.09,
				"clothing":    0.17,
				"cosmetics":   0.15,
				"perfume":     0.15,
				"food":        0.08,
				"toys":        0.13,
				"home":        0.12,
				"default":     0.13,
			},
		},
		logistics: map[model.Marketplace]map[model.Fulfillment][]weightBucket{
			model.MarketplaceUzum: {
				model.FulfillmentFBS: {
					{MaxKg: 0.5, FeeUZS: 8000},
					{MaxKg: 1.0, FeeUZS: 10000},
					{MaxKg: 3.0, FeeUZS: 15000},
					{MaxKg: 10.0, FeeUZS: 25000},
					{MaxKg: 0, FeeUZS: 40000},
				},
				model.FulfillmentFBO: {
					{MaxKg: 0.5, FeeUZS: 6000},
					{MaxKg: 1.0, FeeUZS: 8000},
					{MaxKg: 3.0, FeeUZS: 12000},
					{MaxKg: 10.0, FeeUZS: 20000},
					{MaxKg: 0, FeeUZS: 35000},
				},
				model.FulfillmentDBS: {
					{MaxKg: 1.0, FeeUZS: 12000},
					{MaxKg: 5.0, FeeUZS: 20000},
					{MaxKg: 0, FeeUZS: 45000},
				},
			},
			model.MarketplaceYandex: {
				model.FulfillmentFBS: {
					{MaxKg: 0.5, FeeUZS: 9000},
					{MaxKg: 1.0, FeeUZS: 12000},
					{MaxKg: 3.0, FeeUZS: 18000},
					{MaxKg: 10.0, FeeUZS: 30000},
					{MaxKg: 0, FeeUZS: 50000},
				},
				model.FulfillmentFBY: {
					{MaxKg: 0.5, FeeUZS: 7000},
					{MaxKg: 1.0, FeeUZS: 9500},
					{MaxKg: 3.0, FeeUZS: 14000},
					{MaxKg: 10.0, FeeUZS: 24000},
					{MaxKg: 0, FeeUZS: 42000},
				},
				model.FulfillmentDBS: {
					{MaxKg: 1.0, FeeUZS: 14000},
					{MaxKg: 5.0, FeeUZS: 24000},
					{MaxKg: 0, FeeUZS: 52000},
				},
			},
		},
		payouts: map[model.Marketplace]map[model.PayoutFrequency]float64{
			model.MarketplaceUzum: {
				model.PayoutDaily:    0.015,
				model.PayoutWeekly:   0.010,
				model.PayoutBiweekly: 0.005,
				model.PayoutMonthly:  0.000,
			},
			model.MarketplaceYandex: {
				model.PayoutDaily:    0.018,
				model.PayoutWeekly:   0.012,
				model.PayoutBiweekly: 0.006,
				model.PayoutMonthly:  0.000,
			},
		},
		// 乌兹简化税制下电商流水税
		taxRegimes: map[model.Marketplace]float64{
			model.MarketplaceUzum:   0.04,
			model.MarketplaceYandex: 0.04,
		},
		stopWords: map[model.Marketplace]map[string]struct{}{
			model.MarketplaceUzum: buildStopWordSet(
				"хит", "супер", "super", "original", "оригинал", "акция",
				"скидка", "лучший", "гарантия", "дешево", "распродажа",
				"sale", "top", "новинка",
			),
			model.MarketplaceYandex: buildStopWordSet(
				"хит", "супер", "super", "original", "акция", "скидка",
				"лучший", "дешево", "распродажа", "sale", "бесплатно",
			),
		},
		mediaSpecs: map[model.Marketplace]MediaSpec{
			model.MarketplaceUzum: {
				Width: 1080, Height: 1440, Ratio: "3:4",
				MaxBytes: 10 << 20, Background: "any",
			},
			model.MarketplaceYandex: {
				Width: 1000, Height: 1000, Ratio: "1:1",
				MaxBytes: 10 << 20, Background: "white",
			},
		},
		categories: map[string]categoryRule{
			"electronics": {TargetMargin: 0.25, MinMarkup: 0.12},
			"clothing":    {TargetMargin: 0.40, MinMarkup: 0.20},
			"cosmetics":   {TargetMargin: 0.45, MinMarkup: 0.25},
			"perfume":     {TargetMargin: 0.45, MinMarkup: 0.25},
			"food":        {TargetMargin: 0.25, MinMarkup: 0.10},
			"toys":        {TargetMargin: 0.35, MinMarkup: 0.18},
			"home":        {TargetMargin: 0.30, MinMarkup: 0.15},
			"default":     {TargetMargin: 0.30, MinMarkup: 0.15},
		},
		titleCaps: map[model.Marketplace]int{
			model.MarketplaceUzum:   80,
			model.MarketplaceYandex: 150,
		},
		minDescLens: map[model.Marketplace]int{
			model.MarketplaceUzum:   100,
			model.MarketplaceYandex: 150,
		},
	}

	// 季节系数：年末购物季上浮，淡季下探
	s.seasonal = [13]float64{0,
		1.05, // 1 月
		0.95, // 2 月
		1.10, // 3 月 (Navruz)
		1.00,
		1.00,
		0.95,
		0.90, // 7 月 淡季
		0.95,
		1.00,
		1.05,
		1.15, // 11 月 大促
		1.20, // 12 月 年末
	}

	return s
}

func buildStopWordSet(words ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return set
}

// ==================== 查询操作 ====================

// CommissionRate 类目佣金率；子类目优先，缺省回落 default 行
// 未收录的市场返回 UnknownCategory，绝不返回 0
func (s *FeeTableService) CommissionRate(mp model.Marketplace, category, subcategory string) (float64, error) {
	table, ok := s.commissions[mp]
	if !ok {
		return 0, apperr.Newf(apperr.KindUnknownCategory, "市场 %s 无佣金表", mp)
	}
	if subcategory != "" {
		if rate, ok := table[normalizeCategory(subcategory)]; ok {
			return rate, nil
		}
	}
	if rate, ok := table[normalizeCategory(category)]; ok {
		return rate, nil
	}
	return table["default"], nil
}

// LogisticsFee 按重量档位取物流费
func (s *FeeTableService) LogisticsFee(mp model.Marketplace, f model.Fulfillment, weightKg float64) (int64, error) {
	table, ok := s.logistics[mp]
	if !ok {
		return 0, apperr.Newf(apperr.KindUnknownCategory, "市场 %s 无物流表", mp)
	}
	buckets, ok := table[f]
	if !ok {
		// 未收录的履约模式回落到 FBS 档
		buckets, ok = table[model.FulfillmentFBS]
		if !ok {
			return 0, apperr.Newf(apperr.KindUnknownCategory, "市场 %s 履约模式 %s 无物流档位", mp, f)
		}
	}
	for _, b := range buckets {
		if b.MaxKg > 0 && weightKg <= b.MaxKg {
			return b.FeeUZS, nil
		}
	}
	return buckets[len(buckets)-1].FeeUZS, nil
}

// PayoutFee 回款手续费率；空频率按月结（0 费率）
func (s *FeeTableService) PayoutFee(mp model.Marketplace, freq model.PayoutFrequency) (float64, error) {
	table, ok := s.payouts[mp]
	if !ok {
		return 0, apperr.Newf(apperr.KindUnknownCategory, "市场 %s 无回款费率表", mp)
	}
	if freq == "" {
		freq = model.PayoutMonthly
	}
	if rate, ok := table[freq]; ok {
		return rate, nil
	}
	return table[model.PayoutMonthly], nil
}

// TaxRate 流水税率
func (s *FeeTableService) TaxRate(mp model.Marketplace) float64 {
	return s.taxRegimes[mp]
}

// SeasonalMultiplier 月份季节系数
func (s *FeeTableService) SeasonalMultiplier(month time.Month) float64 {
	if month < 1 || month > 12 {
		return 1.0
	}
	return s.seasonal[month]
}

// StopWords 市场禁用词集合（小写）
func (s *FeeTableService) StopWords(mp model.Marketplace) map[string]struct{} {
	return s.stopWords[mp]
}

// MediaSpec 市场主图规格
func (s *FeeTableService) MediaSpec(mp model.Marketplace) MediaSpec {
	if spec, ok := s.mediaSpecs[mp]; ok {
		return spec
	}
	return s.mediaSpecs[model.MarketplaceUzum]
}

// TargetMargin 类目目标毛利率
func (s *FeeTableService) TargetMargin(category string) float64 {
	if rule, ok := s.categories[normalizeCategory(category)]; ok {
		return rule.TargetMargin
	}
	return s.categories["default"].TargetMargin
}

// MinMarkup 类目最低加价率
func (s *FeeTableService) MinMarkup(category string) float64 {
	if rule, ok := s.categories[normalizeCategory(category)]; ok {
		return rule.MinMarkup
	}
	return s.categories["default"].MinMarkup
}

// TitleCap 市场标题字符上限
func (s *FeeTableService) TitleCap(mp model.Marketplace) int {
	if c, ok := s.titleCaps[mp]; ok {
		return c
	}
	return 80
}

// MinDescriptionLen 市场描述最小长度
func (s *FeeTableService) MinDescriptionLen(mp model.Marketplace) int {
	if l, ok := s.minDescLens[mp]; ok {
		return l
	}
	return 100
}

func normalizeCategory(c string) string {
	return strings.ToLower(strings.TrimSpace(c))
}
