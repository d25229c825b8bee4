package service

import (
	"context"
	"log"
	"math"
	"time"

	"uzum_erp_v1_202608/internal/model"
)

// ==================== 结果定义 ====================

// PriceCalc 定价结果；价格一律为整数苏姆
type PriceCalc struct {
	MinPriceUZS     int64   `json:"min_price_uzs"`
	OptimalPriceUZS int64   `json:"optimal_price_uzs"`
	MaxPriceUZS     int64   `json:"max_price_uzs"`
	NetProfitUZS    int64   `json:"net_profit_uzs"`
	ActualMargin    float64 `json:"actual_margin"`
	IsCompetitive   bool    `json:"is_competitive"`
	IsProfitable    bool    `json:"is_profitable"`

	// --- 计算明细 ---
	CommissionRate   float64 `json:"commission_rate"`
	PayoutFeeRate    float64 `json:"payout_fee_rate"`
	TaxRate          float64 `json:"tax_rate"`
	LogisticsFeeUZS  int64   `json:"logistics_fee_uzs"`
	SeasonalMultiple float64 `json:"seasonal_multiplier"`
	CompetitorAvgUZS int64   `json:"competitor_avg_uzs,omitempty"`
}

// PriceRequest 定价输入
type PriceRequest struct {
	Marketplace      model.Marketplace
	Category         string
	Subcategory      string
	CostPriceUZS     int64
	WeightKg         float64
	Fulfillment      model.Fulfillment
	PayoutFreq       model.PayoutFrequency
	CompetitorAvgUZS int64 // 0 = 未知
}

// 盈利线：调整后毛利率高于 15% 才算有利润
const profitableMarginFloor = 0.15

// ==================== 服务 ====================

// PricingService 季节调整、竞品感知的定价器
// 全部数字来源于费率表 (FeeTableService)，自身无任何硬编码费率
type PricingService struct {
	fees *FeeTableService
	ai   *AIService // 竞品摘要来源；可为 nil
	now  func() time.Time
}

// NewPricingService 创建定价服务
func NewPricingService(fees *FeeTableService, ai *AIService) *PricingService {
	return &PricingService{
		fees: fees,
		ai:   ai,
		now:  time.Now,
	}
}

// SetClock 注入时钟（测试季节系数用）
func (s *PricingService) SetClock(now func() time.Time) {
	s.now = now
}

// ==================== 定价 ====================

// Calculate 计算价格区间
//
//  1. 基准价 = cost / (1 − commission − payout − tax) + logistics，
//     再抬到满足类目目标毛利率
//  2. 有竞品均价时收敛进 [0.85·avg, 1.10·avg]
//  3. 乘当月季节系数
//  4. 重算毛利；最低价 = cost × (1+minMarkup)，最高价 = optimal × 1.25
func (s *PricingService) Calculate(req *PriceRequest) (*PriceCalc, error) {
	commission, err := s.fees.CommissionRate(req.Marketplace, req.Category, req.Subcategory)
	if err != nil {
		return nil, err
	}
	payoutFee, err := s.fees.PayoutFee(req.Marketplace, req.PayoutFreq)
	if err != nil {
		return nil, err
	}
	logistics, err := s.fees.LogisticsFee(req.Marketplace, req.Fulfillment, req.WeightKg)
	if err != nil {
		return nil, err
	}
	tax := s.fees.TaxRate(req.Marketplace)
	targetMargin := s.fees.TargetMargin(req.Category)
	minMarkup := s.fees.MinMarkup(req.Category)
	seasonal := s.fees.SeasonalMultiplier(s.now().Month())

	cost := float64(req.CostPriceUZS)
	feeRate := commission + payoutFee + tax

	// 1. 基准价与目标毛利价取高者
	base := cost/(1-feeRate) + float64(logistics)
	withMargin := (cost + float64(logistics)) / (1 - feeRate - targetMargin)
	optimal := math.Max(base, withMargin)

	// 2. 竞品收敛
	if req.CompetitorAvgUZS > 0 {
		avg := float64(req.CompetitorAvgUZS)
		optimal = math.Min(math.Max(optimal, 0.85*avg), 1.10*avg)
	}

	// 3. 季节系数
	optimal *= seasonal

	// 5. 区间边界；最优价不允许跌破最低价
	minPrice := cost * (1 + minMarkup)
	if optimal < minPrice {
		optimal = minPrice
	}
	maxPrice := optimal * 1.25

	// 4. 调整后重算毛利
	netProfit := optimal*(1-feeRate) - cost - float64(logistics)
	margin := 0.0
	if optimal > 0 {
		margin = netProfit / optimal
	}

	isCompetitive := req.CompetitorAvgUZS == 0 || optimal <= 1.15*float64(req.CompetitorAvgUZS)

	return &PriceCalc{
		MinPriceUZS:      int64(math.Round(minPrice)),
		OptimalPriceUZS:  int64(math.Round(optimal)),
		MaxPriceUZS:      int64(math.Round(maxPrice)),
		NetProfitUZS:     int64(math.Round(netProfit)),
		ActualMargin:     math.Round(margin*10000) / 10000,
		IsCompetitive:    isCompetitive,
		IsProfitable:     margin > profitableMarginFloor,
		CommissionRate:   commission,
		PayoutFeeRate:    payoutFee,
		TaxRate:          tax,
		LogisticsFeeUZS:  logistics,
		SeasonalMultiple: seasonal,
		CompetitorAvgUZS: req.CompetitorAvgUZS,
	}, nil
}

// ==================== 竞品均价 ====================

// EstimateCompetitorAvg 拿竞品均价：优先问模型，模型不可用退静态启发式
func (s *PricingService) EstimateCompetitorAvg(ctx context.Context, product *CardProduct, mp model.Marketplace, costPriceUZS int64) (int64, string) {
	if s.ai != nil {
		info, err := s.ai.CompetitorSummary(ctx, product, mp)
		if err == nil && info.AvgPriceUZS > 0 {
			return info.AvgPriceUZS, info.Summary
		}
		if err != nil {
			log.Printf("[Pricing] 竞品摘要失败，退启发式: %v", err)
		}
	}
	// 静态启发式：均价 ≈ 1.1 × 成本价
	return int64(math.Round(1.1 * float64(costPriceUZS))), ""
}
