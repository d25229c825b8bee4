package service

import (
	"context"
	"log"
	"math"
	"time"

	"uzum_erp_v1_202608/internal/apperr"
	"uzum_erp_v1_202608/internal/metrics"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/repository"
)

// ==================== 配置 ====================

// BillingConfig 计费常量（默认值可被环境覆盖）
type BillingConfig struct {
	MonthlyFeeUSD       float64 // 月费
	SetupFeeUSD         float64 // 接入费
	RevenueSharePercent float64 // 流水分成 [0,1]
	GraceDays           int     // 宽限期（天）
	BlockDurationDays   int     // 封禁时长（天）
	USDToUZS            float64 // 汇率
}

// DefaultBillingConfig 默认计费参数
func DefaultBillingConfig() *BillingConfig {
	return &BillingConfig{
		MonthlyFeeUSD:       499,
		SetupFeeUSD:         699,
		RevenueSharePercent: 0.04,
		GraceDays:           7,
		BlockDurationDays:   14,
		USDToUZS:            12600,
	}
}

// ==================== 销售数据来源 ====================

// SalesProvider 跨市场销售额合计（由适配器注册表实现）
// 合同口径：统计周期内已送达订单的流水总额
type SalesProvider interface {
	SalesTotal(ctx context.Context, partnerID string, from, to time.Time) (int64, error)
}

// ==================== 账务状态 ====================

// BillingState 伙伴账务状态
type BillingState string

const (
	BillingStateActive  BillingState = "active"
	BillingStateOverdue BillingState = "overdue"
)

// ==================== 服务 ====================

// BillingService 月度分成计费引擎
// 周期：拉销售额 → 算月费+分成 → upsert 账单 → 汇总欠款 → 推进封禁状态机
type BillingService struct {
	cfg      *BillingConfig
	partners repository.PartnerRepository
	invoices repository.InvoiceRepository
	sales    SalesProvider
	now      func() time.Time
}

// NewBillingService 创建计费引擎
func NewBillingService(cfg *BillingConfig, partners repository.PartnerRepository, invoices repository.InvoiceRepository, sales SalesProvider) *BillingService {
	if cfg == nil {
		cfg = DefaultBillingConfig()
	}
	return &BillingService{
		cfg:      cfg,
		partners: partners,
		invoices: invoices,
		sales:    sales,
		now:      time.Now,
	}
}

// SetClock 注入时钟（测试用）
func (s *BillingService) SetClock(now func() time.Time) {
	s.now = now
}

// Config 当前计费参数
func (s *BillingService) Config() *BillingConfig {
	return s.cfg
}

// ==================== 月度周期 ====================

// RunMonthlyCycle 对全部伙伴跑指定月份的账
// 单个伙伴失败只记日志，不中断整轮
func (s *BillingService) RunMonthlyCycle(ctx context.Context, period time.Time) {
	partners, err := s.partners.ListAll(ctx)
	if err != nil {
		log.Printf("[Billing] 加载伙伴列表失败: %v", err)
		return
	}

	monthKey := model.MonthKeyOf(period)
	log.Printf("[Billing] 开始 %s 月度计费，共 %d 个伙伴", monthKey, len(partners))

	for i := range partners {
		p := &partners[i]
		if _, err := s.RunPartnerCycle(ctx, p, period); err != nil {
			log.Printf("[Billing] 伙伴 %s 计费失败: %v", p.PartnerID, err)
		}
	}

	log.Printf("[Billing] %s 月度计费完成", monthKey)
}

// RunPartnerCycle 对单个伙伴跑一期账
// 重复执行对同一 (partner, month) 幂等：upsert 收敛到同一账单与总额
func (s *BillingService) RunPartnerCycle(ctx context.Context, partner *model.Partner, period time.Time) (*model.Invoice, error) {
	monthKey := model.MonthKeyOf(period)
	from := time.Date(period.Year(), period.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	salesUZS, err := s.sales.SalesTotal(ctx, partner.PartnerID, from, to)
	if err != nil {
		return nil, err
	}

	monthlyFeeUZS := int64(math.Round(partner.MonthlyFeeUSD * s.cfg.USDToUZS))
	revenueShareUZS := int64(math.Floor(float64(salesUZS) * partner.RevenueSharePercent))
	totalUZS := monthlyFeeUZS + revenueShareUZS

	invoice := &model.Invoice{
		InvoiceID:       model.BuildInvoiceID(partner.PartnerID, monthKey),
		PartnerID:       partner.PartnerID,
		MonthKey:        monthKey,
		SalesUZS:        salesUZS,
		MonthlyFeeUZS:   monthlyFeeUZS,
		RevenueShareUZS: revenueShareUZS,
		TotalUZS:        totalUZS,
		DueAt:           to.AddDate(0, 0, s.cfg.GraceDays),
		Status:          model.InvoiceStatusPending,
	}
	if err := s.invoices.Upsert(ctx, invoice); err != nil {
		return nil, err
	}
	metrics.InvoicesGeneratedTotal.Inc()

	// 欠款口径：全部未结清账单之和
	debt, err := s.invoices.SumOpenDebt(ctx, partner.PartnerID)
	if err != nil {
		return nil, err
	}
	if err := s.partners.UpdateFields(ctx, partner.PartnerID, map[string]interface{}{
		"total_debt_uzs": debt,
	}); err != nil {
		return nil, err
	}
	partner.TotalDebtUZS = debt

	return invoice, nil
}

// ==================== 封禁状态机 ====================

// EvaluateState 判定账务状态（每次计费查询与每次上架写操作都要过）
//
//	active  — 无欠款；或有欠款但仍在月初宽限期内
//	overdue — 有欠款且（从未付款并已出宽限期；或距上次付款超过 30+grace 天）
func (s *BillingService) EvaluateState(partner *model.Partner, now time.Time) BillingState {
	if partner.TotalDebtUZS <= 0 {
		return BillingStateActive
	}

	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	daysSinceMonthStart := int(now.Sub(monthStart).Hours() / 24)

	if partner.LastPaymentAt == nil {
		if daysSinceMonthStart > s.cfg.GraceDays {
			return BillingStateOverdue
		}
		return BillingStateActive
	}

	daysSincePayment := int(now.Sub(*partner.LastPaymentAt).Hours() / 24)
	if daysSincePayment > 30+s.cfg.GraceDays {
		return BillingStateOverdue
	}
	return BillingStateActive
}

// CheckWriteAllowed 上架写操作守门
// overdue 时写入 blocked_until（块期 = BlockDurationDays）并返回 AccountBlocked，
// 附带欠款额与建议缴费期限
func (s *BillingService) CheckWriteAllowed(ctx context.Context, partnerID string) error {
	partner, err := s.partners.GetByPartnerID(ctx, partnerID)
	if err != nil {
		return apperr.Wrap(apperr.KindValidation, "伙伴不存在: "+partnerID, err)
	}

	now := s.now()
	if partner.IsBlocked(now) {
		return s.blockedError(partner, now)
	}

	if s.EvaluateState(partner, now) == BillingStateOverdue {
		blockedUntil := now.AddDate(0, 0, s.cfg.BlockDurationDays)
		if err := s.partners.UpdateFields(ctx, partnerID, map[string]interface{}{
			"blocked_until": blockedUntil,
		}); err != nil {
			return err
		}
		partner.BlockedUntil = &blockedUntil
		return s.blockedError(partner, now)
	}

	return nil
}

func (s *BillingService) blockedError(partner *model.Partner, now time.Time) error {
	return apperr.New(apperr.KindAccountBlocked, "账户因欠费被封禁").
		WithDetail("debt_uzs", partner.TotalDebtUZS).
		WithDetail("due_at", now.AddDate(0, 0, s.cfg.GraceDays).Format(time.RFC3339))
}

// ==================== 付款 ====================

// RegisterPayment 登记付款：按月份从旧到新冲销账单
// 欠款降到 0 时立即解除封禁（状态机回 active）
func (s *BillingService) RegisterPayment(ctx context.Context, partnerID string, amountUZS int64) (int64, error) {
	if amountUZS <= 0 {
		return 0, apperr.New(apperr.KindValidation, "付款金额必须为正")
	}

	open, err := s.invoices.ListOpenByPartner(ctx, partnerID)
	if err != nil {
		return 0, err
	}

	now := s.now()
	remaining := amountUZS
	for i := range open {
		inv := &open[i]
		if remaining < inv.TotalUZS {
			break // 不足额不冲销单张账单
		}
		if err := s.invoices.MarkPaid(ctx, inv.InvoiceID, now); err != nil {
			return 0, err
		}
		remaining -= inv.TotalUZS
	}

	debt, err := s.invoices.SumOpenDebt(ctx, partnerID)
	if err != nil {
		return 0, err
	}

	fields := map[string]interface{}{
		"total_debt_uzs":  debt,
		"last_payment_at": now,
	}
	if debt == 0 {
		fields["blocked_until"] = nil
	}
	if err := s.partners.UpdateFields(ctx, partnerID, fields); err != nil {
		return 0, err
	}

	log.Printf("[Billing] 伙伴 %s 付款 %d，剩余欠款 %d", partnerID, amountUZS, debt)
	return debt, nil
}

// RefreshBlockedGauge 刷新封禁伙伴数指标
func (s *BillingService) RefreshBlockedGauge(ctx context.Context) {
	count, err := s.partners.CountBlocked(ctx, s.now())
	if err != nil {
		return
	}
	metrics.PartnersBlockedGauge.Set(float64(count))
}
