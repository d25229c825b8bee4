package task

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"uzum_erp_v1_202608/internal/repository"
	"uzum_erp_v1_202608/internal/service"
)

// ==================== BillingTask 月度计费任务 ====================

// BillingTask 计费定时任务
// 每月 1 号对上个自然月跑账；每天清晨推进逾期账单并刷新封禁指标
type BillingTask struct {
	billing  *service.BillingService
	partners repository.PartnerRepository
	invoices repository.InvoiceRepository
	cron     *cron.Cron
}

// NewBillingTask 创建计费任务
func NewBillingTask(billing *service.BillingService, partners repository.PartnerRepository, invoices repository.InvoiceRepository) *BillingTask {
	return &BillingTask{
		billing:  billing,
		partners: partners,
		invoices: invoices,
		cron:     cron.New(),
	}
}

// Start 启动定时任务
func (t *BillingTask) Start() {
	// 每月 1 号 03:00 对上月跑账
	if _, err := t.cron.AddFunc("0 3 1 * *", t.runMonthly); err != nil {
		log.Printf("[BillingTask] 注册月度任务失败: %v", err)
	}
	// 每天 04:00 推进逾期状态
	if _, err := t.cron.AddFunc("0 4 * * *", t.runDaily); err != nil {
		log.Printf("[BillingTask] 注册每日任务失败: %v", err)
	}
	t.cron.Start()
	log.Println("[BillingTask] 计费定时任务已启动")
}

// Stop 停止定时任务
func (t *BillingTask) Stop() {
	t.cron.Stop()
}

// runMonthly 对上个自然月全量跑账
func (t *BillingTask) runMonthly() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	lastMonth := time.Now().AddDate(0, -1, 0)
	t.billing.RunMonthlyCycle(ctx, lastMonth)
}

// runDaily 账单过期置 overdue，重算欠款，刷新封禁指标
func (t *BillingTask) runDaily() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	partners, err := t.partners.ListAll(ctx)
	if err != nil {
		log.Printf("[BillingTask] 加载伙伴列表失败: %v", err)
		return
	}

	now := time.Now()
	for i := range partners {
		p := &partners[i]
		if err := t.invoices.MarkOverdue(ctx, p.PartnerID, now); err != nil {
			log.Printf("[BillingTask] 伙伴 %s 账单过期标记失败: %v", p.PartnerID, err)
			continue
		}
		debt, err := t.invoices.SumOpenDebt(ctx, p.PartnerID)
		if err != nil {
			continue
		}
		if debt != p.TotalDebtUZS {
			_ = t.partners.UpdateFields(ctx, p.PartnerID, map[string]interface{}{
				"total_debt_uzs": debt,
			})
		}
	}

	t.billing.RefreshBlockedGauge(ctx)
	log.Printf("[BillingTask] 每日账务巡检完成，共 %d 个伙伴", len(partners))
}
