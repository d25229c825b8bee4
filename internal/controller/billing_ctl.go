package controller

import (
	"time"

	"github.com/gin-gonic/gin"

	"uzum_erp_v1_202608/internal/middleware"
	"uzum_erp_v1_202608/internal/repository"
	"uzum_erp_v1_202608/internal/service"
)

// 手动跑账冷却窗口
const billingCooldown = time.Minute

// ==================== 控制器 ====================

// BillingController 计费控制器
type BillingController struct {
	billing  *service.BillingService
	partners repository.PartnerRepository
	invoices repository.InvoiceRepository
	limiter  *middleware.PartnerRateLimiter
}

func NewBillingController(billing *service.BillingService, partners repository.PartnerRepository, invoices repository.InvoiceRepository) *BillingController {
	return &BillingController{
		billing:  billing,
		partners: partners,
		invoices: invoices,
		limiter:  middleware.GetPartnerLimiter(),
	}
}

// ==================== API 方法 ====================

// RunCycle 手动触发单伙伴当期跑账
// @Summary 对指定伙伴跑当期账单
// @Tags Billing
// @Param partner_id path string true "伙伴ID"
// @Success 200 {object} model.Invoice
// @Router /api/billing/{partner_id}/run [post]
func (ctrl *BillingController) RunCycle(c *gin.Context) {
	partnerID := c.Param("partner_id")

	check := ctrl.limiter.Check(middleware.BillingKey(partnerID), billingCooldown)
	if !check.Allowed {
		c.JSON(429, gin.H{
			"code":    429,
			"message": "跑账过于频繁，请稍后再试",
		})
		return
	}

	partner, err := ctrl.partners.GetByPartnerID(c.Request.Context(), partnerID)
	if err != nil {
		c.JSON(404, gin.H{"code": 404, "message": "伙伴不存在"})
		return
	}

	invoice, err := ctrl.billing.RunPartnerCycle(c.Request.Context(), partner, time.Now())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, invoice)
}

// GetStatus 查询伙伴账务状态
// @Summary 查询伙伴欠款与封禁状态
// @Tags Billing
// @Param partner_id path string true "伙伴ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/billing/{partner_id}/status [get]
func (ctrl *BillingController) GetStatus(c *gin.Context) {
	partner, err := ctrl.partners.GetByPartnerID(c.Request.Context(), c.Param("partner_id"))
	if err != nil {
		c.JSON(404, gin.H{"code": 404, "message": "伙伴不存在"})
		return
	}

	now := time.Now()
	ok(c, gin.H{
		"partner_id":      partner.PartnerID,
		"state":           ctrl.billing.EvaluateState(partner, now),
		"total_debt_uzs":  partner.TotalDebtUZS,
		"blocked":         partner.IsBlocked(now),
		"blocked_until":   partner.BlockedUntil,
		"last_payment_at": partner.LastPaymentAt,
	})
}

// ListInvoices 查询伙伴账单
// @Summary 查询伙伴历史账单
// @Tags Billing
// @Param partner_id path string true "伙伴ID"
// @Success 200 {array} model.Invoice
// @Router /api/billing/{partner_id}/invoices [get]
func (ctrl *BillingController) ListInvoices(c *gin.Context) {
	invoices, err := ctrl.invoices.ListByPartner(c.Request.Context(), c.Param("partner_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, invoices)
}

// paymentReq 登记付款入参
type paymentReq struct {
	AmountUZS int64 `json:"amount_uzs" binding:"required,gt=0"`
}

// RegisterPayment 登记付款
// @Summary 登记伙伴付款并冲销账单
// @Tags Billing
// @Param partner_id path string true "伙伴ID"
// @Param body body paymentReq true "付款金额"
// @Success 200 {object} map[string]interface{}
// @Router /api/billing/{partner_id}/payments [post]
func (ctrl *BillingController) RegisterPayment(c *gin.Context) {
	var req paymentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	debt, err := ctrl.billing.RegisterPayment(c.Request.Context(), c.Param("partner_id"), req.AmountUZS)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"remaining_debt_uzs": debt})
}
