package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/repository"
)

// ==================== 控制器 ====================

// PartnerController 合作伙伴控制器
type PartnerController struct {
	partners repository.PartnerRepository
}

func NewPartnerController(partners repository.PartnerRepository) *PartnerController {
	return &PartnerController{partners: partners}
}

// createPartnerReq 入驻入参
type createPartnerReq struct {
	Name                string  `json:"name" binding:"required"`
	Phone               string  `json:"phone"`
	Tariff              string  `json:"tariff"`
	MonthlyFeeUSD       float64 `json:"monthly_fee_usd"`
	RevenueSharePercent float64 `json:"revenue_share_percent"`
}

// ==================== API 方法 ====================

// Create 入驻新伙伴
// @Summary 创建合作伙伴
// @Tags Partner
// @Accept json
// @Param body body createPartnerReq true "伙伴信息"
// @Success 201 {object} model.Partner
// @Router /api/partners [post]
func (ctrl *PartnerController) Create(c *gin.Context) {
	var req createPartnerReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	partner := &model.Partner{
		PartnerID: uuid.NewString(),
		Name:      req.Name,
		Phone:     req.Phone,
	}
	if req.Tariff != "" {
		partner.Tariff = model.Tariff(req.Tariff)
	}
	if req.MonthlyFeeUSD > 0 {
		partner.MonthlyFeeUSD = req.MonthlyFeeUSD
	}
	if req.RevenueSharePercent > 0 {
		partner.RevenueSharePercent = req.RevenueSharePercent
	}

	if err := ctrl.partners.Create(c.Request.Context(), partner); err != nil {
		fail(c, err)
		return
	}
	created(c, partner)
}

// Get 伙伴详情
// @Summary 查询伙伴详情
// @Tags Partner
// @Param partner_id path string true "伙伴ID"
// @Success 200 {object} model.Partner
// @Router /api/partners/{partner_id} [get]
func (ctrl *PartnerController) Get(c *gin.Context) {
	partner, err := ctrl.partners.GetByPartnerID(c.Request.Context(), c.Param("partner_id"))
	if err != nil {
		c.JSON(404, gin.H{"code": 404, "message": "伙伴不存在"})
		return
	}
	ok(c, partner)
}

// List 伙伴列表
// @Summary 分页查询伙伴
// @Tags Partner
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {array} model.Partner
// @Router /api/partners [get]
func (ctrl *PartnerController) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	partners, total, err := ctrl.partners.List(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"partners": partners, "total": total})
}
