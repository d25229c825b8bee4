package controller

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"uzum_erp_v1_202608/internal/marketplace"
	"uzum_erp_v1_202608/internal/model"
)

// ==================== 控制器 ====================

// MarketplaceController 市场读写面控制器
// 读操作与价格/库存更新直连适配器；商品创建走流水线，不在这里
type MarketplaceController struct {
	adapters *marketplace.Registry
}

func NewMarketplaceController(adapters *marketplace.Registry) *MarketplaceController {
	return &MarketplaceController{adapters: adapters}
}

func (ctrl *MarketplaceController) adapter(c *gin.Context) (marketplace.Adapter, bool) {
	mp := model.Marketplace(c.Param("marketplace"))
	if !mp.Valid() {
		badRequest(c, "不支持的市场: "+string(mp))
		return nil, false
	}
	adapter, err := ctrl.adapters.ForRead(c.Request.Context(), c.Param("partner_id"), mp)
	if err != nil {
		fail(c, err)
		return nil, false
	}
	return adapter, true
}

// ==================== API 方法 ====================

// ListOffers 商品列表
// @Summary 拉取市场商品列表及状态统计
// @Tags Marketplace
// @Param partner_id path string true "伙伴ID"
// @Param marketplace path string true "市场"
// @Success 200 {object} marketplace.OfferList
// @Router /api/marketplace/{partner_id}/{marketplace}/offers [get]
func (ctrl *MarketplaceController) ListOffers(c *gin.Context) {
	adapter, okFlag := ctrl.adapter(c)
	if !okFlag {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "50"))

	list, err := adapter.ListOffers(c.Request.Context(), page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, list)
}

// GetOfferStatus 单品状态
// @Summary 查询单个商品的审核/上架状态
// @Tags Marketplace
// @Success 200 {object} marketplace.StatusResult
// @Router /api/marketplace/{partner_id}/{marketplace}/offers/{offer_id}/status [get]
func (ctrl *MarketplaceController) GetOfferStatus(c *gin.Context) {
	adapter, okFlag := ctrl.adapter(c)
	if !okFlag {
		return
	}
	status, err := adapter.OfferStatus(c.Request.Context(), c.Param("offer_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, status)
}

// priceReq 调价入参
type priceReq struct {
	PriceUZS int64  `json:"price_uzs" binding:"required,gt=0"`
	Currency string `json:"currency"`
}

// UpdatePrice 调价
// @Summary 更新商品售价
// @Tags Marketplace
// @Success 200 {object} map[string]interface{}
// @Router /api/marketplace/{partner_id}/{marketplace}/offers/{offer_id}/price [put]
func (ctrl *MarketplaceController) UpdatePrice(c *gin.Context) {
	var req priceReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	adapter, okFlag := ctrl.adapter(c)
	if !okFlag {
		return
	}
	if err := adapter.UpdatePrice(c.Request.Context(), c.Param("offer_id"), req.PriceUZS, req.Currency); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"updated": true})
}

// stockReq 库存入参
type stockReq struct {
	Amount int `json:"amount" binding:"min=0"`
}

// UpdateStock 更新库存
// @Summary 更新商品库存
// @Tags Marketplace
// @Success 200 {object} map[string]interface{}
// @Router /api/marketplace/{partner_id}/{marketplace}/offers/{offer_id}/stock [put]
func (ctrl *MarketplaceController) UpdateStock(c *gin.Context) {
	var req stockReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	adapter, okFlag := ctrl.adapter(c)
	if !okFlag {
		return
	}
	if err := adapter.UpdateStock(c.Request.Context(), c.Param("offer_id"), req.Amount); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"updated": true})
}

// FetchOrders 订单列表
// @Summary 拉取市场订单
// @Tags Marketplace
// @Success 200 {array} marketplace.Order
// @Router /api/marketplace/{partner_id}/{marketplace}/orders [get]
func (ctrl *MarketplaceController) FetchOrders(c *gin.Context) {
	adapter, okFlag := ctrl.adapter(c)
	if !okFlag {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	orders, err := adapter.FetchOrders(c.Request.Context(), page, c.Query("status"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, orders)
}

// GetSalesStats 销售统计
// @Summary 统计时间段内的销售额
// @Tags Marketplace
// @Param from query string true "起始日期 YYYY-MM-DD"
// @Param to query string true "截止日期 YYYY-MM-DD"
// @Success 200 {object} marketplace.SalesStats
// @Router /api/marketplace/{partner_id}/{marketplace}/sales [get]
func (ctrl *MarketplaceController) GetSalesStats(c *gin.Context) {
	from, err := time.Parse("2006-01-02", c.Query("from"))
	if err != nil {
		badRequest(c, "from 日期格式错误，应为 YYYY-MM-DD")
		return
	}
	to, err := time.Parse("2006-01-02", c.Query("to"))
	if err != nil {
		badRequest(c, "to 日期格式错误，应为 YYYY-MM-DD")
		return
	}

	adapter, okFlag := ctrl.adapter(c)
	if !okFlag {
		return
	}
	stats, err := adapter.SalesStats(c.Request.Context(), from, to.AddDate(0, 0, 1))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}
