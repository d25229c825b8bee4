package controller

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"uzum_erp_v1_202608/internal/middleware"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/pipeline"
	"uzum_erp_v1_202608/internal/repository"
)

// 同一伙伴同一市场的上架冷却窗口
const listingCooldown = 10 * time.Second

// ==================== 控制器 ====================

// ListingController 上架流水线控制器
type ListingController struct {
	orchestrator *pipeline.Orchestrator
	runs         repository.PipelineRunRepository
	limiter      *middleware.PartnerRateLimiter
}

func NewListingController(orchestrator *pipeline.Orchestrator, runs repository.PipelineRunRepository) *ListingController {
	return &ListingController{
		orchestrator: orchestrator,
		runs:         runs,
		limiter:      middleware.GetPartnerLimiter(),
	}
}

// ==================== API 方法 ====================

// CreateListing 提交上架请求并同步跑完流水线
// @Summary 一张图/一个商品名到上架的完整流水线
// @Tags Listing
// @Accept json
// @Produce json
// @Param body body model.ListingRequest true "上架请求"
// @Success 201 {object} pipeline.RunResult
// @Router /api/listings [post]
func (ctrl *ListingController) CreateListing(c *gin.Context) {
	var req model.ListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	check := ctrl.limiter.Check(
		middleware.ListingKey(req.PartnerID, string(req.Marketplace)),
		listingCooldown,
	)
	if !check.Allowed {
		c.Header("Retry-After", strconv.Itoa(int(check.RetryAfter.Seconds())+1))
		c.JSON(429, gin.H{
			"code":    429,
			"message": "上架过于频繁，请稍后再试",
		})
		return
	}

	result, err := ctrl.orchestrator.Execute(c.Request.Context(), &req)
	if err != nil {
		fail(c, err)
		return
	}
	created(c, result)
}

// ListRuns 按伙伴分页查询历史运行
// @Summary 查询流水线运行记录
// @Tags Listing
// @Param partner_id query string true "伙伴ID"
// @Param page query int false "页码"
// @Param page_size query int false "每页条数"
// @Success 200 {array} model.PipelineRun
// @Router /api/listings/runs [get]
func (ctrl *ListingController) ListRuns(c *gin.Context) {
	partnerID := c.Query("partner_id")
	if partnerID == "" {
		badRequest(c, "partner_id 不能为空")
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	runs, total, err := ctrl.runs.ListByPartner(c.Request.Context(), partnerID, page, pageSize)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"runs": runs, "total": total})
}

// GetRun 查询单次运行
// @Summary 按 run_id 查询流水线运行详情
// @Tags Listing
// @Param run_id path string true "运行ID"
// @Success 200 {object} model.PipelineRun
// @Router /api/listings/runs/{run_id} [get]
func (ctrl *ListingController) GetRun(c *gin.Context) {
	run, err := ctrl.runs.GetByRunID(c.Request.Context(), c.Param("run_id"))
	if err != nil {
		c.JSON(404, gin.H{
			"code":    404,
			"message": "运行不存在",
		})
		return
	}
	ok(c, run)
}
