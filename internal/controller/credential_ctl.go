package controller

import (
	"github.com/gin-gonic/gin"

	"uzum_erp_v1_202608/internal/marketplace"
	"uzum_erp_v1_202608/internal/model"
	"uzum_erp_v1_202608/internal/service"
)

// ==================== 控制器 ====================

// CredentialController 市场凭证控制器
// 写入走保险柜加密，读出永远只给脱敏概览
type CredentialController struct {
	vault    *service.VaultService
	adapters *marketplace.Registry
}

func NewCredentialController(vault *service.VaultService, adapters *marketplace.Registry) *CredentialController {
	return &CredentialController{vault: vault, adapters: adapters}
}

// saveCredentialReq 保存凭证入参
type saveCredentialReq struct {
	PartnerID   string `json:"partner_id" binding:"required"`
	Marketplace string `json:"marketplace" binding:"required"`

	APIKey     string `json:"api_key,omitempty"`
	APISecret  string `json:"api_secret,omitempty"`
	Login      string `json:"login,omitempty"`
	Password   string `json:"password,omitempty"`
	CampaignID string `json:"campaign_id,omitempty"`
	BusinessID string `json:"business_id,omitempty"`
}

// ==================== API 方法 ====================

// Save 保存凭证
// @Summary 保存 (partner, marketplace) 凭证，敏感字段加密落库
// @Tags Credential
// @Accept json
// @Param body body saveCredentialReq true "凭证"
// @Success 201 {object} map[string]interface{}
// @Router /api/credentials [post]
func (ctrl *CredentialController) Save(c *gin.Context) {
	var req saveCredentialReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	mp := model.Marketplace(req.Marketplace)
	if !mp.Valid() {
		badRequest(c, "不支持的市场: "+req.Marketplace)
		return
	}

	err := ctrl.vault.Save(c.Request.Context(), req.PartnerID, mp, &service.CredentialInput{
		APIKey:     req.APIKey,
		APISecret:  req.APISecret,
		Login:      req.Login,
		Password:   req.Password,
		CampaignID: req.CampaignID,
		BusinessID: req.BusinessID,
	})
	if err != nil {
		fail(c, err)
		return
	}
	created(c, gin.H{"partner_id": req.PartnerID, "marketplace": mp})
}

// List 凭证概览（脱敏）
// @Summary 查询伙伴凭证概览，不返回任何明文秘密
// @Tags Credential
// @Param partner_id path string true "伙伴ID"
// @Success 200 {array} service.CredentialSummary
// @Router /api/credentials/{partner_id} [get]
func (ctrl *CredentialController) List(c *gin.Context) {
	summaries, err := ctrl.vault.List(c.Request.Context(), c.Param("partner_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, summaries)
}

// Deactivate 停用凭证
// @Summary 停用 (partner, marketplace) 凭证
// @Tags Credential
// @Param partner_id path string true "伙伴ID"
// @Param marketplace path string true "市场"
// @Success 200 {object} map[string]interface{}
// @Router /api/credentials/{partner_id}/{marketplace} [delete]
func (ctrl *CredentialController) Deactivate(c *gin.Context) {
	mp := model.Marketplace(c.Param("marketplace"))
	if err := ctrl.vault.Deactivate(c.Request.Context(), c.Param("partner_id"), mp); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"deactivated": true})
}

// TestConnection 验证凭证连通性
// @Summary 用已存凭证测试市场连接
// @Tags Credential
// @Param partner_id path string true "伙伴ID"
// @Param marketplace path string true "市场"
// @Success 200 {object} marketplace.ConnectionResult
// @Router /api/credentials/{partner_id}/{marketplace}/test [post]
func (ctrl *CredentialController) TestConnection(c *gin.Context) {
	mp := model.Marketplace(c.Param("marketplace"))
	adapter, err := ctrl.adapters.ForRead(c.Request.Context(), c.Param("partner_id"), mp)
	if err != nil {
		fail(c, err)
		return
	}
	result, err := adapter.TestConnection(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, result)
}
