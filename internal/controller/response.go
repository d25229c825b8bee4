package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"uzum_erp_v1_202608/internal/apperr"
)

// ==================== 统一响应 ====================

// ok 成功响应
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

// created 创建成功响应
func created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

// fail 业务错误 → HTTP 状态码映射
func fail(c *gin.Context, err error) {
	status := statusOf(apperr.KindOf(err))
	body := gin.H{
		"code":    status,
		"message": err.Error(),
	}
	if kind := apperr.KindOf(err); kind != "" {
		body["error"] = string(kind)
	}
	if details := apperr.DetailsOf(err); details != nil {
		body["details"] = details
	}
	c.JSON(status, body)
}

// badRequest 入参绑定错误
func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    400,
		"message": msg,
	})
}

func statusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindAuthFailed:
		return http.StatusUnauthorized
	case apperr.KindAccountBlocked:
		return http.StatusForbidden
	case apperr.KindUnsupported:
		return http.StatusMethodNotAllowed
	case apperr.KindDuplicateSKU:
		return http.StatusConflict
	case apperr.KindUnknownCategory:
		return http.StatusUnprocessableEntity
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindTimeout:
		return http.StatusGatewayTimeout
	case apperr.KindUpstream, apperr.KindUpload,
		apperr.KindRecognition, apperr.KindCardGeneration, apperr.KindInfographic:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
