package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// handleCategoryError 按错误分类兜底映射：
// 配置错误 422，不可预约/名额/并发冲突 409，额度 403（含重复预约）。
// 未识别的错误返回 500
func handleCategoryError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrConfiguration):
		response.ErrorWithDetails(c, http.StatusUnprocessableEntity, 30000, "配置错误", err.Error())
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, 30001, "并发冲突，请重试")
	case errors.Is(err, service.ErrNotBookable):
		response.ErrorWithDetails(c, http.StatusConflict, 30002, "场次不可预约", err.Error())
	case errors.Is(err, service.ErrCapacity):
		response.ErrorWithDetails(c, http.StatusConflict, 30003, "名额不足", err.Error())
	case errors.Is(err, service.ErrQuota):
		response.ErrorWithDetails(c, http.StatusForbidden, 30004, "预约额度不足", err.Error())
	default:
		response.InternalError(c)
	}
}
