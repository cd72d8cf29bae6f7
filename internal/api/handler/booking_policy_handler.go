package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// BookingPolicyHandler 每周预约上限配置
type BookingPolicyHandler struct {
	policySvc service.BookingPolicyService
}

// NewBookingPolicyHandler 创建 BookingPolicyHandler
func NewBookingPolicyHandler(policySvc service.BookingPolicyService) *BookingPolicyHandler {
	return &BookingPolicyHandler{policySvc: policySvc}
}

// GetPolicy 获取预约策略
// GET /api/v1/booking-policy
func (h *BookingPolicyHandler) GetPolicy(c *gin.Context) {
	policy, err := h.policySvc.Get(c.Request.Context())
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, policy)
}

// UpdatePolicy 更新预约策略（管理员）
// PUT /api/v1/booking-policy
func (h *BookingPolicyHandler) UpdatePolicy(c *gin.Context) {
	var req dto.UpdateBookingPolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	policy, err := h.policySvc.Update(c.Request.Context(), &req, callerID)
	if err != nil {
		handleCategoryError(c, err)
		return
	}

	response.OK(c, policy)
}
