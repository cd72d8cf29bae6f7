package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// ScheduleTemplateHandler 场次模板 HTTP 处理器
type ScheduleTemplateHandler struct {
	templateSvc service.ScheduleTemplateService
}

// NewScheduleTemplateHandler 创建 ScheduleTemplateHandler
func NewScheduleTemplateHandler(templateSvc service.ScheduleTemplateService) *ScheduleTemplateHandler {
	return &ScheduleTemplateHandler{templateSvc: templateSvc}
}

// ListTemplates 学期下的场次模板
// GET /api/v1/schedule-templates?semester_id=
func (h *ScheduleTemplateHandler) ListTemplates(c *gin.Context) {
	semesterID := c.Query("semester_id")
	if semesterID == "" {
		response.BadRequest(c, 10001, "semester_id 不能为空")
		return
	}

	tpls, err := h.templateSvc.ListBySemester(c.Request.Context(), semesterID)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": tpls})
}

// GetTemplate 获取场次模板
// GET /api/v1/schedule-templates/:id
func (h *ScheduleTemplateHandler) GetTemplate(c *gin.Context) {
	tpl, err := h.templateSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, tpl)
}

// CreateTemplate 创建场次模板
// POST /api/v1/schedule-templates
func (h *ScheduleTemplateHandler) CreateTemplate(c *gin.Context) {
	var req dto.CreateScheduleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tpl, err := h.templateSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.Created(c, tpl)
}

// UpdateTemplate 更新场次模板（不影响已生成场次）
// PUT /api/v1/schedule-templates/:id
func (h *ScheduleTemplateHandler) UpdateTemplate(c *gin.Context) {
	var req dto.UpdateScheduleTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	tpl, err := h.templateSvc.Update(c.Request.Context(), c.Param("id"), &req, callerID)
	if err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, tpl)
}

// DeleteTemplate 删除场次模板
// DELETE /api/v1/schedule-templates/:id
func (h *ScheduleTemplateHandler) DeleteTemplate(c *gin.Context) {
	if err := h.templateSvc.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.handleTemplateError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleTemplateError 统一处理场次模板业务错误
func (h *ScheduleTemplateHandler) handleTemplateError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 15001, "场次模板不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrTemplateTimeInvalid):
		response.Unprocessable(c, 15002, "开始时刻必须早于结束时刻")
	case errors.Is(err, service.ErrTemplateCapacityInvalid):
		response.Unprocessable(c, 15003, "名额不能为负数")
	case errors.Is(err, service.ErrTemplateWeekdayInvalid):
		response.Unprocessable(c, 15004, "星期必须在 1-7 之间")
	case errors.Is(err, service.ErrConflict):
		response.Conflict(c, 15009, "模板已被他人修改，请刷新后重试")
	default:
		handleCategoryError(c, err)
	}
}
