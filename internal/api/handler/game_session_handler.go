package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// GameSessionHandler 场次模块 HTTP 处理器
type GameSessionHandler struct {
	sessionSvc service.GameSessionService
	bookingSvc service.BookingService
}

// NewGameSessionHandler 创建 GameSessionHandler
func NewGameSessionHandler(sessionSvc service.GameSessionService, bookingSvc service.BookingService) *GameSessionHandler {
	return &GameSessionHandler{sessionSvc: sessionSvc, bookingSvc: bookingSvc}
}

// ────────────────────── 物化 ──────────────────────

// MaterializeTemplate 按模板生成学期内全部场次，可重复调用
// POST /api/v1/schedule-templates/:id/materialize
func (h *GameSessionHandler) MaterializeTemplate(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.MaterializeSessions(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// MaterializeSemester 物化学期下全部模板
// POST /api/v1/semesters/:id/materialize
func (h *GameSessionHandler) MaterializeSemester(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	result, err := h.sessionSvc.MaterializeSemester(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, result)
}

// ────────────────────── 场次 ──────────────────────

// ListSessions 场次列表
// GET /api/v1/sessions?semester_id=&from=&to=
func (h *GameSessionHandler) ListSessions(c *gin.Context) {
	var req dto.SessionListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	sessions, err := h.sessionSvc.List(c.Request.Context(), &req)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// GetSession 场次详情
// GET /api/v1/sessions/:id
func (h *GameSessionHandler) GetSession(c *gin.Context) {
	session, err := h.sessionSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// CreateSession 手动创建单次场次（管理员）
// POST /api/v1/sessions
func (h *GameSessionHandler) CreateSession(c *gin.Context) {
	var req dto.CreateAdHocSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.CreateAdHoc(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// CancelSession 取消场次并取消其全部有效预约（管理员）
// POST /api/v1/sessions/:id/cancel
func (h *GameSessionHandler) CancelSession(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.CancelSession(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// GetBookingWindow 场次预约窗口
// GET /api/v1/sessions/:id/window
func (h *GameSessionHandler) GetBookingWindow(c *gin.Context) {
	window, err := h.sessionSvc.GetBookingWindow(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, window)
}

// GetCapacity 场次剩余名额
// GET /api/v1/sessions/:id/capacity
func (h *GameSessionHandler) GetCapacity(c *gin.Context) {
	capacity, err := h.sessionSvc.GetCapacity(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, capacity)
}

// ListSessionBookings 场次报名名单（管理员）
// GET /api/v1/sessions/:id/bookings
func (h *GameSessionHandler) ListSessionBookings(c *gin.Context) {
	bookings, err := h.bookingSvc.ListBySession(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": bookings})
}

// handleSessionError 统一处理场次模块业务错误
func (h *GameSessionHandler) handleSessionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 16001, "场次不存在")
	case errors.Is(err, service.ErrTemplateNotFound):
		response.NotFound(c, 15001, "场次模板不存在")
	case errors.Is(err, service.ErrSemesterNotFound):
		response.NotFound(c, 14001, "学期不存在")
	case errors.Is(err, service.ErrSessionDateInvalid):
		response.Unprocessable(c, 16002, "场次日期无效或不在学期范围内")
	case errors.Is(err, service.ErrSessionCancelled):
		response.Conflict(c, 16003, "场次已取消")
	default:
		handleCategoryError(c, err)
	}
}
