package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/response"
)

// BookingHandler 预约模块 HTTP 处理器
type BookingHandler struct {
	bookingSvc service.BookingService
}

// NewBookingHandler 创建 BookingHandler
func NewBookingHandler(bookingSvc service.BookingService) *BookingHandler {
	return &BookingHandler{bookingSvc: bookingSvc}
}

// CreateBooking 发起预约
// POST /api/v1/bookings
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.AttemptBooking(c.Request.Context(), caller, &req)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.Created(c, booking)
}

// CancelBooking 取消预约；本人或管理员
// POST /api/v1/bookings/:id/cancel
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	caller, ok := MustGetCaller(c)
	if !ok {
		return
	}

	result, err := h.bookingSvc.CancelBooking(c.Request.Context(), caller, c.Param("id"))
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, result)
}

// ConfirmBooking 确认散客付款（管理员）
// POST /api/v1/bookings/:id/confirm
func (h *BookingHandler) ConfirmBooking(c *gin.Context) {
	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	booking, err := h.bookingSvc.ConfirmBooking(c.Request.Context(), c.Param("id"), callerID)
	if err != nil {
		h.handleBookingError(c, err)
		return
	}

	response.OK(c, booking)
}

// ListMyBookings 我的预约
// GET /api/v1/bookings/me?include_cancelled=true
func (h *BookingHandler) ListMyBookings(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	includeCancelled := c.Query("include_cancelled") == "true"
	bookings, err := h.bookingSvc.ListMine(c.Request.Context(), userID, includeCancelled)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OK(c, gin.H{"list": bookings})
}

// CalendarFeed 我的预约日历订阅（iCalendar）
// GET /api/v1/bookings/me/calendar.ics
func (h *BookingHandler) CalendarFeed(c *gin.Context) {
	userID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	feed, err := h.bookingSvc.CalendarFeed(c.Request.Context(), userID)
	if err != nil {
		response.InternalError(c)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="uabc-bookings.ics"`)
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", feed)
}

// handleBookingError 统一处理预约模块业务错误
func (h *BookingHandler) handleBookingError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 16001, "场次不存在")
	case errors.Is(err, service.ErrBookingNotFound):
		response.NotFound(c, 17001, "预约不存在")
	case errors.Is(err, service.ErrBookingForbidden):
		response.Forbidden(c, 17002, "只能取消自己的预约")
	case errors.Is(err, service.ErrBookingNotConfirmable):
		response.Conflict(c, 17003, "预约已取消，无法确认")
	case errors.Is(err, service.ErrInvalidSlotKind):
		response.BadRequest(c, 17004, "名额类型无效")
	case errors.Is(err, service.ErrUserNotFound):
		response.NotFound(c, 20001, "用户不存在")
	default:
		handleCategoryError(c, err)
	}
}
