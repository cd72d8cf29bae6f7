package dto

// ── 预约模块 DTO ──

// CreateBookingRequest 发起预约
type CreateBookingRequest struct {
	SessionID string `json:"session_id" binding:"required,uuid"`
	SlotKind  string `json:"slot_kind"  binding:"required,oneof=member casual"`
}

// BookingResponse 预约响应
type BookingResponse struct {
	ID          string               `json:"id"`
	SessionID   string               `json:"session_id"`
	UserID      string               `json:"user_id"`
	Status      string               `json:"status"`
	SlotKind    string               `json:"slot_kind"`
	ConfirmedAt *string              `json:"confirmed_at,omitempty"`
	CancelledAt *string              `json:"cancelled_at,omitempty"`
	CreatedAt   string               `json:"created_at"`
	Session     *GameSessionResponse `json:"session,omitempty"`
	User        *UserResponse        `json:"user,omitempty"`
}

// CancelBookingResponse 取消结果；AlreadyCancelled 为 true 表示本次为幂等空操作
type CancelBookingResponse struct {
	Booking          BookingResponse `json:"booking"`
	AlreadyCancelled bool            `json:"already_cancelled"`
	Refunded         bool            `json:"refunded"`
}
