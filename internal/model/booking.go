package model

import "time"

// BookingStatus 预约状态
type BookingStatus string

const (
	BookingPendingPayment BookingStatus = "pending_payment"
	BookingConfirmed      BookingStatus = "confirmed"
	BookingCancelled      BookingStatus = "cancelled"
)

// Active 是否占用名额（待支付或已确认）
func (s BookingStatus) Active() bool {
	return s == BookingPendingPayment || s == BookingConfirmed
}

// CanTransitionTo 预约状态机：
// pending_payment → confirmed | cancelled；confirmed → cancelled；cancelled 为终态
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	switch s {
	case BookingPendingPayment:
		return next == BookingConfirmed || next == BookingCancelled
	case BookingConfirmed:
		return next == BookingCancelled
	}
	return false
}

// Booking 预约表 — 对应 bookings
type Booking struct {
	BookingID   string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"booking_id"`
	SessionID   string        `gorm:"type:uuid;not null"                             json:"session_id"`
	UserID      string        `gorm:"type:uuid;not null"                             json:"user_id"`
	Status      BookingStatus `gorm:"type:varchar(20);not null"                      json:"status"`
	SlotKind    SlotKind      `gorm:"type:varchar(10);not null"                      json:"slot_kind"`
	ConfirmedAt *time.Time    `json:"confirmed_at,omitempty"`
	CancelledAt *time.Time    `json:"cancelled_at,omitempty"`
	BaseModel

	// 关联
	Session *GameSession `gorm:"foreignKey:SessionID;references:SessionID" json:"session,omitempty"`
	User    *User        `gorm:"foreignKey:UserID;references:UserID"       json:"user,omitempty"`
}

// TableName 指定表名
func (Booking) TableName() string { return "bookings" }
