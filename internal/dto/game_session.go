package dto

// ── 场次模块 DTO ──

// CreateAdHocSessionRequest 管理员手动创建场次
type CreateAdHocSessionRequest struct {
	SemesterID     string `json:"semester_id"     binding:"required,uuid"`
	Date           string `json:"date"            binding:"required"` // "2025-04-09"
	StartTime      string `json:"start_time"      binding:"required"` // "18:30"
	EndTime        string `json:"end_time"        binding:"required"` // "21:00"
	VenueName      string `json:"venue_name"      binding:"required,max=200"`
	VenueAddress   string `json:"venue_address"   binding:"omitempty,max=500"`
	Capacity       *int   `json:"capacity"        binding:"required"`
	CasualCapacity *int   `json:"casual_capacity" binding:"required"`
}

// SessionListRequest 场次列表查询参数
type SessionListRequest struct {
	SemesterID       string `form:"semester_id"       binding:"omitempty,uuid"`
	From             string `form:"from"` // "2025-04-01"，含
	To               string `form:"to"`   // "2025-04-30"，含
	IncludeCancelled bool   `form:"include_cancelled"`
}

// GameSessionResponse 场次响应
type GameSessionResponse struct {
	ID             string  `json:"id"`
	TemplateID     *string `json:"template_id,omitempty"`
	SemesterID     string  `json:"semester_id"`
	Date           string  `json:"date"`
	StartTime      string  `json:"start_time"`
	EndTime        string  `json:"end_time"`
	VenueName      string  `json:"venue_name"`
	VenueAddress   string  `json:"venue_address"`
	Capacity       int     `json:"capacity"`
	CasualCapacity int     `json:"casual_capacity"`
	Status         string  `json:"status"`
}

// MaterializeResponse 物化结果
type MaterializeResponse struct {
	TemplateID string   `json:"template_id"`
	SessionIDs []string `json:"session_ids"`
	Created    int      `json:"created"`
}

// MaterializeSemesterResponse 学期批量物化结果
type MaterializeSemesterResponse struct {
	SemesterID string                `json:"semester_id"`
	Templates  []MaterializeResponse `json:"templates"`
	Created    int                   `json:"created"`
}

// BookingWindowResponse 预约窗口
type BookingWindowResponse struct {
	SessionID     string `json:"session_id"`
	OpensAt       string `json:"opens_at"`
	ClosesAt      string `json:"closes_at"`
	IsOpen        bool   `json:"is_open"`
	Misconfigured bool   `json:"misconfigured"`
}

// SessionCapacityResponse 场次容量快照
type SessionCapacityResponse struct {
	SessionID       string `json:"session_id"`
	MemberCapacity  int    `json:"member_capacity"`
	MemberUsed      int    `json:"member_used"`
	MemberRemaining int    `json:"member_remaining"`
	CasualCapacity  int    `json:"casual_capacity"`
	CasualUsed      int    `json:"casual_used"`
	CasualRemaining int    `json:"casual_remaining"`
}
