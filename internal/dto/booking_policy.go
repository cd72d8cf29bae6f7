package dto

// ── 预约策略 DTO ──

// BookingPolicyResponse 每周预约上限
type BookingPolicyResponse struct {
	MemberWeeklyLimit int    `json:"member_weekly_limit"`
	CasualWeeklyLimit int    `json:"casual_weekly_limit"`
	UpdatedAt         string `json:"updated_at,omitempty"`
}

// UpdateBookingPolicyRequest 更新每周预约上限
type UpdateBookingPolicyRequest struct {
	MemberWeeklyLimit *int `json:"member_weekly_limit" binding:"omitempty,min=0,max=14"`
	CasualWeeklyLimit *int `json:"casual_weekly_limit" binding:"omitempty,min=0,max=14"`
}
