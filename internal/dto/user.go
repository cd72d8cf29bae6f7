package dto

// ── 用户额度模块 DTO ──

// UserResponse 用户信息响应
type UserResponse struct {
	ID                string `json:"id"`
	FirstName         string `json:"first_name"`
	LastName          string `json:"last_name"`
	Email             string `json:"email"`
	Role              string `json:"role"`
	RemainingSessions int    `json:"remaining_sessions"`
}

// QuotaResponse 当前用户额度（GET /users/me）
type QuotaResponse struct {
	UserResponse
	WeekStart      string `json:"week_start"`
	WeeklyBookings int    `json:"weekly_bookings"`
	WeeklyLimit    int    `json:"weekly_limit"` // -1 表示不限
}

// UserListRequest 用户列表查询参数
type UserListRequest struct {
	PaginationRequest
}

// UserListResponse 用户分页列表
type UserListResponse struct {
	Items []UserResponse `json:"items"`
	Total int64          `json:"total"`
	Page  int            `json:"page"`
}

// AdjustSessionsRequest 调整预付场次余额，Delta 可为负
type AdjustSessionsRequest struct {
	Delta  int    `json:"delta"  binding:"required"`
	Reason string `json:"reason" binding:"omitempty,max=200"`
}

// CreateUserRequest 管理员登记用户
type CreateUserRequest struct {
	FirstName         string `json:"first_name"         binding:"required,min=1,max=100"`
	LastName          string `json:"last_name"          binding:"omitempty,max=100"`
	Email             string `json:"email"              binding:"required,email"`
	RemainingSessions int    `json:"remaining_sessions" binding:"omitempty,min=0"`
	Admin             bool   `json:"admin"`
}
