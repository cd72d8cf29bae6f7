package dto

// ── 学期模块 DTO ──

// CreateSemesterRequest 创建学期请求
type CreateSemesterRequest struct {
	Name            string `json:"name"              binding:"required,min=2,max=100"`
	StartDate       string `json:"start_date"        binding:"required"` // "2025-03-01"
	EndDate         string `json:"end_date"          binding:"required"`
	BreakStart      string `json:"break_start"       binding:"required"`
	BreakEnd        string `json:"break_end"         binding:"required"`
	BookingOpenDay  int    `json:"booking_open_day"  binding:"required,min=1,max=7"` // 周一=1
	BookingOpenTime string `json:"booking_open_time" binding:"required"`             // "08:00"
}

// UpdateSemesterRequest 更新学期请求，未传字段保持不变
type UpdateSemesterRequest struct {
	Name            *string `json:"name"              binding:"omitempty,min=2,max=100"`
	StartDate       *string `json:"start_date"`
	EndDate         *string `json:"end_date"`
	BreakStart      *string `json:"break_start"`
	BreakEnd        *string `json:"break_end"`
	BookingOpenDay  *int    `json:"booking_open_day"  binding:"omitempty,min=1,max=7"`
	BookingOpenTime *string `json:"booking_open_time"`
	Version         int     `json:"version"           binding:"required,min=1"`
}

// SemesterResponse 学期信息响应
type SemesterResponse struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	StartDate       string `json:"start_date"`
	EndDate         string `json:"end_date"`
	BreakStart      string `json:"break_start"`
	BreakEnd        string `json:"break_end"`
	BookingOpenDay  int    `json:"booking_open_day"`
	BookingOpenTime string `json:"booking_open_time"`
	Version         int    `json:"version"`
	CreatedAt       string `json:"created_at"`
	UpdatedAt       string `json:"updated_at"`
}
