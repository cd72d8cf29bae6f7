package dto

// ── 场次模板模块 DTO ──

// CreateScheduleTemplateRequest 创建场次模板请求
type CreateScheduleTemplateRequest struct {
	SemesterID     string `json:"semester_id"     binding:"required,uuid"`
	Name           string `json:"name"            binding:"required,min=1,max=100"`
	DayOfWeek      int    `json:"day_of_week"     binding:"required,min=1,max=7"`
	StartTime      string `json:"start_time"      binding:"required"` // "18:30"
	EndTime        string `json:"end_time"        binding:"required"`
	VenueName      string `json:"venue_name"      binding:"required,max=200"`
	VenueAddress   string `json:"venue_address"   binding:"omitempty,max=500"`
	MemberCapacity *int   `json:"member_capacity" binding:"required"`
	CasualCapacity *int   `json:"casual_capacity" binding:"required"`
}

// UpdateScheduleTemplateRequest 更新场次模板请求
type UpdateScheduleTemplateRequest struct {
	Name           *string `json:"name"            binding:"omitempty,min=1,max=100"`
	DayOfWeek      *int    `json:"day_of_week"     binding:"omitempty,min=1,max=7"`
	StartTime      *string `json:"start_time"`
	EndTime        *string `json:"end_time"`
	VenueName      *string `json:"venue_name"      binding:"omitempty,max=200"`
	VenueAddress   *string `json:"venue_address"   binding:"omitempty,max=500"`
	MemberCapacity *int    `json:"member_capacity"`
	CasualCapacity *int    `json:"casual_capacity"`
	Version        int     `json:"version"         binding:"required,min=1"`
}

// ScheduleTemplateResponse 场次模板响应
type ScheduleTemplateResponse struct {
	ID             string `json:"id"`
	SemesterID     string `json:"semester_id"`
	Name           string `json:"name"`
	DayOfWeek      int    `json:"day_of_week"`
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	VenueName      string `json:"venue_name"`
	VenueAddress   string `json:"venue_address"`
	MemberCapacity int    `json:"member_capacity"`
	CasualCapacity int    `json:"casual_capacity"`
	Version        int    `json:"version"`
}
