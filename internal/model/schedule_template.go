package model

// ScheduleTemplate 每周固定场次模板 — 对应 schedule_templates
type ScheduleTemplate struct {
	TemplateID     string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"template_id"`
	SemesterID     string `gorm:"type:uuid;not null"                             json:"semester_id"`
	Name           string `gorm:"type:varchar(100);not null"                     json:"name"`
	DayOfWeek      int    `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1-7，周一=1
	StartTime      string `gorm:"type:time;not null"                             json:"start_time"`
	EndTime        string `gorm:"type:time;not null"                             json:"end_time"`
	VenueName      string `gorm:"type:varchar(200);not null"                     json:"venue_name"`
	VenueAddress   string `gorm:"type:varchar(500);not null;default:''"          json:"venue_address"`
	MemberCapacity int    `gorm:"not null"                                       json:"member_capacity"`
	CasualCapacity int    `gorm:"not null"                                       json:"casual_capacity"`
	VersionedModel

	// 关联
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (ScheduleTemplate) TableName() string { return "schedule_templates" }
