package model

import "time"

// Semester 学期表 — 对应 semesters
// 日期列均为 DATE，只使用年月日，按俱乐部时区解释
type Semester struct {
	SemesterID      string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"semester_id"`
	Name            string    `gorm:"type:varchar(100);not null"                     json:"name"`
	StartDate       time.Time `gorm:"type:date;not null"                             json:"start_date"`
	EndDate         time.Time `gorm:"type:date;not null"                             json:"end_date"`
	BreakStart      time.Time `gorm:"type:date;not null"                             json:"break_start"`
	BreakEnd        time.Time `gorm:"type:date;not null"                             json:"break_end"`
	BookingOpenDay  int       `gorm:"type:smallint;not null"                         json:"booking_open_day"`  // 1-7，周一=1
	BookingOpenTime string    `gorm:"type:time;not null"                             json:"booking_open_time"` // HH:MM
	VersionedModel
}

// TableName 指定表名
func (Semester) TableName() string { return "semesters" }
