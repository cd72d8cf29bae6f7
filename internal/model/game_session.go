package model

import "time"

// SessionStatus 场次状态
type SessionStatus string

const (
	SessionActive    SessionStatus = "active"
	SessionCancelled SessionStatus = "cancelled"
)

// GameSession 具体场次 — 对应 game_sessions
// 容量与场地在创建时从模板快照，之后模板变更不影响已生成的场次
type GameSession struct {
	SessionID      string        `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	TemplateID     *string       `gorm:"type:uuid"                                      json:"template_id,omitempty"` // NULL 表示临时场次
	SemesterID     string        `gorm:"type:uuid;not null"                             json:"semester_id"`
	SessionDate    time.Time     `gorm:"type:date;not null"                             json:"session_date"`
	StartTime      time.Time     `gorm:"not null"                                       json:"start_time"`
	EndTime        time.Time     `gorm:"not null"                                       json:"end_time"`
	VenueName      string        `gorm:"type:varchar(200);not null"                     json:"venue_name"`
	VenueAddress   string        `gorm:"type:varchar(500);not null;default:''"          json:"venue_address"`
	Capacity       int           `gorm:"not null"                                       json:"capacity"`
	CasualCapacity int           `gorm:"not null"                                       json:"casual_capacity"`
	Status         SessionStatus `gorm:"type:varchar(20);not null;default:'active'"     json:"status"`
	BaseModel

	// 关联
	Semester *Semester `gorm:"foreignKey:SemesterID;references:SemesterID" json:"semester,omitempty"`
}

// TableName 指定表名
func (GameSession) TableName() string { return "game_sessions" }

// Bookable 场次本身是否允许预约（不含时间窗口判断）
func (s *GameSession) Bookable() bool { return s.Status == SessionActive }
