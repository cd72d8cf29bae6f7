package model

// BookingPolicy 预约策略表 — 对应 booking_policy（单行强类型）
type BookingPolicy struct {
	Singleton         bool `gorm:"primaryKey;default:true" json:"-"`
	MemberWeeklyLimit int  `gorm:"not null;default:2"      json:"member_weekly_limit"`
	CasualWeeklyLimit int  `gorm:"not null;default:1"      json:"casual_weekly_limit"`
	BaseModel
}

// TableName 指定表名
func (BookingPolicy) TableName() string { return "booking_policy" }

// WeeklyLimit 返回角色对应的每周有效预约上限；管理员不受限制（返回 -1）
func (p *BookingPolicy) WeeklyLimit(role Role) int {
	switch role {
	case RoleAdmin:
		return -1
	case RoleMember:
		return p.MemberWeeklyLimit
	default:
		return p.CasualWeeklyLimit
	}
}
