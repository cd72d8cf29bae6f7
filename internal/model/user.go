package model

// Role 用户角色
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
	RoleCasual Role = "casual"
)

// Valid 是否为已知角色
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleMember, RoleCasual:
		return true
	}
	return false
}

// DeriveRole 由预付场次余额推导角色；管理员角色固定，与余额无关
func DeriveRole(remainingSessions int, isAdmin bool) Role {
	if isAdmin {
		return RoleAdmin
	}
	if remainingSessions > 0 {
		return RoleMember
	}
	return RoleCasual
}

// User 用户表 — 对应 users
// Role 是 DeriveRole 的缓存，每次修改 RemainingSessions 时同步重算
type User struct {
	UserID            string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	FirstName         string `gorm:"type:varchar(100);not null"                     json:"first_name"`
	LastName          string `gorm:"type:varchar(100);not null;default:''"          json:"last_name"`
	Email             string `gorm:"type:varchar(255);not null"                     json:"email"`
	Role              Role   `gorm:"type:varchar(20);not null;default:'casual'"     json:"role"`
	RemainingSessions int    `gorm:"not null;default:0"                             json:"remaining_sessions"`
	BaseModel
}

// TableName 指定表名
func (User) TableName() string { return "users" }

// IsAdmin 是否管理员
func (u *User) IsAdmin() bool { return u.Role == RoleAdmin }

// SetRemainingSessions 修改余额并同步重算角色，余额不会低于 0
func (u *User) SetRemainingSessions(n int) {
	if n < 0 {
		n = 0
	}
	u.RemainingSessions = n
	u.Role = DeriveRole(n, u.IsAdmin())
}
