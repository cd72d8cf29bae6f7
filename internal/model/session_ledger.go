package model

import "time"

// SlotKind 名额类型
type SlotKind string

const (
	SlotMember SlotKind = "member"
	SlotCasual SlotKind = "casual"
)

// Valid 是否为合法名额类型
func (k SlotKind) Valid() bool { return k == SlotMember || k == SlotCasual }

// SessionLedger 场次容量台账 — 对应 session_ledgers
// 只能通过条件自增/自减修改 used 计数
type SessionLedger struct {
	SessionID      string    `gorm:"type:uuid;primaryKey"               json:"session_id"`
	MemberCapacity int       `gorm:"not null"                           json:"member_capacity"`
	CasualCapacity int       `gorm:"not null"                           json:"casual_capacity"`
	MemberUsed     int       `gorm:"not null;default:0"                 json:"member_used"`
	CasualUsed     int       `gorm:"not null;default:0"                 json:"casual_used"`
	UpdatedAt      time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName 指定表名
func (SessionLedger) TableName() string { return "session_ledgers" }

// NewSessionLedger 以场次的容量快照初始化台账
func NewSessionLedger(session *GameSession) *SessionLedger {
	return &SessionLedger{
		SessionID:      session.SessionID,
		MemberCapacity: session.Capacity,
		CasualCapacity: session.CasualCapacity,
	}
}

// CapacityOf 返回指定名额类型的容量
func (l *SessionLedger) CapacityOf(kind SlotKind) int {
	if kind == SlotCasual {
		return l.CasualCapacity
	}
	return l.MemberCapacity
}

// UsedOf 返回指定名额类型的已占用数
func (l *SessionLedger) UsedOf(kind SlotKind) int {
	if kind == SlotCasual {
		return l.CasualUsed
	}
	return l.MemberUsed
}

// ReserveOutcome 台账占位结果
type ReserveOutcome int

const (
	ReserveAdmitted ReserveOutcome = iota
	ReserveSessionFull
	ReserveSlotKindUnavailable
	ReserveLedgerMissing
)
