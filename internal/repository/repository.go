package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Repository 所有 Repository 的聚合入口
type Repository struct {
	db *gorm.DB

	Semester         SemesterRepository
	ScheduleTemplate ScheduleTemplateRepository
	GameSession      GameSessionRepository
	SessionLedger    SessionLedgerRepository
	Booking          BookingRepository
	User             UserRepository
	BookingPolicy    BookingPolicyRepository
}

// NewRepository 创建 Repository 聚合
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{
		db:               db,
		Semester:         NewSemesterRepo(db),
		ScheduleTemplate: NewScheduleTemplateRepo(db),
		GameSession:      NewGameSessionRepo(db),
		SessionLedger:    NewSessionLedgerRepo(db),
		Booking:          NewBookingRepo(db),
		User:             NewUserRepo(db),
		BookingPolicy:    NewBookingPolicyRepo(db),
	}
}

// BeginTx 开启事务
// 单元测试中 Repository 由 mock 组装、db 为 nil，此时返回 nil 事务，调用方按无事务处理
func (r *Repository) BeginTx(ctx context.Context) (*gorm.DB, error) {
	if r.db == nil {
		return nil, nil
	}
	tx := r.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	return tx, nil
}

// WithTx 返回绑定到事务连接的 Repository 副本；tx 为 nil 时返回自身
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	if tx == nil {
		return r
	}
	return NewRepository(tx)
}

// SetLockTimeout 为当前事务设置行锁等待上限，超时由数据库返回 55P03
// 只能在 BeginTx 返回的事务上调用
func (r *Repository) SetLockTimeout(ctx context.Context, d time.Duration) error {
	if r.db == nil || d <= 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())).Error
}
