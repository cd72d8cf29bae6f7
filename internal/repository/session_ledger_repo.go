package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// SessionLedgerRepository 场次容量台账数据访问接口
// 计数只能通过 TryReserve / Release 的条件更新修改
type SessionLedgerRepository interface {
	Create(ctx context.Context, ledger *model.SessionLedger) error
	Get(ctx context.Context, sessionID string) (*model.SessionLedger, error)
	// TryReserve 原子地“未满则占位”，不会出现两个并发请求同时占到最后一个名额
	TryReserve(ctx context.Context, sessionID string, kind model.SlotKind) (model.ReserveOutcome, error)
	// Release 归还一个名额，计数不会低于 0
	Release(ctx context.Context, sessionID string, kind model.SlotKind) error
}

type sessionLedgerRepo struct {
	db *gorm.DB
}

// NewSessionLedgerRepo 创建 SessionLedgerRepository 实例
func NewSessionLedgerRepo(db *gorm.DB) SessionLedgerRepository {
	return &sessionLedgerRepo{db: db}
}

func (r *sessionLedgerRepo) Create(ctx context.Context, ledger *model.SessionLedger) error {
	return r.db.WithContext(ctx).Create(ledger).Error
}

func (r *sessionLedgerRepo) Get(ctx context.Context, sessionID string) (*model.SessionLedger, error) {
	var ledger model.SessionLedger
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		First(&ledger).Error
	if err != nil {
		return nil, err
	}
	return &ledger, nil
}

func ledgerColumns(kind model.SlotKind) (used, capacity string) {
	if kind == model.SlotCasual {
		return "casual_used", "casual_capacity"
	}
	return "member_used", "member_capacity"
}

func (r *sessionLedgerRepo) TryReserve(ctx context.Context, sessionID string, kind model.SlotKind) (model.ReserveOutcome, error) {
	used, capacity := ledgerColumns(kind)

	result := r.db.WithContext(ctx).
		Model(&model.SessionLedger{}).
		Where("session_id = ? AND "+used+" < "+capacity, sessionID).
		Updates(map[string]interface{}{
			used:         gorm.Expr(used + " + 1"),
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return model.ReserveSessionFull, result.Error
	}
	if result.RowsAffected == 1 {
		return model.ReserveAdmitted, nil
	}

	// 未更新：区分台账缺失、该类名额为 0、已满
	ledger, err := r.Get(ctx, sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.ReserveLedgerMissing, nil
		}
		return model.ReserveSessionFull, err
	}
	if ledger.CapacityOf(kind) == 0 {
		return model.ReserveSlotKindUnavailable, nil
	}
	return model.ReserveSessionFull, nil
}

func (r *sessionLedgerRepo) Release(ctx context.Context, sessionID string, kind model.SlotKind) error {
	used, _ := ledgerColumns(kind)
	return r.db.WithContext(ctx).
		Model(&model.SessionLedger{}).
		Where("session_id = ? AND "+used+" > 0", sessionID).
		Updates(map[string]interface{}{
			used:         gorm.Expr(used + " - 1"),
			"updated_at": gorm.Expr("NOW()"),
		}).Error
}
