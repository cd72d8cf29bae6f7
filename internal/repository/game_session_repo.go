package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// SessionFilter 场次列表筛选条件，零值字段不参与过滤
type SessionFilter struct {
	SemesterID       string
	From             *time.Time // start_time >= From
	To               *time.Time // start_time < To
	IncludeCancelled bool
}

// GameSessionRepository 场次数据访问接口
type GameSessionRepository interface {
	Create(ctx context.Context, session *model.GameSession) error
	// CreateIfAbsent 按 (template_id, session_date) 幂等插入，已存在时返回 false
	CreateIfAbsent(ctx context.Context, session *model.GameSession) (bool, error)
	GetByID(ctx context.Context, id string) (*model.GameSession, error)
	// GetByIDForShare 以共享锁读取场次（不含学期）：并发预约互不阻塞，但与取消场次互斥，必须在事务内调用
	GetByIDForShare(ctx context.Context, id string) (*model.GameSession, error)
	// GetByIDForUpdate 以排他锁读取场次，等待持有共享锁的预约事务提交，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.GameSession, error)
	ListByTemplate(ctx context.Context, templateID string) ([]model.GameSession, error)
	List(ctx context.Context, filter SessionFilter) ([]model.GameSession, error)
	UpdateStatus(ctx context.Context, id string, status model.SessionStatus, updatedBy string) error
}

type gameSessionRepo struct {
	db *gorm.DB
}

// NewGameSessionRepo 创建 GameSessionRepository 实例
func NewGameSessionRepo(db *gorm.DB) GameSessionRepository {
	return &gameSessionRepo{db: db}
}

func (r *gameSessionRepo) Create(ctx context.Context, session *model.GameSession) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *gameSessionRepo) CreateIfAbsent(ctx context.Context, session *model.GameSession) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "template_id"}, {Name: "session_date"}},
			DoNothing: true,
		}).
		Create(session)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *gameSessionRepo) GetByID(ctx context.Context, id string) (*model.GameSession, error) {
	return r.get(r.db.WithContext(ctx).Preload("Semester"), id)
}

// 加锁读取不预加载学期，行锁只落在 game_sessions 上

func (r *gameSessionRepo) GetByIDForShare(ctx context.Context, id string) (*model.GameSession, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "SHARE"}), id)
}

func (r *gameSessionRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.GameSession, error) {
	return r.get(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *gameSessionRepo) get(db *gorm.DB, id string) (*model.GameSession, error) {
	var session model.GameSession
	if err := db.Where("session_id = ?", id).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *gameSessionRepo) ListByTemplate(ctx context.Context, templateID string) ([]model.GameSession, error) {
	var sessions []model.GameSession
	err := r.db.WithContext(ctx).
		Where("template_id = ?", templateID).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *gameSessionRepo) List(ctx context.Context, filter SessionFilter) ([]model.GameSession, error) {
	var sessions []model.GameSession

	db := r.db.WithContext(ctx).Model(&model.GameSession{})
	if filter.SemesterID != "" {
		db = db.Where("semester_id = ?", filter.SemesterID)
	}
	if filter.From != nil {
		db = db.Where("start_time >= ?", *filter.From)
	}
	if filter.To != nil {
		db = db.Where("start_time < ?", *filter.To)
	}
	if !filter.IncludeCancelled {
		db = db.Where("status = ?", model.SessionActive)
	}

	err := db.Order("start_time ASC").Find(&sessions).Error
	return sessions, err
}

func (r *gameSessionRepo) UpdateStatus(ctx context.Context, id string, status model.SessionStatus, updatedBy string) error {
	result := r.db.WithContext(ctx).
		Model(&model.GameSession{}).
		Where("session_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_by": updatedBy,
			"updated_at": gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
