package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	pkgerrors "github.com/UoaWDCC/uabc-web-sub005/pkg/errors"
)

// SemesterRepository 学期数据访问接口
type SemesterRepository interface {
	Create(ctx context.Context, semester *model.Semester) error
	GetByID(ctx context.Context, id string) (*model.Semester, error)
	// GetCurrent 返回日期范围包含 day 的学期
	GetCurrent(ctx context.Context, day time.Time) (*model.Semester, error)
	List(ctx context.Context) ([]model.Semester, error)
	Update(ctx context.Context, semester *model.Semester) error
	// Delete 硬删除学期及其模板、场次、台账、预约（需在事务内调用）
	Delete(ctx context.Context, id string) error
}

type semesterRepo struct {
	db *gorm.DB
}

// NewSemesterRepo 创建 SemesterRepository 实例
func NewSemesterRepo(db *gorm.DB) SemesterRepository {
	return &semesterRepo{db: db}
}

func (r *semesterRepo) Create(ctx context.Context, semester *model.Semester) error {
	return r.db.WithContext(ctx).Create(semester).Error
}

func (r *semesterRepo) GetByID(ctx context.Context, id string) (*model.Semester, error) {
	var semester model.Semester
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", id).
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) GetCurrent(ctx context.Context, day time.Time) (*model.Semester, error) {
	var semester model.Semester
	d := day.Format(time.DateOnly)
	err := r.db.WithContext(ctx).
		Where("start_date <= ? AND end_date >= ?", d, d).
		Order("start_date DESC").
		First(&semester).Error
	if err != nil {
		return nil, err
	}
	return &semester, nil
}

func (r *semesterRepo) List(ctx context.Context) ([]model.Semester, error) {
	var semesters []model.Semester
	err := r.db.WithContext(ctx).
		Order("start_date DESC").
		Find(&semesters).Error
	return semesters, err
}

func (r *semesterRepo) Update(ctx context.Context, semester *model.Semester) error {
	oldVersion := semester.Version
	result := r.db.WithContext(ctx).
		Model(semester).
		Where("semester_id = ? AND version = ?", semester.SemesterID, oldVersion).
		Updates(map[string]interface{}{
			"name":              semester.Name,
			"start_date":        semester.StartDate,
			"end_date":          semester.EndDate,
			"break_start":       semester.BreakStart,
			"break_end":         semester.BreakEnd,
			"booking_open_day":  semester.BookingOpenDay,
			"booking_open_time": semester.BookingOpenTime,
			"updated_by":        semester.UpdatedBy,
			"updated_at":        gorm.Expr("NOW()"),
			"version":           oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	semester.Version = oldVersion + 1
	return nil
}

func (r *semesterRepo) Delete(ctx context.Context, id string) error {
	db := r.db.WithContext(ctx)

	// 外键已是 ON DELETE CASCADE，这里显式按依赖顺序删除，避免依赖数据库约束的隐式行为
	sessions := db.Model(&model.GameSession{}).Select("session_id").Where("semester_id = ?", id)
	if err := db.Where("session_id IN (?)", sessions).Delete(&model.Booking{}).Error; err != nil {
		return err
	}
	if err := db.Where("session_id IN (?)", sessions).Delete(&model.SessionLedger{}).Error; err != nil {
		return err
	}
	if err := db.Where("semester_id = ?", id).Delete(&model.GameSession{}).Error; err != nil {
		return err
	}
	if err := db.Where("semester_id = ?", id).Delete(&model.ScheduleTemplate{}).Error; err != nil {
		return err
	}
	result := db.Where("semester_id = ?", id).Delete(&model.Semester{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
