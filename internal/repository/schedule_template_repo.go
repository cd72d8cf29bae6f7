package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	pkgerrors "github.com/UoaWDCC/uabc-web-sub005/pkg/errors"
)

// ScheduleTemplateRepository 场次模板数据访问接口
type ScheduleTemplateRepository interface {
	Create(ctx context.Context, tpl *model.ScheduleTemplate) error
	GetByID(ctx context.Context, id string) (*model.ScheduleTemplate, error)
	ListBySemester(ctx context.Context, semesterID string) ([]model.ScheduleTemplate, error)
	Update(ctx context.Context, tpl *model.ScheduleTemplate) error
	Delete(ctx context.Context, id string) error
}

type scheduleTemplateRepo struct {
	db *gorm.DB
}

// NewScheduleTemplateRepo 创建 ScheduleTemplateRepository 实例
func NewScheduleTemplateRepo(db *gorm.DB) ScheduleTemplateRepository {
	return &scheduleTemplateRepo{db: db}
}

func (r *scheduleTemplateRepo) Create(ctx context.Context, tpl *model.ScheduleTemplate) error {
	return r.db.WithContext(ctx).Create(tpl).Error
}

// GetByID 同时预加载所属学期，物化与窗口计算都需要学期信息
func (r *scheduleTemplateRepo) GetByID(ctx context.Context, id string) (*model.ScheduleTemplate, error) {
	var tpl model.ScheduleTemplate
	err := r.db.WithContext(ctx).
		Preload("Semester").
		Where("template_id = ?", id).
		First(&tpl).Error
	if err != nil {
		return nil, err
	}
	return &tpl, nil
}

func (r *scheduleTemplateRepo) ListBySemester(ctx context.Context, semesterID string) ([]model.ScheduleTemplate, error) {
	var tpls []model.ScheduleTemplate
	err := r.db.WithContext(ctx).
		Where("semester_id = ?", semesterID).
		Order("day_of_week ASC, start_time ASC").
		Find(&tpls).Error
	return tpls, err
}

func (r *scheduleTemplateRepo) Update(ctx context.Context, tpl *model.ScheduleTemplate) error {
	oldVersion := tpl.Version
	result := r.db.WithContext(ctx).
		Model(tpl).
		Where("template_id = ? AND version = ?", tpl.TemplateID, oldVersion).
		Updates(map[string]interface{}{
			"name":            tpl.Name,
			"day_of_week":     tpl.DayOfWeek,
			"start_time":      tpl.StartTime,
			"end_time":        tpl.EndTime,
			"venue_name":      tpl.VenueName,
			"venue_address":   tpl.VenueAddress,
			"member_capacity": tpl.MemberCapacity,
			"casual_capacity": tpl.CasualCapacity,
			"updated_by":      tpl.UpdatedBy,
			"updated_at":      gorm.Expr("NOW()"),
			"version":         oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	tpl.Version = oldVersion + 1
	return nil
}

// Delete 仅删除模板；已生成场次的 template_id 由外键置空
func (r *scheduleTemplateRepo) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).
		Where("template_id = ?", id).
		Delete(&model.ScheduleTemplate{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
