package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// ── 场次模板模块业务错误 ──

var (
	ErrTemplateNotFound        = errors.New("场次模板不存在")
	ErrTemplateTimeInvalid     = fmt.Errorf("%w: 开始时刻必须早于结束时刻", ErrConfiguration)
	ErrTemplateCapacityInvalid = fmt.Errorf("%w: 名额不能为负数", ErrConfiguration)
	ErrTemplateWeekdayInvalid  = fmt.Errorf("%w: 星期必须在 1-7 之间", ErrConfiguration)
)

// ScheduleTemplateService 场次模板业务接口
// 修改模板不会影响已生成的场次
type ScheduleTemplateService interface {
	Create(ctx context.Context, req *dto.CreateScheduleTemplateRequest, callerID string) (*dto.ScheduleTemplateResponse, error)
	GetByID(ctx context.Context, id string) (*dto.ScheduleTemplateResponse, error)
	ListBySemester(ctx context.Context, semesterID string) ([]dto.ScheduleTemplateResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateScheduleTemplateRequest, callerID string) (*dto.ScheduleTemplateResponse, error)
	Delete(ctx context.Context, id string) error
}

type scheduleTemplateService struct {
	*serviceEnv
}

// NewScheduleTemplateService 创建 ScheduleTemplateService 实例
func NewScheduleTemplateService(env *serviceEnv) ScheduleTemplateService {
	return &scheduleTemplateService{serviceEnv: env}
}

// ────────────────────── Create ──────────────────────

func (s *scheduleTemplateService) Create(ctx context.Context, req *dto.CreateScheduleTemplateRequest, callerID string) (*dto.ScheduleTemplateResponse, error) {
	if _, err := s.repo.Semester.GetByID(ctx, req.SemesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("semester_id", req.SemesterID), zap.Error(err))
		return nil, err
	}

	tpl := &model.ScheduleTemplate{
		SemesterID:     req.SemesterID,
		Name:           req.Name,
		DayOfWeek:      req.DayOfWeek,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		VenueName:      req.VenueName,
		VenueAddress:   req.VenueAddress,
		MemberCapacity: *req.MemberCapacity,
		CasualCapacity: *req.CasualCapacity,
	}
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}

	tpl.CreatedBy = &callerID
	tpl.UpdatedBy = &callerID

	if err := s.repo.ScheduleTemplate.Create(ctx, tpl); err != nil {
		s.logger.Error("创建场次模板失败", zap.Error(err))
		return nil, err
	}

	return toTemplateResponse(tpl), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *scheduleTemplateService) GetByID(ctx context.Context, id string) (*dto.ScheduleTemplateResponse, error) {
	tpl, err := s.getTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTemplateResponse(tpl), nil
}

// ────────────────────── ListBySemester ──────────────────────

func (s *scheduleTemplateService) ListBySemester(ctx context.Context, semesterID string) ([]dto.ScheduleTemplateResponse, error) {
	tpls, err := s.repo.ScheduleTemplate.ListBySemester(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询场次模板列表失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.ScheduleTemplateResponse, 0, len(tpls))
	for i := range tpls {
		result = append(result, *toTemplateResponse(&tpls[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *scheduleTemplateService) Update(ctx context.Context, id string, req *dto.UpdateScheduleTemplateRequest, callerID string) (*dto.ScheduleTemplateResponse, error) {
	tpl, err := s.getTemplate(ctx, id)
	if err != nil {
		return nil, err
	}
	if tpl.Version != req.Version {
		return nil, ErrConflict
	}

	if req.Name != nil {
		tpl.Name = *req.Name
	}
	if req.DayOfWeek != nil {
		tpl.DayOfWeek = *req.DayOfWeek
	}
	if req.StartTime != nil {
		tpl.StartTime = *req.StartTime
	}
	if req.EndTime != nil {
		tpl.EndTime = *req.EndTime
	}
	if req.VenueName != nil {
		tpl.VenueName = *req.VenueName
	}
	if req.VenueAddress != nil {
		tpl.VenueAddress = *req.VenueAddress
	}
	if req.MemberCapacity != nil {
		tpl.MemberCapacity = *req.MemberCapacity
	}
	if req.CasualCapacity != nil {
		tpl.CasualCapacity = *req.CasualCapacity
	}
	if err := validateTemplate(tpl); err != nil {
		return nil, err
	}

	tpl.UpdatedBy = &callerID
	if err := s.repo.ScheduleTemplate.Update(ctx, tpl); err != nil {
		err = translateConflict(err)
		if !errors.Is(err, ErrConflict) {
			s.logger.Error("更新场次模板失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return toTemplateResponse(tpl), nil
}

// ────────────────────── Delete ──────────────────────

func (s *scheduleTemplateService) Delete(ctx context.Context, id string) error {
	if err := s.repo.ScheduleTemplate.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTemplateNotFound
		}
		s.logger.Error("删除场次模板失败", zap.String("id", id), zap.Error(err))
		return err
	}
	return nil
}

// ── 内部辅助方法 ──

func (s *scheduleTemplateService) getTemplate(ctx context.Context, id string) (*model.ScheduleTemplate, error) {
	tpl, err := s.repo.ScheduleTemplate.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询场次模板失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return tpl, nil
}

func validateTemplate(tpl *model.ScheduleTemplate) error {
	if tpl.DayOfWeek < 1 || tpl.DayOfWeek > 7 {
		return ErrTemplateWeekdayInvalid
	}
	if tpl.MemberCapacity < 0 || tpl.CasualCapacity < 0 {
		return ErrTemplateCapacityInvalid
	}
	start, err := parseClock(tpl.StartTime)
	if err != nil {
		return ErrTemplateTimeInvalid
	}
	end, err := parseClock(tpl.EndTime)
	if err != nil {
		return ErrTemplateTimeInvalid
	}
	if start.seconds() >= end.seconds() {
		return ErrTemplateTimeInvalid
	}
	tpl.StartTime = start.String()
	tpl.EndTime = end.String()
	return nil
}

func toTemplateResponse(tpl *model.ScheduleTemplate) *dto.ScheduleTemplateResponse {
	resp := &dto.ScheduleTemplateResponse{
		ID:             tpl.TemplateID,
		SemesterID:     tpl.SemesterID,
		Name:           tpl.Name,
		DayOfWeek:      tpl.DayOfWeek,
		StartTime:      tpl.StartTime,
		EndTime:        tpl.EndTime,
		VenueName:      tpl.VenueName,
		VenueAddress:   tpl.VenueAddress,
		MemberCapacity: tpl.MemberCapacity,
		CasualCapacity: tpl.CasualCapacity,
		Version:        tpl.Version,
	}
	if c, err := parseClock(tpl.StartTime); err == nil {
		resp.StartTime = c.String()
	}
	if c, err := parseClock(tpl.EndTime); err == nil {
		resp.EndTime = c.String()
	}
	return resp
}
