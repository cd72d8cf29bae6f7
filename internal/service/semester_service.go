package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
)

// ── 学期模块业务错误 ──

var (
	ErrSemesterNotFound     = errors.New("学期不存在")
	ErrDeleteNotConfirmed   = errors.New("删除学期会同时删除其全部模板、场次与预约，请确认后重试")
	ErrSemesterDateInvalid  = fmt.Errorf("%w: 学期日期无效，结束日期不能早于开始日期", ErrConfiguration)
	ErrSemesterBreakInvalid = fmt.Errorf("%w: 假期必须位于学期日期范围内且开始不晚于结束", ErrConfiguration)
	ErrBookingOpenInvalid   = fmt.Errorf("%w: 预约开放星期或时刻无效", ErrConfiguration)
)

// SemesterService 学期业务接口
type SemesterService interface {
	Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error)
	GetCurrent(ctx context.Context) (*dto.SemesterResponse, error)
	List(ctx context.Context) ([]dto.SemesterResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error)
	// Delete 级联删除模板、场次、台账与预约，未开始场次上已确认的会员预约先退还余额；confirmed 为 false 时拒绝
	Delete(ctx context.Context, id string, confirmed bool, callerID string) error
}

type semesterService struct {
	*serviceEnv
}

// NewSemesterService 创建 SemesterService 实例
func NewSemesterService(env *serviceEnv) SemesterService {
	return &semesterService{serviceEnv: env}
}

// ────────────────────── Create ──────────────────────

func (s *semesterService) Create(ctx context.Context, req *dto.CreateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	semester := &model.Semester{
		Name:            req.Name,
		BookingOpenDay:  req.BookingOpenDay,
		BookingOpenTime: req.BookingOpenTime,
	}
	var err error
	if semester.StartDate, err = parseDate(req.StartDate); err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if semester.EndDate, err = parseDate(req.EndDate); err != nil {
		return nil, ErrSemesterDateInvalid
	}
	if semester.BreakStart, err = parseDate(req.BreakStart); err != nil {
		return nil, ErrSemesterBreakInvalid
	}
	if semester.BreakEnd, err = parseDate(req.BreakEnd); err != nil {
		return nil, ErrSemesterBreakInvalid
	}
	if err := validateSemester(semester); err != nil {
		return nil, err
	}

	semester.CreatedBy = &callerID
	semester.UpdatedBy = &callerID

	if err := s.repo.Semester.Create(ctx, semester); err != nil {
		s.logger.Error("创建学期失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("学期已创建", zap.String("semester_id", semester.SemesterID), zap.String("name", semester.Name))
	return toSemesterResponse(semester), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *semesterService) GetByID(ctx context.Context, id string) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return toSemesterResponse(semester), nil
}

// ────────────────────── GetCurrent ──────────────────────

func (s *semesterService) GetCurrent(ctx context.Context) (*dto.SemesterResponse, error) {
	semester, err := s.repo.Semester.GetCurrent(ctx, s.today())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询当前学期失败", zap.Error(err))
		return nil, err
	}
	return toSemesterResponse(semester), nil
}

// ────────────────────── List ──────────────────────

func (s *semesterService) List(ctx context.Context) ([]dto.SemesterResponse, error) {
	semesters, err := s.repo.Semester.List(ctx)
	if err != nil {
		s.logger.Error("查询学期列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.SemesterResponse, 0, len(semesters))
	for i := range semesters {
		result = append(result, *toSemesterResponse(&semesters[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *semesterService) Update(ctx context.Context, id string, req *dto.UpdateSemesterRequest, callerID string) (*dto.SemesterResponse, error) {
	semester, err := s.getSemester(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if semester.Version != req.Version {
		return nil, ErrConflict
	}

	if req.Name != nil {
		semester.Name = *req.Name
	}
	dates := []struct {
		in   *string
		out  *time.Time
		fail error
	}{
		{req.StartDate, &semester.StartDate, ErrSemesterDateInvalid},
		{req.EndDate, &semester.EndDate, ErrSemesterDateInvalid},
		{req.BreakStart, &semester.BreakStart, ErrSemesterBreakInvalid},
		{req.BreakEnd, &semester.BreakEnd, ErrSemesterBreakInvalid},
	}
	for _, d := range dates {
		if d.in == nil {
			continue
		}
		v, err := parseDate(*d.in)
		if err != nil {
			return nil, d.fail
		}
		*d.out = v
	}
	if req.BookingOpenDay != nil {
		semester.BookingOpenDay = *req.BookingOpenDay
	}
	if req.BookingOpenTime != nil {
		semester.BookingOpenTime = *req.BookingOpenTime
	}
	if err := validateSemester(semester); err != nil {
		return nil, err
	}

	semester.UpdatedBy = &callerID
	if err := s.repo.Semester.Update(ctx, semester); err != nil {
		err = translateConflict(err)
		if !errors.Is(err, ErrConflict) {
			s.logger.Error("更新学期失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return toSemesterResponse(semester), nil
}

// ────────────────────── Delete ──────────────────────

func (s *semesterService) Delete(ctx context.Context, id string, confirmed bool, callerID string) error {
	if !confirmed {
		return ErrDeleteNotConfirmed
	}

	var (
		cancelled []cancelledSession
		err       error
	)
	for attempt := 0; attempt < cancelSessionAttempts; attempt++ {
		err = s.withTx(ctx, func(txRepo *repository.Repository) error {
			var txErr error
			cancelled, txErr = s.deleteTx(ctx, txRepo, id, callerID)
			return txErr
		})
		if !errors.Is(err, errBookersChanged) {
			break
		}
	}
	if err != nil {
		return translateConflict(err)
	}

	refunded := 0
	for _, c := range cancelled {
		s.publishSessionCancellations(ctx, c)
		for _, r := range c.bookings {
			if r.refunded {
				refunded++
			}
		}
	}
	s.logger.Warn("学期已级联删除",
		zap.String("semester_id", id),
		zap.String("caller_id", callerID),
		zap.Int("sessions_cancelled", len(cancelled)),
		zap.Int("bookings_refunded", refunded),
	)
	return nil
}

// deleteTx 先按取消场次的规则处理尚未开始的场次（释放名额、退还会员余额），再级联删除。
// 已开始的场次视为已消费，其预约随学期删除不退还
func (s *semesterService) deleteTx(ctx context.Context, txRepo *repository.Repository, id, callerID string) ([]cancelledSession, error) {
	if _, err := s.getSemester(ctx, txRepo, id); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	upcoming, err := txRepo.GameSession.List(ctx, repository.SessionFilter{SemesterID: id, From: &now})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(upcoming))
	for _, sess := range upcoming {
		ids = append(ids, sess.SessionID)
	}
	cancelled, err := s.cancelSessionsTx(ctx, txRepo, ids, callerID)
	if err != nil {
		if !errors.Is(err, errBookersChanged) {
			s.logger.Error("删除学期前取消场次失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	if err := txRepo.Semester.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("删除学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return cancelled, nil
}

// ── 内部辅助方法 ──

func (s *semesterService) getSemester(ctx context.Context, repo *repository.Repository, id string) (*model.Semester, error) {
	semester, err := repo.Semester.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return semester, nil
}

// validateSemester startDate ≤ breakStart ≤ breakEnd ≤ endDate，开放星期 1-7，开放时刻可解析
func validateSemester(semester *model.Semester) error {
	if semester.EndDate.Before(semester.StartDate) {
		return ErrSemesterDateInvalid
	}
	if semester.BreakStart.Before(semester.StartDate) ||
		semester.BreakEnd.Before(semester.BreakStart) ||
		semester.EndDate.Before(semester.BreakEnd) {
		return ErrSemesterBreakInvalid
	}
	if semester.BookingOpenDay < 1 || semester.BookingOpenDay > 7 {
		return ErrBookingOpenInvalid
	}
	c, err := parseClock(semester.BookingOpenTime)
	if err != nil {
		return ErrBookingOpenInvalid
	}
	// 只保留时刻部分，统一存为 HH:MM[:SS]
	semester.BookingOpenTime = c.String()
	return nil
}

func toSemesterResponse(semester *model.Semester) *dto.SemesterResponse {
	openTime := semester.BookingOpenTime
	if c, err := parseClock(openTime); err == nil {
		openTime = c.String()
	}
	return &dto.SemesterResponse{
		ID:              semester.SemesterID,
		Name:            semester.Name,
		StartDate:       formatDate(semester.StartDate),
		EndDate:         formatDate(semester.EndDate),
		BreakStart:      formatDate(semester.BreakStart),
		BreakEnd:        formatDate(semester.BreakEnd),
		BookingOpenDay:  semester.BookingOpenDay,
		BookingOpenTime: openTime,
		Version:         semester.Version,
		CreatedAt:       formatDateTime(semester.CreatedAt),
		UpdatedAt:       formatDateTime(semester.UpdatedAt),
	}
}
