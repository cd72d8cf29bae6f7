package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/mq"
)

// ── 场次模块业务错误 ──

var (
	ErrSessionDateInvalid = fmt.Errorf("%w: 场次日期无效或不在学期范围内", ErrConfiguration)
)

// GameSessionService 场次业务接口
type GameSessionService interface {
	// MaterializeSessions 按模板生成场次，可重复调用，返回该模板的全部场次
	MaterializeSessions(ctx context.Context, templateID, callerID string) (*dto.MaterializeResponse, error)
	// MaterializeSemester 并行物化学期下所有模板
	MaterializeSemester(ctx context.Context, semesterID, callerID string) (*dto.MaterializeSemesterResponse, error)
	CreateAdHoc(ctx context.Context, req *dto.CreateAdHocSessionRequest, callerID string) (*dto.GameSessionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.GameSessionResponse, error)
	List(ctx context.Context, req *dto.SessionListRequest) ([]dto.GameSessionResponse, error)
	GetBookingWindow(ctx context.Context, id string) (*dto.BookingWindowResponse, error)
	GetCapacity(ctx context.Context, id string) (*dto.SessionCapacityResponse, error)
	// CancelSession 取消场次并取消其全部有效预约（释放名额、退还余额）
	CancelSession(ctx context.Context, id, callerID string) (*dto.GameSessionResponse, error)
}

type gameSessionService struct {
	*serviceEnv
}

// NewGameSessionService 创建 GameSessionService 实例
func NewGameSessionService(env *serviceEnv) GameSessionService {
	return &gameSessionService{serviceEnv: env}
}

// ────────────────────── MaterializeSessions ──────────────────────

func (s *gameSessionService) MaterializeSessions(ctx context.Context, templateID, callerID string) (*dto.MaterializeResponse, error) {
	tpl, err := s.repo.ScheduleTemplate.GetByID(ctx, templateID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTemplateNotFound
		}
		s.logger.Error("查询场次模板失败", zap.String("template_id", templateID), zap.Error(err))
		return nil, err
	}

	semester := tpl.Semester
	if semester == nil {
		if semester, err = s.repo.Semester.GetByID(ctx, tpl.SemesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSemesterNotFound
			}
			return nil, err
		}
	}

	occs, err := planOccurrences(semester, tpl, s.today(), s.loc)
	if err != nil {
		return nil, err
	}

	created := 0
	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		for _, occ := range occs {
			session := &model.GameSession{
				TemplateID:     &tpl.TemplateID,
				SemesterID:     tpl.SemesterID,
				SessionDate:    occ.Date,
				StartTime:      occ.Start,
				EndTime:        occ.End,
				VenueName:      tpl.VenueName,
				VenueAddress:   tpl.VenueAddress,
				Capacity:       tpl.MemberCapacity,
				CasualCapacity: tpl.CasualCapacity,
				Status:         model.SessionActive,
			}
			session.CreatedBy = &callerID
			session.UpdatedBy = &callerID

			ok, err := txRepo.GameSession.CreateIfAbsent(ctx, session)
			if err != nil {
				return err
			}
			if !ok {
				continue
			}
			if err := txRepo.SessionLedger.Create(ctx, model.NewSessionLedger(session)); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		err = translateConflict(err)
		s.logger.Error("物化场次失败", zap.String("template_id", templateID), zap.Error(err))
		return nil, err
	}

	sessions, err := s.repo.GameSession.ListByTemplate(ctx, templateID)
	if err != nil {
		s.logger.Error("查询模板场次失败", zap.String("template_id", templateID), zap.Error(err))
		return nil, err
	}

	ids := make([]string, 0, len(sessions))
	for _, sess := range sessions {
		ids = append(ids, sess.SessionID)
	}

	s.logger.Info("场次物化完成",
		zap.String("template_id", templateID),
		zap.Int("planned", len(occs)),
		zap.Int("created", created),
	)
	return &dto.MaterializeResponse{TemplateID: templateID, SessionIDs: ids, Created: created}, nil
}

// ────────────────────── MaterializeSemester ──────────────────────

func (s *gameSessionService) MaterializeSemester(ctx context.Context, semesterID, callerID string) (*dto.MaterializeSemesterResponse, error) {
	if _, err := s.repo.Semester.GetByID(ctx, semesterID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		return nil, err
	}

	tpls, err := s.repo.ScheduleTemplate.ListBySemester(ctx, semesterID)
	if err != nil {
		s.logger.Error("查询场次模板列表失败", zap.String("semester_id", semesterID), zap.Error(err))
		return nil, err
	}

	// 各模板的场次互不相关，可并行；同一模板内由 (template_id, session_date) 唯一约束去重
	results := make([]dto.MaterializeResponse, len(tpls))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range tpls {
		i := i
		g.Go(func() error {
			r, err := s.MaterializeSessions(gctx, tpls[i].TemplateID, callerID)
			if err != nil {
				return fmt.Errorf("模板 %s: %w", tpls[i].TemplateID, err)
			}
			results[i] = *r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	resp := &dto.MaterializeSemesterResponse{SemesterID: semesterID, Templates: results}
	for _, r := range results {
		resp.Created += r.Created
	}
	return resp, nil
}

// ────────────────────── CreateAdHoc ──────────────────────

func (s *gameSessionService) CreateAdHoc(ctx context.Context, req *dto.CreateAdHocSessionRequest, callerID string) (*dto.GameSessionResponse, error) {
	semester, err := s.repo.Semester.GetByID(ctx, req.SemesterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSemesterNotFound
		}
		s.logger.Error("查询学期失败", zap.String("semester_id", req.SemesterID), zap.Error(err))
		return nil, err
	}

	date, err := parseDate(req.Date)
	if err != nil || date.Before(civilDate(semester.StartDate)) || date.After(civilDate(semester.EndDate)) {
		return nil, ErrSessionDateInvalid
	}
	startClock, err := parseClock(req.StartTime)
	if err != nil {
		return nil, ErrTemplateTimeInvalid
	}
	endClock, err := parseClock(req.EndTime)
	if err != nil || startClock.seconds() >= endClock.seconds() {
		return nil, ErrTemplateTimeInvalid
	}
	if *req.Capacity < 0 || *req.CasualCapacity < 0 {
		return nil, ErrTemplateCapacityInvalid
	}

	session := &model.GameSession{
		SemesterID:     semester.SemesterID,
		SessionDate:    date,
		StartTime:      at(date, startClock, s.loc),
		EndTime:        at(date, endClock, s.loc),
		VenueName:      req.VenueName,
		VenueAddress:   req.VenueAddress,
		Capacity:       *req.Capacity,
		CasualCapacity: *req.CasualCapacity,
		Status:         model.SessionActive,
	}
	session.CreatedBy = &callerID
	session.UpdatedBy = &callerID

	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		if err := txRepo.GameSession.Create(ctx, session); err != nil {
			return err
		}
		return txRepo.SessionLedger.Create(ctx, model.NewSessionLedger(session))
	})
	if err != nil {
		s.logger.Error("创建临时场次失败", zap.Error(err))
		return nil, translateConflict(err)
	}

	return s.toSessionResponse(session), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *gameSessionService) GetByID(ctx context.Context, id string) (*dto.GameSessionResponse, error) {
	session, err := s.getSession(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	return s.toSessionResponse(session), nil
}

// ────────────────────── List ──────────────────────

func (s *gameSessionService) List(ctx context.Context, req *dto.SessionListRequest) ([]dto.GameSessionResponse, error) {
	filter := repository.SessionFilter{
		SemesterID:       req.SemesterID,
		IncludeCancelled: req.IncludeCancelled,
	}
	if req.From != "" {
		d, err := parseDate(req.From)
		if err != nil {
			return nil, ErrSessionDateInvalid
		}
		from := at(d, clockTime{}, s.loc)
		filter.From = &from
	}
	if req.To != "" {
		d, err := parseDate(req.To)
		if err != nil {
			return nil, ErrSessionDateInvalid
		}
		to := at(d.AddDate(0, 0, 1), clockTime{}, s.loc)
		filter.To = &to
	}

	sessions, err := s.repo.GameSession.List(ctx, filter)
	if err != nil {
		s.logger.Error("查询场次列表失败", zap.Error(err))
		return nil, err
	}

	result := make([]dto.GameSessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *s.toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ────────────────────── GetBookingWindow ──────────────────────

func (s *gameSessionService) GetBookingWindow(ctx context.Context, id string) (*dto.BookingWindowResponse, error) {
	session, err := s.getSession(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	w, err := s.windowFor(ctx, s.repo, session)
	if err != nil {
		return nil, err
	}

	return &dto.BookingWindowResponse{
		SessionID:     session.SessionID,
		OpensAt:       formatDateTime(w.OpensAt),
		ClosesAt:      formatDateTime(w.ClosesAt),
		IsOpen:        session.Bookable() && w.IsOpen(s.clock.Now()),
		Misconfigured: w.Misconfigured,
	}, nil
}

// ────────────────────── GetCapacity ──────────────────────

func (s *gameSessionService) GetCapacity(ctx context.Context, id string) (*dto.SessionCapacityResponse, error) {
	ledger, err := s.repo.SessionLedger.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询场次台账失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return toCapacityResponse(ledger), nil
}

// ────────────────────── CancelSession ──────────────────────

// cancelSessionAttempts 加锁期间出现新预约人时整体重试的次数
const cancelSessionAttempts = 3

// errBookersChanged 锁定用户后场次又出现了未锁定的预约人，需要回滚重来
var errBookersChanged = fmt.Errorf("%w: 场次预约人在取消过程中变化", ErrConflict)

// cancelledSession 一个场次及随之取消的预约
type cancelledSession struct {
	session  *model.GameSession
	bookings []cancelResult
}

func (s *gameSessionService) CancelSession(ctx context.Context, id, callerID string) (*dto.GameSessionResponse, error) {
	var (
		cancelled []cancelledSession
		err       error
	)
	for attempt := 0; attempt < cancelSessionAttempts; attempt++ {
		err = s.withTx(ctx, func(txRepo *repository.Repository) error {
			var txErr error
			cancelled, txErr = s.cancelSessionsTx(ctx, txRepo, []string{id}, callerID)
			return txErr
		})
		if !errors.Is(err, errBookersChanged) {
			break
		}
	}
	if err != nil {
		if !errors.Is(err, ErrSessionNotFound) {
			s.logger.Error("取消场次失败", zap.String("session_id", id), zap.Error(err))
		}
		return nil, translateConflict(err)
	}

	c := cancelled[0]
	s.publishSessionCancellations(ctx, c)
	if len(c.bookings) > 0 {
		s.logger.Info("场次已取消", zap.String("session_id", id), zap.Int("bookings_cancelled", len(c.bookings)))
	}
	return s.toSessionResponse(c.session), nil
}

// cancelSessionsTx 取消一组场次及其全部有效预约，已取消的场次原样返回。
// 加锁顺序与预约路径一致：先按 user_id 升序锁定全部预约人，再逐个排他锁定场次。
// 场次排他锁会等待持有共享锁的预约事务提交，之后不会再有新预约落到该场次。
func (e *serviceEnv) cancelSessionsTx(ctx context.Context, txRepo *repository.Repository, ids []string, callerID string) ([]cancelledSession, error) {
	var seen []model.Booking
	for _, id := range ids {
		active, err := txRepo.Booking.ListActiveBySession(ctx, id)
		if err != nil {
			return nil, err
		}
		seen = append(seen, active...)
	}
	locked := make(map[string]bool, len(seen))
	for _, userID := range bookerIDs(seen) {
		if _, err := txRepo.User.GetByIDForUpdate(ctx, userID); err != nil {
			return nil, err
		}
		locked[userID] = true
	}

	now := e.clock.Now()
	result := make([]cancelledSession, 0, len(ids))
	for _, id := range ids {
		session, err := txRepo.GameSession.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrSessionNotFound
			}
			return nil, err
		}
		if session.Status == model.SessionCancelled {
			result = append(result, cancelledSession{session: session})
			continue
		}

		active, err := txRepo.Booking.ListActiveBySession(ctx, id)
		if err != nil {
			return nil, err
		}
		for _, b := range active {
			if !locked[b.UserID] {
				return nil, errBookersChanged
			}
		}

		if err := txRepo.GameSession.UpdateStatus(ctx, id, model.SessionCancelled, callerID); err != nil {
			return nil, err
		}
		session.Status = model.SessionCancelled

		c := cancelledSession{session: session, bookings: make([]cancelResult, 0, len(active))}
		for i := range active {
			r, err := cancelLocked(ctx, txRepo, &active[i], now, callerID)
			if err != nil {
				return nil, err
			}
			c.bookings = append(c.bookings, r)
		}
		result = append(result, c)
	}
	return result, nil
}

// publishSessionCancellations 事务提交后为场次的每条被取消预约发布事件
func (e *serviceEnv) publishSessionCancellations(ctx context.Context, c cancelledSession) {
	for _, r := range c.bookings {
		e.publishBookingEvent(ctx, mq.RoutingBookingCancelled, r.booking, c.session.StartTime, r.refunded)
	}
}

// bookerIDs 去重并升序排列的预约人 ID
func bookerIDs(bookings []model.Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.UserID)
	}
	slices.Sort(ids)
	return slices.Compact(ids)
}

// ── 内部辅助方法 ──

func (s *gameSessionService) getSession(ctx context.Context, repo *repository.Repository, id string) (*model.GameSession, error) {
	session, err := repo.GameSession.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询场次失败", zap.String("session_id", id), zap.Error(err))
		return nil, err
	}
	return session, nil
}

func (s *gameSessionService) toSessionResponse(session *model.GameSession) *dto.GameSessionResponse {
	return toSessionResponse(session, s.loc)
}

// windowFor 计算场次预约窗口；配置异常时记录告警
func (e *serviceEnv) windowFor(ctx context.Context, repo *repository.Repository, session *model.GameSession) (BookingWindow, error) {
	semester := session.Semester
	if semester == nil {
		var err error
		if semester, err = repo.Semester.GetByID(ctx, session.SemesterID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return BookingWindow{}, ErrSemesterNotFound
			}
			return BookingWindow{}, err
		}
	}

	w, err := computeBookingWindow(session, semester, e.loc)
	if err != nil {
		e.logger.Warn("学期预约开放配置无效", zap.String("semester_id", semester.SemesterID), zap.Error(err))
		return BookingWindow{}, err
	}
	if w.Misconfigured {
		e.logger.Warn("预约开放时刻晚于场次开始，该场次不会开放预约",
			zap.String("session_id", session.SessionID),
			zap.String("semester_id", semester.SemesterID),
			zap.Time("opens_at", w.OpensAt),
			zap.Time("starts_at", w.ClosesAt),
		)
	}
	return w, nil
}

func toSessionResponse(session *model.GameSession, loc *time.Location) *dto.GameSessionResponse {
	return &dto.GameSessionResponse{
		ID:             session.SessionID,
		TemplateID:     session.TemplateID,
		SemesterID:     session.SemesterID,
		Date:           formatDate(session.SessionDate),
		StartTime:      formatDateTime(session.StartTime.In(loc)),
		EndTime:        formatDateTime(session.EndTime.In(loc)),
		VenueName:      session.VenueName,
		VenueAddress:   session.VenueAddress,
		Capacity:       session.Capacity,
		CasualCapacity: session.CasualCapacity,
		Status:         string(session.Status),
	}
}
