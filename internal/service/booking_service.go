package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/mq"
)

// ── 预约模块业务错误 ──

var (
	ErrBookingNotFound       = errors.New("预约不存在")
	ErrBookingForbidden      = errors.New("只能取消自己的预约")
	ErrBookingNotConfirmable = errors.New("预约已取消，无法确认")
	ErrInvalidSlotKind       = errors.New("名额类型无效")
)

// BookingService 预约业务接口
type BookingService interface {
	// AttemptBooking 依次经过时间窗口、容量、额度检查，全部通过才写入预约
	AttemptBooking(ctx context.Context, caller Caller, req *dto.CreateBookingRequest) (*dto.BookingResponse, error)
	// CancelBooking 释放名额并按需退还余额；重复取消为空操作
	CancelBooking(ctx context.Context, caller Caller, bookingID string) (*dto.CancelBookingResponse, error)
	// ConfirmBooking 管理员确认待支付预约
	ConfirmBooking(ctx context.Context, bookingID, callerID string) (*dto.BookingResponse, error)
	ListMine(ctx context.Context, userID string, includeCancelled bool) ([]dto.BookingResponse, error)
	ListBySession(ctx context.Context, sessionID string) ([]dto.BookingResponse, error)
	// CalendarFeed 用户有效预约的 iCalendar 订阅内容
	CalendarFeed(ctx context.Context, userID string) ([]byte, error)
}

type bookingService struct {
	*serviceEnv
}

// NewBookingService 创建 BookingService 实例
func NewBookingService(env *serviceEnv) BookingService {
	return &bookingService{serviceEnv: env}
}

// ────────────────────── AttemptBooking ──────────────────────

func (s *bookingService) AttemptBooking(ctx context.Context, caller Caller, req *dto.CreateBookingRequest) (*dto.BookingResponse, error) {
	kind := model.SlotKind(req.SlotKind)
	if !kind.Valid() {
		return nil, ErrInvalidSlotKind
	}

	var (
		booking *model.Booking
		session *model.GameSession
	)
	err := s.withTx(ctx, func(txRepo *repository.Repository) error {
		// 锁定用户行：同一用户的并发预约在此串行，每周计数与余额判断不会被并发绕过
		user, err := txRepo.User.GetByIDForUpdate(ctx, caller.UserID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		// 1. 时间窗口；共享锁保证取消场次要么在此之前提交，要么等本事务提交后再取消本预约
		session, err = txRepo.GameSession.GetByIDForShare(ctx, req.SessionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if !session.Bookable() {
			return ErrSessionCancelled
		}
		w, err := s.windowFor(ctx, txRepo, session)
		if err != nil {
			return err
		}
		if err := w.check(s.clock.Now()); err != nil {
			return err
		}

		if _, err := txRepo.Booking.GetActiveBySessionAndUser(ctx, session.SessionID, user.UserID); err == nil {
			return ErrAlreadyBooked
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 2. 容量（只读预检，决定报告顺序）
		if err := precheckCapacity(ctx, txRepo.SessionLedger, session.SessionID, kind); err != nil {
			return err
		}

		// 3. 额度
		if err := s.quota.canBook(ctx, txRepo, user, session.StartTime, kind); err != nil {
			return err
		}

		// 4. 原子占位，并发下以此为准
		if err := reserveSlot(ctx, txRepo.SessionLedger, session.SessionID, kind); err != nil {
			return err
		}

		now := s.clock.Now()
		booking = &model.Booking{
			SessionID: session.SessionID,
			UserID:    user.UserID,
			SlotKind:  kind,
			Status:    model.BookingPendingPayment,
		}
		// 会员名额直接消耗一次预付场次并确认
		if kind == model.SlotMember {
			booking.Status = model.BookingConfirmed
			booking.ConfirmedAt = &now
		}
		booking.CreatedBy = &caller.UserID
		booking.UpdatedBy = &caller.UserID

		if err := txRepo.Booking.Create(ctx, booking); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrAlreadyBooked
			}
			return err
		}

		if kind == model.SlotMember {
			user.SetRemainingSessions(user.RemainingSessions - 1)
			user.UpdatedBy = &caller.UserID
			if err := txRepo.User.UpdateQuota(ctx, user); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, s.bookingError("预约失败", req.SessionID, caller.UserID, err)
	}

	s.logger.Info("预约成功",
		zap.String("booking_id", booking.BookingID),
		zap.String("session_id", booking.SessionID),
		zap.String("user_id", booking.UserID),
		zap.String("slot_kind", string(booking.SlotKind)),
	)
	s.publishBookingEvent(ctx, mq.RoutingBookingCreated, booking, session.StartTime, false)

	booking.Session = session
	return s.toBookingResponse(booking), nil
}

// ────────────────────── CancelBooking ──────────────────────

func (s *bookingService) CancelBooking(ctx context.Context, caller Caller, bookingID string) (*dto.CancelBookingResponse, error) {
	existing, err := s.repo.Booking.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, err
	}
	if existing.UserID != caller.UserID && !caller.IsAdmin() {
		return nil, ErrBookingForbidden
	}

	var result cancelResult
	alreadyCancelled := false
	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		// 加锁顺序与预约路径一致：用户 → 预约 → 台账
		if _, err := txRepo.User.GetByIDForUpdate(ctx, existing.UserID); err != nil {
			return err
		}
		booking, err := txRepo.Booking.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		if booking.Status == model.BookingCancelled {
			alreadyCancelled = true
			result = cancelResult{booking: booking}
			return nil
		}
		result, err = cancelLocked(ctx, txRepo, booking, s.clock.Now(), caller.UserID)
		return err
	})
	if err != nil {
		// 并发取消：对方已提交，本次视为空操作
		if errors.Is(err, ErrConflict) {
			if b, getErr := s.repo.Booking.GetByID(ctx, bookingID); getErr == nil && b.Status == model.BookingCancelled {
				return &dto.CancelBookingResponse{Booking: *s.toBookingResponse(b), AlreadyCancelled: true}, nil
			}
		}
		return nil, s.bookingError("取消预约失败", existing.SessionID, caller.UserID, err)
	}

	if !alreadyCancelled {
		var start time.Time
		if existing.Session != nil {
			start = existing.Session.StartTime
		}
		s.publishBookingEvent(ctx, mq.RoutingBookingCancelled, result.booking, start, result.refunded)
		s.logger.Info("预约已取消",
			zap.String("booking_id", bookingID),
			zap.String("caller_id", caller.UserID),
			zap.Bool("refunded", result.refunded),
		)
	}

	result.booking.Session = existing.Session
	return &dto.CancelBookingResponse{
		Booking:          *s.toBookingResponse(result.booking),
		AlreadyCancelled: alreadyCancelled,
		Refunded:         result.refunded,
	}, nil
}

// ────────────────────── ConfirmBooking ──────────────────────

func (s *bookingService) ConfirmBooking(ctx context.Context, bookingID, callerID string) (*dto.BookingResponse, error) {
	existing, err := s.repo.Booking.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrBookingNotFound
		}
		s.logger.Error("查询预约失败", zap.String("booking_id", bookingID), zap.Error(err))
		return nil, err
	}

	var booking *model.Booking
	changed := false
	err = s.withTx(ctx, func(txRepo *repository.Repository) error {
		user, err := txRepo.User.GetByIDForUpdate(ctx, existing.UserID)
		if err != nil {
			return err
		}
		booking, err = txRepo.Booking.GetByIDForUpdate(ctx, bookingID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrBookingNotFound
			}
			return err
		}
		switch booking.Status {
		case model.BookingConfirmed:
			return nil
		case model.BookingCancelled:
			return ErrBookingNotConfirmable
		}

		if booking.SlotKind == model.SlotMember {
			if user.RemainingSessions <= 0 {
				return ErrInsufficientBalance
			}
			user.SetRemainingSessions(user.RemainingSessions - 1)
			user.UpdatedBy = &callerID
			if err := txRepo.User.UpdateQuota(ctx, user); err != nil {
				return err
			}
		}

		now := s.clock.Now()
		booking.Status = model.BookingConfirmed
		booking.ConfirmedAt = &now
		booking.UpdatedBy = &callerID
		if err := txRepo.Booking.Transition(ctx, booking, model.BookingPendingPayment); err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, s.bookingError("确认预约失败", existing.SessionID, existing.UserID, err)
	}

	if changed {
		var start time.Time
		if existing.Session != nil {
			start = existing.Session.StartTime
		}
		s.publishBookingEvent(ctx, mq.RoutingBookingConfirmed, booking, start, false)
	}

	booking.Session = existing.Session
	return s.toBookingResponse(booking), nil
}

// ────────────────────── ListMine ──────────────────────

func (s *bookingService) ListMine(ctx context.Context, userID string, includeCancelled bool) ([]dto.BookingResponse, error) {
	bookings, err := s.repo.Booking.ListByUser(ctx, userID, includeCancelled)
	if err != nil {
		s.logger.Error("查询用户预约失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	return s.toBookingResponses(bookings), nil
}

// ────────────────────── ListBySession ──────────────────────

func (s *bookingService) ListBySession(ctx context.Context, sessionID string) ([]dto.BookingResponse, error) {
	if _, err := s.repo.GameSession.GetByID(ctx, sessionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	bookings, err := s.repo.Booking.ListBySession(ctx, sessionID)
	if err != nil {
		s.logger.Error("查询场次预约失败", zap.String("session_id", sessionID), zap.Error(err))
		return nil, err
	}
	return s.toBookingResponses(bookings), nil
}

// ── 取消的补偿动作 ──

type cancelResult struct {
	booking  *model.Booking
	refunded bool
}

// cancelLocked 取消一条有效预约：状态置为 cancelled、释放名额、已确认的会员名额退还一次余额。
// 调用方负责事务与用户行加锁
func cancelLocked(ctx context.Context, txRepo *repository.Repository, booking *model.Booking, now time.Time, callerID string) (cancelResult, error) {
	from := booking.Status
	if !from.CanTransitionTo(model.BookingCancelled) {
		return cancelResult{booking: booking}, nil
	}

	booking.Status = model.BookingCancelled
	booking.CancelledAt = &now
	booking.UpdatedBy = &callerID
	if err := txRepo.Booking.Transition(ctx, booking, from); err != nil {
		return cancelResult{}, err
	}
	if err := txRepo.SessionLedger.Release(ctx, booking.SessionID, booking.SlotKind); err != nil {
		return cancelResult{}, err
	}

	if from != model.BookingConfirmed || booking.SlotKind != model.SlotMember {
		return cancelResult{booking: booking}, nil
	}

	user, err := txRepo.User.GetByIDForUpdate(ctx, booking.UserID)
	if err != nil {
		return cancelResult{}, err
	}
	user.SetRemainingSessions(user.RemainingSessions + 1)
	user.UpdatedBy = &callerID
	if err := txRepo.User.UpdateQuota(ctx, user); err != nil {
		return cancelResult{}, err
	}
	return cancelResult{booking: booking, refunded: true}, nil
}

// ── 内部辅助方法 ──

// bookingError 业务拒绝原样返回；数据库并发错误转换为 ErrConflict；其余记录日志
func (s *bookingService) bookingError(msg, sessionID, userID string, err error) error {
	err = translateConflict(err)
	switch {
	case errors.Is(err, ErrNotBookable), errors.Is(err, ErrCapacity), errors.Is(err, ErrQuota),
		errors.Is(err, ErrBookingNotFound), errors.Is(err, ErrBookingNotConfirmable),
		errors.Is(err, ErrUserNotFound), errors.Is(err, ErrSemesterNotFound):
		return err
	case errors.Is(err, ErrConflict):
		s.logger.Warn(msg+"：并发冲突", zap.String("session_id", sessionID), zap.String("user_id", userID), zap.Error(err))
		return err
	}
	s.logger.Error(msg, zap.String("session_id", sessionID), zap.String("user_id", userID), zap.Error(err))
	return err
}

func (s *bookingService) toBookingResponses(bookings []model.Booking) []dto.BookingResponse {
	result := make([]dto.BookingResponse, 0, len(bookings))
	for i := range bookings {
		result = append(result, *s.toBookingResponse(&bookings[i]))
	}
	return result
}

func (s *bookingService) toBookingResponse(b *model.Booking) *dto.BookingResponse {
	resp := &dto.BookingResponse{
		ID:        b.BookingID,
		SessionID: b.SessionID,
		UserID:    b.UserID,
		Status:    string(b.Status),
		SlotKind:  string(b.SlotKind),
		CreatedAt: formatDateTime(b.CreatedAt),
	}
	if b.ConfirmedAt != nil {
		v := formatDateTime(*b.ConfirmedAt)
		resp.ConfirmedAt = &v
	}
	if b.CancelledAt != nil {
		v := formatDateTime(*b.CancelledAt)
		resp.CancelledAt = &v
	}
	if b.Session != nil {
		resp.Session = toSessionResponse(b.Session, s.loc)
	}
	if b.User != nil {
		resp.User = toUserResponse(b.User)
	}
	return resp
}
