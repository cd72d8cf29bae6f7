package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	pkgerrors "github.com/UoaWDCC/uabc-web-sub005/pkg/errors"
)

var activeBookingStatuses = []model.BookingStatus{model.BookingPendingPayment, model.BookingConfirmed}

// BookingRepository 预约数据访问接口
type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	GetByID(ctx context.Context, id string) (*model.Booking, error)
	// GetByIDForUpdate 使用 SELECT ... FOR UPDATE 锁定预约行，必须在事务内调用
	GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error)
	GetActiveBySessionAndUser(ctx context.Context, sessionID, userID string) (*model.Booking, error)
	// CountActiveByUserBetween 统计用户在 [from, to) 内开始的场次上的有效预约数
	CountActiveByUserBetween(ctx context.Context, userID string, from, to time.Time) (int64, error)
	ListByUser(ctx context.Context, userID string, includeCancelled bool) ([]model.Booking, error)
	ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error)
	ListActiveBySession(ctx context.Context, sessionID string) ([]model.Booking, error)
	// Transition 仅当当前状态仍为 from 时更新为 booking.Status，否则返回 ErrConflict
	Transition(ctx context.Context, booking *model.Booking, from model.BookingStatus) error
}

type bookingRepo struct {
	db *gorm.DB
}

// NewBookingRepo 创建 BookingRepository 实例
func NewBookingRepo(db *gorm.DB) BookingRepository {
	return &bookingRepo{db: db}
}

func (r *bookingRepo) Create(ctx context.Context, booking *model.Booking) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(booking).Error
}

func (r *bookingRepo) GetByID(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Preload("Session").
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) GetByIDForUpdate(ctx context.Context, id string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("booking_id = ?", id).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) GetActiveBySessionAndUser(ctx context.Context, sessionID, userID string) (*model.Booking, error) {
	var booking model.Booking
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND user_id = ? AND status IN ?", sessionID, userID, activeBookingStatuses).
		First(&booking).Error
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepo) CountActiveByUserBetween(ctx context.Context, userID string, from, to time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Joins("JOIN game_sessions gs ON gs.session_id = bookings.session_id").
		Where("bookings.user_id = ? AND bookings.status IN ?", userID, activeBookingStatuses).
		Where("gs.start_time >= ? AND gs.start_time < ?", from, to).
		Count(&n).Error
	return n, err
}

func (r *bookingRepo) ListByUser(ctx context.Context, userID string, includeCancelled bool) ([]model.Booking, error) {
	var bookings []model.Booking
	db := r.db.WithContext(ctx).
		Preload("Session").
		Where("user_id = ?", userID)
	if !includeCancelled {
		db = db.Where("status IN ?", activeBookingStatuses)
	}
	err := db.Order("created_at DESC").Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) ListBySession(ctx context.Context, sessionID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Preload("User").
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) ListActiveBySession(ctx context.Context, sessionID string) ([]model.Booking, error) {
	var bookings []model.Booking
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status IN ?", sessionID, activeBookingStatuses).
		Order("created_at ASC").
		Find(&bookings).Error
	return bookings, err
}

func (r *bookingRepo) Transition(ctx context.Context, booking *model.Booking, from model.BookingStatus) error {
	result := r.db.WithContext(ctx).
		Model(&model.Booking{}).
		Where("booking_id = ? AND status = ?", booking.BookingID, from).
		Updates(map[string]interface{}{
			"status":       booking.Status,
			"confirmed_at": booking.ConfirmedAt,
			"cancelled_at": booking.CancelledAt,
			"updated_by":   booking.UpdatedBy,
			"updated_at":   gorm.Expr("NOW()"),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrConflict
	}
	return nil
}
