package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/config"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
)

// quotaEngine 每周预约上限与预付余额规则
type quotaEngine struct {
	defaults model.BookingPolicy
	loc      *time.Location
	logger   *zap.Logger
}

func newQuotaEngine(club *config.ClubConfig, logger *zap.Logger) *quotaEngine {
	return &quotaEngine{
		defaults: model.BookingPolicy{
			MemberWeeklyLimit: club.MemberWeeklyLimit,
			CasualWeeklyLimit: club.CasualWeeklyLimit,
		},
		loc:    club.Location(),
		logger: logger,
	}
}

// policy 读取策略表；未初始化时回退到配置默认值
func (q *quotaEngine) policy(ctx context.Context, policies repository.BookingPolicyRepository) (*model.BookingPolicy, error) {
	p, err := policies.Get(ctx)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			fallback := q.defaults
			return &fallback, nil
		}
		q.logger.Error("查询预约策略失败", zap.Error(err))
		return nil, err
	}
	return p, nil
}

// weeklyUsage 返回 target 所在 ISO 周的周一与该周有效预约数
func (q *quotaEngine) weeklyUsage(ctx context.Context, bookings repository.BookingRepository, userID string, target time.Time) (time.Time, int64, error) {
	from, to := weekBounds(target, q.loc)
	n, err := bookings.CountActiveByUserBetween(ctx, userID, from, to)
	return from, n, err
}

// canBook 判断用户能否在 target 所在周以 kind 名额再预约一次
func (q *quotaEngine) canBook(ctx context.Context, repo *repository.Repository, user *model.User, target time.Time, kind model.SlotKind) error {
	if kind == model.SlotMember && user.RemainingSessions <= 0 {
		return ErrInsufficientBalance
	}
	if user.IsAdmin() {
		return nil
	}

	p, err := q.policy(ctx, repo.BookingPolicy)
	if err != nil {
		return err
	}
	_, used, err := q.weeklyUsage(ctx, repo.Booking, user.UserID, target)
	if err != nil {
		q.logger.Error("统计每周预约数失败", zap.String("user_id", user.UserID), zap.Error(err))
		return err
	}
	if used >= int64(p.WeeklyLimit(user.Role)) {
		return ErrWeeklyLimitReached
	}
	return nil
}
