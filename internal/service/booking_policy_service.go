package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// BookingPolicyService 预约策略业务接口
type BookingPolicyService interface {
	Get(ctx context.Context) (*dto.BookingPolicyResponse, error)
	Update(ctx context.Context, req *dto.UpdateBookingPolicyRequest, callerID string) (*dto.BookingPolicyResponse, error)
}

type bookingPolicyService struct {
	*serviceEnv
}

// NewBookingPolicyService 创建 BookingPolicyService 实例
func NewBookingPolicyService(env *serviceEnv) BookingPolicyService {
	return &bookingPolicyService{serviceEnv: env}
}

// ────────────────────── Get ──────────────────────

func (s *bookingPolicyService) Get(ctx context.Context) (*dto.BookingPolicyResponse, error) {
	policy, err := s.quota.policy(ctx, s.repo.BookingPolicy)
	if err != nil {
		return nil, err
	}
	return toPolicyResponse(policy), nil
}

// ────────────────────── Update ──────────────────────

func (s *bookingPolicyService) Update(ctx context.Context, req *dto.UpdateBookingPolicyRequest, callerID string) (*dto.BookingPolicyResponse, error) {
	policy, err := s.quota.policy(ctx, s.repo.BookingPolicy)
	if err != nil {
		return nil, err
	}

	if req.MemberWeeklyLimit != nil {
		policy.MemberWeeklyLimit = *req.MemberWeeklyLimit
	}
	if req.CasualWeeklyLimit != nil {
		policy.CasualWeeklyLimit = *req.CasualWeeklyLimit
	}
	policy.UpdatedBy = &callerID

	if err := s.repo.BookingPolicy.Update(ctx, policy); err != nil {
		s.logger.Error("更新预约策略失败", zap.Error(err))
		return nil, err
	}

	s.logger.Info("预约策略已更新",
		zap.Int("member_weekly_limit", policy.MemberWeeklyLimit),
		zap.Int("casual_weekly_limit", policy.CasualWeeklyLimit),
		zap.String("caller_id", callerID),
	)
	return toPolicyResponse(policy), nil
}

func toPolicyResponse(policy *model.BookingPolicy) *dto.BookingPolicyResponse {
	resp := &dto.BookingPolicyResponse{
		MemberWeeklyLimit: policy.MemberWeeklyLimit,
		CasualWeeklyLimit: policy.CasualWeeklyLimit,
	}
	if !policy.UpdatedAt.IsZero() {
		resp.UpdatedAt = formatDateTime(policy.UpdatedAt)
	}
	return resp
}
