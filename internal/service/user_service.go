package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
)

// ── 用户额度模块业务错误 ──

var (
	ErrUserNotFound          = errors.New("用户不存在")
	ErrEmailTaken            = errors.New("邮箱已被使用")
	ErrSessionsAdjustInvalid = errors.New("调整后余额不能为负数")
)

// UserService 用户额度业务接口
type UserService interface {
	Create(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error)
	// GetMe 当前用户的余额、角色与本周预约情况
	GetMe(ctx context.Context, userID string) (*dto.QuotaResponse, error)
	GetByID(ctx context.Context, id string) (*dto.UserResponse, error)
	List(ctx context.Context, req *dto.UserListRequest) (*dto.UserListResponse, error)
	// AdjustSessions 管理员充值或修正预付场次，角色随余额同步重算
	AdjustSessions(ctx context.Context, userID string, req *dto.AdjustSessionsRequest, callerID string) (*dto.UserResponse, error)
}

type userService struct {
	*serviceEnv
}

// NewUserService 创建 UserService 实例
func NewUserService(env *serviceEnv) UserService {
	return &userService{serviceEnv: env}
}

// ────────────────────── Create ──────────────────────

func (s *userService) Create(ctx context.Context, req *dto.CreateUserRequest, callerID string) (*dto.UserResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.repo.User.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询用户失败", zap.Error(err))
		return nil, err
	}

	user := &model.User{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     email,
	}
	user.RemainingSessions = req.RemainingSessions
	user.Role = model.DeriveRole(user.RemainingSessions, req.Admin)
	user.CreatedBy = &callerID
	user.UpdatedBy = &callerID

	if err := s.repo.User.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		s.logger.Error("创建用户失败", zap.Error(err))
		return nil, err
	}

	return toUserResponse(user), nil
}

// ────────────────────── GetMe ──────────────────────

func (s *userService) GetMe(ctx context.Context, userID string) (*dto.QuotaResponse, error) {
	user, err := s.getUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	weekStart, used, err := s.quota.weeklyUsage(ctx, s.repo.Booking, userID, s.clock.Now())
	if err != nil {
		s.logger.Error("统计每周预约数失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}
	policy, err := s.quota.policy(ctx, s.repo.BookingPolicy)
	if err != nil {
		return nil, err
	}

	return &dto.QuotaResponse{
		UserResponse:   *toUserResponse(user),
		WeekStart:      formatDate(weekStart),
		WeeklyBookings: int(used),
		WeeklyLimit:    policy.WeeklyLimit(user.Role),
	}, nil
}

// ────────────────────── GetByID ──────────────────────

func (s *userService) GetByID(ctx context.Context, id string) (*dto.UserResponse, error) {
	user, err := s.getUser(ctx, id)
	if err != nil {
		return nil, err
	}
	return toUserResponse(user), nil
}

// ────────────────────── List ──────────────────────

func (s *userService) List(ctx context.Context, req *dto.UserListRequest) (*dto.UserListResponse, error) {
	users, total, err := s.repo.User.List(ctx, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("查询用户列表失败", zap.Error(err))
		return nil, err
	}

	items := make([]dto.UserResponse, 0, len(users))
	for i := range users {
		items = append(items, *toUserResponse(&users[i]))
	}
	return &dto.UserListResponse{Items: items, Total: total, Page: req.GetPage()}, nil
}

// ────────────────────── AdjustSessions ──────────────────────

func (s *userService) AdjustSessions(ctx context.Context, userID string, req *dto.AdjustSessionsRequest, callerID string) (*dto.UserResponse, error) {
	var user *model.User
	err := s.withTx(ctx, func(txRepo *repository.Repository) error {
		var err error
		user, err = txRepo.User.GetByIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		next := user.RemainingSessions + req.Delta
		if next < 0 {
			return ErrSessionsAdjustInvalid
		}
		user.SetRemainingSessions(next)
		user.UpdatedBy = &callerID
		return txRepo.User.UpdateQuota(ctx, user)
	})
	if err != nil {
		if errors.Is(err, ErrUserNotFound) || errors.Is(err, ErrSessionsAdjustInvalid) {
			return nil, err
		}
		err = translateConflict(err)
		s.logger.Error("调整预付场次失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	s.logger.Info("预付场次已调整",
		zap.String("user_id", userID),
		zap.Int("delta", req.Delta),
		zap.Int("remaining", user.RemainingSessions),
		zap.String("role", string(user.Role)),
		zap.String("reason", req.Reason),
		zap.String("caller_id", callerID),
	)
	return toUserResponse(user), nil
}

// ── 内部辅助方法 ──

func (s *userService) getUser(ctx context.Context, id string) (*model.User, error) {
	user, err := s.repo.User.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		s.logger.Error("查询用户失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}
	return user, nil
}

func toUserResponse(user *model.User) *dto.UserResponse {
	return &dto.UserResponse{
		ID:                user.UserID,
		FirstName:         user.FirstName,
		LastName:          user.LastName,
		Email:             user.Email,
		Role:              string(user.Role),
		RemainingSessions: user.RemainingSessions,
	}
}
