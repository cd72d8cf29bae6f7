package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/pkg/jwt"
)

// TokenBlacklist Token 黑名单存储（*redis.Client 实现）
type TokenBlacklist interface {
	BlacklistToken(ctx context.Context, jti string, ttl time.Duration) error
}

// AuthService 认证业务接口
// 登录由俱乐部统一身份系统负责，这里只处理当前 Token 的注销
type AuthService interface {
	Logout(ctx context.Context, claims *jwt.Claims) error
}

type authService struct {
	blacklist TokenBlacklist
	logger    *zap.Logger
}

// NewAuthService 创建 AuthService 实例
func NewAuthService(blacklist TokenBlacklist, logger *zap.Logger) AuthService {
	return &authService{blacklist: blacklist, logger: logger}
}

func (s *authService) Logout(ctx context.Context, claims *jwt.Claims) error {
	if s.blacklist == nil {
		s.logger.Warn("未配置 Redis，注销的 Token 在过期前仍然有效", zap.String("user_id", claims.UserID))
		return nil
	}
	if err := s.blacklist.BlacklistToken(ctx, claims.ID, jwt.RemainingTTL(claims)); err != nil {
		s.logger.Error("Token 加入黑名单失败", zap.String("user_id", claims.UserID), zap.Error(err))
		return err
	}
	return nil
}
