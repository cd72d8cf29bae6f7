package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/config"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/clock"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth             AuthService
	Semester         SemesterService
	ScheduleTemplate ScheduleTemplateService
	GameSession      GameSessionService
	Booking          BookingService
	User             UserService
	BookingPolicy    BookingPolicyService
}

// Deps 可选协作者；为 nil 时对应功能降级（不发事件、不拉黑 Token）
type Deps struct {
	Clock     clock.Clock
	Events    EventPublisher
	Blacklist TokenBlacklist
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	deps Deps,
	logger *zap.Logger,
) *Service {
	if deps.Clock == nil {
		deps.Clock = clock.System(cfg.Club.Location())
	}
	env := newServiceEnv(cfg, repo, deps, logger)
	return &Service{
		Auth:             NewAuthService(deps.Blacklist, logger),
		Semester:         NewSemesterService(env),
		ScheduleTemplate: NewScheduleTemplateService(env),
		GameSession:      NewGameSessionService(env),
		Booking:          NewBookingService(env),
		User:             NewUserService(env),
		BookingPolicy:    NewBookingPolicyService(env),
	}
}

// Caller 当前请求的调用者（来自身份认证中间件）
type Caller struct {
	UserID string
	Role   model.Role
}

// IsAdmin 是否管理员
func (c Caller) IsAdmin() bool { return c.Role == model.RoleAdmin }

// serviceEnv 各业务服务共享的依赖
type serviceEnv struct {
	repo        *repository.Repository
	clock       clock.Clock
	loc         *time.Location
	lockTimeout time.Duration
	workers     int
	quota       *quotaEngine
	events      EventPublisher
	logger      *zap.Logger
}

func newServiceEnv(cfg *config.Config, repo *repository.Repository, deps Deps, logger *zap.Logger) *serviceEnv {
	workers := cfg.Club.MaterializeWorkers
	if workers <= 0 {
		workers = 1
	}
	return &serviceEnv{
		repo:        repo,
		clock:       deps.Clock,
		loc:         cfg.Club.Location(),
		lockTimeout: cfg.Database.LockTimeout,
		workers:     workers,
		quota:       newQuotaEngine(&cfg.Club, logger),
		events:      deps.Events,
		logger:      logger,
	}
}

// today 俱乐部时区下的今天
func (e *serviceEnv) today() time.Time {
	return localDate(e.clock.Now(), e.loc)
}

// withTx 在一个事务中执行 fn；fn 返回错误或 panic 时回滚
// mock 组装的 Repository 没有事务（tx 为 nil），fn 直接作用于原 Repository
func (e *serviceEnv) withTx(ctx context.Context, fn func(txRepo *repository.Repository) error) error {
	tx, err := e.repo.BeginTx(ctx)
	if err != nil {
		e.logger.Error("开启事务失败", zap.Error(err))
		return err
	}
	defer func() {
		if r := recover(); r != nil {
			if tx != nil {
				tx.Rollback()
			}
			panic(r)
		}
	}()

	txRepo := e.repo.WithTx(tx)

	if tx != nil {
		if err := txRepo.SetLockTimeout(ctx, e.lockTimeout); err != nil {
			tx.Rollback()
			return err
		}
	}

	if err := fn(txRepo); err != nil {
		if tx != nil {
			tx.Rollback()
		}
		return err
	}

	if tx != nil {
		if err := tx.Commit().Error; err != nil {
			e.logger.Error("提交事务失败", zap.Error(err))
			return err
		}
	}
	return nil
}
