package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/config"
	"github.com/UoaWDCC/uabc-web-sub005/internal/api/handler"
	"github.com/UoaWDCC/uabc-web-sub005/internal/api/middleware"
	"github.com/UoaWDCC/uabc-web-sub005/internal/api/router"
	"github.com/UoaWDCC/uabc-web-sub005/internal/repository"
	"github.com/UoaWDCC/uabc-web-sub005/internal/service"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/database"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/jwt"
	applogger "github.com/UoaWDCC/uabc-web-sub005/pkg/logger"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/mq"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load(os.Getenv("UABC_CONFIG_FILE"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("club_timezone", cfg.Club.Timezone),
	)

	// 3. 连接数据库并执行迁移
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 4. 可选依赖：Redis（黑名单、限流）与 RabbitMQ（预约事件），失败时降级运行。
	// 接口变量只在连接成功时赋值，避免 typed nil
	deps := service.Deps{}
	var (
		blacklist middleware.TokenBlacklist
		limiter   middleware.RateLimiter
	)

	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，Token 黑名单与限流将不可用", zap.Error(err))
	} else {
		deps.Blacklist = rdb
		blacklist = rdb
		limiter = rdb
	}

	var publisher *mq.Publisher
	if cfg.MQ.Enabled {
		publisher, err = mq.NewPublisher(&cfg.MQ, logger)
		if err != nil {
			logger.Warn("RabbitMQ 连接失败，预约事件将不会发布", zap.Error(err))
		} else {
			deps.Events = publisher
		}
	}

	// 5. 依赖注入: Repository → Service → Handler
	jwtMgr := jwt.NewManager(&cfg.Auth)
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, deps, logger)
	h := handler.NewHandler(svc)

	// 6. 初始化路由
	engine := router.Setup(cfg, h, jwtMgr, blacklist, limiter, logger)

	// 7. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 8. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("关闭 RabbitMQ 连接失败", zap.Error(err))
		}
	}
	if rdb != nil {
		rdb.Close()
	}
	sqlDB.Close()

	logger.Info("服务器已关闭")
}
