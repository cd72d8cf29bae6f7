package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/config"
	"github.com/UoaWDCC/uabc-web-sub005/internal/api/handler"
	"github.com/UoaWDCC/uabc-web-sub005/internal/api/middleware"
	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/jwt"
)

// Setup 初始化并返回 Gin 路由引擎
// blacklist / limiter 为 nil 时对应检查降级关闭（未配置 Redis）
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	jwtMgr *jwt.Manager,
	blacklist middleware.TokenBlacklist,
	limiter middleware.RateLimiter,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	adminOnly := middleware.RoleAuth(model.RoleAdmin)
	bookingLimit := middleware.RateLimit(limiter, cfg.RateLimit.BookingLimit, cfg.RateLimit.BookingWindow, logger)

	// ── API v1（全部需要认证） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(jwtMgr, blacklist, logger))
	{
		v1.POST("/auth/logout", h.Auth.Logout)

		// 学期模块
		semesters := v1.Group("/semesters")
		{
			semesters.GET("", h.Semester.ListSemesters)
			semesters.GET("/current", h.Semester.GetCurrentSemester)
			semesters.GET("/:id", h.Semester.GetSemester)
			semesters.POST("", adminOnly, h.Semester.CreateSemester)
			semesters.PUT("/:id", adminOnly, h.Semester.UpdateSemester)
			semesters.DELETE("/:id", adminOnly, h.Semester.DeleteSemester)
			semesters.POST("/:id/materialize", adminOnly, h.GameSession.MaterializeSemester)
		}

		// 场次模板模块
		templates := v1.Group("/schedule-templates")
		{
			templates.GET("", h.ScheduleTemplate.ListTemplates)
			templates.GET("/:id", h.ScheduleTemplate.GetTemplate)
			templates.POST("", adminOnly, h.ScheduleTemplate.CreateTemplate)
			templates.PUT("/:id", adminOnly, h.ScheduleTemplate.UpdateTemplate)
			templates.DELETE("/:id", adminOnly, h.ScheduleTemplate.DeleteTemplate)
			templates.POST("/:id/materialize", adminOnly, h.GameSession.MaterializeTemplate)
		}

		// 场次模块
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.GameSession.ListSessions)
			sessions.GET("/:id", h.GameSession.GetSession)
			sessions.GET("/:id/window", h.GameSession.GetBookingWindow)
			sessions.GET("/:id/capacity", h.GameSession.GetCapacity)
			sessions.GET("/:id/bookings", adminOnly, h.GameSession.ListSessionBookings)
			sessions.POST("", adminOnly, h.GameSession.CreateSession)
			sessions.POST("/:id/cancel", adminOnly, h.GameSession.CancelSession)
		}

		// 预约模块
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", bookingLimit, h.Booking.CreateBooking)
			bookings.GET("/me", h.Booking.ListMyBookings)
			bookings.GET("/me/calendar.ics", h.Booking.CalendarFeed)
			bookings.POST("/:id/cancel", bookingLimit, h.Booking.CancelBooking) // 本人或管理员（Service 层鉴权）
			bookings.POST("/:id/confirm", adminOnly, h.Booking.ConfirmBooking)
		}

		// 用户额度模块
		users := v1.Group("/users")
		{
			users.GET("/me", h.User.GetCurrentUser)
			users.GET("", adminOnly, h.User.ListUsers)
			users.POST("", adminOnly, h.User.CreateUser)
			users.GET("/:id", adminOnly, h.User.GetUser)
			users.POST("/:id/sessions", adminOnly, h.User.AdjustSessions)
		}

		// 预约策略
		v1.GET("/booking-policy", h.BookingPolicy.GetPolicy)
		v1.PUT("/booking-policy", adminOnly, h.BookingPolicy.UpdatePolicy)
	}

	return r
}
