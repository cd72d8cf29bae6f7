package handler

import "github.com/UoaWDCC/uabc-web-sub005/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Auth             *AuthHandler
	Semester         *SemesterHandler
	ScheduleTemplate *ScheduleTemplateHandler
	GameSession      *GameSessionHandler
	Booking          *BookingHandler
	User             *UserHandler
	BookingPolicy    *BookingPolicyHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Auth:             NewAuthHandler(svc.Auth),
		Semester:         NewSemesterHandler(svc.Semester),
		ScheduleTemplate: NewScheduleTemplateHandler(svc.ScheduleTemplate),
		GameSession:      NewGameSessionHandler(svc.GameSession, svc.Booking),
		Booking:          NewBookingHandler(svc.Booking),
		User:             NewUserHandler(svc.User),
		BookingPolicy:    NewBookingPolicyHandler(svc.BookingPolicy),
	}
}
