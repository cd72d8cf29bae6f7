package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
	"github.com/UoaWDCC/uabc-web-sub005/pkg/mq"
)

// EventPublisher 预约事件发布（*mq.Publisher 实现）
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

// publishBookingEvent 事务提交后发布事件；发布失败只记录日志，不影响预约结果
func (e *serviceEnv) publishBookingEvent(ctx context.Context, routingKey string, booking *model.Booking, sessionStart time.Time, refunded bool) {
	if e.events == nil {
		return
	}
	evt := mq.BookingEvent{
		BookingID:    booking.BookingID,
		SessionID:    booking.SessionID,
		UserID:       booking.UserID,
		SlotKind:     string(booking.SlotKind),
		Status:       string(booking.Status),
		SessionStart: sessionStart,
		Refunded:     refunded,
		OccurredAt:   e.clock.Now(),
	}
	if err := e.events.Publish(ctx, routingKey, evt); err != nil {
		e.logger.Warn("发布预约事件失败",
			zap.String("routing_key", routingKey),
			zap.String("booking_id", booking.BookingID),
			zap.Error(err),
		)
	}
}
