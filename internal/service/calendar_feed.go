package service

import (
	"context"
	"fmt"

	ics "github.com/arran4/golang-ical"
	"go.uber.org/zap"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// ────────────────────── CalendarFeed ──────────────────────

func (s *bookingService) CalendarFeed(ctx context.Context, userID string) ([]byte, error) {
	bookings, err := s.repo.Booking.ListByUser(ctx, userID, false)
	if err != nil {
		s.logger.Error("查询用户预约失败", zap.String("user_id", userID), zap.Error(err))
		return nil, err
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId("-//UABC//Badminton Sessions//EN")
	cal.SetName("UABC 羽毛球场次")
	cal.SetXWRCalName("UABC 羽毛球场次")
	cal.SetXWRTimezone(s.loc.String())

	stamp := s.clock.Now()
	for _, b := range bookings {
		if b.Session == nil {
			continue
		}
		sess := b.Session

		evt := cal.AddEvent(fmt.Sprintf("%s@uabc", b.BookingID))
		evt.SetDtStampTime(stamp)
		evt.SetStartAt(sess.StartTime)
		evt.SetEndAt(sess.EndTime)
		evt.SetSummary(fmt.Sprintf("羽毛球 · %s", sess.VenueName))
		if sess.VenueAddress != "" {
			evt.SetLocation(sess.VenueAddress)
		} else {
			evt.SetLocation(sess.VenueName)
		}
		evt.SetDescription(fmt.Sprintf("名额类型: %s\n预约状态: %s", b.SlotKind, b.Status))
		if b.Status == model.BookingPendingPayment {
			evt.SetStatus(ics.ObjectStatusTentative)
		} else {
			evt.SetStatus(ics.ObjectStatusConfirmed)
		}
	}

	return []byte(cal.Serialize()), nil
}
