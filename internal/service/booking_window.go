package service

import (
	"fmt"
	"time"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// BookingWindow 场次的预约窗口 [OpensAt, ClosesAt)
type BookingWindow struct {
	OpensAt  time.Time
	ClosesAt time.Time
	// Misconfigured 开放时刻不早于场次开始：该场次永不开放，需提示管理员修正
	Misconfigured bool
}

// IsOpen 判断 now 时刻是否可预约
func (w BookingWindow) IsOpen(now time.Time) bool {
	if w.Misconfigured {
		return false
	}
	return !now.Before(w.OpensAt) && now.Before(w.ClosesAt)
}

// check 返回 now 时刻不可预约的原因，可预约时返回 nil
func (w BookingWindow) check(now time.Time) error {
	switch {
	case w.Misconfigured:
		return ErrWindowNeverOpens
	case now.Before(w.OpensAt):
		return ErrWindowNotOpen
	case !now.Before(w.ClosesAt):
		return ErrWindowClosed
	}
	return nil
}

// computeBookingWindow 预约在“场次日期当天或之前最近一次的开放星期 + 开放时刻”开放，
// 到场次开始时关闭
func computeBookingWindow(session *model.GameSession, semester *model.Semester, loc *time.Location) (BookingWindow, error) {
	openClock, err := parseClock(semester.BookingOpenTime)
	if err != nil {
		return BookingWindow{}, fmt.Errorf("%w: 学期 %s 的开放时刻无效: %v", ErrConfiguration, semester.SemesterID, err)
	}
	if semester.BookingOpenDay < 1 || semester.BookingOpenDay > 7 {
		return BookingWindow{}, fmt.Errorf("%w: 学期 %s 的开放星期无效: %d", ErrConfiguration, semester.SemesterID, semester.BookingOpenDay)
	}

	sessionDay := localDate(session.StartTime, loc)
	back := (isoWeekday(sessionDay) - semester.BookingOpenDay + 7) % 7
	openDay := sessionDay.AddDate(0, 0, -back)

	w := BookingWindow{
		OpensAt:  at(openDay, openClock, loc),
		ClosesAt: session.StartTime.In(loc),
	}
	w.Misconfigured = !w.OpensAt.Before(w.ClosesAt)
	return w, nil
}
