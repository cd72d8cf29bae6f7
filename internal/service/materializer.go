package service

import (
	"fmt"
	"time"

	"github.com/UoaWDCC/uabc-web-sub005/internal/model"
)

// occurrence 模板在某一天的一次具体场次
type occurrence struct {
	Date  time.Time // 日期（UTC 零点）
	Start time.Time
	End   time.Time
}

// planOccurrences 列出模板在学期 [startDate, endDate] 内、不早于 today 的全部周次日期，
// 跳过 [breakStart, breakEnd]；时刻按 loc 解释
func planOccurrences(semester *model.Semester, tpl *model.ScheduleTemplate, today time.Time, loc *time.Location) ([]occurrence, error) {
	startClock, err := parseClock(tpl.StartTime)
	if err != nil {
		return nil, fmt.Errorf("%w: 模板开始时刻无效: %v", ErrConfiguration, err)
	}
	endClock, err := parseClock(tpl.EndTime)
	if err != nil {
		return nil, fmt.Errorf("%w: 模板结束时刻无效: %v", ErrConfiguration, err)
	}
	if startClock.seconds() >= endClock.seconds() {
		return nil, ErrTemplateTimeInvalid
	}
	if tpl.DayOfWeek < 1 || tpl.DayOfWeek > 7 {
		return nil, ErrTemplateWeekdayInvalid
	}

	first := civilDate(semester.StartDate)
	last := civilDate(semester.EndDate)
	breakStart := civilDate(semester.BreakStart)
	breakEnd := civilDate(semester.BreakEnd)
	today = civilDate(today)

	if today.After(first) {
		first = today
	}

	// 第一个匹配星期的日期
	day := first.AddDate(0, 0, (tpl.DayOfWeek-isoWeekday(first)+7)%7)

	var out []occurrence
	for ; !day.After(last); day = day.AddDate(0, 0, 7) {
		if !day.Before(breakStart) && !day.After(breakEnd) {
			continue
		}
		out = append(out, occurrence{
			Date:  day,
			Start: at(day, startClock, loc),
			End:   at(day, endClock, loc),
		})
	}
	return out, nil
}
