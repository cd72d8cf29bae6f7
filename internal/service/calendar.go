package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/UoaWDCC/uabc-web-sub005/internal/dto"
)

// ── 日期与时刻工具 ──
// 日期（DATE 列）统一表示为 UTC 零点的 time.Time，只使用年月日；
// 具体时刻总是在俱乐部时区内由“日期 + 时刻”组合得到，夏令时切换不影响 18:30 的含义。

// civilDate 取 t 的年月日，归一化为 UTC 零点
func civilDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// localDate 返回时刻 t 在 loc 下的日期
func localDate(t time.Time, loc *time.Location) time.Time {
	return civilDate(t.In(loc))
}

// parseDate 解析 "2006-01-02"
func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dto.DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, err
	}
	return civilDate(t), nil
}

// clockTime 一天内的时刻
type clockTime struct {
	Hour, Minute, Second int
}

func (c clockTime) seconds() int { return c.Hour*3600 + c.Minute*60 + c.Second }

// String 输出 HH:MM，秒不为 0 时输出 HH:MM:SS
func (c clockTime) String() string {
	if c.Second != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", c.Hour, c.Minute, c.Second)
	}
	return fmt.Sprintf("%02d:%02d", c.Hour, c.Minute)
}

// parseClock 解析 "HH:MM" 或 "HH:MM:SS"（数据库 TIME 列读出为后者）
func parseClock(s string) (clockTime, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return clockTime{}, fmt.Errorf("时刻格式错误: %q", s)
	}
	var vals [3]int
	for i, p := range parts {
		// 兼容 "08:00:00.000000"
		if i == 2 {
			p, _, _ = strings.Cut(p, ".")
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return clockTime{}, fmt.Errorf("时刻格式错误: %q", s)
		}
		vals[i] = n
	}
	c := clockTime{Hour: vals[0], Minute: vals[1], Second: vals[2]}
	if c.Hour < 0 || c.Hour > 23 || c.Minute < 0 || c.Minute > 59 || c.Second < 0 || c.Second > 59 {
		return clockTime{}, fmt.Errorf("时刻超出范围: %q", s)
	}
	return c, nil
}

// at 将日期与时刻在 loc 中组合为具体时间
func at(date time.Time, c clockTime, loc *time.Location) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), c.Hour, c.Minute, c.Second, 0, loc)
}

// isoWeekday 周一=1 … 周日=7
func isoWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// weekBounds 返回 t 所在 ISO 周在 loc 下的 [周一 00:00, 下周一 00:00)
func weekBounds(t time.Time, loc *time.Location) (time.Time, time.Time) {
	day := localDate(t, loc)
	monday := day.AddDate(0, 0, 1-isoWeekday(day))
	start := time.Date(monday.Year(), monday.Month(), monday.Day(), 0, 0, 0, 0, loc)
	next := monday.AddDate(0, 0, 7)
	end := time.Date(next.Year(), next.Month(), next.Day(), 0, 0, 0, 0, loc)
	return start, end
}

func formatDate(t time.Time) string { return t.Format(dto.DateLayout) }

func formatDateTime(t time.Time) string { return t.Format(dto.DateTimeLayout) }
