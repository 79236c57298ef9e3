package utils

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

func ParseDate(s string) (time.Time, error) {
	return time.Parse(DateLayout, s)
}

func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TripDays 返回行程的天数（首尾两天都计入）
func TripDays(start, end time.Time) int {
	return int(truncateDay(end).Sub(truncateDay(start)).Hours()/24) + 1
}

// DateRange 按顺序展开 [start, end] 之间的每一天
func DateRange(start, end time.Time) []time.Time {
	n := TripDays(start, end)
	if n <= 0 {
		return nil
	}

	days := make([]time.Time, n)
	first := truncateDay(start)
	for i := range days {
		days[i] = first.AddDate(0, 0, i)
	}
	return days
}

// WeekdayAbbr 返回小写的星期缩写，与地点表的营业时间列名一致（mon..sun）
func WeekdayAbbr(t time.Time) string {
	return strings.ToLower(t.Weekday().String()[:3])
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
