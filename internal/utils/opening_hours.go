package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTimeRange 将 "HH:MM-HH:MM" 解析为一天中的开始分钟和结束分钟
// 没有连字符（例如 "Closed"）或者格式不正确时返回 ok = false，表示当天不开放，不会返回错误
func ParseTimeRange(s string) (start int, end int, ok bool) {
	before, after, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return 0, 0, false
	}

	start, ok = parseClock(before)
	if !ok {
		return 0, 0, false
	}
	end, ok = parseClock(after)
	if !ok {
		return 0, 0, false
	}

	return start, end, true
}

func parseClock(s string) (int, bool) {
	h, m, found := strings.Cut(strings.TrimSpace(s), ":")
	if !found {
		return 0, false
	}

	hour, err := strconv.Atoi(h)
	if err != nil || hour < 0 || hour > 24 {
		return 0, false
	}
	minute, err := strconv.Atoi(m)
	if err != nil || minute < 0 || minute > 59 {
		return 0, false
	}
	// 24 点只能写成 24:00
	if hour == 24 && minute != 0 {
		return 0, false
	}

	return hour*60 + minute, true
}

// FormatClock 将一天中的分钟数格式化为 HH:MM
func FormatClock(minute int) string {
	return fmt.Sprintf("%02d:%02d", minute/60, minute%60)
}
