package utils

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

func ValidateTripDates(start, end time.Time) error {
	if end.Before(start) {
		return errors.New("行程结束日期不能早于开始日期")
	}
	return nil
}

// ValidatePlaces 检查候选地点表：不能为空、名称唯一、不能包含保留名称 HOTEL、游览时长非负
func ValidatePlaces(places []domain.Place) error {
	if len(places) == 0 {
		return errors.New("候选地点表为空")
	}

	seen := make(map[string]bool, len(places))
	for i, place := range places {
		name := strings.TrimSpace(place.Name)
		if name == "" {
			return fmt.Errorf("第 %d 个地点缺少名称", i+1)
		}
		if name == domain.HotelName {
			return fmt.Errorf("第 %d 个地点使用了保留名称 %s", i+1, domain.HotelName)
		}
		if seen[name] {
			return fmt.Errorf("地点名称 %q 重复", name)
		}
		seen[name] = true

		if place.EstimatedMinutes < 0 {
			return fmt.Errorf("地点 %q 的游览时长不能为负数", name)
		}
	}

	return nil
}

// ValidateTravelMatrix 检查出行矩阵是方阵，并且覆盖了所有候选地点和 HOTEL
func ValidateTravelMatrix(m *domain.TravelMatrix, places []domain.Place) error {
	if m == nil {
		return errors.New("缺少出行矩阵")
	}

	n := len(m.Places)
	seen := make(map[string]bool, n)
	for _, name := range m.Places {
		if seen[name] {
			return fmt.Errorf("出行矩阵中的地点 %q 重复", name)
		}
		seen[name] = true
	}
	if len(m.Duration) != n || len(m.Distance) != n {
		return errors.New("出行矩阵的行数与地点数量不一致")
	}
	for i := 0; i < n; i++ {
		if len(m.Duration[i]) != n || len(m.Distance[i]) != n {
			return fmt.Errorf("出行矩阵第 %d 行的列数与地点数量不一致", i+1)
		}
		for j := 0; j < n; j++ {
			if m.Duration[i][j] < 0 || m.Distance[i][j] < 0 {
				return fmt.Errorf("出行矩阵 %s -> %s 的值不能为负数", m.Places[i], m.Places[j])
			}
		}
	}

	index := m.Index()
	if _, ok := index[domain.HotelName]; !ok {
		return fmt.Errorf("出行矩阵中缺少 %s", domain.HotelName)
	}
	for _, place := range places {
		if _, ok := index[place.Name]; !ok {
			return fmt.Errorf("出行矩阵中缺少地点 %q", place.Name)
		}
	}

	return nil
}

// ValidateOpeningHours 只在保存地点集合时使用：键必须是 mon..sun，值必须为空、"Closed" 或者 "HH:MM-HH:MM"
// 运行遗传算法时无法解析的时间段仍按不开放处理
func ValidateOpeningHours(hours map[string]string) error {
	for day, window := range hours {
		if !slices.Contains(domain.Weekdays, day) {
			return fmt.Errorf("未知的星期 %q", day)
		}
		if w := strings.TrimSpace(window); w == "" || strings.EqualFold(w, "closed") {
			continue
		}
		if _, _, ok := ParseTimeRange(window); !ok {
			return fmt.Errorf("无法解析 %s 的营业时间 %q", day, window)
		}
	}
	return nil
}
