package utils

import (
	"fmt"
	"math/rand"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

var placeKinds = []string{
	"博物馆", "公园", "寺庙", "市场", "美术馆", "观景台", "老街", "广场", "古城墙", "植物园",
}

var letters = []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")

var digits = "0123456789"

func GenerateRandomID(letterLength int, digitLength int) string {
	random_id := make([]rune, letterLength+digitLength)
	for i := range random_id {
		if i < letterLength {
			random_id[i] = letters[rand.Intn(len(letters))]
		} else {
			random_id[i] = rune(digits[rand.Intn(len(digits))])
		}
	}
	return string(random_id)
}

// GenerateRandomOpeningHours 随机生成一周的营业时间，每天有一定概率闭馆
func GenerateRandomOpeningHours(rng *rand.Rand) map[string]string {
	hours := make(map[string]string, len(domain.Weekdays))
	for _, day := range domain.Weekdays {
		if rng.Intn(7) == 0 {
			hours[day] = "Closed"
			continue
		}

		opening := 6*60 + rng.Intn(5)*60       // 06:00~10:00
		closing := 16*60 + rng.Intn(8)*60 + 59 // 16:59~23:59
		hours[day] = fmt.Sprintf("%s-%s", FormatClock(opening), FormatClock(closing))
	}
	return hours
}

// GenerateRandomPlace 在 (lat, lng) 附近约 radiusKm 千米的范围内随机生成一个地点
func GenerateRandomPlace(rng *rand.Rand, lat, lng, radiusKm float64) domain.Place {
	// 1 度纬度约 111 千米
	delta := radiusKm / 111

	return domain.Place{
		Name:             fmt.Sprintf("%s%03d", placeKinds[rng.Intn(len(placeKinds))], rng.Intn(1000)),
		Latitude:         lat + (rng.Float64()*2-1)*delta,
		Longitude:        lng + (rng.Float64()*2-1)*delta,
		OpeningHours:     GenerateRandomOpeningHours(rng),
		EstimatedMinutes: 20 + rng.Intn(12)*10, // 20~130 分钟
		Priority:         rng.Intn(4) == 0,
	}
}

// GenerateRandomPlaces 随机生成 n 个名称互不相同的地点
func GenerateRandomPlaces(rng *rand.Rand, n int, lat, lng, radiusKm float64) []domain.Place {
	places := make([]domain.Place, 0, n)
	seen := make(map[string]bool, n)

	for len(places) < n {
		place := GenerateRandomPlace(rng, lat, lng, radiusKm)
		if seen[place.Name] {
			continue
		}
		seen[place.Name] = true
		places = append(places, place)
	}

	return places
}
