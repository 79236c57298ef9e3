package domain

// HotelName 住宿地点（出发点与返回点）在地点表和出行矩阵中的保留名称
const HotelName = "HOTEL"

// AllDayWindow 合成的酒店地点全天开放
const AllDayWindow = "00:00-23:59"

// Weekdays 地点表中营业时间列的名称，从周一开始
var Weekdays = []string{"mon", "tue", "wed", "thu", "fri", "sat", "sun"}

type Place struct {
	Name             string            `json:"name" validate:"required"`
	Latitude         float64           `json:"latitude" validate:"min=-90,max=90"`
	Longitude        float64           `json:"longitude" validate:"min=-180,max=180"`
	OpeningHours     map[string]string `json:"openingHours"` // 键为 mon..sun，值为 "HH:MM-HH:MM" 或 "Closed"
	EstimatedMinutes int               `json:"estimatedDurationMin" validate:"min=0"`
	Priority         bool              `json:"priority"`
}

// NewHotel 构造一个全天开放、游览时长为 0 的出发点
func NewHotel(latitude, longitude float64) Place {
	hours := make(map[string]string, len(Weekdays))
	for _, day := range Weekdays {
		hours[day] = AllDayWindow
	}

	return Place{
		Name:         HotelName,
		Latitude:     latitude,
		Longitude:    longitude,
		OpeningHours: hours,
	}
}
