package domain

type Lodging struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,min=-90,max=90"`
	Longitude *float64 `json:"longitude" validate:"omitempty,min=-180,max=180"`
}

// RunParameters 调用方对遗传算法默认参数的覆盖，nil 表示使用配置中的默认值
type RunParameters struct {
	PopulationSize  *int     `json:"populationSize" yaml:"populationSize" validate:"omitempty,min=1"`
	MaxGenerations  *int     `json:"maxGenerations" yaml:"maxGenerations" validate:"omitempty,min=1"`
	MutationRate    *float64 `json:"mutationRate" yaml:"mutationRate" validate:"omitempty,min=0,max=1"`
	CrossoverRate   *float64 `json:"crossoverRate" yaml:"crossoverRate" validate:"omitempty,min=0,max=1"`
	EliteCount      *int     `json:"eliteCount" yaml:"eliteCount" validate:"omitempty,min=0"`
	TournamentSize  *int     `json:"tournamentSize" yaml:"tournamentSize" validate:"omitempty,min=1"`
	DailyMinutes    *int     `json:"dailyMinutes" yaml:"dailyMinutes" validate:"omitempty,min=1"`
	StagnationLimit *int     `json:"stagnationLimit" yaml:"stagnationLimit" validate:"omitempty,min=1"`
	Seed            *int64   `json:"seed" yaml:"seed"`
}

type ItineraryRequest struct {
	PlaceSetID  *int64        `json:"placeSetID"`
	Places      []Place       `json:"places" validate:"omitempty,dive"`
	Matrix      *TravelMatrix `json:"matrix"`
	Lodging     Lodging       `json:"lodging"`
	StartDate   string        `json:"startDate" validate:"required,datetime=2006-01-02"`
	EndDate     string        `json:"endDate" validate:"required,datetime=2006-01-02"`
	Parameters  RunParameters `json:"parameters"`
	NotifyEmail string        `json:"notifyEmail" validate:"omitempty,email"`
}
