package domain

type PlaceVisit struct {
	Name      string  `json:"nome"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type DayPlan struct {
	Places []PlaceVisit `json:"locais"`
}

type RunResult struct {
	BestFitness         float64            `json:"bestFitness"`
	GenerationsExecuted int                `json:"generationsExecuted"`
	BestIndividual      []int              `json:"bestIndividualIdx"`
	BestIndividualNames []string           `json:"bestIndividualNames"`
	Itinerary           map[string]DayPlan `json:"itineraryByDay"` // 键为 ISO 日期 YYYY-MM-DD
	StopReason          string             `json:"stopReason"`
}
