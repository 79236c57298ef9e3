package domain

type ItineraryReadyMailData struct {
	JobID       string
	StartDate   string
	EndDate     string
	BestFitness float64
	Days        []ItineraryMailDay
}

type ItineraryMailDay struct {
	Date   string
	Places []string
}
