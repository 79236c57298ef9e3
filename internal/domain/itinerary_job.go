package domain

import "time"

type JobStatus string

const (
	JobStatusQueued  JobStatus = "queued"
	JobStatusRunning JobStatus = "running"
	JobStatusDone    JobStatus = "done"
	JobStatusFailed  JobStatus = "failed"
)

type ItineraryJob struct {
	ID        string           `json:"id"`
	Status    JobStatus        `json:"status"`
	Request   ItineraryRequest `json:"request"`
	Result    *RunResult       `json:"result"`
	Error     string           `json:"error,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}
