package domain

import "time"

type PlaceSet struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Destination string    `json:"destination"`
	Places      []Place   `json:"places"`
	CreatedAt   time.Time `json:"createdAt"`
	Version     int32     `json:"-"`
}
