package route

import "time"

const (
	PointStart    = "start"
	PointEnd      = "end"
	PointWaypoint = "waypoint"
)

type Point struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type"`
}

type Route struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Points      []Point   `json:"points"`
	DistanceM   float64   `json:"distance_m"`
	CreatedBy   string    `json:"created_by"`
	IsTemplate  bool      `json:"is_template"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
