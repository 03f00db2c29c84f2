package models

import "time"

// UserFlow is one observation of the CO2 cost of a named user journey.
// The current value for a name is the row with the latest CreatedAt.
type UserFlow struct {
	ID             int64     `json:"id"`
	ProjectID      int64     `json:"projectId"`
	Name           string    `json:"name"`
	CO2Consumption float64   `json:"co2Consumption"`
	CreatedAt      time.Time `json:"createdAt"`
}
