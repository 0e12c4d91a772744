package models

import (
	"time"

	"github.com/google/uuid"
)

// MeetingRoom represents a bookable meeting room at a site.
type MeetingRoom struct {
	ID                uuid.UUID `json:"id"`
	Name              string    `json:"name"`
	Capacity          int       `json:"capacity"`
	CreditCostPerHour int       `json:"credit_cost_per_hour"`
	IsAvailable       bool      `json:"is_available"`
	Site              string    `json:"site"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
