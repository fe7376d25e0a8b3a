package model

import (
	"github.com/lib/pq"
)

// Province is a regional office accepting appointments.
type Province struct {
	ID            int64    `db:"id" json:"id"`
	Code          string   `db:"code" json:"code"`
	Name          string   `db:"name" json:"name"`
	OfficeName    string   `db:"office_name" json:"officeName"`
	Address       string   `db:"address" json:"address"`
	Phone         string   `db:"phone" json:"phone"`
	DailyCapacity int      `db:"daily_capacity" json:"dailyCapacity"`
	Active        bool     `db:"active" json:"active"`
	Latitude      *float64 `db:"latitude" json:"latitude,omitempty"`
	Longitude     *float64 `db:"longitude" json:"longitude,omitempty"`
}

type ServiceType struct {
	ID                int64          `db:"id" json:"id"`
	Code              string         `db:"code" json:"code"`
	Name              string         `db:"name" json:"name"`
	Description       *string        `db:"description" json:"description,omitempty"`
	DurationMinutes   int            `db:"duration_minutes" json:"durationMinutes"`
	Fee               string         `db:"fee" json:"fee"`
	Currency          string         `db:"currency" json:"currency"`
	RequiredDocuments pq.StringArray `db:"required_documents" json:"requiredDocuments"`
	Active            bool           `db:"active" json:"active"`
	Color             *string        `db:"color" json:"color,omitempty"`
}
