package models

import "time"

// StationStatus matches DB ENUM station_status
type StationStatus string

const (
	StationStatusActive   StationStatus = "active"
	StationStatusInactive StationStatus = "inactive"
)

// Station is a physical pickup/return location
type Station struct {
	ID        int64         `db:"id" json:"id"`
	Name      string        `db:"name" json:"name"`
	Address   string        `db:"address" json:"address"`
	Status    StationStatus `db:"status" json:"status"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt time.Time     `db:"updated_at" json:"updated_at"`
}
