package models

import "time"

// VehicleStatus represents the live status of a physical vehicle
// Matches DB ENUM: vehicle_status
type VehicleStatus string

const (
	VehicleStatusAvailable   VehicleStatus = "AVAILABLE"
	VehicleStatusReserved    VehicleStatus = "RESERVED"
	VehicleStatusRented      VehicleStatus = "RENTED"
	VehicleStatusUnavailable VehicleStatus = "UNAVAILABLE"
)

// Vehicle is a physical asset parked at a station. At most one live booking
// may hold it RESERVED or RENTED; future-dated reservations are visible only
// through the bookings overlap query, never through this status alone.
type Vehicle struct {
	ID           int64         `db:"id" json:"id"`
	LicensePlate string        `db:"license_plate" json:"license_plate"`
	BatteryLevel int           `db:"battery_level" json:"battery_level"` // percent 0-100
	Mileage      int64         `db:"mileage" json:"mileage"`             // km
	Condition    string        `db:"condition" json:"condition"`
	Status       VehicleStatus `db:"status" json:"status"`
	StationID    int64         `db:"station_id" json:"station_id"`
	ModelID      int64         `db:"model_id" json:"model_id"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time     `db:"updated_at" json:"updated_at"`
}

// VehicleModel is the catalog entry a vehicle is an instance of
type VehicleModel struct {
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	HourlyRate   int64     `db:"hourly_rate" json:"hourly_rate"`     // VND per hour
	VehicleValue int64     `db:"vehicle_value" json:"vehicle_value"` // VND, basis for the rental deposit
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
