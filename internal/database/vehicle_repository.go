package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// VehicleRepository handles vehicle and vehicle-model reads.
// Status mutations tied to bookings live in BookingRepository so they share
// the booking transaction; the only standalone write here is the ops-facing
// SetStatus used for maintenance holds.
type VehicleRepository struct {
	db *sqlx.DB
}

// NewVehicleRepository creates a new VehicleRepository
func NewVehicleRepository(db *sqlx.DB) *VehicleRepository {
	return &VehicleRepository{db: db}
}

const vehicleColumns = `
	id, license_plate, battery_level, mileage, condition, status,
	station_id, model_id, created_at, updated_at`

// GetByID retrieves a vehicle by id. Returns nil, nil when not found.
func (r *VehicleRepository) GetByID(vehicleID int64) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE id = $1`
	err := r.db.Get(&vehicle, query, vehicleID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle: %w", err)
	}
	return &vehicle, nil
}

// GetModelByID retrieves a vehicle model. Returns nil, nil when not found.
func (r *VehicleRepository) GetModelByID(modelID int64) (*models.VehicleModel, error) {
	var model models.VehicleModel
	query := `SELECT id, name, hourly_rate, vehicle_value, created_at, updated_at
		FROM vehicle_models WHERE id = $1`
	err := r.db.Get(&model, query, modelID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get vehicle model: %w", err)
	}
	return &model, nil
}

// CountByStationAndModel counts vehicles of a model parked at a station.
// Defensive check against stale catalog state during booking creation.
func (r *VehicleRepository) CountByStationAndModel(stationID, modelID int64) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM vehicles WHERE station_id = $1 AND model_id = $2`
	err := r.db.Get(&count, query, stationID, modelID)
	if err != nil {
		return 0, fmt.Errorf("failed to count station vehicles: %w", err)
	}
	return count, nil
}

// ListByStation returns vehicles at a station, optionally only those a
// renter could actually book (AVAILABLE and battery at or above minBattery).
func (r *VehicleRepository) ListByStation(stationID int64, rentableOnly bool, minBattery int) ([]*models.Vehicle, error) {
	var vehicles []*models.Vehicle
	query := `SELECT ` + vehicleColumns + ` FROM vehicles WHERE station_id = $1`
	args := []interface{}{stationID}
	if rentableOnly {
		query += ` AND status = $2 AND battery_level >= $3`
		args = append(args, models.VehicleStatusAvailable, minBattery)
	}
	query += ` ORDER BY license_plate`
	err := r.db.Select(&vehicles, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list station vehicles: %w", err)
	}
	return vehicles, nil
}

// SetStatus moves a vehicle between AVAILABLE and UNAVAILABLE for
// maintenance. Refuses to touch a vehicle a booking currently holds.
func (r *VehicleRepository) SetStatus(vehicleID int64, status models.VehicleStatus) error {
	result, err := r.db.Exec(`
		UPDATE vehicles SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status NOT IN ($3, $4)`,
		status, vehicleID, models.VehicleStatusReserved, models.VehicleStatusRented)
	if err != nil {
		return fmt.Errorf("failed to set vehicle status: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return models.ErrVehicleConflict
	}
	return nil
}
