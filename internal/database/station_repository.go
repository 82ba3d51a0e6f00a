package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// StationRepository handles station reads
type StationRepository struct {
	db *sqlx.DB
}

// NewStationRepository creates a new StationRepository
func NewStationRepository(db *sqlx.DB) *StationRepository {
	return &StationRepository{db: db}
}

// GetByID retrieves a station by id. Returns nil, nil when not found.
func (r *StationRepository) GetByID(stationID int64) (*models.Station, error) {
	var station models.Station
	query := `SELECT id, name, address, status, created_at, updated_at
		FROM stations WHERE id = $1`
	err := r.db.Get(&station, query, stationID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get station: %w", err)
	}
	return &station, nil
}

// ListActive returns all active stations ordered by name
func (r *StationRepository) ListActive() ([]*models.Station, error) {
	var stations []*models.Station
	query := `SELECT id, name, address, status, created_at, updated_at
		FROM stations WHERE status = $1 ORDER BY name`
	err := r.db.Select(&stations, query, models.StationStatusActive)
	if err != nil {
		return nil, fmt.Errorf("failed to list stations: %w", err)
	}
	return stations, nil
}
