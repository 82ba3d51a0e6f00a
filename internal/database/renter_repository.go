package database

import (
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// RenterRepository handles renter reads. Account creation and credential
// management belong to the external auth service.
type RenterRepository struct {
	db *sqlx.DB
}

// NewRenterRepository creates a new RenterRepository
func NewRenterRepository(db *sqlx.DB) *RenterRepository {
	return &RenterRepository{db: db}
}

// GetByID retrieves a renter by id. Returns nil, nil when not found.
func (r *RenterRepository) GetByID(renterID int64) (*models.Renter, error) {
	var renter models.Renter
	query := `SELECT id, name, phone, email, status, identity_status, created_at, updated_at
		FROM renters WHERE id = $1`
	err := r.db.Get(&renter, query, renterID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get renter: %w", err)
	}
	return &renter, nil
}
