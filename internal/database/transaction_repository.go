package database

import (
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// TransactionRepository reads the append-only financial ledger. Every ledger
// row is inserted by BookingRepository inside the transaction that performs
// the matching status transition, which keeps the one-row-per-transition rule
// enforceable; this repository only reads.
type TransactionRepository struct {
	db *sqlx.DB
}

// NewTransactionRepository creates a new TransactionRepository
func NewTransactionRepository(db *sqlx.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// ListByBooking returns a booking's ledger entries in insertion order
func (r *TransactionRepository) ListByBooking(bookingID int64) ([]*models.Transaction, error) {
	var txns []*models.Transaction
	query := `
		SELECT id, booking_id, amount, kind, method, staff_id, note, created_at
		FROM transactions
		WHERE booking_id = $1
		ORDER BY created_at, id`
	err := r.db.Select(&txns, query, bookingID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return txns, nil
}
