package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// BookingRepository handles booking persistence. Every read-then-write
// sequence that justifies a status mutation runs inside a single transaction
// here, with the affected booking (and vehicle) row locked FOR UPDATE, so the
// services above never race each other on the same rows.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository creates a new BookingRepository
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

const bookingColumns = `
	id, renter_id, vehicle_id, station_id, start_time, end_time, status,
	reservation_deposit_paid, rental_deposit_paid, rental_deposit, final_fee,
	refund_amount, refund_note, payment_attempts, created_at, updated_at`

// GetByID retrieves a booking by id. Returns nil, nil when not found.
func (r *BookingRepository) GetByID(bookingID int64) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	err := r.db.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return &booking, nil
}

// ListByRenter returns a renter's bookings, newest first
func (r *BookingRepository) ListByRenter(renterID int64, limit, offset int) ([]*models.Booking, error) {
	var bookings []*models.Booking
	query := `SELECT ` + bookingColumns + `
		FROM bookings WHERE renter_id = $1
		ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	err := r.db.Select(&bookings, query, renterID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, nil
}

// CountActiveByRenter counts a renter's bookings in non-terminal statuses.
// Enforces the one-active-booking-per-renter rule.
func (r *BookingRepository) CountActiveByRenter(renterID int64) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE renter_id = $1 AND status = ANY($2)`
	err := r.db.Get(&count, query, renterID, pq.Array(models.ActiveBookingStatuses))
	if err != nil {
		return 0, fmt.Errorf("failed to count active bookings: %w", err)
	}
	return count, nil
}

// CountOverlapping counts live bookings on a vehicle whose window intersects
// [start, end) under half-open semantics: s1 < e2 AND e1 > s2. A booking
// ending exactly when another starts does not conflict. Returns a count so
// callers can log contention; any count > 0 means the window is taken.
//
// This read alone cannot prevent two concurrent requests from both passing;
// ReserveAndCreate repeats it under the vehicle row lock.
func (r *BookingRepository) CountOverlapping(vehicleID int64, start, end time.Time, excludedStatuses []string) (int, error) {
	return countOverlapping(r.db, vehicleID, start, end, excludedStatuses)
}

func countOverlapping(q sqlx.Queryer, vehicleID int64, start, end time.Time, excludedStatuses []string) (int, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM bookings
		WHERE vehicle_id = $1
		  AND start_time < $3
		  AND end_time > $2
		  AND status != ALL($4)`
	err := sqlx.Get(q, &count, query, vehicleID, start, end, pq.Array(excludedStatuses))
	if err != nil {
		return 0, fmt.Errorf("failed to count overlapping bookings: %w", err)
	}
	return count, nil
}

// ReserveAndCreate atomically checks the vehicle and inserts the booking.
// The vehicle row is locked FOR UPDATE for the duration of the check-then-
// insert sequence, so two concurrent requests for the same vehicle serialize
// here and the second sees the first's booking in the overlap count.
//
// Returns models.ErrVehicleConflict when the vehicle is not AVAILABLE or the
// window overlaps a live booking.
func (r *BookingRepository) ReserveAndCreate(booking *models.Booking) error {
	if booking.VehicleID == nil {
		return fmt.Errorf("booking has no vehicle assigned")
	}

	tx, err := r.db.Beginx()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Serialization point: all writers touching this vehicle queue here.
	var vehicleStatus string
	err = tx.Get(&vehicleStatus, `SELECT status FROM vehicles WHERE id = $1 FOR UPDATE`, *booking.VehicleID)
	if err == sql.ErrNoRows {
		return models.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to lock vehicle: %w", err)
	}
	if vehicleStatus != string(models.VehicleStatusAvailable) {
		return fmt.Errorf("vehicle status is %s: %w", vehicleStatus, models.ErrVehicleConflict)
	}

	overlaps, err := countOverlapping(tx, *booking.VehicleID, booking.StartTime, booking.EndTime, models.VoidBookingStatuses)
	if err != nil {
		return err
	}
	if overlaps > 0 {
		return fmt.Errorf("%d overlapping booking(s): %w", overlaps, models.ErrVehicleConflict)
	}

	booking.Status = models.BookingStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt

	query := `
		INSERT INTO bookings (
			renter_id, vehicle_id, station_id, start_time, end_time, status,
			reservation_deposit_paid, rental_deposit_paid, rental_deposit,
			final_fee, payment_attempts, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		) RETURNING id`
	err = tx.Get(&booking.ID, query,
		booking.RenterID, booking.VehicleID, booking.StationID,
		booking.StartTime, booking.EndTime, booking.Status,
		booking.ReservationDepositPaid, booking.RentalDepositPaid, booking.RentalDeposit,
		booking.FinalFee, booking.PaymentAttempts, booking.CreatedAt, booking.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create booking: %w", err)
	}

	return tx.Commit()
}

// IncrementPaymentAttempts bumps the per-booking payment link counter and
// returns the new value. The counter feeds the order-code attempt digits.
func (r *BookingRepository) IncrementPaymentAttempts(bookingID int64) (int, error) {
	var attempts int
	query := `
		UPDATE bookings
		SET payment_attempts = payment_attempts + 1, updated_at = NOW()
		WHERE id = $1
		RETURNING payment_attempts`
	err := r.db.Get(&attempts, query, bookingID)
	if err == sql.ErrNoRows {
		return 0, models.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to increment payment attempts: %w", err)
	}
	return attempts, nil
}

// HoldingDepositParams carries the ledger details for a holding-deposit
// confirmation. StaffID is set only on the staff-initiated path.
type HoldingDepositParams struct {
	BookingID int64
	Amount    int64
	Method    models.TransactionMethod
	StaffID   *int64
	Note      string
}

// ConfirmHoldingDeposit transitions a booking PENDING -> CONFIRMED, flips the
// vehicle to RESERVED and appends exactly one ledger row, all in one
// transaction. Safe to call any number of times:
//
//   - already CONFIRMED: returns (false, nil), nothing written
//   - not PENDING: models.ErrInvalidState
//   - vehicle no longer AVAILABLE: models.ErrVehicleConflict (another
//     confirmation on the same vehicle won the race)
//
// The returned bool reports whether this call performed the transition,
// which is also the only case a Transaction row was written.
func (r *BookingRepository) ConfirmHoldingDeposit(params HoldingDepositParams) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := getBookingForUpdate(tx, params.BookingID)
	if err != nil {
		return false, err
	}

	if booking.Status == models.BookingStatusConfirmed {
		// Webhook redelivery or staff racing the gateway. No-op success.
		return false, nil
	}
	if booking.Status != models.BookingStatusPending {
		return false, fmt.Errorf("booking %d is %s: %w", booking.ID, booking.Status, models.ErrInvalidState)
	}
	if booking.VehicleID == nil {
		return false, fmt.Errorf("booking %d has no vehicle: %w", booking.ID, models.ErrDataIntegrity)
	}

	// Re-check the live vehicle status under lock. Guards the narrow race
	// where holding-deposit confirmations for two different bookings on the
	// same vehicle both reach this point.
	var vehicleStatus string
	err = tx.Get(&vehicleStatus, `SELECT status FROM vehicles WHERE id = $1 FOR UPDATE`, *booking.VehicleID)
	if err != nil {
		return false, fmt.Errorf("failed to lock vehicle: %w", err)
	}
	if vehicleStatus != string(models.VehicleStatusAvailable) {
		return false, fmt.Errorf("vehicle status is %s: %w", vehicleStatus, models.ErrVehicleConflict)
	}

	_, err = tx.Exec(`UPDATE vehicles SET status = $1, updated_at = NOW() WHERE id = $2`,
		models.VehicleStatusReserved, *booking.VehicleID)
	if err != nil {
		return false, fmt.Errorf("failed to reserve vehicle: %w", err)
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET status = $1, reservation_deposit_paid = TRUE, updated_at = NOW()
		WHERE id = $2`,
		models.BookingStatusConfirmed, booking.ID)
	if err != nil {
		return false, fmt.Errorf("failed to confirm booking: %w", err)
	}

	err = insertTransactionTx(tx, &models.Transaction{
		BookingID: booking.ID,
		Amount:    params.Amount,
		Kind:      models.TransactionKindHoldingDeposit,
		Method:    params.Method,
		StaffID:   params.StaffID,
		Note:      params.Note,
	})
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// RentalDepositParams carries the ledger details for a rental-deposit
// confirmation. The amount comes from the booking row itself; StaffID is set
// only on the staff-initiated path, and Method records how the money actually
// moved (payos for the webhook path, cash over the counter).
type RentalDepositParams struct {
	BookingID int64
	Method    models.TransactionMethod
	StaffID   *int64
	Note      string
}

// ConfirmRentalDeposit flags the rental deposit as paid on an already
// CONFIRMED booking and appends exactly one ledger row.
//
//   - not CONFIRMED: returns (false, nil) - the webhook is stale or the
//     booking progressed; callers log and acknowledge
//   - already paid: returns (false, nil)
//   - rental deposit amount missing or non-positive: models.ErrDataIntegrity,
//     accepting money against an unknown amount means the record is corrupt
func (r *BookingRepository) ConfirmRentalDeposit(params RentalDepositParams) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := getBookingForUpdate(tx, params.BookingID)
	if err != nil {
		return false, err
	}

	if booking.Status != models.BookingStatusConfirmed {
		return false, nil
	}
	if booking.RentalDepositPaid {
		return false, nil
	}
	if booking.RentalDeposit == nil || *booking.RentalDeposit <= 0 {
		return false, fmt.Errorf("booking %d has no rental deposit amount: %w", params.BookingID, models.ErrDataIntegrity)
	}

	_, err = tx.Exec(`
		UPDATE bookings
		SET rental_deposit_paid = TRUE, updated_at = NOW()
		WHERE id = $1`, params.BookingID)
	if err != nil {
		return false, fmt.Errorf("failed to flag rental deposit: %w", err)
	}

	err = insertTransactionTx(tx, &models.Transaction{
		BookingID: params.BookingID,
		Amount:    *booking.RentalDeposit,
		Kind:      models.TransactionKindRentalDeposit,
		Method:    params.Method,
		StaffID:   params.StaffID,
		Note:      params.Note,
	})
	if err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// CancelByRenter cancels a renter's own booking. PENDING bookings cancel
// outright; CONFIRMED bookings (holding deposit already collected) move to
// CANCELLED_AWAIT_REFUND carrying the refund amount. Returns the resulting
// status.
//
// Only the CONFIRMED path releases the vehicle: the vehicle is reserved at
// holding-deposit confirmation, so a PENDING booking holds no reservation,
// and a RESERVED state seen while cancelling one belongs to some other
// booking on the same vehicle.
func (r *BookingRepository) CancelByRenter(bookingID, renterID, refundAmount int64, refundNote string) (models.BookingStatus, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	booking, err := getBookingForUpdate(tx, bookingID)
	if err != nil {
		return "", err
	}
	if booking.RenterID != renterID {
		return "", models.ErrNotFound
	}

	var target models.BookingStatus
	switch booking.Status {
	case models.BookingStatusPending:
		target = models.BookingStatusCancelled
		_, err = tx.Exec(`
			UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = $2`,
			target, bookingID)
	case models.BookingStatusConfirmed:
		target = models.BookingStatusCancelAwaitRefund
		_, err = tx.Exec(`
			UPDATE bookings
			SET status = $1, refund_amount = $2, refund_note = $3, updated_at = NOW()
			WHERE id = $4`,
			target, refundAmount, refundNote, bookingID)
	default:
		return "", fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, models.ErrInvalidState)
	}
	if err != nil {
		return "", fmt.Errorf("failed to cancel booking: %w", err)
	}

	if booking.Status == models.BookingStatusConfirmed {
		if err := releaseVehicleTx(tx, booking.VehicleID); err != nil {
			return "", err
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit: %w", err)
	}
	return target, nil
}

// ============================================================================
// SWEEPER SUPPORT
// ============================================================================

// ListExpiredPendingIDs returns PENDING bookings created before cutoff.
// The list is a snapshot; ReclaimExpiredPending re-validates per row.
func (r *BookingRepository) ListExpiredPendingIDs(cutoff time.Time, limit int) ([]int64, error) {
	var ids []int64
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND created_at < $2
		ORDER BY created_at
		LIMIT $3`
	err := r.db.Select(&ids, query, models.BookingStatusPending, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired pending bookings: %w", err)
	}
	return ids, nil
}

// ReclaimExpiredPending cancels one timed-out PENDING booking. The UPDATE
// re-checks status and age, so a booking confirmed by a webhook after the
// snapshot was taken is left alone: returns false with no mutation.
//
// No vehicle release here. A PENDING booking never reserved its vehicle,
// and the vehicle may be legitimately RESERVED by a different, confirmed
// booking whose window does not overlap this one's.
func (r *BookingRepository) ReclaimExpiredPending(bookingID int64, cutoff time.Time) (bool, error) {
	var reclaimedID int64
	err := r.db.Get(&reclaimedID, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND created_at < $4
		RETURNING id`,
		models.BookingStatusCancelled, bookingID, models.BookingStatusPending, cutoff)
	if err == sql.ErrNoRows {
		// Confirmed or cancelled since the snapshot. Not ours to touch.
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reclaim pending booking: %w", err)
	}
	return true, nil
}

// ListNoShowIDs returns CONFIRMED bookings whose pickup time already passed
func (r *BookingRepository) ListNoShowIDs(now time.Time, limit int) ([]int64, error) {
	var ids []int64
	query := `
		SELECT id FROM bookings
		WHERE status = $1 AND start_time < $2
		ORDER BY start_time
		LIMIT $3`
	err := r.db.Select(&ids, query, models.BookingStatusConfirmed, now, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list no-show bookings: %w", err)
	}
	return ids, nil
}

// ReclaimNoShow cancels one CONFIRMED booking whose renter never checked in,
// releasing the vehicle back to AVAILABLE. Same re-validation discipline as
// ReclaimExpiredPending: a booking that moved to RENTING meanwhile is skipped.
func (r *BookingRepository) ReclaimNoShow(bookingID int64, now time.Time) (bool, error) {
	tx, err := r.db.Beginx()
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var vehicleID *int64
	err = tx.Get(&vehicleID, `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND start_time < $4
		RETURNING vehicle_id`,
		models.BookingStatusCancelled, bookingID, models.BookingStatusConfirmed, now)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to reclaim no-show booking: %w", err)
	}

	if err := releaseVehicleTx(tx, vehicleID); err != nil {
		return false, err
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit: %w", err)
	}
	return true, nil
}

// ============================================================================
// INTERNAL HELPERS
// ============================================================================

// getBookingForUpdate locks and loads a booking row inside tx
func getBookingForUpdate(tx *sqlx.Tx, bookingID int64) (*models.Booking, error) {
	var booking models.Booking
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1 FOR UPDATE`
	err := tx.Get(&booking, query, bookingID)
	if err == sql.ErrNoRows {
		return nil, models.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock booking: %w", err)
	}
	return &booking, nil
}

// releaseVehicleTx reverts a RESERVED vehicle to AVAILABLE. A vehicle in any
// other state (RENTED, UNAVAILABLE) is left untouched.
func releaseVehicleTx(tx *sqlx.Tx, vehicleID *int64) error {
	if vehicleID == nil {
		return nil
	}
	_, err := tx.Exec(`
		UPDATE vehicles SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3`,
		models.VehicleStatusAvailable, *vehicleID, models.VehicleStatusReserved)
	if err != nil {
		return fmt.Errorf("failed to release vehicle: %w", err)
	}
	return nil
}

// insertTransactionTx appends one ledger row inside tx
func insertTransactionTx(tx *sqlx.Tx, txn *models.Transaction) error {
	_, err := tx.Exec(`
		INSERT INTO transactions (booking_id, amount, kind, method, staff_id, note, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())`,
		txn.BookingID, txn.Amount, txn.Kind, txn.Method, txn.StaffID, txn.Note)
	if err != nil {
		return fmt.Errorf("failed to append transaction: %w", err)
	}
	return nil
}
