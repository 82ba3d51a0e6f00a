package database

import (
	"fmt"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/voltride/ev-rental-backend/internal/models"
)

func newMockBookingRepo(t *testing.T) (*BookingRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	return NewBookingRepository(sqlxDB), mock, func() { db.Close() }
}

var bookingTestColumns = []string{
	"id", "renter_id", "vehicle_id", "station_id", "start_time", "end_time", "status",
	"reservation_deposit_paid", "rental_deposit_paid", "rental_deposit", "final_fee",
	"refund_amount", "refund_note", "payment_attempts", "created_at", "updated_at",
}

func bookingRow(id int64, vehicleID interface{}, status models.BookingStatus, rentalDeposit interface{}, rentalPaid bool) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(bookingTestColumns).AddRow(
		id, int64(7), vehicleID, int64(3), now.Add(2*time.Hour), now.Add(4*time.Hour), status,
		status != models.BookingStatusPending, rentalPaid, rentalDeposit, int64(100000),
		nil, nil, 1, now, now,
	)
}

func TestBookingGetByID(t *testing.T) {
	repo, mock, closeFn := newMockBookingRepo(t)
	defer closeFn()

	t.Run("Success", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+)`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusPending, int64(360000), false))

		booking, err := repo.GetByID(42)
		require.NoError(t, err)
		require.NotNil(t, booking)
		assert.Equal(t, int64(42), booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		require.NotNil(t, booking.VehicleID)
		assert.Equal(t, int64(5), *booking.VehicleID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Not Found", func(t *testing.T) {
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+)`).
			WithArgs(int64(999)).
			WillReturnRows(sqlmock.NewRows(bookingTestColumns))

		booking, err := repo.GetByID(999)
		require.NoError(t, err)
		assert.Nil(t, booking)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCountOverlapping(t *testing.T) {
	repo, mock, closeFn := newMockBookingRepo(t)
	defer closeFn()

	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)

	t.Run("No Overlap", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT(.+) FROM bookings`).
			WithArgs(int64(5), start, end, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

		count, err := repo.CountOverlapping(5, start, end, models.VoidBookingStatuses)
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("With Overlap", func(t *testing.T) {
		mock.ExpectQuery(`SELECT COUNT(.+) FROM bookings`).
			WithArgs(int64(5), start, end, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

		count, err := repo.CountOverlapping(5, start, end, models.VoidBookingStatuses)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReserveAndCreate(t *testing.T) {
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(3 * time.Hour)
	vehicleID := int64(5)
	rentalDeposit := int64(360000)

	newBooking := func() *models.Booking {
		return &models.Booking{
			RenterID:      7,
			VehicleID:     &vehicleID,
			StationID:     3,
			StartTime:     start,
			EndTime:       end,
			FinalFee:      150000,
			RentalDeposit: &rentalDeposit,
		}
	}

	t.Run("Success", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM vehicles WHERE id = (.+) FOR UPDATE`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AVAILABLE"))
		mock.ExpectQuery(`SELECT COUNT(.+) FROM bookings`).
			WithArgs(vehicleID, start, end, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectQuery(`INSERT INTO bookings`).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
		mock.ExpectCommit()

		booking := newBooking()
		err := repo.ReserveAndCreate(booking)
		require.NoError(t, err)
		assert.Equal(t, int64(42), booking.ID)
		assert.Equal(t, models.BookingStatusPending, booking.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Vehicle No Longer Available", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM vehicles WHERE id = (.+) FOR UPDATE`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RESERVED"))
		mock.ExpectRollback()

		err := repo.ReserveAndCreate(newBooking())
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrVehicleConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Window Already Taken", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM vehicles WHERE id = (.+) FOR UPDATE`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AVAILABLE"))
		mock.ExpectQuery(`SELECT COUNT(.+) FROM bookings`).
			WithArgs(vehicleID, start, end, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectRollback()

		err := repo.ReserveAndCreate(newBooking())
		require.Error(t, err)
		assert.ErrorIs(t, err, models.ErrVehicleConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Vehicle Missing", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT status FROM vehicles WHERE id = (.+) FOR UPDATE`).
			WithArgs(vehicleID).
			WillReturnRows(sqlmock.NewRows([]string{"status"}))
		mock.ExpectRollback()

		err := repo.ReserveAndCreate(newBooking())
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirmHoldingDeposit(t *testing.T) {
	params := HoldingDepositParams{
		BookingID: 42,
		Amount:    50000,
		Method:    models.TransactionMethodPayOS,
		Note:      "holding deposit via gateway",
	}

	t.Run("Performs Transition And Writes One Ledger Row", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusPending, int64(360000), false))
		mock.ExpectQuery(`SELECT status FROM vehicles WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("AVAILABLE"))
		mock.ExpectExec(`UPDATE vehicles SET status`).
			WithArgs(models.VehicleStatusReserved, int64(5)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(models.BookingStatusConfirmed, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(int64(42), int64(50000), models.TransactionKindHoldingDeposit,
				models.TransactionMethodPayOS, nil, params.Note).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		transitioned, err := repo.ConfirmHoldingDeposit(params)
		require.NoError(t, err)
		assert.True(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Confirmed Is NoOp", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusConfirmed, int64(360000), false))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmHoldingDeposit(params)
		require.NoError(t, err)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cancelled Booking Rejected", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusCancelled, int64(360000), false))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmHoldingDeposit(params)
		assert.ErrorIs(t, err, models.ErrInvalidState)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Vehicle Taken By Competing Confirmation", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusPending, int64(360000), false))
		mock.ExpectQuery(`SELECT status FROM vehicles WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(5)).
			WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("RESERVED"))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmHoldingDeposit(params)
		assert.ErrorIs(t, err, models.ErrVehicleConflict)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Booking Not Found", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(sqlmock.NewRows(bookingTestColumns))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmHoldingDeposit(params)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestConfirmRentalDeposit(t *testing.T) {
	t.Run("Gateway Payment Writes PayOS Ledger Row", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusConfirmed, int64(360000), false))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(int64(42), int64(360000), models.TransactionKindRentalDeposit,
				models.TransactionMethodPayOS, nil, "ref 123").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		transitioned, err := repo.ConfirmRentalDeposit(RentalDepositParams{
			BookingID: 42,
			Method:    models.TransactionMethodPayOS,
			Note:      "ref 123",
		})
		require.NoError(t, err)
		assert.True(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Cash Payment Carries Staff And Cash Method", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		staffID := int64(9)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusConfirmed, int64(360000), false))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO transactions`).
			WithArgs(int64(42), int64(360000), models.TransactionKindRentalDeposit,
				models.TransactionMethodCash, staffID, "paid at counter").
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		transitioned, err := repo.ConfirmRentalDeposit(RentalDepositParams{
			BookingID: 42,
			Method:    models.TransactionMethodCash,
			StaffID:   &staffID,
			Note:      "paid at counter",
		})
		require.NoError(t, err)
		assert.True(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Stale Webhook On Pending Booking", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusPending, int64(360000), false))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmRentalDeposit(RentalDepositParams{BookingID: 42, Method: models.TransactionMethodPayOS})
		require.NoError(t, err)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Already Paid Is NoOp", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusConfirmed, int64(360000), true))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmRentalDeposit(RentalDepositParams{BookingID: 42, Method: models.TransactionMethodPayOS})
		require.NoError(t, err)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Missing Deposit Amount Is Integrity Fault", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusConfirmed, nil, false))
		mock.ExpectRollback()

		transitioned, err := repo.ConfirmRentalDeposit(RentalDepositParams{BookingID: 42, Method: models.TransactionMethodPayOS})
		assert.ErrorIs(t, err, models.ErrDataIntegrity)
		assert.False(t, transitioned)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCancelByRenter(t *testing.T) {
	// A PENDING booking never reserved its vehicle, so cancelling one must
	// not issue a vehicle UPDATE: the vehicle may be RESERVED by a different
	// confirmed booking, and releasing it here would wipe that reservation.
	// The mock has no vehicles expectation, so any release attempt fails the
	// test.
	t.Run("Pending Cancels Without Touching Vehicle", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusPending, int64(360000), false))
		mock.ExpectExec(`UPDATE bookings SET status`).
			WithArgs(models.BookingStatusCancelled, int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		status, err := repo.CancelByRenter(42, 7, 50000, "refund")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelled, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Confirmed Awaits Refund And Releases Vehicle", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusConfirmed, int64(360000), false))
		mock.ExpectExec(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelAwaitRefund, int64(50000), "refund", int64(42)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE vehicles SET status`).
			WithArgs(models.VehicleStatusAvailable, int64(5), models.VehicleStatusReserved).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		status, err := repo.CancelByRenter(42, 7, 50000, "refund")
		require.NoError(t, err)
		assert.Equal(t, models.BookingStatusCancelAwaitRefund, status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Foreign Booking Is Not Found", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusPending, int64(360000), false))
		mock.ExpectRollback()

		_, err := repo.CancelByRenter(42, 999, 50000, "refund")
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Renting Booking Cannot Cancel", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT (.+) FROM bookings WHERE id = (.+) FOR UPDATE`).
			WithArgs(int64(42)).
			WillReturnRows(bookingRow(42, int64(5), models.BookingStatusRenting, int64(360000), true))
		mock.ExpectRollback()

		_, err := repo.CancelByRenter(42, 7, 50000, "refund")
		assert.ErrorIs(t, err, models.ErrInvalidState)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReclaimExpiredPending(t *testing.T) {
	cutoff := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	// The sweep must never issue a vehicle UPDATE: a PENDING booking holds
	// no reservation, and the vehicle can be RESERVED by another confirmed
	// booking on a different window. The mock has no vehicles expectation,
	// so any release attempt fails the test.
	t.Run("Cancels Booking Without Touching Vehicle", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelled, int64(42), models.BookingStatusPending, cutoff).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))

		reclaimed, err := repo.ReclaimExpiredPending(42, cutoff)
		require.NoError(t, err)
		assert.True(t, reclaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Paid Meanwhile Is Left Alone", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelled, int64(42), models.BookingStatusPending, cutoff).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		reclaimed, err := repo.ReclaimExpiredPending(42, cutoff)
		require.NoError(t, err)
		assert.False(t, reclaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Storage Error Propagates", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelled, int64(42), models.BookingStatusPending, cutoff).
			WillReturnError(fmt.Errorf("connection reset"))

		reclaimed, err := repo.ReclaimExpiredPending(42, cutoff)
		assert.Error(t, err)
		assert.False(t, reclaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestReclaimNoShow(t *testing.T) {
	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	t.Run("Cancels Confirmed NoShow And Releases Vehicle", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelled, int64(42), models.BookingStatusConfirmed, now).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}).AddRow(int64(5)))
		mock.ExpectExec(`UPDATE vehicles SET status`).
			WithArgs(models.VehicleStatusAvailable, int64(5), models.VehicleStatusReserved).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		reclaimed, err := repo.ReclaimNoShow(42, now)
		require.NoError(t, err)
		assert.True(t, reclaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Checked In Meanwhile Is Left Alone", func(t *testing.T) {
		repo, mock, closeFn := newMockBookingRepo(t)
		defer closeFn()

		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE bookings`).
			WithArgs(models.BookingStatusCancelled, int64(42), models.BookingStatusConfirmed, now).
			WillReturnRows(sqlmock.NewRows([]string{"vehicle_id"}))
		mock.ExpectRollback()

		reclaimed, err := repo.ReclaimNoShow(42, now)
		require.NoError(t, err)
		assert.False(t, reclaimed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
