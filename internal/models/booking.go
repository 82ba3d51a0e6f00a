package models

import (
	"time"
)

// ============================================================================
// BOOKING STATUS (matches DB ENUM booking_status)
// ============================================================================

// BookingStatus represents the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending           BookingStatus = "PENDING"                // Created, waiting for holding deposit
	BookingStatusConfirmed         BookingStatus = "CONFIRMED"              // Holding deposit paid, vehicle reserved
	BookingStatusRenting           BookingStatus = "RENTING"                // Checked in, vehicle out
	BookingStatusCompleted         BookingStatus = "COMPLETED"              // Returned and settled
	BookingStatusCancelled         BookingStatus = "CANCELLED"              // Timed out, explicit cancel or no-show
	BookingStatusCancelAwaitRefund BookingStatus = "CANCELLED_AWAIT_REFUND" // Cancelled after payment, refund owed
	BookingStatusRefunded          BookingStatus = "REFUNDED"               // Refund settled
)

// VoidBookingStatuses are statuses that no longer occupy a vehicle.
// The availability overlap query excludes exactly this set.
var VoidBookingStatuses = []string{
	string(BookingStatusCancelled),
	string(BookingStatusCancelAwaitRefund),
	string(BookingStatusRefunded),
	string(BookingStatusCompleted),
}

// ActiveBookingStatuses are statuses that count against the
// one-active-booking-per-renter rule.
var ActiveBookingStatuses = []string{
	string(BookingStatusPending),
	string(BookingStatusConfirmed),
	string(BookingStatusRenting),
}

// Booking represents one rental intent for a specific vehicle and time window
type Booking struct {
	ID                     int64         `db:"id" json:"id"`
	RenterID               int64         `db:"renter_id" json:"renter_id"`
	VehicleID              *int64        `db:"vehicle_id" json:"vehicle_id"`
	StationID              int64         `db:"station_id" json:"station_id"`
	StartTime              time.Time     `db:"start_time" json:"start_time"`
	EndTime                time.Time     `db:"end_time" json:"end_time"`
	Status                 BookingStatus `db:"status" json:"status"`
	ReservationDepositPaid bool          `db:"reservation_deposit_paid" json:"reservation_deposit_paid"`
	RentalDepositPaid      bool          `db:"rental_deposit_paid" json:"rental_deposit_paid"`
	RentalDeposit          *int64        `db:"rental_deposit" json:"rental_deposit"` // VND, set once the model value is known
	FinalFee               int64         `db:"final_fee" json:"final_fee"`           // VND, hourly rate x whole hours
	RefundAmount           *int64        `db:"refund_amount" json:"refund_amount,omitempty"`
	RefundNote             *string       `db:"refund_note" json:"refund_note,omitempty"`
	PaymentAttempts        int           `db:"payment_attempts" json:"-"`
	CreatedAt              time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt              time.Time     `db:"updated_at" json:"updated_at"`
}

// DurationHours returns the billed duration, truncated to whole hours.
// A 90 minute window bills as 1 hour. This is the settlement rule used
// for the final fee and must not be rounded.
func (b *Booking) DurationHours() int64 {
	return int64(b.EndTime.Sub(b.StartTime).Hours())
}

// ============================================================================
// REQUEST / RESPONSE SHAPES
// ============================================================================

// CreateBookingRequest is the payload for POST /bookings
type CreateBookingRequest struct {
	VehicleID   int64     `json:"vehicle_id" binding:"required"`
	StartTime   time.Time `json:"start_time" binding:"required"`
	EndTime     time.Time `json:"end_time" binding:"required"`
	AgreedTerms bool      `json:"agreed_terms"`
}

// CreateBookingResponse returns the new booking and the hosted payment page
type CreateBookingResponse struct {
	BookingID   int64     `json:"booking_id"`
	Status      string    `json:"status"`
	FinalFee    int64     `json:"final_fee"`
	Deposit     int64     `json:"holding_deposit"`
	CheckoutURL string    `json:"checkout_url"`
	OrderCode   int64     `json:"order_code"`
	ExpiresAt   time.Time `json:"expires_at"`
}
