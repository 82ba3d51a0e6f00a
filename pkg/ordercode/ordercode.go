// Package ordercode encodes a booking id and deposit kind into the purely
// numeric order identifier the payment gateway requires, and decodes it back
// on the webhook side.
//
// Layout, least significant digits first:
//
//	orderCode = bookingID*1000 + kind*100 + attempt
//
// where kind is one digit and attempt is the booking's payment-link counter
// modulo 100. Decoding ignores the attempt digits, so every link ever issued
// for a booking+kind pair resolves to the same booking, while the gateway
// still sees a fresh order code per retry.
package ordercode

import (
	"errors"
	"fmt"
)

// Kind discriminates which deposit an order code pays for
type Kind int

const (
	// KindHolding is the fixed holding deposit confirming a reservation
	KindHolding Kind = 1
	// KindRental is the percentage-of-vehicle-value rental deposit
	KindRental Kind = 2
)

// MaxBookingID keeps orderCode inside the gateway's 15-digit numeric limit
const MaxBookingID = int64(9_000_000_000_000) - 1

var (
	// ErrInvalidCode marks an order code that cannot carry a booking id.
	// The webhook treats these as gateway test pings, not failures.
	ErrInvalidCode = errors.New("order code does not encode a booking")

	// ErrUnknownKind marks a structurally valid code with an unrecognized
	// deposit discriminator digit.
	ErrUnknownKind = errors.New("order code has unknown deposit kind")
)

// Encode builds the numeric order code for a booking's payment link
func Encode(bookingID int64, kind Kind, attempt int) (int64, error) {
	if bookingID <= 0 || bookingID > MaxBookingID {
		return 0, fmt.Errorf("booking id %d out of range: %w", bookingID, ErrInvalidCode)
	}
	if kind != KindHolding && kind != KindRental {
		return 0, fmt.Errorf("kind %d: %w", kind, ErrUnknownKind)
	}
	if attempt < 0 {
		attempt = 0
	}
	return bookingID*1000 + int64(kind)*100 + int64(attempt%100), nil
}

// Decode recovers the booking id and deposit kind from an order code
func Decode(orderCode int64) (bookingID int64, kind Kind, err error) {
	if orderCode < 1000 {
		return 0, 0, fmt.Errorf("order code %d: %w", orderCode, ErrInvalidCode)
	}
	bookingID = orderCode / 1000
	kind = Kind((orderCode / 100) % 10)
	if kind != KindHolding && kind != KindRental {
		return 0, 0, fmt.Errorf("order code %d: %w", orderCode, ErrUnknownKind)
	}
	return bookingID, kind, nil
}
