package models

import "time"

// RenterStatus matches DB ENUM renter_status
type RenterStatus string

const (
	RenterStatusActive    RenterStatus = "active"
	RenterStatusSuspended RenterStatus = "suspended"
)

// IdentityStatus matches DB ENUM identity_status.
// Only approved renters may create bookings.
type IdentityStatus string

const (
	IdentityStatusPending  IdentityStatus = "pending"
	IdentityStatusApproved IdentityStatus = "approved"
	IdentityStatusRejected IdentityStatus = "rejected"
)

// Renter is a customer account. Registration, login and token issuance are
// handled by the external auth service; this backend only reads renter rows.
type Renter struct {
	ID             int64          `db:"id" json:"id"`
	Name           string         `db:"name" json:"name"`
	Phone          string         `db:"phone" json:"phone"`
	Email          string         `db:"email" json:"email"`
	Status         RenterStatus   `db:"status" json:"status"`
	IdentityStatus IdentityStatus `db:"identity_status" json:"identity_status"`
	CreatedAt      time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at" json:"updated_at"`
}
