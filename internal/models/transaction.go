package models

import "time"

// TransactionKind matches DB ENUM transaction_kind
type TransactionKind string

const (
	TransactionKindHoldingDeposit TransactionKind = "holding_deposit"
	TransactionKindRentalDeposit  TransactionKind = "rental_deposit"
	TransactionKindSettlement     TransactionKind = "settlement"
	TransactionKindPenalty        TransactionKind = "penalty"
	TransactionKindRefund         TransactionKind = "refund"
)

// TransactionMethod matches DB ENUM transaction_method
type TransactionMethod string

const (
	TransactionMethodPayOS TransactionMethod = "payos"
	TransactionMethodCash  TransactionMethod = "cash"
)

// Transaction is one financial event tied to a booking. The table is an
// append-only ledger: rows are never updated or deleted, and exactly one row
// exists per successful deposit transition.
type Transaction struct {
	ID        int64             `db:"id" json:"id"`
	BookingID int64             `db:"booking_id" json:"booking_id"`
	Amount    int64             `db:"amount" json:"amount"` // VND
	Kind      TransactionKind   `db:"kind" json:"kind"`
	Method    TransactionMethod `db:"method" json:"method"`
	StaffID   *int64            `db:"staff_id" json:"staff_id,omitempty"` // set only for staff-initiated events
	Note      string            `db:"note" json:"note"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}
