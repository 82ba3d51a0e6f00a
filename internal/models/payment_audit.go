package models

import (
	"time"

	"github.com/google/uuid"
)

// PaymentEventType represents the type of payment event being audited
type PaymentEventType string

const (
	PaymentEventLinkCreated     PaymentEventType = "link_created"
	PaymentEventLinkFailed      PaymentEventType = "link_failed"
	PaymentEventWebhookReceived PaymentEventType = "webhook_received"
	PaymentEventWebhookIgnored  PaymentEventType = "webhook_ignored"
	PaymentEventDepositApplied  PaymentEventType = "deposit_applied"
	PaymentEventDepositFailed   PaymentEventType = "deposit_failed"
	PaymentEventStaffConfirmed  PaymentEventType = "staff_confirmed"
)

// PaymentEventSource identifies where the event originated
type PaymentEventSource string

const (
	PaymentSourceBackend PaymentEventSource = "backend"
	PaymentSourceWebhook PaymentEventSource = "payos_webhook"
	PaymentSourceStaff   PaymentEventSource = "staff"
)

// PaymentAudit is an immutable audit log entry for payment events.
// Rows are append-only; reconciliation and webhook-redelivery debugging
// depend on the raw body being preserved verbatim.
type PaymentAudit struct {
	ID        uuid.UUID `json:"id" db:"id"`
	OrderCode *int64    `json:"order_code,omitempty" db:"order_code"`
	BookingID *int64    `json:"booking_id,omitempty" db:"booking_id"`

	EventType   PaymentEventType   `json:"event_type" db:"event_type"`
	EventSource PaymentEventSource `json:"event_source" db:"event_source"`

	Amount         *int64 `json:"amount,omitempty" db:"amount"`
	SignatureValid *bool  `json:"signature_valid,omitempty" db:"signature_valid"`
	GatewayStatus  *string `json:"gateway_status,omitempty" db:"gateway_status"`

	RawBody      *string `json:"raw_body,omitempty" db:"raw_body"`
	ErrorMessage *string `json:"error_message,omitempty" db:"error_message"`
	IsDuplicate  bool    `json:"is_duplicate" db:"is_duplicate"`

	IPAddress *string `json:"ip_address,omitempty" db:"ip_address"`
	UserAgent *string `json:"user_agent,omitempty" db:"user_agent"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewPaymentAudit creates an audit entry with required fields set
func NewPaymentAudit(eventType PaymentEventType, source PaymentEventSource) *PaymentAudit {
	return &PaymentAudit{
		ID:          uuid.New(),
		EventType:   eventType,
		EventSource: source,
		CreatedAt:   time.Now(),
	}
}

// WithOrderCode attaches the gateway order code
func (a *PaymentAudit) WithOrderCode(code int64) *PaymentAudit {
	a.OrderCode = &code
	return a
}

// WithBooking attaches the decoded booking id
func (a *PaymentAudit) WithBooking(bookingID int64) *PaymentAudit {
	a.BookingID = &bookingID
	return a
}

// WithError attaches a failure message
func (a *PaymentAudit) WithError(msg string) *PaymentAudit {
	a.ErrorMessage = &msg
	return a
}

// WithSignature records the signature verification verdict
func (a *PaymentAudit) WithSignature(valid bool) *PaymentAudit {
	a.SignatureValid = &valid
	return a
}

// WithGatewayStatus records the gateway's own status code
func (a *PaymentAudit) WithGatewayStatus(code string) *PaymentAudit {
	a.GatewayStatus = &code
	return a
}
