package database

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// PaymentAuditRepository handles the append-only payment event audit trail
type PaymentAuditRepository struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// NewPaymentAuditRepository creates a new payment audit repository
func NewPaymentAuditRepository(db *sqlx.DB, logger *logrus.Logger) *PaymentAuditRepository {
	return &PaymentAuditRepository{db: db, logger: logger}
}

// Log creates a new payment audit entry.
// Payment events must never go unrecorded; a failure here is logged loudly.
func (r *PaymentAuditRepository) Log(audit *models.PaymentAudit) error {
	if audit == nil {
		return fmt.Errorf("audit entry cannot be nil")
	}
	if audit.ID == uuid.Nil {
		audit.ID = uuid.New()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO payment_audits (
			id, order_code, booking_id, event_type, event_source,
			amount, signature_valid, gateway_status,
			raw_body, error_message, is_duplicate,
			ip_address, user_agent, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14
		)`

	_, err := r.db.Exec(query,
		audit.ID, audit.OrderCode, audit.BookingID, audit.EventType, audit.EventSource,
		audit.Amount, audit.SignatureValid, audit.GatewayStatus,
		audit.RawBody, audit.ErrorMessage, audit.IsDuplicate,
		audit.IPAddress, audit.UserAgent, audit.CreatedAt,
	)
	if err != nil {
		r.logger.WithError(err).WithFields(logrus.Fields{
			"event_type": audit.EventType,
			"order_code": audit.OrderCode,
		}).Error("Failed to log payment audit")
		return fmt.Errorf("failed to log payment audit: %w", err)
	}

	return nil
}

// HasProcessedEvent reports whether a deposit-applied event was already
// recorded for an order code. The webhook pipeline uses it to flag repeated
// deliveries on the trail; the pipeline's idempotency itself rests on
// booking state, not on this table.
func (r *PaymentAuditRepository) HasProcessedEvent(orderCode int64, eventType models.PaymentEventType) (bool, error) {
	var count int
	query := `
		SELECT COUNT(*) FROM payment_audits
		WHERE order_code = $1 AND event_type = $2 AND is_duplicate = FALSE`
	err := r.db.Get(&count, query, orderCode, eventType)
	if err != nil {
		return false, fmt.Errorf("failed to check processed event: %w", err)
	}
	return count > 0, nil
}

// ListByOrderCode returns all audit entries for an order code, oldest first
func (r *PaymentAuditRepository) ListByOrderCode(orderCode int64) ([]*models.PaymentAudit, error) {
	var audits []*models.PaymentAudit
	query := `
		SELECT id, order_code, booking_id, event_type, event_source,
		       amount, signature_valid, gateway_status,
		       raw_body, error_message, is_duplicate,
		       ip_address, user_agent, created_at
		FROM payment_audits
		WHERE order_code = $1
		ORDER BY created_at`
	err := r.db.Select(&audits, query, orderCode)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment audits: %w", err)
	}
	return audits, nil
}
