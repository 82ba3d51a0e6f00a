package services

import (
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/models"
	"github.com/voltride/ev-rental-backend/pkg/ordercode"
)

// PaymentAuditStore is the audit trail surface, implemented by
// database.PaymentAuditRepository
type PaymentAuditStore interface {
	Log(audit *models.PaymentAudit) error
	HasProcessedEvent(orderCode int64, eventType models.PaymentEventType) (bool, error)
}

// WebhookVerifier validates and decodes gateway webhook deliveries,
// implemented by PayOSService
type WebhookVerifier interface {
	VerifyWebhook(body []byte) (*PayOSWebhookData, error)
	IsPaymentSuccessful(data *PayOSWebhookData) bool
}

// Webhook outcome tokens. The webhook endpoint answers 200 for every
// delivery it has fully dealt with, including ones it chose to ignore,
// so the gateway stops redelivering. Only internal faults bubble up as
// errors and become a 5xx, which makes the gateway retry.
const (
	WebhookProcessed        = "processed"
	WebhookDuplicate        = "processed-duplicate"
	WebhookIgnoredSignature = "ignored-invalid-signature"
	WebhookIgnoredTestPing  = "ignored-test-ping"
	WebhookIgnoredOrderCode = "ignored-unknown-order-code"
	WebhookIgnoredNotPaid   = "ignored-payment-not-successful"
	WebhookIgnoredBooking   = "ignored-unknown-booking"
	WebhookIgnoredState     = "ignored-booking-state"
	WebhookIgnoredAmount    = "ignored-amount-mismatch"
)

// DepositService applies deposit payments to bookings. Both entry points,
// the gateway webhook and the staff cash confirmation, funnel into the same
// repository transitions, which are state-guarded and therefore idempotent
// under redelivery and double-submission.
type DepositService struct {
	bookingRepo BookingStore
	auditRepo   PaymentAuditStore
	verifier    WebhookVerifier
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewDepositService creates a new DepositService
func NewDepositService(
	bookingRepo BookingStore,
	auditRepo PaymentAuditStore,
	verifier WebhookVerifier,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *DepositService {
	return &DepositService{
		bookingRepo: bookingRepo,
		auditRepo:   auditRepo,
		verifier:    verifier,
		config:      cfg,
		logger:      logger,
	}
}

// HandleWebhook processes one gateway delivery. It returns an outcome token
// for anything it has dealt with; a non-nil error means an internal fault
// the gateway should redeliver for.
func (s *DepositService) HandleWebhook(body []byte, ipAddress, userAgent string) (string, error) {
	data, err := s.verifier.VerifyWebhook(body)
	if err != nil {
		s.logger.WithError(err).Warn("Webhook rejected: signature verification failed")
		s.audit(models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceWebhook).
			WithSignature(false).WithError(err.Error()), body, ipAddress, userAgent, true)
		return WebhookIgnoredSignature, nil
	}

	bookingID, kind, err := ordercode.Decode(data.OrderCode)
	if err != nil {
		// Order codes below the encoding range are the gateway's own test
		// pings; anything else malformed is logged and dropped.
		token := WebhookIgnoredOrderCode
		if errors.Is(err, ordercode.ErrInvalidCode) {
			token = WebhookIgnoredTestPing
		}
		s.audit(models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceWebhook).
			WithOrderCode(data.OrderCode).WithSignature(true).WithError(err.Error()),
			body, ipAddress, userAgent, true)
		return token, nil
	}

	received := models.NewPaymentAudit(models.PaymentEventWebhookReceived, models.PaymentSourceWebhook).
		WithOrderCode(data.OrderCode).WithBooking(bookingID).
		WithSignature(true).WithGatewayStatus(data.Code)
	received.Amount = &data.Amount
	if seen, seenErr := s.auditRepo.HasProcessedEvent(data.OrderCode, models.PaymentEventDepositApplied); seenErr != nil {
		s.logger.WithError(seenErr).WithField("order_code", data.OrderCode).
			Warn("Failed to check prior deliveries for order code")
	} else if seen {
		// Redelivery of an already-applied payment. Marking the received row
		// lets reconciliation count distinct payments by non-duplicate rows.
		received.IsDuplicate = true
	}
	s.audit(received, body, ipAddress, userAgent, true)

	if !s.verifier.IsPaymentSuccessful(data) {
		s.logger.WithFields(logrus.Fields{
			"order_code": data.OrderCode,
			"code":       data.Code,
			"desc":       data.Desc,
		}).Info("Webhook ignored: payment not successful")
		return WebhookIgnoredNotPaid, nil
	}

	switch kind {
	case ordercode.KindHolding:
		return s.applyHoldingFromWebhook(bookingID, data, body, ipAddress, userAgent)
	case ordercode.KindRental:
		return s.applyRentalFromWebhook(bookingID, data, body, ipAddress, userAgent)
	default:
		return WebhookIgnoredOrderCode, nil
	}
}

func (s *DepositService) applyHoldingFromWebhook(bookingID int64, data *PayOSWebhookData, body []byte, ip, ua string) (string, error) {
	if data.Amount != s.config.HoldingDeposit {
		s.logger.WithFields(logrus.Fields{
			"order_code": data.OrderCode,
			"amount":     data.Amount,
			"expected":   s.config.HoldingDeposit,
		}).Warn("Webhook ignored: holding deposit amount mismatch")
		s.audit(models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceWebhook).
			WithOrderCode(data.OrderCode).WithBooking(bookingID).WithSignature(true).
			WithError(fmt.Sprintf("amount %d != expected %d", data.Amount, s.config.HoldingDeposit)),
			body, ip, ua, true)
		return WebhookIgnoredAmount, nil
	}

	transitioned, err := s.bookingRepo.ConfirmHoldingDeposit(database.HoldingDepositParams{
		BookingID: bookingID,
		Amount:    data.Amount,
		Method:    models.TransactionMethodPayOS,
		Note:      fmt.Sprintf("holding deposit via gateway, reference %s", data.Reference),
	})
	return s.finishWebhookTransition(bookingID, data, transitioned, err, body, ip, ua)
}

func (s *DepositService) applyRentalFromWebhook(bookingID int64, data *PayOSWebhookData, body []byte, ip, ua string) (string, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return "", err
	}
	if booking == nil {
		return WebhookIgnoredBooking, nil
	}
	if booking.RentalDeposit != nil && data.Amount != *booking.RentalDeposit {
		s.audit(models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceWebhook).
			WithOrderCode(data.OrderCode).WithBooking(bookingID).WithSignature(true).
			WithError(fmt.Sprintf("amount %d != expected %d", data.Amount, *booking.RentalDeposit)),
			body, ip, ua, true)
		return WebhookIgnoredAmount, nil
	}

	transitioned, err := s.bookingRepo.ConfirmRentalDeposit(database.RentalDepositParams{
		BookingID: bookingID,
		Method:    models.TransactionMethodPayOS,
		Note:      fmt.Sprintf("rental deposit via gateway, reference %s", data.Reference),
	})
	return s.finishWebhookTransition(bookingID, data, transitioned, err, body, ip, ua)
}

// finishWebhookTransition maps a repository transition result to a webhook
// outcome token and writes the closing audit entry
func (s *DepositService) finishWebhookTransition(bookingID int64, data *PayOSWebhookData, transitioned bool, err error, body []byte, ip, ua string) (string, error) {
	if err != nil {
		switch {
		case errors.Is(err, models.ErrNotFound):
			return WebhookIgnoredBooking, nil
		case errors.Is(err, models.ErrInvalidState), errors.Is(err, models.ErrVehicleConflict):
			s.audit(models.NewPaymentAudit(models.PaymentEventWebhookIgnored, models.PaymentSourceWebhook).
				WithOrderCode(data.OrderCode).WithBooking(bookingID).WithError(err.Error()),
				body, ip, ua, true)
			return WebhookIgnoredState, nil
		}
		// Integrity faults and storage errors are never acknowledged; the
		// gateway keeps redelivering until an operator intervenes.
		s.logger.WithError(err).WithFields(logrus.Fields{
			"booking_id": bookingID,
			"order_code": data.OrderCode,
		}).Error("Deposit application failed")
		s.audit(models.NewPaymentAudit(models.PaymentEventDepositFailed, models.PaymentSourceWebhook).
			WithOrderCode(data.OrderCode).WithBooking(bookingID).WithError(err.Error()),
			body, ip, ua, true)
		return "", err
	}

	if !transitioned {
		s.logger.WithFields(logrus.Fields{
			"booking_id": bookingID,
			"order_code": data.OrderCode,
		}).Info("Webhook redelivery: deposit already applied")
		dup := models.NewPaymentAudit(models.PaymentEventDepositApplied, models.PaymentSourceWebhook).
			WithOrderCode(data.OrderCode).WithBooking(bookingID)
		dup.IsDuplicate = true
		s.audit(dup, body, ip, ua, true)
		return WebhookDuplicate, nil
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"order_code": data.OrderCode,
		"amount":     data.Amount,
	}).Info("Deposit applied from webhook")
	s.audit(models.NewPaymentAudit(models.PaymentEventDepositApplied, models.PaymentSourceWebhook).
		WithOrderCode(data.OrderCode).WithBooking(bookingID), body, ip, ua, true)
	return WebhookProcessed, nil
}

// ConfirmHoldingByStaff records an over-the-counter holding deposit payment.
// Returns false without error when the booking is already CONFIRMED, so the
// counter flow tolerates double submission without a second ledger row.
func (s *DepositService) ConfirmHoldingByStaff(staffID, bookingID int64, note string) (bool, error) {
	transitioned, err := s.bookingRepo.ConfirmHoldingDeposit(database.HoldingDepositParams{
		BookingID: bookingID,
		Amount:    s.config.HoldingDeposit,
		Method:    models.TransactionMethodCash,
		StaffID:   &staffID,
		Note:      note,
	})
	if err != nil {
		return false, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventStaffConfirmed, models.PaymentSourceStaff).
		WithBooking(bookingID)
	audit.IsDuplicate = !transitioned
	if logErr := s.auditRepo.Log(audit); logErr != nil {
		s.logger.WithError(logErr).Warn("Failed to write staff confirmation audit entry")
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id":   bookingID,
		"staff_id":     staffID,
		"transitioned": transitioned,
	}).Info("Staff holding deposit confirmation")
	return transitioned, nil
}

// ConfirmRentalByStaff records an over-the-counter rental deposit payment.
// The ledger row carries the cash method and the acting staff member.
func (s *DepositService) ConfirmRentalByStaff(staffID, bookingID int64, note string) (bool, error) {
	transitioned, err := s.bookingRepo.ConfirmRentalDeposit(database.RentalDepositParams{
		BookingID: bookingID,
		Method:    models.TransactionMethodCash,
		StaffID:   &staffID,
		Note:      note,
	})
	if err != nil {
		return false, err
	}

	audit := models.NewPaymentAudit(models.PaymentEventStaffConfirmed, models.PaymentSourceStaff).
		WithBooking(bookingID)
	audit.IsDuplicate = !transitioned
	if logErr := s.auditRepo.Log(audit); logErr != nil {
		s.logger.WithError(logErr).Warn("Failed to write staff confirmation audit entry")
	}
	return transitioned, nil
}

// audit writes one audit row, attaching request context. Audit failures are
// logged and swallowed: the trail must never block the payment path.
func (s *DepositService) audit(entry *models.PaymentAudit, body []byte, ip, ua string, keepBody bool) {
	if keepBody && len(body) > 0 {
		raw := string(body)
		entry.RawBody = &raw
	}
	if ip != "" {
		entry.IPAddress = &ip
	}
	if ua != "" {
		entry.UserAgent = &ua
	}
	if err := s.auditRepo.Log(entry); err != nil {
		s.logger.WithError(err).WithField("event_type", entry.EventType).Warn("Failed to write payment audit entry")
	}
}
