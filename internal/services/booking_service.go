package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/models"
	"github.com/voltride/ev-rental-backend/pkg/ordercode"
)

// BookingStore is the booking persistence surface the services consume.
// Implemented by database.BookingRepository.
type BookingStore interface {
	GetByID(bookingID int64) (*models.Booking, error)
	ListByRenter(renterID int64, limit, offset int) ([]*models.Booking, error)
	CountActiveByRenter(renterID int64) (int, error)
	CountOverlapping(vehicleID int64, start, end time.Time, excludedStatuses []string) (int, error)
	ReserveAndCreate(booking *models.Booking) error
	IncrementPaymentAttempts(bookingID int64) (int, error)
	ConfirmHoldingDeposit(params database.HoldingDepositParams) (bool, error)
	ConfirmRentalDeposit(params database.RentalDepositParams) (bool, error)
	CancelByRenter(bookingID, renterID, refundAmount int64, refundNote string) (models.BookingStatus, error)
	ListExpiredPendingIDs(cutoff time.Time, limit int) ([]int64, error)
	ReclaimExpiredPending(bookingID int64, cutoff time.Time) (bool, error)
	ListNoShowIDs(now time.Time, limit int) ([]int64, error)
	ReclaimNoShow(bookingID int64, now time.Time) (bool, error)
}

// VehicleStore is the vehicle read surface, implemented by database.VehicleRepository
type VehicleStore interface {
	GetByID(vehicleID int64) (*models.Vehicle, error)
	GetModelByID(modelID int64) (*models.VehicleModel, error)
	CountByStationAndModel(stationID, modelID int64) (int, error)
}

// StationStore is the station read surface, implemented by database.StationRepository
type StationStore interface {
	GetByID(stationID int64) (*models.Station, error)
}

// RenterStore is the renter read surface, implemented by database.RenterRepository
type RenterStore interface {
	GetByID(renterID int64) (*models.Renter, error)
}

// PaymentGateway is the outbound gateway surface, implemented by PayOSService
type PaymentGateway interface {
	CreatePaymentLink(orderCode, amount int64, description string) (*PayOSLinkData, error)
}

// BookingService owns the booking state machine: it validates reservation
// requests, allocates the vehicle, creates the PENDING booking and requests
// the holding-deposit payment link.
type BookingService struct {
	bookingRepo BookingStore
	vehicleRepo VehicleStore
	stationRepo StationStore
	renterRepo  RenterStore
	gateway     PaymentGateway
	auditRepo   PaymentAuditStore
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo BookingStore,
	vehicleRepo VehicleStore,
	stationRepo StationStore,
	renterRepo RenterStore,
	gateway PaymentGateway,
	auditRepo PaymentAuditStore,
	cfg config.BookingConfig,
	logger *logrus.Logger,
) *BookingService {
	return &BookingService{
		bookingRepo: bookingRepo,
		vehicleRepo: vehicleRepo,
		stationRepo: stationRepo,
		renterRepo:  renterRepo,
		gateway:     gateway,
		auditRepo:   auditRepo,
		config:      cfg,
		logger:      logger,
	}
}

// CreateBooking validates a reservation request, allocates the vehicle and
// creates a PENDING booking, then requests a holding-deposit payment link.
//
// The booking is persisted before the gateway call, deliberately: a slow or
// failed gateway must not roll the booking back. The caller can retry the
// link, and the pending-timeout sweep reclaims the booking if nobody pays.
func (s *BookingService) CreateBooking(renterID int64, req *models.CreateBookingRequest) (*models.CreateBookingResponse, error) {
	now := time.Now()

	if !req.AgreedTerms {
		return nil, models.NewValidationError("rental terms must be agreed")
	}
	if !req.EndTime.After(req.StartTime) {
		return nil, models.NewValidationError("end time must be after start time")
	}
	if req.EndTime.Sub(req.StartTime) < s.config.MinDuration {
		return nil, models.NewValidationError("rental duration must be at least %s", s.config.MinDuration)
	}
	if req.StartTime.Before(now) {
		return nil, models.NewValidationError("start time must be in the future")
	}
	if req.StartTime.After(now.Add(s.config.BookingHorizon)) {
		return nil, models.NewValidationError("start time must be within %s from now", s.config.BookingHorizon)
	}

	renter, err := s.renterRepo.GetByID(renterID)
	if err != nil {
		return nil, err
	}
	if renter == nil {
		return nil, models.ErrNotFound
	}
	if renter.Status != models.RenterStatusActive {
		return nil, models.NewValidationError("renter account is not active")
	}
	if renter.IdentityStatus != models.IdentityStatusApproved {
		return nil, models.NewValidationError("identity verification is not approved")
	}

	activeCount, err := s.bookingRepo.CountActiveByRenter(renterID)
	if err != nil {
		return nil, err
	}
	if activeCount > 0 {
		return nil, models.NewValidationError("renter already has an active booking")
	}

	vehicle, err := s.vehicleRepo.GetByID(req.VehicleID)
	if err != nil {
		return nil, err
	}
	if vehicle == nil {
		return nil, models.ErrNotFound
	}
	if vehicle.BatteryLevel < s.config.MinBatteryLevel {
		return nil, models.NewValidationError("vehicle battery level %d%% is below the %d%% minimum",
			vehicle.BatteryLevel, s.config.MinBatteryLevel)
	}
	if vehicle.Status != models.VehicleStatusAvailable {
		return nil, fmt.Errorf("vehicle status is %s: %w", vehicle.Status, models.ErrVehicleConflict)
	}

	station, err := s.stationRepo.GetByID(vehicle.StationID)
	if err != nil {
		return nil, err
	}
	if station == nil || station.Status != models.StationStatusActive {
		return nil, models.NewValidationError("station is not active")
	}

	// Defensive check against stale catalog state
	modelCount, err := s.vehicleRepo.CountByStationAndModel(vehicle.StationID, vehicle.ModelID)
	if err != nil {
		return nil, err
	}
	if modelCount == 0 {
		return nil, models.NewValidationError("station has no vehicles of this model")
	}

	// Pre-flight overlap check. Advisory only: ReserveAndCreate repeats it
	// under the vehicle row lock, which is what actually closes the race.
	overlaps, err := s.bookingRepo.CountOverlapping(vehicle.ID, req.StartTime, req.EndTime, models.VoidBookingStatuses)
	if err != nil {
		return nil, err
	}
	if overlaps > 0 {
		s.logger.WithFields(logrus.Fields{
			"vehicle_id": vehicle.ID,
			"overlaps":   overlaps,
			"start_time": req.StartTime,
			"end_time":   req.EndTime,
		}).Info("Booking request rejected: window contention")
		return nil, fmt.Errorf("%d overlapping booking(s): %w", overlaps, models.ErrVehicleConflict)
	}

	model, err := s.vehicleRepo.GetModelByID(vehicle.ModelID)
	if err != nil {
		return nil, err
	}
	if model == nil {
		return nil, fmt.Errorf("vehicle %d references missing model %d: %w", vehicle.ID, vehicle.ModelID, models.ErrDataIntegrity)
	}

	// Billing truncates to whole hours: a 90 minute window bills 1 hour.
	durationHours := int64(req.EndTime.Sub(req.StartTime).Hours())
	finalFee := model.HourlyRate * durationHours
	rentalDeposit := model.VehicleValue * int64(s.config.RentalDepositRate) / 100

	booking := &models.Booking{
		RenterID:      renterID,
		VehicleID:     &vehicle.ID,
		StationID:     vehicle.StationID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		FinalFee:      finalFee,
		RentalDeposit: &rentalDeposit,
	}

	if err := s.bookingRepo.ReserveAndCreate(booking); err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"booking_id": booking.ID,
		"renter_id":  renterID,
		"vehicle_id": vehicle.ID,
		"final_fee":  finalFee,
	}).Info("Booking created")

	checkoutURL, orderCode, err := s.requestHoldingLink(booking)
	if err != nil {
		// The booking stays PENDING; payment can be retried, and the
		// sweeper reclaims it if it never is.
		s.logger.WithError(err).WithField("booking_id", booking.ID).Error("Payment link creation failed after booking persisted")
		return nil, fmt.Errorf("booking %d created but payment link failed: %w", booking.ID, models.ErrGateway)
	}

	return &models.CreateBookingResponse{
		BookingID:   booking.ID,
		Status:      string(models.BookingStatusPending),
		FinalFee:    finalFee,
		Deposit:     s.config.HoldingDeposit,
		CheckoutURL: checkoutURL,
		OrderCode:   orderCode,
		ExpiresAt:   booking.CreatedAt.Add(s.config.PaymentTimeout),
	}, nil
}

// RetryHoldingDepositLink issues a fresh payment link for an unpaid booking
func (s *BookingService) RetryHoldingDepositLink(renterID, bookingID int64) (*models.CreateBookingResponse, error) {
	booking, err := s.ownedBooking(renterID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusPending {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, models.ErrInvalidState)
	}

	checkoutURL, orderCode, err := s.requestHoldingLink(booking)
	if err != nil {
		return nil, fmt.Errorf("payment link failed: %w", models.ErrGateway)
	}

	return &models.CreateBookingResponse{
		BookingID:   booking.ID,
		Status:      string(booking.Status),
		FinalFee:    booking.FinalFee,
		Deposit:     s.config.HoldingDeposit,
		CheckoutURL: checkoutURL,
		OrderCode:   orderCode,
		ExpiresAt:   booking.CreatedAt.Add(s.config.PaymentTimeout),
	}, nil
}

// RequestRentalDepositLink issues a payment link for the rental deposit of a
// CONFIRMED booking
func (s *BookingService) RequestRentalDepositLink(renterID, bookingID int64) (*models.CreateBookingResponse, error) {
	booking, err := s.ownedBooking(renterID, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != models.BookingStatusConfirmed {
		return nil, fmt.Errorf("booking %d is %s: %w", bookingID, booking.Status, models.ErrInvalidState)
	}
	if booking.RentalDepositPaid {
		return nil, models.NewValidationError("rental deposit already paid")
	}
	if booking.RentalDeposit == nil || *booking.RentalDeposit <= 0 {
		return nil, fmt.Errorf("booking %d has no rental deposit amount: %w", bookingID, models.ErrDataIntegrity)
	}

	attempts, err := s.bookingRepo.IncrementPaymentAttempts(booking.ID)
	if err != nil {
		return nil, err
	}
	code, err := ordercode.Encode(booking.ID, ordercode.KindRental, attempts)
	if err != nil {
		return nil, err
	}
	link, err := s.gateway.CreatePaymentLink(code, *booking.RentalDeposit,
		fmt.Sprintf("Rental deposit booking %d", booking.ID))
	if err != nil {
		s.auditLink(models.PaymentEventLinkFailed, booking.ID, code, *booking.RentalDeposit, err)
		return nil, fmt.Errorf("payment link failed: %w", models.ErrGateway)
	}
	s.auditLink(models.PaymentEventLinkCreated, booking.ID, code, *booking.RentalDeposit, nil)

	return &models.CreateBookingResponse{
		BookingID:   booking.ID,
		Status:      string(booking.Status),
		FinalFee:    booking.FinalFee,
		Deposit:     *booking.RentalDeposit,
		CheckoutURL: link.CheckoutURL,
		OrderCode:   code,
	}, nil
}

// CancelBooking cancels a renter's own booking. A CONFIRMED booking already
// carries a paid holding deposit, so it moves to CANCELLED_AWAIT_REFUND with
// the deposit as the refund amount.
func (s *BookingService) CancelBooking(renterID, bookingID int64) (models.BookingStatus, error) {
	status, err := s.bookingRepo.CancelByRenter(bookingID, renterID, s.config.HoldingDeposit, "holding deposit refund on cancellation")
	if err != nil {
		return "", err
	}
	s.logger.WithFields(logrus.Fields{
		"booking_id": bookingID,
		"renter_id":  renterID,
		"status":     status,
	}).Info("Booking cancelled by renter")
	return status, nil
}

// GetMyBookings returns the renter's bookings, newest first
func (s *BookingService) GetMyBookings(renterID int64, limit, offset int) ([]*models.Booking, error) {
	return s.bookingRepo.ListByRenter(renterID, limit, offset)
}

// GetBooking returns one booking if the renter owns it
func (s *BookingService) GetBooking(renterID, bookingID int64) (*models.Booking, error) {
	return s.ownedBooking(renterID, bookingID)
}

// requestHoldingLink bumps the attempt counter, derives the order code and
// asks the gateway for a checkout page for the holding deposit
func (s *BookingService) requestHoldingLink(booking *models.Booking) (string, int64, error) {
	attempts, err := s.bookingRepo.IncrementPaymentAttempts(booking.ID)
	if err != nil {
		return "", 0, err
	}
	code, err := ordercode.Encode(booking.ID, ordercode.KindHolding, attempts)
	if err != nil {
		return "", 0, err
	}
	link, err := s.gateway.CreatePaymentLink(code, s.config.HoldingDeposit,
		fmt.Sprintf("Holding deposit booking %d", booking.ID))
	if err != nil {
		s.auditLink(models.PaymentEventLinkFailed, booking.ID, code, s.config.HoldingDeposit, err)
		return "", 0, err
	}
	s.auditLink(models.PaymentEventLinkCreated, booking.ID, code, s.config.HoldingDeposit, nil)
	return link.CheckoutURL, code, nil
}

// auditLink records a payment-link outcome on the audit trail. Failures to
// write the trail are logged and swallowed, same as the webhook path.
func (s *BookingService) auditLink(eventType models.PaymentEventType, bookingID, orderCode, amount int64, cause error) {
	entry := models.NewPaymentAudit(eventType, models.PaymentSourceBackend).
		WithOrderCode(orderCode).WithBooking(bookingID)
	entry.Amount = &amount
	if cause != nil {
		entry.WithError(cause.Error())
	}
	if err := s.auditRepo.Log(entry); err != nil {
		s.logger.WithError(err).WithField("event_type", eventType).Warn("Failed to write payment audit entry")
	}
}

func (s *BookingService) ownedBooking(renterID, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil || booking.RenterID != renterID {
		return nil, models.ErrNotFound
	}
	return booking, nil
}
