package services

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
	"github.com/voltride/ev-rental-backend/internal/database"
	"github.com/voltride/ev-rental-backend/internal/models"
)

// quietLogger keeps test output readable
func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func testBookingConfig() config.BookingConfig {
	return config.BookingConfig{
		HoldingDeposit:    50000,
		RentalDepositRate: 30,
		MinDuration:       time.Hour,
		BookingHorizon:    48 * time.Hour,
		MinBatteryLevel:   85,
		PaymentTimeout:    30 * time.Minute,
	}
}

// fakeBookingStore is an in-memory BookingStore double
type fakeBookingStore struct {
	booking      *models.Booking
	getErr       error
	activeCount  int
	overlapCount int

	created   *models.Booking
	createErr error

	attempts    int
	attemptsErr error

	holdingCalls  []database.HoldingDepositParams
	holdingResult bool
	holdingErr    error

	rentalCalls  []database.RentalDepositParams
	rentalResult bool
	rentalErr    error

	cancelStatus models.BookingStatus
	cancelErr    error

	pendingIDs        []int64
	listPendingErr    error
	reclaimPendingOK  map[int64]bool
	reclaimPendingErr map[int64]error
	noShowIDs         []int64
	reclaimNoShowOK   map[int64]bool
	reclaimNoShowErr  map[int64]error
}

func (f *fakeBookingStore) GetByID(bookingID int64) (*models.Booking, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.booking == nil || f.booking.ID != bookingID {
		return nil, nil
	}
	return f.booking, nil
}

func (f *fakeBookingStore) ListByRenter(renterID int64, limit, offset int) ([]*models.Booking, error) {
	if f.booking != nil && f.booking.RenterID == renterID {
		return []*models.Booking{f.booking}, nil
	}
	return nil, nil
}

func (f *fakeBookingStore) CountActiveByRenter(renterID int64) (int, error) {
	return f.activeCount, nil
}

func (f *fakeBookingStore) CountOverlapping(vehicleID int64, start, end time.Time, excludedStatuses []string) (int, error) {
	return f.overlapCount, nil
}

func (f *fakeBookingStore) ReserveAndCreate(booking *models.Booking) error {
	if f.createErr != nil {
		return f.createErr
	}
	booking.ID = 42
	booking.Status = models.BookingStatusPending
	booking.CreatedAt = time.Now()
	booking.UpdatedAt = booking.CreatedAt
	f.created = booking
	return nil
}

func (f *fakeBookingStore) IncrementPaymentAttempts(bookingID int64) (int, error) {
	if f.attemptsErr != nil {
		return 0, f.attemptsErr
	}
	f.attempts++
	return f.attempts, nil
}

func (f *fakeBookingStore) ConfirmHoldingDeposit(params database.HoldingDepositParams) (bool, error) {
	f.holdingCalls = append(f.holdingCalls, params)
	return f.holdingResult, f.holdingErr
}

func (f *fakeBookingStore) ConfirmRentalDeposit(params database.RentalDepositParams) (bool, error) {
	f.rentalCalls = append(f.rentalCalls, params)
	return f.rentalResult, f.rentalErr
}

func (f *fakeBookingStore) CancelByRenter(bookingID, renterID, refundAmount int64, refundNote string) (models.BookingStatus, error) {
	return f.cancelStatus, f.cancelErr
}

func (f *fakeBookingStore) ListExpiredPendingIDs(cutoff time.Time, limit int) ([]int64, error) {
	return f.pendingIDs, f.listPendingErr
}

func (f *fakeBookingStore) ReclaimExpiredPending(bookingID int64, cutoff time.Time) (bool, error) {
	if err := f.reclaimPendingErr[bookingID]; err != nil {
		return false, err
	}
	return f.reclaimPendingOK[bookingID], nil
}

func (f *fakeBookingStore) ListNoShowIDs(now time.Time, limit int) ([]int64, error) {
	return f.noShowIDs, nil
}

func (f *fakeBookingStore) ReclaimNoShow(bookingID int64, now time.Time) (bool, error) {
	if err := f.reclaimNoShowErr[bookingID]; err != nil {
		return false, err
	}
	return f.reclaimNoShowOK[bookingID], nil
}

type fakeVehicleStore struct {
	vehicle    *models.Vehicle
	model      *models.VehicleModel
	modelCount int
}

func (f *fakeVehicleStore) GetByID(vehicleID int64) (*models.Vehicle, error) {
	if f.vehicle == nil || f.vehicle.ID != vehicleID {
		return nil, nil
	}
	return f.vehicle, nil
}

func (f *fakeVehicleStore) GetModelByID(modelID int64) (*models.VehicleModel, error) {
	if f.model == nil || f.model.ID != modelID {
		return nil, nil
	}
	return f.model, nil
}

func (f *fakeVehicleStore) CountByStationAndModel(stationID, modelID int64) (int, error) {
	return f.modelCount, nil
}

type fakeStationStore struct {
	station *models.Station
}

func (f *fakeStationStore) GetByID(stationID int64) (*models.Station, error) {
	if f.station == nil || f.station.ID != stationID {
		return nil, nil
	}
	return f.station, nil
}

type fakeRenterStore struct {
	renter *models.Renter
}

func (f *fakeRenterStore) GetByID(renterID int64) (*models.Renter, error) {
	if f.renter == nil || f.renter.ID != renterID {
		return nil, nil
	}
	return f.renter, nil
}

type gatewayCall struct {
	orderCode   int64
	amount      int64
	description string
}

type fakeGateway struct {
	calls []gatewayCall
	err   error
}

func (f *fakeGateway) CreatePaymentLink(orderCode, amount int64, description string) (*PayOSLinkData, error) {
	f.calls = append(f.calls, gatewayCall{orderCode, amount, description})
	if f.err != nil {
		return nil, f.err
	}
	return &PayOSLinkData{
		PaymentLinkID: fmt.Sprintf("pl_%d", orderCode),
		CheckoutURL:   fmt.Sprintf("https://pay.payos.vn/web/%d", orderCode),
		OrderCode:     orderCode,
		Amount:        amount,
		Status:        "PENDING",
	}, nil
}

type fakeAuditStore struct {
	entries      []*models.PaymentAudit
	logErr       error
	processedErr error
}

func (f *fakeAuditStore) Log(audit *models.PaymentAudit) error {
	f.entries = append(f.entries, audit)
	return f.logErr
}

func (f *fakeAuditStore) HasProcessedEvent(orderCode int64, eventType models.PaymentEventType) (bool, error) {
	if f.processedErr != nil {
		return false, f.processedErr
	}
	for _, e := range f.entries {
		if e.OrderCode != nil && *e.OrderCode == orderCode && e.EventType == eventType && !e.IsDuplicate {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAuditStore) byType(eventType models.PaymentEventType) []*models.PaymentAudit {
	var out []*models.PaymentAudit
	for _, e := range f.entries {
		if e.EventType == eventType {
			out = append(out, e)
		}
	}
	return out
}
