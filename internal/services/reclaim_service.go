package services

import (
	"time"

	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
)

// sweepBatchSize bounds one sweep pass so a backlog cannot hold row locks
// for the whole run. Leftovers are picked up next tick.
const sweepBatchSize = 200

// ReclaimService runs the two periodic sweeps that cancel abandoned
// bookings: PENDING ones whose payment window lapsed (frees the booking
// window), and CONFIRMED ones whose renter never showed up (also releases
// the reserved vehicle).
//
// Listing and reclaiming are separate steps on purpose. The list is a
// snapshot; each reclaim re-checks status and deadline inside its own
// statement, so a payment that lands between the two steps wins.
type ReclaimService struct {
	bookingRepo BookingStore
	config      config.BookingConfig
	logger      *logrus.Logger
}

// NewReclaimService creates a new ReclaimService
func NewReclaimService(bookingRepo BookingStore, cfg config.BookingConfig, logger *logrus.Logger) *ReclaimService {
	return &ReclaimService{
		bookingRepo: bookingRepo,
		config:      cfg,
		logger:      logger,
	}
}

// ReclaimExpiredPending cancels PENDING bookings older than the payment
// timeout. Their vehicles were never reserved, so no vehicle state changes.
// Returns how many were reclaimed.
func (s *ReclaimService) ReclaimExpiredPending() int {
	cutoff := time.Now().Add(-s.config.PaymentTimeout)

	ids, err := s.bookingRepo.ListExpiredPendingIDs(cutoff, sweepBatchSize)
	if err != nil {
		s.logger.WithError(err).Error("Pending sweep: failed to list expired bookings")
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	reclaimed := 0
	for _, id := range ids {
		ok, err := s.bookingRepo.ReclaimExpiredPending(id, cutoff)
		if err != nil {
			// One bad row must not stall the rest of the batch
			s.logger.WithError(err).WithField("booking_id", id).Error("Pending sweep: reclaim failed")
			continue
		}
		if !ok {
			// Paid or cancelled between list and reclaim
			s.logger.WithField("booking_id", id).Debug("Pending sweep: booking no longer eligible")
			continue
		}
		reclaimed++
	}

	s.logger.WithFields(logrus.Fields{
		"candidates": len(ids),
		"reclaimed":  reclaimed,
	}).Info("Pending sweep completed")
	return reclaimed
}

// ReclaimNoShows cancels CONFIRMED bookings whose start time has passed
// without a check-in and releases their vehicles
func (s *ReclaimService) ReclaimNoShows() int {
	now := time.Now()

	ids, err := s.bookingRepo.ListNoShowIDs(now, sweepBatchSize)
	if err != nil {
		s.logger.WithError(err).Error("No-show sweep: failed to list candidates")
		return 0
	}
	if len(ids) == 0 {
		return 0
	}

	reclaimed := 0
	for _, id := range ids {
		ok, err := s.bookingRepo.ReclaimNoShow(id, now)
		if err != nil {
			s.logger.WithError(err).WithField("booking_id", id).Error("No-show sweep: reclaim failed")
			continue
		}
		if !ok {
			s.logger.WithField("booking_id", id).Debug("No-show sweep: booking no longer eligible")
			continue
		}
		reclaimed++
	}

	s.logger.WithFields(logrus.Fields{
		"candidates": len(ids),
		"reclaimed":  reclaimed,
	}).Info("No-show sweep completed")
	return reclaimed
}
