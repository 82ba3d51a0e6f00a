package services

import (
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/voltride/ev-rental-backend/internal/config"
)

// CronService schedules the background sweeps
type CronService struct {
	cron    *cron.Cron
	reclaim *ReclaimService
	config  config.SweeperConfig
	logger  *logrus.Logger
}

// NewCronService creates a new CronService
func NewCronService(reclaim *ReclaimService, cfg config.SweeperConfig, logger *logrus.Logger) *CronService {
	return &CronService{
		cron:    cron.New(cron.WithSeconds()),
		reclaim: reclaim,
		config:  cfg,
		logger:  logger,
	}
}

// Start registers the sweep jobs and starts the scheduler
func (s *CronService) Start() error {
	if _, err := s.cron.AddFunc(s.config.PendingReclaimSpec, func() {
		s.reclaim.ReclaimExpiredPending()
	}); err != nil {
		return err
	}

	if _, err := s.cron.AddFunc(s.config.NoShowReclaimSpec, func() {
		s.reclaim.ReclaimNoShows()
	}); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.WithFields(logrus.Fields{
		"pending_spec": s.config.PendingReclaimSpec,
		"noshow_spec":  s.config.NoShowReclaimSpec,
	}).Info("Sweep scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *CronService) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("Sweep scheduler stopped")
}
