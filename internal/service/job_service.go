package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/logger"
	"carrental/internal/repository"
)

const jobTimeout = 2 * time.Minute

type JobService struct {
	repo  repository.JobRepository
	cache *cache.QueryCache
	log   logger.ILogger
	now   func() time.Time
}

func NewJobService(repo repository.JobRepository, qc *cache.QueryCache, log logger.ILogger) *JobService {
	return &JobService{repo: repo, cache: qc, log: log, now: time.Now}
}

// Start registers RunOnce with cron and returns the running scheduler.
func (s *JobService) Start(schedule string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule booking jobs %q: %w", schedule, err)
	}
	c.Start()
	s.log.Info("cron scheduler started", logger.String("schedule", schedule))
	return c, nil
}

// RunOnce runs every job. A failing job is logged and does not stop the others.
func (s *JobService) RunOnce(ctx context.Context) {
	if err := s.ActivateStartedBookings(ctx); err != nil {
		s.log.Error("Cron Job: activate bookings failed", logger.Error(err))
	}
	if err := s.CompleteFinishedBookings(ctx); err != nil {
		s.log.Error("Cron Job: complete bookings failed", logger.Error(err))
	}
	if _, err := s.PurgeExpiredResets(ctx); err != nil {
		s.log.Error("Cron Job: purge password resets failed", logger.Error(err))
	}
}

// ActivateStartedBookings moves confirmed bookings whose start date has come to active.
func (s *JobService) ActivateStartedBookings(ctx context.Context) error {
	due, err := s.repo.GetConfirmedBookingsStarted(ctx, s.now())
	if err != nil {
		return fmt.Errorf("cron job: failed to get started bookings: %w", err)
	}
	if len(due) == 0 {
		s.log.Debug("Cron Job: no confirmed bookings have started")
		return nil
	}

	ids, carIDs, userIDs := split(due)
	n, err := s.repo.UpdateBookingStatuses(ctx, ids, db.BookingActive)
	if err != nil {
		return fmt.Errorf("cron job: failed to activate bookings: %w", err)
	}
	if _, err := s.repo.MarkCarsRented(ctx, carIDs); err != nil {
		return fmt.Errorf("cron job: failed to mark cars rented: %w", err)
	}

	s.log.Info("Cron Job: bookings activated", logger.Int64("count", n), logger.Strings("ids", ids))
	s.cache.Invalidate(ctx, append(cache.BookingKeys(userIDs...), cache.FleetKeys(carIDs...)...)...)
	return nil
}

// CompleteFinishedBookings moves active bookings past their end date to completed.
func (s *JobService) CompleteFinishedBookings(ctx context.Context) error {
	due, err := s.repo.GetActiveBookingsEnded(ctx, s.now())
	if err != nil {
		return fmt.Errorf("cron job: failed to get finished bookings: %w", err)
	}
	if len(due) == 0 {
		s.log.Debug("Cron Job: no active bookings found past their end date")
		return nil
	}

	ids, carIDs, userIDs := split(due)
	n, err := s.repo.UpdateBookingStatuses(ctx, ids, db.BookingCompleted)
	if err != nil {
		return fmt.Errorf("cron job: failed to complete bookings: %w", err)
	}
	if _, err := s.repo.ReleaseCars(ctx, carIDs); err != nil {
		return fmt.Errorf("cron job: failed to release cars: %w", err)
	}

	s.log.Info("Cron Job: bookings completed", logger.Int64("count", n), logger.Strings("ids", ids))
	s.cache.Invalidate(ctx, append(cache.BookingKeys(userIDs...), cache.FleetKeys(carIDs...)...)...)
	return nil
}

func (s *JobService) PurgeExpiredResets(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredPasswordResets(ctx, s.now())
}

func split(due []repository.DueBooking) (ids, carIDs, userIDs []string) {
	seenCar, seenUser := map[string]bool{}, map[string]bool{}
	for _, d := range due {
		ids = append(ids, d.ID)
		if !seenCar[d.CarID] {
			seenCar[d.CarID] = true
			carIDs = append(carIDs, d.CarID)
		}
		if !seenUser[d.UserID] {
			seenUser[d.UserID] = true
			userIDs = append(userIDs, d.UserID)
		}
	}
	return
}
