package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/entities"
	"carrental/internal/filter"
	"carrental/internal/repository"
)

const recentLimit = 5

type AdminService struct {
	cars     repository.CarRepository
	bookings repository.BookingRepository
	profiles repository.ProfileRepository
	payments repository.PaymentRepository
	cache    *cache.QueryCache
}

func NewAdminService(
	cars repository.CarRepository,
	bookings repository.BookingRepository,
	profiles repository.ProfileRepository,
	payments repository.PaymentRepository,
	qc *cache.QueryCache,
) *AdminService {
	return &AdminService{cars: cars, bookings: bookings, profiles: profiles, payments: payments, cache: qc}
}

// Dashboard gathers the headline counts and the latest activity in parallel.
func (s *AdminService) Dashboard(ctx context.Context) (*entities.DashboardStats, error) {
	return cache.Fetch(ctx, s.cache, cache.AdminDashboard, s.loadDashboard)
}

func (s *AdminService) loadDashboard(ctx context.Context) (*entities.DashboardStats, error) {
	var stats entities.DashboardStats
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) {
		stats.TotalCars, err = s.cars.Count(ctx)
		return
	})
	g.Go(func() (err error) {
		stats.TotalCustomers, err = s.profiles.CountByRole(ctx, db.RoleCustomer)
		return
	})
	g.Go(func() error {
		counts, err := s.bookings.CountByStatus(ctx)
		stats.ActiveBookings = counts[db.BookingActive]
		return err
	})
	g.Go(func() (err error) {
		stats.TotalRevenue, err = s.payments.TotalSucceeded(ctx)
		return
	})
	g.Go(func() (err error) {
		stats.RecentBookings, err = s.bookings.List(ctx, repository.BookingQuery{Limit: recentLimit})
		return
	})
	g.Go(func() (err error) {
		stats.RecentCars, err = s.cars.List(ctx, repository.CarQuery{Limit: recentLimit})
		return
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Users lists every profile by name, narrowed by f.
func (s *AdminService) Users(ctx context.Context, f filter.Users) ([]db.Profile, error) {
	all, err := cache.Fetch(ctx, s.cache, cache.AdminUsers, s.profiles.List)
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}
