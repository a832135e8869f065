package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/filter"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/utils"
)

type BookingService struct {
	bookings repository.BookingRepository
	cars     repository.CarRepository
	payments repository.PaymentRepository
	gateway  PaymentGateway
	notifier Notifier
	cache    *cache.QueryCache
	log      logger.ILogger
	currency string
	now      func() time.Time
}

// NewBookingService builds the service. gateway may be nil when online payment is off.
func NewBookingService(
	bookings repository.BookingRepository,
	cars repository.CarRepository,
	payments repository.PaymentRepository,
	gateway PaymentGateway,
	notifier Notifier,
	qc *cache.QueryCache,
	log logger.ILogger,
	currency string,
) *BookingService {
	return &BookingService{
		bookings: bookings,
		cars:     cars,
		payments: payments,
		gateway:  gateway,
		notifier: notifier,
		cache:    qc,
		log:      log,
		currency: currency,
		now:      time.Now,
	}
}

func (s *BookingService) Create(ctx context.Context, userID, email string, req entities.BookingRequest) (*entities.BookingResponse, error) {
	if strings.TrimSpace(req.CarID) == "" {
		return nil, apperr.BadRequest("car_id is required")
	}
	if req.StartDate.IsZero() || req.EndDate.IsZero() {
		return nil, apperr.BadRequest("start_date and end_date are required")
	}
	if !req.EndDate.After(req.StartDate) {
		return nil, apperr.BadRequest("end_date must be after start_date")
	}

	if !validID(req.CarID) {
		return nil, apperr.NotFound("car not found")
	}
	car, err := s.cars.GetByID(ctx, req.CarID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("car not found")
	}
	if err != nil {
		return nil, err
	}
	if car.Status == db.CarMaintenance || car.Status == db.CarUnavailable {
		return nil, apperr.Conflict("car is not available for booking")
	}

	booking := &db.Booking{
		ID:         uuid.NewString(),
		CarID:      car.ID,
		UserID:     userID,
		StartDate:  req.StartDate.UTC(),
		EndDate:    req.EndDate.UTC(),
		TotalPrice: utils.TotalPrice(car.PricePerDay, req.StartDate, req.EndDate),
		Status:     db.BookingPending,
	}
	if err := s.bookings.Create(ctx, booking); err != nil {
		s.log.Error("create booking failed", logger.String("car", car.ID), logger.String("user", userID), logger.Error(err))
		return nil, err
	}
	booking.Car = &db.CarSummary{ID: car.ID, Brand: car.Brand, Model: car.Model, Images: car.Images}
	s.cache.Invalidate(ctx, cache.BookingKeys(userID)...)

	resp := &entities.BookingResponse{Booking: *booking}
	if s.gateway == nil {
		return resp, nil
	}

	url, sessionID, err := s.gateway.CreateCheckoutSession(ctx, CheckoutRequest{
		BookingID:     booking.ID,
		Amount:        utils.MinorUnits(booking.TotalPrice),
		Currency:      s.currency,
		Description:   fmt.Sprintf("%s %s, %d day(s)", car.Brand, car.Model, utils.RentalDays(req.StartDate, req.EndDate)),
		CustomerEmail: email,
	})
	if err != nil {
		s.log.Error("checkout session failed", logger.String("booking", booking.ID), logger.Error(err))
		return resp, nil
	}
	payment := &db.Payment{
		ID:              uuid.NewString(),
		BookingID:       booking.ID,
		UserID:          userID,
		Amount:          booking.TotalPrice,
		Currency:        s.currency,
		Status:          db.PaymentPending,
		StripeSessionID: sessionID,
	}
	if err := s.payments.Create(ctx, payment); err != nil {
		s.log.Error("record payment failed", logger.String("booking", booking.ID), logger.Error(err))
		return resp, nil
	}
	resp.CheckoutURL, resp.SessionID = url, sessionID
	return resp, nil
}

func (s *BookingService) ListMine(ctx context.Context, userID string) ([]db.Booking, error) {
	return cache.Fetch(ctx, s.cache, cache.MyBookings(userID), func(ctx context.Context) ([]db.Booking, error) {
		return s.bookings.List(ctx, repository.BookingQuery{UserID: userID})
	})
}

func (s *BookingService) ListAdmin(ctx context.Context, f filter.Bookings) ([]db.Booking, error) {
	all, err := cache.Fetch(ctx, s.cache, cache.AdminBookings, func(ctx context.Context) ([]db.Booking, error) {
		return s.bookings.List(ctx, repository.BookingQuery{})
	})
	if err != nil {
		return nil, err
	}
	return f.Apply(all), nil
}

func (s *BookingService) get(ctx context.Context, id string) (*db.Booking, error) {
	if !validID(id) {
		return nil, apperr.NotFound("booking not found")
	}
	b, err := s.bookings.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("booking not found")
	}
	return b, err
}

// setStatus performs the single write behind approve, reject and cancel.
func (s *BookingService) setStatus(ctx context.Context, b *db.Booking, status string, reason *string) error {
	if err := s.bookings.UpdateStatus(ctx, b.ID, status, reason); err != nil {
		s.log.Error("update booking status failed",
			logger.String("booking", b.ID), logger.String("status", status), logger.Error(err))
		return err
	}
	b.Status = status
	if reason != nil {
		b.CancellationReason = reason
	}
	s.cache.Invalidate(ctx, cache.BookingKeys(b.UserID)...)
	s.notifier.BookingStatusChanged(*b)
	return nil
}

func (s *BookingService) Approve(ctx context.Context, id string) (*db.Booking, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != db.BookingPending {
		return nil, apperr.Conflict("only pending bookings can be approved, this one is %s", b.Status)
	}
	if err := s.setStatus(ctx, b, db.BookingConfirmed, nil); err != nil {
		return nil, err
	}
	return b, nil
}

// Reject cancels a pending booking. An empty reason is refused before anything is written.
func (s *BookingService) Reject(ctx context.Context, id, reason string) (*db.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperr.BadRequest("a rejection reason is required")
	}
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status != db.BookingPending {
		return nil, apperr.Conflict("only pending bookings can be rejected, this one is %s", b.Status)
	}
	if err := s.setStatus(ctx, b, db.BookingCancelled, &reason); err != nil {
		return nil, err
	}
	return b, nil
}

// Cancel lets a customer withdraw their own pending or confirmed booking. A
// settled payment is refunded.
func (s *BookingService) Cancel(ctx context.Context, userID, id, reason string) (*db.Booking, error) {
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, apperr.NotFound("booking not found")
	}
	if b.Status != db.BookingPending && b.Status != db.BookingConfirmed {
		return nil, apperr.Conflict("a %s booking cannot be cancelled", b.Status)
	}

	var why *string
	if r := strings.TrimSpace(reason); r != "" {
		why = &r
	}
	if err := s.setStatus(ctx, b, db.BookingCancelled, why); err != nil {
		return nil, err
	}
	s.refund(ctx, b.ID)
	return b, nil
}

func (s *BookingService) refund(ctx context.Context, bookingID string) {
	if s.gateway == nil {
		return
	}
	p, err := s.payments.GetLatestForBooking(ctx, bookingID)
	if err != nil || p.Status != db.PaymentSucceeded {
		return
	}
	if err := s.gateway.RefundBySessionID(ctx, p.StripeSessionID); err != nil {
		s.log.Error("refund failed", logger.String("booking", bookingID), logger.Error(err))
	}
}

func (s *BookingService) Rate(ctx context.Context, userID, id string, req entities.RatingRequest) (*db.Booking, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperr.BadRequest("rating must be between 1 and 5")
	}
	b, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.UserID != userID {
		return nil, apperr.NotFound("booking not found")
	}
	if b.Status != db.BookingCompleted {
		return nil, apperr.Conflict("only completed bookings can be rated")
	}

	var review *string
	if r := strings.TrimSpace(req.Review); r != "" {
		review = &r
	}
	if err := s.bookings.SetRating(ctx, id, req.Rating, review); err != nil {
		s.log.Error("rate booking failed", logger.String("booking", id), logger.Error(err))
		return nil, err
	}
	b.Rating, b.Review = &req.Rating, review
	s.cache.Invalidate(ctx, cache.MyBookings(userID), cache.AdminBookings)
	return b, nil
}

// CheckoutStatus looks a booking up by its checkout session for the success page.
func (s *BookingService) CheckoutStatus(ctx context.Context, userID, sessionID string) (*entities.CheckoutStatus, error) {
	if sessionID == "" {
		return nil, apperr.BadRequest("session_id required")
	}
	p, err := s.payments.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrNotFound) || (err == nil && p.UserID != userID) {
		return nil, apperr.NotFound("booking not found")
	}
	if err != nil {
		return nil, err
	}
	b, err := s.get(ctx, p.BookingID)
	if err != nil {
		return nil, err
	}
	return &entities.CheckoutStatus{Booking: *b, Payment: *p}, nil
}

func (s *BookingService) CheckoutCompleted(ctx context.Context, sessionID, paymentIntentID string) error {
	if err := s.payments.UpdateBySessionID(ctx, sessionID, db.PaymentSucceeded, paymentIntentID); err != nil {
		return fmt.Errorf("mark session %s paid: %w", sessionID, err)
	}
	s.cache.Invalidate(ctx, cache.ReportsRevenue, cache.AdminDashboard)
	return nil
}

func (s *BookingService) PaymentRefunded(ctx context.Context, paymentIntentID string) error {
	p, err := s.payments.UpdateStatusByPaymentIntent(ctx, paymentIntentID, db.PaymentRefunded)
	if err != nil {
		return fmt.Errorf("mark intent %s refunded: %w", paymentIntentID, err)
	}
	s.cache.Invalidate(ctx, append(cache.BookingKeys(p.UserID), cache.ReportsRevenue)...)
	return nil
}
