package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
)

// DueBooking is a booking whose dates moved it into the next status.
type DueBooking struct {
	ID     string
	CarID  string
	UserID string
}

type JobRepository interface {
	GetConfirmedBookingsStarted(ctx context.Context, now time.Time) ([]DueBooking, error)
	GetActiveBookingsEnded(ctx context.Context, now time.Time) ([]DueBooking, error)
	UpdateBookingStatuses(ctx context.Context, ids []string, newStatus string) (int64, error)
	MarkCarsRented(ctx context.Context, carIDs []string) (int64, error)
	ReleaseCars(ctx context.Context, carIDs []string) (int64, error)
	DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error)
}

type jobRepository struct {
	db *sql.DB
}

func NewJobRepository(conn *sql.DB) JobRepository {
	return &jobRepository{db: conn}
}

func (r *jobRepository) GetConfirmedBookingsStarted(ctx context.Context, now time.Time) ([]DueBooking, error) {
	return r.due(ctx, `SELECT id, car_id, user_id FROM bookings WHERE status = 'confirmed' AND start_date <= $1`, now)
}

func (r *jobRepository) GetActiveBookingsEnded(ctx context.Context, now time.Time) ([]DueBooking, error) {
	return r.due(ctx, `SELECT id, car_id, user_id FROM bookings WHERE status = 'active' AND end_date < $1`, now)
}

func (r *jobRepository) due(ctx context.Context, query string, now time.Time) ([]DueBooking, error) {
	rows, err := r.db.QueryContext(ctx, query, now)
	if err != nil {
		return nil, fmt.Errorf("error querying due bookings: %w", err)
	}
	defer rows.Close()

	var due []DueBooking
	for rows.Next() {
		var d DueBooking
		if err := rows.Scan(&d.ID, &d.CarID, &d.UserID); err != nil {
			return nil, fmt.Errorf("error scanning booking ID: %w", err)
		}
		due = append(due, d)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return due, nil
}

func (r *jobRepository) UpdateBookingStatuses(ctx context.Context, ids []string, newStatus string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = NOW() WHERE id = ANY($2)`, newStatus, pq.Array(ids))
	if err != nil {
		return 0, fmt.Errorf("error updating booking statuses: %w", err)
	}
	return res.RowsAffected()
}

func (r *jobRepository) MarkCarsRented(ctx context.Context, carIDs []string) (int64, error) {
	if len(carIDs) == 0 {
		return 0, nil
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE cars SET status = 'rented', updated_at = NOW() WHERE id = ANY($1) AND status = 'available'`,
		pq.Array(carIDs))
	if err != nil {
		return 0, fmt.Errorf("error marking cars rented: %w", err)
	}
	return res.RowsAffected()
}

// ReleaseCars makes rented cars available again unless another active booking holds them.
func (r *jobRepository) ReleaseCars(ctx context.Context, carIDs []string) (int64, error) {
	if len(carIDs) == 0 {
		return 0, nil
	}
	query := `
	UPDATE cars SET status = 'available', updated_at = NOW()
	WHERE id = ANY($1) AND status = 'rented'
	AND NOT EXISTS (SELECT 1 FROM bookings b WHERE b.car_id = cars.id AND b.status = 'active')`
	res, err := r.db.ExecContext(ctx, query, pq.Array(carIDs))
	if err != nil {
		return 0, fmt.Errorf("error releasing cars: %w", err)
	}
	return res.RowsAffected()
}

func (r *jobRepository) DeleteExpiredPasswordResets(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("error deleting expired password resets: %w", err)
	}
	return res.RowsAffected()
}
