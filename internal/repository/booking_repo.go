package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/lib/pq"

	"carrental/internal/db"
)

// BookingQuery narrows a booking select. Zero values select everything.
type BookingQuery struct {
	UserID string
	Status string
	Limit  int
}

type BookingRepository interface {
	List(ctx context.Context, q BookingQuery) ([]db.Booking, error)
	GetByID(ctx context.Context, id string) (*db.Booking, error)
	Create(ctx context.Context, b *db.Booking) error
	UpdateStatus(ctx context.Context, id, status string, reason *string) error
	SetRating(ctx context.Context, id string, rating int, review *string) error
	CountByStatus(ctx context.Context) (map[string]int, error)
}

type bookingRepository struct {
	db *sql.DB
}

func NewBookingRepository(conn *sql.DB) BookingRepository {
	return &bookingRepository{db: conn}
}

const bookingSelect = `
	SELECT
		b.id, b.car_id, b.user_id, b.start_date, b.end_date, b.total_price, b.status,
		b.cancellation_reason, b.rating, b.review, b.created_at, b.updated_at,
		c.brand, c.model, c.images,
		COALESCE(p.full_name, ''), COALESCE(p.email, u.email), COALESCE(p.phone, '')
	FROM bookings b
	JOIN cars c ON c.id = b.car_id
	JOIN users u ON u.id = b.user_id
	LEFT JOIN profiles p ON p.id = b.user_id`

func scanBooking(row rowScanner) (db.Booking, error) {
	var (
		b      db.Booking
		reason sql.NullString
		rating sql.NullInt64
		review sql.NullString
		images pq.StringArray
		car    db.CarSummary
		user   db.UserSummary
	)
	err := row.Scan(
		&b.ID, &b.CarID, &b.UserID, &b.StartDate, &b.EndDate, &b.TotalPrice, &b.Status,
		&reason, &rating, &review, &b.CreatedAt, &b.UpdatedAt,
		&car.Brand, &car.Model, &images,
		&user.FullName, &user.Email, &user.Phone,
	)
	if err != nil {
		return b, err
	}
	if reason.Valid {
		b.CancellationReason = &reason.String
	}
	if rating.Valid {
		v := int(rating.Int64)
		b.Rating = &v
	}
	if review.Valid {
		b.Review = &review.String
	}
	car.ID, car.Images = b.CarID, []string(images)
	user.ID = b.UserID
	b.Car, b.User = &car, &user
	return b, nil
}

func (r *bookingRepository) List(ctx context.Context, q BookingQuery) ([]db.Booking, error) {
	query := bookingSelect + ` WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if q.UserID != "" {
		query += " AND b.user_id = $" + strconv.Itoa(idx)
		args = append(args, q.UserID)
		idx++
	}
	if q.Status != "" {
		query += " AND b.status = $" + strconv.Itoa(idx)
		args = append(args, q.Status)
		idx++
	}
	query += " ORDER BY b.created_at DESC"
	if q.Limit > 0 {
		query += " LIMIT $" + strconv.Itoa(idx)
		args = append(args, q.Limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing bookings: %w", err)
	}
	defer rows.Close()

	bookings := make([]db.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning booking: %w", err)
		}
		bookings = append(bookings, b)
	}
	return bookings, rows.Err()
}

func (r *bookingRepository) GetByID(ctx context.Context, id string) (*db.Booking, error) {
	b, err := scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("error getting booking %s: %w", id, err)
	}
	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, b *db.Booking) error {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	query := `
	INSERT INTO bookings (id, car_id, user_id, start_date, end_date, total_price, status, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.CarID, b.UserID, b.StartDate, b.EndDate, b.TotalPrice, b.Status, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("error inserting booking: %w", err)
	}
	return nil
}

// UpdateStatus sets status and, when reason is non-nil, the cancellation reason.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id, status string, reason *string) error {
	query := `
	UPDATE bookings
	SET status = $2, cancellation_reason = COALESCE($3, cancellation_reason), updated_at = NOW()
	WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, status, reason)
	if err != nil {
		return fmt.Errorf("error updating booking %s status: %w", id, err)
	}
	return requireAffected(res)
}

func (r *bookingRepository) SetRating(ctx context.Context, id string, rating int, review *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE bookings SET rating = $2, review = $3, updated_at = NOW() WHERE id = $1`,
		id, rating, review,
	)
	if err != nil {
		return fmt.Errorf("error rating booking %s: %w", id, err)
	}
	return requireAffected(res)
}

func (r *bookingRepository) CountByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("error counting bookings: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
