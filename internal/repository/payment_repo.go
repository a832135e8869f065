package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"carrental/internal/db"
)

type PaymentRepository interface {
	Create(ctx context.Context, p *db.Payment) error
	GetBySessionID(ctx context.Context, sessionID string) (*db.Payment, error)
	GetLatestForBooking(ctx context.Context, bookingID string) (*db.Payment, error)
	UpdateBySessionID(ctx context.Context, sessionID, status, paymentIntentID string) error
	UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID, status string) (*db.Payment, error)
	ListSucceededSince(ctx context.Context, since time.Time) ([]db.Payment, error)
	TotalSucceeded(ctx context.Context) (float64, error)
}

type paymentRepository struct {
	db *sql.DB
}

func NewPaymentRepository(conn *sql.DB) PaymentRepository {
	return &paymentRepository{db: conn}
}

const paymentColumns = `id, booking_id, user_id, amount, currency, status, stripe_session_id, stripe_payment_intent_id, created_at`

func scanPayment(row rowScanner) (db.Payment, error) {
	var p db.Payment
	err := row.Scan(&p.ID, &p.BookingID, &p.UserID, &p.Amount, &p.Currency, &p.Status,
		&p.StripeSessionID, &p.StripePaymentIntentID, &p.CreatedAt)
	return p, err
}

func (r *paymentRepository) Create(ctx context.Context, p *db.Payment) error {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `INSERT INTO payments (`+paymentColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.BookingID, p.UserID, p.Amount, p.Currency, p.Status, p.StripeSessionID, p.StripePaymentIntentID, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("error inserting payment for booking %s: %w", p.BookingID, err)
	}
	return nil
}

func (r *paymentRepository) one(ctx context.Context, query string, args ...any) (*db.Payment, error) {
	p, err := scanPayment(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetBySessionID(ctx context.Context, sessionID string) (*db.Payment, error) {
	return r.one(ctx, `SELECT `+paymentColumns+` FROM payments WHERE stripe_session_id = $1`, sessionID)
}

func (r *paymentRepository) GetLatestForBooking(ctx context.Context, bookingID string) (*db.Payment, error) {
	return r.one(ctx, `SELECT `+paymentColumns+` FROM payments WHERE booking_id = $1 ORDER BY created_at DESC LIMIT 1`, bookingID)
}

func (r *paymentRepository) UpdateBySessionID(ctx context.Context, sessionID, status, paymentIntentID string) error {
	query := `
		UPDATE payments
		SET status = $2, stripe_payment_intent_id = COALESCE(NULLIF($3, ''), stripe_payment_intent_id)
		WHERE stripe_session_id = $1`
	res, err := r.db.ExecContext(ctx, query, sessionID, status, paymentIntentID)
	if err != nil {
		return fmt.Errorf("error updating payment for session %s: %w", sessionID, err)
	}
	return requireAffected(res)
}

func (r *paymentRepository) UpdateStatusByPaymentIntent(ctx context.Context, paymentIntentID, status string) (*db.Payment, error) {
	return r.one(ctx, `UPDATE payments SET status = $2 WHERE stripe_payment_intent_id = $1 RETURNING `+paymentColumns,
		paymentIntentID, status)
}

func (r *paymentRepository) ListSucceededSince(ctx context.Context, since time.Time) ([]db.Payment, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE status = $1 AND created_at >= $2 ORDER BY created_at`,
		db.PaymentSucceeded, since)
	if err != nil {
		return nil, fmt.Errorf("error listing payments: %w", err)
	}
	defer rows.Close()

	payments := make([]db.Payment, 0)
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) TotalSucceeded(ctx context.Context) (float64, error) {
	var total float64
	err := r.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(amount), 0) FROM payments WHERE status = $1`, db.PaymentSucceeded).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("error summing payments: %w", err)
	}
	return total, nil
}
