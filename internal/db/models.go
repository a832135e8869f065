package db

import (
	"strings"
	"time"
)

const (
	CarAvailable   = "available"
	CarRented      = "rented"
	CarMaintenance = "maintenance"
	CarUnavailable = "unavailable"
)

const (
	BookingPending   = "pending"
	BookingConfirmed = "confirmed"
	BookingActive    = "active"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
)

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"
)

const (
	PaymentPending   = "pending"
	PaymentSucceeded = "succeeded"
	PaymentRefunded  = "refunded"
	PaymentFailed    = "failed"
)

const (
	ProviderEmail  = "email"
	ProviderGoogle = "google"
)

type Car struct {
	ID                 string    `json:"id"`
	Brand              string    `json:"brand"`
	Model              string    `json:"model"`
	Year               int       `json:"year"`
	PricePerDay        float64   `json:"price_per_day"`
	Type               string    `json:"type"`
	FuelType           string    `json:"fuel_type"`
	Transmission       string    `json:"transmission"`
	Seats              int       `json:"seats"`
	Images             []string  `json:"images"`
	Features           []string  `json:"features"`
	Rating             float64   `json:"rating"`
	Status             string    `json:"status"`
	RegistrationNumber string    `json:"registration_number"`
	Description        string    `json:"description"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasImage reports whether the first image slot holds a usable URL.
func (c Car) HasImage() bool {
	return len(c.Images) > 0 && strings.TrimSpace(c.Images[0]) != ""
}

type CarSummary struct {
	ID     string   `json:"id"`
	Brand  string   `json:"brand"`
	Model  string   `json:"model"`
	Images []string `json:"images"`
}

type UserSummary struct {
	ID       string `json:"id"`
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type Booking struct {
	ID                 string       `json:"id"`
	CarID              string       `json:"car_id"`
	UserID             string       `json:"user_id"`
	StartDate          time.Time    `json:"start_date"`
	EndDate            time.Time    `json:"end_date"`
	TotalPrice         float64      `json:"total_price"`
	Status             string       `json:"status"`
	CancellationReason *string      `json:"cancellation_reason,omitempty"`
	Rating             *int         `json:"rating,omitempty"`
	Review             *string      `json:"review,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Car                *CarSummary  `json:"car,omitempty"`
	User               *UserSummary `json:"user,omitempty"`
}

type Profile struct {
	ID          string    `json:"id"`
	FullName    string    `json:"full_name"`
	Email       string    `json:"email"`
	Role        string    `json:"role"`
	Phone       string    `json:"phone"`
	Address     string    `json:"address"`
	City        string    `json:"city"`
	AvatarURL   string    `json:"avatar_url"`
	KYCVerified bool      `json:"kyc_verified"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (p Profile) IsAdmin() bool {
	return p.Role == RoleAdmin
}

// User holds login credentials. PasswordHash is empty for OAuth-only accounts.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Provider     string
	CreatedAt    time.Time
}

type Payment struct {
	ID                    string    `json:"id"`
	BookingID             string    `json:"booking_id"`
	UserID                string    `json:"user_id"`
	Amount                float64   `json:"amount"`
	Currency              string    `json:"currency"`
	Status                string    `json:"status"`
	StripeSessionID       string    `json:"stripe_session_id,omitempty"`
	StripePaymentIntentID string    `json:"stripe_payment_intent_id,omitempty"`
	CreatedAt             time.Time `json:"created_at"`
}

type PasswordReset struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
