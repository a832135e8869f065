package entities

import (
	"time"

	"carrental/internal/db"
)

type BookingRequest struct {
	CarID     string    `json:"car_id"`
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
}

type RejectRequest struct {
	Reason string `json:"reason"`
}

type CancelRequest struct {
	Reason string `json:"reason"`
}

type RatingRequest struct {
	Rating int    `json:"rating"`
	Review string `json:"review"`
}

// BookingResponse is returned after a booking is created. CheckoutURL is empty
// when online payment is disabled.
type BookingResponse struct {
	Booking     db.Booking `json:"booking"`
	CheckoutURL string     `json:"checkout_url,omitempty"`
	SessionID   string     `json:"session_id,omitempty"`
}

// CheckoutStatus answers the payment-success page.
type CheckoutStatus struct {
	Booking db.Booking `json:"booking"`
	Payment db.Payment `json:"payment"`
}
