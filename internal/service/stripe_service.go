package service

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/refund"

	"carrental/internal/config"
)

// PaymentGateway takes customers through a hosted checkout and refunds it.
type PaymentGateway interface {
	CreateCheckoutSession(ctx context.Context, c CheckoutRequest) (url, sessionID string, err error)
	RefundBySessionID(ctx context.Context, sessionID string) error
}

type CheckoutRequest struct {
	BookingID     string
	Amount        int64
	Currency      string
	Description   string
	CustomerEmail string
}

type StripeService struct {
	successURL string
	cancelURL  string
}

func NewStripeService(cfg config.StripeConfig) *StripeService {
	stripe.Key = cfg.SecretKey
	return &StripeService{successURL: cfg.SuccessURL, cancelURL: cfg.CancelURL}
}

func (s *StripeService) CreateCheckoutSession(_ context.Context, c CheckoutRequest) (string, string, error) {
	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(c.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(c.Description),
					},
					UnitAmount: stripe.Int64(c.Amount),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:        stripe.String(s.successURL),
		CancelURL:         stripe.String(s.cancelURL),
		CustomerEmail:     stripe.String(c.CustomerEmail),
		ClientReferenceID: stripe.String(c.BookingID),
	}
	params.AddMetadata("booking_id", c.BookingID)

	sess, err := session.New(params)
	if err != nil {
		return "", "", fmt.Errorf("create checkout session: %w", err)
	}
	return sess.URL, sess.ID, nil
}

func (s *StripeService) RefundBySessionID(_ context.Context, sessionID string) error {
	sess, err := session.Get(sessionID, nil)
	if err != nil {
		return err
	}
	if sess.PaymentIntent == nil || sess.PaymentIntent.ID == "" {
		return fmt.Errorf("no payment intent found for session %s", sessionID)
	}
	_, err = refund.New(&stripe.RefundParams{
		PaymentIntent: stripe.String(sess.PaymentIntent.ID),
	})
	return err
}
