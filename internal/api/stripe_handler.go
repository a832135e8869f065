package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"

	"carrental/internal/logger"
	"carrental/internal/service"
)

const maxWebhookBytes = int64(65536)

type StripeWebhookHandler struct {
	secret   string
	bookings *service.BookingService
	log      logger.ILogger
}

func NewStripeWebhookHandler(secret string, bookings *service.BookingService, log logger.ILogger) *StripeWebhookHandler {
	return &StripeWebhookHandler{secret: secret, bookings: bookings, log: log}
}

func (h *StripeWebhookHandler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxWebhookBytes)
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		h.log.Error("stripe webhook: reading body", logger.Error(err))
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	event, err := webhook.ConstructEvent(payload, r.Header.Get("Stripe-Signature"), h.secret)
	if err != nil {
		h.log.Warning("stripe webhook: signature verification failed", logger.Error(err))
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch event.Type {
	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil || sess.ID == "" {
			h.log.Error("stripe webhook: bad checkout.session payload", logger.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		intentID := ""
		if sess.PaymentIntent != nil {
			intentID = sess.PaymentIntent.ID
		}
		if err := h.bookings.CheckoutCompleted(r.Context(), sess.ID, intentID); err != nil {
			h.log.Error("stripe webhook: recording payment", logger.String("session", sess.ID), logger.Error(err))
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

	case "charge.refunded":
		var charge stripe.Charge
		if err := json.Unmarshal(event.Data.Raw, &charge); err != nil {
			h.log.Error("stripe webhook: bad charge payload", logger.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if charge.PaymentIntent != nil && charge.PaymentIntent.ID != "" {
			if err := h.bookings.PaymentRefunded(r.Context(), charge.PaymentIntent.ID); err != nil {
				h.log.Warning("stripe webhook: refund for unknown payment", logger.String("intent", charge.PaymentIntent.ID), logger.Error(err))
			}
		}

	default:
		h.log.Debug("stripe webhook: unhandled event", logger.String("type", string(event.Type)))
	}

	w.WriteHeader(http.StatusOK)
}
