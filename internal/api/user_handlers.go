package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"carrental/internal/entities"
	"carrental/internal/logger"
	"carrental/internal/service"
)

// UserBookingHandler serves a signed-in customer's own bookings.
type UserBookingHandler struct {
	service *service.BookingService
	log     logger.ILogger
}

func NewUserBookingHandler(svc *service.BookingService, log logger.ILogger) *UserBookingHandler {
	return &UserBookingHandler{service: svc, log: log}
}

func (h *UserBookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req entities.BookingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	c := claims(r)
	resp, err := h.service.Create(r.Context(), c.UserID, c.Email, req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func (h *UserBookingHandler) List(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListMine(r.Context(), claims(r).UserID)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

// CheckoutStatus backs the payment-success page.
func (h *UserBookingHandler) CheckoutStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.service.CheckoutStatus(r.Context(), claims(r).UserID, r.URL.Query().Get("session_id"))
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *UserBookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var req entities.CancelRequest
	if r.ContentLength > 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, h.log, err)
			return
		}
	}
	b, err := h.service.Cancel(r.Context(), claims(r).UserID, mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *UserBookingHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var req entities.RatingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	b, err := h.service.Rate(r.Context(), claims(r).UserID, mux.Vars(r)["id"], req)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}
