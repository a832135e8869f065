package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"carrental/internal/entities"
	"carrental/internal/filter"
	"carrental/internal/logger"
	"carrental/internal/service"
)

// AdminHandler serves the back-office pages other than fleet management.
type AdminHandler struct {
	bookings *service.BookingService
	admin    *service.AdminService
	reports  *service.ReportService
	log      logger.ILogger
}

func NewAdminHandler(bookings *service.BookingService, admin *service.AdminService, reports *service.ReportService, log logger.ILogger) *AdminHandler {
	return &AdminHandler{bookings: bookings, admin: admin, reports: reports, log: log}
}

func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Dashboard(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	bookings, err := h.bookings.ListAdmin(r.Context(), filter.Bookings{
		Search: searchTerm(q),
		Status: q.Get("status"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, bookings)
}

func (h *AdminHandler) ApproveBooking(w http.ResponseWriter, r *http.Request) {
	b, err := h.bookings.Approve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) RejectBooking(w http.ResponseWriter, r *http.Request) {
	var req entities.RejectRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, h.log, err)
		return
	}
	b, err := h.bookings.Reject(r.Context(), mux.Vars(r)["id"], req.Reason)
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	users, err := h.admin.Users(r.Context(), filter.Users{
		Search: searchTerm(q),
		Role:   q.Get("role"),
	})
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AdminHandler) Reports(w http.ResponseWriter, r *http.Request) {
	report, err := h.reports.Report(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *AdminHandler) ExportReports(w http.ResponseWriter, r *http.Request) {
	filename, body, err := h.reports.Export(r.Context())
	if err != nil {
		writeError(w, r, h.log, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
