package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/justinas/alice"

	"carrental/internal/auth"
	"carrental/internal/db"
	"carrental/internal/logger"
)

// Handlers groups everything the router mounts.
type Handlers struct {
	Auth     *AuthHandler
	Cars     *CarHandler
	Bookings *UserBookingHandler
	Profile  *ProfileHandler
	Admin    *AdminHandler
	Stripe   *StripeWebhookHandler // nil when online payment is disabled
	Socket   *WebSocketHandler
	Health   http.HandlerFunc
}

// Health reports 200 while ping succeeds.
func Health(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := ping(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func NewRouter(h Handlers, issuer *auth.Issuer, allowedOrigins []string, log logger.ILogger) http.Handler {
	m := middleware{log: log}
	standard := alice.New(m.recoverPanic, m.logRequest, secureHeaders, makeResponseJSON)
	authed := standard.Append(auth.Authenticate(issuer))
	admin := authed.Append(auth.Authorize(db.RoleAdmin))

	r := mux.NewRouter()
	r.NotFoundHandler = standard.ThenFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	})

	r.Handle("/healthz", standard.Then(h.Health)).Methods(http.MethodGet)

	// Public endpoints
	r.Handle("/api/auth/signup", standard.ThenFunc(h.Auth.SignUp)).Methods(http.MethodPost)
	r.Handle("/api/auth/login", standard.ThenFunc(h.Auth.Login)).Methods(http.MethodPost)
	r.Handle("/api/auth/forgot-password", standard.ThenFunc(h.Auth.ForgotPassword)).Methods(http.MethodPost)
	r.Handle("/api/auth/reset-password", standard.ThenFunc(h.Auth.ResetPassword)).Methods(http.MethodPost)
	r.Handle("/api/auth/oauth/google", standard.ThenFunc(h.Auth.GoogleLogin)).Methods(http.MethodGet)
	r.Handle("/api/auth/oauth/google/callback", standard.ThenFunc(h.Auth.GoogleCallback)).Methods(http.MethodGet)
	r.Handle("/api/cars", standard.ThenFunc(h.Cars.ListPublic)).Methods(http.MethodGet)
	r.Handle("/api/cars/featured", standard.ThenFunc(h.Cars.Featured)).Methods(http.MethodGet)
	r.Handle("/api/cars/{id}", standard.ThenFunc(h.Cars.Get)).Methods(http.MethodGet)
	if h.Stripe != nil {
		r.Handle("/api/stripe/webhook", standard.ThenFunc(h.Stripe.HandleWebhook)).Methods(http.MethodPost)
	}

	// Signed-in customers and admins
	r.Handle("/api/auth/session", authed.ThenFunc(h.Auth.Session)).Methods(http.MethodGet)
	r.Handle("/api/auth/password", authed.ThenFunc(h.Auth.UpdatePassword)).Methods(http.MethodPut)
	r.Handle("/api/profile", authed.ThenFunc(h.Profile.Get)).Methods(http.MethodGet)
	r.Handle("/api/profile", authed.ThenFunc(h.Profile.Update)).Methods(http.MethodPut)
	r.Handle("/api/profile/avatar", authed.ThenFunc(h.Profile.UploadAvatar)).Methods(http.MethodPost)
	r.Handle("/api/bookings", authed.ThenFunc(h.Bookings.Create)).Methods(http.MethodPost)
	r.Handle("/api/bookings", authed.ThenFunc(h.Bookings.List)).Methods(http.MethodGet)
	r.Handle("/api/bookings/checkout", authed.ThenFunc(h.Bookings.CheckoutStatus)).Methods(http.MethodGet)
	r.Handle("/api/bookings/{id}/cancel", authed.ThenFunc(h.Bookings.Cancel)).Methods(http.MethodPost)
	r.Handle("/api/bookings/{id}/rating", authed.ThenFunc(h.Bookings.Rate)).Methods(http.MethodPost)
	r.Handle("/api/ws", authed.ThenFunc(h.Socket.ServeWs)).Methods(http.MethodGet)

	// Admin endpoints (protected)
	r.Handle("/admin/dashboard", admin.ThenFunc(h.Admin.Dashboard)).Methods(http.MethodGet)
	r.Handle("/admin/cars", admin.ThenFunc(h.Cars.ListAdmin)).Methods(http.MethodGet)
	r.Handle("/admin/cars", admin.ThenFunc(h.Cars.Create)).Methods(http.MethodPost)
	r.Handle("/admin/cars/bulk-delete", admin.ThenFunc(h.Cars.BulkDelete)).Methods(http.MethodPost)
	r.Handle("/admin/cars/seed", admin.ThenFunc(h.Cars.Seed)).Methods(http.MethodPost)
	r.Handle("/admin/cars/images", admin.ThenFunc(h.Cars.UploadImage)).Methods(http.MethodPost)
	r.Handle("/admin/cars/{id}", admin.ThenFunc(h.Cars.Get)).Methods(http.MethodGet)
	r.Handle("/admin/cars/{id}", admin.ThenFunc(h.Cars.Update)).Methods(http.MethodPut)
	r.Handle("/admin/cars/{id}", admin.ThenFunc(h.Cars.Delete)).Methods(http.MethodDelete)
	r.Handle("/admin/bookings", admin.ThenFunc(h.Admin.ListBookings)).Methods(http.MethodGet)
	r.Handle("/admin/bookings/{id}/approve", admin.ThenFunc(h.Admin.ApproveBooking)).Methods(http.MethodPost)
	r.Handle("/admin/bookings/{id}/reject", admin.ThenFunc(h.Admin.RejectBooking)).Methods(http.MethodPost)
	r.Handle("/admin/users", admin.ThenFunc(h.Admin.ListUsers)).Methods(http.MethodGet)
	r.Handle("/admin/reports", admin.ThenFunc(h.Admin.Reports)).Methods(http.MethodGet)
	r.Handle("/admin/reports/export", admin.ThenFunc(h.Admin.ExportReports)).Methods(http.MethodGet)

	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Authorization", "Content-Type"}),
		handlers.ExposedHeaders([]string{"Content-Disposition"}),
		handlers.AllowCredentials(),
	)(r)
}
