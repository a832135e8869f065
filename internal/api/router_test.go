package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/service"
	"carrental/internal/socket"
	"carrental/internal/storage"
)

type stubCars struct {
	repository.CarRepository
	mu   sync.Mutex
	cars []db.Car
}

func (s *stubCars) List(context.Context, repository.CarQuery) ([]db.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Car{}, s.cars...), nil
}

func (s *stubCars) GetByID(_ context.Context, id string) (*db.Car, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.cars {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubCars) DeleteByIDs(_ context.Context, ids []string) (repository.DeletedCars, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kept, deleted []db.Car
	for _, c := range s.cars {
		if c.ID == ids[0] {
			deleted = append(deleted, c)
		} else {
			kept = append(kept, c)
		}
	}
	s.cars = kept
	return repository.DeletedCars{Cars: deleted}, nil
}

func (s *stubCars) Count(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cars), nil
}

type stubBookings struct {
	repository.BookingRepository
	mu       sync.Mutex
	bookings []db.Booking
	updates  int
}

func (s *stubBookings) List(context.Context, repository.BookingQuery) ([]db.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]db.Booking{}, s.bookings...), nil
}

func (s *stubBookings) GetByID(_ context.Context, id string) (*db.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.bookings {
		if b.ID == id {
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *stubBookings) UpdateStatus(_ context.Context, id, status string, reason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	for i := range s.bookings {
		if s.bookings[i].ID == id {
			s.bookings[i].Status = status
			s.bookings[i].CancellationReason = reason
		}
	}
	return nil
}

func (s *stubBookings) CountByStatus(context.Context) (map[string]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := map[string]int{}
	for _, b := range s.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

type stubPayments struct {
	repository.PaymentRepository
}

func (stubPayments) ListSucceededSince(context.Context, time.Time) ([]db.Payment, error) {
	return []db.Payment{{Amount: 4200, Status: db.PaymentSucceeded, CreatedAt: time.Now()}}, nil
}

func (stubPayments) TotalSucceeded(context.Context) (float64, error) { return 4200, nil }

type stubProfiles struct {
	repository.ProfileRepository
}

func (stubProfiles) CountByRole(context.Context, string) (int, error) { return 1, nil }

func (stubProfiles) List(context.Context) ([]db.Profile, error) {
	return []db.Profile{{ID: "u1", FullName: "Asha", Role: db.RoleCustomer}}, nil
}

const (
	carOne = "0b8f1e52-5d3c-4a6e-8f7a-1c2d3e4f5a6b"
	carTwo = "1c9a2f63-6e4d-4b7f-9a8b-2d3e4f5a6b7c"

	bookingOne = "9d2e4f60-1a3b-4c5d-8e6f-7a8b9c0d1e2f"
	bookingTwo = "ae3f5071-2b4c-4d6e-9f70-8b9c0d1e2f30"
)

type testServer struct {
	handler  http.Handler
	issuer   *auth.Issuer
	cars     *stubCars
	bookings *stubBookings
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	qc := cache.NewQueryCache(cache.NewMemoryStore(), time.Minute, log)
	issuer := auth.NewIssuer("router-test-secret", time.Hour)

	cars := &stubCars{cars: []db.Car{
		{ID: carOne, Brand: "Toyota", Model: "Camry", Status: db.CarAvailable, PricePerDay: 2500},
		{ID: carTwo, Brand: "BMW", Model: "X5", Status: db.CarAvailable, PricePerDay: 9000},
	}}
	bookings := &stubBookings{bookings: []db.Booking{
		{ID: bookingOne, CarID: carOne, UserID: "u1", Status: db.BookingPending},
		{ID: bookingTwo, CarID: carTwo, UserID: "u1", Status: db.BookingCompleted},
	}}
	payments := stubPayments{}
	profiles := stubProfiles{}

	notifier := service.NewSenderService("DriveEase", service.NewLogMailer(log), service.NewLogSMS(log), log)
	carSvc := service.NewCarService(cars, storage.Disabled{}, storage.NewProber(), qc, log)
	bookingSvc := service.NewBookingService(bookings, cars, payments, nil, notifier, qc, log, "inr")
	authSvc := service.NewAuthService(nil, profiles, issuer, notifier, qc, log, "http://localhost")
	adminSvc := service.NewAdminService(cars, bookings, profiles, payments, qc)
	reportSvc := service.NewReportService(payments, bookings, qc)

	h := Handlers{
		Auth:     NewAuthHandler(authSvc, log),
		Cars:     NewCarHandler(carSvc, log),
		Bookings: NewUserBookingHandler(bookingSvc, log),
		Profile:  NewProfileHandler(service.NewProfileService(profiles, carSvc, qc), log),
		Admin:    NewAdminHandler(bookingSvc, adminSvc, reportSvc, log),
		Stripe:   NewStripeWebhookHandler("whsec_test", bookingSvc, log),
		Socket:   NewWebSocketHandler(socket.NewHub(log), []string{"*"}, log),
		Health:   Health(func(context.Context) error { return nil }),
	}
	return &testServer{
		handler:  NewRouter(h, issuer, []string{"*"}, log),
		issuer:   issuer,
		cars:     cars,
		bookings: bookings,
	}
}

func (s *testServer) token(t *testing.T, role string) string {
	t.Helper()
	tok, _, err := s.issuer.Issue("u-"+role, role+"@rent.test", role)
	require.NoError(t, err)
	return tok
}

func (s *testServer) do(t *testing.T, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func errorBody(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "deny", rec.Header().Get("X-Frame-Options"))
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/admin/dashboard", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/dashboard", "not-a-jwt", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/dashboard", s.token(t, db.RoleCustomer), "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/dashboard", s.token(t, db.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 2, stats["total_cars"])
}

func TestPublicCarsNeedNoToken(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/api/cars?min_price=5000&seats=abc", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cars []db.Car
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
	require.Len(t, cars, 1)
	assert.Equal(t, carTwo, cars[0].ID)

	rec = s.do(t, http.MethodGet, "/api/cars/missing", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "car not found", errorBody(t, rec))
}

func TestRejectWithoutReason(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, db.RoleAdmin)

	rec := s.do(t, http.MethodPost, "/admin/bookings/"+bookingOne+"/reject", admin, `{"reason":"  "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, errorBody(t, rec))
	assert.Zero(t, s.bookings.updates)

	rec = s.do(t, http.MethodPost, "/admin/bookings/"+bookingOne+"/reject", admin, `{"reason":"no licence"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, s.bookings.updates)

	var b db.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &b))
	assert.Equal(t, db.BookingCancelled, b.Status)
	require.NotNil(t, b.CancellationReason)
	assert.Equal(t, "no licence", *b.CancellationReason)
}

func TestAdminBookingStatusFilter(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/admin/bookings?status=completed", s.token(t, db.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	var bookings []db.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bookings))
	require.Len(t, bookings, 1)
	assert.Equal(t, bookingTwo, bookings[0].ID)
}

func TestCarSearchParam(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, db.RoleAdmin)

	tests := []struct {
		path  string
		token string
		want  []string
	}{
		{"/admin/cars?q=toyota", admin, []string{carOne}},
		{"/admin/cars?search=bmw", admin, []string{carTwo}},
		{"/admin/cars?q=", admin, []string{carOne, carTwo}},
		{"/api/cars?q=CAMRY", "", []string{carOne}},
		{"/api/cars?q=tesla", "", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			rec := s.do(t, http.MethodGet, tt.path, tt.token, "")
			require.Equal(t, http.StatusOK, rec.Code)
			var cars []db.Car
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
			got := make([]string, 0, len(cars))
			for _, c := range cars {
				got = append(got, c.ID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMalformedIDsAreNotFound(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/bookings/abc/cancel", s.token(t, db.RoleCustomer), "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(t, http.MethodGet, "/api/cars/xyz", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, s.bookings.updates)
}

func TestDeleteCarThenList(t *testing.T) {
	s := newTestServer(t)
	admin := s.token(t, db.RoleAdmin)

	rec := s.do(t, http.MethodGet, "/admin/cars", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodDelete, "/admin/cars/"+carOne, admin, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodGet, "/admin/cars", admin, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var cars []db.Car
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &cars))
	require.Len(t, cars, 1)
	assert.Equal(t, carTwo, cars[0].ID)

	rec = s.do(t, http.MethodDelete, "/admin/cars/"+carOne, admin, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestExportReports(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodGet, "/admin/reports/export", s.token(t, db.RoleAdmin), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Regexp(t, regexp.MustCompile(`^attachment; filename="reports_\d{4}-\d{2}-\d{2}\.csv"$`), rec.Header().Get("Content-Disposition"))

	lines := strings.Split(rec.Body.String(), "\n")
	// header, six months, separator, two statuses
	assert.Len(t, lines, 1+6+1+2)
	assert.Equal(t, "Month,Revenue,Bookings,Status", lines[0])
	assert.Equal(t, "---,---,---,---", lines[7])
}

func TestInvalidBody(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/auth/login", "", `{"email":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", errorBody(t, rec))
}

func TestBookingValidationBeforeWrite(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/bookings", s.token(t, db.RoleCustomer),
		`{"car_id":"`+carOne+`","start_date":"2026-03-05T00:00:00Z","end_date":"2026-03-01T00:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/stripe/webhook", bytes.NewReader([]byte(`{"type":"checkout.session.completed"}`)))
	req.Header.Set("Stripe-Signature", "t=1,v1=deadbeef")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/nope", "", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not found", errorBody(t, rec))
}
