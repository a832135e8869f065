package service

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/logger"
	"carrental/internal/repository"
)

func newTestCache() *cache.QueryCache {
	return cache.NewQueryCache(cache.NewMemoryStore(), time.Minute, logger.Nop())
}

type fakeCarRepo struct {
	mu        sync.Mutex
	cars      []db.Car
	listCalls int
	deleteErr error
	// bookers maps a car id to the users holding bookings on it
	bookers map[string][]string
}

func (f *fakeCarRepo) List(_ context.Context, q repository.CarQuery) ([]db.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listCalls++
	out := make([]db.Car, 0)
	for _, c := range f.cars {
		if q.Status != "" && c.Status != q.Status {
			continue
		}
		out = append(out, c)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeCarRepo) GetByID(_ context.Context, id string) (*db.Car, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cars {
		if c.ID == id {
			c := c
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeCarRepo) Create(_ context.Context, car *db.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cars = append([]db.Car{*car}, f.cars...)
	return nil
}

func (f *fakeCarRepo) Update(_ context.Context, car *db.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.cars {
		if f.cars[i].ID == car.ID {
			f.cars[i] = *car
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeCarRepo) DeleteByIDs(_ context.Context, ids []string) (repository.DeletedCars, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return repository.DeletedCars{}, f.deleteErr
	}
	out := repository.DeletedCars{}
	target := map[string]bool{}
	for _, id := range ids {
		target[id] = true
	}
	var kept, deleted []db.Car
	for _, c := range f.cars {
		if target[c.ID] {
			deleted = append(deleted, c)
			out.BookingUserIDs = append(out.BookingUserIDs, f.bookers[c.ID]...)
		} else {
			kept = append(kept, c)
		}
	}
	f.cars = kept
	out.Cars = deleted
	return out, nil
}

func (f *fakeCarRepo) InsertMany(_ context.Context, cars []db.Car) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cars = append(append([]db.Car{}, cars...), f.cars...)
	return nil
}

func (f *fakeCarRepo) Count(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.cars), nil
}

type statusUpdate struct {
	ID     string
	Status string
	Reason *string
}

type fakeBookingRepo struct {
	mu       sync.Mutex
	bookings []db.Booking
	updates  []statusUpdate
	ratings  int
}

func (f *fakeBookingRepo) List(_ context.Context, q repository.BookingQuery) ([]db.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.Booking, 0)
	for _, b := range f.bookings {
		if q.UserID != "" && b.UserID != q.UserID {
			continue
		}
		if q.Status != "" && b.Status != q.Status {
			continue
		}
		out = append(out, b)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (f *fakeBookingRepo) GetByID(_ context.Context, id string) (*db.Booking, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, b := range f.bookings {
		if b.ID == id {
			b := b
			return &b, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeBookingRepo) Create(_ context.Context, b *db.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	b.CreatedAt = time.Now()
	f.bookings = append([]db.Booking{*b}, f.bookings...)
	return nil
}

func (f *fakeBookingRepo) UpdateStatus(_ context.Context, id, status string, reason *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, statusUpdate{ID: id, Status: status, Reason: reason})
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Status = status
			if reason != nil {
				f.bookings[i].CancellationReason = reason
			}
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBookingRepo) SetRating(_ context.Context, id string, rating int, review *string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ratings++
	for i := range f.bookings {
		if f.bookings[i].ID == id {
			f.bookings[i].Rating, f.bookings[i].Review = &rating, review
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakeBookingRepo) CountByStatus(context.Context) (map[string]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	counts := map[string]int{}
	for _, b := range f.bookings {
		counts[b.Status]++
	}
	return counts, nil
}

type fakePaymentRepo struct {
	mu       sync.Mutex
	payments []db.Payment
}

func (f *fakePaymentRepo) Create(_ context.Context, p *db.Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.payments = append(f.payments, *p)
	return nil
}

func (f *fakePaymentRepo) find(match func(db.Payment) bool) (*db.Payment, error) {
	for i := len(f.payments) - 1; i >= 0; i-- {
		if match(f.payments[i]) {
			p := f.payments[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePaymentRepo) GetBySessionID(_ context.Context, sessionID string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(p db.Payment) bool { return p.StripeSessionID == sessionID })
}

func (f *fakePaymentRepo) GetLatestForBooking(_ context.Context, bookingID string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.find(func(p db.Payment) bool { return p.BookingID == bookingID })
}

func (f *fakePaymentRepo) UpdateBySessionID(_ context.Context, sessionID, status, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payments {
		if f.payments[i].StripeSessionID == sessionID {
			f.payments[i].Status = status
			f.payments[i].StripePaymentIntentID = intentID
			return nil
		}
	}
	return repository.ErrNotFound
}

func (f *fakePaymentRepo) UpdateStatusByPaymentIntent(_ context.Context, intentID, status string) (*db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.payments {
		if f.payments[i].StripePaymentIntentID == intentID {
			f.payments[i].Status = status
			p := f.payments[i]
			return &p, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakePaymentRepo) ListSucceededSince(_ context.Context, since time.Time) ([]db.Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.Payment, 0)
	for _, p := range f.payments {
		if p.Status == db.PaymentSucceeded && !p.CreatedAt.Before(since) {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (f *fakePaymentRepo) TotalSucceeded(context.Context) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, p := range f.payments {
		if p.Status == db.PaymentSucceeded {
			total += p.Amount
		}
	}
	return total, nil
}

type fakeProfileRepo struct {
	mu       sync.Mutex
	profiles map[string]db.Profile
}

func newFakeProfileRepo(profiles ...db.Profile) *fakeProfileRepo {
	f := &fakeProfileRepo{profiles: map[string]db.Profile{}}
	for _, p := range profiles {
		f.profiles[p.ID] = p
	}
	return f
}

func (f *fakeProfileRepo) GetByID(_ context.Context, id string) (*db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (f *fakeProfileRepo) Upsert(_ context.Context, p *db.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if existing, ok := f.profiles[p.ID]; ok {
		p.Role = existing.Role
	}
	f.profiles[p.ID] = *p
	return nil
}

func (f *fakeProfileRepo) SetAvatar(_ context.Context, id, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.AvatarURL = url
	f.profiles[id] = p
	return nil
}

func (f *fakeProfileRepo) List(context.Context) ([]db.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]db.Profile, 0, len(f.profiles))
	for _, p := range f.profiles {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FullName < out[j].FullName })
	return out, nil
}

func (f *fakeProfileRepo) CountByRole(_ context.Context, role string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.profiles {
		if p.Role == role {
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	mu       sync.Mutex
	users    map[string]db.User
	resets   map[string]db.PasswordReset
	profiles *fakeProfileRepo
}

func newFakeUserRepo(profiles *fakeProfileRepo) *fakeUserRepo {
	return &fakeUserRepo{users: map[string]db.User{}, resets: map[string]db.PasswordReset{}, profiles: profiles}
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			u := u
			return &u, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (f *fakeUserRepo) CreateWithProfile(ctx context.Context, user *db.User, profile *db.Profile) error {
	f.mu.Lock()
	for _, u := range f.users {
		if u.Email == user.Email {
			f.mu.Unlock()
			return repository.ErrEmailTaken
		}
	}
	f.users[user.ID] = *user
	f.mu.Unlock()
	profile.ID = user.ID
	return f.profiles.Upsert(ctx, profile)
}

func (f *fakeUserRepo) UpdatePassword(_ context.Context, userID, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.users[userID]
	if !ok {
		return repository.ErrNotFound
	}
	u.PasswordHash = hash
	f.users[userID] = u
	return nil
}

func (f *fakeUserRepo) CreatePasswordReset(_ context.Context, r db.PasswordReset) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets[r.Token] = r
	return nil
}

func (f *fakeUserRepo) ConsumePasswordReset(_ context.Context, token string, now time.Time) (*db.PasswordReset, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.resets[token]
	delete(f.resets, token)
	if !ok || !now.Before(r.ExpiresAt) {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	changed []db.Booking
	resets  []string
}

func (f *fakeNotifier) BookingStatusChanged(b db.Booking) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.changed = append(f.changed, b)
}

func (f *fakeNotifier) PasswordReset(email, _, link string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets = append(f.resets, link)
}

type fakeImages struct {
	mu        sync.Mutex
	deleted   []string
	uploaded  []string
	deleteErr error
}

func (f *fakeImages) Upload(_ context.Context, key, _ string, body io.Reader) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	f.uploaded = append(f.uploaded, key)
	return "https://cdn.test/" + key, nil
}

func (f *fakeImages) Delete(_ context.Context, urls ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, urls...)
	return f.deleteErr
}

type fakeProber struct{ broken map[string]bool }

func (f fakeProber) Broken(context.Context, []string) map[string]bool { return f.broken }

type fakeGateway struct {
	mu       sync.Mutex
	sessions []CheckoutRequest
	refunds  []string
	err      error
}

func (f *fakeGateway) CreateCheckoutSession(_ context.Context, c CheckoutRequest) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", "", f.err
	}
	f.sessions = append(f.sessions, c)
	return "https://checkout.test/" + c.BookingID, "cs_" + c.BookingID, nil
}

func (f *fakeGateway) RefundBySessionID(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.refunds = append(f.refunds, sessionID)
	return nil
}

var errBoom = errors.New("boom")
