package service

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/filter"
	"carrental/internal/logger"
	"carrental/internal/storage"
)

const (
	carA = "0b8f1e52-5d3c-4a6e-8f7a-1c2d3e4f5a6b"
	carB = "1c9a2f63-6e4d-4b7f-9a8b-2d3e4f5a6b7c"
	carC = "2dab3074-7f5e-4c80-8b9c-3e4f5a6b7c8d"
)

type carFixture struct {
	svc    *CarService
	repo   *fakeCarRepo
	images *fakeImages
}

func newCarFixture(broken map[string]bool) *carFixture {
	f := &carFixture{
		repo: &fakeCarRepo{cars: []db.Car{
			{ID: carA, Brand: "Toyota", Model: "Camry", Type: "sedan", Status: db.CarAvailable, PricePerDay: 2500, Seats: 5, Images: []string{"https://cdn.test/a.jpg"}},
			{ID: carB, Brand: "BMW", Model: "X5", Type: "suv", Status: db.CarRented, PricePerDay: 9000, Seats: 5, Images: []string{"https://cdn.test/b.jpg"}},
			{ID: carC, Brand: "Tesla", Model: "Model 3", Type: "electric", Status: db.CarAvailable, PricePerDay: 7000, Seats: 5, Images: []string{" "}},
		}},
		images: &fakeImages{},
	}
	f.svc = NewCarService(f.repo, f.images, fakeProber{broken: broken}, newTestCache(), logger.Nop())
	return f
}

func ids(cars []db.Car) []string {
	out := make([]string, 0, len(cars))
	for _, c := range cars {
		out = append(out, c.ID)
	}
	return out
}

func validCarRequest() entities.CarRequest {
	return entities.CarRequest{
		Brand:              " Honda ",
		Model:              "City",
		Year:               2023,
		PricePerDay:        3200,
		Type:               "Sedan",
		FuelType:           "PETROL",
		Transmission:       "manual",
		Seats:              5,
		Images:             []string{"https://cdn.test/city.jpg", "  "},
		Features:           []string{"Bluetooth", ""},
		Rating:             4.2,
		RegistrationNumber: "mh01ab1234",
	}
}

func TestDeleteRemovesOnlyTargetFromAdminList(t *testing.T) {
	ctx := context.Background()
	f := newCarFixture(nil)

	before, err := f.svc.ListAdmin(ctx, filter.AdminCars{})
	require.NoError(t, err)
	assert.Equal(t, []string{carA, carB, carC}, ids(before))

	deleted, err := f.svc.Delete(ctx, []string{carB})
	require.NoError(t, err)
	assert.Equal(t, []string{carB}, deleted)

	after, err := f.svc.ListAdmin(ctx, filter.AdminCars{})
	require.NoError(t, err)
	assert.Equal(t, []string{carA, carC}, ids(after))
	assert.Equal(t, []string{"https://cdn.test/b.jpg"}, f.images.deleted)
}

type keyRecorder struct {
	mu   sync.Mutex
	keys []string
}

func (k *keyRecorder) Invalidated(keys []string) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.keys = append(k.keys, keys...)
}

func TestDeleteInvalidatesCascadedBookings(t *testing.T) {
	ctx := context.Background()
	f := newCarFixture(nil)
	f.repo.bookers = map[string][]string{carB: {"user-1", "user-2"}}
	rec := &keyRecorder{}
	f.svc.cache.Subscribe(rec)

	_, err := f.svc.Delete(ctx, []string{carA})
	require.NoError(t, err)
	assert.NotContains(t, rec.keys, cache.AdminBookings)
	assert.NotContains(t, rec.keys, cache.ReportsRevenue)

	rec.keys = nil
	_, err = f.svc.Delete(ctx, []string{carB})
	require.NoError(t, err)
	for _, key := range []string{
		cache.AdminCars, cache.Car(carB), cache.AdminBookings, cache.ReportsBookings,
		cache.ReportsRevenue, cache.MyBookings("user-1"), cache.MyBookings("user-2"),
	} {
		assert.Contains(t, rec.keys, key)
	}
}

func TestDeleteSurvivesImageCleanupFailure(t *testing.T) {
	f := newCarFixture(nil)
	f.images.deleteErr = errBoom

	deleted, err := f.svc.Delete(context.Background(), []string{carA, carC})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{carA, carC}, deleted)
	assert.Len(t, f.repo.cars, 1)
}

func TestDeleteValidatesIDs(t *testing.T) {
	f := newCarFixture(nil)

	_, err := f.svc.Delete(context.Background(), nil)
	assert.True(t, apperr.IsValidation(err))

	_, err = f.svc.Delete(context.Background(), []string{carA, "not-a-uuid"})
	assert.True(t, apperr.IsValidation(err))
	assert.Len(t, f.repo.cars, 3)
}

func TestDeleteReportsRepositoryError(t *testing.T) {
	f := newCarFixture(nil)
	f.repo.deleteErr = errBoom

	_, err := f.svc.Delete(context.Background(), []string{carA})
	assert.ErrorIs(t, err, errBoom)
	assert.Empty(t, f.images.deleted)
}

func TestListAdminFilters(t *testing.T) {
	ctx := context.Background()
	f := newCarFixture(map[string]bool{"https://cdn.test/b.jpg": true})

	tests := []struct {
		name   string
		filter filter.AdminCars
		want   []string
	}{
		{"search", filter.AdminCars{Search: "tes"}, []string{carC}},
		{"status", filter.AdminCars{Status: db.CarRented}, []string{carB}},
		{"status all", filter.AdminCars{Status: "all"}, []string{carA, carB, carC}},
		{"type", filter.AdminCars{Type: "sedan"}, []string{carA}},
		{"with images", filter.AdminCars{Media: filter.MediaWithImages}, []string{carA, carB}},
		{"no images", filter.AdminCars{Media: filter.MediaNoImages}, []string{carC}},
		{"broken", filter.AdminCars{Media: filter.MediaBroken}, []string{carB}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.ListAdmin(ctx, tt.filter)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(got))
		})
	}
	assert.Equal(t, 1, f.repo.listCalls)
}

func TestListPublicOnlyAvailable(t *testing.T) {
	f := newCarFixture(nil)

	got, err := f.svc.ListPublic(context.Background(), filter.PublicCars{})
	require.NoError(t, err)
	assert.Equal(t, []string{carA, carC}, ids(got))

	got, err = f.svc.ListPublic(context.Background(), filter.PublicCars{MinPrice: 5000})
	require.NoError(t, err)
	assert.Equal(t, []string{carC}, ids(got))
}

func TestCreateNormalisesCar(t *testing.T) {
	ctx := context.Background()
	f := newCarFixture(nil)

	_, err := f.svc.ListPublic(ctx, filter.PublicCars{})
	require.NoError(t, err)

	car, err := f.svc.Create(ctx, validCarRequest())
	require.NoError(t, err)
	assert.NotEmpty(t, car.ID)
	assert.Equal(t, "Honda", car.Brand)
	assert.Equal(t, "sedan", car.Type)
	assert.Equal(t, "petrol", car.FuelType)
	assert.Equal(t, db.CarAvailable, car.Status)
	assert.Equal(t, "MH01AB1234", car.RegistrationNumber)
	assert.Equal(t, []string{"https://cdn.test/city.jpg"}, car.Images)
	assert.Equal(t, []string{"Bluetooth"}, car.Features)

	public, err := f.svc.ListPublic(ctx, filter.PublicCars{Brand: "honda"})
	require.NoError(t, err)
	assert.Equal(t, []string{car.ID}, ids(public))
}

func TestCreateRejectsInvalidCar(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*entities.CarRequest)
	}{
		{"no brand", func(r *entities.CarRequest) { r.Brand = " " }},
		{"old year", func(r *entities.CarRequest) { r.Year = 1950 }},
		{"free", func(r *entities.CarRequest) { r.PricePerDay = 0 }},
		{"no seats", func(r *entities.CarRequest) { r.Seats = 0 }},
		{"rating", func(r *entities.CarRequest) { r.Rating = 5.5 }},
		{"type", func(r *entities.CarRequest) { r.Type = "tank" }},
		{"fuel", func(r *entities.CarRequest) { r.FuelType = "coal" }},
		{"transmission", func(r *entities.CarRequest) { r.Transmission = "cvt" }},
		{"status", func(r *entities.CarRequest) { r.Status = "stolen" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newCarFixture(nil)
			req := validCarRequest()
			tt.mutate(&req)
			_, err := f.svc.Create(context.Background(), req)
			assert.True(t, apperr.IsValidation(err))
			assert.Len(t, f.repo.cars, 3)
		})
	}
}

func TestUpdateUnknownCar(t *testing.T) {
	f := newCarFixture(nil)
	for _, id := range []string{"3ebc4185-8a6f-4d91-9cad-4f5a6b7c8d9e", "xyz"} {
		_, err := f.svc.Update(context.Background(), id, validCarRequest())
		code, _ := apperr.StatusOf(err)
		assert.Equal(t, http.StatusNotFound, code, id)
	}
	assert.Len(t, f.repo.cars, 3)
}

func TestGetCachesCar(t *testing.T) {
	ctx := context.Background()
	f := newCarFixture(nil)

	car, err := f.svc.Get(ctx, carA)
	require.NoError(t, err)
	assert.Equal(t, "Camry", car.Model)

	req := validCarRequest()
	_, err = f.svc.Update(ctx, carA, req)
	require.NoError(t, err)

	car, err = f.svc.Get(ctx, carA)
	require.NoError(t, err)
	assert.Equal(t, "City", car.Model)

	_, err = f.svc.Get(ctx, "missing")
	code, _ := apperr.StatusOf(err)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestFeaturedLimit(t *testing.T) {
	f := newCarFixture(nil)
	f.repo.cars = append(f.svc.SampleCars(10), f.repo.cars...)
	for i := range f.repo.cars {
		f.repo.cars[i].Status = db.CarAvailable
	}

	got, err := f.svc.Featured(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, featuredLimit)
}

func TestUploadImage(t *testing.T) {
	f := newCarFixture(nil)

	url, err := f.svc.UploadImage(context.Background(), "cars", "Front.JPG", strings.NewReader("img"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "https://cdn.test/cars/"))
	assert.True(t, strings.HasSuffix(url, ".jpg"))

	_, err = f.svc.UploadImage(context.Background(), "cars", "notes.txt", strings.NewReader("x"))
	assert.True(t, apperr.IsValidation(err))
}

func TestUploadImageWithoutStorage(t *testing.T) {
	svc := NewCarService(&fakeCarRepo{}, storage.Disabled{}, fakeProber{}, newTestCache(), logger.Nop())
	_, err := svc.UploadImage(context.Background(), "cars", "a.png", strings.NewReader("x"))
	code, _ := apperr.StatusOf(err)
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestSampleCars(t *testing.T) {
	f := newCarFixture(nil)
	cars := f.svc.SampleCars(50)
	require.Len(t, cars, 50)

	seen := map[string]bool{}
	for _, c := range cars {
		assert.False(t, seen[c.ID])
		seen[c.ID] = true
		assert.Contains(t, seedBrands, c.Brand)
		assert.Contains(t, seedModels[c.Brand], c.Model)
		assert.GreaterOrEqual(t, c.Year, 2020)
		assert.LessOrEqual(t, c.Year, 2025)
		assert.GreaterOrEqual(t, c.PricePerDay, 2000.0)
		assert.LessOrEqual(t, c.PricePerDay, 15000.0)
		assert.GreaterOrEqual(t, c.Rating, 3.5)
		assert.LessOrEqual(t, c.Rating, 5.0)
		assert.NotEmpty(t, c.Images)
		assert.GreaterOrEqual(t, len(c.Features), 3)
		assert.Contains(t, []string{db.CarAvailable, db.CarRented}, c.Status)
		if c.Brand == "Tesla" {
			assert.Equal(t, "electric", c.FuelType)
		}
	}
}

func TestSeed(t *testing.T) {
	f := newCarFixture(nil)

	cars, err := f.svc.Seed(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, cars, 100)
	assert.Len(t, f.repo.cars, 103)

	_, err = f.svc.Seed(context.Background(), maxSeedCount+1)
	assert.True(t, apperr.IsValidation(err))
}

type recordingProber struct {
	fakeProber
	asked []string
}

func (r *recordingProber) Broken(ctx context.Context, urls []string) map[string]bool {
	r.asked = append(r.asked, urls...)
	return r.fakeProber.Broken(ctx, urls)
}

func TestBrokenMediaProbesCoverImageOnly(t *testing.T) {
	repo := &fakeCarRepo{cars: []db.Car{
		{ID: carA, Images: []string{"https://cdn.test/a.jpg", "https://cdn.test/gone.jpg"}},
		{ID: carB, Images: []string{" https://cdn.test/gone.jpg "}},
		{ID: carC},
	}}
	probe := &recordingProber{fakeProber: fakeProber{broken: map[string]bool{"https://cdn.test/gone.jpg": true}}}
	svc := NewCarService(repo, &fakeImages{}, probe, newTestCache(), logger.Nop())

	cars, err := svc.ListAdmin(context.Background(), filter.AdminCars{Media: filter.MediaBroken})
	require.NoError(t, err)
	assert.Equal(t, []string{carB}, ids(cars))
	assert.ElementsMatch(t, []string{"https://cdn.test/a.jpg", "https://cdn.test/gone.jpg"}, probe.asked)
}
