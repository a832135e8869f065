package service

import (
	"context"
	"errors"
	"io"
	"math/rand/v2"
	"path"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/filter"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/storage"
	"carrental/internal/utils"
)

const (
	featuredLimit = 4
	maxSeedCount  = 500
)

// BrokenChecker reports which image urls no longer resolve.
type BrokenChecker interface {
	Broken(ctx context.Context, urls []string) map[string]bool
}

type CarService struct {
	cars   repository.CarRepository
	images storage.ImageStore
	probe  BrokenChecker
	cache  *cache.QueryCache
	log    logger.ILogger
	now    func() time.Time

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewCarService(cars repository.CarRepository, images storage.ImageStore, probe BrokenChecker, qc *cache.QueryCache, log logger.ILogger) *CarService {
	return &CarService{
		cars:   cars,
		images: images,
		probe:  probe,
		cache:  qc,
		log:    log,
		rand:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		now:    time.Now,
	}
}

func (s *CarService) all(ctx context.Context) ([]db.Car, error) {
	return cache.Fetch(ctx, s.cache, cache.AdminCars, func(ctx context.Context) ([]db.Car, error) {
		return s.cars.List(ctx, repository.CarQuery{})
	})
}

// ListAdmin returns the whole fleet, newest first, narrowed by f.
func (s *CarService) ListAdmin(ctx context.Context, f filter.AdminCars) ([]db.Car, error) {
	cars, err := s.all(ctx)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(f.Media, filter.MediaBroken) {
		f.Broken = s.brokenCars(ctx, cars)
	}
	return f.Apply(cars), nil
}

// brokenCars probes the cover image of each car, the one lists display.
func (s *CarService) brokenCars(ctx context.Context, cars []db.Car) map[string]bool {
	covers := make(map[string]string, len(cars))
	urls := make([]string, 0, len(cars))
	for _, c := range cars {
		if len(c.Images) == 0 {
			continue
		}
		if u := strings.TrimSpace(c.Images[0]); u != "" {
			covers[c.ID] = u
			urls = append(urls, u)
		}
	}
	bad := s.probe.Broken(ctx, urls)

	broken := make(map[string]bool)
	for id, u := range covers {
		if bad[u] {
			broken[id] = true
		}
	}
	return broken
}

func (s *CarService) ListPublic(ctx context.Context, f filter.PublicCars) ([]db.Car, error) {
	cars, err := cache.Fetch(ctx, s.cache, cache.PublicCars, func(ctx context.Context) ([]db.Car, error) {
		return s.cars.List(ctx, repository.CarQuery{Status: db.CarAvailable})
	})
	if err != nil {
		return nil, err
	}
	return f.Apply(cars), nil
}

func (s *CarService) Featured(ctx context.Context) ([]db.Car, error) {
	return cache.Fetch(ctx, s.cache, cache.FeaturedCars, func(ctx context.Context) ([]db.Car, error) {
		return s.cars.List(ctx, repository.CarQuery{Status: db.CarAvailable, Limit: featuredLimit})
	})
}

// validID reports whether id can name a row. Ids are uuids and anything else
// would fail in Postgres rather than miss.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func (s *CarService) Get(ctx context.Context, id string) (*db.Car, error) {
	if !validID(id) {
		return nil, apperr.NotFound("car not found")
	}
	car, err := cache.Fetch(ctx, s.cache, cache.Car(id), func(ctx context.Context) (*db.Car, error) {
		return s.cars.GetByID(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("car not found")
	}
	return car, err
}

func carFromRequest(req entities.CarRequest) (db.Car, error) {
	var err error
	car := db.Car{
		Brand:              strings.TrimSpace(req.Brand),
		Model:              strings.TrimSpace(req.Model),
		Year:               req.Year,
		PricePerDay:        req.PricePerDay,
		Seats:              req.Seats,
		Images:             utils.CleanList(req.Images),
		Features:           utils.CleanList(req.Features),
		Rating:             req.Rating,
		RegistrationNumber: strings.ToUpper(strings.TrimSpace(req.RegistrationNumber)),
		Description:        strings.TrimSpace(req.Description),
	}
	if car.Brand == "" || car.Model == "" {
		return car, apperr.BadRequest("brand and model are required")
	}
	if car.Year < 1980 || car.Year > time.Now().Year()+1 {
		return car, apperr.BadRequest("year is out of range")
	}
	if car.PricePerDay <= 0 {
		return car, apperr.BadRequest("price_per_day must be positive")
	}
	if car.Seats < 1 {
		return car, apperr.BadRequest("seats must be at least 1")
	}
	if car.Rating < 0 || car.Rating > 5 {
		return car, apperr.BadRequest("rating must be between 0 and 5")
	}
	if car.Type, err = utils.NormalizeEnum("type", req.Type, utils.CarTypes); err != nil {
		return car, apperr.BadRequest(err.Error())
	}
	if car.FuelType, err = utils.NormalizeEnum("fuel_type", req.FuelType, utils.FuelTypes); err != nil {
		return car, apperr.BadRequest(err.Error())
	}
	if car.Transmission, err = utils.NormalizeEnum("transmission", req.Transmission, utils.Transmissions); err != nil {
		return car, apperr.BadRequest(err.Error())
	}
	status := req.Status
	if strings.TrimSpace(status) == "" {
		status = db.CarAvailable
	}
	if car.Status, err = utils.NormalizeEnum("status", status, utils.CarStatuses); err != nil {
		return car, apperr.BadRequest(err.Error())
	}
	return car, nil
}

func (s *CarService) Create(ctx context.Context, req entities.CarRequest) (*db.Car, error) {
	car, err := carFromRequest(req)
	if err != nil {
		return nil, err
	}
	car.ID = uuid.NewString()
	if err := s.cars.Create(ctx, &car); err != nil {
		s.log.Error("create car failed", logger.String("brand", car.Brand), logger.String("model", car.Model), logger.Error(err))
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.FleetKeys()...)
	return &car, nil
}

func (s *CarService) Update(ctx context.Context, id string, req entities.CarRequest) (*db.Car, error) {
	if !validID(id) {
		return nil, apperr.NotFound("car not found")
	}
	car, err := carFromRequest(req)
	if err != nil {
		return nil, err
	}
	car.ID = id
	if err := s.cars.Update(ctx, &car); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("car not found")
		}
		s.log.Error("update car failed", logger.String("car", id), logger.Error(err))
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.FleetKeys(id)...)
	return &car, nil
}

// Delete removes the cars in one write, then drops their stored images. Image
// cleanup failures are logged and never undo the delete.
func (s *CarService) Delete(ctx context.Context, ids []string) ([]string, error) {
	ids = utils.CleanList(ids)
	if len(ids) == 0 {
		return nil, apperr.BadRequest("no car ids given")
	}
	for _, id := range ids {
		if !validID(id) {
			return nil, apperr.BadRequest("invalid car id %q", id)
		}
	}

	deleted, err := s.cars.DeleteByIDs(ctx, ids)
	if err != nil {
		s.log.Error("delete cars failed", logger.Strings("ids", ids), logger.Error(err))
		return nil, err
	}

	deletedIDs := make([]string, 0, len(deleted.Cars))
	var urls []string
	for _, c := range deleted.Cars {
		deletedIDs = append(deletedIDs, c.ID)
		urls = append(urls, c.Images...)
	}
	keys := cache.FleetKeys(deletedIDs...)
	if len(deleted.BookingUserIDs) > 0 {
		// cascaded bookings and payments leave every booking list and report stale
		keys = append(keys, cache.BookingKeys(deleted.BookingUserIDs...)...)
		keys = append(keys, cache.ReportsRevenue)
	}
	s.cache.Invalidate(ctx, keys...)

	if len(urls) > 0 {
		if err := s.images.Delete(ctx, urls...); err != nil {
			s.log.Warning("car images not removed", logger.Strings("cars", deletedIDs), logger.Error(err))
		}
	}
	return deletedIDs, nil
}

var imageTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// UploadImage stores an image under prefix/ and returns its public url.
func (s *CarService) UploadImage(ctx context.Context, prefix, filename string, body io.Reader) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	contentType, ok := imageTypes[ext]
	if !ok {
		return "", apperr.BadRequest("unsupported image type %q", ext)
	}
	url, err := s.images.Upload(ctx, prefix+"/"+uuid.NewString()+ext, contentType, body)
	if errors.Is(err, storage.ErrStorageDisabled) {
		return "", apperr.Unavailable("image storage is not configured")
	}
	if err != nil {
		s.log.Error("image upload failed", logger.String("file", filename), logger.Error(err))
		return "", err
	}
	return url, nil
}
