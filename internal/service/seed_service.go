package service

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"

	"carrental/internal/cache"
	"carrental/internal/db"
	apperr "carrental/internal/errors"
	"carrental/internal/logger"
)

var (
	seedModels = map[string][]string{
		"Toyota":   {"Camry", "Corolla", "Fortuner", "Innova Crysta", "Prius"},
		"BMW":      {"3 Series", "5 Series", "X1", "X5", "i4"},
		"Mercedes": {"C-Class", "E-Class", "GLA", "GLE", "EQS"},
		"Audi":     {"A4", "A6", "Q3", "Q7", "e-tron"},
		"Tesla":    {"Model 3", "Model S", "Model X", "Model Y"},
		"Ford":     {"EcoSport", "Endeavour", "Mustang", "Figo"},
		"Honda":    {"City", "Civic", "Amaze", "Elevate"},
		"Nissan":   {"Magnite", "Kicks", "Sunny", "Leaf"},
		"Hyundai":  {"Creta", "Verna", "i20", "Tucson", "Ioniq 5"},
		"Kia":      {"Seltos", "Sonet", "Carens", "EV6"},
	}
	seedBrands   = []string{"Toyota", "BMW", "Mercedes", "Audi", "Tesla", "Ford", "Honda", "Nissan", "Hyundai", "Kia"}
	seedFeatures = []string{
		"GPS Navigation", "Bluetooth", "Backup Camera", "Sunroof", "Leather Seats", "Heated Seats",
		"Apple CarPlay", "Android Auto", "Cruise Control", "Keyless Entry", "Parking Sensors",
		"Wireless Charging", "360 Camera", "Ventilated Seats",
	}
	seedImages = []string{
		"https://images.unsplash.com/photo-1494976388531-d1058494cdd8",
		"https://images.unsplash.com/photo-1503376780353-7e6692767b70",
		"https://images.unsplash.com/photo-1502877338535-766e1452684a",
		"https://images.unsplash.com/photo-1552519507-da3b142c6e3d",
		"https://images.unsplash.com/photo-1541899481282-d53bffe3c35d",
		"https://images.unsplash.com/photo-1533473359331-0135ef1b58bf",
	}
	seedSeats   = []int{2, 4, 5, 7}
	seedStates  = []string{"MH", "DL", "KA", "TN", "GJ", "RJ", "UP", "WB"}
	seedLetters = "ABCDEFGHJKLMNPRSTUVWXYZ"
)

// SampleCars generates n random cars. It does not touch the database.
func (s *CarService) SampleCars(n int) []db.Car {
	s.randMu.Lock()
	defer s.randMu.Unlock()

	cars := make([]db.Car, 0, n)
	now := s.now().UTC()
	for i := 0; i < n; i++ {
		brand := seedBrands[s.rand.IntN(len(seedBrands))]
		models := seedModels[brand]
		carType := s.pick([]string{"sedan", "suv", "luxury", "sports", "compact", "van"})
		fuel := s.pick([]string{"petrol", "diesel", "hybrid"})
		if brand == "Tesla" {
			carType, fuel = "electric", "electric"
		}

		status := db.CarAvailable
		if s.rand.Float64() < 0.2 {
			status = db.CarRented
		}

		cars = append(cars, db.Car{
			ID:                 uuid.NewString(),
			Brand:              brand,
			Model:              models[s.rand.IntN(len(models))],
			Year:               2020 + s.rand.IntN(6),
			PricePerDay:        float64(2000 + s.rand.IntN(13001)),
			Type:               carType,
			FuelType:           fuel,
			Transmission:       s.pick([]string{"automatic", "manual"}),
			Seats:              seedSeats[s.rand.IntN(len(seedSeats))],
			Images:             s.sample(seedImages, 1+s.rand.IntN(3)),
			Features:           s.sample(seedFeatures, 3+s.rand.IntN(6)),
			Rating:             math.Round((3.5+s.rand.Float64()*1.5)*10) / 10,
			Status:             status,
			RegistrationNumber: s.registration(),
			Description:        fmt.Sprintf("Well maintained %s, ready for city drives and long trips.", brand),
			CreatedAt:          now,
		})
	}
	return cars
}

func (s *CarService) pick(options []string) string {
	return options[s.rand.IntN(len(options))]
}

func (s *CarService) sample(from []string, n int) []string {
	idx := s.rand.Perm(len(from))
	out := make([]string, 0, n)
	for _, i := range idx[:min(n, len(from))] {
		out = append(out, from[i])
	}
	return out
}

func (s *CarService) registration() string {
	return fmt.Sprintf("%s%02d%c%c%04d",
		seedStates[s.rand.IntN(len(seedStates))],
		1+s.rand.IntN(99),
		seedLetters[s.rand.IntN(len(seedLetters))],
		seedLetters[s.rand.IntN(len(seedLetters))],
		s.rand.IntN(10000))
}

// Seed inserts n sample cars in one transaction.
func (s *CarService) Seed(ctx context.Context, n int) ([]db.Car, error) {
	if n <= 0 {
		n = 100
	}
	if n > maxSeedCount {
		return nil, apperr.BadRequest("count must be at most %d", maxSeedCount)
	}
	cars := s.SampleCars(n)
	if err := s.cars.InsertMany(ctx, cars); err != nil {
		s.log.Error("seed cars failed", logger.Int("count", n), logger.Error(err))
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.FleetKeys()...)
	s.log.Info("seeded sample cars", logger.Int("count", n))
	return cars, nil
}
