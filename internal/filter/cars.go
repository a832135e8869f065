package filter

import (
	"strings"

	"carrental/internal/db"
)

const (
	MediaWithImages = "with_images"
	MediaNoImages   = "no_images"
	MediaBroken     = "broken"
)

// AdminCars is the fleet management filter.
type AdminCars struct {
	Search string
	Status string
	Type   string
	Media  string
	// Broken holds ids of cars with an unreachable image; only read for MediaBroken.
	Broken map[string]bool
}

func (f AdminCars) Apply(cars []db.Car) []db.Car {
	return Apply(cars,
		Search(f.Search,
			func(c db.Car) string { return c.Brand },
			func(c db.Car) string { return c.Model },
			func(c db.Car) string { return c.RegistrationNumber },
		),
		Equal(f.Status, func(c db.Car) string { return c.Status }),
		Equal(f.Type, func(c db.Car) string { return c.Type }),
		f.media(),
	)
}

func (f AdminCars) media() Predicate[db.Car] {
	switch strings.ToLower(strings.TrimSpace(f.Media)) {
	case MediaWithImages:
		return func(c db.Car) bool { return c.HasImage() }
	case MediaNoImages:
		return func(c db.Car) bool { return !c.HasImage() }
	case MediaBroken:
		return func(c db.Car) bool { return f.Broken[c.ID] }
	}
	return nil
}

// PublicCars is the customer-facing fleet filter. Only available cars pass.
type PublicCars struct {
	Search   string
	Brand    string
	Type     string
	FuelType string
	Seats    int
	MinPrice float64
	MaxPrice float64
}

func (f PublicCars) Apply(cars []db.Car) []db.Car {
	available := Predicate[db.Car](func(c db.Car) bool { return c.Status == db.CarAvailable })
	return Apply(cars,
		available,
		Search(f.Search,
			func(c db.Car) string { return c.Brand },
			func(c db.Car) string { return c.Model },
		),
		Equal(f.Brand, func(c db.Car) string { return c.Brand }),
		Equal(f.Type, func(c db.Car) string { return c.Type }),
		Equal(f.FuelType, func(c db.Car) string { return c.FuelType }),
		AtLeast(f.Seats, func(c db.Car) int { return c.Seats }),
		Between(f.MinPrice, f.MaxPrice, func(c db.Car) float64 { return c.PricePerDay }),
	)
}
