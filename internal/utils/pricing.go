package utils

import (
	"math"
	"time"
)

// RentalDays counts started 24 hour periods between start and end, minimum one.
func RentalDays(start, end time.Time) int {
	d := end.Sub(start)
	if d <= 0 {
		return 1
	}
	days := int(math.Ceil(d.Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

func TotalPrice(pricePerDay float64, start, end time.Time) float64 {
	return math.Round(float64(RentalDays(start, end))*pricePerDay*100) / 100
}

// MinorUnits converts an amount to the smallest currency unit, as payment providers expect.
func MinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}
