package utils

import (
	"fmt"
	"strings"
)

var (
	CarTypes      = []string{"sedan", "suv", "luxury", "sports", "electric", "hybrid", "compact", "van"}
	FuelTypes     = []string{"petrol", "gasoline", "diesel", "electric", "hybrid"}
	Transmissions = []string{"automatic", "manual"}
	CarStatuses   = []string{"available", "rented", "maintenance", "unavailable"}
)

// NormalizeEnum lower-cases value and checks it against allowed.
func NormalizeEnum(field, value string, allowed []string) (string, error) {
	v := strings.ToLower(strings.TrimSpace(value))
	for _, a := range allowed {
		if v == a {
			return v, nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s", field, strings.Join(allowed, ", "))
}

// CleanList trims every entry and drops the blank ones.
func CleanList(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s := strings.TrimSpace(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
