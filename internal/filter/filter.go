// Package filter narrows already-fetched lists in memory. Input order is kept,
// an empty value or "all" disables a predicate and no match yields an empty,
// non-nil slice.
package filter

import "strings"

const All = "all"

type Predicate[T any] func(T) bool

// Apply keeps the items matching every non-nil predicate.
func Apply[T any](items []T, preds ...Predicate[T]) []T {
	active := make([]Predicate[T], 0, len(preds))
	for _, p := range preds {
		if p != nil {
			active = append(active, p)
		}
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(item, active) {
			out = append(out, item)
		}
	}
	return out
}

func matches[T any](item T, preds []Predicate[T]) bool {
	for _, p := range preds {
		if !p(item) {
			return false
		}
	}
	return true
}

// Inactive reports whether a filter value means "no filtering".
func Inactive(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, All)
}

// Search matches when any field contains term, case-insensitively.
func Search[T any](term string, fields ...func(T) string) Predicate[T] {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return nil
	}
	return func(item T) bool {
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f(item)), term) {
				return true
			}
		}
		return false
	}
}

// Equal matches field against value ignoring case.
func Equal[T any](value string, field func(T) string) Predicate[T] {
	if Inactive(value) {
		return nil
	}
	value = strings.TrimSpace(value)
	return func(item T) bool {
		return strings.EqualFold(field(item), value)
	}
}

func AtLeast[T any](min int, field func(T) int) Predicate[T] {
	if min <= 0 {
		return nil
	}
	return func(item T) bool { return field(item) >= min }
}

// Between is inclusive on both ends; a zero bound is open.
func Between[T any](min, max float64, field func(T) float64) Predicate[T] {
	if min <= 0 && max <= 0 {
		return nil
	}
	return func(item T) bool {
		v := field(item)
		if min > 0 && v < min {
			return false
		}
		if max > 0 && v > max {
			return false
		}
		return true
	}
}
