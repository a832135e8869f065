package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"carrental/internal/cache"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/repository"
)

type ProfileService struct {
	profiles repository.ProfileRepository
	cars     *CarService
	cache    *cache.QueryCache
}

func NewProfileService(profiles repository.ProfileRepository, cars *CarService, qc *cache.QueryCache) *ProfileService {
	return &ProfileService{profiles: profiles, cars: cars, cache: qc}
}

func (s *ProfileService) Get(ctx context.Context, userID string) (*db.Profile, error) {
	p, err := cache.Fetch(ctx, s.cache, cache.Profile(userID), func(ctx context.Context) (*db.Profile, error) {
		return s.profiles.GetByID(ctx, userID)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("profile not found")
	}
	return p, err
}

// Update upserts the editable fields. Completing the profile marks the customer
// as KYC verified.
func (s *ProfileService) Update(ctx context.Context, userID, email string, req entities.ProfileUpdateRequest) (*db.Profile, error) {
	name := strings.TrimSpace(req.FullName)
	if name == "" {
		return nil, apperr.BadRequest("full_name is required")
	}

	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		p = &db.Profile{ID: userID, Email: email, Role: db.RoleCustomer}
	} else if err != nil {
		return nil, err
	}

	p.FullName = name
	p.Phone = strings.TrimSpace(req.Phone)
	p.Address = strings.TrimSpace(req.Address)
	p.City = strings.TrimSpace(req.City)
	p.KYCVerified = true
	if err := s.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.Profile(userID), cache.AdminUsers, cache.AdminBookings)
	return p, nil
}

func (s *ProfileService) UploadAvatar(ctx context.Context, userID, filename string, body io.Reader) (*db.Profile, error) {
	url, err := s.cars.UploadImage(ctx, "avatars", filename, body)
	if err != nil {
		return nil, err
	}
	if err := s.profiles.SetAvatar(ctx, userID, url); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("profile not found")
		}
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.Profile(userID), cache.AdminUsers)
	return s.profiles.GetByID(ctx, userID)
}
