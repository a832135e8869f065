package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"carrental/internal/db"
	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/logger"
)

func newProfileFixture(profiles ...db.Profile) (*ProfileService, *fakeProfileRepo, *fakeImages) {
	repo := newFakeProfileRepo(profiles...)
	images := &fakeImages{}
	qc := newTestCache()
	cars := NewCarService(&fakeCarRepo{}, images, fakeProber{}, qc, logger.Nop())
	return NewProfileService(repo, cars, qc), repo, images
}

func TestProfileUpdateMarksVerified(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newProfileFixture(db.Profile{ID: testUserID, FullName: "Old", Email: "a@example.com", Role: db.RoleAdmin})

	before, err := svc.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.False(t, before.KYCVerified)

	p, err := svc.Update(ctx, testUserID, "a@example.com", entities.ProfileUpdateRequest{
		FullName: " Asha Rao ", Phone: "+919800000000", City: "Pune",
	})
	require.NoError(t, err)
	assert.True(t, p.KYCVerified)
	assert.Equal(t, "Asha Rao", p.FullName)
	assert.Equal(t, db.RoleAdmin, repo.profiles[testUserID].Role)

	after, err := svc.Get(ctx, testUserID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", after.City)
	assert.True(t, after.KYCVerified)
}

func TestProfileUpdateCreatesMissingProfile(t *testing.T) {
	svc, repo, _ := newProfileFixture()

	p, err := svc.Update(context.Background(), testUserID, "new@example.com", entities.ProfileUpdateRequest{FullName: "New"})
	require.NoError(t, err)
	assert.Equal(t, db.RoleCustomer, p.Role)
	assert.Contains(t, repo.profiles, testUserID)
}

func TestProfileUpdateRequiresName(t *testing.T) {
	svc, repo, _ := newProfileFixture()

	_, err := svc.Update(context.Background(), testUserID, "", entities.ProfileUpdateRequest{FullName: "  "})
	assert.True(t, apperr.IsValidation(err))
	assert.Empty(t, repo.profiles)
}

func TestProfileGetMissing(t *testing.T) {
	svc, _, _ := newProfileFixture()
	_, err := svc.Get(context.Background(), "nobody")
	code, _ := apperr.StatusOf(err)
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUploadAvatar(t *testing.T) {
	svc, _, images := newProfileFixture(db.Profile{ID: testUserID, FullName: "Asha"})

	p, err := svc.UploadAvatar(context.Background(), testUserID, "me.png", strings.NewReader("png"))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(p.AvatarURL, "https://cdn.test/avatars/"))
	require.Len(t, images.uploaded, 1)
}
