package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/entities"
	apperr "carrental/internal/errors"
	"carrental/internal/logger"
	"carrental/internal/repository"
)

const (
	minPasswordLength = 6
	resetTTL          = time.Hour
	oauthStateTTL     = 10 * time.Minute
	googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type AuthService struct {
	users    repository.UserRepository
	profiles repository.ProfileRepository
	issuer   *auth.Issuer
	notifier Notifier
	cache    *cache.QueryCache
	log      logger.ILogger
	baseURL  string
	now      func() time.Time

	oauth       *oauth2.Config
	userInfoURL string
}

func NewAuthService(
	users repository.UserRepository,
	profiles repository.ProfileRepository,
	issuer *auth.Issuer,
	notifier Notifier,
	qc *cache.QueryCache,
	log logger.ILogger,
	baseURL string,
) *AuthService {
	return &AuthService{
		users:       users,
		profiles:    profiles,
		issuer:      issuer,
		notifier:    notifier,
		cache:       qc,
		log:         log,
		baseURL:     strings.TrimRight(baseURL, "/"),
		now:         time.Now,
		userInfoURL: googleUserInfoURL,
	}
}

// WithGoogle enables Google sign-in.
func (s *AuthService) WithGoogle(cfg config.GoogleOAuthConfig) *AuthService {
	s.oauth = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}
	return s
}

func validatePassword(password, confirm string) error {
	if password != confirm {
		return apperr.BadRequest("passwords do not match")
	}
	if len(password) < minPasswordLength {
		return apperr.BadRequest("password must be at least %d characters", minPasswordLength)
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) SignUp(ctx context.Context, req entities.SignUpRequest) (*entities.AuthResponse, error) {
	name, email := strings.TrimSpace(req.FullName), normalizeEmail(req.Email)
	if name == "" || email == "" || req.Password == "" {
		return nil, apperr.BadRequest("full_name, email and password are required")
	}
	if !strings.Contains(email, "@") {
		return nil, apperr.BadRequest("email is invalid")
	}
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &db.User{ID: uuid.NewString(), Email: email, PasswordHash: hash, Provider: db.ProviderEmail}
	profile := &db.Profile{FullName: name, Email: email, Role: db.RoleCustomer}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperr.Conflict("an account with this email already exists")
		}
		s.log.Error("sign up failed", logger.String("email", email), logger.Error(err))
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.AdminUsers, cache.AdminDashboard)
	return s.session(profile)
}

func (s *AuthService) Login(ctx context.Context, req entities.LoginRequest) (*entities.AuthResponse, error) {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, apperr.Unauthorized("invalid credentials")
	}
	profile, err := s.profiles.GetByID(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	return s.session(profile)
}

func (s *AuthService) session(p *db.Profile) (*entities.AuthResponse, error) {
	token, exp, err := s.issuer.Issue(p.ID, p.Email, p.Role)
	if err != nil {
		return nil, err
	}
	return &entities.AuthResponse{Token: token, ExpiresAt: exp, Profile: *p}, nil
}

// Session returns the profile behind a verified token.
func (s *AuthService) Session(ctx context.Context, userID string) (*db.Profile, error) {
	p, err := s.profiles.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.Unauthorized("session no longer valid")
	}
	return p, err
}

func (s *AuthService) UpdatePassword(ctx context.Context, userID string, req entities.PasswordUpdateRequest) error {
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, userID, hash)
}

// ForgotPassword emails a reset link when the account exists. Callers always
// answer success so addresses cannot be probed.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		return nil
	}

	reset := db.PasswordReset{Token: uuid.NewString(), UserID: user.ID, ExpiresAt: s.now().Add(resetTTL)}
	if err := s.users.CreatePasswordReset(ctx, reset); err != nil {
		return err
	}
	name := user.Email
	if p, err := s.profiles.GetByID(ctx, user.ID); err == nil && p.FullName != "" {
		name = p.FullName
	}
	link := s.baseURL + "/auth/reset-password?token=" + url.QueryEscape(reset.Token)
	s.notifier.PasswordReset(user.Email, name, link)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, req entities.ResetPasswordRequest) error {
	if _, err := uuid.Parse(req.Token); err != nil {
		return apperr.BadRequest("reset link is invalid or has expired")
	}
	if err := validatePassword(req.Password, req.ConfirmPassword); err != nil {
		return err
	}
	reset, err := s.users.ConsumePasswordReset(ctx, req.Token, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.BadRequest("reset link is invalid or has expired")
	}
	if err != nil {
		return err
	}
	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return err
	}
	return s.users.UpdatePassword(ctx, reset.UserID, hash)
}

// EnsureAdmin creates the configured administrator on first start.
func (s *AuthService) EnsureAdmin(ctx context.Context, cfg config.AdminConfig) error {
	if cfg.Email == "" {
		return nil
	}
	existing, err := s.users.GetByEmail(ctx, normalizeEmail(cfg.Email))
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}
	hash, err := auth.HashPassword(cfg.Password)
	if err != nil {
		return err
	}
	user := &db.User{ID: uuid.NewString(), Email: normalizeEmail(cfg.Email), PasswordHash: hash, Provider: db.ProviderEmail}
	profile := &db.Profile{FullName: cfg.FullName, Email: user.Email, Role: db.RoleAdmin, KYCVerified: true}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("admin account created", logger.String("email", user.Email))
	return nil
}

func (s *AuthService) GoogleEnabled() bool { return s.oauth != nil }

// GoogleAuthURL starts the OAuth flow with a single-use state.
func (s *AuthService) GoogleAuthURL(ctx context.Context) (string, error) {
	if s.oauth == nil {
		return "", apperr.NotFound("google sign-in is not enabled")
	}
	state := uuid.NewString()
	if err := s.cache.Remember(ctx, cache.OAuthState(state), "1", oauthStateTTL); err != nil {
		return "", err
	}
	return s.oauth.AuthCodeURL(state), nil
}

type googleUser struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
}

func (s *AuthService) GoogleCallback(ctx context.Context, state, code string) (*entities.AuthResponse, error) {
	if s.oauth == nil {
		return nil, apperr.NotFound("google sign-in is not enabled")
	}
	if _, ok, err := s.cache.Consume(ctx, cache.OAuthState(state)); err != nil || !ok {
		return nil, apperr.BadRequest("sign-in session expired, please try again")
	}

	tok, err := s.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, apperr.Unauthorized("google sign-in failed")
	}
	gu, err := s.fetchGoogleUser(ctx, tok)
	if err != nil {
		s.log.Error("google userinfo failed", logger.Error(err))
		return nil, apperr.Unauthorized("google sign-in failed")
	}
	if gu.Email == "" || !gu.EmailVerified {
		return nil, apperr.Unauthorized("google account has no verified email")
	}

	email := normalizeEmail(gu.Email)
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user != nil {
		p, err := s.profiles.GetByID(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		return s.session(p)
	}

	user = &db.User{ID: uuid.NewString(), Email: email, Provider: db.ProviderGoogle}
	profile := &db.Profile{FullName: gu.Name, Email: email, Role: db.RoleCustomer}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, cache.AdminUsers, cache.AdminDashboard)
	return s.session(profile)
}

func (s *AuthService) fetchGoogleUser(ctx context.Context, tok *oauth2.Token) (*googleUser, error) {
	client := s.oauth.Client(ctx, tok)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.userInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned %d", resp.StatusCode)
	}
	var gu googleUser
	if err := json.NewDecoder(resp.Body).Decode(&gu); err != nil {
		return nil, err
	}
	return &gu, nil
}
