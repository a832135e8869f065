package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type ServerConfig struct {
	Port            string        `mapstructure:"port"`
	AllowedOrigins  []string      `mapstructure:"allowedOrigins"`
	ShutdownTimeout time.Duration `mapstructure:"shutdownTimeout"`
}

type DatabaseConfig struct {
	URL string `mapstructure:"url"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"`
}

type JWTConfig struct {
	Secret     string        `mapstructure:"secret"`
	Expiration time.Duration `mapstructure:"expiration"`
}

type AdminConfig struct {
	Email    string `mapstructure:"email"`
	Password string `mapstructure:"password"`
	FullName string `mapstructure:"fullName"`
}

type S3Config struct {
	Bucket           string `mapstructure:"bucket"`
	Region           string `mapstructure:"region"`
	AccessKeyID      string `mapstructure:"accessKeyID"`
	SecretAccessKey  string `mapstructure:"secretAccessKey"`
	CloudFrontDomain string `mapstructure:"cloudFrontDomain"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secretKey"`
	WebhookSecret string `mapstructure:"webhookSecret"`
	Currency      string `mapstructure:"currency"`
	SuccessURL    string `mapstructure:"successURL"`
	CancelURL     string `mapstructure:"cancelURL"`
}

type SendGridConfig struct {
	APIKey    string `mapstructure:"apiKey"`
	FromEmail string `mapstructure:"fromEmail"`
	FromName  string `mapstructure:"fromName"`
}

type TwilioConfig struct {
	AccountSID string `mapstructure:"accountSID"`
	AuthToken  string `mapstructure:"authToken"`
	FromNumber string `mapstructure:"fromNumber"`
}

type GoogleOAuthConfig struct {
	ClientID     string `mapstructure:"clientID"`
	ClientSecret string `mapstructure:"clientSecret"`
	RedirectURL  string `mapstructure:"redirectURL"`
}

type OAuthConfig struct {
	Google GoogleOAuthConfig `mapstructure:"google"`
}

type AppConfig struct {
	Name    string `mapstructure:"name"`
	BaseURL string `mapstructure:"baseURL"`
}

type CronConfig struct {
	Schedule string `mapstructure:"schedule"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Cache    CacheConfig    `mapstructure:"cache"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Admin    AdminConfig    `mapstructure:"admin"`
	S3       S3Config       `mapstructure:"s3"`
	Stripe   StripeConfig   `mapstructure:"stripe"`
	SendGrid SendGridConfig `mapstructure:"sendgrid"`
	Twilio   TwilioConfig   `mapstructure:"twilio"`
	OAuth    OAuthConfig    `mapstructure:"oauth"`
	Cron     CronConfig     `mapstructure:"cron"`
	Log      LogConfig      `mapstructure:"log"`
}

var envBindings = map[string]string{
	"app.name":                  "APP_NAME",
	"app.baseURL":               "FRONTEND_URL",
	"server.port":               "PORT",
	"server.allowedOrigins":     "ALLOWED_ORIGINS",
	"server.shutdownTimeout":    "SHUTDOWN_TIMEOUT",
	"database.url":              "DATABASE_URL",
	"redis.url":                 "REDIS_URL",
	"cache.ttl":                 "CACHE_TTL",
	"jwt.secret":                "JWT_SECRET",
	"jwt.expiration":            "JWT_EXPIRATION",
	"admin.email":               "ADMIN_EMAIL",
	"admin.password":            "ADMIN_PASSWORD",
	"admin.fullName":            "ADMIN_FULL_NAME",
	"s3.bucket":                 "S3_BUCKET",
	"s3.region":                 "S3_REGION",
	"s3.accessKeyID":            "S3_ACCESS_KEY_ID",
	"s3.secretAccessKey":        "S3_SECRET_ACCESS_KEY",
	"s3.cloudFrontDomain":       "S3_CLOUDFRONT_DOMAIN",
	"stripe.secretKey":          "STRIPE_SECRET_KEY",
	"stripe.webhookSecret":      "STRIPE_WEBHOOK_SECRET",
	"stripe.currency":           "STRIPE_CURRENCY",
	"stripe.successURL":         "STRIPE_SUCCESS_URL",
	"stripe.cancelURL":          "STRIPE_CANCEL_URL",
	"sendgrid.apiKey":           "SENDGRID_API_KEY",
	"sendgrid.fromEmail":        "SENDGRID_FROM_EMAIL",
	"sendgrid.fromName":         "SENDGRID_FROM_NAME",
	"twilio.accountSID":         "TWILIO_ACCOUNT_SID",
	"twilio.authToken":          "TWILIO_AUTH_TOKEN",
	"twilio.fromNumber":         "TWILIO_FROM_NUMBER",
	"oauth.google.clientID":     "GOOGLE_CLIENT_ID",
	"oauth.google.clientSecret": "GOOGLE_CLIENT_SECRET",
	"oauth.google.redirectURL":  "GOOGLE_REDIRECT_URL",
	"cron.schedule":             "CRON_SCHEDULE",
	"log.level":                 "LOG_LEVEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "DriveEase")
	v.SetDefault("app.baseURL", "http://localhost:5173")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.allowedOrigins", []string{"http://localhost:5173"})
	v.SetDefault("server.shutdownTimeout", "10s")
	v.SetDefault("cache.ttl", "5m")
	v.SetDefault("jwt.expiration", "24h")
	v.SetDefault("admin.fullName", "Administrator")
	v.SetDefault("stripe.currency", "inr")
	v.SetDefault("stripe.successURL", "http://localhost:5173/booking/confirm?session_id={CHECKOUT_SESSION_ID}")
	v.SetDefault("stripe.cancelURL", "http://localhost:5173/bookings")
	v.SetDefault("sendgrid.fromName", "DriveEase")
	v.SetDefault("cron.schedule", "@every 10m")
	v.SetDefault("log.level", "info")
}

// LoadConfig reads config.yaml from path (optional) and overrides it with
// environment variables.
func LoadConfig(path string) (config Config, err error) {
	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AutomaticEnv()
	setDefaults(v)

	for key, env := range envBindings {
		if err = v.BindEnv(key, env); err != nil {
			return
		}
	}

	err = v.ReadInConfig()
	if err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return
		}
		err = nil
	}

	err = v.Unmarshal(&config)
	return
}

// Validate checks the loaded configuration once at startup. Every problem is
// reported, not only the first.
func (c Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Database.URL) == "" {
		errs = append(errs, errors.New("database.url (DATABASE_URL) is required"))
	}
	if len(c.JWT.Secret) < 16 {
		errs = append(errs, errors.New("jwt.secret (JWT_SECRET) must be at least 16 characters"))
	}
	if c.JWT.Expiration <= 0 {
		errs = append(errs, errors.New("jwt.expiration must be positive"))
	}
	if c.Server.Port == "" {
		errs = append(errs, errors.New("server.port is required"))
	}
	if c.Stripe.SecretKey != "" {
		if c.Stripe.WebhookSecret == "" {
			errs = append(errs, errors.New("stripe.webhookSecret is required when stripe is enabled"))
		}
		if c.Stripe.Currency == "" {
			errs = append(errs, errors.New("stripe.currency is required when stripe is enabled"))
		}
	}
	if g := c.OAuth.Google; g.ClientID != "" && (g.ClientSecret == "" || g.RedirectURL == "") {
		errs = append(errs, errors.New("oauth.google needs clientSecret and redirectURL"))
	}
	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, errors.New("s3.region is required when s3.bucket is set"))
	}
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		errs = append(errs, errors.New("admin.email and admin.password must be set together"))
	}
	if c.Admin.Password != "" && len(c.Admin.Password) < 6 {
		errs = append(errs, errors.New("admin.password must be at least 6 characters"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) StripeEnabled() bool   { return c.Stripe.SecretKey != "" }
func (c Config) S3Enabled() bool       { return c.S3.Bucket != "" }
func (c Config) SendGridEnabled() bool { return c.SendGrid.APIKey != "" && c.SendGrid.FromEmail != "" }
func (c Config) TwilioEnabled() bool {
	return c.Twilio.AccountSID != "" && c.Twilio.AuthToken != "" && c.Twilio.FromNumber != ""
}
func (c Config) GoogleOAuthEnabled() bool { return c.OAuth.Google.ClientID != "" }
