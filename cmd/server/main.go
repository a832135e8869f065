package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carrental/internal/api"
	"carrental/internal/auth"
	"carrental/internal/cache"
	"carrental/internal/config"
	"carrental/internal/db"
	"carrental/internal/logger"
	"carrental/internal/repository"
	"carrental/internal/service"
	"carrental/internal/socket"
	"carrental/internal/storage"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("carrental: %v", err)
	}
}

func run() error {
	godotenv.Load()
	cfg, err := config.LoadConfig("config")
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	appLog := logger.New("carrental", cfg.Log.Level)
	defer appLog.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.Database.URL, appLog)
	if err != nil {
		return err
	}
	defer conn.Close()

	store, closeStore := openStore(ctx, cfg.Redis.URL, appLog)
	defer closeStore()
	qc := cache.NewQueryCache(store, cfg.Cache.TTL, appLog)
	hub := socket.NewHub(appLog)
	qc.Subscribe(hub)

	var images storage.ImageStore = storage.Disabled{}
	if cfg.S3Enabled() {
		s3, err := storage.NewS3Store(ctx, cfg.S3)
		if err != nil {
			return err
		}
		images = s3
	} else {
		appLog.Warning("S3 bucket not configured, image uploads disabled")
	}

	var mailer service.Mailer = service.NewLogMailer(appLog)
	if cfg.SendGridEnabled() {
		mailer = service.NewSendGridMailer(cfg.SendGrid, appLog)
	}
	var sms service.SMSSender = service.NewLogSMS(appLog)
	if cfg.TwilioEnabled() {
		sms = service.NewTwilioSMS(cfg.Twilio, appLog)
	}
	var gateway service.PaymentGateway
	if cfg.StripeEnabled() {
		gateway = service.NewStripeService(cfg.Stripe)
	} else {
		appLog.Warning("Stripe not configured, bookings are created without checkout")
	}

	cars := repository.NewCarRepository(conn)
	bookings := repository.NewBookingRepository(conn)
	payments := repository.NewPaymentRepository(conn)
	profiles := repository.NewProfileRepository(conn)
	users := repository.NewUserRepository(conn)

	issuer := auth.NewIssuer(cfg.JWT.Secret, cfg.JWT.Expiration)
	notifier := service.NewSenderService(cfg.App.Name, mailer, sms, appLog)
	carSvc := service.NewCarService(cars, images, storage.NewProber(), qc, appLog)
	bookingSvc := service.NewBookingService(bookings, cars, payments, gateway, notifier, qc, appLog, cfg.Stripe.Currency)
	authSvc := service.NewAuthService(users, profiles, issuer, notifier, qc, appLog, cfg.App.BaseURL)
	if cfg.GoogleOAuthEnabled() {
		authSvc.WithGoogle(cfg.OAuth.Google)
	}
	profileSvc := service.NewProfileService(profiles, carSvc, qc)
	adminSvc := service.NewAdminService(cars, bookings, profiles, payments, qc)
	reportSvc := service.NewReportService(payments, bookings, qc)

	if err := authSvc.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return err
	}

	jobs := service.NewJobService(repository.NewJobRepository(conn), qc, appLog)
	scheduler, err := jobs.Start(cfg.Cron.Schedule)
	if err != nil {
		return err
	}
	defer scheduler.Stop()

	h := api.Handlers{
		Auth:     api.NewAuthHandler(authSvc, appLog),
		Cars:     api.NewCarHandler(carSvc, appLog),
		Bookings: api.NewUserBookingHandler(bookingSvc, appLog),
		Profile:  api.NewProfileHandler(profileSvc, appLog),
		Admin:    api.NewAdminHandler(bookingSvc, adminSvc, reportSvc, appLog),
		Socket:   api.NewWebSocketHandler(hub, cfg.Server.AllowedOrigins, appLog),
		Health:   api.Health(conn.PingContext),
	}
	if cfg.StripeEnabled() {
		h.Stripe = api.NewStripeWebhookHandler(cfg.Stripe.WebhookSecret, bookingSvc, appLog)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.NewRouter(h, issuer, cfg.Server.AllowedOrigins, appLog),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("server running", logger.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	appLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// openStore prefers Redis and falls back to an in-process cache.
func openStore(ctx context.Context, url string, log logger.ILogger) (cache.Store, func()) {
	if url == "" {
		return cache.NewMemoryStore(), func() {}
	}
	rs, err := cache.NewRedisStore(ctx, url)
	if err != nil {
		log.Warning("redis unavailable, using in-memory cache", logger.Error(err))
		return cache.NewMemoryStore(), func() {}
	}
	return rs, func() { rs.Close() }
}
