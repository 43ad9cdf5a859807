package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/oceaniatours/passport-intake/internal/cache"
	"github.com/oceaniatours/passport-intake/internal/http/handlers"
	"github.com/oceaniatours/passport-intake/internal/mailer"
	"github.com/oceaniatours/passport-intake/internal/passport/edges"
	"github.com/oceaniatours/passport-intake/internal/passport/quality"
	"github.com/oceaniatours/passport-intake/internal/passport/recognition"
	"github.com/oceaniatours/passport-intake/internal/repo/postgres"
	"github.com/oceaniatours/passport-intake/internal/service"
	"github.com/oceaniatours/passport-intake/internal/storage"
	"github.com/oceaniatours/passport-intake/pkg/config"
	"github.com/oceaniatours/passport-intake/pkg/database"
	"github.com/oceaniatours/passport-intake/pkg/events"
	"github.com/oceaniatours/passport-intake/pkg/logger"
	mw "github.com/oceaniatours/passport-intake/pkg/middleware"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := newRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	eventBus, err := events.NewNATSEventBus(cfg.NATS.URL)
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer eventBus.Close()

	photos, err := storage.NewPhotoStore(cfg.Upload.Dir, cfg.Upload.TempDir, cfg.Upload.PublicPrefix)
	if err != nil {
		logger.Error("Failed to prepare upload directories", "error", err)
		os.Exit(1)
	}

	// Repositories
	touristRepo := postgres.NewTouristRepo(pool)
	ocrLogRepo := postgres.NewOCRLogRepo(pool)
	verifyRepo := postgres.NewVerifyRepo(pool)

	// Image pipeline
	analyzer := quality.NewAnalyzer(quality.Config{
		DarkPixelCutoff:   cfg.Detector.DarkPixelCutoff,
		BrightPixelCutoff: cfg.Detector.BrightPixelCutoff,
	})
	detector := edges.NewDetector(edges.Config{
		WorkingWidth:         cfg.Detector.WorkingWidth,
		BinarizeThreshold:    cfg.Detector.BinarizeThreshold,
		MarginRatio:          cfg.Detector.MarginRatio,
		MinSideRatio:         cfg.Detector.MinSideRatio,
		MinEdgeDensity:       cfg.Detector.MinEdgeDensity,
		MinGoodSides:         cfg.Detector.MinGoodSides,
		FallbackMinMean:      cfg.Detector.FallbackMinMean,
		FallbackMaxBright:    cfg.Detector.FallbackMaxBright,
		FallbackMaxDark:      cfg.Detector.FallbackMaxDark,
		FallbackDarkCutoff:   cfg.Detector.FallbackDarkCutoff,
		FallbackBrightCutoff: cfg.Detector.FallbackBrightCutoff,
		ContrastDelta:        cfg.Detector.ContrastDelta,
		ContrastSamples:      cfg.Detector.ContrastSamples,
		MinTransitionRatio:   cfg.Detector.MinTransitionRatio,
	})
	gateway := recognition.NewGateway(cfg.Recognition.APIKey, ocrLogRepo, recognition.Config{
		Model:         cfg.Recognition.Model,
		Timeout:       cfg.Recognition.Timeout,
		MaxTokens:     cfg.Recognition.MaxTokens,
		Temperature:   cfg.Recognition.Temperature,
		MaxImageWidth: cfg.Recognition.MaxImageWidth,
		JPEGQuality:   cfg.Recognition.JPEGQuality,
	})

	// Services
	limiter := cache.NewResendLimiter(redisClient, cfg.Verification.ResendInterval)
	verificationService := service.NewVerificationService(verifyRepo, touristRepo, limiter, newMailer(cfg.Email), eventBus, cfg.Verification)
	uploadService := service.NewUploadService(touristRepo, ocrLogRepo, verificationService, gateway, analyzer, detector, photos, eventBus)
	touristService := service.NewTouristService(touristRepo, ocrLogRepo, photos, eventBus, baseURL())

	// Sweep long-dead verification rows once an hour.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if n, err := verifyRepo.DeleteExpired(ctx); err != nil {
				logger.Warn("verification cleanup failed", "error", err)
			} else if n > 0 {
				logger.Info("expired verification rows removed", "count", n)
			}
		}
	}()

	// Handlers
	uploadHandler := handlers.NewUploadHandler(uploadService, cfg.Upload.MaxSizeBytes)
	verificationHandler := handlers.NewVerificationHandler(verificationService)
	adminHandler := handlers.NewAdminHandler(touristService, uploadService, cfg.Upload.MaxSizeBytes)

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("passport-intake"))
	r.Use(mw.Logging)
	r.Use(mw.CORS)
	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Mount("/upload", uploadHandler.Routes())
		r.Mount("/verification", verificationHandler.Routes())
		r.With(mw.RequireOperator(cfg.Auth.JWTSecret, "admin", "sales")).
			Mount("/admin", adminHandler.Routes())
	})

	// Stored passport photos
	fileServer := http.StripPrefix(cfg.Upload.PublicPrefix+"/", http.FileServer(http.Dir(photos.Dir())))
	r.Get(cfg.Upload.PublicPrefix+"/*", func(w http.ResponseWriter, req *http.Request) {
		fileServer.ServeHTTP(w, req)
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down passport intake service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Shutdown error", "error", err)
		}
	}()

	logger.Info("Starting passport intake service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

func newRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, err
	}
	if cfg.Password != "" {
		opt.Password = cfg.Password
	}
	if cfg.DB != 0 {
		opt.DB = cfg.DB
	}

	client := redis.NewClient(opt)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, err
	}
	return client, nil
}

func newMailer(cfg config.EmailConfig) mailer.Service {
	switch {
	case cfg.DevMode:
		logger.Info("Email dev mode: verification codes are printed to logs")
		return mailer.NewDevMailer()
	case cfg.MailerSendKey != "":
		return mailer.NewMailerSend(cfg.MailerSendKey, cfg.FromName, cfg.SMTPFrom)
	default:
		return mailer.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPFrom, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPUseTLS)
	}
}

func baseURL() string {
	if v := os.Getenv("PUBLIC_BASE_URL"); v != "" {
		return v
	}
	return "http://localhost:8080"
}
