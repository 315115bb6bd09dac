// cmd/contact-gateway/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"contact-gateway/internal/botcheck"
	"contact-gateway/internal/common/config"
	"contact-gateway/internal/common/database"
	"contact-gateway/internal/common/logger"
	"contact-gateway/internal/csrf"
	"contact-gateway/internal/models"
	"contact-gateway/internal/notify"
	"contact-gateway/internal/pipeline"
	"contact-gateway/internal/ratelimit"
	"contact-gateway/internal/router"
	"contact-gateway/internal/sanitize"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootstrap := logger.New("info", "console")
		bootstrap.Fatal("config load failed", zap.Error(err))
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()

	// Wrap zap logger with our logger interface
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting contact gateway...",
		zap.String("environment", cfg.App.Environment),
		zap.String("version", cfg.App.Version),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Init Stores ---
	var rateStore ratelimit.Store
	var tokenStore csrf.TokenStore

	if cfg.Database.Redis.Enabled {
		var redis *database.RedisClient
		err = retryWithBackoff(func() error {
			var err error
			redis, err = database.NewRedis(cfg.Database.Redis)
			if err != nil {
				return err
			}
			// Test the connection with context
			return redis.Ping(ctx)
		}, 10, 2*time.Second, zapLog, "Redis connection")

		if err != nil {
			zapLog.Fatal("redis failed after retries", zap.Error(err))
		}
		defer redis.Close()
		zapLog.Info("Redis connected successfully")

		rateStore = ratelimit.NewRedisStore(redis.GetClient())
		tokenStore = csrf.NewRedisStore(redis.GetClient())
	} else {
		memRate := ratelimit.NewMemoryStore()
		memRate.StartJanitor(ctx)

		memTokens := csrf.NewMemoryStore()
		memTokens.StartJanitor(ctx, time.Minute)

		rateStore = memRate
		tokenStore = memTokens
		zapLog.Info("Using in-process stores (redis disabled)")
	}

	// --- Init Security Components ---
	guard := csrf.NewGuard(tokenStore, config.GetDuration(cfg.Security.Forgery.TokenTTL), log)

	limiter := ratelimit.NewLimiter(rateStore,
		ratelimit.TiersFromConfig(cfg.Security.RateLimit.Tiers), log)

	verifier := botcheck.NewVerifier(botcheck.ConfigFrom(cfg.Security.Recaptcha), log)

	// --- Init Notification Senders ---
	var senders []notify.Sender

	if cfg.Notifications.Email.Enabled {
		if cfg.Notifications.SMTP.Host != "" {
			senders = append(senders, notify.NewSMTPSender(cfg.Notifications, cfg.Notifications.Email.ToEmail))
			zapLog.Info("SMTP sender enabled", zap.String("host", cfg.Notifications.SMTP.Host))
		} else {
			ses, err := notify.NewSESSender(ctx, cfg.Notifications.AWS.Region,
				cfg.Notifications.Email.FromEmail, cfg.Notifications.Email.ToEmail)
			if err != nil {
				zapLog.Fatal("ses sender init failed", zap.Error(err))
			}
			senders = append(senders, ses)
			zapLog.Info("SES sender enabled", zap.String("region", cfg.Notifications.AWS.Region))
		}
	}

	if cfg.Notifications.SMS.Enabled {
		sns, err := notify.NewSNSSender(ctx, cfg.Notifications.AWS.Region, cfg.Notifications.SMS.ToPhone)
		if err != nil {
			zapLog.Fatal("sns sender init failed", zap.Error(err))
		}
		senders = append(senders, sns)
		zapLog.Info("SNS sender enabled")
	}

	dispatcher := notify.NewDispatcher(senders, config.GetDuration(cfg.Notifications.Timeout), log)

	// --- Init Submission Pipeline (JSON API flow) ---
	p := pipeline.New(
		limiter,
		guard,
		sanitize.New(),
		verifier,
		dispatcher,
		pipeline.Hooks{},
		cfg.Forms.DefaultCategory,
		log,
	)
	apiHandler := pipeline.NewHandler(p, guard, cfg.Security.Forgery, log)

	// --- Init Category Router (form-action flow) ---
	rt := router.New(cfg.Forms, guard, router.Hooks{
		HandlerFactory: func(context.Context) router.SubmissionHandler {
			return func(ctx context.Context, record models.SubmissionRecord, _ config.CategoryConfig) error {
				dispatcher.Dispatch(ctx, record)
				return nil
			}
		},
	}, log)
	formHandler := router.NewHandler(rt, cfg.Security.Forgery, log)

	// --- HTTP Server ---
	mux := http.NewServeMux()
	mux.Handle("/api/contact", apiHandler)
	mux.Handle(rt.BasePath()+"/", formHandler)
	mux.Handle(rt.BasePath(), formHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      mux,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("address", cfg.Server.Address))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLog.Info("Shutdown signal received, draining...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(),
		config.GetDuration(cfg.Server.ShutdownTimeout))
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("graceful shutdown failed", zap.Error(err))
	}

	zapLog.Info("Contact gateway stopped")
}
