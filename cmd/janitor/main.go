// Janitor runs the periodic expiry sweeps: expired sessions and refresh
// tokens, closed rate-limit windows, and stale brute-force records.
// Set DATABASE_URL; CLEANUP_INTERVAL and CLEANUP_BATCH_SIZE tune the sweeps.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"stayhub/backend/internal/audit"
	auditrepo "stayhub/backend/internal/audit/repository"
	bruteforcerepo "stayhub/backend/internal/bruteforce/repository"
	bruteforce "stayhub/backend/internal/bruteforce/service"
	"stayhub/backend/internal/config"
	"stayhub/backend/internal/db"
	ratelimitrepo "stayhub/backend/internal/ratelimit/repository"
	ratelimit "stayhub/backend/internal/ratelimit/service"
	sessionrepo "stayhub/backend/internal/session/repository"
	session "stayhub/backend/internal/session/service"
	"stayhub/backend/internal/telemetry"
	otelsetup "stayhub/backend/internal/telemetry/otel"
	"stayhub/backend/internal/telemetry/producer"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("janitor: DATABASE_URL is required")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("janitor: shutting down...")
		cancel()
	}()

	providers, err := otelsetup.NewProviders(ctx, cfg.OTLPEndpoint, "stayhub-janitor", cfg.OTLPInsecure)
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = providers.Shutdown(shutdownCtx)
	}()

	pool, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	kafkaProducer, err := producer.NewKafkaProducer(cfg.SecurityKafkaBrokersList(), cfg.SecurityKafkaTopic)
	if err != nil {
		log.Fatalf("kafka: %v", err)
	}
	defer kafkaProducer.Close()

	events := telemetry.NewFanout(
		otelsetup.NewEventEmitter(providers.LoggerProvider),
		audit.NewRecorder(auditrepo.NewPostgresRepository(pool)),
		kafkaProducer,
	)

	store := session.NewSessionStore(sessionrepo.NewPostgresRepository(pool), events, cfg.AccessTTL(), cfg.RefreshTTL())
	store.SetCleanupBatchSize(cfg.CleanupBatchSize)

	limiter := ratelimit.NewLimiter(ratelimitrepo.NewPostgresRepository(pool), nil)
	limiter.SetRetention(cfg.Retention())
	limiter.SetCleanupBatchSize(cfg.CleanupBatchSize)

	guard := bruteforce.NewGuard(bruteforcerepo.NewPostgresRepository(pool), events, cfg.LockoutThreshold, cfg.Lockout())
	guard.SetCleanupBatchSize(cfg.CleanupBatchSize)

	meter := providers.MeterProvider.Meter("stayhub.janitor")
	swept, err := meter.Int64Counter("janitor.rows_swept",
		metric.WithDescription("Rows removed or deactivated by expiry sweeps, by kind."))
	if err != nil {
		log.Fatalf("telemetry: %v", err)
	}
	tracer := providers.TracerProvider.Tracer("stayhub.janitor")

	sweep := func(ctx context.Context) {
		ctx, span := tracer.Start(ctx, "janitor.sweep")
		defer span.End()

		if report, err := store.CleanupExpiredSessions(ctx); err != nil {
			log.Printf("janitor: session cleanup: %v", err)
		} else {
			swept.Add(ctx, report.SessionsDeactivated, metric.WithAttributes(attribute.String("kind", "sessions")))
			swept.Add(ctx, report.RefreshTokensDeleted, metric.WithAttributes(attribute.String("kind", "refresh_tokens")))
			if report.SessionsDeactivated > 0 || report.RefreshTokensDeleted > 0 {
				log.Printf("janitor: deactivated %d sessions, deleted %d refresh tokens",
					report.SessionsDeactivated, report.RefreshTokensDeleted)
			}
		}

		if report, err := limiter.Cleanup(ctx); err != nil {
			log.Printf("janitor: rate limit cleanup: %v", err)
		} else {
			swept.Add(ctx, report.Deleted, metric.WithAttributes(attribute.String("kind", "rate_limits")))
			if report.Deleted > 0 {
				log.Printf("janitor: deleted %d rate limit entries before %s",
					report.Deleted, report.Cutoff.Format(time.RFC3339))
			}
		}

		if report, err := guard.Cleanup(ctx); err != nil {
			log.Printf("janitor: brute force cleanup: %v", err)
		} else {
			swept.Add(ctx, report.Deleted, metric.WithAttributes(attribute.String("kind", "brute_force")))
			if report.Deleted > 0 {
				log.Printf("janitor: deleted %d stale brute force records", report.Deleted)
			}
		}
	}

	interval := cfg.SweepInterval()
	log.Printf("janitor: sweeping every %s (batch size %d)", interval, cfg.CleanupBatchSize)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			// Give async event emits a moment to drain before exporters close.
			time.Sleep(telemetry.ShutdownDrainDuration)
			log.Println("janitor: stopped")
			return
		case <-ticker.C:
			sweep(ctx)
		}
	}
}
