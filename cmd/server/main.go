package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parcel-backend/internal/auth"
	"parcel-backend/internal/cache"
	"parcel-backend/internal/config"
	"parcel-backend/internal/database"
	"parcel-backend/internal/db"
	"parcel-backend/internal/events"
	"parcel-backend/internal/handlers"
	"parcel-backend/internal/health"
	h "parcel-backend/internal/http"
	"parcel-backend/internal/logger"
	"parcel-backend/internal/middleware"
	"parcel-backend/internal/models"
	"parcel-backend/internal/repositories"
	"parcel-backend/internal/services"
	"parcel-backend/internal/storage"
	"parcel-backend/migrations"
	"parcel-backend/pkg/utils"

	log "github.com/sirupsen/logrus"
)

// openStore connects to Postgres and applies pending migrations, or returns
// the in-memory store for local runs.
func openStore(ctx context.Context, cfg *config.Config) (repositories.Store, func(), error) {
	if cfg.Database.InMemory {
		log.Println("[DB] Using in-memory store, data is lost on restart")
		return repositories.NewMemoryStore(), func() {}, nil
	}

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	migrator := database.NewMigratorWithFS(pool, migrations.FS, ".")
	if err := migrator.RunMigrations(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return repositories.NewSQLStore(pool), pool.Close, nil
}

func main() {
	cfg := config.Load()
	logger.Setup(cfg)
	utils.SetProduction(cfg.IsProduction())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("[DB] %v", err)
	}
	defer closeStore()

	var cacheUp func() bool
	if cfg.Redis.Enabled {
		if err := cache.Init(cfg); err != nil {
			log.Printf("[Redis] Unavailable, report caching disabled: %v", err)
		} else {
			log.Printf("[Redis] Connected to %s:%s", cfg.Redis.Host, cfg.Redis.Port)
			cacheUp = cache.IsHealthy
		}
		defer cache.Close()
	}

	hub := events.NewHub()
	go hub.Run(ctx)

	jwtManager := auth.NewJWTManager(cfg)
	ids := services.NewIdentifierGenerator()
	lifecycle := services.NewLifecycleEngine(store, hub)
	printer := services.NewPrintService(cfg.Booking.PrintHeader)

	bookingService := services.NewBookingService(store, ids, lifecycle, cfg.Booking.MaxCreateAttempts)
	manifestService := services.NewManifestService(store, ids, lifecycle, printer, cfg.Booking.MaxManifestAttempts)
	voucherService := services.NewVoucherService(store, ids, lifecycle)
	reportService := services.NewReportService(store, time.Duration(cfg.Redis.ReportTTLSeconds)*time.Second)

	archiver, err := storage.NewArchiver(ctx, cfg)
	if err != nil {
		log.Printf("[Storage] Manifest archiving disabled: %v", err)
	} else if archiver != nil {
		manifestService.SetArchive(archiver)
		log.Printf("[Storage] Archiving manifests to bucket %s", cfg.Storage.Bucket)
	}

	router := h.NewRouter(
		handlers.NewBookingHandler(bookingService, printer),
		handlers.NewManifestHandler(manifestService, models.DirectionLoading),
		handlers.NewManifestHandler(manifestService, models.DirectionUnloading),
		handlers.NewVoucherHandler(voucherService),
		handlers.NewReportHandler(reportService),
		handlers.NewEventsHandler(hub),
		handlers.NewHealthHandler(health.NewHealthChecker(store, cacheUp)),
		middleware.NewAuthMiddleware(jwtManager),
	)

	// Wrap with panic recovery and CORS
	handler := middleware.PanicRecovery(middleware.NewCORS(cfg)(router))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("Server running on %s (env: %s)", srv.Addr, cfg.Server.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Graceful shutdown failed: %v", err)
	}
}
