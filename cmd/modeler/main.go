package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"plan-modeler/internal/common/config"
	"plan-modeler/internal/common/middleware"
	"plan-modeler/internal/common/tracing"
	"plan-modeler/internal/modeler/handlers"
	"plan-modeler/internal/modeler/mapper"
	"plan-modeler/internal/modeler/metrics"
	"plan-modeler/internal/modeler/repository"
	"plan-modeler/internal/modeler/service"
	"plan-modeler/internal/modeler/solid/scad"
	"plan-modeler/internal/modeler/storage"

	_ "github.com/joho/godotenv/autoload"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ============================================================
// Modeler Service
// ============================================================

func main() {
	cfg := config.Load()
	logger := newLogger(cfg.LogFormat)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pipeline, err := config.LoadPipeline(cfg.PipelinePath)
	if err != nil {
		log.Fatalf("load pipeline config: %v", err)
	}

	shutdownTracing, err := tracing.Init(ctx, cfg.Tracing, logger)
	if err != nil {
		logger.Error("tracing not started", "error", err)
	}

	// ============================================================
	// Storage
	// ============================================================

	db, err := repository.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	repo := repository.New(db)
	if err := repo.Init(ctx); err != nil {
		log.Fatalf("init db: %v", err)
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("init storage: %v", err)
	}

	var compiler *scad.Compiler
	if cfg.OpenSCADPath != "" {
		compiler, err = scad.NewCompiler(cfg.OpenSCADPath, filepath.Join(cfg.ArtifactDir, "openscad"))
		if err != nil {
			logger.Warn("openscad backend disabled", "error", err)
			compiler = nil
		}
	}

	// ============================================================
	// Metrics
	// ============================================================

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	pipelineMetrics, err := metrics.NewPipeline(reg)
	if err != nil {
		log.Fatalf("register pipeline metrics: %v", err)
	}
	httpMetrics, err := middleware.NewPrometheus(reg)
	if err != nil {
		log.Fatalf("register http metrics: %v", err)
	}

	svc := service.NewModelService(service.Options{
		Converter: mapper.New(pipeline.ConverterOptions(logger)),
		Repo:      repo,
		Store:     store,
		Compiler:  compiler,
		Metrics:   pipelineMetrics,
		Logger:    logger,
	})

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeout) * time.Second,
		BodyLimit:    cfg.BodyLimitMB * 1024 * 1024,
		ErrorHandler: handlers.ErrorHandler(),
		AppName:      "Plan Modeler",
	})

	// ============================================================
	// Global Middleware
	// ============================================================

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if cfg.LogFormat == "json" {
		app.Use(middleware.JSONLogger(os.Stdout))
	} else {
		app.Use(middleware.Logger())
	}
	app.Use(httpMetrics.Handler())
	app.Use(middleware.CORS(cfg.CORSOrigins))

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	handlers.RegisterRoutes(app, svc)

	// ============================================================
	// Server Start
	// ============================================================

	go func() {
		<-ctx.Done()
		log.Printf("Shutting down Plan Modeler")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Printf("server shutdown: %v", err)
		}
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	addr := fmt.Sprintf(":%s", cfg.Port)
	log.Printf("Starting Plan Modeler on %s (env: %s, storage: %s, openscad: %t)",
		addr, cfg.Environment, storageKind(cfg), compiler != nil)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func newLogger(format string) *slog.Logger {
	if format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, nil))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	if cfg.MinIO.Enabled() {
		return storage.NewMinIO(ctx, cfg.MinIO)
	}
	fs, err := storage.NewFileStorage(cfg.ArtifactDir)
	if err != nil {
		return nil, err
	}
	return fs, nil
}

func storageKind(cfg *config.Config) string {
	if cfg.MinIO.Enabled() {
		return "minio"
	}
	return "file"
}
