package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"evidex/blob"
	"evidex/config"
	"evidex/db"
	"evidex/handlers"
	"evidex/intake"
	"evidex/oracle"
	"evidex/pipeline"
	"evidex/submission"

	"github.com/joho/godotenv"
)

const submissionRetention = time.Hour

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		fmt.Fprintln(os.Stderr, "Failed to load configuration:", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.Logging)
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	timeout, err := cfg.OracleTimeout()
	if err != nil {
		return err
	}

	gemini, err := oracle.NewGemini(ctx, oracle.GeminiConfig{
		APIKey:            cfg.Gemini.APIKey,
		Backend:           cfg.Gemini.Backend,
		Project:           cfg.Gemini.Project,
		Location:          cfg.Gemini.Location,
		Model:             cfg.Gemini.Model,
		Timeout:           timeout,
		RequestsPerMinute: cfg.Gemini.RequestsPerMinute,
	}, logger)
	if err != nil {
		return err
	}

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := store.Close(closeCtx); err != nil {
			logger.Warn("Failed to close store", "error", err)
		}
	}()

	blobs, err := openBlobs(ctx, cfg.Blob, logger)
	if err != nil {
		return err
	}

	repo := db.NewAnalysisRepository(store, logger)
	transcriber := pipeline.NewTranscriber(gemini, cfg.Gemini.TranscribeModel, logger)
	detector := pipeline.NewDetector(gemini, logger)
	analyzer := pipeline.NewAnalyzer(gemini, transcriber, logger)
	orchestrator := pipeline.NewOrchestrator(detector, analyzer, repo, logger)
	submissions := submission.NewRegistry(orchestrator, logger)

	api := handlers.New(handlers.Deps{
		Intake:         intake.New(blobs, cfg.MaxUploadBytes(), logger),
		Detector:       detector,
		Transcriber:    transcriber,
		Analyses:       repo,
		Submissions:    submissions,
		Blobs:          blobs,
		Store:          store,
		MaxUploadBytes: cfg.MaxUploadBytes(),
		AllowedOrigins: cfg.AllowedOrigins(),
		Logger:         logger,
	})

	go pruneSubmissions(ctx, submissions, logger)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           api.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server running", "addr", "http://localhost:"+cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP shutdown incomplete", "error", err)
	}
	if err := submissions.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Submissions still running at shutdown", "error", err)
	}
	return nil
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (db.Store, error) {
	switch cfg.Backend {
	case "memory":
		logger.Warn("Using in-memory store, analyses will not survive a restart")
		return db.NewMemory(), nil
	case "firestore":
		return db.NewFirestore(ctx, cfg.FirestoreProject, logger)
	default:
		m, err := db.NewMongo(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			return nil, err
		}
		if err := m.EnsureIndexes(ctx); err != nil {
			logger.Warn("Failed to create indexes", "error", err)
		}
		return m, nil
	}
}

func openBlobs(ctx context.Context, cfg config.BlobConfig, logger *slog.Logger) (blob.Store, error) {
	switch cfg.Backend {
	case "gcs":
		return blob.NewGCS(ctx, cfg.Bucket, logger)
	default:
		return blob.NewLocal(cfg.Dir)
	}
}

func pruneSubmissions(ctx context.Context, reg *submission.Registry, logger *slog.Logger) {
	ticker := time.NewTicker(10 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := reg.Prune(submissionRetention); n > 0 {
				logger.Debug("Pruned finished submissions", "count", n)
			}
		}
	}
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
