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

	"nrm-schedules/internal/ai"
	"nrm-schedules/internal/cache"
	"nrm-schedules/internal/config"
	"nrm-schedules/internal/database"
	"nrm-schedules/internal/drawings"
	"nrm-schedules/internal/events"
	"nrm-schedules/internal/handlers"
	"nrm-schedules/internal/pipeline"
	"nrm-schedules/internal/server"
	"nrm-schedules/internal/storage"
	"nrm-schedules/internal/wizard"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg := config.Load()
	config.SetLogLevel(cfg.LogLevel)
	logger := config.GetLogger()

	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	database.Init(cfg.DBDSN)
	if sqlDB, err := database.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	rdb, err := cache.Connect(sigCtx, cfg.RedisAddress)
	if err != nil {
		logger.WithError(err).Fatal("redis unavailable")
	}
	defer rdb.Close()

	blobs, closeBlobs := openBlobStore(sigCtx, cfg)
	defer closeBlobs()

	publisher, closePublisher := openPublisher(sigCtx, cfg)
	defer closePublisher()

	classifier := ai.NewClient(ai.Config{
		BaseURL:    cfg.AIBaseURL,
		APIKey:     cfg.AIAPIKey,
		Model:      cfg.AIModel,
		MaxTokens:  cfg.AIMaxTokens,
		GroupBatch: cfg.AIGroupBatch,
		Timeout:    cfg.AITimeout,
	})

	svc := pipeline.NewService(
		database.NewScheduleRepo(database.DB),
		blobs,
		wizard.NewRedisStore(rdb, cfg.WizardTTL),
		classifier,
		cache.NewLocker(rdb),
		publisher,
		pipeline.Options{MaxUploadBytes: cfg.MaxUploadBytes, LockTTL: cfg.LockTTL},
	)

	handlers.Configure(handlers.Services{
		Config:   cfg,
		Pipeline: svc,
		Blobs:    blobs,
		Splitter: drawings.NewSplitter(cfg.PDFWorkers),
		Events:   publisher,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.ServerPort),
		Handler:           server.NewRouter(cfg),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()
	logger.WithField("addr", srv.Addr).Info("server started")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Error("server stopped unexpectedly")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("graceful shutdown failed")
	}
}

func openBlobStore(ctx context.Context, cfg *config.Config) (storage.Store, func()) {
	if cfg.StorageProvider == config.StorageProviderMemory {
		config.GetLogger().Warn("using in-memory blob store; uploads are lost on restart")
		return storage.NewMemoryStore(), func() {}
	}
	gcs, err := storage.NewGCSStore(ctx, cfg.GCSBucket, cfg.GCSCredentials)
	if err != nil {
		config.GetLogger().WithError(err).Fatal("gcs unavailable")
	}
	return gcs, func() { _ = gcs.Close() }
}

// openPublisher falls back to logging events when no Pub/Sub topic is configured.
func openPublisher(ctx context.Context, cfg *config.Config) (events.Publisher, func()) {
	if cfg.PubSubProjectID == "" || cfg.PubSubTopic == "" {
		return events.LogPublisher{}, func() {}
	}
	pub, err := events.NewPubSubPublisher(ctx, cfg.PubSubProjectID, cfg.PubSubTopic)
	if err != nil {
		config.GetLogger().WithFields(logrus.Fields{
			"project": cfg.PubSubProjectID,
			"topic":   cfg.PubSubTopic,
		}).Warn("pubsub unavailable, logging events instead: " + err.Error())
		return events.LogPublisher{}, func() {}
	}
	return pub, func() { _ = pub.Close() }
}
