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

	"go.uber.org/zap"

	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/config"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/domain"
	logpkg "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/logger"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/metrics"
	chiTransport "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/transport/chi"
	bucketuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/bucket"
	entryuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/entry"
	healthuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/health"
	searchuc "github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/usecase/search"
	"github.com/sckwokyboom/Cloudberry-Storage-Any-Modal/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting "+version.String(),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
	)

	metrics.Register()

	ctx := context.Background()

	storage, err := openStorage(ctx, &cfg, logger)
	if err != nil {
		logger.Fatal("Failed to open vector store", zap.Error(err))
	}
	defer storage.close()
	logger.Info("Connected to vector store")

	collab, err := buildCollaborators(&cfg, storage.kv, logger)
	if err != nil {
		logger.Fatal("Failed to build collaborators", zap.Error(err))
	}
	defer collab.close()

	bucketSvc := bucketuc.New(storage.buckets, logger)
	entrySvc := entryuc.New(storage.buckets, storage.points, entryuc.Collaborators{
		Text:       collab.text,
		Multimodal: collab.multimodal,
		OCR:        collab.ocr,
	}, entryuc.Config{
		EmbedParallelism:   cfg.Ingest.EmbedParallelism,
		PruneStaleImages:   cfg.Ingest.PruneStaleImages,
		MaxAttachments:     cfg.Ingest.MaxAttachments,
		MaxAttachmentBytes: cfg.Ingest.MaxAttachmentBytes,
	}, logger)
	searchSvc := searchuc.New(storage.buckets, storage.points, searchuc.Collaborators{
		Text:       collab.text,
		Multimodal: collab.multimodal,
		Translator: collab.translator,
	}, searchuc.Config{
		DefaultTopK:    cfg.Search.DefaultTopK,
		MaxTopK:        cfg.Search.MaxTopK,
		TargetLang:     cfg.Translator.TargetLang,
		ExtendedFusion: cfg.Search.ExtendedFusion,
	}, logger)
	healthSvc := healthuc.New(storage.pinger,
		healthuc.WithChecker(domain.CollaboratorTextEmbedder, collab.text),
		healthuc.WithChecker(domain.CollaboratorMultimodalEmbedder, collab.multimodal),
	)

	server := chiTransport.NewServer(bucketSvc, entrySvc, searchSvc, healthSvc)
	handler := chiTransport.NewRouter(server, chiTransport.RouterConfig{
		APIKeys:      cfg.Auth.APIKeys,
		Workers:      cfg.Limits.MaxConcurrentRequests,
		QueueTimeout: cfg.Limits.QueueTimeout(),
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
		Logger:       logger,
	})

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout:      time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
