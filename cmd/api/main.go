//	@title			Dropbox Relay API
//	@version		1.0
//	@description	Uploads files to Dropbox through a local staging buffer and streams them back.
//
//	@host		localhost:3000
//	@BasePath	/

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/droprelay/service/internal/config"
	"github.com/droprelay/service/internal/file"
	"github.com/droprelay/service/internal/logger"
	"github.com/droprelay/service/internal/staging"
	"github.com/droprelay/service/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("invalid configuration: " + err.Error())
		os.Exit(1)
	}

	log := logger.New(&logger.Config{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		Output: os.Stdout,
	})
	logger.SetGlobal(log)
	ctx := log.WithContext(context.Background())

	buf, err := staging.New(cfg.StagingDir, cfg.MaxUploadBytes)
	if err != nil {
		log.Fatalf("staging buffer init failed: %v", err)
	}
	if n, err := buf.Sweep(); err != nil {
		log.Fatalf("staging sweep failed: %v", err)
	} else if n > 0 {
		log.Infof("removed %d leftover staged files from %s", n, cfg.StagingDir)
	}

	store, err := newStorage(ctx, cfg)
	if err != nil {
		log.Fatalf("object storage init failed: %v", err)
	}

	// Wire dependencies: storage → service → handler
	fileSvc := file.NewService(store, buf, cfg.RemoteTimeout)
	fileHandler := file.NewHandler(fileSvc, cfg.MaxUploadBytes)

	// No write timeout: downloads stream for as long as the remote store does.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, log, fileHandler),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// Start server in goroutine; wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Infof("server running at http://localhost:%s (env=%s, storage=%s)", cfg.Port, cfg.AppEnv, cfg.StorageProvider)
		log.Infof("swagger UI at http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	<-quit
	log.Info("shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func newStorage(ctx context.Context, cfg *config.Config) (storage.Storage, error) {
	switch cfg.StorageProvider {
	case config.ProviderMinio:
		return storage.NewMinioStorage(ctx,
			cfg.StorageEndpoint,
			cfg.StorageAccessKey,
			cfg.StorageSecretKey,
			cfg.StorageBucket,
			cfg.StorageUseSSL,
		)
	case config.ProviderMemory:
		return storage.NewMemoryStorage(), nil
	default:
		return storage.NewDropboxStorage(cfg.DropboxAccessToken, cfg.DropboxContentURL), nil
	}
}
