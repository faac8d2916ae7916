package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/nijaru/yt-audio/artifact"
	"github.com/nijaru/yt-audio/config"
	"github.com/nijaru/yt-audio/handlers/api"
	"github.com/nijaru/yt-audio/logger"
	"github.com/nijaru/yt-audio/proxy"
	"github.com/nijaru/yt-audio/repository/sqlite"
	"github.com/nijaru/yt-audio/retry"
	"github.com/nijaru/yt-audio/services/playlist"
	"github.com/nijaru/yt-audio/services/video"
	"github.com/nijaru/yt-audio/storage"
	"github.com/nijaru/yt-audio/ytdlp"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	appLogger, err := logger.New(cfg.LogDir, cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	ctx := context.Background()

	// Resolve proxy once; incomplete settings only warn
	endpoint, err := proxy.Config{
		Host:      cfg.Proxy.Host,
		Port:      cfg.Proxy.Port,
		Username:  cfg.Proxy.Username,
		Password:  cfg.Proxy.Password,
		UserAgent: cfg.Proxy.UserAgent,
	}.Resolve()
	switch {
	case !endpoint.Enabled():
		appLogger.Info("No proxy configured, calling upstream directly")
	case err != nil:
		appLogger.WithError(err).Warn("Proxy not fully configured")
	default:
		appLogger.WithField("proxy", endpoint.Redacted()).Info("Routing upstream calls through proxy")
	}

	// Initialize database
	dbCfg := sqlite.DefaultDBConfig()
	dbCfg.MaxConnections = cfg.Database.MaxConnections
	dbCfg.MaxIdleConnections = cfg.Database.MaxIdleConnections
	dbCfg.ConnMaxLifetime = cfg.Database.ConnMaxLifetime

	db, err := sqlite.Open(ctx, cfg.Database.Path, dbCfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	defer db.Close()

	repo := sqlite.NewRepository(db)

	// Optional remote copy of artifacts
	var mirror *storage.SpacesClient
	if cfg.Spaces.Enabled {
		mirror, err = storage.NewSpacesClient(ctx, storage.SpacesConfig{
			AccessKey: cfg.Spaces.AccessKey,
			SecretKey: cfg.Spaces.SecretKey,
			Region:    cfg.Spaces.Region,
			Endpoint:  cfg.Spaces.Endpoint,
			Bucket:    cfg.Spaces.Bucket,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize Spaces client")
		}
	}

	runner := ytdlp.NewRunner(ytdlp.Config{
		Path:  cfg.Video.YtdlpPath,
		Proxy: endpoint,
	}, appLogger)

	fetcher := retry.New(cfg.Retry.MaxRetries, cfg.Retry.Delay, appLogger)

	lifecycle := newLifecycle(appLogger, mirror)
	defer lifecycle.Stop()

	queue := video.NewJobQueue(cfg.Video.Workers, cfg.Video.QueueSize, cfg.Video.ProcessTimeout, appLogger)
	defer queue.Close()

	videoOpts := []video.Option{video.WithLogger(appLogger)}
	if mirror != nil {
		videoOpts = append(videoOpts, video.WithUploader(mirror))
	}

	videoService := video.NewService(
		repo,
		runner,
		fetcher,
		queue,
		lifecycle,
		video.Config{
			TempDir:        cfg.TempDir,
			AppURL:         cfg.AppURL,
			ArtifactTTL:    cfg.Video.ArtifactTTL,
			ProcessTimeout: cfg.Video.ProcessTimeout,
		},
		videoOpts...,
	)

	var lister playlist.Lister = runner
	if cfg.Video.PlaylistBackend == config.PlaylistBackendLibrary {
		lister = ytdlp.NewLibraryLister(endpoint, appLogger)
	}
	playlistService := playlist.NewService(repo, lister, fetcher, appLogger)

	server := api.NewServer(cfg,
		api.WithLogger(appLogger),
		api.WithServices(videoService, playlistService),
	)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			appLogger.WithError(err).Error("Server shutdown error")
		}
	}()

	if err := server.Start(); err != nil && err != http.ErrServerClosed {
		appLogger.WithError(err).Fatal("Server error")
	}

	<-done
	appLogger.Info("Server stopped")
}

// newLifecycle avoids handing a typed nil mirror to the lifecycle.
func newLifecycle(logger *logrus.Logger, mirror *storage.SpacesClient) *artifact.TTLLifecycle {
	if mirror == nil {
		return artifact.NewTTLLifecycle(logger, nil)
	}
	return artifact.NewTTLLifecycle(logger, mirror)
}
