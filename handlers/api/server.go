package api

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/nijaru/yt-audio/config"
	"github.com/nijaru/yt-audio/middleware"
	"github.com/nijaru/yt-audio/services/playlist"
	"github.com/nijaru/yt-audio/services/video"
	"github.com/nijaru/yt-audio/validation"
	"github.com/sirupsen/logrus"
)

type Server struct {
	video     *VideoHandler
	playlist  *PlaylistHandler
	config    *config.Config
	logger    *logrus.Logger
	server    *http.Server
	startTime time.Time
}

type ServerOption func(*Server)

// NewServer creates a new API server with the provided services and options
func NewServer(cfg *config.Config, opts ...ServerOption) *Server {
	s := &Server{
		config:    cfg,
		logger:    logrus.StandardLogger(),
		startTime: time.Now(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.server = &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      s.routes(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return s
}

// WithLogger sets a custom logger for the server. It must precede
// WithServices.
func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithServices sets up the handlers with the provided services
func WithServices(videoSvc video.Service, playlistSvc playlist.Service) ServerOption {
	return func(s *Server) {
		validator := validation.NewValidator()
		s.video = NewVideoHandler(videoSvc, validator, s.logger)
		s.playlist = NewPlaylistHandler(playlistSvc, validator, s.logger)
	}
}

// Handler exposes the routed middleware stack.
func (s *Server) Handler() http.Handler {
	return s.server.Handler
}

func (s *Server) Start() error {
	s.logger.WithField("port", s.config.ServerPort).Info("Starting server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	if s.video != nil {
		mux.HandleFunc("GET /youtube/video/info", s.video.HandleGetVideoInfo)
		mux.HandleFunc("GET /youtube/info", s.video.HandleGetVideoInfo)
	}
	if s.playlist != nil {
		mux.HandleFunc("GET /youtube/playlist", s.playlist.HandleGetPlaylist)
	}

	mux.HandleFunc("GET /temp/{name}", s.handleArtifact)
	mux.HandleFunc("GET /health", s.handleHealth)

	return s.middleware(mux)
}

func (s *Server) middleware(handler http.Handler) http.Handler {
	var rateLimiter middleware.RateLimiter
	if s.config.RateLimit.Enabled {
		rateLimiter = middleware.NewRateLimiter(
			s.config.RateLimit.RequestsPerMinute,
			s.config.RateLimit.BurstSize,
		)
	}

	middlewares := []func(http.Handler) http.Handler{
		middleware.Recovery(s.logger),
		middleware.RequestID(),
		middleware.Logging(s.logger),
		middleware.CORS(s.config.CORS),
		middleware.Timeout(s.config.RequestTimeout),
	}

	if rateLimiter != nil {
		middlewares = append(middlewares, rateLimiter.Middleware)
	}

	return middleware.Chain(handler, middlewares...)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"version":   s.config.Version,
		"uptime":    time.Since(s.startTime).String(),
	}

	if s.config.Debug {
		status["debug"] = true
		status["goroutines"] = runtime.NumGoroutine()
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		status["memory"] = map[string]interface{}{
			"allocated": m.Alloc,
			"total":     m.TotalAlloc,
			"system":    m.Sys,
			"gc_cycles": m.NumGC,
		}
	}

	writeJSON(w, http.StatusOK, status)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
