// Package control exposes a jukebox over an HTTP JSON API.
package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zurustar/gofluid/pkg/jukebox"
)

// DefaultAddr is the listen address used when Config.Addr is empty.
const DefaultAddr = "127.0.0.1:8765"

const shutdownTimeout = 5 * time.Second

// Jukebox is the part of jukebox.Jukebox the server drives.
type Jukebox interface {
	Playlist() []string
	Play() error
	Pause() error
	Stop() error
	SetRepeat(n int) error
	SetTempoBPM(bpm *int) error
	SetMIDITempo(micros *int) error
	Tempo() (jukebox.Tempo, bool, error)
	Status() jukebox.Status
}

// Config holds server configuration
type Config struct {
	Addr   string
	Logger *slog.Logger
	// AccessLog enables the chi request logger.
	AccessLog bool
}

// Server is the HTTP control server
type Server struct {
	config Config
	router *chi.Mux
	jb     Jukebox
	logger *slog.Logger
}

// New creates a server for jb.
func New(jb Jukebox, cfg Config) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		config: cfg,
		router: chi.NewRouter(),
		jb:     jb,
		logger: logger,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	r := s.router

	if s.config.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Get("/playlist", s.handlePlaylist)
	r.Get("/status", s.handleStatus)
	r.Get("/tempo", s.handleGetTempo)

	r.Post("/play", s.handleTransport(s.jb.Play))
	r.Post("/pause", s.handleTransport(s.jb.Pause))
	r.Post("/stop", s.handleTransport(s.jb.Stop))

	r.Put("/repeat", s.handleRepeat)
	r.Put("/tempo", s.handlePutTempo)
}

// Handler returns the router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.config.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:      s.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()

		s.logger.Info("shutting down control server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("shutdown error", "error", err)
		}
	}()

	s.logger.Info("control server listening", "addr", ln.Addr().String())
	if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
