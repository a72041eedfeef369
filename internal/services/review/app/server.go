// Package app wires the review runtime and HTTP lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mathagora/mathagora/internal/platform/config"
	reviewhttp "github.com/mathagora/mathagora/internal/services/review/api/http"
	"github.com/mathagora/mathagora/internal/services/review/domain"
	"github.com/mathagora/mathagora/internal/services/review/notify"
	reviewsqlite "github.com/mathagora/mathagora/internal/services/review/storage/sqlite"
)

const shutdownTimeout = 10 * time.Second

type serverEnv struct {
	DBPath            string  `env:"MATHAGORA_REVIEW_DB_PATH"`
	RatePerAgent      float64 `env:"MATHAGORA_REVIEW_RATE_PER_AGENT"`
	RateBurstPerAgent int     `env:"MATHAGORA_REVIEW_RATE_BURST"`
}

func loadServerEnv() serverEnv {
	var cfg serverEnv
	_ = config.ParseEnv(&cfg)
	if strings.TrimSpace(cfg.DBPath) == "" {
		cfg.DBPath = filepath.Join("data", "review.db")
	}
	if cfg.RatePerAgent <= 0 {
		cfg.RatePerAgent = 10
	}
	if cfg.RateBurstPerAgent <= 0 {
		cfg.RateBurstPerAgent = 20
	}
	return cfg
}

// Server hosts the review HTTP API and storage lifecycle.
type Server struct {
	listener   net.Listener
	httpServer *http.Server
	store      *reviewsqlite.Store
}

// New creates a configured review server listening on the provided port.
func New(port int) (*Server, error) {
	return NewWithAddr(fmt.Sprintf(":%d", port))
}

// NewWithAddr creates a configured review server for the provided address.
func NewWithAddr(addr string) (*Server, error) {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}
	srvEnv := loadServerEnv()
	store, err := openReviewStore(srvEnv.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	emitter := notify.NewEmitter(store, nil, nil)
	service := domain.NewService(store, emitter, nil, nil)
	handlers := reviewhttp.NewHandlers(service, emitter)
	limiter := reviewhttp.NewAgentLimiter(srvEnv.RatePerAgent, srvEnv.RateBurstPerAgent)
	router := reviewhttp.NewRouter(handlers, limiter)

	return &Server{
		listener:   listener,
		httpServer: &http.Server{Handler: router},
		store:      store,
	}, nil
}

// Addr returns the listener address for the server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a review server until context cancellation.
func Run(ctx context.Context, port int) error {
	server, err := New(port)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the HTTP server until context cancellation.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("review server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.httpServer.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown HTTP server: %w", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve HTTP: %w", err)
	}
}

// Close releases review server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	if s.httpServer != nil {
		_ = s.httpServer.Close()
	}
	if s.listener != nil {
		_ = s.listener.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			log.Printf("close review store: %v", err)
		}
	}
}

func openReviewStore(path string) (*reviewsqlite.Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage dir: %w", err)
		}
	}
	store, err := reviewsqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open review sqlite store: %w", err)
	}
	return store, nil
}
