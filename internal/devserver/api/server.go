// Package api is the HTTP surface of the development backend.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/propscan/internal/devserver/accounts"
	"github.com/dmitrijs2005/propscan/internal/logging"
	"github.com/dmitrijs2005/propscan/internal/metrics"
	"github.com/gorilla/mux"
)

type Server struct {
	address  string
	accounts *accounts.Service
	log      logging.Logger
	metrics  *metrics.HTTPCollector
	latency  time.Duration
	router   *mux.Router
}

type Option func(*Server)

// WithLatency delays every response by d.
func WithLatency(d time.Duration) Option {
	return func(s *Server) { s.latency = d }
}

func NewServer(address string, svc *accounts.Service, log logging.Logger, m *metrics.HTTPCollector, opts ...Option) *Server {
	s := &Server{
		address:  address,
		accounts: svc,
		log:      log.With("module", "http_server"),
		metrics:  m,
	}
	for _, o := range opts {
		o(s)
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	if s.metrics != nil {
		r.Use(s.metrics.Middleware())
		r.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	}
	r.Use(s.logRequests())

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := r.NewRoute().Subrouter()
	api.Use(s.withLatency())
	api.HandleFunc("/auth/register", s.handleRegister).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)

	private := api.NewRoute().Subrouter()
	private.Use(s.requireAuth)
	private.HandleFunc("/users/me", s.handleProfile).Methods(http.MethodGet)
	private.HandleFunc("/users/me/usage", s.handleUsage).Methods(http.MethodPost)
	private.HandleFunc("/scans", s.handleScan).Methods(http.MethodPost)
	private.HandleFunc("/scans/history", s.handleHistory).Methods(http.MethodGet)
	private.HandleFunc("/compare", s.handleCompare).Methods(http.MethodPost)
	private.HandleFunc("/ask", s.handleAsk).Methods(http.MethodPost)

	return r
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.address, err)
	}

	srv := &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.log.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
