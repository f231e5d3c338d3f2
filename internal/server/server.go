// Package server exposes the ingestion and query pipeline over HTTP.
// Every endpoint sits behind bearer-token auth and a per-request
// timeout, and failures come back as a JSON error envelope.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/Sakthi-S29/trackwise/internal/logger"
	"github.com/Sakthi-S29/trackwise/internal/pipeline"
	"github.com/Sakthi-S29/trackwise/internal/vectorindex"
)

// Options configures the HTTP server
type Options struct {
	// Token is the required bearer token. Empty disables auth.
	Token string

	// Local switches the query response to the self-hosted shape.
	Local bool

	// Timeout bounds each request. Zero disables the per-request
	// deadline.
	Timeout time.Duration
}

// Server routes HTTP requests into the pipeline
type Server struct {
	ingestor *pipeline.Ingestor
	query    *pipeline.QueryService
	index    vectorindex.Store
	options  Options
	log      *logger.Logger
	mux      *http.ServeMux
}

// New creates a server over the pipeline components
func New(ingestor *pipeline.Ingestor, query *pipeline.QueryService, index vectorindex.Store, options Options, log *logger.Logger) *Server {
	if log == nil {
		log = logger.New("server", nil)
	}

	s := &Server{
		ingestor: ingestor,
		query:    query,
		index:    index,
		options:  options,
		log:      log,
		mux:      http.NewServeMux(),
	}

	s.mux.HandleFunc("/ingest", s.withAuth(s.withTimeout(s.handleIngest)))
	s.mux.HandleFunc("/query", s.withAuth(s.withTimeout(s.handleQuery)))
	s.mux.HandleFunc("/healthz", s.handleHealth)
	return s
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe runs the server until ctx is canceled
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening on %s", addr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// withAuth rejects requests that do not carry the configured bearer
// token. The check runs before any body parsing or provider work.
func (s *Server) withAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.options.Token != "" {
			if r.Header.Get("Authorization") != "Bearer "+s.options.Token {
				writeError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid bearer token")
				return
			}
		}
		next(w, r)
	}
}

// withTimeout applies the per-request deadline
func (s *Server) withTimeout(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.options.Timeout > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), s.options.Timeout)
			defer cancel()
			r = r.WithContext(ctx)
		}
		next(w, r)
	}
}
