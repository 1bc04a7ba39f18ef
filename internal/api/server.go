// Package api exposes the table store and the profiler over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabinsight/internal/metrics"
	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/store"
)

// Tables is the subset of the store the handlers depend on.
type Tables interface {
	ListTables(ctx context.Context) ([]string, error)
	Columns(ctx context.Context, table string) ([]string, error)
	CreateTable(ctx context.Context, table string, ds profile.Dataset) error
	FetchAll(ctx context.Context, table string) (profile.Dataset, error)
	Filter(ctx context.Context, table string, q store.FilterQuery) (store.FilterResult, error)
	ValueCounts(ctx context.Context, table string) (map[string][]store.ValueCount, error)
}

// Config tunes request handling.
type Config struct {
	MaxUploadBytes int64
	RequestTimeout time.Duration
	AllowedOrigins []string
}

// Server wires HTTP routes for the profiling API.
type Server struct {
	tables   Tables
	profiler *profile.Profiler
	metrics  *metrics.Manager
	log      *logrus.Logger
	cfg      Config
}

// NewServer creates a server. A nil metrics manager gets a private one and a
// nil logger gets logrus.New().
func NewServer(tables Tables, profiler *profile.Profiler, m *metrics.Manager, log *logrus.Logger, cfg Config) *Server {
	if m == nil {
		m = metrics.NewManager()
	}
	if log == nil {
		log = logrus.New()
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 32 << 20
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	return &Server{tables: tables, profiler: profiler, metrics: m, log: log, cfg: cfg}
}

// Handler returns the full middleware-wrapped route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /get_tables", s.instrument("get_tables", s.handleGetTables))
	mux.HandleFunc("POST /upload", s.instrument("upload", s.handleUpload))
	mux.HandleFunc("GET /table_schema", s.instrument("table_schema", s.handleTableSchema))
	mux.HandleFunc("POST /filter_data", s.instrument("filter_data", s.handleFilterData))
	mux.HandleFunc("GET /table_summary", s.instrument("table_summary", s.handleTableSummary))
	mux.HandleFunc("GET /analyze_table", s.instrument("analyze_table", s.handleAnalyzeTable))
	mux.HandleFunc("GET /healthz", s.instrument("healthz", s.handleHealth))
	mux.Handle("GET /metrics", s.metrics.Handler())
	return s.cors(mux)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.log.Info("http server shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}
