// Package api serves the read side of the probability tracker over
// HTTP: the current probability table, aggregate stats and the run
// ledger. All endpoints are read-only; writes happen exclusively
// through the batch pipelines.
package api

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/qualprob/internal/metrics"
	"github.com/yourusername/qualprob/internal/repository"
)

const (
	defaultPort            = 8080
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 20 * time.Second
	defaultRecentRunsLimit = 20

	// maxListLimit caps client-supplied limits so a single request
	// cannot ask the database for an unbounded result set.
	maxListLimit = 500
)

// Config holds the configuration for the API server.
type Config struct {
	Port                int
	ReadTimeoutSeconds  int
	WriteTimeoutSeconds int
	RecentRunsLimit     int
	Logger              *logrus.Logger
	Probabilities       repository.ProbabilityRepository
	Runs                repository.RunRepository
}

// Server is the read-only HTTP API server.
type Server struct {
	port         int
	readTimeout  time.Duration
	writeTimeout time.Duration
	recentLimit  int
	logger       *logrus.Logger
	probs        repository.ProbabilityRepository
	runs         repository.RunRepository
	server       *http.Server
}

// NewServer creates an API server from cfg, applying defaults for any
// zero-valued tuning field.
func NewServer(cfg Config) *Server {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}
	readTimeout := defaultReadTimeout
	if cfg.ReadTimeoutSeconds > 0 {
		readTimeout = time.Duration(cfg.ReadTimeoutSeconds) * time.Second
	}
	writeTimeout := defaultWriteTimeout
	if cfg.WriteTimeoutSeconds > 0 {
		writeTimeout = time.Duration(cfg.WriteTimeoutSeconds) * time.Second
	}
	recentLimit := cfg.RecentRunsLimit
	if recentLimit <= 0 {
		recentLimit = defaultRecentRunsLimit
	}
	logger := cfg.Logger
	if logger == nil {
		logger = logrus.New()
	}

	return &Server{
		port:         port,
		readTimeout:  readTimeout,
		writeTimeout: writeTimeout,
		recentLimit:  recentLimit,
		logger:       logger,
		probs:        cfg.Probabilities,
		runs:         cfg.Runs,
	}
}

// Routes builds the router with all endpoints and middleware attached.
// Exposed separately from Start so tests can drive the handler chain
// without a listening socket.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.instrument)

	v1 := r.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/probabilities", s.handleListProbabilities).Methods(http.MethodGet)
	v1.HandleFunc("/probabilities/{confederation}", s.handleConfederationProbabilities).Methods(http.MethodGet)
	v1.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	v1.HandleFunc("/runs/recent", s.handleRecentRuns).Methods(http.MethodGet)
	v1.HandleFunc("/runs/latest-success", s.handleLatestSuccess).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(s.handleMethodNotAllowed)

	return r
}

// Start runs the API server in the background until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.Routes(),
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		s.logger.WithField("port", s.port).Info("API server starting")

		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("API server error")
		}
	}()

	go func() {
		<-ctx.Done()
		s.Shutdown()
	}()

	return nil
}

// Shutdown gracefully shuts down the API server.
func (s *Server) Shutdown() error {
	if s.server == nil {
		return nil
	}

	s.logger.Info("API server shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// instrument logs each request and records its metrics, labelled with
// the route template rather than the raw path to keep label cardinality
// bounded.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tmpl, err := cur.GetPathTemplate(); err == nil {
				route = tmpl
			}
		}

		duration := time.Since(start)
		metrics.RecordHTTPRequest(r.Method, route, strconv.Itoa(rec.status), duration.Seconds())

		s.logger.WithFields(logrus.Fields{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      rec.status,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("API request")
	})
}
