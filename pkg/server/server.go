// Package server provides the HTTP boundary adapter for the workflow engine:
// REST endpoints for workflow CRUD, synchronous and streamed execution, and
// webhook delivery, following the reference route table of spec §6. The
// runner itself (pkg/engine) knows nothing about HTTP — this package is the
// thin, replaceable transport around it.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/yesoreyeram/fluxweave/pkg/config"
	"github.com/yesoreyeram/fluxweave/pkg/engine"
	"github.com/yesoreyeram/fluxweave/pkg/executor"
	"github.com/yesoreyeram/fluxweave/pkg/health"
	"github.com/yesoreyeram/fluxweave/pkg/httpnode"
	"github.com/yesoreyeram/fluxweave/pkg/logging"
	"github.com/yesoreyeram/fluxweave/pkg/storage"
	"github.com/yesoreyeram/fluxweave/pkg/telemetry"
)

// Config holds server configuration
type Config struct {
	// Address to listen on (e.g., ":8080")
	Address string

	// ReadTimeout for HTTP requests
	ReadTimeout time.Duration

	// WriteTimeout for HTTP responses
	WriteTimeout time.Duration

	// ShutdownTimeout for graceful shutdown
	ShutdownTimeout time.Duration

	// MaxRequestBodySize limits request body size
	MaxRequestBodySize int64

	// EnableCORS enables CORS headers
	EnableCORS bool
}

// DefaultConfig returns default server configuration
func DefaultConfig() Config {
	return Config{
		Address:            ":8080",
		ReadTimeout:        30 * time.Second,
		WriteTimeout:       30 * time.Second,
		ShutdownTimeout:    10 * time.Second,
		MaxRequestBodySize: 10 * 1024 * 1024, // 10MB
		EnableCORS:         true,
	}
}

// Server is the HTTP API server fronting a single workflow engine instance.
type Server struct {
	config Config
	logger *logging.Logger

	httpServer        *http.Server
	engine            *engine.Engine
	engineConfig      *config.Config
	nodeRegistry      *executor.Registry
	httpClients       *httpnode.Registry
	store             storage.Store
	healthChecker     *health.Checker
	telemetryProvider *telemetry.Provider

	mu             sync.RWMutex
	errorWorkflows map[string]string // failing workflow id -> error-handler workflow id (spec §7)
}

// New creates a new server instance wired to its own engine, node registry,
// HTTP client registry and in-memory workflow store.
func New(cfg Config, engineConfig *config.Config) (*Server, error) {
	logger := logging.New(logging.DefaultConfig())

	telemetryProvider, err := telemetry.NewProvider(context.Background(), telemetry.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create telemetry provider: %w", err)
	}

	healthChecker := health.NewChecker("fluxweave", "0.1.0")
	healthChecker.RegisterCheck("engine", func(ctx context.Context) error {
		return nil
	}, 5*time.Second, true)

	httpClients := httpnode.NewRegistry()
	nodeRegistry := executor.NewBuiltinRegistry(httpClients)

	eng := engine.NewWithRegistry(nodeRegistry).WithConfig(engineConfig)
	eng.SetStructuredLogger(logger)
	eng.RegisterObserver(telemetry.NewTelemetryObserver(telemetryProvider))

	server := &Server{
		config:            cfg,
		logger:            logger,
		engine:            eng,
		engineConfig:      engineConfig,
		nodeRegistry:      nodeRegistry,
		httpClients:       httpClients,
		store:             storage.NewInMemoryStore(),
		healthChecker:     healthChecker,
		telemetryProvider: telemetryProvider,
		errorWorkflows:    make(map[string]string),
	}

	mux := http.NewServeMux()
	server.registerRoutes(mux)

	server.httpServer = &http.Server{
		Addr:         cfg.Address,
		Handler:      server.middlewareChain(mux),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return server, nil
}

// registerRoutes registers all HTTP routes per spec §6's reference table.
func (s *Server) registerRoutes(mux *http.ServeMux) {
	// Health and metrics
	mux.HandleFunc("/health", s.healthChecker.HTTPHandler())
	mux.HandleFunc("/health/live", s.healthChecker.LivenessHandler())
	mux.HandleFunc("/health/ready", s.healthChecker.ReadinessHandler())
	mux.Handle("/metrics", promhttp.Handler())

	// Workflow CRUD
	mux.HandleFunc("GET /workflows", s.handleListWorkflows)
	mux.HandleFunc("POST /workflows", s.handleCreateWorkflow)
	mux.HandleFunc("GET /workflows/{id}", s.handleGetWorkflow)
	mux.HandleFunc("PUT /workflows/{id}", s.handleUpdateWorkflow)
	mux.HandleFunc("DELETE /workflows/{id}", s.handleDeleteWorkflow)

	// Execution
	mux.HandleFunc("POST /workflows/{id}/run", s.handleRunWorkflow)
	mux.HandleFunc("POST /workflows/run-adhoc", s.handleRunAdhoc)
	mux.HandleFunc("GET /execution-stream/{id}", s.handleExecutionStreamByID)
	mux.HandleFunc("POST /execution-stream/adhoc", s.handleExecutionStreamAdhoc)

	// Webhook delivery
	mux.HandleFunc("GET /webhook/{workflowId}", s.handleWebhook)
	mux.HandleFunc("POST /webhook/{workflowId}", s.handleWebhook)
	mux.HandleFunc("PUT /webhook/{workflowId}", s.handleWebhook)
	mux.HandleFunc("DELETE /webhook/{workflowId}", s.handleWebhook)

	// Error-handler workflow registry (spec §7)
	mux.HandleFunc("PUT /workflows/{id}/error-handler", s.handleSetErrorHandler)

	// Node catalog
	mux.HandleFunc("GET /nodes", s.handleListNodes)

	// HTTP client registry (named clients for the HTTP node — SSRF-guarded, pkg/httpnode)
	mux.HandleFunc("POST /api/v1/httpclient/register", s.handleRegisterHTTPClient)
	mux.HandleFunc("GET /api/v1/httpclient/list", s.handleListHTTPClients)

	// Ad-hoc HTTP request playground, used by the editor to test a call before wiring it into a node
	mux.HandleFunc("POST /api/v1/playground/execute", s.handlePlaygroundExecute)
}

// middlewareChain applies middleware to the handler
func (s *Server) middlewareChain(handler http.Handler) http.Handler {
	if s.config.EnableCORS {
		handler = s.corsMiddleware(handler)
	}
	handler = s.loggingMiddleware(handler)
	handler = s.recoveryMiddleware(handler)
	return handler
}

// writeJSONResponse writes a JSON response
func (s *Server) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.WithError(err).Error("failed to encode response")
	}
}

// writeErrorResponse writes an error response
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int, err error) {
	logEntry := s.logger.WithField("status_code", statusCode)
	if err != nil {
		logEntry = logEntry.WithError(err)
	}
	logEntry.Error(message)

	resp := map[string]interface{}{
		"success": false,
		"error":   message,
	}
	if err != nil {
		resp["details"] = err.Error()
	}
	s.writeJSONResponse(w, statusCode, resp)
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.WithField("address", s.config.Address).Info("starting server")

	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown http server: %w", err)
	}

	if err := s.telemetryProvider.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown telemetry: %w", err)
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// corsMiddleware adds CORS headers
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		startTime := time.Now()

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		duration := time.Since(startTime)

		s.logger.WithFields(map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status_code": rw.statusCode,
			"duration_ms": duration.Milliseconds(),
			"remote_addr": r.RemoteAddr,
		}).Info("http request")
	})
}

// recoveryMiddleware recovers from panics
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				s.logger.WithField("error", fmt.Sprintf("%v", err)).
					WithField("path", r.URL.Path).
					Error("panic recovered")

				http.Error(w, "Internal server error", http.StatusInternalServerError)
			}
		}()

		next.ServeHTTP(w, r)
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}
