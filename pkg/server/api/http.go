// Package api provides HTTP and WebSocket API endpoints for the oracle observer.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/StrathCole/oracle-watch/pkg/logging"
	"github.com/StrathCole/oracle-watch/pkg/metrics"
	"github.com/StrathCole/oracle-watch/pkg/observer/eventstream"
	"github.com/StrathCole/oracle-watch/pkg/version"
)

// StatusSource reports the ingestion state.
type StatusSource interface {
	State() eventstream.State
	LastHeight() uint64
}

// Config holds the HTTP server settings.
type Config struct {
	Addr           string
	AllowedOrigins []string
}

// Server represents the HTTP API server.
type Server struct {
	addr    string
	router  *mux.Router
	handler http.Handler
	server  *http.Server
	logger  *logging.Logger
	model   *ReadModel
	status  StatusSource
	ws      *WebSocketServer
}

// StatusResponse is the body of /v1/status.
type StatusResponse struct {
	Version           string `json:"version"`
	Connection        string `json:"connection"`
	LastHeight        uint64 `json:"last_height"`
	LastAverageHeight uint64 `json:"last_average_height"`
	WebsocketClients  int    `json:"websocket_clients"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// NewServer creates a new HTTP API server. ws may be nil to disable the event feed.
func NewServer(cfg Config, model *ReadModel, status StatusSource, ws *WebSocketServer, logger *logging.Logger) *Server {
	s := &Server{
		addr:   cfg.Addr,
		router: mux.NewRouter(),
		logger: logger,
		model:  model,
		status: status,
		ws:     ws,
	}
	s.routes()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	})
	s.handler = c.Handler(s.router)
	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/prices", s.handlePrices).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/prices/{denom}", s.handlePrice).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/status", s.handleStatus).Methods(http.MethodGet)
	if s.ws != nil {
		s.router.HandleFunc("/v1/events/ws", s.ws.HandleWebSocket).Methods(http.MethodGet)
	}
}

// Handler returns the CORS wrapped router.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Start starts the HTTP server and blocks until it stops.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              s.addr,
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	s.logger.Info("Starting HTTP server", "addr", s.addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server error: %w", err)
	}
	return nil
}

// Stop gracefully stops the HTTP server.
func (s *Server) Stop(ctx context.Context) error {
	if s.server != nil {
		s.logger.Info("Stopping HTTP server")
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleHealth handles /health endpoint.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/health", "200", time.Since(start))
	}()

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handlePrices handles /v1/prices.
func (s *Server) handlePrices(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/prices", "200", time.Since(start))
	}()

	s.sendJSON(w, http.StatusOK, s.model.Prices())
}

// handlePrice handles /v1/prices/{denom}.
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	status := http.StatusOK
	defer func() {
		metrics.RecordHTTPRequest("/v1/prices/{denom}", fmt.Sprint(status), time.Since(start))
	}()

	denom := mux.Vars(r)["denom"]
	price, ok := s.model.Price(denom)
	if !ok {
		status = http.StatusNotFound
		s.sendJSON(w, status, errorResponse{Error: fmt.Sprintf("no average for %s", denom)})
		return
	}
	s.sendJSON(w, status, price)
}

// handleStatus handles /v1/status.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	defer func() {
		metrics.RecordHTTPRequest("/v1/status", "200", time.Since(start))
	}()

	resp := StatusResponse{
		Version:           version.Version,
		Connection:        eventstream.StateDisconnected.String(),
		LastAverageHeight: s.model.LastAverageHeight(),
	}
	if s.status != nil {
		resp.Connection = s.status.State().String()
		resp.LastHeight = s.status.LastHeight()
	}
	if s.ws != nil {
		resp.WebsocketClients = s.ws.ClientCount()
	}
	s.sendJSON(w, http.StatusOK, resp)
}

// sendJSON sends a JSON response.
func (s *Server) sendJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("Failed to encode JSON response", "error", err)
	}
}
