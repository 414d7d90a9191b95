// Package server provides the HTTP server for the cardscan service.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/minhvu/cardscan/internal/config"
	"github.com/minhvu/cardscan/internal/scan"
	"github.com/minhvu/cardscan/internal/server/api"
	"github.com/minhvu/cardscan/internal/store"
)

// Config holds the server configuration.
type Config struct {
	Store           *store.Store
	Pipeline        *scan.Pipeline
	Templates       *config.TemplateRegistry
	DefaultCardType string
}

// Server represents the HTTP server for the cardscan service.
type Server struct {
	config Config
	mux    *http.ServeMux
	events *EventsHandler
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		events: NewEventsHandler(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes for the server.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if s.config.Pipeline != nil {
		scanHandler := api.NewScanHandler(s.config.Pipeline, s.config.Templates,
			s.config.Store, s.events, s.config.DefaultCardType)
		s.mux.Handle("/api/scan", scanHandler)
	}

	if s.config.Store != nil {
		tasksHandler := api.NewTasksHandler(s.config.Store)
		s.mux.Handle("/api/tasks", tasksHandler)
		s.mux.Handle("/api/tasks/", tasksHandler)

		s.mux.Handle("/api/statistics", api.NewStatsHandler(s.config.Store))
	}

	s.mux.Handle("/api/events", s.events)
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

// handleHealth handles GET requests to /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	uptime := time.Since(s.start)

	response := map[string]interface{}{
		"status": "ok",
		"uptime": uptime.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}
