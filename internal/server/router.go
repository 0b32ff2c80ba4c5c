package server

import (
	"net/http"
	"strings"

	"github.com/agentstation/fillmap/internal/server/handlers"
	"github.com/agentstation/fillmap/internal/server/middleware"
	"github.com/agentstation/fillmap/internal/server/response"
)

// setupRouter creates the HTTP handler with routes and middleware.
func (s *Server) setupRouter() http.Handler {
	mux := http.NewServeMux()

	h := handlers.New(
		s.ctx,
		s.runs,
		s.wsHub,
		s.sseBroadcaster,
		s.upgrader,
		s.logger,
	)

	s.registerRoutes(mux, h)

	return s.applyMiddleware(mux)
}

// registerRoutes registers all HTTP routes.
func (s *Server) registerRoutes(mux *http.ServeMux, h *handlers.Handlers) {
	prefix := s.config.PathPrefix

	// Favicon handler (return 204 No Content to avoid 404 logs)
	mux.HandleFunc("/favicon.ico", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/health", h.HandleHealth)
	mux.HandleFunc(prefix+"/ready", h.HandleReady)

	mux.HandleFunc(prefix+"/overlay", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.HandleOverlay(w, r)
	})

	mux.HandleFunc(prefix+"/runs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.HandleListRuns(w, r)
	})

	mux.HandleFunc(prefix+"/runs/", func(w http.ResponseWriter, r *http.Request) {
		parts := splitPath(strings.TrimPrefix(r.URL.Path, prefix+"/runs/"))
		if len(parts) == 0 {
			response.BadRequest(w, "Run ID required", "")
			return
		}
		s.routeRun(w, r, h, parts[0], parts[1:])
	})
}

// routeRun dispatches /runs/{id}/... by the remaining path segments.
func (s *Server) routeRun(w http.ResponseWriter, r *http.Request, h *handlers.Handlers, runID string, rest []string) {
	resource := ""
	if len(rest) > 0 {
		resource = rest[0]
	}

	switch {
	case len(rest) == 0:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.HandleGetRun(w, r, runID)

	case resource == "mappings" && len(rest) == 1:
		switch r.Method {
		case http.MethodPost:
			h.HandleAddMapping(w, r, runID)
		case http.MethodPatch:
			h.HandleEditMapping(w, r, runID)
		case http.MethodDelete:
			h.HandleRemoveMapping(w, r, runID)
		default:
			methodNotAllowed(w, r, http.MethodPost, http.MethodPatch, http.MethodDelete)
		}

	case resource == "cells" && len(rest) == 3:
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		h.HandleResolveCell(w, r, runID, rest[1], rest[2])

	case resource == "status" && len(rest) == 1:
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		h.HandleObserveStatus(w, r, runID)

	case resource == "windows" && len(rest) == 2 && rest[1] == "ws":
		h.HandleWindowSocket(w, r, runID)

	case len(rest) == 1 && r.Method == http.MethodGet:
		switch resource {
		case "grid":
			h.HandleGrid(w, r, runID)
		case "citations":
			h.HandleCitations(w, r, runID)
		case "provenance":
			h.HandleProvenance(w, r, runID)
		case "events":
			h.HandleRunEvents(w, r, runID)
		default:
			response.NotFound(w, "Route not found", r.URL.Path)
		}

	default:
		response.NotFound(w, "Route not found", r.URL.Path)
	}
}

// applyMiddleware wraps handler with middleware chain.
func (s *Server) applyMiddleware(handler http.Handler) http.Handler {
	cfg := s.config

	if cfg.CORSEnabled {
		corsConfig := middleware.DefaultCORSConfig()
		if len(cfg.CORSOrigins) > 0 {
			corsConfig.AllowedOrigins = cfg.CORSOrigins
			corsConfig.AllowAll = false
		}
		handler = middleware.CORS(corsConfig)(handler)
	}

	// Logging and recovery (always enabled)
	return middleware.Chain(
		middleware.Recovery(s.logger),
		middleware.Logger(s.logger),
	)(handler)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request, allowed ...string) {
	w.Header().Set("Allow", strings.Join(allowed, ", "))
	response.MethodNotAllowed(w, r.Method)
}

// splitPath splits a URL path into parts, removing empty strings.
func splitPath(path string) []string {
	parts := []string{}
	for _, part := range strings.Split(path, "/") {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}
