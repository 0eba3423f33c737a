// Package api exposes a small operational HTTP surface for the bridge:
// liveness and a queue-depth snapshot for dashboards and alerting.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"contracting-bridge/internal/bridge"
)

// Server encapsulates the HTTP server and its router.
type Server struct {
	mux    *http.ServeMux
	bridge *bridge.Bridge
}

// NewServer builds a server with basic logging and panic recovery middlewares.
func NewServer(b *bridge.Bridge) *Server {
	s := &Server{
		mux:    http.NewServeMux(),
		bridge: b,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/healthz", s.handleHealthz)
	s.mux.HandleFunc("/status", s.handleStatus)
}

// Run starts the HTTP server on the provided port.
func (s *Server) Run(port int) error {
	addr := fmt.Sprintf(":%d", port)
	handler := s.recoveryMiddleware(s.loggingMiddleware(s.mux))
	logrus.Infof("Status server listening on %s", addr)
	return http.ListenAndServe(addr, handler)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.bridge.Sizes()); err != nil {
		logrus.Errorf("failed to encode status response: %v", err)
	}
}

// Simple request logger middleware.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logrus.Infof("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// recoveryMiddleware catches panics and returns 500.
func (s *Server) recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				logrus.Errorf("panic serving %s: %v", r.URL.Path, rec)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
