// Package api exposes the answer service over HTTP.
package api

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"tikdex/answer"
)

// Server is the HTTP front of the answer service.
type Server struct {
	svc    *answer.Service
	port   int
	logger *zap.Logger
}

func NewServer(svc *answer.Service, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{svc: svc, port: port, logger: logger}
}

// Handler builds the route table. Split from Start so tests can drive it
// through httptest.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/answer", s.answerHandler)
	mux.HandleFunc("/health", s.healthHandler)
	mux.HandleFunc("/models", s.modelsHandler)
	return withCORS(mux)
}

// Start blocks serving HTTP until the listener fails.
func (s *Server) Start() error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("starting API server", zap.Int("port", s.port))
	return srv.ListenAndServe()
}

// withCORS allows browser frontends on any origin to call the API.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
