package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

func registerBaseRoutes(r *mux.Router, s *Server, metrics http.Handler) {
	r.HandleFunc("/", s.handleRoot).Methods("GET", "OPTIONS")
	r.HandleFunc("/health", s.handleHealth).Methods("GET", "OPTIONS")
	if metrics != nil {
		r.Handle("/metrics", metrics).Methods("GET", "OPTIONS")
	}
}

func registerProductRoutes(r *mux.Router, s *Server) {
	pr := r.PathPrefix("/products").Subrouter()
	pr.Use(s.rateLimitMiddleware)
	pr.HandleFunc("/{sku}", s.handleGetProduct).Methods("GET", "OPTIONS")
}

func registerAdminRoutes(r *mux.Router, s *Server) {
	if s.cfg.AdminJWTSecret == "" {
		s.log.Info("admin routes disabled: no ADMIN_JWT_SECRET configured")
		return
	}

	auth := newAuthMiddleware(s.cfg.AdminJWTSecret, s.clock)
	ar := r.PathPrefix("/admin").Subrouter()
	ar.Use(auth.middleware)
	ar.HandleFunc("/breakers", s.handleListBreakers).Methods("GET", "OPTIONS")
	ar.HandleFunc("/breakers/{vendor}/reset", s.handleResetBreaker).Methods("POST", "OPTIONS")
	ar.HandleFunc("/cache/invalidate", s.handleInvalidateCache).Methods("POST", "OPTIONS")
}
