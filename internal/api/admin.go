package api

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func (s *Server) handleListBreakers(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"breakers":  s.breakers.Snapshots(),
		"timestamp": s.clock.Now().UTC(),
	})
}

func (s *Server) handleResetBreaker(w http.ResponseWriter, r *http.Request) {
	vendorName := mux.Vars(r)["vendor"]
	if !s.breakers.Reset(vendorName) {
		s.writeError(w, http.StatusNotFound, "Unknown vendor",
			"no circuit breaker registered for "+vendorName)
		return
	}

	s.log.Info("breaker reset via admin api",
		zap.String("vendor", vendorName),
		zap.String("subject", adminSubjectFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]string{
		"vendor": vendorName,
		"state":  "CLOSED",
	})
}

type invalidateRequest struct {
	Pattern string `json:"pattern"`
}

// handleInvalidateCache removes cache entries matching a glob pattern, e.g.
// "product:SKU0*". Intended for operators after vendor data corrections.
func (s *Server) handleInvalidateCache(w http.ResponseWriter, r *http.Request) {
	var req invalidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Pattern == "" {
		s.writeError(w, http.StatusBadRequest, "Invalid request",
			`body must be {"pattern": "<glob>"}`)
		return
	}

	deleted, err := s.store.DeletePattern(r.Context(), req.Pattern)
	if err != nil {
		s.log.Error("cache invalidation failed",
			zap.String("pattern", req.Pattern), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	s.log.Info("cache invalidated via admin api",
		zap.String("pattern", req.Pattern),
		zap.Int("deleted", deleted),
		zap.String("subject", adminSubjectFromContext(r.Context())))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"pattern": req.Pattern,
		"deleted": deleted,
	})
}
