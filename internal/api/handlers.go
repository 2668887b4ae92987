package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"skuscan/internal/models"
)

// skuPattern is the accepted SKU grammar at the edge. Everything behind the
// edge treats SKUs as opaque keys.
var skuPattern = regexp.MustCompile(`^[A-Za-z0-9]{3,20}$`)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, errMsg, detail string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:     errMsg,
		Detail:    detail,
		Timestamp: s.clock.Now().UTC(),
	})
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	sku := mux.Vars(r)["sku"]
	if !skuPattern.MatchString(sku) {
		s.log.Warn("invalid sku format", zap.String("sku", sku))
		s.writeError(w, http.StatusBadRequest, "Invalid SKU format",
			"SKU must be alphanumeric and 3-20 characters long")
		return
	}

	rec, err := s.products.Lookup(r.Context(), sku)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Client gone; there is nobody left to answer.
			return
		}
		s.log.Error("lookup failed", zap.String("sku", sku), zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "Internal server error", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, productResponse(sku, rec, s.clock.Now().UTC()))
}

// productResponse shapes the API body. Out-of-stock answers carry null
// vendor, price and stock rather than omitting the fields.
func productResponse(sku string, rec *models.NormalizedRecord, now time.Time) models.ProductResponse {
	if rec == nil {
		return models.ProductResponse{
			SKU:       sku,
			Status:    models.StatusOutOfStock,
			Timestamp: now,
		}
	}
	return models.ProductResponse{
		SKU:       rec.SKU,
		Vendor:    &rec.VendorName,
		Price:     &rec.Price,
		Stock:     &rec.Stock,
		Status:    models.StatusAvailable,
		Timestamp: now,
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "skuscan",
	})
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	endpoints := map[string]string{
		"get_product": "/products/{sku}",
		"health":      "/health",
		"metrics":     "/metrics",
	}
	if s.cfg.AdminJWTSecret != "" {
		endpoints["admin_breakers"] = "/admin/breakers"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service":   "skuscan",
		"version":   s.cfg.Version,
		"endpoints": endpoints,
	})
}
