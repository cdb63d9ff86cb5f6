package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ashureev/yieldchat/internal/slots"
)

// SoilInfo is the fixed field advisory shown on request.
const SoilInfo = "The soil in this region is rich in nitrogen and potassium, ideal for wheat and barley. " +
	"Ensure the pH remains between 6.0 and 7.5 for optimal crop yield. Regular composting and " +
	"monitoring of micronutrients like zinc and magnesium is also recommended."

const readyTimeout = 3 * time.Second

// SoilInfo handles GET /api/soil-info.
func (h *Handler) SoilInfo(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]string{"reply": SoilInfo})
}

// Crops handles GET /api/crops: the accepted category answers and the
// question order.
func (h *Handler) Crops(w http.ResponseWriter, r *http.Request) {
	fields := make([]string, h.schema.Len())
	for i := range fields {
		fields[i] = h.schema.Field(i).Key
	}
	JSON(w, http.StatusOK, map[string]any{
		"crops":  h.schema.Field(h.schema.Index(slots.KeyCropType)).Category.Names(),
		"soils":  h.schema.Field(h.schema.Index(slots.KeySoilType)).Category.Names(),
		"fields": fields,
	})
}

// Ready handles GET /ready: database and model reachability.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	status := http.StatusOK
	checks := map[string]string{"database": "ok", "predictor": "ok"}
	if err := h.repo.Ping(ctx); err != nil {
		checks["database"] = err.Error()
		status = http.StatusServiceUnavailable
	}
	if h.predictorHealth != nil {
		if err := h.predictorHealth(ctx); err != nil {
			checks["predictor"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}
	JSON(w, status, checks)
}
