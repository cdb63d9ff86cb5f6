package api

import (
	"log/slog"
	"math"
	"net/http"
)

// PredictYield handles POST /api/predict_yield: all ten fields in one body.
func (h *Handler) PredictYield(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	if !h.decodeBody(w, r, &body) {
		return
	}

	answers, verr := h.schema.ParseAll(body)
	if verr != nil {
		Error(w, http.StatusBadRequest, verr.Error())
		return
	}
	features, verr := h.schema.Features(answers)
	if verr != nil {
		Error(w, http.StatusBadRequest, verr.Error())
		return
	}

	yield, err := h.predictor.Predict(r.Context(), features)
	if err != nil {
		slog.Warn("One-shot prediction failed", "error", err)
		Error(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	JSON(w, http.StatusOK, map[string]float64{
		"predicted_yield": math.Round(yield*100) / 100,
	})
}
