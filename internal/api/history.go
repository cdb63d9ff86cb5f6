package api

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/ashureev/yieldchat/internal/identity"
)

const defaultHistoryLimit = 20

// ListPredictions handles GET /api/predictions?limit=n for the calling user.
func (h *Handler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	userID := identity.UserIDFromContext(r.Context())
	if userID == "" {
		Error(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || h.validate.Var(n, "min=1,max=100") != nil {
			Error(w, http.StatusBadRequest, "limit must be between 1 and 100")
			return
		}
		limit = n
	}

	records, err := h.repo.ListPredictions(r.Context(), userID, limit)
	if err != nil {
		slog.Error("Failed to list predictions", "user_id", userID, "error", err)
		Error(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []*domain.PredictionRecord{}
	}
	JSON(w, http.StatusOK, map[string]any{"predictions": records})
}
