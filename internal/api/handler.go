// Package api provides HTTP handlers for the chat API.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/ashureev/yieldchat/internal/predictor"
	"github.com/ashureev/yieldchat/internal/slots"
	"github.com/ashureev/yieldchat/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

const defaultMaxRequestBodySize = 16 << 10

// Deps are the collaborators of the API handlers.
type Deps struct {
	Controller *conversation.Controller
	Repo       store.Repository
	Schema     *slots.Schema
	Predictor  predictor.Predictor
	// PredictorHealth reports readiness of a remote model. Optional.
	PredictorHealth func(ctx context.Context) error
	Limiter         *RateLimiter
	MaxBodyBytes    int64
	AllowedOrigin   string
	IsDev           bool
}

// Handler serves the chat, prediction and history endpoints.
type Handler struct {
	controller      *conversation.Controller
	repo            store.Repository
	schema          *slots.Schema
	predictor       predictor.Predictor
	predictorHealth func(ctx context.Context) error
	validate        *validator.Validate
	limiter         *RateLimiter
	sockets         *SocketRegistry
	maxBodyBytes    int64
	allowedOrigin   string
	isDev           bool
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(d Deps) *Handler {
	if d.MaxBodyBytes <= 0 {
		d.MaxBodyBytes = defaultMaxRequestBodySize
	}
	return &Handler{
		controller:      d.Controller,
		repo:            d.Repo,
		schema:          d.Schema,
		predictor:       d.Predictor,
		predictorHealth: d.PredictorHealth,
		validate:        validator.New(validator.WithRequiredStructEnabled()),
		limiter:         d.Limiter,
		sockets:         NewSocketRegistry(),
		maxBodyBytes:    d.MaxBodyBytes,
		allowedOrigin:   d.AllowedOrigin,
		isDev:           d.IsDev,
	}
}

// RegisterHealth registers the readiness probe. It needs no identity.
func (h *Handler) RegisterHealth(r chi.Router) {
	r.Get("/ready", h.Ready)
}

// RegisterRoutes registers the API and WebSocket routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/predict_yield", h.PredictYield)
		r.Get("/predictions", h.ListPredictions)
		r.Get("/soil-info", h.SoilInfo)
		r.Get("/crops", h.Crops)
	})
	r.Get("/ws/chat", h.ChatSocket)
}

// Sockets returns the registry of open chat sockets.
func (h *Handler) Sockets() *SocketRegistry {
	return h.sockets
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// decodeBody reads a size-limited JSON body into v. It writes the error
// response itself and reports whether decoding succeeded.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			Error(w, http.StatusRequestEntityTooLarge, "request body too large")
			return false
		}
		Error(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
