// Package app assembles the conversation stack from configuration. It is
// shared by the HTTP server and the yieldctl CLI.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ashureev/yieldchat/internal/config"
	"github.com/ashureev/yieldchat/internal/conversation"
	"github.com/ashureev/yieldchat/internal/predictor"
	"github.com/ashureev/yieldchat/internal/ranking"
	"github.com/ashureev/yieldchat/internal/slots"
	"github.com/ashureev/yieldchat/internal/store"
)

// Model is the loaded encoders plus the predictor that serves them.
type Model struct {
	Bundle    *predictor.Bundle
	Crops     *predictor.Encoder
	Soils     *predictor.Encoder
	Schema    *slots.Schema
	Predictor predictor.Predictor
	// Health is set when the predictor is remote.
	Health func(ctx context.Context) error

	closers []func()
}

// Close releases the remote predictor connection, if any.
func (m *Model) Close() {
	for _, c := range m.closers {
		c()
	}
}

// LoadModel reads the bundle at cfg.ModelPath and selects the in-process
// linear model or, when cfg.PredictorAddr is set, the gRPC model service.
// Either way predictions are bounded by cfg.PredictorTimeout.
func LoadModel(cfg *config.Config, logger *slog.Logger) (*Model, error) {
	bundle, err := predictor.LoadBundle(cfg.ModelPath)
	if err != nil {
		return nil, err
	}
	crops, soils, err := bundle.Encoders()
	if err != nil {
		return nil, fmt.Errorf("build encoders: %w", err)
	}

	m := &Model{
		Bundle: bundle,
		Crops:  crops,
		Soils:  soils,
		Schema: slots.NewSchema(crops, soils),
	}

	var p predictor.Predictor = bundle.LinearModel()
	if cfg.PredictorAddr != "" {
		client, err := predictor.NewGrpcClient(predictor.GrpcClientConfig{Address: cfg.PredictorAddr}, logger)
		if err != nil {
			return nil, err
		}
		p = client
		m.Health = client.Health
		m.closers = append(m.closers, client.Close)
		logger.Info("Using remote model service", "address", cfg.PredictorAddr)
	} else {
		logger.Info("Using in-process model", "name", bundle.Name, "version", bundle.Version)
	}
	m.Predictor = predictor.WithTimeout(p, cfg.PredictorTimeout)
	return m, nil
}

// SessionStore opens the session backend selected by cfg.Session.Backend.
// The returned close function is never nil.
func SessionStore(ctx context.Context, cfg *config.Config) (store.SessionStore, func() error, error) {
	switch cfg.Session.Backend {
	case config.SessionBackendRedis:
		rs, err := store.NewRedisSessionStore(ctx, store.RedisConfig{
			Addr:     cfg.Session.RedisAddr,
			Password: cfg.Session.RedisPassword,
			DB:       cfg.Session.RedisDB,
		}, cfg.Session.TTL)
		if err != nil {
			return nil, nil, err
		}
		return rs, rs.Close, nil
	default:
		return store.NewMemorySessionStore(cfg.Session.TTL), func() error { return nil }, nil
	}
}

// NewEngine wires the ranking computer and the engine for m.
func NewEngine(cfg *config.Config, m *Model, sessions store.SessionStore, logger *slog.Logger) *conversation.Engine {
	rc := ranking.NewComputer(m.Predictor, m.Crops, cfg.RankingConcurrency, logger)
	return conversation.NewEngine(m.Schema, sessions, m.Predictor, rc, logger)
}
