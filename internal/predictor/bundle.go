package predictor

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

//go:embed default_model.json
var defaultBundle []byte

// Bundle is the exported model artifact: the two category sets in encoder
// order plus the coefficients of the linear regressor.
type Bundle struct {
	Name         string    `json:"name"`
	Version      string    `json:"version"`
	CropClasses  []string  `json:"crop_classes"`
	SoilClasses  []string  `json:"soil_classes"`
	Intercept    float64   `json:"intercept"`
	Coefficients []float64 `json:"coefficients"`
}

// LoadBundle reads a bundle from path. An empty path loads the bundle
// compiled into the binary.
func LoadBundle(path string) (*Bundle, error) {
	if path == "" {
		return ParseBundle(defaultBundle)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model bundle: %w", err)
	}
	return ParseBundle(data)
}

// ParseBundle decodes and validates a bundle.
func ParseBundle(data []byte) (*Bundle, error) {
	var b Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("decode model bundle: %w", err)
	}
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("invalid model bundle: %w", err)
	}
	return &b, nil
}

// Validate checks the bundle is usable.
func (b *Bundle) Validate() error {
	if len(b.CropClasses) == 0 {
		return errors.New("crop_classes is empty")
	}
	if len(b.SoilClasses) == 0 {
		return errors.New("soil_classes is empty")
	}
	if len(b.Coefficients) != FeatureCount {
		return fmt.Errorf("coefficients: want %d values, got %d", FeatureCount, len(b.Coefficients))
	}
	return nil
}

// Encoders builds the crop and soil encoders.
func (b *Bundle) Encoders() (crops, soils *Encoder, err error) {
	crops, err = NewEncoder("crop", b.CropClasses)
	if err != nil {
		return nil, nil, err
	}
	soils, err = NewEncoder("soil", b.SoilClasses)
	if err != nil {
		return nil, nil, err
	}
	return crops, soils, nil
}

// LinearModel returns the in-process regressor described by the bundle.
func (b *Bundle) LinearModel() *LinearModel {
	m := &LinearModel{intercept: b.Intercept}
	copy(m.coefficients[:], b.Coefficients)
	return m
}

// LinearModel evaluates intercept + Σ coefficient·feature.
type LinearModel struct {
	intercept    float64
	coefficients Features
}

// Predict implements Predictor.
func (m *LinearModel) Predict(ctx context.Context, f Features) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, &PredictionError{Op: "linear", Err: err}
	}
	y := m.intercept
	for i, x := range f {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return 0, &PredictionError{Op: "linear", Err: fmt.Errorf("feature %d is not finite", i)}
		}
		y += m.coefficients[i] * x
	}
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return 0, &PredictionError{Op: "linear", Err: errors.New("result is not finite")}
	}
	return y, nil
}
