// Package predictor wraps the yield model consumed by the conversation:
// category encoders, the in-process linear model, the remote gRPC client
// and the timeout guard applied to every call.
package predictor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// FeatureCount is the width of the model input vector.
const FeatureCount = 10

// Features is one model input row in field order:
// Crop_Type, Soil_Type, Soil_pH, Temperature, Humidity, Wind_Speed, N, P, K, Soil_Quality.
type Features [FeatureCount]float64

// WithCrop returns a copy of f with the crop code replaced.
func (f Features) WithCrop(code int) Features {
	f[0] = float64(code)
	return f
}

// Predictor returns a yield estimate for one input row.
type Predictor interface {
	Predict(ctx context.Context, f Features) (float64, error)
}

// Func adapts a plain function to Predictor.
type Func func(ctx context.Context, f Features) (float64, error)

// Predict calls fn.
func (fn Func) Predict(ctx context.Context, f Features) (float64, error) {
	return fn(ctx, f)
}

// PredictionError reports a failed model invocation.
type PredictionError struct {
	Op  string
	Err error
}

func (e *PredictionError) Error() string {
	return fmt.Sprintf("prediction %s: %v", e.Op, e.Err)
}

func (e *PredictionError) Unwrap() error {
	return e.Err
}

// IsPredictionError reports whether err is or wraps a PredictionError.
func IsPredictionError(err error) bool {
	var pe *PredictionError
	return errors.As(err, &pe)
}

func asPredictionError(op string, err error) error {
	if err == nil || IsPredictionError(err) {
		return err
	}
	return &PredictionError{Op: op, Err: err}
}

// SafePredict calls p and turns a panic inside the model into a
// PredictionError. Use it wherever a model runs on its own goroutine.
func SafePredict(ctx context.Context, p Predictor, f Features) (y float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			y, err = 0, &PredictionError{Op: "predict", Err: fmt.Errorf("model panicked: %v", r)}
		}
	}()
	return p.Predict(ctx, f)
}

type timeoutPredictor struct {
	next    Predictor
	timeout time.Duration
}

// WithTimeout bounds every call to next. A call that outlives the timeout
// returns a PredictionError even if next ignores its context.
// A non-positive timeout only normalizes errors.
func WithTimeout(next Predictor, timeout time.Duration) Predictor {
	return &timeoutPredictor{next: next, timeout: timeout}
}

func (p *timeoutPredictor) Predict(ctx context.Context, f Features) (float64, error) {
	if p.timeout <= 0 {
		y, err := SafePredict(ctx, p.next, f)
		return y, asPredictionError("predict", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	type result struct {
		y   float64
		err error
	}
	done := make(chan result, 1)
	go func() {
		y, err := SafePredict(ctx, p.next, f)
		done <- result{y: y, err: err}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			return 0, asPredictionError("predict", r.err)
		}
		return r.y, nil
	case <-ctx.Done():
		return 0, &PredictionError{Op: "predict", Err: ctx.Err()}
	}
}
