package predictor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithTimeoutPassesThrough(t *testing.T) {
	p := WithTimeout(Func(func(_ context.Context, f Features) (float64, error) {
		return f[0] * 2, nil
	}), time.Second)

	y, err := p.Predict(context.Background(), Features{}.WithCrop(4))
	require.NoError(t, err)
	assert.Equal(t, 8.0, y)
}

func TestWithTimeoutWrapsErrors(t *testing.T) {
	cause := errors.New("model exploded")
	p := WithTimeout(Func(func(context.Context, Features) (float64, error) {
		return 0, cause
	}), time.Second)

	_, err := p.Predict(context.Background(), Features{})
	require.Error(t, err)
	assert.True(t, IsPredictionError(err))
	assert.ErrorIs(t, err, cause)
}

func TestWithTimeoutBoundsSlowPredictor(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	p := WithTimeout(Func(func(context.Context, Features) (float64, error) {
		<-release
		return 1, nil
	}), 20*time.Millisecond)

	start := time.Now()
	_, err := p.Predict(context.Background(), Features{})
	require.Error(t, err)
	assert.True(t, IsPredictionError(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestWithTimeoutZeroOnlyNormalizes(t *testing.T) {
	p := WithTimeout(Func(func(context.Context, Features) (float64, error) {
		return 0, errors.New("boom")
	}), 0)

	_, err := p.Predict(context.Background(), Features{})
	assert.True(t, IsPredictionError(err))
}

func TestFeaturesWithCropCopies(t *testing.T) {
	base := Features{9, 1, 6.5}
	swapped := base.WithCrop(2)
	assert.Equal(t, 9.0, base[0])
	assert.Equal(t, 2.0, swapped[0])
	assert.Equal(t, base[1:], swapped[1:])
}

func TestWithTimeoutRecoversPanic(t *testing.T) {
	p := WithTimeout(Func(func(context.Context, Features) (float64, error) {
		panic("index out of range")
	}), time.Second)

	var err error
	require.NotPanics(t, func() {
		_, err = p.Predict(context.Background(), Features{})
	})
	require.Error(t, err)
	assert.True(t, IsPredictionError(err))
	assert.Contains(t, err.Error(), "index out of range")
}

func TestWithTimeoutZeroRecoversPanic(t *testing.T) {
	p := WithTimeout(Func(func(context.Context, Features) (float64, error) {
		panic("nil model")
	}), 0)

	_, err := p.Predict(context.Background(), Features{})
	assert.True(t, IsPredictionError(err))
}

func TestSafePredictPassesValue(t *testing.T) {
	y, err := SafePredict(context.Background(), Func(func(context.Context, Features) (float64, error) {
		return 3.5, nil
	}), Features{})
	require.NoError(t, err)
	assert.Equal(t, 3.5, y)
}
