package predictor

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaultBundle(t *testing.T) {
	b, err := LoadBundle("")
	require.NoError(t, err)

	crops, soils, err := b.Encoders()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, crops.Len(), 3)
	assert.Positive(t, soils.Len())

	_, err = crops.Encode("Wheat")
	assert.NoError(t, err)
	_, err = soils.Encode("Loamy")
	assert.NoError(t, err)
}

func TestLoadBundleFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	data := `{"crop_classes":["A","B"],"soil_classes":["S"],"intercept":1,
		"coefficients":[1,0,0,0,0,0,0,0,0,0]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	b, err := LoadBundle(path)
	require.NoError(t, err)

	y, err := b.LinearModel().Predict(context.Background(), Features{}.WithCrop(1))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, y, 1e-9)
}

func TestParseBundleRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"not json":          `{`,
		"no crops":          `{"soil_classes":["S"],"coefficients":[0,0,0,0,0,0,0,0,0,0]}`,
		"no soils":          `{"crop_classes":["A"],"coefficients":[0,0,0,0,0,0,0,0,0,0]}`,
		"wrong coefficient": `{"crop_classes":["A"],"soil_classes":["S"],"coefficients":[1,2]}`,
	}
	for name, data := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseBundle([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoadBundleMissingFile(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLinearModelRejectsNonFinite(t *testing.T) {
	b, err := LoadBundle("")
	require.NoError(t, err)

	f := Features{}
	f[2] = math.NaN()
	_, err = b.LinearModel().Predict(context.Background(), f)
	require.Error(t, err)
	assert.True(t, IsPredictionError(err))
}
