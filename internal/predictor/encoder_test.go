package predictor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncoderCodesFollowOrder(t *testing.T) {
	enc, err := NewEncoder("crop", []string{"Barley", "Rice", "Wheat"})
	require.NoError(t, err)

	for want, name := range []string{"Barley", "Rice", "Wheat"} {
		got, err := enc.Encode(name)
		require.NoError(t, err)
		assert.Equal(t, want, got, name)
	}
	assert.Equal(t, 3, enc.Len())
	assert.Equal(t, []string{"Barley", "Rice", "Wheat"}, enc.Names())
}

func TestEncoderRejectsUnknown(t *testing.T) {
	enc, err := NewEncoder("crop", []string{"Wheat"})
	require.NoError(t, err)

	_, err = enc.Encode("Unicorn")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownCategory))

	// Encode is exact; only Canonical folds case.
	_, err = enc.Encode("wheat")
	assert.ErrorIs(t, err, ErrUnknownCategory)
}

func TestEncoderCanonical(t *testing.T) {
	enc, err := NewEncoder("soil", []string{"Clay", "Loamy"})
	require.NoError(t, err)

	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"Loamy", "Loamy", true},
		{"  loamy ", "Loamy", true},
		{"CLAY", "Clay", true},
		{"Sandy", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := enc.Canonical(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewEncoderValidation(t *testing.T) {
	_, err := NewEncoder("crop", nil)
	assert.Error(t, err)

	_, err = NewEncoder("crop", []string{"Wheat", "wheat"})
	assert.Error(t, err)

	_, err = NewEncoder("crop", []string{"Wheat", " "})
	assert.Error(t, err)
}

func TestEncoderNamesIsACopy(t *testing.T) {
	enc, err := NewEncoder("crop", []string{"Barley", "Wheat"})
	require.NoError(t, err)

	names := enc.Names()
	names[0] = "Mutated"
	assert.Equal(t, "Barley", enc.Names()[0])
}
