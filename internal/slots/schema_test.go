package slots

import (
	"testing"

	"github.com/ashureev/yieldchat/internal/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSchema(t *testing.T) *Schema {
	t.Helper()
	crops, err := predictor.NewEncoder("crop", []string{"Barley", "Rice", "Wheat"})
	require.NoError(t, err)
	soils, err := predictor.NewEncoder("soil", []string{"Clay", "Loamy"})
	require.NoError(t, err)
	return NewSchema(crops, soils)
}

func TestSchemaOrder(t *testing.T) {
	s := testSchema(t)
	want := []string{
		KeyCropType, KeySoilType, KeySoilPH, KeyTemperature, KeyHumidity,
		KeyWindSpeed, KeyN, KeyP, KeyK, KeySoilQuality,
	}
	require.Equal(t, predictor.FeatureCount, s.Len())
	for i, key := range want {
		assert.Equal(t, key, s.Field(i).Key)
		assert.Equal(t, i, s.Index(key))
		assert.NotEmpty(t, s.Prompt(i))
	}
	assert.Equal(t, -1, s.Index("Rainfall"))
}

func TestParseCategory(t *testing.T) {
	s := testSchema(t)

	v, verr := s.Parse(0, " wheat ")
	require.Nil(t, verr)
	assert.Equal(t, "Wheat", v)

	_, verr = s.Parse(0, "Unicorn")
	require.NotNil(t, verr)
	assert.Equal(t, KeyCropType, verr.Key)
	assert.Equal(t, 0, verr.Index)
	assert.Contains(t, verr.Message, "Please enter a valid crop")
	assert.Contains(t, verr.Message, "Barley, Rice, Wheat")

	_, verr = s.Parse(1, "Sandy")
	require.NotNil(t, verr)
	assert.Contains(t, verr.Message, "soil")
}

func TestParseNumber(t *testing.T) {
	s := testSchema(t)

	tests := []struct {
		raw  string
		want float64
		ok   bool
	}{
		{"6.5", 6.5, true},
		{" 25 ", 25, true},
		{"-3", -3, true}, // no range checks
		{"1e2", 100, true},
		{"abc", 0, false},
		{"", 0, false},
		{"NaN", 0, false},
		{"inf", 0, false},
	}
	for _, tt := range tests {
		v, verr := s.Parse(2, tt.raw)
		if !tt.ok {
			require.NotNil(t, verr, tt.raw)
			assert.Contains(t, verr.Message, "valid number for soil pH")
			continue
		}
		require.Nil(t, verr, tt.raw)
		assert.Equal(t, tt.want, v)
	}
}

func validAnswers() map[string]any {
	return map[string]any{
		KeyCropType: "Wheat", KeySoilType: "Loamy", KeySoilPH: 6.5,
		KeyTemperature: 25.0, KeyHumidity: 60.0, KeyWindSpeed: 10.0,
		KeyN: 50.0, KeyP: 30.0, KeyK: 40.0, KeySoilQuality: 7.0,
	}
}

func TestFeatures(t *testing.T) {
	s := testSchema(t)

	f, verr := s.Features(validAnswers())
	require.Nil(t, verr)
	assert.Equal(t, predictor.Features{2, 1, 6.5, 25, 60, 10, 50, 30, 40, 7}, f)
}

func TestFeaturesRevalidatesCategories(t *testing.T) {
	s := testSchema(t)
	answers := validAnswers()
	answers[KeySoilType] = "Peaty"

	_, verr := s.Features(answers)
	require.NotNil(t, verr)
	assert.Equal(t, 1, verr.Index)
}

func TestFeaturesMissingAnswer(t *testing.T) {
	s := testSchema(t)
	answers := validAnswers()
	delete(answers, KeyK)

	_, verr := s.Features(answers)
	require.NotNil(t, verr)
	assert.Equal(t, KeyK, verr.Key)
}

func TestParseAll(t *testing.T) {
	s := testSchema(t)
	raw := map[string]any{
		KeyCropType: "rice", KeySoilType: "Clay", KeySoilPH: 6.0,
		KeyTemperature: "22", KeyHumidity: 55.0, KeyWindSpeed: 3.0,
		KeyN: 10.0, KeyP: 10.0, KeyK: 10.0, KeySoilQuality: 5.0,
	}

	answers, verr := s.ParseAll(raw)
	require.Nil(t, verr)
	assert.Equal(t, "Rice", answers[KeyCropType])
	assert.Equal(t, 22.0, answers[KeyTemperature])

	delete(raw, KeyN)
	_, verr = s.ParseAll(raw)
	require.NotNil(t, verr)
	assert.Equal(t, KeyN, verr.Key)

	raw[KeyN] = true
	_, verr = s.ParseAll(raw)
	require.NotNil(t, verr)
}
