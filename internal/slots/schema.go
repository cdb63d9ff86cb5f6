// Package slots defines the ordered questions asked by the conversation and
// how each answer is parsed.
package slots

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ashureev/yieldchat/internal/predictor"
)

// Field keys in question order. The order is part of the client protocol.
const (
	KeyCropType    = "Crop_Type"
	KeySoilType    = "Soil_Type"
	KeySoilPH      = "Soil_pH"
	KeyTemperature = "Temperature"
	KeyHumidity    = "Humidity"
	KeyWindSpeed   = "Wind_Speed"
	KeyN           = "N"
	KeyP           = "P"
	KeyK           = "K"
	KeySoilQuality = "Soil_Quality"
)

// ValidationError is returned for an answer that cannot fill its slot.
type ValidationError struct {
	Index   int
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Key, e.Message)
}

// Field is one slot: its key, the question, and the answer parser.
type Field struct {
	Key    string
	Label  string
	Prompt string
	// Category is set for fields answered from a closed set.
	Category *predictor.Encoder
}

// Schema is the fixed, ordered list of slots.
type Schema struct {
	fields []Field
}

// NewSchema builds the ten-field schema. crops and soils define the accepted
// answers for Crop_Type and Soil_Type.
func NewSchema(crops, soils *predictor.Encoder) *Schema {
	return &Schema{fields: []Field{
		{Key: KeyCropType, Label: "crop type", Prompt: "Which crop are you planning to grow? (e.g. Wheat, Rice, Corn)", Category: crops},
		{Key: KeySoilType, Label: "soil type", Prompt: "What type of soil is the field? (e.g. Loamy, Clay, Sandy)", Category: soils},
		{Key: KeySoilPH, Label: "soil pH", Prompt: "What is the soil pH?"},
		{Key: KeyTemperature, Label: "temperature", Prompt: "What is the average temperature in °C?"},
		{Key: KeyHumidity, Label: "humidity", Prompt: "What is the relative humidity in %?"},
		{Key: KeyWindSpeed, Label: "wind speed", Prompt: "What is the average wind speed in km/h?"},
		{Key: KeyN, Label: "nitrogen (N)", Prompt: "How much nitrogen (N) is in the soil?"},
		{Key: KeyP, Label: "phosphorus (P)", Prompt: "How much phosphorus (P) is in the soil?"},
		{Key: KeyK, Label: "potassium (K)", Prompt: "How much potassium (K) is in the soil?"},
		{Key: KeySoilQuality, Label: "soil quality", Prompt: "How would you rate the soil quality (e.g. 1-10)?"},
	}}
}

// Len returns the number of slots.
func (s *Schema) Len() int {
	return len(s.fields)
}

// Field returns the slot at index i.
func (s *Schema) Field(i int) Field {
	return s.fields[i]
}

// Prompt returns the question for slot i.
func (s *Schema) Prompt(i int) string {
	return s.fields[i].Prompt
}

// Index returns the position of key, or -1.
func (s *Schema) Index(key string) int {
	for i, f := range s.fields {
		if f.Key == key {
			return i
		}
	}
	return -1
}

// Parse validates raw as the answer for slot i. Category answers resolve to
// the canonical name, everything else to a float64.
func (s *Schema) Parse(i int, raw string) (any, *ValidationError) {
	f := s.fields[i]
	if f.Category != nil {
		name, ok := f.Category.Canonical(raw)
		if !ok {
			return nil, &ValidationError{
				Index: i,
				Key:   f.Key,
				Message: fmt.Sprintf("%q is not a known %s. Please enter a valid %s name, one of: %s.",
					strings.TrimSpace(raw), f.Label, f.Category.Label(), strings.Join(f.Category.Names(), ", ")),
			}
		}
		return name, nil
	}

	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, &ValidationError{
			Index:   i,
			Key:     f.Key,
			Message: fmt.Sprintf("Please enter a valid number for %s.", f.Label),
		}
	}
	return v, nil
}

// Features encodes a complete set of answers into the model input row.
// Category answers are re-checked against their encoders.
func (s *Schema) Features(answers map[string]any) (predictor.Features, *ValidationError) {
	var out predictor.Features
	for i, f := range s.fields {
		v, ok := answers[f.Key]
		if !ok {
			return out, &ValidationError{Index: i, Key: f.Key, Message: "missing answer"}
		}
		if f.Category != nil {
			name, _ := v.(string)
			code, err := f.Category.Encode(name)
			if err != nil {
				return out, &ValidationError{
					Index:   i,
					Key:     f.Key,
					Message: fmt.Sprintf("%q is no longer a known %s. Please enter a valid %s name.", name, f.Label, f.Category.Label()),
				}
			}
			out[i] = float64(code)
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return out, &ValidationError{Index: i, Key: f.Key, Message: fmt.Sprintf("Please enter a valid number for %s.", f.Label)}
		}
		out[i] = n
	}
	return out, nil
}

// ParseAll validates a complete one-shot request keyed by field key.
// Values may be strings or numbers.
func (s *Schema) ParseAll(raw map[string]any) (map[string]any, *ValidationError) {
	answers := make(map[string]any, len(s.fields))
	for i, f := range s.fields {
		v, ok := raw[f.Key]
		if !ok {
			return nil, &ValidationError{Index: i, Key: f.Key, Message: "is required"}
		}
		var text string
		switch tv := v.(type) {
		case string:
			text = tv
		case float64:
			text = strconv.FormatFloat(tv, 'g', -1, 64)
		default:
			return nil, &ValidationError{Index: i, Key: f.Key, Message: "must be a string or number"}
		}
		parsed, verr := s.Parse(i, text)
		if verr != nil {
			return nil, verr
		}
		answers[f.Key] = parsed
	}
	return answers, nil
}
