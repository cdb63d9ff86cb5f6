package domain

import "time"

// RankedCrop is one entry of the crop comparison computed at completion.
type RankedCrop struct {
	Crop  string  `json:"crop"`
	Yield float64 `json:"yield"`
}

// PredictionRecord is a completed conversation kept for the history view.
type PredictionRecord struct {
	ID             string       `json:"id"`
	UserID         string       `json:"user_id"`
	SessionID      string       `json:"session_id"`
	CropType       string       `json:"crop_type"`
	SoilType       string       `json:"soil_type"`
	Features       []float64    `json:"features"`
	PredictedYield float64      `json:"predicted_yield"`
	Lowest         []RankedCrop `json:"lowest"`
	CreatedAt      time.Time    `json:"created_at"`
}
