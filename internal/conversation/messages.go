package conversation

import (
	"fmt"
	"strings"

	"github.com/ashureev/yieldchat/internal/domain"
)

const (
	// YieldUnit labels every reported yield.
	YieldUnit = "tons/hectare"

	welcomeMessage = "Welcome to the crop yield assistant! I will ask you a few questions about your field " +
		"and then estimate the expected yield."
	predictionErrorMessage = "Sorry, I could not compute a yield prediction for these values. " +
		"Please start over by sending any message."
	internalErrorMessage = "Sorry, something went wrong on our side. Please try again."
)

func formatYield(v float64) string {
	return fmt.Sprintf("%.2f %s", v, YieldUnit)
}

func formatResult(res *Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "The predicted yield for %s on %s soil is %s.",
		res.CropType, strings.ToLower(res.SoilType), formatYield(res.PredictedYield))
	if len(res.Lowest) > 0 {
		b.WriteString("\nCrops with the lowest expected yield under the same conditions:")
		for i, rc := range res.Lowest {
			fmt.Fprintf(&b, "\n%d. %s: %s", i+1, rc.Crop, formatYield(rc.Yield))
		}
	}
	return b.String()
}

// Result is the outcome of a completed conversation.
type Result struct {
	CropType       string              `json:"crop_type"`
	SoilType       string              `json:"soil_type"`
	Features       []float64           `json:"features"`
	PredictedYield float64             `json:"predicted_yield"`
	Lowest         []domain.RankedCrop `json:"lowest"`
	Unit           string              `json:"unit"`
}
