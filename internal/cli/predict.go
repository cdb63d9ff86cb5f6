package cli

import (
	"fmt"
	"math"

	"github.com/ashureev/yieldchat/internal/app"
	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/ashureev/yieldchat/internal/ranking"
	"github.com/ashureev/yieldchat/internal/slots"
	"github.com/spf13/cobra"
)

// PredictResult is the output of yieldctl predict.
type PredictResult struct {
	CropType       string              `json:"crop_type"`
	SoilType       string              `json:"soil_type"`
	PredictedYield float64             `json:"predicted_yield"`
	Lowest         []domain.RankedCrop `json:"lowest,omitempty"`
}

func newPredictCommand(e *env) *cobra.Command {
	var (
		input string
		rank  int
	)
	values := map[string]*string{}
	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict the yield for one set of field values",
		Example: `  yieldctl predict --crop Wheat --soil Loamy --ph 6.5 --temperature 25 --humidity 60 \
    --wind-speed 10 --n 50 --p 30 --k 40 --soil-quality 7
  echo '{"Crop_Type":"Wheat",...}' | yieldctl predict --input -`,
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := map[string]any{}
			if input != "" {
				if err := e.readInputJSON(input, &raw); err != nil {
					return err
				}
			}
			for key, v := range values {
				if *v != "" {
					raw[key] = *v
				}
			}

			model, err := app.LoadModel(e.cfg, e.logger)
			if err != nil {
				return err
			}
			defer model.Close()

			answers, verr := model.Schema.ParseAll(raw)
			if verr != nil {
				return verr
			}
			features, verr := model.Schema.Features(answers)
			if verr != nil {
				return verr
			}

			ctx := cmd.Context()
			yield, err := model.Predictor.Predict(ctx, features)
			if err != nil {
				return fmt.Errorf("predict: %w", err)
			}

			res := PredictResult{
				CropType:       answers[slots.KeyCropType].(string),
				SoilType:       answers[slots.KeySoilType].(string),
				PredictedYield: math.Round(yield*100) / 100,
			}
			if rank > 0 {
				rc := ranking.NewComputer(model.Predictor, model.Crops, e.cfg.RankingConcurrency, e.logger)
				res.Lowest = rc.Lowest(ctx, features, rank)
				for i := range res.Lowest {
					res.Lowest[i].Yield = math.Round(res.Lowest[i].Yield*100) / 100
				}
			}
			return e.outputResult(res)
		},
	}

	flags := []struct{ name, key, usage string }{
		{"crop", slots.KeyCropType, "crop type"},
		{"soil", slots.KeySoilType, "soil type"},
		{"ph", slots.KeySoilPH, "soil pH"},
		{"temperature", slots.KeyTemperature, "average temperature in °C"},
		{"humidity", slots.KeyHumidity, "relative humidity in %"},
		{"wind-speed", slots.KeyWindSpeed, "average wind speed in km/h"},
		{"n", slots.KeyN, "nitrogen (N)"},
		{"p", slots.KeyP, "phosphorus (P)"},
		{"k", slots.KeyK, "potassium (K)"},
		{"soil-quality", slots.KeySoilQuality, "soil quality"},
	}
	for _, f := range flags {
		values[f.key] = cmd.Flags().String(f.name, "", f.usage)
	}
	cmd.Flags().StringVar(&input, "input", "", `JSON file with the field values ("-" for stdin)`)
	cmd.Flags().IntVar(&rank, "rank", ranking.DefaultSize, "number of lowest-yield crops to list (0 to skip)")
	return cmd
}
