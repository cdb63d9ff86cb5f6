// Package ranking compares the predicted yield of every known crop under the
// same field conditions.
package ranking

import (
	"context"
	"log/slog"
	"sort"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/ashureev/yieldchat/internal/predictor"
	"golang.org/x/sync/errgroup"
)

// DefaultSize is the number of crops reported in a comparison.
const DefaultSize = 3

// Computer runs one prediction per known crop.
type Computer struct {
	predictor   predictor.Predictor
	crops       *predictor.Encoder
	concurrency int
	logger      *slog.Logger
}

// NewComputer creates a ranking computer. concurrency bounds the number of
// in-flight predictions; values below 1 mean sequential.
func NewComputer(p predictor.Predictor, crops *predictor.Encoder, concurrency int, logger *slog.Logger) *Computer {
	if concurrency < 1 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Computer{predictor: p, crops: crops, concurrency: concurrency, logger: logger}
}

// All predicts the yield of every known crop with the crop slot of base
// replaced, sorted ascending. Crops whose prediction fails are left out.
// Equal yields keep encoder order.
func (c *Computer) All(ctx context.Context, base predictor.Features) []domain.RankedCrop {
	names := c.crops.Names()
	yields := make([]float64, len(names))
	ok := make([]bool, len(names))

	var g errgroup.Group
	g.SetLimit(c.concurrency)
	for i, name := range names {
		g.Go(func() error {
			y, err := predictor.SafePredict(ctx, c.predictor, base.WithCrop(i))
			if err != nil {
				c.logger.Debug("Skipping crop in ranking", "crop", name, "error", err)
				return nil
			}
			yields[i] = y
			ok[i] = true
			return nil
		})
	}
	// Workers never return an error; failures are recorded per crop.
	_ = g.Wait()

	ranked := make([]domain.RankedCrop, 0, len(names))
	for i, name := range names {
		if ok[i] {
			ranked = append(ranked, domain.RankedCrop{Crop: name, Yield: yields[i]})
		}
	}
	sort.SliceStable(ranked, func(a, b int) bool {
		return ranked[a].Yield < ranked[b].Yield
	})
	return ranked
}

// Lowest returns at most n crops with the lowest predicted yield.
func (c *Computer) Lowest(ctx context.Context, base predictor.Features, n int) []domain.RankedCrop {
	ranked := c.All(ctx, base)
	if n < len(ranked) {
		ranked = ranked[:n]
	}
	return ranked
}
