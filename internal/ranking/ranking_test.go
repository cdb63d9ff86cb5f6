package ranking

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/ashureev/yieldchat/internal/domain"
	"github.com/ashureev/yieldchat/internal/predictor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func encoder(t *testing.T, names ...string) *predictor.Encoder {
	t.Helper()
	enc, err := predictor.NewEncoder("crop", names)
	require.NoError(t, err)
	return enc
}

// yieldTable predicts from a fixed per-code table.
func yieldTable(values ...float64) predictor.Predictor {
	return predictor.Func(func(_ context.Context, f predictor.Features) (float64, error) {
		return values[int(f[0])], nil
	})
}

func TestLowestSortsAscending(t *testing.T) {
	crops := encoder(t, "A", "B", "C", "D", "E")
	c := NewComputer(yieldTable(5, 1, 4, 2, 3), crops, 4, nil)

	got := c.Lowest(context.Background(), predictor.Features{}, DefaultSize)
	assert.Equal(t, []domain.RankedCrop{
		{Crop: "B", Yield: 1},
		{Crop: "D", Yield: 2},
		{Crop: "E", Yield: 3},
	}, got)
}

func TestLowestStableOnTies(t *testing.T) {
	crops := encoder(t, "A", "B", "C", "D")
	c := NewComputer(yieldTable(2, 1, 1, 1), crops, 2, nil)

	got := c.Lowest(context.Background(), predictor.Features{}, DefaultSize)
	require.Len(t, got, 3)
	assert.Equal(t, "B", got[0].Crop)
	assert.Equal(t, "C", got[1].Crop)
	assert.Equal(t, "D", got[2].Crop)
}

func TestLowestSkipsFailures(t *testing.T) {
	crops := encoder(t, "A", "B", "C", "D")
	p := predictor.Func(func(_ context.Context, f predictor.Features) (float64, error) {
		if f[0] == 0 {
			return 0, errors.New("bad crop")
		}
		return f[0], nil
	})
	c := NewComputer(p, crops, 4, nil)

	got := c.Lowest(context.Background(), predictor.Features{}, DefaultSize)
	require.Len(t, got, 3)
	for _, rc := range got {
		assert.NotEqual(t, "A", rc.Crop)
	}
}

func TestLowestFewerCropsThanSize(t *testing.T) {
	crops := encoder(t, "A", "B")
	c := NewComputer(yieldTable(3, 1), crops, 0, nil)

	got := c.Lowest(context.Background(), predictor.Features{}, DefaultSize)
	assert.Equal(t, []domain.RankedCrop{{Crop: "B", Yield: 1}, {Crop: "A", Yield: 3}}, got)
}

func TestAllHoldsOtherFeaturesFixed(t *testing.T) {
	crops := encoder(t, "A", "B", "C")
	base := predictor.Features{2, 1, 6.5, 25, 60, 10, 50, 30, 40, 7}
	var calls atomic.Int32
	p := predictor.Func(func(_ context.Context, f predictor.Features) (float64, error) {
		calls.Add(1)
		assert.Equal(t, base[1:], f[1:])
		return f[0], nil
	})

	got := NewComputer(p, crops, 3, nil).All(context.Background(), base)
	assert.Len(t, got, 3)
	assert.Equal(t, int32(3), calls.Load())
}

func TestLowestNoDuplicates(t *testing.T) {
	crops := encoder(t, "A", "B", "C", "D", "E", "F")
	c := NewComputer(yieldTable(1, 1, 1, 1, 1, 1), crops, 6, nil)

	got := c.Lowest(context.Background(), predictor.Features{}, DefaultSize)
	seen := map[string]bool{}
	for _, rc := range got {
		assert.False(t, seen[rc.Crop], rc.Crop)
		seen[rc.Crop] = true
	}
}

func TestLowestSkipsPanickingCrop(t *testing.T) {
	crops := encoder(t, "A", "B", "C", "D")
	p := predictor.Func(func(_ context.Context, f predictor.Features) (float64, error) {
		if f[0] == 1 {
			panic("corrupt tree")
		}
		return f[0], nil
	})
	c := NewComputer(p, crops, 4, nil)

	var got []domain.RankedCrop
	require.NotPanics(t, func() {
		got = c.Lowest(context.Background(), predictor.Features{}, DefaultSize)
	})
	assert.Equal(t, []domain.RankedCrop{
		{Crop: "A", Yield: 0},
		{Crop: "C", Yield: 2},
		{Crop: "D", Yield: 3},
	}, got)
}
