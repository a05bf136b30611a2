package channel

import (
	"context"
	"testing"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// wiggleSeries follows base + slope*i with a small alternating offset,
// so every point stays within the cross tolerance of its fit.
func wiggleSeries(n int, base, slope, amplitude float64) []models.SeriesPoint {
	series := linearSeries(n, base, slope)
	for i := range series {
		if i%2 == 0 {
			series[i].Close += amplitude
		} else {
			series[i].Close -= amplitude
		}
	}
	return series
}

func TestFindOptimalPrefersLongestWindow(t *testing.T) {
	// Every window of a near-linear series crosses at every point, so
	// the longest window wins phase 1.
	series := wiggleSeries(120, 100, 0.2, 0.5)

	result, err := FindOptimal(context.Background(), series, OptimizeConfig{SmoothingPeriod: 3})
	if err != nil {
		t.Fatalf("FindOptimal: %v", err)
	}

	full := result.Full
	if full.Lookback != 120 {
		t.Errorf("lookback = %d, want 120", full.Lookback)
	}
	if full.EndOffset != 0 {
		t.Errorf("endOffset = %d, want 0", full.EndOffset)
	}
	if full.MaxCrosses != 120 {
		t.Errorf("crosses = %d, want 120", full.MaxCrosses)
	}
	if full.Delta <= 0 {
		t.Errorf("delta = %v, want > 0 on a noisy series", full.Delta)
	}

	if result.Recent == nil {
		t.Fatal("recent-window result missing")
	}
	if result.Recent.Lookback > 30 {
		t.Errorf("recent lookback = %d, want <= 30", result.Recent.Lookback)
	}
}

func TestFindOptimalRespectsBudget(t *testing.T) {
	series := wiggleSeries(300, 100, 0.1, 0.3)
	budget := 500

	result, err := FindOptimal(context.Background(), series, OptimizeConfig{
		EvalBudget:      budget,
		SmoothingPeriod: 3,
	})
	if err != nil {
		t.Fatalf("FindOptimal: %v", err)
	}

	if result.Full.Evaluations > budget {
		t.Errorf("evaluations = %d, over budget %d", result.Full.Evaluations, budget)
	}
	if result.Full.Evaluations == 0 {
		t.Error("no evaluations recorded")
	}
	if result.Full.Lookback < minLookback || result.Full.Lookback > 300 {
		t.Errorf("lookback = %d outside [%d, 300]", result.Full.Lookback, minLookback)
	}
	if result.Full.EndOffset < 0 || result.Full.EndOffset > 60 {
		t.Errorf("endOffset = %d outside [0, n/5]", result.Full.EndOffset)
	}
}

func TestFindOptimalInsufficientData(t *testing.T) {
	if _, err := FindOptimal(context.Background(), linearSeries(10, 100, 1), OptimizeConfig{}); !errors.Is(err, errors.ErrInsufficientData) {
		t.Errorf("err = %v, want ErrInsufficientData", err)
	}
}

func TestFindOptimalCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := FindOptimal(ctx, wiggleSeries(200, 100, 0.1, 0.3), OptimizeConfig{SmoothingPeriod: 3}); err == nil {
		t.Error("cancelled context should abort the search")
	}
}

func TestFindOptimalDeterministic(t *testing.T) {
	series := wiggleSeries(150, 50, 0.3, 0.4)
	cfg := OptimizeConfig{EvalBudget: 2000, SmoothingPeriod: 5}

	first, err := FindOptimal(context.Background(), series, cfg)
	if err != nil {
		t.Fatalf("FindOptimal: %v", err)
	}
	for i := 0; i < 3; i++ {
		again, err := FindOptimal(context.Background(), series, cfg)
		if err != nil {
			t.Fatalf("FindOptimal run %d: %v", i, err)
		}
		if *again.Full != *first.Full {
			t.Fatalf("run %d diverged: %+v vs %+v", i, again.Full, first.Full)
		}
	}
}

func TestCountCrosses(t *testing.T) {
	// Alternating +-0.5 around level ~100: every point is within 1%.
	window := make([]float64, 40)
	for i := range window {
		window[i] = 100
		if i%2 == 0 {
			window[i] += 0.5
		} else {
			window[i] -= 0.5
		}
	}
	if got := countCrosses(window); got != 40 {
		t.Errorf("crosses = %d, want 40", got)
	}

	// Alternating +-10: nothing within 1% of the center.
	for i := range window {
		window[i] = 100
		if i%2 == 0 {
			window[i] += 10
		} else {
			window[i] -= 10
		}
	}
	if got := countCrosses(window); got != 0 {
		t.Errorf("crosses = %d, want 0", got)
	}
}
