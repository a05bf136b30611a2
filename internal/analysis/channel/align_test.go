package channel

import (
	"math"
	"testing"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

func TestComputeAlignmentCentersExtremes(t *testing.T) {
	// Antisymmetric spikes near the window edges keep the residual
	// extremes symmetric, so the shift should stay at zero and both
	// bounds should register touches.
	series := linearSeries(50, 100, 1)
	series[1].Close += 5
	series[48].Close -= 5

	result, err := ComputeAlignment(series, 50, 0, 1, models.PriceClose)
	if err != nil {
		t.Fatalf("ComputeAlignment: %v", err)
	}

	if math.Abs(result.InterceptShift) > 1e-9 {
		t.Errorf("shift = %v, want ~0 for symmetric extremes", result.InterceptShift)
	}
	if !result.TouchesUpper {
		t.Error("upper touch not detected at the leading spike")
	}
	if !result.TouchesLower {
		t.Error("lower touch not detected at the trailing spike")
	}
	if result.OptimalDelta <= 0 {
		t.Errorf("delta = %v, want > 0", result.OptimalDelta)
	}
	if math.Abs(result.OptimalDelta*result.StdDev-result.ExtremeMagnitude) > 1e-9 {
		t.Errorf("delta*stddev = %v, want extreme %v",
			result.OptimalDelta*result.StdDev, result.ExtremeMagnitude)
	}
}

func TestComputeAlignmentShortWindowTouches(t *testing.T) {
	// A window under 13 points used to round its boundary zone down to
	// nothing, so edge turning points could never count as touches.
	series := linearSeries(12, 100, 1)
	series[1].Close += 5
	series[10].Close -= 5

	result, err := ComputeAlignment(series, 12, 0, 1, models.PriceClose)
	if err != nil {
		t.Fatalf("ComputeAlignment: %v", err)
	}

	if !result.TouchesUpper {
		t.Error("upper touch not detected in a short window")
	}
	if !result.TouchesLower {
		t.Error("lower touch not detected in a short window")
	}
	if math.Abs(result.InterceptShift) > 1e-9 {
		t.Errorf("shift = %v, want ~0 for symmetric extremes", result.InterceptShift)
	}
}

func TestComputeAlignmentShiftedExtremes(t *testing.T) {
	// A single positive spike pulls the shift up by half its residual.
	series := linearSeries(60, 100, 1)
	series[2].Close += 8

	result, err := ComputeAlignment(series, 60, 0, 1, models.PriceClose)
	if err != nil {
		t.Fatalf("ComputeAlignment: %v", err)
	}

	if result.InterceptShift <= 0 {
		t.Errorf("shift = %v, want > 0 toward the spike", result.InterceptShift)
	}
}

func TestComputeAlignmentCoverage(t *testing.T) {
	// The optimal multiplier reaches the extremes, so the aligned channel
	// always covers the whole window.
	series := linearSeries(80, 100, 0.5)
	for i := range series {
		series[i].Close += float64(i%7) - 3
	}

	result, err := ComputeAlignment(series, 60, 5, 3, models.PriceClose)
	if err != nil {
		t.Fatalf("ComputeAlignment: %v", err)
	}
	if result.TotalPoints != 60 {
		t.Errorf("total = %d, want 60", result.TotalPoints)
	}
	if result.CoverageCount != result.TotalPoints {
		t.Errorf("coverage = %d, want full window %d", result.CoverageCount, result.TotalPoints)
	}
}

func TestComputeAlignmentPerfectLine(t *testing.T) {
	result, err := ComputeAlignment(linearSeries(40, 100, 1), 40, 0, 1, models.PriceClose)
	if err != nil {
		t.Fatalf("ComputeAlignment: %v", err)
	}
	if result.OptimalDelta != 0 {
		t.Errorf("delta = %v, want 0 on a residual-free window", result.OptimalDelta)
	}
	if result.InterceptShift != 0 {
		t.Errorf("shift = %v, want 0", result.InterceptShift)
	}
}

func TestComputeAlignmentErrors(t *testing.T) {
	series := linearSeries(30, 100, 1)

	if _, err := ComputeAlignment(series, 1, 0, 3, models.PriceClose); !errors.Is(err, errors.ErrInvalidPeriod) {
		t.Errorf("lookback 1: err = %v, want ErrInvalidPeriod", err)
	}
	if _, err := ComputeAlignment(series, 40, 0, 3, models.PriceClose); !errors.Is(err, errors.ErrInsufficientData) {
		t.Errorf("oversized window: err = %v, want ErrInsufficientData", err)
	}
}

func TestTurningPoints(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   []int
	}{
		{"monotonic", []float64{1, 2, 3, 4, 5}, nil},
		{"single peak", []float64{1, 2, 3, 2, 1}, []int{2}},
		{"single trough", []float64{3, 2, 1, 2, 3}, []int{2}},
		{"plateau peak", []float64{1, 2, 2, 1}, []int{2}},
		{"zigzag", []float64{1, 3, 1, 3, 1}, []int{1, 2, 3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := turningPoints(tt.values)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}
