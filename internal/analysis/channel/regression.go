package channel

import (
	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// Fit computes an ordinary least-squares line over the points, using the
// 0-based position in the slice as the independent variable. Deterministic,
// no side effects.
func Fit(points []models.SeriesPoint, src models.PriceSource) (*RegressionResult, error) {
	return fitValues(prices(points, src))
}

// fitValues fits y = slope*x + intercept with x = 0..n-1.
func fitValues(values []float64) (*RegressionResult, error) {
	n := len(values)
	if n < 2 {
		return nil, errors.ErrInsufficientData
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	// All x identical is impossible for n >= 2, but guarded.
	if denom == 0 {
		return nil, errors.ErrDegenerateInput
	}

	slope := (fn*sumXY - sumX*sumY) / denom
	intercept := (sumY - slope*sumX) / fn

	return &RegressionResult{
		Slope:     slope,
		Intercept: intercept,
		N:         n,
	}, nil
}

// residuals returns value - fitted line for every window position.
func residuals(values []float64, fit *RegressionResult) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v - fit.ValueAt(i)
	}
	return out
}
