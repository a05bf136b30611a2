package channel

import (
	"math"

	"trendscope/internal/models"
)

// sum calculates the sum of a slice of float64.
func sum(values []float64) float64 {
	var total float64
	for _, v := range values {
		total += v
	}
	return total
}

// mean calculates the arithmetic mean of a slice of float64.
func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return sum(values) / float64(len(values))
}

// stdDev calculates the population standard deviation.
func stdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// sampleStdDev calculates the sample standard deviation (n-1 divisor).
func sampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	m := mean(values)
	var variance float64
	for _, v := range values {
		diff := v - m
		variance += diff * diff
	}
	variance /= float64(len(values) - 1)
	return math.Sqrt(variance)
}

// highest returns the highest value in a slice.
func highest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	h := values[0]
	for _, v := range values[1:] {
		if v > h {
			h = v
		}
	}
	return h
}

// lowest returns the lowest value in a slice.
func lowest(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	l := values[0]
	for _, v := range values[1:] {
		if v < l {
			l = v
		}
	}
	return l
}

// prices extracts the selected price from a window of points.
func prices(points []models.SeriesPoint, src models.PriceSource) []float64 {
	out := make([]float64, len(points))
	for i, p := range points {
		out[i] = p.Price(src)
	}
	return out
}

// trailingSMA computes a simple moving average with a trailing window.
// Indices before the first full window average whatever is available, so
// every index is defined.
func trailingSMA(values []float64, period int) []float64 {
	if period < 1 {
		period = 1
	}
	out := make([]float64, len(values))
	var windowSum float64
	for i, v := range values {
		windowSum += v
		if i >= period {
			windowSum -= values[i-period]
			out[i] = windowSum / float64(period)
		} else {
			out[i] = windowSum / float64(i+1)
		}
	}
	return out
}

// fptr returns a pointer to a copy of v.
func fptr(v float64) *float64 {
	return &v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
