package indicators

import (
	"fmt"
	"time"

	"github.com/markcheno/go-talib"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// vspy fallback thresholds: when the benchmark barely moved, a material
// move of our own maps to a fixed strong/weak reading.
const (
	vspyEpsilon  = 1e-4
	vspyStrong   = 3.0
	vspyWeak     = 0.3
	vspyClampLo  = -5.0
	vspyClampHi  = 10.0
	vspyMAPeriod = 3
)

// VSPY calculates relative performance against a benchmark series: the
// ratio of the N-day percentage change of the symbol's smoothed price to
// the benchmark's over the same dates.
type VSPY struct {
	period int
}

// NewVSPY creates a new relative-performance indicator with an N-day
// change window.
func NewVSPY(period int) *VSPY {
	return &VSPY{period: period}
}

func (v *VSPY) Name() string {
	return fmt.Sprintf("VSPY_%d", v.period)
}

func (v *VSPY) Period() int {
	return v.period + vspyMAPeriod
}

// Calculate returns one value per point. The benchmark is aligned by
// date; a missing benchmark date yields the neutral value 1.
func (v *VSPY) Calculate(points, benchmark []models.SeriesPoint) ([]float64, error) {
	if v.period <= 0 {
		return nil, errors.ErrInvalidPeriod
	}
	if len(points) == 0 {
		return nil, errors.ErrInsufficientData
	}

	n := len(points)
	result := make([]float64, n)
	for i := range result {
		result[i] = 1
	}
	if len(benchmark) < vspyMAPeriod {
		return result, nil
	}

	ownMA := smoothed(closePrices(points))
	benchMA := smoothed(closePrices(benchmark))

	benchByDate := make(map[time.Time]float64, len(benchmark))
	for i, p := range benchmark {
		if i >= vspyMAPeriod-1 {
			benchByDate[day(p.Date)] = benchMA[i]
		}
	}

	for i := v.period + vspyMAPeriod - 1; i < n; i++ {
		prev := ownMA[i-v.period]
		if prev == 0 {
			continue
		}
		ownChange := (ownMA[i] - prev) / prev

		benchChange, err := benchmarkChange(benchByDate, points[i].Date, points[i-v.period].Date)
		if err != nil {
			continue // recovered locally: neutral 1 stands
		}

		var value float64
		switch {
		case benchChange > vspyEpsilon || benchChange < -vspyEpsilon:
			value = ownChange / benchChange
		case ownChange > vspyEpsilon:
			value = vspyStrong
		case ownChange < -vspyEpsilon:
			value = vspyWeak
		default:
			value = 1
		}

		result[i] = clamp(value, vspyClampLo, vspyClampHi)
	}

	return result, nil
}

// benchmarkChange returns the benchmark's percentage change between two
// dates, or ErrMissingAlignment when either date has no smoothed
// benchmark value to compare against.
func benchmarkChange(byDate map[time.Time]float64, now, then time.Time) (float64, error) {
	bNow, okNow := byDate[day(now)]
	bPrev, okPrev := byDate[day(then)]
	if !okNow || !okPrev || bPrev == 0 {
		return 0, errors.ErrMissingAlignment
	}
	return (bNow - bPrev) / bPrev, nil
}

// smoothed applies the 3-day moving average both series are compared on.
func smoothed(values []float64) []float64 {
	if len(values) < vspyMAPeriod {
		return values
	}
	return talib.Sma(values, vspyMAPeriod)
}

func day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
