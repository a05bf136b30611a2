package channel

import (
	"math"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// boundaryZoneFraction is the share of the window, at each end, in which
// a turning point must fall to count as a bound touch. Fixed heuristic;
// flag for domain-expert review before changing.
const boundaryZoneFraction = 0.08

// touchTolerance scales the stddev into the equality tolerance used when
// comparing a turning point's residual against the window extreme.
const touchTolerance = 1e-6

// ComputeAlignment finds the intercept shift and width multiplier that
// make both channel bounds simultaneously touch the window's price
// extremes. Touches are validated against turning points of an
// SMA-smoothed residual series so a spurious single-point spike in the
// window interior does not count.
func ComputeAlignment(series []models.SeriesPoint, lookback, endOffset, smaPeriod int, src models.PriceSource) (*AlignmentResult, error) {
	n := len(series)
	if lookback < 2 || endOffset < 0 {
		return nil, errors.ErrInvalidPeriod
	}
	start := n - endOffset - lookback
	end := n - endOffset
	if start < 0 || end > n {
		return nil, errors.ErrInsufficientData
	}

	window := prices(series[start:end], src)
	fit, err := fitValues(window)
	if err != nil {
		return nil, err
	}

	resid := residuals(window, fit)
	maxResid := highest(resid)
	minResid := lowest(resid)

	// Center the channel so both extremes are equidistant from it.
	shift := (maxResid + minResid) / 2

	adjusted := make([]float64, len(resid))
	var extreme float64
	for i, r := range resid {
		adjusted[i] = r - shift
		if a := math.Abs(adjusted[i]); a > extreme {
			extreme = a
		}
	}

	sd := sampleStdDev(adjusted)
	delta := 0.0
	if sd > 0 {
		delta = extreme / sd
	}

	// Smooth the price before recomputing residuals; turning points of
	// the smoothed residuals are the admissible touch locations.
	smoothed := trailingSMA(window, smaPeriod)
	smoothedAdj := make([]float64, len(window))
	for i := range window {
		smoothedAdj[i] = smoothed[i] - fit.ValueAt(i) - shift
	}

	result := &AlignmentResult{
		InterceptShift:   shift,
		OptimalDelta:     delta,
		TotalPoints:      len(window),
		StdDev:           sd,
		Slope:            fit.Slope,
		BaseIntercept:    fit.Intercept,
		ExtremeMagnitude: extreme,
	}

	tol := sd * touchTolerance
	boundary := int(float64(len(window)) * boundaryZoneFraction)
	// Turning points only occur at interior indices, so short windows
	// need a floor of two to keep the boundary zones non-empty.
	if boundary < 2 {
		boundary = 2
	}
	for _, tp := range turningPoints(smoothedAdj) {
		if tp >= boundary && tp < len(window)-boundary {
			continue
		}
		if math.Abs(adjusted[tp]) < extreme-tol {
			continue
		}
		if adjusted[tp] > 0 {
			result.TouchesUpper = true
		} else {
			result.TouchesLower = true
		}
	}

	width := delta*sd + tol
	for _, a := range adjusted {
		if math.Abs(a) <= width {
			result.CoverageCount++
		}
	}

	return result, nil
}

// turningPoints returns the indices where the slope of the series flips
// sign (local extrema).
func turningPoints(values []float64) []int {
	var out []int
	prevSign := 0
	for i := 1; i < len(values); i++ {
		diff := values[i] - values[i-1]
		sign := 0
		if diff > 0 {
			sign = 1
		} else if diff < 0 {
			sign = -1
		}
		if sign != 0 && prevSign != 0 && sign != prevSign {
			out = append(out, i-1)
		}
		if sign != 0 {
			prevSign = sign
		}
	}
	return out
}
