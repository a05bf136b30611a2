package indicators

import (
	"github.com/markcheno/go-talib"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// Period-sweep bounds for FindBestPeriod.
const (
	sweepMinPeriod = 5
	sweepMaxPeriod = 100
)

// TurningPoint marks an index where the SMA slope flips sign.
type TurningPoint struct {
	Index  int
	Price  float64
	IsPeak bool
}

// GainResult is the outcome of the peak/trough gain analysis for one
// SMA period.
type GainResult struct {
	Period        int
	TurningPoints []TurningPoint
	// TotalGainPct sums the percentage gains from each trough to the
	// following peak.
	TotalGainPct float64
}

// TurningPointAnalyzer finds SMA slope reversals and accumulates the
// trough-to-peak gains they delimit.
type TurningPointAnalyzer struct {
	period int
}

// NewTurningPointAnalyzer creates an analyzer with the given SMA period.
func NewTurningPointAnalyzer(period int) *TurningPointAnalyzer {
	return &TurningPointAnalyzer{period: period}
}

// Analyze computes the SMA, finds its turning points and sums the
// trough-to-peak percentage gains.
func (t *TurningPointAnalyzer) Analyze(points []models.SeriesPoint) (*GainResult, error) {
	if t.period < 2 {
		return nil, errors.ErrInvalidPeriod
	}
	if len(points) < t.period+2 {
		return nil, errors.ErrInsufficientData
	}

	closes := closePrices(points)
	sma := talib.Sma(closes, t.period)

	result := &GainResult{Period: t.period}

	prevSign := 0
	for i := t.period; i < len(sma); i++ {
		diff := sma[i] - sma[i-1]
		sign := 0
		if diff > 0 {
			sign = 1
		} else if diff < 0 {
			sign = -1
		}
		if sign != 0 && prevSign != 0 && sign != prevSign {
			result.TurningPoints = append(result.TurningPoints, TurningPoint{
				Index:  i - 1,
				Price:  closes[i-1],
				IsPeak: prevSign > 0,
			})
		}
		if sign != 0 {
			prevSign = sign
		}
	}

	// Accumulate gain from each trough to the next peak.
	var trough *TurningPoint
	for i := range result.TurningPoints {
		tp := &result.TurningPoints[i]
		if !tp.IsPeak {
			trough = tp
			continue
		}
		if trough != nil && trough.Price > 0 {
			result.TotalGainPct += (tp.Price - trough.Price) / trough.Price * 100
			trough = nil
		}
	}

	return result, nil
}

// FindBestPeriod sweeps SMA periods 5..100 and returns the analysis with
// the highest total percentage gain. Pure brute force, one full pass per
// period.
func FindBestPeriod(points []models.SeriesPoint) (*GainResult, error) {
	if len(points) < sweepMinPeriod+2 {
		return nil, errors.ErrInsufficientData
	}

	var best *GainResult
	for period := sweepMinPeriod; period <= sweepMaxPeriod; period++ {
		result, err := NewTurningPointAnalyzer(period).Analyze(points)
		if err != nil {
			break // longer periods only need more data
		}
		if best == nil || result.TotalGainPct > best.TotalGainPct {
			best = result
		}
	}

	if best == nil {
		return nil, errors.ErrInsufficientData
	}
	return best, nil
}
