package channel

import (
	"context"
	"math"
	"sort"

	"trendscope/internal/models"
)

// Detector heuristics. Fixed values carried over from tuning; flag for
// domain-expert review before changing.
const (
	// minDetectorScore rejects weak candidates and stops the search.
	minDetectorScore = 0.15
	// minCenterProximity is the anti-overfit guard: at least this
	// fraction of window points must sit near the center line.
	minCenterProximity = 0.70
	// centerProximityBand is the relative distance from the center value
	// that still counts as "near".
	centerProximityBand = 0.20
	// maxClaimedFraction skips candidates mostly covered by a prior channel.
	maxClaimedFraction = 0.50
	// usedCoreFraction of an accepted window is marked claimed, leaving a
	// 20% overlap buffer at each edge.
	usedCoreFraction = 0.60
	// boundaryGuardFraction of the window at each end is checked against
	// the boundary-fit guard.
	boundaryGuardFraction = 0.10
	// boundaryGuardLimit is the allowed ratio of edge to overall mean
	// absolute residual.
	boundaryGuardLimit = 1.5
	// survivorFraction of the minimum window a split range must retain.
	survivorFraction = 0.80
	// maxSharedFraction bounds the indices any two accepted channels may
	// share, relative to the shorter of the pair.
	maxSharedFraction = 0.20
	// detectorTouchBand is the stddev fraction within which price counts
	// as touching a bound.
	detectorTouchBand = 0.10
)

// DetectConfig configures the multi-channel detector.
type DetectConfig struct {
	MinRatio           float64
	MaxRatio           float64
	StartingMultiplier float64
	MaxChannels        int
	BandCount          int
	PriceSource        models.PriceSource
}

type indexRange struct {
	start, end int // end exclusive
}

func (r indexRange) length() int { return r.end - r.start }

// FindChannels iteratively partitions the series into non-overlapping
// sub-ranges, each fit with an independently optimized channel. Returned
// candidates are sorted by start index; any two channels share at most
// maxSharedFraction of the shorter lookback.
func FindChannels(ctx context.Context, series []models.SeriesPoint, cfg DetectConfig) ([]ChannelCandidate, error) {
	n := len(series)
	if cfg.MaxChannels <= 0 {
		cfg.MaxChannels = 10
	}
	minWindow := maxInt(10, int(float64(n)*cfg.MinRatio))
	maxWindow := int(float64(n) * cfg.MaxRatio)
	if maxWindow < minWindow {
		maxWindow = minWindow
	}
	if n < minWindow || minWindow < 2 {
		return nil, nil
	}

	startMult := cfg.StartingMultiplier
	if startMult < 1.0 || startMult > 4.0 {
		startMult = 1.0
	}

	values := prices(series, cfg.PriceSource)
	used := make([]bool, n)
	ranges := []indexRange{{0, n}}
	var channels []ChannelCandidate

	for len(channels) < cfg.MaxChannels && len(ranges) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		best, bestRange := searchRanges(ctx, values, ranges, used, channels, minWindow, maxWindow, startMult)
		if best == nil || best.Score < minDetectorScore {
			break
		}

		best.Data = candidateData(series, values, best, cfg.BandCount)
		channels = append(channels, *best)

		// Claim the central core, keeping the overlap buffer at each edge.
		windowLen := best.EndIdx - best.StartIdx
		buffer := int(float64(windowLen) * (1 - usedCoreFraction) / 2)
		usedStart := best.StartIdx + buffer
		usedEnd := best.EndIdx - buffer
		for i := usedStart; i < usedEnd; i++ {
			used[i] = true
		}

		ranges = splitRanges(ranges, bestRange, usedStart, usedEnd, minWindow)
	}

	sort.Slice(channels, func(i, j int) bool { return channels[i].StartIdx < channels[j].StartIdx })
	return channels, nil
}

// searchRanges evaluates candidate windows in every worklist range and
// returns the globally best-scoring candidate.
func searchRanges(ctx context.Context, values []float64, ranges []indexRange, used []bool, accepted []ChannelCandidate, minWindow, maxWindow int, startMult float64) (*ChannelCandidate, int) {
	var best *ChannelCandidate
	bestRange := -1

	for ri, r := range ranges {
		if ctx.Err() != nil {
			return nil, -1
		}
		if r.length() < minWindow {
			continue
		}

		upper := minInt(maxWindow, r.length())
		lbStep := maxInt(1, (upper-minWindow)/8)
		for lookback := minWindow; lookback <= upper; lookback += lbStep {
			posStep := maxInt(1, (r.length()-lookback)/10)
			for start := r.start; start+lookback <= r.end; start += posStep {
				end := start + lookback
				if claimedFraction(used, start, end) > maxClaimedFraction {
					continue
				}
				if !overlapBounded(accepted, start, end) {
					continue
				}
				cand := evaluateCandidate(values, start, end, startMult)
				if cand == nil {
					continue
				}
				if best == nil || cand.Score > best.Score {
					best = cand
					bestRange = ri
				}
			}
		}
	}

	return best, bestRange
}

// overlapBounded reports whether the window [start, end) shares at most
// maxSharedFraction of the shorter lookback with every accepted channel.
// The used-core claim alone lets a long window swallow a short accepted
// channel, so the pairwise bound is checked directly.
func overlapBounded(accepted []ChannelCandidate, start, end int) bool {
	for i := range accepted {
		c := &accepted[i]
		shared := minInt(end, c.EndIdx) - maxInt(start, c.StartIdx)
		if shared <= 0 {
			continue
		}
		limit := maxSharedFraction * float64(minInt(end-start, c.Lookback))
		if float64(shared) > limit {
			return false
		}
	}
	return true
}

// evaluateCandidate fits a window, sweeps the width multiplier and
// scores the best configuration. Returns nil when every configuration
// fails a guard.
func evaluateCandidate(values []float64, start, end int, startMult float64) *ChannelCandidate {
	window := values[start:end]
	fit, err := fitValues(window)
	if err != nil {
		return nil
	}
	resid := residuals(window, fit)
	sd := stdDev(resid)

	if !passesBoundaryGuard(resid) {
		return nil
	}

	n := len(window)
	totalN := len(values)
	var best *ChannelCandidate

	for mult := startMult; mult <= 4.0+1e-9; mult += 0.5 {
		coverage, proximity, touchUp, touchDown := evaluateMultiplier(window, fit, resid, sd, mult)
		if proximity < minCenterProximity {
			continue
		}

		touchBonus := 1.0
		if touchUp && touchDown {
			touchBonus = 1.5
		} else if touchUp || touchDown {
			touchBonus = 1.2
		}

		relativeFit := 0.0
		if fit.Intercept != 0 {
			relativeFit = 1 / (1 + sd/math.Abs(fit.Intercept))
		}
		lengthBonus := 0.0
		if totalN > 1 {
			lengthBonus = math.Log(float64(n)) / math.Log(float64(totalN))
		}
		widthPenalty := 1 / (1 + mult/4)

		score := coverage * touchBonus * relativeFit * lengthBonus * proximity * widthPenalty
		if best == nil || score > best.Score {
			best = &ChannelCandidate{
				StartIdx:        start,
				EndIdx:          end,
				Lookback:        n,
				Slope:           fit.Slope,
				Intercept:       fit.Intercept,
				StdDev:          sd,
				StdMultiplier:   mult,
				Coverage:        coverage,
				CenterProximity: proximity,
				TouchesUpper:    touchUp,
				TouchesLower:    touchDown,
				Score:           score,
			}
		}
	}

	return best
}

// evaluateMultiplier computes coverage, center proximity and touch flags
// for one channel width.
func evaluateMultiplier(window []float64, fit *RegressionResult, resid []float64, sd, mult float64) (coverage, proximity float64, touchUp, touchDown bool) {
	n := len(window)
	width := mult * sd
	touchTol := sd * detectorTouchBand

	inside, near := 0, 0
	for i, v := range window {
		r := resid[i]
		if math.Abs(r) <= width {
			inside++
		}
		center := fit.ValueAt(i)
		if center != 0 && math.Abs(v-center) <= math.Abs(center)*centerProximityBand {
			near++
		}
		// A zero-width channel has no deviation left to touch.
		if sd > 0 {
			if r >= width-touchTol && r <= width+touchTol {
				touchUp = true
			}
			if r <= -width+touchTol && r >= -width-touchTol {
				touchDown = true
			}
		}
	}

	coverage = float64(inside) / float64(n)
	proximity = float64(near) / float64(n)
	return coverage, proximity, touchUp, touchDown
}

// passesBoundaryGuard rejects windows whose edges fit markedly worse
// than the window overall.
func passesBoundaryGuard(resid []float64) bool {
	n := len(resid)
	edge := int(float64(n) * boundaryGuardFraction)
	if edge < 1 {
		edge = 1
	}

	var total float64
	for _, r := range resid {
		total += math.Abs(r)
	}
	overall := total / float64(n)
	if overall == 0 {
		return true
	}

	var head, tail float64
	for i := 0; i < edge; i++ {
		head += math.Abs(resid[i])
		tail += math.Abs(resid[n-1-i])
	}
	head /= float64(edge)
	tail /= float64(edge)

	return head <= overall*boundaryGuardLimit && tail <= overall*boundaryGuardLimit
}

// claimedFraction is the share of [start, end) already claimed by prior
// channels.
func claimedFraction(used []bool, start, end int) float64 {
	claimed := 0
	for i := start; i < end; i++ {
		if used[i] {
			claimed++
		}
	}
	return float64(claimed) / float64(end-start)
}

// candidateData builds the decorated channel points for an accepted
// candidate, with volume-weighted interior bands.
func candidateData(series []models.SeriesPoint, values []float64, cand *ChannelCandidate, bandCount int) []ChannelPoint {
	out := make([]ChannelPoint, cand.EndIdx-cand.StartIdx)
	for i := range out {
		out[i] = ChannelPoint{SeriesPoint: series[cand.StartIdx+i]}
	}

	fit := &RegressionResult{Slope: cand.Slope, Intercept: cand.Intercept, N: cand.Lookback}
	fracs := volumeBandFractions(series[cand.StartIdx:cand.EndIdx], bandCount)
	stampWindow(out, 0, len(out), fit, cand.StdDev, cand.StdMultiplier, 0, fracs)
	return out
}

// splitRanges replaces the range containing an accepted candidate with
// the surviving sub-ranges on either side of the claimed core.
func splitRanges(ranges []indexRange, acceptedIdx, usedStart, usedEnd, minWindow int) []indexRange {
	survivorMin := int(float64(minWindow) * survivorFraction)
	out := make([]indexRange, 0, len(ranges)+1)

	for ri, r := range ranges {
		if ri != acceptedIdx {
			out = append(out, r)
			continue
		}
		before := indexRange{r.start, usedStart}
		after := indexRange{usedEnd, r.end}
		if before.length() >= survivorMin {
			out = append(out, before)
		}
		if after.length() >= survivorMin {
			out = append(out, after)
		}
	}
	return out
}
