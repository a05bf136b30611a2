package channel

import (
	"sort"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// SlidingConfig configures a per-point rolling regression channel.
type SlidingConfig struct {
	Period        int
	StdMultiplier float64
	BandCount     int
	PriceSource   models.PriceSource
}

// BuildSliding recomputes the regression for every point over its
// trailing Period-long window and stamps that single point. Points
// without a full trailing window keep nil fields; a short series is not
// an error. Cost is O(n * period).
func BuildSliding(series []models.SeriesPoint, cfg SlidingConfig) ([]ChannelPoint, error) {
	if cfg.Period < 2 {
		return nil, errors.ErrInvalidPeriod
	}

	n := len(series)
	out := make([]ChannelPoint, n)
	for i, p := range series {
		out[i] = ChannelPoint{SeriesPoint: p}
	}

	values := prices(series, cfg.PriceSource)
	for i := cfg.Period - 1; i < n; i++ {
		window := values[i-cfg.Period+1 : i+1]
		fit, err := fitValues(window)
		if err != nil {
			// One degenerate window never aborts the rest.
			continue
		}
		sd := stdDev(residuals(window, fit))

		fracs := volumeBandFractions(series[i-cfg.Period+1:i+1], cfg.BandCount)
		stampWindow(out[i:i+1], 0, 1, &RegressionResult{
			Slope:     fit.Slope,
			Intercept: fit.Intercept + fit.Slope*float64(cfg.Period-1),
			N:         fit.N,
		}, sd, cfg.StdMultiplier, 0, fracs)
	}

	return out, nil
}

// volumeBandFractions derives interior band positions from the volume
// quantiles of the trailing window. When fewer than bandCount points
// carry volume the bands fall back to even price spacing.
func volumeBandFractions(window []models.SeriesPoint, bandCount int) []float64 {
	if bandCount < 2 {
		return nil
	}

	withVolume := 0
	var total float64
	for _, p := range window {
		if p.Volume > 0 {
			withVolume++
			total += p.Volume
		}
	}
	if withVolume < bandCount || total == 0 {
		return evenBandFractions(bandCount)
	}

	// Sort window points by price and walk the cumulative volume to find
	// the price position of each k/bandCount volume quantile.
	type pv struct{ price, volume float64 }
	sorted := make([]pv, 0, len(window))
	for _, p := range window {
		sorted = append(sorted, pv{price: p.Close, volume: p.Volume})
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].price < sorted[j].price })

	lo := sorted[0].price
	hi := sorted[len(sorted)-1].price
	span := hi - lo
	if span == 0 {
		return evenBandFractions(bandCount)
	}

	fracs := make([]float64, 0, bandCount-1)
	var cumulative float64
	next := 1
	for _, e := range sorted {
		cumulative += e.volume
		for next < bandCount && cumulative >= total*float64(next)/float64(bandCount) {
			fracs = append(fracs, (e.price-lo)/span)
			next++
		}
		if next >= bandCount {
			break
		}
	}
	for len(fracs) < bandCount-1 {
		fracs = append(fracs, 1)
	}

	// Bands must stay strictly monotonic between the bounds.
	return monotonicFractions(fracs)
}

// monotonicFractions nudges quantile fractions into a strictly
// increasing sequence inside (0, 1).
func monotonicFractions(fracs []float64) []float64 {
	k := len(fracs)
	if k == 0 {
		return fracs
	}
	eps := 1.0 / float64(4*(k+1))
	prev := 0.0
	for i := range fracs {
		minAllowed := prev + eps
		maxAllowed := 1 - eps*float64(k-i)
		if fracs[i] < minAllowed {
			fracs[i] = minAllowed
		}
		if fracs[i] > maxAllowed {
			fracs[i] = maxAllowed
		}
		prev = fracs[i]
	}
	return fracs
}
