package channel

import (
	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// StaticConfig configures a fixed-window regression channel.
type StaticConfig struct {
	Lookback       int
	StdMultiplier  float64
	InterceptShift float64
	EndOffset      int
	BandCount      int
	PriceSource    models.PriceSource
}

// BuildStatic fits one regression over the last Lookback points ending
// EndOffset before the series end and stamps every point inside that
// window with channel levels. Points outside the window keep nil fields.
func BuildStatic(series []models.SeriesPoint, cfg StaticConfig) ([]ChannelPoint, error) {
	n := len(series)
	out := make([]ChannelPoint, n)
	for i, p := range series {
		out[i] = ChannelPoint{SeriesPoint: p}
	}

	if cfg.Lookback < 2 || cfg.EndOffset < 0 {
		return nil, errors.ErrInvalidPeriod
	}
	start := n - cfg.EndOffset - cfg.Lookback
	end := n - cfg.EndOffset
	if start < 0 || end > n || end-start < 2 {
		return nil, errors.ErrInsufficientData
	}

	window := prices(series[start:end], cfg.PriceSource)
	fit, err := fitValues(window)
	if err != nil {
		return nil, err
	}

	sd := stdDev(residuals(window, fit))
	stampWindow(out, start, end, fit, sd, cfg.StdMultiplier, cfg.InterceptShift, evenBandFractions(cfg.BandCount))

	return out, nil
}

// stampWindow writes channel levels onto out[start:end]. bandFracs are
// the interior band positions as fractions of the lower-to-upper span.
func stampWindow(out []ChannelPoint, start, end int, fit *RegressionResult, sd, multiplier, shift float64, bandFracs []float64) {
	width := multiplier * sd
	for i := start; i < end; i++ {
		center := fit.ValueAt(i-start) + shift
		lower := center - width
		upper := center + width

		out[i].Center = fptr(center)
		out[i].Upper = fptr(upper)
		out[i].Lower = fptr(lower)
		out[i].StdDev = fptr(sd)

		if len(bandFracs) > 0 {
			bands := make([]float64, len(bandFracs))
			for k, f := range bandFracs {
				bands[k] = lower + f*(upper-lower)
			}
			out[i].Bands = bands
		}
	}
}

// evenBandFractions returns bandCount-1 evenly spaced interior fractions.
func evenBandFractions(bandCount int) []float64 {
	if bandCount < 2 {
		return nil
	}
	fracs := make([]float64, bandCount-1)
	for k := 1; k < bandCount; k++ {
		fracs[k-1] = float64(k) / float64(bandCount)
	}
	return fracs
}
