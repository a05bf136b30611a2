package channel

import (
	"math"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"trendscope/internal/models"
)

// seriesGen generates a price/volume series with positive prices and
// non-negative volume, ordered oldest to newest.
func seriesGen(minLen, maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, gen.Float64Range(10.0, 500.0)).Map(func(closes []float64) []models.SeriesPoint {
		if len(closes) < minLen {
			for len(closes) < minLen {
				closes = append(closes, 100.0)
			}
		}
		start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		points := make([]models.SeriesPoint, len(closes))
		for i, c := range closes {
			points[i] = models.SeriesPoint{
				Date:   start.AddDate(0, 0, i),
				Close:  c,
				Volume: float64(100 + i%13*50),
			}
		}
		return points
	})
}

func propertyParams() *gopter.TestParameters {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	parameters.Rng.Seed(time.Now().UnixNano())
	parameters.MaxShrinkCount = 0
	return parameters
}

// TestProperty_ChannelBoundsOrdered checks that every stamped point of a
// static channel keeps lower <= bands <= upper with the center midway.
func TestProperty_ChannelBoundsOrdered(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("channel bounds stay ordered", prop.ForAll(
		func(series []models.SeriesPoint) bool {
			points, err := BuildStatic(series, StaticConfig{
				Lookback:      len(series),
				StdMultiplier: 2,
				BandCount:     4,
			})
			if err != nil {
				return false
			}
			for _, p := range points {
				if !p.HasChannel() {
					return false
				}
				if *p.Lower > *p.Center || *p.Center > *p.Upper {
					return false
				}
				prev := *p.Lower
				for _, b := range p.Bands {
					if b < prev {
						return false
					}
					prev = b
				}
				if prev > *p.Upper {
					return false
				}
				mid := (*p.Upper + *p.Lower) / 2
				if math.Abs(mid-*p.Center) > 1e-6 {
					return false
				}
			}
			return true
		},
		seriesGen(10, 120),
	))

	properties.TestingRun(t)
}

// TestProperty_SlidingNullsOutsideWindow checks that sliding channels
// stamp exactly the points with a full trailing window.
func TestProperty_SlidingNullsOutsideWindow(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("sliding channel nulls match window availability", prop.ForAll(
		func(series []models.SeriesPoint) bool {
			period := 15
			points, err := BuildSliding(series, SlidingConfig{Period: period, StdMultiplier: 2, BandCount: 4})
			if err != nil {
				return false
			}
			for i, p := range points {
				if i < period-1 && p.HasChannel() {
					return false
				}
			}
			return true
		},
		seriesGen(20, 100),
	))

	properties.TestingRun(t)
}

// TestProperty_VolumeConservation checks that binning never loses or
// invents volume.
func TestProperty_VolumeConservation(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("profile bins conserve total volume", prop.ForAll(
		func(series []models.SeriesPoint) bool {
			profile, err := BuildVolumeProfile(series, 24)
			if err != nil {
				// A flat random draw is legitimately degenerate.
				return true
			}
			var total, binned float64
			for _, p := range series {
				total += p.Volume
			}
			for _, b := range profile.Bins {
				binned += b.Volume
			}
			return math.Abs(total-binned) < 1e-6*math.Max(1, total)
		},
		seriesGen(10, 200),
	))

	properties.TestingRun(t)
}

// TestProperty_FitDeterministic checks that regression over the same
// window always produces the identical fit.
func TestProperty_FitDeterministic(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("identical input produces identical fit", prop.ForAll(
		func(series []models.SeriesPoint) bool {
			first, err1 := Fit(series, models.PriceClose)
			second, err2 := Fit(series, models.PriceClose)
			if err1 != nil || err2 != nil {
				return err1 == err2
			}
			return *first == *second
		},
		seriesGen(2, 150),
	))

	properties.TestingRun(t)
}

// TestProperty_AlignmentCoversWindow checks that the aligned channel at
// the optimal delta always covers the entire window.
func TestProperty_AlignmentCoversWindow(t *testing.T) {
	properties := gopter.NewProperties(propertyParams())

	properties.Property("aligned channel covers every window point", prop.ForAll(
		func(series []models.SeriesPoint) bool {
			result, err := ComputeAlignment(series, len(series), 0, 3, models.PriceClose)
			if err != nil {
				return false
			}
			return result.OptimalDelta >= 0 &&
				result.CoverageCount == result.TotalPoints &&
				result.TotalPoints == len(series)
		},
		seriesGen(10, 120),
	))

	properties.TestingRun(t)
}
