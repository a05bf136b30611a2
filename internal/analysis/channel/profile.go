package channel

import (
	"math"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// BuildVolumeProfile partitions the series price range into binCount
// equal-width bins and accumulates each point's volume into its bin. The
// maximum price clamps into the last bin so no volume is lost.
func BuildVolumeProfile(series []models.SeriesPoint, binCount int) (*VolumeProfile, error) {
	if binCount < 1 {
		return nil, errors.ErrInvalidPeriod
	}
	if len(series) == 0 {
		return nil, errors.ErrInsufficientData
	}

	closes := make([]float64, len(series))
	for i, p := range series {
		closes[i] = p.Close
	}
	minPrice := lowest(closes)
	maxPrice := highest(closes)
	if maxPrice == minPrice {
		// Flat series has no price range to bin.
		return nil, errors.ErrDegenerateInput
	}

	binWidth := (maxPrice - minPrice) / float64(binCount)
	bins := make([]VolumeBin, binCount)
	for i := range bins {
		lo := minPrice + float64(i)*binWidth
		bins[i] = VolumeBin{
			PriceMin:   lo,
			PriceMax:   lo + binWidth,
			PriceLevel: lo + binWidth/2,
		}
	}

	for _, p := range series {
		idx := int((p.Close - minPrice) / binWidth)
		if idx >= binCount {
			idx = binCount - 1
		}
		if idx < 0 {
			idx = 0
		}
		bins[idx].Volume += p.Volume
	}

	volumes := make([]float64, binCount)
	for i, b := range bins {
		volumes[i] = b.Volume
	}
	avg := mean(volumes)
	sd := stdDev(volumes)

	profile := &VolumeProfile{
		Bins:         bins,
		AvgVolume:    avg,
		StdDevVolume: sd,
		MinPrice:     minPrice,
		MaxPrice:     maxPrice,
	}

	pocIdx := 0
	for i, b := range bins {
		if b.Volume > bins[pocIdx].Volume {
			pocIdx = i
		}
		if b.Volume > avg+sd {
			profile.HVNs = append(profile.HVNs, b)
		}
		if b.Volume > 0 && b.Volume < avg-sd {
			profile.LVNs = append(profile.LVNs, b)
		}
	}
	profile.POC = bins[pocIdx]
	profile.VAH, profile.VAL = valueArea(bins, pocIdx)

	return profile, nil
}

// valueArea expands from the POC bin until 70% of total volume is
// captured, returning the high and low price levels of the area.
func valueArea(bins []VolumeBin, pocIdx int) (vah, val float64) {
	var total float64
	for _, b := range bins {
		total += b.Volume
	}
	target := total * 0.7

	hiIdx, loIdx := pocIdx, pocIdx
	captured := bins[pocIdx].Volume

	for captured < target && (hiIdx < len(bins)-1 || loIdx > 0) {
		var upper, lower float64
		if hiIdx < len(bins)-1 {
			upper = bins[hiIdx+1].Volume
		}
		if loIdx > 0 {
			lower = bins[loIdx-1].Volume
		}

		if upper >= lower && hiIdx < len(bins)-1 {
			hiIdx++
			captured += bins[hiIdx].Volume
		} else if loIdx > 0 {
			loIdx--
			captured += bins[loIdx].Volume
		} else {
			break
		}
	}

	return bins[hiIdx].PriceLevel, bins[loIdx].PriceLevel
}

// AnalyzeConfluence tags each point's channel bounds by proximity to
// volume-profile nodes: strong near the POC or a high-volume node, weak
// near a low-volume node, neutral otherwise. Null bounds stay neutral.
func AnalyzeConfluence(points []ChannelPoint, profile *VolumeProfile, proximityThreshold float64) []BoundConfluence {
	out := make([]BoundConfluence, len(points))
	for i := range out {
		out[i] = BoundConfluence{Upper: BoundNeutral, Lower: BoundNeutral}
	}
	if profile == nil || proximityThreshold <= 0 {
		return out
	}

	for i, p := range points {
		if !p.HasChannel() {
			continue
		}
		out[i].Upper = classifyBound(*p.Upper, profile, proximityThreshold)
		out[i].Lower = classifyBound(*p.Lower, profile, proximityThreshold)
	}
	return out
}

func classifyBound(bound float64, profile *VolumeProfile, threshold float64) BoundStrength {
	if nearLevel(bound, profile.POC.PriceLevel, threshold) {
		return BoundStrong
	}
	for _, hvn := range profile.HVNs {
		if nearLevel(bound, hvn.PriceLevel, threshold) {
			return BoundStrong
		}
	}
	for _, lvn := range profile.LVNs {
		if nearLevel(bound, lvn.PriceLevel, threshold) {
			return BoundWeak
		}
	}
	return BoundNeutral
}

// nearLevel reports whether value is within the threshold fraction of
// the level's price.
func nearLevel(value, level, threshold float64) bool {
	if level == 0 {
		return false
	}
	return math.Abs(value-level)/math.Abs(level) <= threshold
}
