// Package channel implements statistical price-channel detection and
// optimization over price/volume series: regression channels, volume
// profiles, touch-alignment and grid-search optimizers, and the
// multi-channel detector.
package channel

import (
	"trendscope/internal/models"
)

// RegressionResult is an ordinary least-squares fit over a contiguous
// window, with the 0-based window index as the independent variable.
type RegressionResult struct {
	Slope     float64
	Intercept float64
	N         int
}

// ValueAt returns the fitted line value at window index x.
func (r RegressionResult) ValueAt(x int) float64 {
	return r.Intercept + r.Slope*float64(x)
}

// ChannelPoint is a series point decorated with channel levels. The
// pointer fields are nil for positions outside a computed window and
// never nil inside one.
type ChannelPoint struct {
	models.SeriesPoint

	Center *float64
	Upper  *float64
	Lower  *float64
	StdDev *float64
	// Bands holds the interior band levels, strictly increasing between
	// Lower and Upper. nil outside the window.
	Bands []float64
}

// HasChannel reports whether the point lies inside a computed window.
func (p ChannelPoint) HasChannel() bool {
	return p.Center != nil
}

// ChannelCandidate is one channel produced by the multi-channel
// detector. Immutable once scored.
type ChannelCandidate struct {
	StartIdx        int
	EndIdx          int // exclusive
	Lookback        int
	Slope           float64
	Intercept       float64
	StdDev          float64
	StdMultiplier   float64
	Coverage        float64 // fraction of window points inside the bounds
	CenterProximity float64 // fraction of window points near the center line
	TouchesUpper    bool
	TouchesLower    bool
	Score           float64
	Data            []ChannelPoint
}

// AlignmentResult is the output of the touch-alignment optimizer for one
// (lookback, endOffset) pair.
type AlignmentResult struct {
	InterceptShift   float64
	OptimalDelta     float64
	TouchesUpper     bool
	TouchesLower     bool
	CoverageCount    int
	TotalPoints      int
	StdDev           float64
	Slope            float64
	BaseIntercept    float64
	ExtremeMagnitude float64
}

// VolumeBin is one price bucket of a volume profile.
type VolumeBin struct {
	PriceMin   float64
	PriceMax   float64
	PriceLevel float64 // bin midpoint
	Volume     float64
}

// VolumeProfile is the price-binned volume distribution of a series.
type VolumeProfile struct {
	Bins         []VolumeBin
	POC          VolumeBin   // bin with the highest volume
	HVNs         []VolumeBin // volume > mean + 1 stddev
	LVNs         []VolumeBin // 0 < volume < mean - 1 stddev
	VAH          float64     // value area high (70% volume around POC)
	VAL          float64     // value area low
	AvgVolume    float64
	StdDevVolume float64
	MinPrice     float64
	MaxPrice     float64
}

// BoundStrength classifies a channel bound by its confluence with
// volume-profile nodes.
type BoundStrength string

const (
	BoundStrong  BoundStrength = "STRONG"
	BoundWeak    BoundStrength = "WEAK"
	BoundNeutral BoundStrength = "NEUTRAL"
)

// BoundConfluence tags one channel point's bounds.
type BoundConfluence struct {
	Upper BoundStrength
	Lower BoundStrength
}
