// Package models provides domain models for price-series analysis.
package models

import (
	"time"
)

// PriceSource selects which price is fed into regression fits.
type PriceSource string

const (
	// PriceClose uses the closing price.
	PriceClose PriceSource = "close"
	// PriceHL2 uses (high+low)/2.
	PriceHL2 PriceSource = "hl2"
	// PriceOHLC4 uses (open+high+low+close)/4.
	PriceOHLC4 PriceSource = "ohlc4"
)

// SeriesPoint is one observation of a price/volume series.
// Points are ordered oldest to newest; the analysis index of a point is
// its position in the slice, never a stored field.
type SeriesPoint struct {
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// Price returns the point's price under the given source. Sources that
// need open/high/low fall back to the close when those fields are absent.
func (p SeriesPoint) Price(src PriceSource) float64 {
	switch src {
	case PriceHL2:
		if p.High != 0 && p.Low != 0 {
			return (p.High + p.Low) / 2
		}
	case PriceOHLC4:
		if p.Open != 0 && p.High != 0 && p.Low != 0 {
			return (p.Open + p.High + p.Low + p.Close) / 4
		}
	}
	return p.Close
}

// ChartPeriod is the user-selected display range. It drives the RVI
// lookback and the smoothing period used by touch detection.
type ChartPeriod string

const (
	Period1D ChartPeriod = "1D"
	Period7D ChartPeriod = "7D"
	Period1M ChartPeriod = "1M"
	Period3M ChartPeriod = "3M"
	Period6M ChartPeriod = "6M"
	Period1Y ChartPeriod = "1Y"
	Period3Y ChartPeriod = "3Y"
	Period5Y ChartPeriod = "5Y"
)

// rviPeriods maps chart period to the RVI short-window length N.
var rviPeriods = map[ChartPeriod]int{
	Period1D: 1,
	Period7D: 2,
	Period1M: 3,
	Period3M: 5,
	Period6M: 6,
	Period1Y: 7,
	Period3Y: 10,
	Period5Y: 20,
}

// smoothingPeriods maps chart period to the SMA period applied before
// touch detection.
var smoothingPeriods = map[ChartPeriod]int{
	Period7D: 1,
	Period1M: 3,
	Period3M: 5,
	Period6M: 10,
	Period1Y: 14,
	Period3Y: 20,
	Period5Y: 30,
}

// RVIPeriod returns the RVI short-window length for the chart period.
func (c ChartPeriod) RVIPeriod() int {
	if n, ok := rviPeriods[c]; ok {
		return n
	}
	return 3
}

// SmoothingPeriod returns the touch-detection SMA period for the chart period.
func (c ChartPeriod) SmoothingPeriod() int {
	if n, ok := smoothingPeriods[c]; ok {
		return n
	}
	return 3
}

// Series is an ordered price/volume series for one symbol.
type Series struct {
	Symbol string
	Period ChartPeriod
	Points []SeriesPoint
}

// Closes extracts the close prices of the series.
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Close
	}
	return out
}

// Volumes extracts the volumes of the series.
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Points))
	for i, p := range s.Points {
		out[i] = p.Volume
	}
	return out
}
