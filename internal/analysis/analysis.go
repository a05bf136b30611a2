// Package analysis coordinates the channel engine and auxiliary
// indicators into full analysis runs.
package analysis

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"trendscope/internal/analysis/channel"
	"trendscope/internal/analysis/indicators"
	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// Result is one complete analysis of a series.
type Result struct {
	Symbol     string
	Period     models.ChartPeriod
	Points     []channel.ChannelPoint
	Profile    *channel.VolumeProfile
	Confluence []channel.BoundConfluence
	Indicators map[string][]float64
	Elapsed    time.Duration
}

// Options configures a full analysis run.
type Options struct {
	ChannelConfig      channel.StaticConfig
	BinCount           int
	ProximityThreshold float64
	Benchmark          []models.SeriesPoint
}

// Analyze builds the static channel, the volume profile and the
// confluence tags, and runs the registered auxiliary indicators.
// Degenerate sub-results are dropped rather than failing the run.
func Analyze(ctx context.Context, logger zerolog.Logger, series *models.Series, opts Options) (*Result, error) {
	start := time.Now()

	points, err := channel.BuildStatic(series.Points, opts.ChannelConfig)
	if err != nil {
		return nil, errors.NewAnalysisError("channel", series.Symbol, err)
	}

	result := &Result{
		Symbol: series.Symbol,
		Period: series.Period,
		Points: points,
	}

	profile, err := channel.BuildVolumeProfile(series.Points, opts.BinCount)
	if err != nil {
		logger.Debug().Err(err).Msg("Volume profile skipped")
	} else {
		result.Profile = profile
		result.Confluence = channel.AnalyzeConfluence(points, profile, opts.ProximityThreshold)
	}

	engine := indicators.NewEngine(4)
	engine.Register(indicators.NewRVIForChartPeriod(series.Period))
	values, err := engine.CalculateAll(ctx, series.Points)
	if err != nil {
		return nil, err
	}
	result.Indicators = values

	if len(opts.Benchmark) > 0 {
		vspy := indicators.NewVSPY(series.Period.RVIPeriod())
		if rel, err := vspy.Calculate(series.Points, opts.Benchmark); err == nil {
			result.Indicators[vspy.Name()] = rel
		}
	}

	result.Elapsed = time.Since(start)
	return result, nil
}
