// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"

	"trendscope/internal/analysis/channel"
	"trendscope/internal/models"
)

// DataStore defines the interface for data persistence.
type DataStore interface {
	// Series
	SaveSeries(ctx context.Context, series *models.Series) error
	GetSeries(ctx context.Context, symbol string, period models.ChartPeriod) (*models.Series, error)
	ListSymbols(ctx context.Context) ([]string, error)

	// Detected channels
	SaveChannels(ctx context.Context, symbol string, period models.ChartPeriod, channels []channel.ChannelCandidate) error
	GetChannels(ctx context.Context, symbol string, period models.ChartPeriod) ([]channel.ChannelCandidate, error)

	// Optimizer runs
	SaveOptimizerRun(ctx context.Context, symbol string, period models.ChartPeriod, result *channel.OptimalResult) error

	Close() error
}
