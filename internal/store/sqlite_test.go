package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trendscope/internal/analysis/channel"
	"trendscope/internal/errors"
	"trendscope/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleSeries(symbol string, n int) *models.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := &models.Series{Symbol: symbol, Period: models.Period1Y}
	for i := 0; i < n; i++ {
		series.Points = append(series.Points, models.SeriesPoint{
			Date:   start.AddDate(0, 0, i),
			Open:   100 + float64(i),
			High:   102 + float64(i),
			Low:    99 + float64(i),
			Close:  101 + float64(i),
			Volume: float64(1000 * (i + 1)),
		})
	}
	return series
}

func TestSeriesRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := sampleSeries("AAPL", 30)
	require.NoError(t, s.SaveSeries(ctx, saved))

	loaded, err := s.GetSeries(ctx, "AAPL", models.Period1Y)
	require.NoError(t, err)
	require.Len(t, loaded.Points, 30)

	for i, p := range loaded.Points {
		want := saved.Points[i]
		assert.True(t, p.Date.Equal(want.Date), "point %d: date %v != %v", i, p.Date, want.Date)
		assert.Equal(t, want.Close, p.Close)
		assert.Equal(t, want.Volume, p.Volume)
	}
}

func TestSaveSeriesReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSeries(ctx, sampleSeries("AAPL", 30)))
	require.NoError(t, s.SaveSeries(ctx, sampleSeries("AAPL", 10)))

	loaded, err := s.GetSeries(ctx, "AAPL", models.Period1Y)
	require.NoError(t, err)
	assert.Len(t, loaded.Points, 10)
}

func TestGetSeriesNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSeries(context.Background(), "MISSING", models.Period1Y)
	assert.True(t, errors.Is(err, errors.ErrSymbolNotFound), "err = %v", err)
}

func TestListSymbols(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.SaveSeries(ctx, sampleSeries("MSFT", 5)))
	require.NoError(t, s.SaveSeries(ctx, sampleSeries("AAPL", 5)))

	symbols, err := s.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT"}, symbols)
}

func TestChannelsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	saved := []channel.ChannelCandidate{
		{
			StartIdx: 0, EndIdx: 60, Lookback: 60,
			Slope: 0.5, Intercept: 100, StdDev: 2.5, StdMultiplier: 2,
			Coverage: 0.95, CenterProximity: 0.8,
			TouchesUpper: true, TouchesLower: false, Score: 0.42,
		},
		{
			StartIdx: 70, EndIdx: 120, Lookback: 50,
			Slope: -0.25, Intercept: 130, StdDev: 1.5, StdMultiplier: 1.5,
			Coverage: 0.9, CenterProximity: 0.75,
			TouchesUpper: false, TouchesLower: true, Score: 0.3,
		},
	}
	require.NoError(t, s.SaveChannels(ctx, "AAPL", models.Period1Y, saved))

	loaded, err := s.GetChannels(ctx, "AAPL", models.Period1Y)
	require.NoError(t, err)
	assert.Equal(t, saved, loaded)
}

func TestSaveChannelsReplaces(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := []channel.ChannelCandidate{{StartIdx: 0, EndIdx: 50, Lookback: 50, Score: 0.5}}
	require.NoError(t, s.SaveChannels(ctx, "AAPL", models.Period1Y, first))
	require.NoError(t, s.SaveChannels(ctx, "AAPL", models.Period1Y, nil))

	loaded, err := s.GetChannels(ctx, "AAPL", models.Period1Y)
	require.NoError(t, err)
	assert.Empty(t, loaded)
}

func TestSaveOptimizerRun(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.SaveOptimizerRun(context.Background(), "AAPL", models.Period1Y, &channel.OptimalResult{
		Lookback:     80,
		EndOffset:    5,
		Delta:        2.1,
		MaxCrosses:   40,
		TouchesUpper: true,
		Evaluations:  1200,
	}))
}

func TestPeriodsIsolated(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	yearly := sampleSeries("AAPL", 20)
	monthly := sampleSeries("AAPL", 8)
	monthly.Period = models.Period1M

	require.NoError(t, s.SaveSeries(ctx, yearly))
	require.NoError(t, s.SaveSeries(ctx, monthly))

	loaded, err := s.GetSeries(ctx, "AAPL", models.Period1M)
	require.NoError(t, err)
	assert.Len(t, loaded.Points, 8)

	loaded, err = s.GetSeries(ctx, "AAPL", models.Period1Y)
	require.NoError(t, err)
	assert.Len(t, loaded.Points, 20)
}
