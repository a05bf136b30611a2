package analysis

import (
	"context"

	"github.com/rs/zerolog"

	"trendscope/internal/analysis/channel"
	"trendscope/internal/models"
)

// Runner executes the expensive searches on a background goroutine. The
// caller cancels the context to abort an in-flight search; the search
// writes only to local accumulators, so a cancelled result is simply
// discarded.
type Runner struct {
	logger zerolog.Logger
}

// NewRunner creates a new background runner.
func NewRunner(logger zerolog.Logger) *Runner {
	return &Runner{logger: logger}
}

// OptimizeOutcome carries a finished grid search back to the caller.
type OptimizeOutcome struct {
	Result *channel.FindOptimalResult
	Err    error
}

// DetectOutcome carries a finished multi-channel detection back to the
// caller.
type DetectOutcome struct {
	Channels []channel.ChannelCandidate
	Err      error
}

// Optimize starts the grid search in the background and returns a
// channel that yields exactly one outcome.
func (r *Runner) Optimize(ctx context.Context, series []models.SeriesPoint, cfg channel.OptimizeConfig) <-chan OptimizeOutcome {
	out := make(chan OptimizeOutcome, 1)
	go func() {
		defer close(out)
		result, err := channel.FindOptimal(ctx, series, cfg)
		if err != nil {
			r.logger.Debug().Err(err).Msg("Grid search aborted")
		}
		out <- OptimizeOutcome{Result: result, Err: err}
	}()
	return out
}

// Detect starts the multi-channel detector in the background and
// returns a channel that yields exactly one outcome.
func (r *Runner) Detect(ctx context.Context, series []models.SeriesPoint, cfg channel.DetectConfig) <-chan DetectOutcome {
	out := make(chan DetectOutcome, 1)
	go func() {
		defer close(out)
		channels, err := channel.FindChannels(ctx, series, cfg)
		if err != nil {
			r.logger.Debug().Err(err).Msg("Channel detection aborted")
		}
		out <- DetectOutcome{Channels: channels, Err: err}
	}()
	return out
}
