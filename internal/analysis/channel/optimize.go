package channel

import (
	"context"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// crossesTolerance is the fraction of the center-line value within which
// a point counts as a cross in phase 1 of the grid search.
const crossesTolerance = 0.01

// recentWindowFraction selects the tail of the series for the secondary,
// informational grid search.
const recentWindowFraction = 0.25

// minRecentPoints is the floor on the recent-window length.
const minRecentPoints = 20

// OptimizeConfig configures the grid-search optimizer.
type OptimizeConfig struct {
	// EvalBudget bounds the number of phase-1 channel evaluations per
	// dataset. Step sizes are derived from it, trading search resolution
	// for running time.
	EvalBudget      int
	SmoothingPeriod int
	PriceSource     models.PriceSource
}

// OptimalResult is the outcome of the two-phase search for one dataset.
type OptimalResult struct {
	Lookback       int
	EndOffset      int
	Delta          float64
	InterceptShift float64
	MaxCrosses     int
	CoverageCount  int
	TouchesUpper   bool
	TouchesLower   bool
	Evaluations    int
}

// FindOptimalResult bundles the full-series search with the
// informational search over the most recent quarter of the data.
type FindOptimalResult struct {
	Full   *OptimalResult
	Recent *OptimalResult
}

// FindOptimal runs the two-phase grid search: phase 1 sweeps
// (lookback, endOffset) pairs maximizing center-line crosses, phase 2
// derives the width multiplier via touch alignment at the winner. The
// search runs once over the full series and again over its recent tail.
// Cancel the context to abort; partial state is discarded, never shared.
func FindOptimal(ctx context.Context, series []models.SeriesPoint, cfg OptimizeConfig) (*FindOptimalResult, error) {
	if len(series) < minLookback {
		return nil, errors.ErrInsufficientData
	}
	if cfg.EvalBudget <= 0 {
		cfg.EvalBudget = 20000
	}

	full, err := optimizeDataset(ctx, series, cfg)
	if err != nil {
		return nil, err
	}

	result := &FindOptimalResult{Full: full}

	recentLen := maxInt(minRecentPoints, int(float64(len(series))*recentWindowFraction))
	if recentLen < len(series) {
		recent, err := optimizeDataset(ctx, series[len(series)-recentLen:], cfg)
		if err == nil {
			result.Recent = recent
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		// A degenerate tail only loses the informational result.
	}

	return result, nil
}

// minLookback is the smallest channel window phase 1 will try.
const minLookback = 20

type gridCell struct {
	lookback  int
	endOffset int
	crosses   int
}

func optimizeDataset(ctx context.Context, series []models.SeriesPoint, cfg OptimizeConfig) (*OptimalResult, error) {
	n := len(series)
	if n < minLookback {
		return nil, errors.ErrInsufficientData
	}

	values := prices(series, cfg.PriceSource)
	maxEndOffset := n / 5

	// Derive step sizes so total evaluations stay near the budget.
	lookbacks := n - minLookback + 1
	offsets := maxEndOffset + 1
	step := 1
	for (lookbacks/step+1)*(offsets/step+1) > cfg.EvalBudget {
		step++
	}

	var lbSamples []int
	for lb := minLookback; lb <= n; lb += step {
		lbSamples = append(lbSamples, lb)
	}

	// Each lookback stripe evaluates independently; merge in sample
	// order so ties resolve deterministically.
	cells := make([]gridCell, len(lbSamples))
	evals := make([]int, len(lbSamples))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())
	for si, lb := range lbSamples {
		si, lb := si, lb
		g.Go(func() error {
			best := gridCell{lookback: lb, endOffset: -1, crosses: -1}
			count := 0
			for eo := 0; eo <= maxEndOffset; eo += step {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				start := n - eo - lb
				if start < 0 {
					continue
				}
				count++
				crosses := countCrosses(values[start : start+lb])
				if crosses > best.crosses {
					best = gridCell{lookback: lb, endOffset: eo, crosses: crosses}
				}
			}
			cells[si] = best
			evals[si] = count
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	best := gridCell{endOffset: -1, crosses: -1}
	totalEvals := 0
	for si, c := range cells {
		totalEvals += evals[si]
		if c.crosses > best.crosses {
			best = c
		}
	}
	if best.endOffset < 0 {
		return nil, errors.ErrDegenerateInput
	}

	alignment, err := ComputeAlignment(series, best.lookback, best.endOffset, cfg.SmoothingPeriod, cfg.PriceSource)
	if err != nil {
		return nil, err
	}

	return &OptimalResult{
		Lookback:       best.lookback,
		EndOffset:      best.endOffset,
		Delta:          alignment.OptimalDelta,
		InterceptShift: alignment.InterceptShift,
		MaxCrosses:     best.crosses,
		CoverageCount:  alignment.CoverageCount,
		TouchesUpper:   alignment.TouchesUpper,
		TouchesLower:   alignment.TouchesLower,
		Evaluations:    totalEvals,
	}, nil
}

// countCrosses fits the window and counts points whose price lies within
// crossesTolerance of the center line.
func countCrosses(window []float64) int {
	fit, err := fitValues(window)
	if err != nil {
		return -1
	}
	crosses := 0
	for i, v := range window {
		center := fit.ValueAt(i)
		if center == 0 {
			continue
		}
		if math.Abs(v-center) <= math.Abs(center)*crossesTolerance {
			crosses++
		}
	}
	return crosses
}
