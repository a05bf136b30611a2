package indicators

import (
	"fmt"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

// RVI calculates the Relative Volume Index: the ratio of short-window to
// long-window average volume, where the long window is five times the
// short one.
type RVI struct {
	period int
}

// NewRVI creates a new RVI indicator with the short-window length N.
func NewRVI(period int) *RVI {
	return &RVI{period: period}
}

// NewRVIForChartPeriod derives the short-window length from the chart period.
func NewRVIForChartPeriod(cp models.ChartPeriod) *RVI {
	return &RVI{period: cp.RVIPeriod()}
}

func (r *RVI) Name() string {
	return fmt.Sprintf("RVI_%d", r.period)
}

func (r *RVI) Period() int {
	return r.period * 5
}

// Calculate returns one value per point. Points without a full long
// window default to 1 (neutral relative volume).
func (r *RVI) Calculate(points []models.SeriesPoint) ([]float64, error) {
	if r.period <= 0 {
		return nil, errors.ErrInvalidPeriod
	}
	if len(points) == 0 {
		return nil, errors.ErrInsufficientData
	}

	n := len(points)
	long := r.period * 5
	vols := volumes(points)

	result := make([]float64, n)
	for i := range result {
		result[i] = 1
	}

	for i := long - 1; i < n; i++ {
		shortAvg := mean(vols[i-r.period+1 : i+1])
		longAvg := mean(vols[i-long+1 : i+1])
		if longAvg > 0 {
			result[i] = shortAvg / longAvg
		}
	}

	return result, nil
}
