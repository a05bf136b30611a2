package indicators

import (
	"context"
	"math"
	"testing"
	"time"

	"trendscope/internal/errors"
	"trendscope/internal/models"
)

func testSeries(n int, base, slope, volume float64) []models.SeriesPoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]models.SeriesPoint, n)
	for i := range points {
		points[i] = models.SeriesPoint{
			Date:   start.AddDate(0, 0, i),
			Close:  base + slope*float64(i),
			Volume: volume,
		}
	}
	return points
}

func TestRVIConstantVolume(t *testing.T) {
	rvi := NewRVI(7)
	values, err := rvi.Calculate(testSeries(100, 100, 1, 5000))
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	if len(values) != 100 {
		t.Fatalf("len = %d, want 100", len(values))
	}
	for i, v := range values {
		if math.Abs(v-1) > 1e-9 {
			t.Errorf("value %d = %v, want 1 for constant volume", i, v)
		}
	}
}

func TestRVIDefaultsBeforeLongWindow(t *testing.T) {
	points := testSeries(100, 100, 1, 1000)
	// Volume spike late in the series.
	for i := 90; i < 100; i++ {
		points[i].Volume = 10000
	}

	rvi := NewRVI(5)
	values, err := rvi.Calculate(points)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	long := 25
	for i := 0; i < long-1; i++ {
		if values[i] != 1 {
			t.Errorf("value %d = %v, want neutral 1 before the long window", i, values[i])
		}
	}
	if values[99] <= 1 {
		t.Errorf("value at spike = %v, want > 1", values[99])
	}
}

func TestRVIInvalid(t *testing.T) {
	if _, err := NewRVI(0).Calculate(testSeries(50, 100, 1, 100)); !errors.Is(err, errors.ErrInvalidPeriod) {
		t.Errorf("period 0: err = %v, want ErrInvalidPeriod", err)
	}
	if _, err := NewRVI(5).Calculate(nil); !errors.Is(err, errors.ErrInsufficientData) {
		t.Errorf("empty: err = %v, want ErrInsufficientData", err)
	}
}

func TestRVIForChartPeriod(t *testing.T) {
	tests := []struct {
		period models.ChartPeriod
		want   int
	}{
		{models.Period1D, 1},
		{models.Period1Y, 7},
		{models.Period5Y, 20},
		{models.ChartPeriod("bogus"), 3},
	}
	for _, tt := range tests {
		if got := NewRVIForChartPeriod(tt.period).period; got != tt.want {
			t.Errorf("%s: period = %d, want %d", tt.period, got, tt.want)
		}
	}
}

func TestVSPYNoBenchmark(t *testing.T) {
	vspy := NewVSPY(7)
	values, err := vspy.Calculate(testSeries(60, 100, 1, 100), nil)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	for i, v := range values {
		if v != 1 {
			t.Errorf("value %d = %v, want neutral 1 without a benchmark", i, v)
		}
	}
}

func TestVSPYOutperformance(t *testing.T) {
	// Symbol rises 1/day while the benchmark stays flat within epsilon:
	// the fallback maps a material own move to the strong reading.
	points := testSeries(60, 100, 1, 100)
	benchmark := testSeries(60, 500, 0, 100)

	values, err := NewVSPY(7).Calculate(points, benchmark)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}

	last := values[len(values)-1]
	if last != 3.0 {
		t.Errorf("last = %v, want strong fallback 3.0", last)
	}
}

func TestVSPYClamped(t *testing.T) {
	// Opposite-sign moves produce large negative ratios which must stay
	// within the clamp range.
	points := testSeries(60, 1000, -8, 100)
	benchmark := testSeries(60, 100, 0.1, 100)

	values, err := NewVSPY(7).Calculate(points, benchmark)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	for i, v := range values {
		if v < -5 || v > 10 {
			t.Errorf("value %d = %v outside clamp [-5, 10]", i, v)
		}
	}
}

func TestVSPYMissingDates(t *testing.T) {
	points := testSeries(60, 100, 1, 100)
	// Benchmark on completely different dates.
	benchmark := testSeries(60, 100, 1, 100)
	for i := range benchmark {
		benchmark[i].Date = benchmark[i].Date.AddDate(1, 0, 0)
	}

	values, err := NewVSPY(7).Calculate(points, benchmark)
	if err != nil {
		t.Fatalf("Calculate: %v", err)
	}
	for i, v := range values {
		if v != 1 {
			t.Errorf("value %d = %v, want neutral 1 for unmatched dates", i, v)
		}
	}
}

func TestBenchmarkChangeMissing(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC) }
	byDate := map[time.Time]float64{day(1): 100, day(10): 110}

	change, err := benchmarkChange(byDate, day(10), day(1))
	if err != nil {
		t.Fatalf("benchmarkChange: %v", err)
	}
	if change != 0.1 {
		t.Errorf("change = %v, want 0.1", change)
	}

	if _, err := benchmarkChange(byDate, day(10), day(5)); !errors.Is(err, errors.ErrMissingAlignment) {
		t.Errorf("err = %v, want ErrMissingAlignment for an uncovered date", err)
	}
}

func TestTurningPointAnalyzer(t *testing.T) {
	// Triangle wave: repeated troughs and peaks with a known rise.
	n := 120
	points := make([]models.SeriesPoint, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		phase := i % 40
		price := 100.0
		if phase < 20 {
			price += float64(phase) * 5
		} else {
			price += float64(40-phase) * 5
		}
		points[i] = models.SeriesPoint{Date: start.AddDate(0, 0, i), Close: price, Volume: 100}
	}

	result, err := NewTurningPointAnalyzer(5).Analyze(points)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.TurningPoints) < 4 {
		t.Fatalf("turning points = %d, want at least 4", len(result.TurningPoints))
	}
	if result.TotalGainPct <= 0 {
		t.Errorf("total gain = %v, want > 0 for repeated trough-to-peak rises", result.TotalGainPct)
	}

	// Peaks and troughs alternate.
	for i := 1; i < len(result.TurningPoints); i++ {
		if result.TurningPoints[i].IsPeak == result.TurningPoints[i-1].IsPeak {
			t.Errorf("turning points %d and %d have the same direction", i-1, i)
		}
	}
}

func TestTurningPointAnalyzerErrors(t *testing.T) {
	if _, err := NewTurningPointAnalyzer(1).Analyze(testSeries(50, 100, 1, 100)); !errors.Is(err, errors.ErrInvalidPeriod) {
		t.Errorf("period 1: err = %v, want ErrInvalidPeriod", err)
	}
	if _, err := NewTurningPointAnalyzer(10).Analyze(testSeries(5, 100, 1, 100)); !errors.Is(err, errors.ErrInsufficientData) {
		t.Errorf("short series: err = %v, want ErrInsufficientData", err)
	}
}

func TestFindBestPeriod(t *testing.T) {
	points := make([]models.SeriesPoint, 200)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range points {
		phase := i % 50
		price := 100.0
		if phase < 25 {
			price += float64(phase) * 4
		} else {
			price += float64(50-phase) * 4
		}
		points[i] = models.SeriesPoint{Date: start.AddDate(0, 0, i), Close: price, Volume: 100}
	}

	best, err := FindBestPeriod(points)
	if err != nil {
		t.Fatalf("FindBestPeriod: %v", err)
	}
	if best.Period < 5 || best.Period > 100 {
		t.Errorf("period = %d outside sweep range", best.Period)
	}
	if best.TotalGainPct <= 0 {
		t.Errorf("best gain = %v, want > 0", best.TotalGainPct)
	}
}

func TestEngineCalculateAll(t *testing.T) {
	engine := NewEngine(4)
	engine.Register(NewRVI(5))
	engine.Register(NewRVI(7))

	points := testSeries(100, 100, 1, 1000)
	results, err := engine.CalculateAll(context.Background(), points)
	if err != nil {
		t.Fatalf("CalculateAll: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}
	for name, values := range results {
		if len(values) != len(points) {
			t.Errorf("%s: len = %d, want %d", name, len(values), len(points))
		}
	}
}

func TestEngineCalculateMissing(t *testing.T) {
	engine := NewEngine(2)
	if _, err := engine.Calculate(context.Background(), "RVI_99", testSeries(50, 100, 1, 100)); err == nil {
		t.Error("unknown indicator should error")
	}
}
