package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trendscope/internal/analysis"
	"trendscope/internal/analysis/channel"
	"trendscope/internal/analysis/indicators"
	"trendscope/internal/logging"
	"trendscope/internal/models"
	"trendscope/pkg/utils"
)

func newAnalyzeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "analyze <symbol>",
		Short: "Static channel, volume profile and indicators for a symbol",
		Long: `Fit a regression channel over the stored series, build the volume
profile with POC/HVN/LVN nodes, tag the channel bounds by confluence
and compute the auxiliary indicators.`,
		Example: `  trendscope analyze AAPL
  trendscope analyze AAPL --lookback 90 --multiplier 2.5
  trendscope analyze AAPL --benchmark SPY`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			periodFlag, _ := cmd.Flags().GetString("period")
			lookback, _ := cmd.Flags().GetInt("lookback")
			multiplier, _ := cmd.Flags().GetFloat64("multiplier")
			benchmarkSym, _ := cmd.Flags().GetString("benchmark")
			slidingPeriod, _ := cmd.Flags().GetInt("sliding")
			sweep, _ := cmd.Flags().GetBool("sweep")

			series, err := loadStoredSeries(ctx, app, symbol, models.ChartPeriod(periodFlag), output)
			if err != nil {
				return err
			}

			opts := analysis.Options{
				ChannelConfig: channel.StaticConfig{
					Lookback:      lookback,
					StdMultiplier: multiplier,
					BandCount:     app.Config.Engine.BandCount,
					PriceSource:   models.PriceSource(app.Config.Engine.PriceSource),
				},
				BinCount:           app.Config.Engine.BinCount,
				ProximityThreshold: app.Config.Detector.ProximityThreshold,
			}
			if lookback <= 0 {
				opts.ChannelConfig.Lookback = minIntCLI(app.Config.Engine.Lookback, len(series.Points))
			}
			if multiplier <= 0 {
				opts.ChannelConfig.StdMultiplier = app.Config.Engine.StdMultiplier
			}

			if benchmarkSym != "" {
				bench, err := app.Store.GetSeries(ctx, strings.ToUpper(benchmarkSym), series.Period)
				if err != nil {
					output.Warning("Benchmark %s not found, skipping relative performance", benchmarkSym)
				} else {
					opts.Benchmark = bench.Points
				}
			}

			logger := logging.WithSymbol(app.Logger, symbol)
			result, err := analysis.Analyze(ctx, logger, series, opts)
			if err != nil {
				output.Error("Analysis failed: %v", err)
				return err
			}

			if slidingPeriod > 0 {
				sliding, err := channel.BuildSliding(series.Points, channel.SlidingConfig{
					Period:        slidingPeriod,
					StdMultiplier: opts.ChannelConfig.StdMultiplier,
					BandCount:     opts.ChannelConfig.BandCount,
					PriceSource:   opts.ChannelConfig.PriceSource,
				})
				if err != nil {
					output.Error("Sliding channel failed: %v", err)
					return err
				}
				result.Points = sliding
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			printAnalysis(output, result)

			if sweep {
				best, err := indicators.FindBestPeriod(series.Points)
				if err != nil {
					output.Warning("Period sweep skipped: %v", err)
				} else {
					color.Cyan("SMA Period Sweep")
					output.Printf("  Best period  %d\n", best.Period)
					output.Printf("  Reversals    %d\n", len(best.TurningPoints))
					output.Printf("  Total gain   %s\n", utils.FormatPercent(best.TotalGainPct))
				}
			}
			return nil
		},
	}

	cmd.Flags().Int("lookback", 0, "channel window length (default from config)")
	cmd.Flags().Float64("multiplier", 0, "channel width in standard deviations")
	cmd.Flags().String("benchmark", "", "benchmark symbol for relative performance")
	cmd.Flags().Int("sliding", 0, "recompute the channel per point over this trailing window")
	cmd.Flags().Bool("sweep", false, "sweep SMA periods for the best turning-point gain")
	return cmd
}

func printAnalysis(output *Output, result *analysis.Result) {
	color.Cyan("Channel Analysis - %s (%s)", result.Symbol, result.Period)

	last := lastChanneled(result.Points)
	if last != nil {
		output.Printf("  Center   %s\n", utils.FormatPrice(*last.Center))
		output.Printf("  Upper    %s\n", utils.FormatPrice(*last.Upper))
		output.Printf("  Lower    %s\n", utils.FormatPrice(*last.Lower))
		output.Printf("  StdDev   %s\n", utils.FormatPrice(*last.StdDev))
	} else {
		output.Warning("No channel window computed")
	}

	if result.Profile != nil {
		color.Cyan("Volume Profile")
		output.Printf("  POC      %s (%s)\n",
			utils.FormatPrice(result.Profile.POC.PriceLevel),
			utils.FormatVolume(result.Profile.POC.Volume))
		output.Printf("  Value    %s - %s\n",
			utils.FormatPrice(result.Profile.VAL), utils.FormatPrice(result.Profile.VAH))
		output.Printf("  HVNs %d  LVNs %d\n", len(result.Profile.HVNs), len(result.Profile.LVNs))
	}

	for name, values := range result.Indicators {
		if len(values) > 0 {
			output.Printf("  %-8s %.3f\n", name, values[len(values)-1])
		}
	}
	output.Printf("%s\n", output.DimText(fmt.Sprintf("completed in %s", result.Elapsed.Round(time.Millisecond))))
}

func lastChanneled(points []channel.ChannelPoint) *channel.ChannelPoint {
	for i := len(points) - 1; i >= 0; i-- {
		if points[i].HasChannel() {
			return &points[i]
		}
	}
	return nil
}

func loadStoredSeries(ctx context.Context, app *App, symbol string, period models.ChartPeriod, output *Output) (*models.Series, error) {
	if app.Store == nil {
		output.Error("Store unavailable. Run 'trendscope import' first.")
		return nil, fmt.Errorf("store unavailable")
	}
	series, err := app.Store.GetSeries(ctx, symbol, period)
	if err != nil {
		output.Error("No stored series for %s (%s). Run 'trendscope import' first.", symbol, period)
		return nil, err
	}
	return series, nil
}

func minIntCLI(a, b int) int {
	if a < b {
		return a
	}
	return b
}
