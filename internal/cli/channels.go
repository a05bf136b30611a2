package cli

import (
	"context"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trendscope/internal/analysis"
	"trendscope/internal/analysis/channel"
	"trendscope/internal/errors"
	"trendscope/internal/logging"
	"trendscope/internal/models"
	"trendscope/pkg/utils"
)

func newChannelsCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels <symbol>",
		Short: "Detect multiple disjoint trend channels in a series",
		Long: `Partition the stored series into non-overlapping sub-ranges, each
fit with an independently scored regression channel. Stops when the
best remaining candidate falls below the acceptance score.`,
		Example: `  trendscope channels AAPL
  trendscope channels AAPL --max 5
  trendscope channels AAPL --cached`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			periodFlag, _ := cmd.Flags().GetString("period")
			maxChannels, _ := cmd.Flags().GetInt("max")
			cached, _ := cmd.Flags().GetBool("cached")

			series, err := loadStoredSeries(ctx, app, symbol, models.ChartPeriod(periodFlag), output)
			if err != nil {
				return err
			}

			if cached {
				channels, err := app.Store.GetChannels(ctx, symbol, series.Period)
				if err != nil {
					output.Error("No cached channels for %s: %v", symbol, err)
					return err
				}
				if len(channels) == 0 {
					output.Warning("No persisted detection for %s; run without --cached first", symbol)
					return errors.NewDataError("channels", symbol, "no persisted detection", errors.ErrDataNotFound)
				}
				return printChannels(output, symbol, series, channels)
			}

			cfg := channel.DetectConfig{
				MinRatio:           app.Config.Detector.MinRatio,
				MaxRatio:           app.Config.Detector.MaxRatio,
				StartingMultiplier: app.Config.Detector.StartingMultiplier,
				MaxChannels:        maxChannels,
				BandCount:          app.Config.Engine.BandCount,
				PriceSource:        models.PriceSource(app.Config.Engine.PriceSource),
			}
			if maxChannels <= 0 {
				cfg.MaxChannels = app.Config.Detector.MaxChannels
			}

			logger := logging.WithOperation(logging.WithSymbol(app.Logger, symbol), "detect")
			runner := analysis.NewRunner(logger)

			var outcome analysis.DetectOutcome
			select {
			case outcome = <-runner.Detect(ctx, series.Points, cfg):
			case <-ctx.Done():
				output.Error("Detection timed out")
				return ctx.Err()
			}
			if outcome.Err != nil {
				output.Error("Detection failed: %v", outcome.Err)
				return outcome.Err
			}

			for _, c := range outcome.Channels {
				logging.LogChannel(logger, symbol, c.StartIdx, c.EndIdx, c.Score)
			}
			if err := app.Store.SaveChannels(ctx, symbol, series.Period, outcome.Channels); err != nil {
				output.Warning("Could not persist channels: %v", err)
			}

			return printChannels(output, symbol, series, outcome.Channels)
		},
	}

	cmd.Flags().Int("max", 0, "maximum number of channels (default from config)")
	cmd.Flags().Bool("cached", false, "print the last persisted detection instead of re-running")
	return cmd
}

func printChannels(output *Output, symbol string, series *models.Series, channels []channel.ChannelCandidate) error {
	if output.IsJSON() {
		return output.JSON(channels)
	}

	color.Cyan("Detected Channels - %s (%s)", symbol, series.Period)
	if len(channels) == 0 {
		output.Warning("No channels above the acceptance score")
		return nil
	}

	for i, c := range channels {
		startDate := series.Points[c.StartIdx].Date.Format("2006-01-02")
		endDate := series.Points[c.EndIdx-1].Date.Format("2006-01-02")
		trend := output.Green("up")
		if c.Slope < 0 {
			trend = output.Red("down")
		}
		output.Printf("%s %s -> %s (%d pts, %s)\n",
			color.New(color.Bold).Sprintf("#%d", i+1), startDate, endDate, c.Lookback, trend)
		output.Printf("   Center   %s + %.4f/pt\n", utils.FormatPrice(c.Intercept), c.Slope)
		output.Printf("   Width    %.1f sigma (%s)\n", c.StdMultiplier, utils.FormatPrice(c.StdDev*c.StdMultiplier))
		output.Printf("   Coverage %s  Proximity %s  Score %.3f\n",
			utils.FormatPercent(c.Coverage*100), utils.FormatPercent(c.CenterProximity*100), c.Score)
		if c.TouchesUpper || c.TouchesLower {
			output.Printf("   Touches  upper=%v lower=%v\n", c.TouchesUpper, c.TouchesLower)
		}
	}
	return nil
}
