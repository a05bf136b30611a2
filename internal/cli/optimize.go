package cli

import (
	"context"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"trendscope/internal/analysis"
	"trendscope/internal/analysis/channel"
	"trendscope/internal/logging"
	"trendscope/internal/models"
)

func newOptimizeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "optimize <symbol>",
		Short: "Grid-search the best channel placement for a symbol",
		Long: `Sweep (lookback, end offset) pairs maximizing center-line crosses,
then derive the channel width from touch alignment at the winner. Runs
over the full series and again over the most recent quarter.`,
		Example: `  trendscope optimize AAPL
  trendscope optimize AAPL --budget 50000 --timeout 2m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			timeout, _ := cmd.Flags().GetDuration("timeout")
			ctx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()

			symbol := strings.ToUpper(args[0])
			periodFlag, _ := cmd.Flags().GetString("period")
			budget, _ := cmd.Flags().GetInt("budget")

			series, err := loadStoredSeries(ctx, app, symbol, models.ChartPeriod(periodFlag), output)
			if err != nil {
				return err
			}

			cfg := channel.OptimizeConfig{
				EvalBudget:      budget,
				SmoothingPeriod: series.Period.SmoothingPeriod(),
				PriceSource:     models.PriceSource(app.Config.Engine.PriceSource),
			}
			if budget <= 0 {
				cfg.EvalBudget = app.Config.Engine.EvalBudget
			}

			logger := logging.WithOperation(logging.WithSymbol(app.Logger, symbol), "optimize")
			runner := analysis.NewRunner(logger)

			output.Info("Searching %d points for %s...", len(series.Points), symbol)
			start := time.Now()

			var outcome analysis.OptimizeOutcome
			select {
			case outcome = <-runner.Optimize(ctx, series.Points, cfg):
			case <-ctx.Done():
				output.Error("Search timed out after %s", timeout)
				return ctx.Err()
			}
			if outcome.Err != nil {
				output.Error("Search failed: %v", outcome.Err)
				return outcome.Err
			}

			result := outcome.Result
			logging.LogSearch(logger, symbol, result.Full.Evaluations, time.Since(start))
			if err := app.Store.SaveOptimizerRun(ctx, symbol, series.Period, result.Full); err != nil {
				output.Warning("Could not persist optimizer run: %v", err)
			}

			if output.IsJSON() {
				return output.JSON(result)
			}

			color.Cyan("Optimal Channel - %s (%s)", symbol, series.Period)
			printOptimal(output, "Full series", result.Full)
			if result.Recent != nil {
				printOptimal(output, "Recent quarter", result.Recent)
			}
			output.Printf("%s\n", output.DimText("finished in "+time.Since(start).Round(time.Millisecond).String()))
			return nil
		},
	}

	cmd.Flags().Int("budget", 0, "phase-1 evaluation budget (default from config)")
	cmd.Flags().Duration("timeout", 5*time.Minute, "abort the search after this long")
	return cmd
}

func printOptimal(output *Output, label string, r *channel.OptimalResult) {
	output.Printf("%s\n", color.New(color.Bold).Sprint(label))
	output.Printf("  Lookback    %d\n", r.Lookback)
	output.Printf("  End offset  %d\n", r.EndOffset)
	output.Printf("  Delta       %.4f sigma\n", r.Delta)
	output.Printf("  Crosses     %d\n", r.MaxCrosses)
	output.Printf("  Coverage    %d window points inside\n", r.CoverageCount)
	output.Printf("  Touches     upper=%s lower=%s\n", touchMark(output, r.TouchesUpper), touchMark(output, r.TouchesLower))
	output.Printf("  Evaluated   %d windows\n", r.Evaluations)
}

func touchMark(output *Output, touched bool) string {
	if touched {
		return output.Green("yes")
	}
	return output.Red("no")
}
