package cli

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"trendscope/internal/errors"
	"trendscope/internal/logging"
	"trendscope/internal/models"
)

// csvRow is one line of an imported price file.
type csvRow struct {
	Date   string  `csv:"date"`
	Open   float64 `csv:"open"`
	High   float64 `csv:"high"`
	Low    float64 `csv:"low"`
	Close  float64 `csv:"close"`
	Volume float64 `csv:"volume"`
}

func newImportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a price/volume series from CSV",
		Long: `Import a CSV file with columns date,open,high,low,close,volume.
The open/high/low columns may be empty; dates parse as YYYY-MM-DD or RFC3339.`,
		Example: `  trendscope import prices.csv --symbol AAPL --period 1Y`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx, cancel := context.WithTimeout(logging.WithLogger(context.Background(), app.Logger), 30*time.Second)
			defer cancel()

			symbol, _ := cmd.Flags().GetString("symbol")
			periodFlag, _ := cmd.Flags().GetString("period")
			if symbol == "" {
				output.Error("--symbol is required")
				return fmt.Errorf("missing symbol")
			}

			if app.Store == nil {
				output.Error("Store unavailable")
				return fmt.Errorf("store unavailable")
			}

			series, err := loadCSVSeries(args[0], strings.ToUpper(symbol), models.ChartPeriod(periodFlag))
			if err != nil {
				output.Error("Import failed: %v", err)
				return err
			}

			if err := app.Store.SaveSeries(ctx, series); err != nil {
				output.Error("Save failed: %v", err)
				return err
			}

			logger := logging.FromContext(ctx)
			logger.Info().
				Str("symbol", series.Symbol).
				Int("points", len(series.Points)).
				Msg("Series imported")
			output.Success("Imported %d points for %s (%s)", len(series.Points), series.Symbol, series.Period)
			return nil
		},
	}

	cmd.Flags().String("symbol", "", "symbol to store the series under")
	return cmd
}

// loadCSVSeries reads and validates a CSV price file.
func loadCSVSeries(path, symbol string, period models.ChartPeriod) (*models.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []*csvRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows in %s", path)
	}

	series := &models.Series{Symbol: symbol, Period: period}
	for i, row := range rows {
		date, err := parseDate(row.Date)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+1, err)
		}
		if row.Close <= 0 {
			return nil, errors.NewValidationError("close", row.Close, fmt.Sprintf("row %d: must be positive", i+1))
		}
		if row.Volume < 0 {
			return nil, errors.NewValidationError("volume", row.Volume, fmt.Sprintf("row %d: must be non-negative", i+1))
		}
		series.Points = append(series.Points, models.SeriesPoint{
			Date:   date,
			Open:   row.Open,
			High:   row.High,
			Low:    row.Low,
			Close:  row.Close,
			Volume: row.Volume,
		})
	}

	sort.Slice(series.Points, func(i, j int) bool {
		return series.Points[i].Date.Before(series.Points[j].Date)
	})

	return series, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
