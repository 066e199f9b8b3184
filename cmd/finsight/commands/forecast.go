package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/dataset"
	"github.com/wonny/finsight/internal/ingest"
	"github.com/wonny/finsight/internal/qualitative"
)

// forecastCmd represents the forecast command
var forecastCmd = &cobra.Command{
	Use:   "forecast [file]",
	Short: "Forecast a metric from a CSV, Excel or JSON file",
	Long: `Loads a file, runs one model (or picks one automatically) and prints the
forecast with its in-sample error and the dashboard scenarios.

Without a file the built-in sample data is used.

Example:
  go run ./cmd/finsight forecast sales.csv --target sales
  go run ./cmd/finsight forecast data.xlsx --model prophet --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runForecast,
}

var (
	forecastModel  string
	forecastTarget string
	forecastJSON   bool
)

func init() {
	rootCmd.AddCommand(forecastCmd)

	forecastCmd.Flags().StringVar(&forecastModel, "model", "auto", "model label or auto")
	forecastCmd.Flags().StringVar(&forecastTarget, "target", "", "target column (default: first metric column)")
	forecastCmd.Flags().BoolVar(&forecastJSON, "json", false, "print JSON instead of a table")
}

// loadInput reads the file argument, or the sample frame when none is given
func loadInput(args []string) (*dataset.Frame, string, error) {
	if len(args) == 0 {
		return ingest.SampleFrame(), "sample", nil
	}
	f, err := ingest.LoadFile(args[0])
	if err != nil {
		return nil, "", err
	}
	return f, args[0], nil
}

func resolveTarget(flag string, f *dataset.Frame) string {
	if flag != "" {
		return flag
	}
	if t := ingest.DefaultTarget(f); t != "" {
		return t
	}
	return ingest.TargetAlias
}

func runForecast(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.close()

	frame, name, err := loadInput(args)
	if err != nil {
		return err
	}
	target := resolveTarget(forecastTarget, frame)

	res, metrics, err := a.engine.Run(cmd.Context(), frame, forecastModel, target)
	if err != nil {
		return err
	}
	scenarios := qualitative.DashboardScenarios().ProjectSeries(res.Forecast.Values)

	if forecastJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"model":    res.Model,
			"target":   target,
			"signals":  res.Signals,
			"forecast": res.Forecast.Records(),
			"metrics":  metrics,
		})
	}

	PrintHeader("Forecast",
		Field{"Input", name},
		Field{"Rows", strconv.Itoa(frame.Len())},
		Field{"Target", target},
		Field{"Model", string(res.Model)},
	)
	if res.Signals != nil {
		PrintKeyValue("Seasonality", strconv.FormatBool(res.Signals.HasSeasonality), 12)
		PrintKeyValue("Trend", strconv.FormatBool(res.Signals.HasTrend), 12)
		PrintKeyValue("Multivariate", strconv.FormatBool(res.Signals.Multivariate), 12)
		PrintSeparator()
	}

	header := []string{"#", "date", "value"}
	names := []string{qualitative.Optimistic, qualitative.Base, qualitative.Pessimistic}
	header = append(header, names...)

	rows := make([][]string, res.Forecast.Len())
	for i, v := range res.Forecast.Values {
		date := ""
		if i < len(res.Forecast.Index) {
			date = res.Forecast.Index[i].Format("2006-01-02")
		}
		row := []string{strconv.Itoa(i), date, formatValue(finite(v))}
		for _, n := range names {
			row = append(row, formatValue(finite(scenarios[n][i])))
		}
		rows[i] = row
	}

	widths := columnWidths(header, rows)
	PrintTableHeader(header, widths)
	for _, row := range rows {
		PrintTableRow(row, widths)
	}

	PrintSeparator()
	PrintKeyValue("MAE", formatValue(metrics.MAE), 5)
	PrintKeyValue("RMSE", formatValue(metrics.RMSE), 5)
	fmt.Println()
	PrintInfo("Values and errors are in standardized units")
	return nil
}
