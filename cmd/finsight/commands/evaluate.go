package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/forecast"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [file]",
	Short: "Compare every model on a hold-out split",
	Long: `Holds out the last --horizon rows, fits every model on the rest and prints
MAE and RMSE per model. Models that fail are listed with their error.

Without a file the built-in sample data is used.

Example:
  go run ./cmd/finsight evaluate sales.csv --target sales --horizon 30
  go run ./cmd/finsight evaluate --horizon 3`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEvaluate,
}

var (
	evaluateTarget  string
	evaluateHorizon int
	evaluateJSON    bool
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	evaluateCmd.Flags().StringVar(&evaluateTarget, "target", "", "target column (default: first metric column)")
	evaluateCmd.Flags().IntVar(&evaluateHorizon, "horizon", 0, "hold-out rows (default: FORECAST_HORIZON)")
	evaluateCmd.Flags().BoolVar(&evaluateJSON, "json", false, "print JSON instead of a table")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.close()

	frame, name, err := loadInput(args)
	if err != nil {
		return err
	}
	target := resolveTarget(evaluateTarget, frame)
	horizon := evaluateHorizon
	if horizon == 0 {
		horizon = a.cfg.Forecast.Horizon
	}

	evaluator := forecast.NewEvaluator(a.engine, a.log.Zerolog())
	if !evaluateJSON {
		PrintHeader("Model Evaluation",
			Field{"Input", name},
			Field{"Rows", strconv.Itoa(frame.Len())},
			Field{"Target", target},
			Field{"Horizon", strconv.Itoa(horizon)},
		)
		total := len(contracts.EvaluationOrder())
		done := 0
		evaluator.OnRow = func(row contracts.EvaluationRow) {
			done++
			status := "done"
			if row.Failed() {
				status = "failed"
			}
			PrintProgress("Evaluate", fmt.Sprintf("%s %s", row.Model, status), done, total)
		}
	}

	report, err := evaluator.Evaluate(cmd.Context(), frame, target, horizon)
	if err != nil {
		return err
	}

	if evaluateJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	header := []string{"model", "mae", "rmse", "error"}
	rows := make([][]string, len(report.Rows))
	for i, row := range report.Rows {
		rows[i] = []string{string(row.Model), formatValue(row.MAE), formatValue(row.RMSE), row.Error}
	}

	fmt.Println()
	widths := columnWidths(header, rows)
	PrintTableHeader(header, widths)
	for _, row := range rows {
		PrintTableRow(row, widths)
	}
	PrintSeparator()

	if report.BestMAE == "" {
		PrintWarning("No model produced defined metrics")
		return nil
	}
	PrintKeyValue("Best MAE", string(report.BestMAE), 9)
	PrintKeyValue("Best RMSE", string(report.BestRMSE), 9)
	fmt.Println()
	return nil
}
