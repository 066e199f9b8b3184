package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List stored forecast and evaluation runs",
	Long: `Lists the most recent runs stored in PostgreSQL. Requires DB_ENABLED=true.

Example:
  go run ./cmd/finsight runs
  go run ./cmd/finsight runs --limit 5`,
	Args: cobra.NoArgs,
	RunE: runRuns,
}

var (
	runsLimit int
)

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to show")
}

func runRuns(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.close()

	if !a.cfg.Database.Enabled {
		return fmt.Errorf("run history requires DB_ENABLED=true and DATABASE_URL")
	}
	if err := a.withStores(cmd.Context()); err != nil {
		return err
	}

	runs, err := a.runs.List(cmd.Context(), runsLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		PrintInfo("No runs stored yet")
		return nil
	}

	header := []string{"created", "kind", "model", "target", "rows", "horizon", "id"}
	rows := make([][]string, len(runs))
	for i, r := range runs {
		horizon := "-"
		if r.Horizon > 0 {
			horizon = strconv.Itoa(r.Horizon)
		}
		model := string(r.Model)
		if model == "" {
			model = "-"
		}
		rows[i] = []string{
			r.CreatedAt.Local().Format("2006-01-02 15:04"),
			string(r.Kind),
			model,
			r.Target,
			strconv.Itoa(r.Rows),
			horizon,
			r.ID,
		}
	}

	widths := columnWidths(header, rows)
	PrintTableHeader(header, widths)
	for _, row := range rows {
		PrintTableRow(row, widths)
	}
	return nil
}
