package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/ingest"
)

// sampleCmd represents the sample command
var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Write the built-in sample dataset",
	Long: `Writes twelve month-end rows of revenue, expenses, profit, cashflow and demand
as CSV, Excel or JSON records.

Example:
  go run ./cmd/finsight sample
  go run ./cmd/finsight sample --output sample.xlsx`,
	Args: cobra.NoArgs,
	RunE: runSample,
}

var (
	sampleOutput string
)

func init() {
	rootCmd.AddCommand(sampleCmd)

	sampleCmd.Flags().StringVar(&sampleOutput, "output", "", "output file (.csv, .xlsx or .json); stdout CSV when empty")
}

func runSample(cmd *cobra.Command, args []string) error {
	frame := ingest.SampleFrame()

	if sampleOutput == "" {
		return ingest.WriteCSV(os.Stdout, frame)
	}

	format, err := ingest.DetectFormat(sampleOutput)
	if err != nil {
		return err
	}

	out, err := os.Create(sampleOutput)
	if err != nil {
		return err
	}
	defer out.Close()

	var w io.Writer = out
	switch format {
	case ingest.FormatExcel:
		err = ingest.WriteExcel(w, frame)
	case ingest.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		err = enc.Encode(frame.Records())
	default:
		err = ingest.WriteCSV(w, frame)
	}
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Wrote %d sample rows to %s", frame.Len(), sampleOutput))
	return nil
}
