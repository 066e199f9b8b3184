package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/wonny/finsight/internal/contracts"
	"github.com/wonny/finsight/internal/modelconfig"
)

// modelsCmd represents the models command
var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Show model labels and configuration",
	Long: `Prints the model labels, the evaluation order and the active model
configuration (built-in defaults merged with --models / MODELS_FILE).

Subcommands:
  validate  - Check a model config file without running anything

Example:
  go run ./cmd/finsight models
  go run ./cmd/finsight models --models config/models.yaml
  go run ./cmd/finsight models validate config/models.yaml`,
	Args: cobra.NoArgs,
	RunE: runModels,
}

var modelsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a model config file",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsValidate,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
	modelsCmd.AddCommand(modelsValidateCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	a, err := cliApp()
	if err != nil {
		return err
	}
	defer a.close()

	PrintHeader("Models", Field{"Hash", a.modelHash})

	labels := make([]string, 0, len(contracts.AllModels()))
	for _, m := range contracts.AllModels() {
		labels = append(labels, string(m))
	}
	fmt.Println("Labels:")
	PrintList(labels)

	order := make([]string, 0, len(contracts.EvaluationOrder()))
	for _, m := range contracts.EvaluationOrder() {
		order = append(order, string(m))
	}
	fmt.Println("Evaluation order:")
	PrintList(order)

	PrintSeparator()
	enc := yaml.NewEncoder(os.Stdout)
	enc.SetIndent(2)
	defer enc.Close()
	return enc.Encode(a.models)
}

func runModelsValidate(cmd *cobra.Command, args []string) error {
	cfg, err := modelconfig.Load(args[0])
	if err != nil {
		return err
	}
	hash, err := modelconfig.Hash(cfg)
	if err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("%s is valid (hash %s)", args[0], hash))
	return nil
}
