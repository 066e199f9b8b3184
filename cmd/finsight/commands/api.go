package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/api"
	"github.com/wonny/finsight/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Start the API server",
	Long: `Starts the REST API server.

Endpoints:
  GET  /health                  - Health check
  GET  /metrics                 - Prometheus metrics (METRICS_ENABLED)
  POST /api/forecast            - Forecast an uploaded file
  POST /api/evaluate            - Compare every model on a hold-out split
  GET  /api/evaluate/stream     - Websocket evaluation, one message per model
  GET  /api/models              - Model labels and configuration
  GET  /api/runs                - Stored runs (DB_ENABLED)
  POST /api/scenarios           - Scenario projections
  POST /api/delphi/round        - Record a Delphi estimate
  GET  /api/sources             - Web source ids
  GET  /api/sources/{source}    - Fetch a web source

Example:
  go run ./cmd/finsight api
  go run ./cmd/finsight api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API server port (default: PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Finsight API Server ===")

	a, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	a.log.WithFields(map[string]interface{}{
		"port":        a.cfg.Port,
		"env":         a.cfg.Env,
		"config_hash": a.modelHash,
	}).Info("Initializing API server")

	if err := a.withStores(cmd.Context()); err != nil {
		return err
	}

	h := api.Handlers{
		Forecast: handlers.NewForecastHandler(a.engine, a.runStore(), a.modelHash, handlers.ForecastDefaults{
			Target:    a.cfg.Forecast.Target,
			Horizon:   a.cfg.Forecast.Horizon,
			MaxUpload: a.cfg.Forecast.MaxUpload,

			AllowedOrigins: a.cfg.Server.AllowedOrigins,
		}, a.log),
		Qualitative: handlers.NewQualitativeHandler(a.log),
		Sources:     handlers.NewSourceHandler(a.loader, a.log),
		Runs:        handlers.NewRunHandler(a.runStore(), a.log),
		Models:      handlers.NewModelHandler(a.models, a.modelHash),
	}

	router := api.NewRouter(h, a.recorder, a.log)
	server := api.New(a.cfg, a.log, router)

	// Serve until interrupted; Serve drains in-flight requests on the way out
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	if err := server.ListenAndServe(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
