package commands

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/finsight/internal/scheduler"
	"github.com/wonny/finsight/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "Manage the scheduler",
	Long: `Starts the scheduler or runs its jobs by hand.

Subcommands:
  start   - Start the scheduler daemon
  list    - List registered jobs
  run     - Run one job now and wait for it

Jobs:
  vendor_refresh: REFRESH_SCHEDULE (default 06:00 daily), pulls REFRESH_SOURCE
                  for every REFRESH_TICKERS entry and stores an automatic forecast

Example:
  go run ./cmd/finsight scheduler start
  go run ./cmd/finsight scheduler list
  go run ./cmd/finsight scheduler run vendor_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "Start the scheduler",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "List registered jobs",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "Run a job immediately",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Finsight Scheduler ===")

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	PrintList(sched.GetAllJobs())
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Println("Registered jobs:")
	stats := sched.GetJobStats()
	for _, name := range sched.GetAllJobs() {
		PrintKeyValue(name, stats[name].Schedule, 16)
	}
	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Printf("Running job: %s\n", jobName)
	result, err := sched.RunJob(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	printOutcome(result.Outcome)
	if !result.Success {
		return fmt.Errorf("job %s failed after %d attempts: %s", jobName, result.Attempts, result.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs", jobName, result.Duration.Seconds()))
	return nil
}

func printOutcome(o scheduler.Outcome) {
	if o.Total() == 0 {
		return
	}
	PrintKeyValue("Refreshed", strings.Join(o.Refreshed, ", "), 10)
	if len(o.Skipped) > 0 {
		PrintKeyValue("Skipped", strings.Join(o.Skipped, ", "), 10)
	}
	for _, item := range o.FailedItems() {
		PrintWarning(fmt.Sprintf("%s: %s", item, o.Failed[item]))
	}
}

func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, error) {
	a, err := cliApp()
	if err != nil {
		return nil, nil, err
	}
	if err := a.withStores(cmd.Context()); err != nil {
		a.close()
		return nil, nil, err
	}

	sched := scheduler.New(a.log)

	var runs jobs.RunSaver
	if a.runs != nil {
		runs = a.runs
	}
	refresh := jobs.NewRefreshJob(jobs.RefreshConfig{
		Schedule:   a.cfg.Refresh.Schedule,
		Source:     a.cfg.Refresh.Source,
		Tickers:    a.cfg.Refresh.Tickers,
		Target:     a.cfg.Forecast.Target,
		ConfigHash: a.modelHash,
	}, a.loader, a.engine, runs, a.log)

	if err := sched.AddJob(refresh); err != nil {
		a.close()
		return nil, nil, err
	}

	a.log.WithFields(map[string]interface{}{
		"tickers": strings.Join(a.cfg.Refresh.Tickers, ","),
		"source":  a.cfg.Refresh.Source,
	}).Info("Scheduler initialized")

	return a, sched, nil
}
