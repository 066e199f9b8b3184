package scheduler

import (
	"context"
	"sort"
	"time"
)

// historyLimit is the number of results kept per job
const historyLimit = 100

// Job is a named unit of scheduled work
// ⭐ SSOT: the job contract is defined here only
type Job interface {
	Name() string

	// Schedule returns a cron spec with seconds first, e.g. "0 0 6 * * *" or "@every 30m"
	Schedule() string

	// Run executes the job once and reports which items it handled.
	// The outcome is recorded even when err is non-nil.
	Run(ctx context.Context) (Outcome, error)
}

// Outcome lists the items (tickers for the refresh job) a run handled
type Outcome struct {
	Refreshed []string          `json:"refreshed,omitempty"`
	Skipped   []string          `json:"skipped,omitempty"`
	Failed    map[string]string `json:"failed,omitempty"` // item -> error
}

// Total returns how many items the run looked at
func (o Outcome) Total() int {
	return len(o.Refreshed) + len(o.Skipped) + len(o.Failed)
}

// FailedItems returns the failed item names, sorted
func (o Outcome) FailedItems() []string {
	items := make([]string, 0, len(o.Failed))
	for item := range o.Failed {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// JobResult is one execution of a job, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Outcome   Outcome       `json:"outcome"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the latest results of one job, oldest first
type JobHistory struct {
	Results []JobResult

	// lastRefreshed remembers when each item last refreshed, across trimmed results
	lastRefreshed map[string]time.Time
}

// AddResult appends a result, dropping the oldest beyond historyLimit
func (h *JobHistory) AddResult(result JobResult) {
	h.Results = append(h.Results, result)
	if len(h.Results) > historyLimit {
		h.Results = h.Results[len(h.Results)-historyLimit:]
	}

	if len(result.Outcome.Refreshed) == 0 {
		return
	}
	if h.lastRefreshed == nil {
		h.lastRefreshed = make(map[string]time.Time)
	}
	for _, item := range result.Outcome.Refreshed {
		h.lastRefreshed[item] = result.EndTime
	}
}

// GetLatestResults returns the latest n results, oldest first
func (h *JobHistory) GetLatestResults(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// GetFailedResults returns the failed results
func (h *JobHistory) GetFailedResults() []JobResult {
	failed := make([]JobResult, 0)
	for _, result := range h.Results {
		if !result.Success {
			failed = append(failed, result)
		}
	}
	return failed
}

// GetSuccessRate returns the share of successful results (0.0 - 1.0)
func (h *JobHistory) GetSuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-len(h.GetFailedResults())) / float64(len(h.Results))
}

// LastRefreshed returns when item was last refreshed by a run
func (h *JobHistory) LastRefreshed(item string) (time.Time, bool) {
	at, ok := h.lastRefreshed[item]
	return at, ok
}

// Stale returns the items that have not refreshed since cutoff, sorted.
// Items never refreshed are included.
func (h *JobHistory) Stale(items []string, cutoff time.Time) []string {
	stale := make([]string, 0)
	for _, item := range items {
		if at, ok := h.lastRefreshed[item]; !ok || at.Before(cutoff) {
			stale = append(stale, item)
		}
	}
	sort.Strings(stale)
	return stale
}
