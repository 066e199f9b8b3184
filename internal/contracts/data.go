package contracts

import (
	"encoding/json"
	"time"
)

// Table is a loosely typed result of a vendor fetch: named columns, string cells.
// Vendors disagree on shape, so typing happens at the consumer.
type Table struct {
	Source    string     `json:"source"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	FetchedAt time.Time  `json:"fetched_at"`
}

// Len returns the number of rows
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Records returns the rows as column-keyed maps
func (t *Table) Records() []map[string]string {
	if t == nil {
		return nil
	}
	out := make([]map[string]string, len(t.Rows))
	for i, row := range t.Rows {
		rec := make(map[string]string, len(t.Columns))
		for j, c := range t.Columns {
			if j < len(row) {
				rec[c] = row[j]
			}
		}
		out[i] = rec
	}
	return out
}

// RunKind distinguishes stored runs
type RunKind string

const (
	RunForecast RunKind = "forecast"
	RunEvaluate RunKind = "evaluate"
)

// Run is the persisted summary of a forecast or evaluation request
type Run struct {
	ID         string          `json:"id"`
	Kind       RunKind         `json:"kind"`
	Model      ModelLabel      `json:"model,omitempty"`
	Target     string          `json:"target"`
	Rows       int             `json:"rows"`
	Horizon    int             `json:"horizon,omitempty"`
	ConfigHash string          `json:"config_hash"`
	Result     json.RawMessage `json:"result"`
	CreatedAt  time.Time       `json:"created_at"`
}
