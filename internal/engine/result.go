package engine

import (
	"fmt"
	"time"
)

// Status is the outcome of one step.
type Status string

const (
	StatusOK      Status = "ok"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// StepError is the cause of a failed step.
type StepError struct {
	Step  string
	Table string
	Err   error
}

func (e *StepError) Error() string {
	if e.Step == "" {
		return fmt.Sprintf("%s: %v", e.Table, e.Err)
	}
	return fmt.Sprintf("%s (%s): %v", e.Step, e.Table, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Result is the per-step report row.
type Result struct {
	Step     string        `yaml:"step"`
	Table    string        `yaml:"table"`
	Status   Status        `yaml:"status"`
	Rows     int           `yaml:"rows"`
	Note     string        `yaml:"note,omitempty"`
	Err      *StepError    `yaml:"-"`
	ErrorMsg string        `yaml:"error,omitempty"`
	Elapsed  time.Duration `yaml:"elapsed"`
}

func (r Result) Failed() bool { return r.Status == StatusFailed }

func done(table string, rows int, note string) Result {
	return Result{Table: table, Status: StatusOK, Rows: rows, Note: note}
}

func skip(table, reason string) Result {
	return Result{Table: table, Status: StatusSkipped, Note: reason}
}

func fail(table string, rows int, err error) Result {
	return Result{
		Table:    table,
		Status:   StatusFailed,
		Rows:     rows,
		Err:      &StepError{Table: table, Err: err},
		ErrorMsg: err.Error(),
	}
}

// Summary counts results per status.
func Summary(results []Result) (okCount, skippedCount, failedCount int) {
	for _, r := range results {
		switch r.Status {
		case StatusOK:
			okCount++
		case StatusSkipped:
			skippedCount++
		case StatusFailed:
			failedCount++
		}
	}
	return
}
