package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"db-migrate/internal/engine"

	"gopkg.in/yaml.v3"
)

// Report is the file written by --report.
type Report struct {
	RunID    string          `yaml:"run_id"`
	Started  time.Time       `yaml:"started"`
	Elapsed  time.Duration   `yaml:"elapsed"`
	Source   string          `yaml:"source"`
	Target   string          `yaml:"target"`
	Settings engine.Settings `yaml:"settings"`
	Results  []engine.Result `yaml:"results"`
}

func writeReport(path string, r Report) error {
	out, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}

func printSummary(w io.Writer, results []engine.Result) {
	fmt.Fprintln(w, "\n📊 Summary Report (Execution Order):")
	total := 0
	for i, r := range results {
		icon := "✓"
		switch r.Status {
		case engine.StatusSkipped:
			icon = "-"
		case engine.StatusFailed:
			icon = "!"
		}
		fmt.Fprintf(w, "[%s] [%02d/%02d] %-36s : %d rows - %s\n",
			icon, i+1, len(results), r.Step, r.Rows, r.Status)
		if r.Note != "" && r.Status != engine.StatusOK {
			fmt.Fprintf(w, "    └ %s\n", r.Note)
		}
		if r.ErrorMsg != "" {
			fmt.Fprintf(w, "    └ Error: %s\n", r.ErrorMsg)
		}
		total += r.Rows
	}
	ok, skipped, failed := engine.Summary(results)
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total Rows: %d (ok %d, skipped %d, failed %d)\n", total, ok, skipped, failed)
}
