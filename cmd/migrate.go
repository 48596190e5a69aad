package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"db-migrate/internal/dbconn"
	"db-migrate/internal/engine"

	"github.com/google/uuid"
	"github.com/gosuri/uiprogress"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	dryRun     bool
	batchSize  int
	reportPath string
	noProgress bool
)

type migrateOptions struct {
	Source     dbconn.Endpoint
	Target     dbconn.Endpoint
	Settings   engine.Settings
	DryRun     bool
	Progress   bool
	ReportPath string
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Copy the catalog tables from source to target",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		opts := migrateOptions{DryRun: dryRun, Progress: !noProgress, ReportPath: reportPath}

		var err error
		if opts.Settings, err = loadSettings(v); err != nil {
			return err
		}
		if !dryRun {
			if opts.Source, err = loadEndpoint(v, "source"); err != nil {
				return err
			}
			if opts.Target, err = loadEndpoint(v, "target"); err != nil {
				return err
			}
		}
		return runMigrate(cmd.Context(), opts, Log, cmd.OutOrStdout())
	},
}

func init() {
	RootCmd.AddCommand(migrateCmd)

	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the migration plan without connecting")
	migrateCmd.Flags().IntVar(&batchSize, "batch-size", 0, "Rows per insert transaction (overrides config)")
	migrateCmd.Flags().StringVar(&reportPath, "report", "", "Write a YAML run report to this file")
	migrateCmd.Flags().BoolVar(&noProgress, "no-progress", false, "Disable progress bars")

	viper.BindPFlag("settings.batch_size", migrateCmd.Flags().Lookup("batch-size"))
}

func runMigrate(ctx context.Context, opts migrateOptions, logger *logrus.Logger, out io.Writer) error {
	runID := uuid.NewString()
	log := logger.WithField("run", runID)

	if opts.DryRun {
		m := engine.New(engine.Database{}, engine.Database{}, opts.Settings, log)
		log.Info("[SIMULATION] Dry-Run Mode Active: No data will be written.")
		fmt.Fprintln(out, "🔍 Migration Plan:")
		for i, s := range m.Plan() {
			fmt.Fprintf(out, "[%02d] %s\n", i+1, s.Name)
		}
		return nil
	}

	source, err := openDatabase(ctx, opts.Source)
	if err != nil {
		return err
	}
	defer source.DB.Close()
	log.Infof("✅ Source database connection established (%s)", source.Dialect.Name())

	target, err := openDatabase(ctx, opts.Target)
	if err != nil {
		return err
	}
	defer target.DB.Close()
	log.Infof("✅ Target database connection established (%s)", target.Dialect.Name())

	m := engine.New(source, target, opts.Settings, log)
	if opts.Progress {
		bars := newProgress()
		m.OnBatch = bars.update
		defer bars.stop()
	}

	log.Info("🚀 Starting migration process...")
	start := time.Now()
	results := m.Run(ctx, m.Plan())
	elapsed := time.Since(start)

	printSummary(out, results)
	log.Infof("Migration Done! Time Elapsed: %s", elapsed)

	if opts.ReportPath != "" {
		report := Report{
			RunID:    runID,
			Started:  start,
			Elapsed:  elapsed,
			Source:   opts.Source.Driver,
			Target:   opts.Target.Driver,
			Settings: m.Settings(),
			Results:  results,
		}
		if err := writeReport(opts.ReportPath, report); err != nil {
			return err
		}
		log.WithField("file", opts.ReportPath).Info("report written")
	}
	return nil
}

// progress draws one bar per table pass.
type progress struct {
	mu      sync.Mutex
	ui      *uiprogress.Progress
	started bool
	bars    map[string]*uiprogress.Bar
}

func newProgress() *progress {
	ui := uiprogress.New()
	ui.SetOut(os.Stderr)
	return &progress{ui: ui, bars: map[string]*uiprogress.Bar{}}
}

func (p *progress) update(table string, done, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.started {
		p.ui.Start()
		p.started = true
	}
	bar, ok := p.bars[table]
	if !ok || done == 1 {
		// A table seen again starts a fresh pass.
		name := table
		bar = p.ui.AddBar(total).AppendCompleted().PrependElapsed()
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%-24s", name)
		})
		p.bars[table] = bar
	}
	bar.Set(done)
}

func (p *progress) stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		p.ui.Stop()
	}
}
