package cmd

import (
	"context"
	"io"

	"db-migrate/internal/dbconn"
	"db-migrate/internal/engine"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var sequencesCmd = &cobra.Command{
	Use:   "sequences",
	Short: "Reset target id sequences to max(id)+1",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := loadEndpoint(viper.GetViper(), "target")
		if err != nil {
			return err
		}
		return runSequences(cmd.Context(), target, Log, cmd.OutOrStdout())
	},
}

func init() {
	RootCmd.AddCommand(sequencesCmd)
}

func runSequences(ctx context.Context, ep dbconn.Endpoint, log logrus.FieldLogger, out io.Writer) error {
	target, err := openDatabase(ctx, ep)
	if err != nil {
		return err
	}
	defer target.DB.Close()

	m := engine.New(engine.Database{}, target, engine.DefaultSettings(), log)
	steps := m.SequenceSteps()

	var results []engine.Result
	for i := range steps {
		results = append(results, m.Run(ctx, steps[i:i+1])...)
		log.Infof("Reconciled %d/%d tables...", i+1, len(steps))
	}

	printSummary(out, results)
	if _, _, failed := engine.Summary(results); failed > 0 {
		log.Warnf("⚠ %d sequence resets failed", failed)
	}
	return nil
}
