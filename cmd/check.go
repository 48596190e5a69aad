package cmd

import (
	"context"
	"fmt"
	"io"

	"db-migrate/internal/dbconn"
	"db-migrate/internal/schema"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Compare source and target schemas against the migrated tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		v := viper.GetViper()
		source, err := loadEndpoint(v, "source")
		if err != nil {
			return err
		}
		target, err := loadEndpoint(v, "target")
		if err != nil {
			return err
		}
		problems, err := runCheck(cmd.Context(), source, target, Log, cmd.OutOrStdout())
		if err != nil {
			return err
		}
		if problems > 0 {
			return fmt.Errorf("%d schema problems found", problems)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(checkCmd)
}

func catalogTables() []string {
	names := make([]string, 0, len(schema.Catalog))
	for _, s := range schema.Catalog {
		names = append(names, s.Name)
	}
	return names
}

// runCheck reports catalog columns missing on either side and prints the
// target dependency order. It returns the number of problems found.
func runCheck(ctx context.Context, source, target dbconn.Endpoint, log logrus.FieldLogger, out io.Writer) (int, error) {
	problems := 0
	var targetTables []*schema.Table

	for i, ep := range []dbconn.Endpoint{source, target} {
		db, err := openDatabase(ctx, ep)
		if err != nil {
			return problems, err
		}
		log.WithField("endpoint", ep.Name).Info("Analyzing schema...")
		tables, err := schema.Analyze(ctx, db.DB, db.Dialect, ep.Schema, catalogTables())
		db.DB.Close()
		if err != nil {
			return problems, fmt.Errorf("%s: %w", ep.Name, err)
		}

		fmt.Fprintf(out, "🔍 %s (%s)\n", ep.Name, db.Dialect.Name())
		for _, spec := range schema.Catalog {
			missing := schema.MissingColumns(spec, schema.Find(tables, spec.Name))
			switch {
			case len(missing) == len(spec.Columns):
				fmt.Fprintf(out, "[!] %-24s : table missing\n", spec.Name)
				problems++
			case len(missing) > 0:
				fmt.Fprintf(out, "[!] %-24s : missing columns %v\n", spec.Name, missing)
				problems++
			default:
				fmt.Fprintf(out, "[✓] %-24s : %d columns\n", spec.Name, len(spec.Columns))
			}
		}
		if i == 1 {
			targetTables = tables
		}
	}

	fmt.Fprintln(out, "\n🔗 Target dependency order:")
	for i, t := range targetTables {
		fmt.Fprintf(out, "[%02d] %s (Dependencies: %v)\n", i+1, t.Name, t.Dependencies)
	}
	return problems, nil
}
