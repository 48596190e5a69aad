package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"db-migrate/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	envFile   string
	logLevel  string
	logFormat string

	// Log is set up before any subcommand runs.
	Log *logrus.Logger
)

var RootCmd = &cobra.Command{
	Use:   "db-migrate",
	Short: "Copy users, partners, companies and groups between databases",
	Long: `
  ____  ____    __  __ ___ ____ ____      _  _____ _____
 |  _ \| __ )  |  \/  |_ _/ ___|  _ \    / \|_   _| ____|
 | | | |  _ \  | |\/| || | |  _| |_) |  / _ \ | | |  _|
 | |_| | |_) | | |  | || | |_| |  _ <  / ___ \| | | |___
 |____/|____/  |_|  |_|___\____|_| \_\/_/   \_\_| |_____|

DB MIGRATE 🦅 - Relational Data Migrator
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger, err := logging.New(viper.GetString("log.level"), viper.GetString("log.format"), os.Stderr)
		if err != nil {
			return err
		}
		Log = logger
		if used := viper.ConfigFileUsed(); used != "" {
			Log.WithField("file", used).Debug("using config file")
		}
		return nil
	},
}

// Execute runs the root command. SIGINT and SIGTERM cancel the run context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := RootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./db-migrate.yaml)")
	RootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file loaded before the config")
	RootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	RootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))
	viper.BindPFlag("log.format", RootCmd.PersistentFlags().Lookup("log-format"))

	configure(viper.GetViper())
}

// configure registers defaults and environment lookup on v. Every key gets
// a default so that Unmarshal sees values coming only from the environment.
func configure(v *viper.Viper) {
	v.SetEnvPrefix("DBMIGRATE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, side := range []string{"source", "target"} {
		for _, key := range []string{"driver", "dsn", "host", "user", "password", "database", "schema"} {
			v.SetDefault(side+"."+key, "")
		}
		v.SetDefault(side+".port", 0)
	}
	v.SetDefault("source.name", "source")
	v.SetDefault("target.name", "target")

	def := defaultSettings()
	v.SetDefault("settings.batch_size", def.BatchSize)
	v.SetDefault("settings.default_company_id", def.DefaultCompanyID)
	v.SetDefault("settings.system_user_max_id", def.SystemUserMaxID)
	v.SetDefault("settings.group_module", def.GroupModule)
	v.SetDefault("settings.group_name", def.GroupName)
}

// initConfig reads in the dotenv file, the config file and ENV variables.
func initConfig() {
	// Credentials usually live in .env; a missing file is fine.
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠ failed to load %s: %v\n", envFile, err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 1. Executable Directory (Priority 1)
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		// 2. Current Directory (Priority 2)
		viper.AddConfigPath(".")

		viper.SetConfigName("db-migrate")
		viper.SetConfigType("yaml")
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			fmt.Fprintf(os.Stderr, "⚠ failed to read config: %v\n", err)
		}
	}
}
