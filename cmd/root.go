package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// defaultConfigFile is looked up in the working directory when --config is
// not given, following the runner-file convention of problem archives.
const defaultConfigFile = "_config"

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "memrelax",
	Short: "Memristive relaxation solver for binary quadratic programs",
	Long: `Memrelax is a heuristic solver for bqpjson-encoded binary quadratic
programs. It relaxes the boolean variables into the unit box, integrates
memristive crossbar dynamics to a stationary point, and restarts from
random states until the wall-clock budget is spent.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := mergeConfigFile(cmd); err != nil {
			return err
		}

		// Setup logger
		var level slog.Level
		switch logLevel {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		default:
			level = slog.LevelInfo
		}

		opts := &slog.HandlerOptions{Level: level}
		handler := slog.NewJSONHandler(os.Stdout, opts)
		slog.SetDefault(slog.New(handler))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file whose values fill flags not set on the command line")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
}

// mergeConfigFile fills flags the user did not set from the config file.
// Explicit command-line flags always win. Without --config the file
// "_config" next to the problem data is merged when present.
func mergeConfigFile(cmd *cobra.Command) error {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err != nil {
			return nil
		}
		path = defaultConfigFile
	}

	v := viper.New()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		// Runner files carry no extension and hold JSON.
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var merr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if f.Changed || merr != nil {
			return
		}
		key, ok := configKey(v, f.Name)
		if !ok {
			return
		}
		if err := f.Value.Set(v.GetString(key)); err != nil {
			merr = fmt.Errorf("invalid config value for %s: %w", f.Name, err)
		}
	})
	return merr
}

// configKey resolves a flag name against the config, accepting both the
// flag spelling and the underscore spelling used by runner files.
func configKey(v *viper.Viper, name string) (string, bool) {
	if v.IsSet(name) {
		return name, true
	}
	underscored := strings.ReplaceAll(name, "-", "_")
	if v.IsSet(underscored) {
		return underscored, true
	}
	return "", false
}
