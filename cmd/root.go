package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile   string
	dsn       string
	driver    string
	logLevel  string
	logFormat string

	// Logger is configured from --log-level and --log-format before any
	// subcommand runs.
	Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
)

var RootCmd = &cobra.Command{
	Use:   "medallion",
	Short: "Bronze, Silver and Gold batch pipeline for claims data",
	Long: `
  __  __ _____ ____    _    _     _     ___ ___  _   _ 
 |  \/  | ____|  _ \  / \  | |   | |   |_ _/ _ \| \ | |
 | |\/| |  _| | | | |/ _ \ | |   | |    | | | | |  \| |
 | |  | | |___| |_| / ___ \| |___| |___ | | |_| | |\  |
 |_|  |_|_____|____/_/   \_\_____|_____|___\___/|_| \_|

MEDALLION - CSV to Bronze, Silver and Gold, validated at every step
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		l, err := newLogger(os.Stderr, viper.GetString("log.level"), viper.GetString("log.format"))
		if err != nil {
			return err
		}
		Logger = l
		slog.SetDefault(l)
		bindStageFlags(cmd)
		return nil
	},
}

func Execute() {
	if err := RootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./medallion.yaml)")
	flags.StringVar(&dsn, "dsn", "", "Database Source Name (DSN)")
	flags.StringVar(&driver, "driver", "", "database driver: postgres, pgx, mysql, sqlserver, oracle, sqlite, duckdb")
	flags.StringVar(&logLevel, "log-level", "info", "debug, info, warn or error")
	flags.StringVar(&logFormat, "log-format", "text", "text or json")

	viper.BindPFlag("database.dsn", flags.Lookup("dsn"))
	viper.BindPFlag("database.driver", flags.Lookup("driver"))
	viper.BindPFlag("log.level", flags.Lookup("log-level"))
	viper.BindPFlag("log.format", flags.Lookup("log-format"))

	setDefaults(viper.GetViper())
}

// initConfig reads .env, the config file and MEDALLION_ environment variables.
func initConfig() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(os.Stderr, "Warning: .env:", err)
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		if ex, err := os.Executable(); err == nil {
			viper.AddConfigPath(filepath.Dir(ex))
		}
		viper.AddConfigPath(".")
		viper.SetConfigName("medallion")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("MEDALLION")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func newLogger(w io.Writer, level, format string) (*slog.Logger, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, fmt.Errorf("invalid log level %q", level)
	}
	opts := &slog.HandlerOptions{Level: lvl}
	switch strings.ToLower(format) {
	case "", "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log format %q (text or json)", format)
	}
}
