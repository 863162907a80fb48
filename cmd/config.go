package cmd

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type DBConfig struct {
	Name   string `mapstructure:"name"`
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	Active bool   `mapstructure:"active"`
}

// Namespaces names where each stage writes.
type Namespaces struct {
	Bronze string `mapstructure:"bronze"`
	Silver string `mapstructure:"silver"`
	Gold   string `mapstructure:"gold"`
}

// PipelineConfig is read once per command and passed down by value.
type PipelineConfig struct {
	DB         DBConfig
	Namespaces Namespaces
	Parallel   int
	SampleSize int
	Tables     []string
	Location   *time.Location
	DataDir    string
	StatePath  string
	Cron       string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("pipeline.namespaces.bronze", "bronze")
	v.SetDefault("pipeline.namespaces.silver", "silver")
	v.SetDefault("pipeline.namespaces.gold", "gold")
	v.SetDefault("pipeline.parallel", 1)
	v.SetDefault("pipeline.sample_size", 5)
	v.SetDefault("pipeline.timezone", "UTC")
	v.SetDefault("state.path", "medallion-state.db")
	v.SetDefault("schedule.cron", "0 2 * * *")
}

// GetActiveDBConfig returns the currently active database configuration.
func GetActiveDBConfig() (*DBConfig, error) {
	var configs []DBConfig

	if err := viper.UnmarshalKey("databases", &configs); err != nil {
		return nil, fmt.Errorf("failed to parse databases config: %w", err)
	}

	var active *DBConfig
	count := 0
	for i := range configs {
		if configs[i].Active {
			active = &configs[i]
			count++
		}
	}

	if count == 0 {
		return nil, fmt.Errorf("no active database found in config (set active: true)")
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple active databases found (only one can be active)")
	}
	return active, nil
}

// resolveDB picks the database: --dsn/--driver (or database.*) first, then
// the active databases entry, then the PG_* variables.
func resolveDB() (DBConfig, error) {
	if d := viper.GetString("database.dsn"); d != "" {
		drv := viper.GetString("database.driver")
		if drv == "" {
			drv = detectDriver(d)
		}
		return DBConfig{Name: "flags", Driver: drv, DSN: d, Active: true}, nil
	}
	if active, err := GetActiveDBConfig(); err == nil {
		if active.Driver == "" {
			active.Driver = detectDriver(active.DSN)
		}
		return *active, nil
	}
	if d, ok := dsnFromPGEnv(); ok {
		return DBConfig{Name: "PG_*", Driver: "postgres", DSN: d, Active: true}, nil
	}
	return DBConfig{}, fmt.Errorf("no database configured: use --dsn, a databases entry with active: true, or PG_USER/PG_PASS/PG_HOST/PG_PORT/PG_DB")
}

func detectDriver(dsn string) string {
	switch {
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"), strings.Contains(dsn, "sslmode"):
		return "postgres"
	case strings.HasPrefix(dsn, "sqlserver://"):
		return "sqlserver"
	case strings.HasPrefix(dsn, "oracle://"):
		return "oracle"
	case strings.HasSuffix(dsn, ".duckdb"):
		return "duckdb"
	case strings.HasPrefix(dsn, "file:"), strings.HasSuffix(dsn, ".db"), strings.HasSuffix(dsn, ".sqlite"), dsn == ":memory:":
		return "sqlite"
	default:
		return "mysql"
	}
}

func dsnFromPGEnv() (string, bool) {
	user, host, db := os.Getenv("PG_USER"), os.Getenv("PG_HOST"), os.Getenv("PG_DB")
	if user == "" || host == "" || db == "" {
		return "", false
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, os.Getenv("PG_PASS")),
		Host:     host + ":" + port,
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String(), true
}

// loadPipelineConfig snapshots viper. needDB is false for commands that never
// touch the database.
func loadPipelineConfig(needDB bool) (PipelineConfig, error) {
	cfg := PipelineConfig{
		Parallel:   viper.GetInt("pipeline.parallel"),
		SampleSize: viper.GetInt("pipeline.sample_size"),
		Tables:     viper.GetStringSlice("pipeline.tables"),
		DataDir:    viper.GetString("bronze.data_dir"),
		StatePath:  viper.GetString("state.path"),
		Cron:       viper.GetString("schedule.cron"),
	}
	if err := viper.UnmarshalKey("pipeline.namespaces", &cfg.Namespaces); err != nil {
		return cfg, fmt.Errorf("pipeline.namespaces: %w", err)
	}
	loc, err := time.LoadLocation(viper.GetString("pipeline.timezone"))
	if err != nil {
		return cfg, fmt.Errorf("pipeline.timezone: %w", err)
	}
	cfg.Location = loc
	if cfg.Parallel < 1 {
		cfg.Parallel = 1
	}
	if needDB {
		if cfg.DB, err = resolveDB(); err != nil {
			return cfg, err
		}
	}
	return cfg, nil
}
