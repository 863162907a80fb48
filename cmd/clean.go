package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"medallion/internal/bronze"
	"medallion/internal/engine"
	"medallion/internal/extract"
	"medallion/internal/gold"
	"medallion/internal/load"
	"medallion/internal/silver"
)

var cleanStage string

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Drop the tables of a stage (bronze, silver, gold or all)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadPipelineConfig(true)
		if err != nil {
			return err
		}
		b, err := openBackend(ctx, cfg.DB)
		if err != nil {
			return err
		}
		defer b.Close()

		type target struct {
			namespace string
			units     []engine.Unit
		}
		var targets []target
		switch cleanStage {
		case "gold":
			targets = []target{{cfg.Namespaces.Gold, gold.Units(cfg.Namespaces.Silver)}}
		case "silver":
			targets = []target{{cfg.Namespaces.Silver, silver.Units(cfg.Namespaces.Bronze)}}
		case "bronze":
			targets = []target{{cfg.Namespaces.Bronze, bronze.Units()}}
		case "all":
			targets = []target{
				{cfg.Namespaces.Gold, gold.Units(cfg.Namespaces.Silver)},
				{cfg.Namespaces.Silver, silver.Units(cfg.Namespaces.Bronze)},
				{cfg.Namespaces.Bronze, bronze.Units()},
			}
		default:
			return fmt.Errorf("unknown stage %q (bronze, silver, gold or all)", cleanStage)
		}

		for _, t := range targets {
			if err := cleanNamespace(ctx, b, t.namespace, t.units); err != nil {
				return err
			}
		}
		Logger.Info("database cleaned", "stage", cleanStage)
		return nil
	},
}

func init() {
	RootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().StringVar(&cleanStage, "stage", "all", "bronze, silver, gold or all")
}

// cleanNamespace drops the units' tables in reverse dependency order, along
// with any staging tables left behind by an interrupted load.
func cleanNamespace(ctx context.Context, b *backend, namespace string, units []engine.Unit) error {
	levels, err := engine.Plan(units, namespace)
	if err != nil {
		return err
	}
	var ordered []string
	for _, level := range levels {
		for _, u := range level {
			ordered = append(ordered, u.Target)
		}
	}

	count, total := 0, len(ordered)
	for i := len(ordered) - 1; i >= 0; i-- {
		count++
		for _, name := range []string{ordered[i], ordered[i] + load.StagingSuffix} {
			exists, err := extract.TableExists(ctx, b.db, b.dialect, namespace, name)
			if err != nil {
				return fmt.Errorf("check %s: %w", name, err)
			}
			if !exists {
				continue
			}
			if _, err := b.db.ExecContext(ctx, b.dialect.DropTableQuery(namespace, name)); err != nil {
				Logger.Warn("failed to drop table (continuing...)", "namespace", namespace, "table", name, "err", err)
			}
		}
		if count%5 == 0 || count == total {
			Logger.Info(fmt.Sprintf("Cleaned %d/%d tables...", count, total), "namespace", namespace)
		}
	}
	return nil
}
