package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"medallion/internal/load"
)

var (
	dataDir  string
	tables   []string
	dryRun   bool
	parallel int
)

var bronzeCmd = &cobra.Command{
	Use:   "bronze",
	Short: "Ingest the CSV extract into bronze tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		dir := viper.GetString("bronze.data_dir")
		if dir == "" {
			return fmt.Errorf("--data-dir (or bronze.data_dir) is required")
		}
		s, err := p.bronzeStage(dir)
		if err != nil {
			return err
		}
		sum, err := p.run(ctx, s, time.Now().In(p.cfg.Location))
		if err != nil {
			return err
		}
		return sum.Err()
	},
}

var silverCmd = &cobra.Command{
	Use:   "silver",
	Short: "Clean and validate bronze tables into the silver model",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		s := p.silverStage(nil)
		if dryRun {
			fmt.Println("[SIMULATION] Dry-Run Mode Active: No data will be written.")
			s.loader = load.NewMemoryStore()
		}
		sum, err := p.run(ctx, s, time.Now().In(p.cfg.Location))
		if err != nil {
			return err
		}
		return sum.Err()
	},
}

var goldCmd = &cobra.Command{
	Use:   "gold",
	Short: "Aggregate silver tables into the gold marts",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		s := p.goldStage(nil)
		if dryRun {
			fmt.Println("[SIMULATION] Dry-Run Mode Active: No data will be written.")
			s.loader = load.NewMemoryStore()
		}
		sum, err := p.run(ctx, s, time.Now().In(p.cfg.Location))
		if err != nil {
			return err
		}
		return sum.Err()
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run bronze (when a data directory is set), silver and gold",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		start := time.Now()
		sums, err := p.runAll(ctx, viper.GetString("bronze.data_dir"))
		var total int64
		for _, s := range sums {
			total += s.TotalRows()
		}
		fmt.Printf("Pipeline Done! %d stage(s), %d rows, Time Elapsed: %s\n", len(sums), total, time.Since(start).Round(time.Millisecond))
		return err
	},
}

func init() {
	RootCmd.AddCommand(bronzeCmd, silverCmd, goldCmd, runCmd)

	for _, c := range []*cobra.Command{bronzeCmd, runCmd} {
		c.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the CSV extract")
	}
	for _, c := range []*cobra.Command{silverCmd, goldCmd, runCmd} {
		c.Flags().StringSliceVarP(&tables, "tables", "t", []string{}, "only these target tables (and what they need)")
		c.Flags().IntVar(&parallel, "parallel", 0, "units to run at once within a dependency level")
	}
	for _, c := range []*cobra.Command{silverCmd, goldCmd} {
		c.Flags().BoolVar(&dryRun, "dry-run", false, "validate without writing to the database")
	}
}

// bindStageFlags maps the flags set on the running command onto viper keys.
func bindStageFlags(cmd *cobra.Command) {
	if f := cmd.Flags().Lookup("data-dir"); f != nil && f.Changed {
		viper.Set("bronze.data_dir", dataDir)
	}
	if f := cmd.Flags().Lookup("tables"); f != nil && f.Changed {
		viper.Set("pipeline.tables", tables)
	}
	if f := cmd.Flags().Lookup("parallel"); f != nil && f.Changed {
		viper.Set("pipeline.parallel", parallel)
	}
}
