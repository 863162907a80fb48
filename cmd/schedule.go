package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var scheduleCron string

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the full pipeline on a cron schedule until interrupted",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if cmd.Flags().Changed("cron") {
			viper.Set("schedule.cron", scheduleCron)
		}
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()
		p.progress = false

		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger)))
		_, err = c.AddFunc(p.cfg.Cron, func() {
			Logger.Info("scheduled run started")
			if _, err := p.runAll(ctx, p.cfg.DataDir); err != nil {
				Logger.Error("scheduled run failed", "err", err)
			}
		})
		if err != nil {
			return fmt.Errorf("invalid cron expression %q: %w", p.cfg.Cron, err)
		}
		c.Start()
		Logger.Info("scheduler started", "cron", p.cfg.Cron)

		<-ctx.Done()
		Logger.Info("scheduler stopping, waiting for the running pipeline")
		<-c.Stop().Done()
		return nil
	},
}

func init() {
	RootCmd.AddCommand(scheduleCmd)
	scheduleCmd.Flags().StringVar(&scheduleCron, "cron", "", `cron expression, e.g. "0 2 * * *" (default schedule.cron)`)
	scheduleCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the CSV extract")
}

