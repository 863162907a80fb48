package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"medallion/internal/bronze"
)

var (
	watchDebounce time.Duration
	watchInitial  bool
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run the pipeline when CSV files in the data directory change",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()
		p.progress = false

		dir := p.cfg.DataDir
		if dir == "" {
			return fmt.Errorf("--data-dir (or bronze.data_dir) is required")
		}
		if _, err := bronze.CheckDataDir(dir); err != nil {
			return err
		}

		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			return fmt.Errorf("failed to create watcher: %w", err)
		}
		defer watcher.Close()
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}

		watched := make(map[string]bool, len(bronze.Files))
		for _, f := range bronze.Files {
			watched[f] = true
		}

		var mu sync.Mutex
		runOnce := func(trigger string) {
			mu.Lock()
			defer mu.Unlock()
			if ctx.Err() != nil {
				return
			}
			Logger.Info("pipeline triggered", "by", trigger)
			if _, err := p.runAll(ctx, dir); err != nil {
				Logger.Error("pipeline failed", "err", err)
			}
		}
		if watchInitial {
			runOnce("startup")
		}

		Logger.Info("watching for changes", "dir", dir, "debounce", watchDebounce)
		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				if timer != nil {
					timer.Stop()
				}
				// wait for a run in progress
				mu.Lock()
				defer mu.Unlock()
				return nil
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
					continue
				}
				name := filepath.Base(event.Name)
				if !watched[name] {
					continue
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() { runOnce(name) })
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				Logger.Warn("watcher error", "err", err)
			}
		}
	},
}

func init() {
	RootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVar(&dataDir, "data-dir", "", "directory holding the CSV extract")
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 2*time.Second, "quiet period before a run")
	watchCmd.Flags().BoolVar(&watchInitial, "initial", true, "run once at startup")
}

