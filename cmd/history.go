package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"medallion/internal/state"
)

var (
	historyLimit int
	historyRun   string
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List past runs from the state store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		cfg, err := loadPipelineConfig(false)
		if err != nil {
			return err
		}
		if cfg.StatePath == "" {
			return fmt.Errorf("state.path is empty: run history is disabled")
		}
		st, err := state.Open(ctx, cfg.StatePath, Logger)
		if err != nil {
			return err
		}
		defer st.Close()

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleLight)

		if historyRun != "" {
			rows, err := st.RunTables(ctx, historyRun)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("run %s not found", historyRun)
			}
			t.SetTitle("run " + historyRun)
			t.AppendHeader(table.Row{"Table", "State", "Rows In", "Rows", "Dropped", "Duration", "Reason"})
			for _, r := range rows {
				t.AppendRow(table.Row{r.Table, r.State, r.RowsIn, r.Rows, r.Dropped, r.Duration, r.Reason})
			}
			t.Render()
			return nil
		}

		runs, err := st.ListRuns(ctx, historyLimit)
		if err != nil {
			return err
		}
		t.AppendHeader(table.Row{"Run", "Stage", "Namespace", "Status", "Started", "Duration", "Tables", "Rows"})
		for _, r := range runs {
			t.AppendRow(table.Row{
				r.ID, r.Stage, r.Namespace, r.Status,
				r.Started.In(cfg.Location).Format(time.DateTime),
				r.Duration().Round(time.Millisecond),
				fmt.Sprintf("%d/%d", r.TablesSucceeded, r.TablesAttempted),
				r.TotalRows,
			})
		}
		t.Render()
		fmt.Printf("(%d runs)\n", len(runs))
		return nil
	},
}

func init() {
	RootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "number of runs to show (0 for all)")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show the tables of one run")
}
