package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/engine"
	"medallion/internal/load"
)

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Copy silver and gold tables to Parquet files",
	Long: `Copies every silver and gold table to <out>/<namespace>/<table>.parquet.
Each table is validated against its contract again on the way out.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		p, err := newPipeline(ctx)
		if err != nil {
			return err
		}
		defer p.Close()

		store := load.NewParquetStore(exportOut)
		at := time.Now().In(p.cfg.Location)
		reg := contract.Default()

		var failed error
		for _, ns := range []struct {
			namespace string
			tables    []string
		}{
			{p.cfg.Namespaces.Silver, []string{contract.SilverPatients, contract.SilverPayers, contract.SilverEncounters, contract.SilverClaims, contract.SilverTransactions}},
			{p.cfg.Namespaces.Gold, []string{contract.GoldPatientMonthly, contract.GoldPayerPerformance, contract.GoldEncounterSummary, contract.GoldProcedures, contract.GoldProviderActivity}},
		} {
			s := stage{
				name:      "export",
				namespace: ns.namespace,
				units:     copyUnits(reg, ns.namespace, ns.tables),
				extractor: p.backend.extractor(),
				loader:    store,
			}
			sum, err := p.run(ctx, s, at)
			if err != nil {
				return err
			}
			if err := sum.Err(); err != nil && failed == nil {
				failed = err
			}
		}
		fmt.Printf("Parquet files written under %s\n", exportOut)
		return failed
	},
}

func init() {
	RootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportOut, "out", "export", "output directory")
}

// copyUnits reads each table from namespace unchanged.
func copyUnits(reg *contract.Registry, namespace string, tables []string) []engine.Unit {
	units := make([]engine.Unit, 0, len(tables))
	for _, t := range tables {
		table := t
		var c *contract.Contract
		if found, ok := reg.Lookup(table); ok {
			c = &found
		}
		units = append(units, engine.Unit{
			Target:   table,
			Sources:  []engine.Source{{Namespace: namespace, Table: table}},
			Contract: c,
			Transform: func(ctx context.Context, in engine.Input) (*dataset.Dataset, engine.Stats, error) {
				ds, err := in.Source(table)
				if err != nil {
					return nil, engine.Stats{}, err
				}
				stats := engine.NewStats(ds.Len())
				stats.RowsOut = ds.Len()
				return ds, stats, nil
			},
		})
	}
	return units
}
