package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"medallion/internal/contract"
	"medallion/internal/schema"
)

var contractsLive bool

var contractsCmd = &cobra.Command{
	Use:   "contracts",
	Short: "Print the silver and gold contracts",
	RunE: func(cmd *cobra.Command, args []string) error {
		reg := contract.Default()

		// live maps "namespace.table" to the analyzed table.
		var live map[string]*schema.Table
		if contractsLive {
			cfg, err := loadPipelineConfig(true)
			if err != nil {
				return err
			}
			b, err := openBackend(cmd.Context(), cfg.DB)
			if err != nil {
				return err
			}
			defer b.Close()
			live = make(map[string]*schema.Table)
			for _, ns := range []string{cfg.Namespaces.Silver, cfg.Namespaces.Gold} {
				tables, err := schema.Analyze(cmd.Context(), b.db, b.dialect, ns)
				if err != nil {
					return err
				}
				for _, t := range tables {
					live[strings.ToLower(t.Name)] = t
				}
			}
		}

		for _, name := range reg.Tables() {
			c, _ := reg.Lookup(name)
			var found *schema.Table
			if live != nil {
				found = live[strings.ToLower(name)]
				if found == nil {
					found = liveByPrefix(live, name)
				}
			}
			printContract(c, live != nil, found)
		}
		return nil
	},
}

func init() {
	RootCmd.AddCommand(contractsCmd)
	contractsCmd.Flags().BoolVar(&contractsLive, "live", false, "compare with the tables in the database")
}

// liveByPrefix finds a table stored under a namespace prefix, as on SQLite.
func liveByPrefix(live map[string]*schema.Table, name string) *schema.Table {
	for k, t := range live {
		if strings.HasSuffix(k, "_"+strings.ToLower(name)) {
			return t
		}
	}
	return nil
}

func printContract(c contract.Contract, compare bool, live *schema.Table) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetStyle(table.StyleLight)
	t.SetTitle(c.Table)
	header := table.Row{"Field", "Type", "Null", "Unique", "Min", "Max", "Rules"}
	if compare {
		header = append(header, "Database")
	}
	t.AppendHeader(header)

	for _, f := range c.Fields() {
		row := table.Row{f.Name, f.Type, yes(f.Nullable), yes(f.Unique), bound(f.Min), bound(f.Max), rules(f)}
		if compare {
			switch {
			case live == nil:
				row = append(row, "no table")
			case live.Column(f.Name) == nil:
				row = append(row, "missing")
			default:
				row = append(row, live.Column(f.Name).DataType)
			}
		}
		t.AppendRow(row)
	}
	t.Render()
	fmt.Println()
}

func yes(b bool) string {
	if b {
		return "yes"
	}
	return ""
}

func bound(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	return d.String()
}

func rules(f contract.Field) string {
	var parts []string
	if f.Pattern != "" {
		parts = append(parts, "pattern "+f.Pattern)
	}
	if len(f.OneOf) > 0 {
		parts = append(parts, "one of "+strings.Join(f.OneOf, "|"))
	}
	if f.NotBefore != "" {
		parts = append(parts, ">= "+f.NotBefore)
	}
	if f.Coerce {
		parts = append(parts, "coerce")
	}
	return strings.Join(parts, ", ")
}
