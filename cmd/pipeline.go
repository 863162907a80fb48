package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"
	"github.com/jedib0t/go-pretty/v6/table"

	"medallion/internal/bronze"
	"medallion/internal/contract"
	"medallion/internal/engine"
	"medallion/internal/extract"
	"medallion/internal/gold"
	"medallion/internal/load"
	"medallion/internal/silver"
	"medallion/internal/state"
)

// pipeline carries what every stage command needs for one invocation.
type pipeline struct {
	cfg      PipelineConfig
	backend  *backend
	history  *state.Store
	out      io.Writer
	progress bool
}

func newPipeline(ctx context.Context) (*pipeline, error) {
	cfg, err := loadPipelineConfig(true)
	if err != nil {
		return nil, err
	}
	b, err := openBackend(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	p := &pipeline{cfg: cfg, backend: b, out: os.Stdout, progress: true}
	if cfg.StatePath != "" {
		if p.history, err = state.Open(ctx, cfg.StatePath, Logger); err != nil {
			Logger.Warn("run history disabled", "path", cfg.StatePath, "err", err)
			p.history = nil
		}
	}
	return p, nil
}

func (p *pipeline) Close() {
	if p.history != nil {
		p.history.Close()
	}
	p.backend.Close()
}

// stage is one engine run: its units, where they read from and where they
// write to.
type stage struct {
	name      string
	namespace string
	audit     string
	units     []engine.Unit
	extractor extract.Extractor
	loader    load.Loader
	blocked   []string
}

func (p *pipeline) bronzeStage(dataDir string) (stage, error) {
	missing, err := bronze.CheckDataDir(dataDir)
	if err != nil {
		return stage{}, err
	}
	if len(missing) > 0 {
		Logger.Warn("csv files missing", "dir", dataDir, "files", strings.Join(missing, ", "))
	}
	return stage{
		name:      "bronze",
		namespace: p.cfg.Namespaces.Bronze,
		units:     bronze.Units(),
		extractor: extract.NewCSVExtractor(dataDir, bronze.Files),
		loader:    p.backend.loader(Logger),
	}, nil
}

func (p *pipeline) silverStage(blocked []string) stage {
	names := p.cfg.Tables
	if len(names) > 0 {
		// selected gold tables pull in the silver tables they read
		names = append(slices.Clone(names), sourceTables(filterUnits(gold.Units(p.cfg.Namespaces.Silver), names))...)
	}
	return stage{
		name:      "silver",
		namespace: p.cfg.Namespaces.Silver,
		audit:     contract.SilverAudit,
		units:     filterUnits(silver.Units(p.cfg.Namespaces.Bronze), names),
		extractor: p.backend.extractor(),
		loader:    p.backend.loader(Logger),
		blocked:   blocked,
	}
}

func (p *pipeline) goldStage(blocked []string) stage {
	return stage{
		name:      "gold",
		namespace: p.cfg.Namespaces.Gold,
		audit:     contract.GoldAudit,
		units:     filterUnits(gold.Units(p.cfg.Namespaces.Silver), p.cfg.Tables),
		extractor: p.backend.extractor(),
		loader:    p.backend.loader(Logger),
		blocked:   blocked,
	}
}

// run executes one stage, prints its report and records it in the history.
func (p *pipeline) run(ctx context.Context, s stage, at time.Time) (*engine.Summary, error) {
	if len(s.units) == 0 {
		return nil, fmt.Errorf("%s: no tables selected", s.name)
	}
	e := engine.New(engine.Config{
		Stage:       s.name,
		Namespace:   s.namespace,
		AuditColumn: s.audit,
		ProcessedAt: at,
		SampleSize:  p.cfg.SampleSize,
		Parallel:    p.cfg.Parallel,
		Blocked:     s.blocked,
	}, s.extractor, s.loader, Logger)

	var bar *uiprogress.Bar
	var progress *uiprogress.Progress
	if p.progress {
		progress = uiprogress.New()
		progress.Start()
		bar = progress.AddBar(len(s.units)).AppendCompleted().PrependElapsed()
		name := s.name
		bar.PrependFunc(func(b *uiprogress.Bar) string {
			return fmt.Sprintf("%-7s", name)
		})
		e.OnProgress = func(engine.TableResult) { bar.Incr() }
	}

	sum, err := e.Run(ctx, s.units)
	if progress != nil {
		progress.Stop()
	}
	if sum != nil && sum.Attempted() > 0 {
		p.report(ctx, sum)
	}
	return sum, err
}

// report prints a summary and records it. An aborted run still reports the
// tables it finished.
func (p *pipeline) report(ctx context.Context, sum *engine.Summary) {
	printSummary(p.out, sum)
	if p.history == nil {
		return
	}
	// the run context may be the reason the run aborted
	ctx = context.WithoutCancel(ctx)
	if err := p.history.RecordRun(ctx, sum); err != nil {
		Logger.Warn("failed to record run", "run_id", sum.RunID, "err", err)
	}
}

// runAll runs Bronze (when a data directory is given), Silver and Gold with
// one processing instant. Tables that fail block their readers downstream.
func (p *pipeline) runAll(ctx context.Context, dataDir string) ([]*engine.Summary, error) {
	at := time.Now().In(p.cfg.Location)
	var sums []*engine.Summary
	var blocked []string

	run := func(s stage) (*engine.Summary, error) {
		if len(s.units) == 0 {
			Logger.Info("no tables selected, stage skipped", "stage", s.name, "tables", strings.Join(p.cfg.Tables, ","))
			return nil, nil
		}
		sum, err := p.run(ctx, s, at)
		if sum != nil {
			sums = append(sums, sum)
		}
		return sum, err
	}

	if dataDir != "" {
		s, err := p.bronzeStage(dataDir)
		if err != nil {
			return nil, err
		}
		sum, err := run(s)
		if err != nil {
			return sums, err
		}
		blocked = failedTables(sum)
	}

	sum, err := run(p.silverStage(blocked))
	if err != nil {
		return sums, err
	}
	if _, err := run(p.goldStage(failedTables(sum))); err != nil {
		return sums, err
	}

	var errs []error
	for _, s := range sums {
		if err := s.Err(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Stage, err))
		}
	}
	return sums, errors.Join(errs...)
}

func failedTables(sum *engine.Summary) []string {
	if sum == nil {
		return nil
	}
	var out []string
	for _, r := range sum.Failed() {
		out = append(out, r.Table)
	}
	return out
}

// sourceTables lists the tables units extract, deduplicated.
func sourceTables(units []engine.Unit) []string {
	seen := make(map[string]bool)
	var out []string
	for _, u := range units {
		for _, src := range u.Sources {
			if !seen[src.Table] {
				seen[src.Table] = true
				out = append(out, src.Table)
			}
		}
	}
	return out
}

// filterUnits keeps the named targets plus every unit they need.
func filterUnits(units []engine.Unit, names []string) []engine.Unit {
	if len(names) == 0 {
		return units
	}
	byTarget := make(map[string]engine.Unit, len(units))
	for _, u := range units {
		byTarget[strings.ToLower(u.Target)] = u
	}
	keep := make(map[string]bool)
	var visit func(name string)
	visit = func(name string) {
		name = strings.ToLower(name)
		u, ok := byTarget[name]
		if !ok || keep[name] {
			return
		}
		keep[name] = true
		for _, n := range u.Needs {
			visit(n)
		}
	}
	for _, n := range names {
		visit(n)
	}
	var out []engine.Unit
	for _, u := range units {
		if keep[strings.ToLower(u.Target)] {
			out = append(out, u)
		}
	}
	return out
}

func printSummary(w io.Writer, sum *engine.Summary) {
	fmt.Fprintf(w, "\n📊 %s Summary Report (Dependency Order) run=%s\n", strings.ToUpper(sum.Stage), sum.RunID)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"#", "Table", "State", "Rows In", "Rows Out", "Dropped", "Duration"})
	for i, r := range sum.Tables {
		t.AppendRow(table.Row{
			fmt.Sprintf("%02d/%02d", i+1, len(sum.Tables)),
			r.Table, r.State, r.Stats.RowsIn, r.Rows, r.Stats.TotalDropped(),
			r.Duration.Round(time.Millisecond),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", sum.TotalRows(), "", sum.Duration().Round(time.Millisecond)})
	t.Render()

	for _, r := range sum.Failed() {
		fmt.Fprintf(w, "[!] %-32s : %s\n", r.Table, r.Reason)
	}
	if sum.Aborted != nil {
		fmt.Fprintf(w, "[x] run aborted: %v\n", sum.Aborted)
	}
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Tables: %d/%d loaded, Total Rows: %d\n", sum.Succeeded(), sum.Attempted(), sum.TotalRows())
}
