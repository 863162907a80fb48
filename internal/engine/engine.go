// Package engine runs units of work (extract, transform, validate, load)
// in dependency order and reports a per-table summary.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/extract"
	"medallion/internal/load"
	"medallion/internal/schema"
	"medallion/internal/validate"
)

// Config is fixed for the lifetime of an Engine.
type Config struct {
	Stage string
	// Namespace receives every target table.
	Namespace string
	// AuditColumn, when set, is appended to every output with ProcessedAt.
	AuditColumn string
	ProcessedAt time.Time
	SampleSize  int
	// Parallel > 1 runs independent units of a level concurrently.
	Parallel int
	// Blocked lists upstream tables that failed earlier; units reading them
	// fail without running.
	Blocked []string
}

type Engine struct {
	cfg       Config
	extractor extract.Extractor
	loader    load.Loader
	logger    *slog.Logger

	// OnProgress is called once per finished unit, never concurrently.
	OnProgress func(TableResult)
}

func New(cfg Config, ex extract.Extractor, ld load.Loader, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ProcessedAt.IsZero() {
		cfg.ProcessedAt = time.Now().UTC()
	}
	if cfg.SampleSize <= 0 {
		cfg.SampleSize = validate.DefaultSampleSize
	}
	cfg.Blocked = append([]string(nil), cfg.Blocked...)
	return &Engine{cfg: cfg, extractor: ex, loader: ld, logger: logger}
}

func (e *Engine) Config() Config { return e.cfg }

// run holds the mutable state of one Run call.
type run struct {
	*Engine
	units   map[string]Unit
	targets map[string]string // namespace.table -> unit producing it
	blocked map[string]bool

	mu      sync.Mutex
	outputs map[string]*dataset.Dataset
	failed  map[string]bool

	cacheMu sync.Mutex
	cache   map[string]*dataset.Dataset
	flight  singleflight.Group

	progressMu sync.Mutex
}

// Plan orders units into dependency levels without running them.
func Plan(units []Unit, namespace string) ([][]Unit, error) {
	byName := make(map[string]Unit, len(units))
	targets := make(map[string]string, len(units))
	for _, u := range units {
		if u.Transform == nil {
			return nil, fmt.Errorf("unit %s has no transform", u.name())
		}
		if _, dup := byName[u.name()]; dup {
			return nil, fmt.Errorf("duplicate unit %s", u.name())
		}
		byName[u.name()] = u
		targets[Source{namespace, u.Target}.String()] = u.name()
	}

	nodes := make([]*schema.Table, len(units))
	for i, u := range units {
		deps := append([]string(nil), u.Needs...)
		for _, s := range u.Sources {
			if producer, ok := targets[s.String()]; ok && producer != u.name() {
				deps = append(deps, producer)
			}
		}
		nodes[i] = &schema.Table{Name: u.name(), Dependencies: deps}
	}
	levels, err := schema.Levels(nodes)
	if err != nil {
		return nil, err
	}
	out := make([][]Unit, len(levels))
	for i, level := range levels {
		for _, n := range level {
			out[i] = append(out[i], byName[n.Name])
		}
	}
	return out, nil
}

// Run executes units in dependency order. A failing unit does not stop the
// others; the returned error is non-nil only for fatal conditions. Check
// Summary.Err for table failures.
func (e *Engine) Run(ctx context.Context, units []Unit) (*Summary, error) {
	sum := &Summary{
		RunID:     uuid.NewString(),
		Stage:     e.cfg.Stage,
		Namespace: e.cfg.Namespace,
		Started:   time.Now().UTC(),
	}
	defer func() { sum.Finished = time.Now().UTC() }()

	levels, err := Plan(units, e.cfg.Namespace)
	if err != nil {
		sum.Aborted = &FatalError{Err: fmt.Errorf("plan %s: %w", e.cfg.Stage, err)}
		return sum, sum.Aborted
	}

	r := &run{
		Engine:  e,
		units:   make(map[string]Unit, len(units)),
		targets: make(map[string]string, len(units)),
		blocked: make(map[string]bool, len(e.cfg.Blocked)),
		outputs: make(map[string]*dataset.Dataset),
		failed:  make(map[string]bool),
		cache:   make(map[string]*dataset.Dataset),
	}
	for _, u := range units {
		r.units[u.name()] = u
		r.targets[Source{e.cfg.Namespace, u.Target}.String()] = u.name()
	}
	for _, b := range e.cfg.Blocked {
		r.blocked[b] = true
	}

	index := make(map[string]int)
	for _, level := range levels {
		for _, u := range level {
			index[u.name()] = len(sum.Tables)
			sum.Tables = append(sum.Tables, TableResult{Unit: u.name(), Table: u.Target, State: StatePending})
		}
	}

	e.logger.Info("run started", "run_id", sum.RunID, "stage", e.cfg.Stage, "namespace", e.cfg.Namespace, "units", len(units))

	limit := e.cfg.Parallel
	if limit < 1 {
		limit = 1
	}
	for _, level := range levels {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, u := range level {
			g.Go(func() error {
				res, err := r.runUnit(gctx, u)
				r.mu.Lock()
				sum.Tables[index[u.name()]] = res
				r.mu.Unlock()
				if err != nil {
					return err
				}
				r.report(res)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			e.logger.Error("run aborted", "run_id", sum.RunID, "stage", e.cfg.Stage, "error", err)
			sum.Aborted = fatal(err)
			return sum, sum.Aborted
		}
	}

	e.logger.Info("run finished", "run_id", sum.RunID, "stage", e.cfg.Stage,
		"succeeded", sum.Succeeded(), "failed", len(sum.Failed()), "rows", sum.TotalRows())
	return sum, nil
}

func (r *run) report(res TableResult) {
	if r.OnProgress == nil {
		return
	}
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.OnProgress(res)
}

// runUnit walks one unit through its states. The error is returned only
// when the whole run must stop.
func (r *run) runUnit(ctx context.Context, u Unit) (TableResult, error) {
	res := TableResult{Unit: u.name(), Table: u.Target, State: StatePending}
	start := time.Now()
	log := r.logger.With("stage", r.cfg.Stage, "table", u.Target)

	finish := func(err error) (TableResult, error) {
		res.Duration = time.Since(start)
		if err == nil {
			log.Info("table loaded", "state", res.State, "rows", res.Rows, "duration", res.Duration)
			return res, nil
		}
		if isFatal(err) {
			return res, err
		}
		res.State = StateFailed
		res.Err = err
		res.Reason = reason(err)
		r.mu.Lock()
		r.failed[u.name()] = true
		r.mu.Unlock()
		log.Error("table failed", "state", res.State, "reason", res.Reason)
		return res, nil
	}

	if err := ctx.Err(); err != nil {
		return finish(err)
	}
	if upstream := r.blockedBy(u); upstream != "" {
		return finish(&TransformationError{Unit: u.name(), Upstream: upstream, Err: ErrBlocked})
	}

	sources := make(map[string]*dataset.Dataset, len(u.Sources))
	for _, s := range u.Sources {
		ds, err := r.extract(ctx, s)
		if err != nil {
			if isFatal(err) {
				return finish(err)
			}
			return finish(&ExtractionError{Namespace: s.Namespace, Table: s.Table, Err: err})
		}
		sources[s.Table] = ds
	}
	needs := make(map[string]*dataset.Dataset, len(u.Needs))
	r.mu.Lock()
	for _, n := range u.Needs {
		needs[n] = r.outputs[n]
	}
	r.mu.Unlock()
	res.State = StateExtracted
	log.Debug("sources extracted", "state", res.State, "sources", len(sources), "needs", len(needs))

	out, stats, err := r.transform(ctx, u, Input{
		Sources:     sources,
		Needs:       needs,
		ProcessedAt: r.cfg.ProcessedAt,
		Logger:      log,
	})
	res.Stats = stats
	if err != nil {
		if isFatal(err) {
			return finish(err)
		}
		return finish(&TransformationError{Unit: u.name(), Err: err})
	}
	if r.cfg.AuditColumn != "" {
		if out, err = out.WithConstant(r.cfg.AuditColumn, dataset.Timestamp(r.cfg.ProcessedAt)); err != nil {
			return finish(&TransformationError{Unit: u.name(), Err: err})
		}
	}
	res.State = StateTransformed
	r.logStats(log, stats)

	result := validate.Validate(out, u.Contract, validate.Options{SampleSize: r.cfg.SampleSize})
	if !result.OK() {
		f := result.Failure
		for _, c := range f.Checks() {
			log.Warn("validation check failed", "field", c.Field, "rule", c.Rule, "count", f.Counts[c])
		}
		for _, s := range f.Sample {
			log.Warn("offending row", "row", s.Row, "values", s.Values)
		}
		return finish(f)
	}
	validated := result.Dataset
	res.State = StateValidated
	if validated.Len() == 0 {
		log.Warn("output is empty, loading zero rows")
	}

	var c contract.Contract
	if u.Contract != nil {
		c = *u.Contract
	}
	n, err := r.loader.Replace(ctx, r.cfg.Namespace, u.Target, validated, c)
	if err != nil {
		if isFatal(err) {
			return finish(err)
		}
		return finish(&LoadError{Namespace: r.cfg.Namespace, Table: u.Target, Err: err})
	}
	res.State = StateLoaded
	res.Rows = n

	r.mu.Lock()
	r.outputs[u.name()] = validated
	r.mu.Unlock()
	return finish(nil)
}

// blockedBy names the first failed dependency of u, or "".
func (r *run) blockedBy(u Unit) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range u.Needs {
		if r.failed[n] {
			return n
		}
	}
	for _, s := range u.Sources {
		if r.blocked[s.Table] || r.blocked[s.String()] {
			return s.Table
		}
		if producer, ok := r.targets[s.String()]; ok && r.failed[producer] {
			return s.Table
		}
	}
	return ""
}

// extract reads each source once per run; concurrent readers of the same
// table share one extraction.
func (r *run) extract(ctx context.Context, s Source) (*dataset.Dataset, error) {
	key := s.String()
	r.cacheMu.Lock()
	ds, ok := r.cache[key]
	r.cacheMu.Unlock()
	if ok {
		return ds, nil
	}
	v, err, _ := r.flight.Do(key, func() (any, error) {
		r.cacheMu.Lock()
		cached, ok := r.cache[key]
		r.cacheMu.Unlock()
		if ok {
			return cached, nil
		}
		ds, err := r.extractor.Extract(ctx, s.Namespace, s.Table)
		if err != nil {
			return nil, err
		}
		r.cacheMu.Lock()
		r.cache[key] = ds
		r.cacheMu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset.Dataset), nil
}

func (r *run) transform(ctx context.Context, u Unit, in Input) (out *dataset.Dataset, stats Stats, err error) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.Error("transform panicked", "table", u.Target, "panic", p, "stack", string(debug.Stack()))
			out, err = nil, fmt.Errorf("panic: %v", p)
		}
	}()
	out, stats, err = u.Transform(ctx, in)
	if err == nil && out == nil {
		err = errors.New("transform returned no dataset")
	}
	return out, stats, err
}

func (r *run) logStats(log *slog.Logger, s Stats) {
	log.Debug("transformed", "rows_in", s.RowsIn, "rows_out", s.RowsOut, "dropped", s.TotalDropped())
	for _, reason := range sortedKeys(s.Dropped) {
		log.Info("rows dropped", "reason", reason, "count", s.Dropped[reason])
	}
	for _, kind := range sortedKeys(s.Anomalies) {
		log.Warn("anomaly", "kind", kind, "count", s.Anomalies[kind])
	}
	for _, field := range sortedKeys(s.Unmapped) {
		values := s.Unmapped[field]
		keys := sortedKeys(values)
		total := 0
		for _, k := range keys {
			total += values[k]
		}
		log.Warn("unmapped values", "field", field, "count", total, "values", keys)
	}
}

// reason is the one-line cause shown in summaries.
func reason(err error) string {
	var (
		te *TransformationError
		vf *validate.Failure
		ee *ExtractionError
		le *LoadError
	)
	switch {
	case errors.As(err, &te) && te.Upstream != "":
		return "blocked by upstream " + te.Upstream
	case errors.As(err, &vf):
		return "validation: " + vf.Summary()
	case errors.As(err, &ee):
		if errors.Is(err, extract.ErrTableNotFound) {
			return fmt.Sprintf("extraction: %s.%s not found", ee.Namespace, ee.Table)
		}
		return "extraction: " + ee.Err.Error()
	case errors.As(err, &te):
		return "transformation: " + te.Err.Error()
	case errors.As(err, &le):
		return "load: " + le.Err.Error()
	default:
		return err.Error()
	}
}
