package engine

import (
	"fmt"
	"strings"
	"time"
)

// State is a table's position in its lifecycle.
type State string

const (
	StatePending     State = "PENDING"
	StateExtracted   State = "EXTRACTED"
	StateTransformed State = "TRANSFORMED"
	StateValidated   State = "VALIDATED"
	StateLoaded      State = "LOADED"
	StateFailed      State = "FAILED"
)

type TableResult struct {
	Unit     string
	Table    string
	State    State
	Rows     int64
	Reason   string
	Err      error
	Stats    Stats
	Duration time.Duration
}

func (r TableResult) Failed() bool { return r.State == StateFailed }

// Summary reports one run, tables in plan order.
type Summary struct {
	RunID     string
	Stage     string
	Namespace string
	Started   time.Time
	Finished  time.Time
	Tables    []TableResult
	// Aborted is the fatal error that stopped the run early, if any.
	Aborted error
}

// Attempted counts tables that left PENDING.
func (s *Summary) Attempted() int {
	n := 0
	for _, t := range s.Tables {
		if t.State != StatePending {
			n++
		}
	}
	return n
}

func (s *Summary) Succeeded() int {
	n := 0
	for _, t := range s.Tables {
		if t.State == StateLoaded {
			n++
		}
	}
	return n
}

// Failed lists the failed tables in plan order.
func (s *Summary) Failed() []TableResult {
	var out []TableResult
	for _, t := range s.Tables {
		if t.Failed() {
			out = append(out, t)
		}
	}
	return out
}

func (s *Summary) TotalRows() int64 {
	var n int64
	for _, t := range s.Tables {
		if t.State == StateLoaded {
			n += t.Rows
		}
	}
	return n
}

func (s *Summary) OK() bool { return len(s.Failed()) == 0 }

// Duration is the wall time of the run.
func (s *Summary) Duration() time.Duration { return s.Finished.Sub(s.Started) }

// Result returns the result for a target table.
func (s *Summary) Result(table string) (TableResult, bool) {
	for _, t := range s.Tables {
		if t.Table == table {
			return t, true
		}
	}
	return TableResult{}, false
}

// Err wraps ErrRunFailed with the failed table names, or returns nil.
func (s *Summary) Err() error {
	failed := s.Failed()
	if len(failed) == 0 {
		return nil
	}
	names := make([]string, len(failed))
	for i, t := range failed {
		names[i] = t.Table
	}
	return fmt.Errorf("%s: %w: %s", s.Stage, ErrRunFailed, strings.Join(names, ", "))
}
