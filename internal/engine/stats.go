package engine

import "sort"

// Stats is what a transform reports about the rows it saw.
type Stats struct {
	RowsIn  int
	RowsOut int
	// Dropped counts removed rows by reason.
	Dropped map[string]int
	// Unmapped counts categorical values outside the known set, by field.
	Unmapped map[string]map[string]int
	// Anomalies counts repaired or suspicious values by kind.
	Anomalies map[string]int
}

func NewStats(rowsIn int) Stats {
	return Stats{
		RowsIn:    rowsIn,
		Dropped:   make(map[string]int),
		Unmapped:  make(map[string]map[string]int),
		Anomalies: make(map[string]int),
	}
}

func (s *Stats) Drop(reason string) {
	if s.Dropped == nil {
		s.Dropped = make(map[string]int)
	}
	s.Dropped[reason]++
}

func (s *Stats) Unmap(field, value string) {
	if s.Unmapped == nil {
		s.Unmapped = make(map[string]map[string]int)
	}
	if s.Unmapped[field] == nil {
		s.Unmapped[field] = make(map[string]int)
	}
	s.Unmapped[field][value]++
}

func (s *Stats) Anomaly(kind string) {
	if s.Anomalies == nil {
		s.Anomalies = make(map[string]int)
	}
	s.Anomalies[kind]++
}

// TotalDropped sums every drop reason.
func (s Stats) TotalDropped() int {
	n := 0
	for _, c := range s.Dropped {
		n += c
	}
	return n
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
