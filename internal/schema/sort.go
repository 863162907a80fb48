package schema

import (
	"fmt"
	"strings"
)

// SortByDependencies orders tables so every table comes after its
// dependencies. Among tables that are ready at the same time the input
// order is kept. A dependency on an unknown table or a cycle is an error.
func SortByDependencies(tables []*Table) ([]*Table, error) {
	levels, err := Levels(tables)
	if err != nil {
		return nil, err
	}
	sorted := make([]*Table, 0, len(tables))
	for _, level := range levels {
		sorted = append(sorted, level...)
	}
	return sorted, nil
}

// Levels groups tables into dependency levels: every table in level n
// depends only on tables in levels before n. Tables in the same level are
// independent of each other.
func Levels(tables []*Table) ([][]*Table, error) {
	known := make(map[string]bool, len(tables))
	for _, t := range tables {
		if known[t.Name] {
			return nil, fmt.Errorf("duplicate table %q", t.Name)
		}
		known[t.Name] = true
	}
	for _, t := range tables {
		for _, dep := range t.Dependencies {
			if !known[dep] {
				return nil, fmt.Errorf("table %q depends on unknown table %q", t.Name, dep)
			}
		}
	}

	var levels [][]*Table
	processed := make(map[string]bool, len(tables))
	for len(processed) < len(tables) {
		var level []*Table
		for _, t := range tables {
			if processed[t.Name] {
				continue
			}
			ready := true
			for _, dep := range t.Dependencies {
				if !processed[dep] {
					ready = false
					break
				}
			}
			if ready {
				level = append(level, t)
			}
		}
		if len(level) == 0 {
			return nil, fmt.Errorf("dependency cycle: %s", describeCycle(tables, processed))
		}
		for _, t := range level {
			processed[t.Name] = true
		}
		levels = append(levels, level)
	}
	return levels, nil
}

// describeCycle walks unprocessed dependencies from the first blocked table
// until a name repeats.
func describeCycle(tables []*Table, processed map[string]bool) string {
	byName := make(map[string]*Table, len(tables))
	var start *Table
	for _, t := range tables {
		byName[t.Name] = t
		if start == nil && !processed[t.Name] {
			start = t
		}
	}
	seen := make(map[string]int)
	var path []string
	for cur := start; cur != nil; {
		if i, ok := seen[cur.Name]; ok {
			return strings.Join(append(path[i:], cur.Name), " -> ")
		}
		seen[cur.Name] = len(path)
		path = append(path, cur.Name)
		var next *Table
		for _, dep := range cur.Dependencies {
			if !processed[dep] {
				next = byName[dep]
				break
			}
		}
		cur = next
	}
	return strings.Join(path, " -> ")
}
