package load

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"medallion/internal/contract"
	"medallion/internal/dataset"
	"medallion/internal/extract"
)

// MemoryStore keeps tables in a map. It serves dry runs and tests, and is
// both a Loader and an Extractor.
type MemoryStore struct {
	mu     sync.RWMutex
	tables map[string]*dataset.Dataset
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{tables: make(map[string]*dataset.Dataset)}
}

func memoryKey(namespace, table string) string { return namespace + "." + table }

func (m *MemoryStore) Replace(ctx context.Context, namespace, table string, ds *dataset.Dataset, c contract.Contract) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[memoryKey(namespace, table)] = ds
	return int64(ds.Len()), nil
}

func (m *MemoryStore) Extract(ctx context.Context, namespace, table string) (*dataset.Dataset, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ds, ok := m.tables[memoryKey(namespace, table)]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", namespace, table, extract.ErrTableNotFound)
	}
	return ds, nil
}

// Put seeds a table without going through a load.
func (m *MemoryStore) Put(namespace, table string, ds *dataset.Dataset) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tables[memoryKey(namespace, table)] = ds
}

// Tables lists the stored tables as namespace.table, sorted.
func (m *MemoryStore) Tables() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.tables))
	for k := range m.tables {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
