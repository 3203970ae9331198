package audit

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/tsfans/sql-access/access"
)

// 内存存储，进程退出后丢失
type MemoryStore struct {
	mu      sync.RWMutex
	records []Record
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Save(ctx context.Context, record Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	record.Tables = slices.Clone(record.Tables)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *MemoryStore) FindByTable(ctx context.Context, name string, accessType *access.AccessType) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []Record{}
	for _, record := range s.records {
		if record.Touches(name, accessType) {
			record.Tables = slices.Clone(record.Tables)
			result = append(result, record)
		}
	}
	return result, nil
}

func (s *MemoryStore) Stats(ctx context.Context) ([]TableStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type key struct {
		name   string
		access access.AccessType
	}
	counts := make(map[key]int64)

	s.mu.RLock()
	for _, record := range s.records {
		for _, table := range record.Tables {
			counts[key{table.Name, table.Access}]++
		}
	}
	s.mu.RUnlock()

	stats := make([]TableStat, 0, len(counts))
	for k, count := range counts {
		stats = append(stats, TableStat{Name: k.name, Access: k.access, Count: count})
	}
	sortStats(stats)
	return stats, nil
}

func sortStats(stats []TableStat) {
	slices.SortFunc(stats, func(a, b TableStat) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.Access, b.Access))
	})
}
