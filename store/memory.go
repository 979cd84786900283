package store

import (
	"context"
	"time"

	"github.com/tabeth/concreteoci/models"
)

// MemoryStore is the in-memory TableStore and RowStore. Lock order is fixed:
// registry, then the row index, then a table's row map.
type MemoryStore struct {
	registry *Registry
	rows     *Rows
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		registry: NewRegistry(),
		rows:     NewRows(),
	}
}

func (s *MemoryStore) CreateTable(ctx context.Context, table *models.Table) error {
	return s.registry.Create(table, func(t *models.Table) {
		s.rows.create(t.ID, t.Schema)
	})
}

func (s *MemoryStore) GetTable(ctx context.Context, nameOrID, compartmentID string) (*models.Table, error) {
	return s.registry.Get(nameOrID, compartmentID)
}

func (s *MemoryStore) ListTables(ctx context.Context, compartmentID string) ([]*models.Table, error) {
	return s.registry.List(compartmentID), nil
}

func (s *MemoryStore) DeleteTable(ctx context.Context, nameOrID, compartmentID string) (*models.Table, error) {
	return s.registry.Delete(nameOrID, compartmentID, func(t *models.Table) {
		s.rows.drop(t.ID)
	})
}

func (s *MemoryStore) UpsertRow(ctx context.Context, tableID string, value map[string]any, opts UpsertOptions) (*UpsertResult, error) {
	return s.rows.Upsert(tableID, value, opts)
}

func (s *MemoryStore) GetRow(ctx context.Context, tableID string, key []string) (*models.Row, error) {
	return s.rows.Get(tableID, key)
}

func (s *MemoryStore) DeleteRow(ctx context.Context, tableID string, key []string) (*models.Row, error) {
	return s.rows.Delete(tableID, key)
}

func (s *MemoryStore) ScanRows(ctx context.Context, tableID string, fn func(*models.Row) bool) error {
	return s.rows.Scan(tableID, fn)
}

func (s *MemoryStore) PurgeExpired(ctx context.Context, now time.Time) int {
	return s.rows.PurgeExpired(now)
}

// TableStat is a point-in-time row count for one table.
type TableStat struct {
	CompartmentID string
	Name          string
	Rows          int
}

// Stats reports the stored row count of every live table.
func (s *MemoryStore) Stats() []TableStat {
	tables := s.registry.All()
	out := make([]TableStat, 0, len(tables))
	for _, t := range tables {
		out = append(out, TableStat{CompartmentID: t.CompartmentID, Name: t.Name, Rows: s.rows.Len(t.ID)})
	}
	return out
}
