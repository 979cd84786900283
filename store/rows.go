package store

import (
	"container/list"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tabeth/concreteoci/expression"
	"github.com/tabeth/concreteoci/models"
)

// tableRows is the row map of one table. Rows are kept in a list to preserve
// insertion order for scans; index maps an encoded primary key to its element.
type tableRows struct {
	mu      sync.RWMutex
	schema  *models.Schema
	dropped bool
	index   map[string]*list.Element
	rows    *list.List
}

type rowEntry struct {
	key string
	row *models.Row
}

// Rows stores the rows of every table. mu only guards the table id -> row map index;
// each table's rows have their own lock so writes to different tables never contend.
type Rows struct {
	mu     sync.Mutex
	tables map[string]*tableRows
	now    func() time.Time
}

func NewRows() *Rows {
	return &Rows{
		tables: make(map[string]*tableRows),
		now:    time.Now,
	}
}

func (s *Rows) create(tableID string, schema *models.Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tables[tableID] = &tableRows{
		schema: schema,
		index:  make(map[string]*list.Element),
		rows:   list.New(),
	}
}

// drop discards every row of the table. A caller still holding the row map sees it
// marked dropped and reports the table as missing.
func (s *Rows) drop(tableID string) {
	s.mu.Lock()
	tr, ok := s.tables[tableID]
	delete(s.tables, tableID)
	s.mu.Unlock()
	if !ok {
		return
	}
	tr.mu.Lock()
	tr.dropped = true
	tr.index = nil
	tr.rows = nil
	tr.mu.Unlock()
}

func (s *Rows) table(tableID string) (*tableRows, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tr, ok := s.tables[tableID]
	if !ok {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s", tableID)
	}
	return tr, nil
}

// Len reports the number of stored rows of a table, expired ones included.
func (s *Rows) Len(tableID string) int {
	tr, err := s.table(tableID)
	if err != nil {
		return 0
	}
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if tr.dropped {
		return 0
	}
	return tr.rows.Len()
}

// Upsert validates value against the schema, derives its primary key and writes it as
// a full replacement of any row stored under that key.
func (s *Rows) Upsert(tableID string, value map[string]any, opts UpsertOptions) (*UpsertResult, error) {
	tr, err := s.table(tableID)
	if err != nil {
		return nil, err
	}
	stored, keyParts, err := buildRow(tr.schema, value, opts.ExactMatch)
	if err != nil {
		return nil, err
	}
	key, err := encodeKey(keyParts)
	if err != nil {
		return nil, errors.Wrap(ErrSchemaViolation, err.Error())
	}

	now := s.now()
	row := &models.Row{Value: stored, Version: uuid.NewString(), Modified: now}
	switch ttl := opts.TTL; {
	case ttl > 0:
		row.ExpiresAt = now.Add(ttl)
	case tr.schema.TTL > 0:
		row.ExpiresAt = now.Add(tr.schema.TTL)
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.dropped {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s", tableID)
	}

	var existing *models.Row
	el, found := tr.index[key]
	if found {
		if prev := el.Value.(*rowEntry).row; !prev.Expired(now) {
			existing = prev
		}
	}
	switch opts.Option {
	case models.OptionIfAbsent:
		if existing != nil {
			return &UpsertResult{Applied: false, Existing: cloneRow(existing)}, nil
		}
	case models.OptionIfPresent:
		if existing == nil {
			return &UpsertResult{Applied: false}, nil
		}
	}

	if found {
		el.Value.(*rowEntry).row = row
	} else {
		tr.index[key] = tr.rows.PushBack(&rowEntry{key: key, row: row})
	}
	res := &UpsertResult{Applied: true, Row: cloneRow(row)}
	if existing != nil {
		res.Existing = cloneRow(existing)
	}
	return res, nil
}

// Get resolves key tokens to a complete primary key and returns the matching row.
// Anything short of a complete, well-typed key is a miss, not an error.
func (s *Rows) Get(tableID string, tokens []string) (*models.Row, error) {
	tr, err := s.table(tableID)
	if err != nil {
		return nil, err
	}
	key, ok := resolveKey(tr.schema, tokens)

	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if tr.dropped {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s", tableID)
	}
	if !ok {
		return nil, nil
	}
	el, found := tr.index[key]
	if !found {
		return nil, nil
	}
	row := el.Value.(*rowEntry).row
	if row.Expired(s.now()) {
		return nil, nil
	}
	return cloneRow(row), nil
}

// Delete removes the row addressed by a complete key. Deleting a missing row is a no-op.
func (s *Rows) Delete(tableID string, tokens []string) (*models.Row, error) {
	tr, err := s.table(tableID)
	if err != nil {
		return nil, err
	}
	key, ok := resolveKey(tr.schema, tokens)

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.dropped {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s", tableID)
	}
	if !ok {
		return nil, nil
	}
	el, found := tr.index[key]
	if !found {
		return nil, nil
	}
	row := el.Value.(*rowEntry).row
	tr.rows.Remove(el)
	delete(tr.index, key)
	if row.Expired(s.now()) {
		return nil, nil
	}
	return cloneRow(row), nil
}

// Scan visits live rows in insertion order under the table's read lock.
func (s *Rows) Scan(tableID string, fn func(*models.Row) bool) error {
	tr, err := s.table(tableID)
	if err != nil {
		return err
	}
	now := s.now()

	tr.mu.RLock()
	defer tr.mu.RUnlock()
	if tr.dropped {
		return errors.Wrapf(ErrTableNotFound, "table %s", tableID)
	}
	for el := tr.rows.Front(); el != nil; el = el.Next() {
		row := el.Value.(*rowEntry).row
		if row.Expired(now) {
			continue
		}
		if !fn(cloneRow(row)) {
			break
		}
	}
	return nil
}

// PurgeExpired drops rows whose TTL elapsed before now.
func (s *Rows) PurgeExpired(now time.Time) int {
	s.mu.Lock()
	tables := make([]*tableRows, 0, len(s.tables))
	for _, tr := range s.tables {
		tables = append(tables, tr)
	}
	s.mu.Unlock()

	purged := 0
	for _, tr := range tables {
		tr.mu.Lock()
		if !tr.dropped {
			for el := tr.rows.Front(); el != nil; {
				next := el.Next()
				entry := el.Value.(*rowEntry)
				if entry.row.Expired(now) {
					tr.rows.Remove(el)
					delete(tr.index, entry.key)
					purged++
				}
				el = next
			}
		}
		tr.mu.Unlock()
	}
	return purged
}

// buildRow checks value against schema and returns the row to store plus the
// canonical primary key values in key order.
func buildRow(schema *models.Schema, value map[string]any, exactMatch bool) (map[string]any, []any, error) {
	out := make(map[string]any, len(value))
	declared := make(map[string]bool, len(schema.Columns))

	for i := range schema.Columns {
		col := &schema.Columns[i]
		declared[strings.ToLower(col.Name)] = true
		raw, present := lookupFold(value, col.Name)
		isKey := schema.KeyIndex(col.Name) >= 0

		switch {
		case present && raw != nil:
			v, err := expression.CoerceValue(col, raw)
			if err != nil {
				return nil, nil, errors.Wrap(ErrSchemaViolation, err.Error())
			}
			out[col.Name] = v
		case isKey:
			return nil, nil, errors.Wrapf(ErrSchemaViolation, "missing primary key field %s", col.Name)
		case present:
			if !col.Nullable {
				return nil, nil, errors.Wrapf(ErrSchemaViolation, "field %s cannot be null", col.Name)
			}
			out[col.Name] = nil
		case col.HasDefault:
			out[col.Name] = col.Default
		case !col.Nullable:
			return nil, nil, errors.Wrapf(ErrSchemaViolation, "missing value for non-nullable field %s", col.Name)
		}
	}

	for name, v := range value {
		if declared[strings.ToLower(name)] {
			continue
		}
		if exactMatch {
			return nil, nil, errors.Wrapf(ErrSchemaViolation, "field %s is not declared in table %s", name, schema.TableName)
		}
		out[name] = v
	}

	keyParts := make([]any, len(schema.PrimaryKey))
	for i, name := range schema.PrimaryKey {
		keyParts[i] = out[name]
	}
	return out, keyParts, nil
}

// resolveKey turns "column:value" tokens into an encoded key. Tokens without a colon,
// or naming columns outside the primary key, are skipped. ok is false unless every
// key column received a value of the right type.
func resolveKey(schema *models.Schema, tokens []string) (string, bool) {
	parts := make([]any, len(schema.PrimaryKey))
	filled := make([]bool, len(schema.PrimaryKey))
	for _, tok := range tokens {
		name, literal, found := strings.Cut(tok, ":")
		if !found {
			continue
		}
		idx := schema.KeyIndex(strings.TrimSpace(name))
		if idx < 0 {
			continue
		}
		col, _ := schema.Column(schema.PrimaryKey[idx])
		v, err := expression.ParseLiteral(col, literal)
		if err != nil {
			return "", false
		}
		parts[idx] = v
		filled[idx] = true
	}
	for _, f := range filled {
		if !f {
			return "", false
		}
	}
	key, err := encodeKey(parts)
	if err != nil {
		return "", false
	}
	return key, true
}

func encodeKey(parts []any) (string, error) {
	b, err := json.Marshal(parts)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func lookupFold(m map[string]any, name string) (any, bool) {
	if v, ok := m[name]; ok {
		return v, true
	}
	for k, v := range m {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

func cloneRow(r *models.Row) *models.Row {
	cp := *r
	cp.Value = make(map[string]any, len(r.Value))
	for k, v := range r.Value {
		cp.Value[k] = v
	}
	return &cp
}
