package store

import (
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/tabeth/concreteoci/models"
)

// TableIDPrefix starts every generated table id; anything else is treated as a table name.
const TableIDPrefix = "ocid1.nosqltable."

type nameKey struct {
	compartment string
	name        string
}

func keyFor(compartmentID, name string) nameKey {
	return nameKey{compartment: compartmentID, name: strings.ToLower(name)}
}

// Registry maps table ids and compartment-scoped names to table metadata.
// A single RWMutex serializes create, delete and name resolution.
type Registry struct {
	mu     sync.RWMutex
	byID   map[string]*models.Table
	byName map[nameKey]string
	order  []string
}

func NewRegistry() *Registry {
	return &Registry{
		byID:   make(map[string]*models.Table),
		byName: make(map[nameKey]string),
	}
}

// Create registers table and runs provision while still holding the registry lock, so
// no caller can see the table before its row storage exists.
func (r *Registry) Create(table *models.Table, provision func(*models.Table)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := keyFor(table.CompartmentID, table.Name)
	if _, exists := r.byName[k]; exists {
		return errors.Wrapf(ErrTableExists, "table %s in compartment %s", table.Name, table.CompartmentID)
	}
	if _, exists := r.byID[table.ID]; exists {
		return errors.Wrapf(ErrTableExists, "table id %s", table.ID)
	}

	stored := *table
	stored.Status = models.StatusCreating
	if provision != nil {
		provision(&stored)
	}
	stored.Status = models.StatusActive
	r.byID[stored.ID] = &stored
	r.byName[k] = stored.ID
	r.order = append(r.order, stored.ID)

	table.Status = stored.Status
	return nil
}

// Get returns a copy of the live table addressed by id or by name within compartmentID.
func (r *Registry) Get(nameOrID, compartmentID string) (*models.Table, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, err := r.resolveLocked(nameOrID, compartmentID)
	if err != nil {
		return nil, err
	}
	cp := *t
	return &cp, nil
}

// List returns copies of the live tables of compartmentID in creation order.
func (r *Registry) List(compartmentID string) []*models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*models.Table
	for _, id := range r.order {
		t := r.byID[id]
		if t.CompartmentID != compartmentID || !t.Visible() {
			continue
		}
		cp := *t
		out = append(out, &cp)
	}
	return out
}

// All returns copies of every live table regardless of compartment.
func (r *Registry) All() []*models.Table {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*models.Table, 0, len(r.order))
	for _, id := range r.order {
		cp := *r.byID[id]
		out = append(out, &cp)
	}
	return out
}

// Delete moves the table through DELETING to DELETED and forgets it. release runs
// under the registry lock while the table is DELETING, so dropping its rows and
// removing its name become visible together.
func (r *Registry) Delete(nameOrID, compartmentID string, release func(*models.Table)) (*models.Table, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, err := r.resolveLocked(nameOrID, compartmentID)
	if err != nil {
		return nil, err
	}
	t.Status = models.StatusDeleting
	if release != nil {
		release(t)
	}
	t.Status = models.StatusDeleted

	delete(r.byID, t.ID)
	delete(r.byName, keyFor(t.CompartmentID, t.Name))
	for i, id := range r.order {
		if id == t.ID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	cp := *t
	return &cp, nil
}

func (r *Registry) resolveLocked(nameOrID, compartmentID string) (*models.Table, error) {
	if strings.HasPrefix(nameOrID, TableIDPrefix) {
		t, ok := r.byID[nameOrID]
		if !ok || !t.Visible() || (compartmentID != "" && t.CompartmentID != compartmentID) {
			return nil, errors.Wrapf(ErrTableNotFound, "table %s", nameOrID)
		}
		return t, nil
	}
	if compartmentID == "" {
		return nil, errors.Wrapf(ErrCompartmentRequired, "table %s", nameOrID)
	}
	id, ok := r.byName[keyFor(compartmentID, nameOrID)]
	if !ok {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s in compartment %s", nameOrID, compartmentID)
	}
	t := r.byID[id]
	if !t.Visible() {
		return nil, errors.Wrapf(ErrTableNotFound, "table %s", nameOrID)
	}
	return t, nil
}
