package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabeth/concreteoci/expression"
	"github.com/tabeth/concreteoci/models"
)

const testCompartment = "ocid1.compartment.oc1..test"

func newTestTable(t *testing.T, ddl string) *models.Table {
	t.Helper()
	schema, err := expression.ParseDDL(ddl)
	require.NoError(t, err)
	return &models.Table{
		ID:            models.NewOCID("nosqltable"),
		Name:          schema.TableName,
		CompartmentID: testCompartment,
		DDLStatement:  ddl,
		Schema:        schema,
	}
}

// setupStore returns a store holding one created table.
func setupStore(t *testing.T, ddl string) (*MemoryStore, *models.Table) {
	t.Helper()
	s := NewMemoryStore()
	table := newTestTable(t, ddl)
	require.NoError(t, s.CreateTable(context.Background(), table))
	return s, table
}
