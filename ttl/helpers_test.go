package ttl

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tabeth/concreteoci/expression"
	"github.com/tabeth/concreteoci/models"
)

func newTable(t *testing.T, ddl string) *models.Table {
	t.Helper()
	schema, err := expression.ParseDDL(ddl)
	require.NoError(t, err)
	return &models.Table{
		ID:            models.NewOCID("nosqltable"),
		Name:          schema.TableName,
		CompartmentID: "ocid1.compartment.oc1..test",
		DDLStatement:  ddl,
		Schema:        schema,
	}
}
