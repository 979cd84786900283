package models

import (
	"strings"
	"time"
)

// TableStatus represents the lifecycle status of a table.
type TableStatus string

const (
	StatusCreating TableStatus = "CREATING"
	StatusActive   TableStatus = "ACTIVE"
	StatusDeleting TableStatus = "DELETING"
	StatusDeleted  TableStatus = "DELETED"
)

// ColumnType is one of the scalar field types a DDL statement may declare.
type ColumnType string

const (
	TypeString      ColumnType = "STRING"
	TypeInteger     ColumnType = "INTEGER"
	TypeLong        ColumnType = "LONG"
	TypeFloat       ColumnType = "FLOAT"
	TypeDouble      ColumnType = "DOUBLE"
	TypeNumber      ColumnType = "NUMBER"
	TypeBoolean     ColumnType = "BOOLEAN"
	TypeBinary      ColumnType = "BINARY"
	TypeFixedBinary ColumnType = "FIXED_BINARY"
	TypeTimestamp   ColumnType = "TIMESTAMP"
	TypeEnum        ColumnType = "ENUM"
	TypeJSON        ColumnType = "JSON"
)

var columnTypes = map[string]ColumnType{
	"STRING":       TypeString,
	"INTEGER":      TypeInteger,
	"LONG":         TypeLong,
	"FLOAT":        TypeFloat,
	"DOUBLE":       TypeDouble,
	"NUMBER":       TypeNumber,
	"BOOLEAN":      TypeBoolean,
	"BINARY":       TypeBinary,
	"FIXED_BINARY": TypeFixedBinary,
	"TIMESTAMP":    TypeTimestamp,
	"ENUM":         TypeEnum,
	"JSON":         TypeJSON,
}

// LookupColumnType resolves a type token case-insensitively.
func LookupColumnType(token string) (ColumnType, bool) {
	t, ok := columnTypes[strings.ToUpper(token)]
	return t, ok
}

// IsNumeric reports whether values of the type compare numerically.
func (t ColumnType) IsNumeric() bool {
	switch t {
	case TypeInteger, TypeLong, TypeFloat, TypeDouble, TypeNumber:
		return true
	}
	return false
}

// IsIntegral reports whether the type only holds whole numbers.
func (t ColumnType) IsIntegral() bool {
	return t == TypeInteger || t == TypeLong
}

// IsTextual reports whether values of the type travel as JSON strings.
func (t ColumnType) IsTextual() bool {
	switch t {
	case TypeString, TypeBinary, TypeFixedBinary, TypeTimestamp, TypeEnum:
		return true
	}
	return false
}

type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
	// Default holds the typed default literal. HasDefault tells an explicit DEFAULT apart from none.
	Default    any
	HasDefault bool
	// Precision is only meaningful for TIMESTAMP(p) and FIXED_BINARY(n).
	Precision int
	// Symbols lists the allowed values of an ENUM column.
	Symbols []string
}

// Schema is the parsed, validated form of a CREATE TABLE statement.
type Schema struct {
	TableName   string
	IfNotExists bool
	Columns     []Column
	PrimaryKey  []string
	ShardKey    []string
	TTL         time.Duration
	TTLUnit     string
}

// Column returns the declared column with the given name, matched case-insensitively.
func (s *Schema) Column(name string) (*Column, bool) {
	for i := range s.Columns {
		if strings.EqualFold(s.Columns[i].Name, name) {
			return &s.Columns[i], true
		}
	}
	return nil, false
}

// KeyIndex returns the position of name in the primary key, or -1.
func (s *Schema) KeyIndex(name string) int {
	for i, k := range s.PrimaryKey {
		if strings.EqualFold(k, name) {
			return i
		}
	}
	return -1
}

type TableLimits struct {
	MaxReadUnits    int32
	MaxWriteUnits   int32
	MaxStorageInGBs int32
	CapacityMode    string
}

// Table is the canonical internal representation of a table's metadata.
type Table struct {
	ID              string
	Name            string
	CompartmentID   string
	DDLStatement    string
	Schema          *Schema
	Limits          TableLimits
	Status          TableStatus
	FreeformTags    map[string]string
	TimeCreated     time.Time
	TimeUpdated     time.Time
	LifecycleDetail string
}

// Visible reports whether row and query operations may see the table.
func (t *Table) Visible() bool {
	return t.Status == StatusActive || t.Status == StatusCreating
}

// Row is a stored row. Value maps column names to JSON-compatible values.
type Row struct {
	Value     map[string]any
	Version   string
	ExpiresAt time.Time
	Modified  time.Time
}

// Expired reports whether the row's TTL has elapsed at now.
func (r *Row) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
