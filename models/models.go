// Package models contains the data structures used throughout the application.
// Request and response types mirror the JSON bodies the OCI SDKs send and expect;
// the internal representation of tables and rows lives in table.go.
package models

import "time"

// ErrorResponse is the error body every OCI service returns.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// TableLimitsDetails is the wire form of TableLimits.
type TableLimitsDetails struct {
	MaxReadUnits    int32  `json:"maxReadUnits" validate:"gte=0"`
	MaxWriteUnits   int32  `json:"maxWriteUnits" validate:"gte=0"`
	MaxStorageInGBs int32  `json:"maxStorageInGBs" validate:"gte=0"`
	CapacityMode    string `json:"capacityMode,omitempty" validate:"omitempty,oneof=PROVISIONED ON_DEMAND"`
}

// CreateTableDetails maps to the body of the CreateTable operation.
type CreateTableDetails struct {
	Name              string              `json:"name" validate:"required"`
	CompartmentID     string              `json:"compartmentId" validate:"required"`
	DDLStatement      string              `json:"ddlStatement" validate:"required"`
	TableLimits       *TableLimitsDetails `json:"tableLimits,omitempty"`
	IsAutoReclaimable bool                `json:"isAutoReclaimable,omitempty"`
	FreeformTags      map[string]string   `json:"freeformTags,omitempty"`
}

// ColumnDetails describes one column in the schema section of a table response.
type ColumnDetails struct {
	Name         string `json:"name"`
	Type         string `json:"type"`
	IsNullable   bool   `json:"isNullable"`
	DefaultValue string `json:"defaultValue,omitempty"`
}

// SchemaDetails is the schema section of a table response.
type SchemaDetails struct {
	Columns    []ColumnDetails `json:"columns"`
	PrimaryKey []string        `json:"primaryKey"`
	ShardKey   []string        `json:"shardKey"`
	TTL        int             `json:"ttl"`
}

// TableDetails is the full table representation returned by GetTable and CreateTable.
type TableDetails struct {
	ID               string             `json:"id"`
	Name             string             `json:"name"`
	CompartmentID    string             `json:"compartmentId"`
	TimeCreated      time.Time          `json:"timeCreated"`
	TimeUpdated      time.Time          `json:"timeUpdated"`
	TableLimits      TableLimitsDetails `json:"tableLimits"`
	LifecycleState   string             `json:"lifecycleState"`
	LifecycleDetails string             `json:"lifecycleDetails,omitempty"`
	DDLStatement     string             `json:"ddlStatement"`
	Schema           SchemaDetails      `json:"schema"`
	FreeformTags     map[string]string  `json:"freeformTags"`
	DefinedTags      map[string]any     `json:"definedTags"`
}

// TableSummary is the list form of a table.
type TableSummary struct {
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	CompartmentID  string             `json:"compartmentId"`
	TimeCreated    time.Time          `json:"timeCreated"`
	TimeUpdated    time.Time          `json:"timeUpdated"`
	TableLimits    TableLimitsDetails `json:"tableLimits"`
	LifecycleState string             `json:"lifecycleState"`
	FreeformTags   map[string]string  `json:"freeformTags"`
}

// TableCollection is the response of ListTables.
type TableCollection struct {
	Items []TableSummary `json:"items"`
}

// ListTablesRequest holds the ListTables query parameters.
type ListTablesRequest struct {
	CompartmentID  string
	Name           string
	LifecycleState string
	Limit          int
	Page           string
}

// UpdateRowDetails maps to the body of the UpdateRow operation.
type UpdateRowDetails struct {
	CompartmentID        string         `json:"compartmentId,omitempty"`
	Value                map[string]any `json:"value"`
	Option               string         `json:"option,omitempty"`
	IsGetReturnRow       bool           `json:"isGetReturnRow,omitempty"`
	TTL                  int            `json:"ttl,omitempty"`
	IsTTLUseTableDefault bool           `json:"isTtlUseTableDefault,omitempty"`
	IsExactMatch         bool           `json:"isExactMatch,omitempty"`
	TimeoutInMs          int            `json:"timeoutInMs,omitempty"`
}

// Row options accepted by UpdateRow.
const (
	OptionIfAbsent  = "IF_ABSENT"
	OptionIfPresent = "IF_PRESENT"
)

// UpdateRowResult is returned by UpdateRow. Version is nil when a conditional put did not apply.
type UpdateRowResult struct {
	Version         *string        `json:"version"`
	ExistingVersion *string        `json:"existingVersion,omitempty"`
	ExistingValue   map[string]any `json:"existingValue,omitempty"`
	Usage           RequestUsage   `json:"usage"`
}

// GetRowRequest addresses a row by table and key tokens of the form "column:value".
type GetRowRequest struct {
	TableNameOrID string
	CompartmentID string
	Key           []string
}

// RowResult is returned by GetRow. Value is nil when no row matched.
type RowResult struct {
	Value            map[string]any `json:"value"`
	TimeOfExpiration *time.Time     `json:"timeOfExpiration,omitempty"`
	Usage            RequestUsage   `json:"usage"`
}

// DeleteRowRequest addresses the row to delete.
type DeleteRowRequest struct {
	TableNameOrID  string
	CompartmentID  string
	Key            []string
	IsGetReturnRow bool
}

// DeleteRowResult is returned by DeleteRow.
type DeleteRowResult struct {
	IsSuccess     bool           `json:"isSuccess"`
	ExistingValue map[string]any `json:"existingValue,omitempty"`
	Usage         RequestUsage   `json:"usage"`
}

// QueryDetails maps to the body of the Query operation.
type QueryDetails struct {
	CompartmentID string `json:"compartmentId" validate:"required"`
	Statement     string `json:"statement" validate:"required"`
	IsPrepared    bool   `json:"isPrepared,omitempty"`
	Consistency   string `json:"consistency,omitempty"`
	MaxReadInKBs  int    `json:"maxReadInKBs,omitempty"`
	TimeoutInMs   int    `json:"timeoutInMs,omitempty"`
}

// QueryRequest wraps the details with the paging parameters sent on the query string.
type QueryRequest struct {
	Details QueryDetails
	Limit   int
	Page    string
}

// QueryResultCollection is the response of Query.
type QueryResultCollection struct {
	Items    []map[string]any `json:"items"`
	Usage    RequestUsage     `json:"usage"`
	NextPage string           `json:"-"`
}

// RequestUsage reports the read and write units an operation consumed.
type RequestUsage struct {
	ReadUnitsConsumed  int `json:"readUnitsConsumed"`
	WriteUnitsConsumed int `json:"writeUnitsConsumed"`
}
