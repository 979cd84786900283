package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/tabeth/concreteoci/expression"
	"github.com/tabeth/concreteoci/models"
	"github.com/tabeth/concreteoci/store"
)

const (
	defaultReadUnits  = 50
	defaultWriteUnits = 50
	defaultStorageGBs = 25
	maxPageSize       = 1000
)

// TableServicer defines the NoSQL operations the HTTP layer depends on.
type TableServicer interface {
	CreateTable(ctx context.Context, details *models.CreateTableDetails) (*models.TableDetails, error)
	GetTable(ctx context.Context, tableNameOrID, compartmentID string) (*models.TableDetails, error)
	ListTables(ctx context.Context, req *models.ListTablesRequest) (*models.TableCollection, string, error)
	DeleteTable(ctx context.Context, tableNameOrID, compartmentID string, ifExists bool) error

	// Row operations
	UpdateRow(ctx context.Context, tableNameOrID string, details *models.UpdateRowDetails) (*models.UpdateRowResult, error)
	GetRow(ctx context.Context, req *models.GetRowRequest) (*models.RowResult, error)
	DeleteRow(ctx context.Context, req *models.DeleteRowRequest) (*models.DeleteRowResult, error)
	Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResultCollection, error)
}

// TableRowStore is the storage the table service runs on.
type TableRowStore interface {
	store.TableStore
	store.RowStore
}

// TableService contains the business logic for tables, rows and queries. It is the
// only place where storage and parser errors become API errors.
type TableService struct {
	store    TableRowStore
	validate *validator.Validate
	now      func() time.Time
}

// NewTableService creates a new TableService.
func NewTableService(s TableRowStore) *TableService {
	return &TableService{store: s, validate: validator.New(), now: time.Now}
}

// CreateTable parses the DDL, registers the table and returns it ACTIVE.
func (s *TableService) CreateTable(ctx context.Context, details *models.CreateTableDetails) (*models.TableDetails, error) {
	if err := s.validate.Struct(details); err != nil {
		return nil, validationError(err)
	}

	schema, err := expression.ParseDDL(details.DDLStatement)
	if err != nil {
		return nil, translate(err)
	}
	if !strings.EqualFold(schema.TableName, details.Name) {
		return nil, models.InvalidParameter("table name %s does not match the name %s in the DDL statement", details.Name, schema.TableName)
	}

	now := s.now().UTC()
	table := &models.Table{
		ID:            models.NewOCID("nosqltable"),
		Name:          details.Name,
		CompartmentID: details.CompartmentID,
		DDLStatement:  details.DDLStatement,
		Schema:        schema,
		Limits:        limitsFrom(details.TableLimits),
		FreeformTags:  details.FreeformTags,
		TimeCreated:   now,
		TimeUpdated:   now,
	}
	if err := s.store.CreateTable(ctx, table); err != nil {
		if errors.Is(err, store.ErrTableExists) && schema.IfNotExists {
			existing, getErr := s.store.GetTable(ctx, details.Name, details.CompartmentID)
			if getErr != nil {
				return nil, translate(getErr)
			}
			return toTableDetails(existing), nil
		}
		return nil, translate(err)
	}
	return toTableDetails(table), nil
}

func (s *TableService) GetTable(ctx context.Context, tableNameOrID, compartmentID string) (*models.TableDetails, error) {
	table, err := s.resolve(ctx, tableNameOrID, compartmentID)
	if err != nil {
		return nil, err
	}
	return toTableDetails(table), nil
}

// ListTables returns one page of the compartment's tables and the token of the next page.
// Name is a shell glob matched case-insensitively.
func (s *TableService) ListTables(ctx context.Context, req *models.ListTablesRequest) (*models.TableCollection, string, error) {
	if req.CompartmentID == "" {
		return nil, "", models.InvalidParameter("compartmentId is required")
	}
	if req.Limit < 0 {
		return nil, "", models.InvalidParameter("limit must be non-negative")
	}
	offset, err := parsePage(req.Page)
	if err != nil {
		return nil, "", err
	}
	if req.Name != "" {
		if _, err := path.Match(req.Name, ""); err != nil {
			return nil, "", models.InvalidParameter("invalid name filter %q", req.Name)
		}
	}

	tables, err := s.store.ListTables(ctx, req.CompartmentID)
	if err != nil {
		return nil, "", translate(err)
	}

	matched := make([]models.TableSummary, 0, len(tables))
	for _, t := range tables {
		if req.Name != "" {
			if ok, _ := path.Match(strings.ToLower(req.Name), strings.ToLower(t.Name)); !ok {
				continue
			}
		}
		if req.LifecycleState != "" && req.LifecycleState != "ALL" && req.LifecycleState != string(t.Status) {
			continue
		}
		matched = append(matched, toTableSummary(t))
	}

	items, next := paginate(matched, offset, req.Limit)
	return &models.TableCollection{Items: items}, next, nil
}

// DeleteTable drops the table and its rows. With ifExists a missing table is not an error.
func (s *TableService) DeleteTable(ctx context.Context, tableNameOrID, compartmentID string, ifExists bool) error {
	if tableNameOrID == "" {
		return models.InvalidParameter("tableNameOrId cannot be empty")
	}
	if _, err := s.store.DeleteTable(ctx, tableNameOrID, compartmentID); err != nil {
		if ifExists && errors.Is(err, store.ErrTableNotFound) {
			return nil
		}
		return translate(err)
	}
	return nil
}

// UpdateRow writes a full row. When an IF_ABSENT or IF_PRESENT condition fails the
// result carries a nil version.
func (s *TableService) UpdateRow(ctx context.Context, tableNameOrID string, details *models.UpdateRowDetails) (*models.UpdateRowResult, error) {
	if len(details.Value) == 0 {
		return nil, models.InvalidParameter("value cannot be empty")
	}
	switch details.Option {
	case "", models.OptionIfAbsent, models.OptionIfPresent:
	default:
		return nil, models.InvalidParameter("invalid option %s", details.Option)
	}
	if details.TTL < 0 {
		return nil, models.InvalidParameter("ttl must be non-negative")
	}
	table, err := s.resolve(ctx, tableNameOrID, details.CompartmentID)
	if err != nil {
		return nil, err
	}

	opts := store.UpsertOptions{Option: details.Option, ExactMatch: details.IsExactMatch}
	if details.TTL > 0 && !details.IsTTLUseTableDefault {
		opts.TTL = time.Duration(details.TTL) * 24 * time.Hour
	}
	res, err := s.store.UpsertRow(ctx, table.ID, details.Value, opts)
	if err != nil {
		return nil, translate(err)
	}

	out := &models.UpdateRowResult{Usage: models.RequestUsage{ReadUnitsConsumed: 1}}
	if res.Applied {
		version := res.Row.Version
		out.Version = &version
		out.Usage.WriteUnitsConsumed = 1
	}
	if details.IsGetReturnRow && res.Existing != nil {
		version := res.Existing.Version
		out.ExistingVersion = &version
		out.ExistingValue = res.Existing.Value
	}
	return out, nil
}

// GetRow looks a row up by key tokens. An unresolved key yields a nil value, not an error.
func (s *TableService) GetRow(ctx context.Context, req *models.GetRowRequest) (*models.RowResult, error) {
	if len(req.Key) == 0 {
		return nil, models.InvalidParameter("key is required")
	}
	table, err := s.resolve(ctx, req.TableNameOrID, req.CompartmentID)
	if err != nil {
		return nil, err
	}
	row, err := s.store.GetRow(ctx, table.ID, req.Key)
	if err != nil {
		return nil, translate(err)
	}

	out := &models.RowResult{Usage: models.RequestUsage{ReadUnitsConsumed: 1}}
	if row != nil {
		out.Value = row.Value
		if !row.ExpiresAt.IsZero() {
			exp := row.ExpiresAt.UTC()
			out.TimeOfExpiration = &exp
		}
	}
	return out, nil
}

func (s *TableService) DeleteRow(ctx context.Context, req *models.DeleteRowRequest) (*models.DeleteRowResult, error) {
	if len(req.Key) == 0 {
		return nil, models.InvalidParameter("key is required")
	}
	table, err := s.resolve(ctx, req.TableNameOrID, req.CompartmentID)
	if err != nil {
		return nil, err
	}
	row, err := s.store.DeleteRow(ctx, table.ID, req.Key)
	if err != nil {
		return nil, translate(err)
	}

	out := &models.DeleteRowResult{Usage: models.RequestUsage{ReadUnitsConsumed: 1}}
	if row != nil {
		out.IsSuccess = true
		out.Usage.WriteUnitsConsumed = 1
		if req.IsGetReturnRow {
			out.ExistingValue = row.Value
		}
	}
	return out, nil
}

// Query runs a SELECT statement as a full scan of the target table. LIMIT in the
// statement caps the whole result; Limit and Page on the request slice it into pages.
func (s *TableService) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResultCollection, error) {
	if err := s.validate.Struct(&req.Details); err != nil {
		return nil, validationError(err)
	}
	if req.Limit < 0 {
		return nil, models.InvalidParameter("limit must be non-negative")
	}
	offset, err := parsePage(req.Page)
	if err != nil {
		return nil, err
	}

	stmt, err := expression.ParseSelect(req.Details.Statement)
	if err != nil {
		return nil, translate(err)
	}
	table, err := s.resolve(ctx, stmt.TableName, req.Details.CompartmentID)
	if err != nil {
		return nil, err
	}
	eval := expression.NewEvaluator(table.Schema)
	pred, err := eval.Compile(stmt)
	if err != nil {
		return nil, translate(err)
	}

	// Collect one row past the page so we know whether another page follows.
	want := -1
	if req.Limit > 0 {
		want = offset + req.Limit + 1
	}
	var matched []map[string]any
	scanned := 0
	err = s.store.ScanRows(ctx, table.ID, func(row *models.Row) bool {
		scanned++
		if !pred.Match(row.Value) {
			return true
		}
		matched = append(matched, eval.Project(stmt, row.Value))
		if stmt.Limit > 0 && len(matched) >= stmt.Limit {
			return false
		}
		return want < 0 || len(matched) < want
	})
	if err != nil {
		return nil, translate(err)
	}

	items, next := paginate(matched, offset, req.Limit)
	if items == nil {
		items = []map[string]any{}
	}
	return &models.QueryResultCollection{
		Items:    items,
		Usage:    models.RequestUsage{ReadUnitsConsumed: scanned},
		NextPage: next,
	}, nil
}

func (s *TableService) resolve(ctx context.Context, tableNameOrID, compartmentID string) (*models.Table, error) {
	if tableNameOrID == "" {
		return nil, models.InvalidParameter("tableNameOrId cannot be empty")
	}
	table, err := s.store.GetTable(ctx, tableNameOrID, compartmentID)
	if err != nil {
		return nil, translate(err)
	}
	return table, nil
}

// translate maps storage, DDL and query errors onto API errors.
func translate(err error) error {
	var (
		apiErr   *models.APIError
		ddlErr   *expression.DDLError
		queryErr *expression.QueryError
	)
	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &ddlErr):
		return models.New(models.KindMalformedDDL, "InvalidParameter", ddlErr.Error())
	case errors.As(err, &queryErr):
		return models.New(models.KindQuerySyntax, "InvalidParameter", queryErr.Error())
	case errors.Is(err, store.ErrTableExists):
		return models.New(models.KindConflict, "TableAlreadyExists", err.Error())
	case errors.Is(err, store.ErrTableNotFound):
		return models.NotFound("%v", err)
	case errors.Is(err, store.ErrCompartmentRequired):
		return models.InvalidParameter("%v", err)
	case errors.Is(err, store.ErrSchemaViolation):
		return models.New(models.KindSchemaViolation, "InvalidParameter", err.Error())
	case errors.Is(err, store.ErrNamespaceNotFound),
		errors.Is(err, store.ErrBucketNotFound),
		errors.Is(err, store.ErrObjectNotFound):
		return models.NotFound("%v", err)
	case errors.Is(err, store.ErrBucketExists):
		return models.New(models.KindConflict, "BucketAlreadyExists", err.Error())
	case errors.Is(err, store.ErrBucketNotEmpty):
		return models.New(models.KindConflict, "BucketNotEmpty", err.Error())
	case errors.Is(err, store.ErrCustomerKey):
		return models.InvalidParameter("%v", err)
	default:
		return models.Internal("internal error: %v", err)
	}
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return models.InvalidParameter("field %s failed validation: %s", fe.Field(), fe.Tag())
	}
	return models.InvalidParameter("invalid request: %v", err)
}

func parsePage(page string) (int, error) {
	if page == "" {
		return 0, nil
	}
	offset, err := strconv.Atoi(page)
	if err != nil || offset < 0 {
		return 0, models.InvalidParameter("invalid page token %q", page)
	}
	return offset, nil
}

// paginate returns items[offset:offset+limit] and the token of the following page,
// or "" when nothing follows. A zero limit means no paging beyond maxPageSize.
func paginate[T any](items []T, offset, limit int) ([]T, string) {
	if limit <= 0 || limit > maxPageSize {
		limit = maxPageSize
	}
	if offset >= len(items) {
		return []T{}, ""
	}
	end := offset + limit
	if end >= len(items) {
		return items[offset:], ""
	}
	return items[offset:end], strconv.Itoa(end)
}

func limitsFrom(d *models.TableLimitsDetails) models.TableLimits {
	limits := models.TableLimits{
		MaxReadUnits:    defaultReadUnits,
		MaxWriteUnits:   defaultWriteUnits,
		MaxStorageInGBs: defaultStorageGBs,
		CapacityMode:    "PROVISIONED",
	}
	if d == nil {
		return limits
	}
	if d.MaxReadUnits > 0 {
		limits.MaxReadUnits = d.MaxReadUnits
	}
	if d.MaxWriteUnits > 0 {
		limits.MaxWriteUnits = d.MaxWriteUnits
	}
	if d.MaxStorageInGBs > 0 {
		limits.MaxStorageInGBs = d.MaxStorageInGBs
	}
	if d.CapacityMode != "" {
		limits.CapacityMode = d.CapacityMode
	}
	return limits
}

func toTableDetails(t *models.Table) *models.TableDetails {
	tags := t.FreeformTags
	if tags == nil {
		tags = map[string]string{}
	}
	return &models.TableDetails{
		ID:               t.ID,
		Name:             t.Name,
		CompartmentID:    t.CompartmentID,
		TimeCreated:      t.TimeCreated,
		TimeUpdated:      t.TimeUpdated,
		TableLimits:      toLimitsDetails(t.Limits),
		LifecycleState:   string(t.Status),
		LifecycleDetails: t.LifecycleDetail,
		DDLStatement:     t.DDLStatement,
		Schema:           toSchemaDetails(t.Schema),
		FreeformTags:     tags,
		DefinedTags:      map[string]any{},
	}
}

func toTableSummary(t *models.Table) models.TableSummary {
	tags := t.FreeformTags
	if tags == nil {
		tags = map[string]string{}
	}
	return models.TableSummary{
		ID:             t.ID,
		Name:           t.Name,
		CompartmentID:  t.CompartmentID,
		TimeCreated:    t.TimeCreated,
		TimeUpdated:    t.TimeUpdated,
		TableLimits:    toLimitsDetails(t.Limits),
		LifecycleState: string(t.Status),
		FreeformTags:   tags,
	}
}

func toLimitsDetails(l models.TableLimits) models.TableLimitsDetails {
	return models.TableLimitsDetails{
		MaxReadUnits:    l.MaxReadUnits,
		MaxWriteUnits:   l.MaxWriteUnits,
		MaxStorageInGBs: l.MaxStorageInGBs,
		CapacityMode:    l.CapacityMode,
	}
}

func toSchemaDetails(schema *models.Schema) models.SchemaDetails {
	if schema == nil {
		return models.SchemaDetails{}
	}
	cols := make([]models.ColumnDetails, 0, len(schema.Columns))
	for _, c := range schema.Columns {
		cd := models.ColumnDetails{Name: c.Name, Type: columnTypeName(c), IsNullable: c.Nullable}
		if c.HasDefault {
			cd.DefaultValue = fmt.Sprint(c.Default)
		}
		cols = append(cols, cd)
	}
	return models.SchemaDetails{
		Columns:    cols,
		PrimaryKey: append([]string(nil), schema.PrimaryKey...),
		ShardKey:   append([]string(nil), schema.ShardKey...),
		TTL:        ttlDays(schema.TTL),
	}
}

// ttlDays reports a table TTL in whole days, rounding up so an HOURS TTL is never
// shown as no TTL.
func ttlDays(ttl time.Duration) int {
	const day = 24 * time.Hour
	return int((ttl + day - 1) / day)
}

func columnTypeName(c models.Column) string {
	switch {
	case c.Type == models.TypeTimestamp && c.Precision > 0:
		return fmt.Sprintf("%s(%d)", c.Type, c.Precision)
	case c.Type == models.TypeFixedBinary && c.Precision > 0:
		return fmt.Sprintf("%s(%d)", c.Type, c.Precision)
	default:
		return string(c.Type)
	}
}
