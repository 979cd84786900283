package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/tabeth/concreteoci/models"
)

var (
	// ErrTableExists is returned when a live table with the same name already exists in the compartment.
	ErrTableExists = errors.New("table already exists")
	// ErrTableNotFound is returned when a table is absent, or is being deleted.
	ErrTableNotFound = errors.New("table not found")
	// ErrCompartmentRequired is returned when a table is addressed by name without a compartment.
	ErrCompartmentRequired = errors.New("compartment id is required when addressing a table by name")
	// ErrSchemaViolation is returned when a row does not fit the table schema.
	ErrSchemaViolation = errors.New("row does not match table schema")

	// ErrNamespaceNotFound is returned for any namespace other than the configured one.
	ErrNamespaceNotFound = errors.New("namespace not found")
	// ErrBucketExists is returned when creating a bucket whose name is taken in the namespace.
	ErrBucketExists = errors.New("bucket already exists")
	// ErrBucketNotFound is returned when a bucket does not exist.
	ErrBucketNotFound = errors.New("bucket not found")
	// ErrBucketNotEmpty is returned when deleting a bucket that still holds objects.
	ErrBucketNotEmpty = errors.New("bucket is not empty")
	// ErrObjectNotFound is returned when an object does not exist.
	ErrObjectNotFound = errors.New("object not found")
	// ErrCustomerKey is returned when a customer-provided key is malformed, missing or wrong.
	ErrCustomerKey = errors.New("customer-provided key rejected")
)

// TableStore holds table metadata. Implementations must be safe for concurrent use.
type TableStore interface {
	// CreateTable registers the table and makes it ACTIVE.
	// It must return ErrTableExists if a live table with the same name exists in the compartment.
	CreateTable(ctx context.Context, table *models.Table) error

	// GetTable resolves a table by id, or by name within a compartment.
	// It returns ErrTableNotFound for absent or deleting tables.
	GetTable(ctx context.Context, nameOrID, compartmentID string) (*models.Table, error)

	// ListTables returns the live tables of a compartment in creation order.
	ListTables(ctx context.Context, compartmentID string) ([]*models.Table, error)

	// DeleteTable removes the table and all of its rows.
	DeleteTable(ctx context.Context, nameOrID, compartmentID string) (*models.Table, error)
}

// UpsertOptions tune a row write.
type UpsertOptions struct {
	// Option is "", models.OptionIfAbsent or models.OptionIfPresent.
	Option string
	// ExactMatch rejects values naming columns the schema does not declare.
	ExactMatch bool
	// TTL overrides the table default when positive.
	TTL time.Duration
}

// UpsertResult describes the outcome of a row write.
type UpsertResult struct {
	// Applied is false when an IF_ABSENT or IF_PRESENT condition did not hold.
	Applied bool
	Row     *models.Row
	// Existing is the row that was replaced or that blocked a conditional write.
	Existing *models.Row
}

// RowStore holds the rows of every table, keyed by table id.
type RowStore interface {
	// UpsertRow writes a whole row. A row missing a primary key field, or holding a value
	// of the wrong type, fails with ErrSchemaViolation and leaves the table unchanged.
	UpsertRow(ctx context.Context, tableID string, value map[string]any, opts UpsertOptions) (*UpsertResult, error)

	// GetRow looks a row up by "column:value" key tokens. Tokens naming non-key or unknown
	// columns are ignored. It returns nil, nil when the tokens do not form a complete key
	// or nothing matches.
	GetRow(ctx context.Context, tableID string, key []string) (*models.Row, error)

	// DeleteRow removes the row addressed by a complete key and returns it, or nil when absent.
	DeleteRow(ctx context.Context, tableID string, key []string) (*models.Row, error)

	// ScanRows calls fn for every live row in insertion order until fn returns false.
	ScanRows(ctx context.Context, tableID string, fn func(*models.Row) bool) error

	// PurgeExpired removes rows whose TTL elapsed before now and reports how many went.
	PurgeExpired(ctx context.Context, now time.Time) int
}

// ObjectStore holds buckets and objects of a single namespace.
type ObjectStore interface {
	Namespace() string

	CreateBucket(ctx context.Context, namespace string, details *models.CreateBucketDetails) (*models.Bucket, error)
	GetBucket(ctx context.Context, namespace, name string) (*models.Bucket, error)
	ListBuckets(ctx context.Context, namespace, compartmentID string) ([]models.BucketSummary, error)
	DeleteBucket(ctx context.Context, namespace, name string) error

	PutObject(ctx context.Context, req *models.PutObjectRequest) (*models.Object, error)
	GetObject(ctx context.Context, req *models.GetObjectRequest) (*models.Object, error)
	ListObjects(ctx context.Context, req *models.ListObjectsRequest) (*models.ListObjects, error)
	DeleteObject(ctx context.Context, namespace, bucket, object string) error
}
