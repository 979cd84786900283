package main

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tabeth/concreteoci/models"
	"github.com/tabeth/concreteoci/service"
)

// MockTableService is a mock implementation of the TableServicer interface for testing.
type MockTableService struct {
	mock.Mock
}

var _ service.TableServicer = (*MockTableService)(nil)

func (m *MockTableService) CreateTable(ctx context.Context, details *models.CreateTableDetails) (*models.TableDetails, error) {
	args := m.Called(ctx, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TableDetails), args.Error(1)
}

func (m *MockTableService) GetTable(ctx context.Context, tableNameOrID, compartmentID string) (*models.TableDetails, error) {
	args := m.Called(ctx, tableNameOrID, compartmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.TableDetails), args.Error(1)
}

func (m *MockTableService) ListTables(ctx context.Context, req *models.ListTablesRequest) (*models.TableCollection, string, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(*models.TableCollection), args.String(1), args.Error(2)
}

func (m *MockTableService) DeleteTable(ctx context.Context, tableNameOrID, compartmentID string, ifExists bool) error {
	args := m.Called(ctx, tableNameOrID, compartmentID, ifExists)
	return args.Error(0)
}

func (m *MockTableService) UpdateRow(ctx context.Context, tableNameOrID string, details *models.UpdateRowDetails) (*models.UpdateRowResult, error) {
	args := m.Called(ctx, tableNameOrID, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UpdateRowResult), args.Error(1)
}

func (m *MockTableService) GetRow(ctx context.Context, req *models.GetRowRequest) (*models.RowResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RowResult), args.Error(1)
}

func (m *MockTableService) DeleteRow(ctx context.Context, req *models.DeleteRowRequest) (*models.DeleteRowResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.DeleteRowResult), args.Error(1)
}

func (m *MockTableService) Query(ctx context.Context, req *models.QueryRequest) (*models.QueryResultCollection, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.QueryResultCollection), args.Error(1)
}

// MockObjectService is a mock implementation of the ObjectStorageServicer interface for testing.
type MockObjectService struct {
	mock.Mock
}

var _ service.ObjectStorageServicer = (*MockObjectService)(nil)

func (m *MockObjectService) Namespace(ctx context.Context) string {
	return m.Called(ctx).String(0)
}

func (m *MockObjectService) CreateBucket(ctx context.Context, namespace string, details *models.CreateBucketDetails) (*models.Bucket, error) {
	args := m.Called(ctx, namespace, details)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bucket), args.Error(1)
}

func (m *MockObjectService) GetBucket(ctx context.Context, namespace, bucketName string) (*models.Bucket, error) {
	args := m.Called(ctx, namespace, bucketName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Bucket), args.Error(1)
}

func (m *MockObjectService) ListBuckets(ctx context.Context, namespace, compartmentID string) ([]models.BucketSummary, error) {
	args := m.Called(ctx, namespace, compartmentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.BucketSummary), args.Error(1)
}

func (m *MockObjectService) DeleteBucket(ctx context.Context, namespace, bucketName string) error {
	return m.Called(ctx, namespace, bucketName).Error(0)
}

func (m *MockObjectService) PutObject(ctx context.Context, req *models.PutObjectRequest) (*models.Object, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Object), args.Error(1)
}

func (m *MockObjectService) GetObject(ctx context.Context, req *models.GetObjectRequest) (*models.Object, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Object), args.Error(1)
}

func (m *MockObjectService) ListObjects(ctx context.Context, req *models.ListObjectsRequest) (*models.ListObjects, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.ListObjects), args.Error(1)
}

func (m *MockObjectService) DeleteObject(ctx context.Context, namespace, bucketName, objectName string) error {
	return m.Called(ctx, namespace, bucketName, objectName).Error(0)
}
