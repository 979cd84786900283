package service

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/tabeth/concreteoci/models"
	"github.com/tabeth/concreteoci/store"
)

// ObjectStorageServicer defines the bucket and object operations the HTTP layer depends on.
type ObjectStorageServicer interface {
	Namespace(ctx context.Context) string

	CreateBucket(ctx context.Context, namespace string, details *models.CreateBucketDetails) (*models.Bucket, error)
	GetBucket(ctx context.Context, namespace, bucketName string) (*models.Bucket, error)
	ListBuckets(ctx context.Context, namespace, compartmentID string) ([]models.BucketSummary, error)
	DeleteBucket(ctx context.Context, namespace, bucketName string) error

	PutObject(ctx context.Context, req *models.PutObjectRequest) (*models.Object, error)
	GetObject(ctx context.Context, req *models.GetObjectRequest) (*models.Object, error)
	ListObjects(ctx context.Context, req *models.ListObjectsRequest) (*models.ListObjects, error)
	DeleteObject(ctx context.Context, namespace, bucketName, objectName string) error
}

// ObjectStorageService validates object storage requests and translates store errors.
type ObjectStorageService struct {
	store    store.ObjectStore
	validate *validator.Validate
}

func NewObjectStorageService(s store.ObjectStore) *ObjectStorageService {
	return &ObjectStorageService{store: s, validate: validator.New()}
}

func (s *ObjectStorageService) Namespace(ctx context.Context) string {
	return s.store.Namespace()
}

// CreateBucket checks the namespace before the body so requests against an unknown
// namespace are always reported as not found.
func (s *ObjectStorageService) CreateBucket(ctx context.Context, namespace string, details *models.CreateBucketDetails) (*models.Bucket, error) {
	if namespace != s.store.Namespace() {
		return nil, models.NotFound("namespace %s not found", namespace)
	}
	if err := s.validate.Struct(details); err != nil {
		return nil, validationError(err)
	}
	if err := checkName("bucket", details.Name); err != nil {
		return nil, err
	}
	b, err := s.store.CreateBucket(ctx, namespace, details)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (s *ObjectStorageService) GetBucket(ctx context.Context, namespace, bucketName string) (*models.Bucket, error) {
	b, err := s.store.GetBucket(ctx, namespace, bucketName)
	if err != nil {
		return nil, translate(err)
	}
	return b, nil
}

func (s *ObjectStorageService) ListBuckets(ctx context.Context, namespace, compartmentID string) ([]models.BucketSummary, error) {
	buckets, err := s.store.ListBuckets(ctx, namespace, compartmentID)
	if err != nil {
		return nil, translate(err)
	}
	return buckets, nil
}

func (s *ObjectStorageService) DeleteBucket(ctx context.Context, namespace, bucketName string) error {
	if err := s.store.DeleteBucket(ctx, namespace, bucketName); err != nil {
		return translate(err)
	}
	return nil
}

func (s *ObjectStorageService) PutObject(ctx context.Context, req *models.PutObjectRequest) (*models.Object, error) {
	if err := checkName("object", req.ObjectName); err != nil {
		return nil, err
	}
	if req.ContentMD5 != "" {
		sum := md5.Sum(req.Body)
		if digest := base64.StdEncoding.EncodeToString(sum[:]); digest != req.ContentMD5 {
			return nil, models.InvalidParameter("Content-MD5 %s does not match the body digest %s", req.ContentMD5, digest)
		}
	}
	obj, err := s.store.PutObject(ctx, req)
	if err != nil {
		return nil, translate(err)
	}
	return obj, nil
}

func (s *ObjectStorageService) GetObject(ctx context.Context, req *models.GetObjectRequest) (*models.Object, error) {
	obj, err := s.store.GetObject(ctx, req)
	if err != nil {
		return nil, translate(err)
	}
	return obj, nil
}

func (s *ObjectStorageService) ListObjects(ctx context.Context, req *models.ListObjectsRequest) (*models.ListObjects, error) {
	if req.Limit < 0 {
		return nil, models.InvalidParameter("limit must be non-negative")
	}
	if req.Delimiter != "" && req.Delimiter != "/" {
		return nil, models.InvalidParameter("only '/' is supported as a delimiter")
	}
	res, err := s.store.ListObjects(ctx, req)
	if err != nil {
		return nil, translate(err)
	}
	return res, nil
}

func (s *ObjectStorageService) DeleteObject(ctx context.Context, namespace, bucketName, objectName string) error {
	if err := s.store.DeleteObject(ctx, namespace, bucketName, objectName); err != nil {
		return translate(err)
	}
	return nil
}

func checkName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return models.InvalidParameter("%s name cannot be empty", kind)
	}
	if len(name) > 1024 {
		return models.InvalidParameter("%s name is too long", kind)
	}
	return nil
}
