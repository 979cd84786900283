package store

import (
	"context"
	"crypto/md5"
	"encoding/base64"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/tabeth/concreteoci/kms"
	"github.com/tabeth/concreteoci/models"
)

const defaultListLimit = 1000

type bucket struct {
	meta    models.Bucket
	objects map[string]*models.Object
}

// MemoryObjectStore keeps buckets and objects of one namespace in memory.
// Bodies are copied on the way in and out so callers never share backing arrays.
type MemoryObjectStore struct {
	mu        sync.RWMutex
	namespace string
	buckets   map[string]*bucket
	now       func() time.Time
}

func NewMemoryObjectStore(namespace string) *MemoryObjectStore {
	return &MemoryObjectStore{
		namespace: namespace,
		buckets:   make(map[string]*bucket),
		now:       time.Now,
	}
}

func (s *MemoryObjectStore) Namespace() string {
	return s.namespace
}

func (s *MemoryObjectStore) checkNamespace(ns string) error {
	if ns != s.namespace {
		return errors.Wrapf(ErrNamespaceNotFound, "namespace %s", ns)
	}
	return nil
}

func (s *MemoryObjectStore) CreateBucket(ctx context.Context, namespace string, details *models.CreateBucketDetails) (*models.Bucket, error) {
	if err := s.checkNamespace(namespace); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.buckets[details.Name]; exists {
		return nil, errors.Wrapf(ErrBucketExists, "bucket %s", details.Name)
	}
	b := &bucket{
		meta: models.Bucket{
			Namespace:        namespace,
			Name:             details.Name,
			ID:               models.NewOCID("bucket"),
			CompartmentID:    details.CompartmentID,
			CreatedBy:        "ocid1.user.oc1..emulator",
			TimeCreated:      s.now().UTC(),
			ETag:             uuid.NewString(),
			PublicAccessType: orDefault(details.PublicAccessType, "NoPublicAccess"),
			StorageTier:      orDefault(details.StorageTier, "Standard"),
			Versioning:       orDefault(details.Versioning, "Disabled"),
			FreeformTags:     copyStrings(details.FreeformTags),
			Metadata:         copyStrings(details.Metadata),
		},
		objects: make(map[string]*models.Object),
	}
	s.buckets[details.Name] = b
	meta := b.meta
	return &meta, nil
}

func (s *MemoryObjectStore) GetBucket(ctx context.Context, namespace, name string) (*models.Bucket, error) {
	if err := s.checkNamespace(namespace); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[name]
	if !ok {
		return nil, errors.Wrapf(ErrBucketNotFound, "bucket %s", name)
	}
	meta := b.meta
	meta.ApproximateCount = int64(len(b.objects))
	for _, o := range b.objects {
		meta.ApproximateSize += o.Size
	}
	return &meta, nil
}

// ListBuckets returns the buckets of a compartment sorted by name. An empty
// compartmentID lists every bucket.
func (s *MemoryObjectStore) ListBuckets(ctx context.Context, namespace, compartmentID string) ([]models.BucketSummary, error) {
	if err := s.checkNamespace(namespace); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.BucketSummary, 0, len(s.buckets))
	for _, b := range s.buckets {
		if compartmentID != "" && b.meta.CompartmentID != compartmentID {
			continue
		}
		out = append(out, models.BucketSummary{
			Namespace:     b.meta.Namespace,
			Name:          b.meta.Name,
			CompartmentID: b.meta.CompartmentID,
			CreatedBy:     b.meta.CreatedBy,
			TimeCreated:   b.meta.TimeCreated,
			ETag:          b.meta.ETag,
			FreeformTags:  copyStrings(b.meta.FreeformTags),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *MemoryObjectStore) DeleteBucket(ctx context.Context, namespace, name string) error {
	if err := s.checkNamespace(namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[name]
	if !ok {
		return errors.Wrapf(ErrBucketNotFound, "bucket %s", name)
	}
	if len(b.objects) > 0 {
		return errors.Wrapf(ErrBucketNotEmpty, "bucket %s holds %d objects", name, len(b.objects))
	}
	delete(s.buckets, name)
	return nil
}

// PutObject stores the object, encrypting the body first when the request carries a
// customer-provided key. MD5 and Size always describe the plaintext.
func (s *MemoryObjectStore) PutObject(ctx context.Context, req *models.PutObjectRequest) (*models.Object, error) {
	if err := s.checkNamespace(req.Namespace); err != nil {
		return nil, err
	}
	body := append([]byte(nil), req.Body...)
	var keyDigest string
	if req.SSECustomerKey != nil {
		key, err := parseKey(req.SSECustomerKey)
		if err != nil {
			return nil, err
		}
		if body, err = key.Seal(req.Body); err != nil {
			return nil, errors.Wrap(err, "encrypt object")
		}
		keyDigest = key.SHA256
	}

	sum := md5.Sum(req.Body)
	now := s.now().UTC()
	obj := &models.Object{
		Name:               req.ObjectName,
		Body:               body,
		ContentType:        orDefault(req.ContentType, "application/octet-stream"),
		CacheControl:       req.CacheControl,
		ContentDisposition: req.ContentDisposition,
		ContentEncoding:    req.ContentEncoding,
		ContentLanguage:    req.ContentLanguage,
		MD5:                base64.StdEncoding.EncodeToString(sum[:]),
		ETag:               uuid.NewString(),
		Metadata:           copyStrings(req.Metadata),
		TimeCreated:        now,
		TimeModified:       now,
		Size:               int64(len(req.Body)),
		SSEKeySHA256:       keyDigest,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.buckets[req.BucketName]
	if !ok {
		return nil, errors.Wrapf(ErrBucketNotFound, "bucket %s", req.BucketName)
	}
	if prev, exists := b.objects[req.ObjectName]; exists {
		obj.TimeCreated = prev.TimeCreated
	}
	b.objects[req.ObjectName] = obj
	out := cloneObject(obj)
	out.Body = append([]byte(nil), req.Body...)
	return out, nil
}

// GetObject returns the object with its plaintext body. Objects written with a
// customer-provided key can only be read with the same key.
func (s *MemoryObjectStore) GetObject(ctx context.Context, req *models.GetObjectRequest) (*models.Object, error) {
	if err := s.checkNamespace(req.Namespace); err != nil {
		return nil, err
	}
	s.mu.RLock()
	b, ok := s.buckets[req.BucketName]
	if !ok {
		s.mu.RUnlock()
		return nil, errors.Wrapf(ErrBucketNotFound, "bucket %s", req.BucketName)
	}
	stored, ok := b.objects[req.ObjectName]
	if !ok {
		s.mu.RUnlock()
		return nil, errors.Wrapf(ErrObjectNotFound, "object %s in bucket %s", req.ObjectName, req.BucketName)
	}
	obj := cloneObject(stored)
	s.mu.RUnlock()

	if obj.SSEKeySHA256 == "" {
		return obj, nil
	}
	if req.SSECustomerKey == nil {
		return nil, errors.Wrapf(ErrCustomerKey, "object %s is encrypted with a customer-provided key", req.ObjectName)
	}
	key, err := parseKey(req.SSECustomerKey)
	if err != nil {
		return nil, err
	}
	if key.SHA256 != obj.SSEKeySHA256 {
		return nil, errors.Wrapf(ErrCustomerKey, "key does not match the one object %s was written with", req.ObjectName)
	}
	if obj.Body, err = key.Open(obj.Body); err != nil {
		return nil, errors.Wrap(ErrCustomerKey, err.Error())
	}
	return obj, nil
}

// ListObjects returns object names in lexical order. With a delimiter, names that
// contain it after the prefix are rolled up into Prefixes.
func (s *MemoryObjectStore) ListObjects(ctx context.Context, req *models.ListObjectsRequest) (*models.ListObjects, error) {
	if err := s.checkNamespace(req.Namespace); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.buckets[req.BucketName]
	if !ok {
		return nil, errors.Wrapf(ErrBucketNotFound, "bucket %s", req.BucketName)
	}
	names := make([]string, 0, len(b.objects))
	for name := range b.objects {
		names = append(names, name)
	}
	sort.Strings(names)

	limit := req.Limit
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	res := &models.ListObjects{Objects: []models.ObjectSummary{}}
	seenPrefix := make(map[string]bool)
	for _, name := range names {
		if !strings.HasPrefix(name, req.Prefix) {
			continue
		}
		if req.Start != "" && name < req.Start {
			continue
		}
		if req.End != "" && name >= req.End {
			break
		}
		if req.Delimiter != "" {
			rest := name[len(req.Prefix):]
			if i := strings.Index(rest, req.Delimiter); i >= 0 {
				p := req.Prefix + rest[:i+len(req.Delimiter)]
				if !seenPrefix[p] {
					seenPrefix[p] = true
					res.Prefixes = append(res.Prefixes, p)
				}
				continue
			}
		}
		if len(res.Objects) == limit {
			res.NextStartWith = name
			break
		}
		obj := b.objects[name]
		size := obj.Size
		created, modified := obj.TimeCreated, obj.TimeModified
		res.Objects = append(res.Objects, models.ObjectSummary{
			Name:         name,
			Size:         &size,
			MD5:          obj.MD5,
			ETag:         obj.ETag,
			TimeCreated:  &created,
			TimeModified: &modified,
		})
	}
	return res, nil
}

func (s *MemoryObjectStore) DeleteObject(ctx context.Context, namespace, bucketName, objectName string) error {
	if err := s.checkNamespace(namespace); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[bucketName]
	if !ok {
		return errors.Wrapf(ErrBucketNotFound, "bucket %s", bucketName)
	}
	if _, ok := b.objects[objectName]; !ok {
		return errors.Wrapf(ErrObjectNotFound, "object %s in bucket %s", objectName, bucketName)
	}
	delete(b.objects, objectName)
	return nil
}

func parseKey(k *models.SSECustomerKey) (*kms.CustomerKey, error) {
	key, err := kms.ParseCustomerKey(k.Algorithm, k.Key, k.KeySHA256)
	if err != nil {
		return nil, errors.Wrap(ErrCustomerKey, err.Error())
	}
	return key, nil
}

func cloneObject(o *models.Object) *models.Object {
	cp := *o
	cp.Body = append([]byte(nil), o.Body...)
	cp.Metadata = copyStrings(o.Metadata)
	return &cp
}

func copyStrings(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

var _ ObjectStore = (*MemoryObjectStore)(nil)
