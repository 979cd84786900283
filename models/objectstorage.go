package models

import "time"

// CreateBucketDetails maps to the body of the CreateBucket operation.
type CreateBucketDetails struct {
	Name             string            `json:"name" validate:"required"`
	CompartmentID    string            `json:"compartmentId" validate:"required"`
	PublicAccessType string            `json:"publicAccessType,omitempty" validate:"omitempty,oneof=NoPublicAccess ObjectRead ObjectReadWithoutList"`
	StorageTier      string            `json:"storageTier,omitempty" validate:"omitempty,oneof=Standard Archive"`
	Versioning       string            `json:"versioning,omitempty" validate:"omitempty,oneof=Enabled Disabled"`
	FreeformTags     map[string]string `json:"freeformTags,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
}

// Bucket is the full bucket representation.
type Bucket struct {
	Namespace        string            `json:"namespace"`
	Name             string            `json:"name"`
	ID               string            `json:"id"`
	CompartmentID    string            `json:"compartmentId"`
	CreatedBy        string            `json:"createdBy"`
	TimeCreated      time.Time         `json:"timeCreated"`
	ETag             string            `json:"etag"`
	PublicAccessType string            `json:"publicAccessType"`
	StorageTier      string            `json:"storageTier"`
	Versioning       string            `json:"versioning"`
	FreeformTags     map[string]string `json:"freeformTags"`
	Metadata         map[string]string `json:"metadata"`
	ApproximateCount int64             `json:"approximateCount"`
	ApproximateSize  int64             `json:"approximateSize"`
}

// BucketSummary is the list form of a bucket.
type BucketSummary struct {
	Namespace     string            `json:"namespace"`
	Name          string            `json:"name"`
	CompartmentID string            `json:"compartmentId"`
	CreatedBy     string            `json:"createdBy"`
	TimeCreated   time.Time         `json:"timeCreated"`
	ETag          string            `json:"etag"`
	FreeformTags  map[string]string `json:"freeformTags"`
}

// Object is a stored object together with the headers it was written with.
type Object struct {
	Name               string
	Body               []byte
	ContentType        string
	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	ContentLanguage    string
	MD5                string
	ETag               string
	Metadata           map[string]string
	TimeCreated        time.Time
	TimeModified       time.Time
	// Size is the plaintext length, which differs from len(Body) while the body is encrypted.
	Size int64
	// SSEKeySHA256 is set when the object was written with a customer-provided key.
	SSEKeySHA256 string
}

// SSECustomerKey carries the opc-sse-customer-algorithm, opc-sse-customer-key and
// opc-sse-customer-key-sha256 request headers.
type SSECustomerKey struct {
	Algorithm string
	Key       string
	KeySHA256 string
}

// PutObjectRequest carries an object body and its headers.
type PutObjectRequest struct {
	Namespace          string
	BucketName         string
	ObjectName         string
	Body               []byte
	ContentType        string
	CacheControl       string
	ContentDisposition string
	ContentEncoding    string
	ContentLanguage    string
	ContentMD5         string
	Metadata           map[string]string
	SSECustomerKey     *SSECustomerKey
}

// GetObjectRequest addresses an object. SSECustomerKey must be set for objects
// written with a customer-provided key.
type GetObjectRequest struct {
	Namespace      string
	BucketName     string
	ObjectName     string
	SSECustomerKey *SSECustomerKey
}

// ObjectSummary is the list form of an object.
type ObjectSummary struct {
	Name         string     `json:"name"`
	Size         *int64     `json:"size,omitempty"`
	MD5          string     `json:"md5,omitempty"`
	ETag         string     `json:"etag,omitempty"`
	TimeCreated  *time.Time `json:"timeCreated,omitempty"`
	TimeModified *time.Time `json:"timeModified,omitempty"`
}

// ListObjectsRequest holds the ListObjects query parameters.
type ListObjectsRequest struct {
	Namespace  string
	BucketName string
	Prefix     string
	Start      string
	End        string
	Limit      int
	Delimiter  string
}

// ListObjects is the response of ListObjects.
type ListObjects struct {
	Objects       []ObjectSummary `json:"objects"`
	Prefixes      []string        `json:"prefixes,omitempty"`
	NextStartWith string          `json:"nextStartWith,omitempty"`
}
