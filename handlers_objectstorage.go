package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/tabeth/concreteoci/kms"
	"github.com/tabeth/concreteoci/models"
)

const (
	metadataHeaderPrefix = "opc-meta-"

	sseAlgorithmHeader = "opc-sse-customer-algorithm"
	sseKeyHeader       = "opc-sse-customer-key"
	sseKeySHA256Header = "opc-sse-customer-key-sha256"
)

// RegisterObjectStorageHandlers registers namespace, bucket and object endpoints.
// Bucket collection routes answer with and without the trailing slash the SDK sends.
func (app *App) RegisterObjectStorageHandlers(r chi.Router) {
	r.Get("/n", app.GetNamespaceHandler)
	r.Get("/n/", app.GetNamespaceHandler)

	r.Route("/n/{namespaceName}/b", func(r chi.Router) {
		r.Post("/", app.CreateBucketHandler)
		r.Get("/", app.ListBucketsHandler)

		r.Get("/{bucketName}", app.GetBucketHandler)
		r.Head("/{bucketName}", app.HeadBucketHandler)
		r.Delete("/{bucketName}", app.DeleteBucketHandler)

		r.Get("/{bucketName}/o", app.ListObjectsHandler)
		r.Get("/{bucketName}/o/", app.ListObjectsHandler)
		r.Put("/{bucketName}/o/*", app.PutObjectHandler)
		r.Get("/{bucketName}/o/*", app.GetObjectHandler)
		r.Head("/{bucketName}/o/*", app.HeadObjectHandler)
		r.Delete("/{bucketName}/o/*", app.DeleteObjectHandler)
	})
}

// GetNamespaceHandler returns the namespace as a bare JSON string.
func (app *App) GetNamespaceHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, app.Objects.Namespace(r.Context()))
}

func (app *App) CreateBucketHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBucketDetails
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		app.writeAPIError(w, r, models.InvalidParameter("invalid request body: %v", err))
		return
	}

	bucket, err := app.Objects.CreateBucket(r.Context(), chi.URLParam(r, "namespaceName"), &req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("etag", bucket.ETag)
	writeJSON(w, http.StatusOK, bucket)
}

func (app *App) ListBucketsHandler(w http.ResponseWriter, r *http.Request) {
	buckets, err := app.Objects.ListBuckets(r.Context(), chi.URLParam(r, "namespaceName"), r.URL.Query().Get("compartmentId"))
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, buckets)
}

func (app *App) GetBucketHandler(w http.ResponseWriter, r *http.Request) {
	bucket, err := app.Objects.GetBucket(r.Context(), chi.URLParam(r, "namespaceName"), chi.URLParam(r, "bucketName"))
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("etag", bucket.ETag)
	writeJSON(w, http.StatusOK, bucket)
}

func (app *App) HeadBucketHandler(w http.ResponseWriter, r *http.Request) {
	bucket, err := app.Objects.GetBucket(r.Context(), chi.URLParam(r, "namespaceName"), chi.URLParam(r, "bucketName"))
	if err != nil {
		w.WriteHeader(statusOf(err))
		return
	}
	w.Header().Set("etag", bucket.ETag)
	w.WriteHeader(http.StatusOK)
}

func (app *App) DeleteBucketHandler(w http.ResponseWriter, r *http.Request) {
	if err := app.Objects.DeleteBucket(r.Context(), chi.URLParam(r, "namespaceName"), chi.URLParam(r, "bucketName")); err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) ListObjectsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	q := r.URL.Query()
	req := &models.ListObjectsRequest{
		Namespace:  chi.URLParam(r, "namespaceName"),
		BucketName: chi.URLParam(r, "bucketName"),
		Prefix:     q.Get("prefix"),
		Start:      q.Get("start"),
		End:        q.Get("end"),
		Limit:      limit,
		Delimiter:  q.Get("delimiter"),
	}

	res, err := app.Objects.ListObjects(r.Context(), req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// PutObjectHandler stores the raw request body together with its content headers
// and any opc-meta-* user metadata.
func (app *App) PutObjectHandler(w http.ResponseWriter, r *http.Request) {
	name, err := objectName(r)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		app.writeAPIError(w, r, models.InvalidParameter("failed to read request body: %v", err))
		return
	}

	req := &models.PutObjectRequest{
		Namespace:          chi.URLParam(r, "namespaceName"),
		BucketName:         chi.URLParam(r, "bucketName"),
		ObjectName:         name,
		Body:               body,
		ContentType:        r.Header.Get("Content-Type"),
		CacheControl:       r.Header.Get("Cache-Control"),
		ContentDisposition: r.Header.Get("Content-Disposition"),
		ContentEncoding:    r.Header.Get("Content-Encoding"),
		ContentLanguage:    r.Header.Get("Content-Language"),
		ContentMD5:         r.Header.Get("Content-MD5"),
		Metadata:           metadataFrom(r.Header),
		SSECustomerKey:     sseKeyFrom(r.Header),
	}
	obj, err := app.Objects.PutObject(r.Context(), req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	h := w.Header()
	h.Set("etag", obj.ETag)
	h.Set("opc-content-md5", obj.MD5)
	h.Set("last-modified", obj.TimeModified.Format(http.TimeFormat))
	setSSEHeaders(h, obj)
	w.WriteHeader(http.StatusOK)
}

func (app *App) GetObjectHandler(w http.ResponseWriter, r *http.Request) {
	obj, err := app.fetchObject(r)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	writeObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
	w.Write(obj.Body)
}

func (app *App) HeadObjectHandler(w http.ResponseWriter, r *http.Request) {
	obj, err := app.fetchObject(r)
	if err != nil {
		w.WriteHeader(statusOf(err))
		return
	}
	writeObjectHeaders(w, obj)
	w.WriteHeader(http.StatusOK)
}

func (app *App) DeleteObjectHandler(w http.ResponseWriter, r *http.Request) {
	name, err := objectName(r)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	if err := app.Objects.DeleteObject(r.Context(), chi.URLParam(r, "namespaceName"), chi.URLParam(r, "bucketName"), name); err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) fetchObject(r *http.Request) (*models.Object, error) {
	name, err := objectName(r)
	if err != nil {
		return nil, err
	}
	return app.Objects.GetObject(r.Context(), &models.GetObjectRequest{
		Namespace:      chi.URLParam(r, "namespaceName"),
		BucketName:     chi.URLParam(r, "bucketName"),
		ObjectName:     name,
		SSECustomerKey: sseKeyFrom(r.Header),
	})
}

// objectName returns the wildcard tail of an object route. chi matches on the raw
// path when the request carries escaped characters, so the tail is unescaped here.
func objectName(r *http.Request) (string, error) {
	name := chi.URLParam(r, "*")
	if r.URL.RawPath != "" {
		unescaped, err := url.PathUnescape(name)
		if err != nil {
			return "", models.InvalidParameter("invalid object name %q", name)
		}
		name = unescaped
	}
	if name == "" {
		return "", models.InvalidParameter("object name cannot be empty")
	}
	return name, nil
}

func metadataFrom(h http.Header) map[string]string {
	meta := make(map[string]string)
	for k, v := range h {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, metadataHeaderPrefix) && len(v) > 0 {
			meta[strings.TrimPrefix(lk, metadataHeaderPrefix)] = v[0]
		}
	}
	return meta
}

// sseKeyFrom returns the customer-provided key headers, or nil when the request
// sends neither an algorithm nor a key.
func sseKeyFrom(h http.Header) *models.SSECustomerKey {
	algorithm, key := h.Get(sseAlgorithmHeader), h.Get(sseKeyHeader)
	if algorithm == "" && key == "" {
		return nil
	}
	return &models.SSECustomerKey{
		Algorithm: algorithm,
		Key:       key,
		KeySHA256: h.Get(sseKeySHA256Header),
	}
}

func setSSEHeaders(h http.Header, obj *models.Object) {
	if obj.SSEKeySHA256 != "" {
		h.Set(sseAlgorithmHeader, kms.AlgorithmAES256)
		h.Set(sseKeySHA256Header, obj.SSEKeySHA256)
	}
}

func writeObjectHeaders(w http.ResponseWriter, obj *models.Object) {
	h := w.Header()
	h.Set("Content-Type", obj.ContentType)
	h.Set("Content-Length", strconv.Itoa(len(obj.Body)))
	h.Set("etag", obj.ETag)
	h.Set("opc-content-md5", obj.MD5)
	h.Set("last-modified", obj.TimeModified.Format(http.TimeFormat))
	setIfPresent(h, "Cache-Control", obj.CacheControl)
	setIfPresent(h, "Content-Disposition", obj.ContentDisposition)
	setIfPresent(h, "Content-Encoding", obj.ContentEncoding)
	setIfPresent(h, "Content-Language", obj.ContentLanguage)
	for k, v := range obj.Metadata {
		h.Set(metadataHeaderPrefix+k, v)
	}
	setSSEHeaders(h, obj)
}

func setIfPresent(h http.Header, key, value string) {
	if value != "" {
		h.Set(key, value)
	}
}

func statusOf(err error) int {
	var apiErr *models.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status()
	}
	return http.StatusInternalServerError
}
