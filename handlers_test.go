package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/tabeth/concreteoci/models"
)

func newMockRouter(tables *MockTableService, objects *MockObjectService) *chi.Mux {
	app := &App{Tables: tables, Objects: objects}
	r := chi.NewRouter()
	app.RegisterNoSQLHandlers(r)
	app.RegisterObjectStorageHandlers(r)
	return r
}

func serve(r http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func TestCreateTableHandler(t *testing.T) {
	tests := []struct {
		name               string
		inputBody          string
		mockSetup          func(*MockTableService)
		expectedStatusCode int
		expectedCode       string
	}{
		{
			name:      "Success",
			inputBody: `{"name":"users","compartmentId":"c1","ddlStatement":"CREATE TABLE users (id INTEGER, PRIMARY KEY(id))"}`,
			mockSetup: func(ms *MockTableService) {
				ms.On("CreateTable", mock.Anything, mock.MatchedBy(func(d *models.CreateTableDetails) bool {
					return d.Name == "users" && d.CompartmentID == "c1"
				})).Return(&models.TableDetails{ID: "ocid1.nosqltable.oc1..abc", Name: "users", LifecycleState: "ACTIVE"}, nil)
			},
			expectedStatusCode: http.StatusOK,
		},
		{
			name:               "Malformed JSON",
			inputBody:          `{"name":`,
			mockSetup:          func(ms *MockTableService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedCode:       "InvalidParameter",
		},
		{
			name:               "Empty Body",
			inputBody:          ``,
			mockSetup:          func(ms *MockTableService) {},
			expectedStatusCode: http.StatusBadRequest,
			expectedCode:       "InvalidParameter",
		},
		{
			name:      "Malformed DDL",
			inputBody: `{"name":"users","compartmentId":"c1","ddlStatement":"CREATE TABLE users"}`,
			mockSetup: func(ms *MockTableService) {
				ms.On("CreateTable", mock.Anything, mock.Anything).
					Return(nil, models.New(models.KindMalformedDDL, "InvalidParameter", "missing table details"))
			},
			expectedStatusCode: http.StatusBadRequest,
			expectedCode:       "InvalidParameter",
		},
		{
			name:      "Conflict",
			inputBody: `{"name":"users","compartmentId":"c1","ddlStatement":"CREATE TABLE users (id INTEGER, PRIMARY KEY(id))"}`,
			mockSetup: func(ms *MockTableService) {
				ms.On("CreateTable", mock.Anything, mock.Anything).
					Return(nil, models.New(models.KindConflict, "TableAlreadyExists", "table already exists"))
			},
			expectedStatusCode: http.StatusConflict,
			expectedCode:       "TableAlreadyExists",
		},
		{
			name:      "Unexpected Error",
			inputBody: `{"name":"users","compartmentId":"c1","ddlStatement":"x"}`,
			mockSetup: func(ms *MockTableService) {
				ms.On("CreateTable", mock.Anything, mock.Anything).Return(nil, assert.AnError)
			},
			expectedStatusCode: http.StatusInternalServerError,
			expectedCode:       "InternalServerError",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ms := new(MockTableService)
			tc.mockSetup(ms)

			rr := serve(newMockRouter(ms, nil), http.MethodPost, "/20190828/tables", []byte(tc.inputBody))

			assert.Equal(t, tc.expectedStatusCode, rr.Code)
			if tc.expectedCode != "" {
				var errResp models.ErrorResponse
				require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &errResp))
				assert.Equal(t, tc.expectedCode, errResp.Code)
				assert.NotEmpty(t, errResp.Message)
			} else {
				assert.NotEmpty(t, rr.Header().Get("opc-work-request-id"))
			}
			ms.AssertExpectations(t)
		})
	}
}

func TestListTablesHandler(t *testing.T) {
	ms := new(MockTableService)
	ms.On("ListTables", mock.Anything, &models.ListTablesRequest{CompartmentID: "c1", Name: "us*", Limit: 2, Page: "2"}).
		Return(&models.TableCollection{Items: []models.TableSummary{{Name: "users"}}}, "4", nil)

	rr := serve(newMockRouter(ms, nil), http.MethodGet, "/20190828/tables?compartmentId=c1&name=us*&limit=2&page=2", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "4", rr.Header().Get("opc-next-page"))
	var body models.TableCollection
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Items, 1)
	assert.Equal(t, "users", body.Items[0].Name)
	ms.AssertExpectations(t)
}

func TestListTablesHandler_BadLimit(t *testing.T) {
	ms := new(MockTableService)
	rr := serve(newMockRouter(ms, nil), http.MethodGet, "/20190828/tables?compartmentId=c1&limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	ms.AssertNotCalled(t, "ListTables", mock.Anything, mock.Anything)
}

func TestGetTableHandler_NotFound(t *testing.T) {
	ms := new(MockTableService)
	ms.On("GetTable", mock.Anything, "users", "c1").Return(nil, models.NotFound("table users not found"))

	rr := serve(newMockRouter(ms, nil), http.MethodGet, "/20190828/tables/users?compartmentId=c1", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"code":"NotAuthorizedOrNotFound","message":"table users not found"}`, rr.Body.String())
}

func TestDeleteTableHandler(t *testing.T) {
	ms := new(MockTableService)
	ms.On("DeleteTable", mock.Anything, "users", "c1", true).Return(nil)

	rr := serve(newMockRouter(ms, nil), http.MethodDelete, "/20190828/tables/users?compartmentId=c1&isIfExists=true", nil)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, rr.Body.String())
	ms.AssertExpectations(t)
}

func TestUpdateRowHandler(t *testing.T) {
	t.Run("CompartmentFromQuery", func(t *testing.T) {
		ms := new(MockTableService)
		version := "v1"
		ms.On("UpdateRow", mock.Anything, "users", mock.MatchedBy(func(d *models.UpdateRowDetails) bool {
			return d.CompartmentID == "c1" && d.Value["id"] == json.Number("7")
		})).Return(&models.UpdateRowResult{Version: &version}, nil)

		rr := serve(newMockRouter(ms, nil), http.MethodPut, "/20190828/tables/users/rows?compartmentId=c1", []byte(`{"value":{"id":7}}`))

		assert.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "v1", rr.Header().Get("etag"))
		assert.JSONEq(t, `{"version":"v1","usage":{"readUnitsConsumed":0,"writeUnitsConsumed":0}}`, rr.Body.String())
		ms.AssertExpectations(t)
	})

	t.Run("SchemaViolation", func(t *testing.T) {
		ms := new(MockTableService)
		ms.On("UpdateRow", mock.Anything, "users", mock.Anything).
			Return(nil, models.New(models.KindSchemaViolation, "InvalidParameter", "missing primary key field id"))

		rr := serve(newMockRouter(ms, nil), http.MethodPut, "/20190828/tables/users/rows", []byte(`{"compartmentId":"c1","value":{"name":"x"}}`))

		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})
}

func TestGetRowHandler_PassesRepeatedKeys(t *testing.T) {
	ms := new(MockTableService)
	ms.On("GetRow", mock.Anything, &models.GetRowRequest{
		TableNameOrID: "users",
		CompartmentID: "c1",
		Key:           []string{"id:1", "other:x"},
	}).Return(&models.RowResult{}, nil)

	rr := serve(newMockRouter(ms, nil), http.MethodGet, "/20190828/tables/users/rows?compartmentId=c1&key=id:1&key=other:x", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"value":null,"usage":{"readUnitsConsumed":0,"writeUnitsConsumed":0}}`, rr.Body.String())
	ms.AssertExpectations(t)
}

func TestDeleteRowHandler(t *testing.T) {
	ms := new(MockTableService)
	ms.On("DeleteRow", mock.Anything, &models.DeleteRowRequest{
		TableNameOrID:  "users",
		CompartmentID:  "c1",
		Key:            []string{"id:1"},
		IsGetReturnRow: true,
	}).Return(&models.DeleteRowResult{IsSuccess: true, ExistingValue: map[string]any{"id": 1}}, nil)

	rr := serve(newMockRouter(ms, nil), http.MethodDelete, "/20190828/tables/users/rows?compartmentId=c1&key=id:1&isGetReturnRow=true", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"isSuccess":true,"existingValue":{"id":1},"usage":{"readUnitsConsumed":0,"writeUnitsConsumed":0}}`, rr.Body.String())
}

func TestQueryHandler(t *testing.T) {
	ms := new(MockTableService)
	ms.On("Query", mock.Anything, &models.QueryRequest{
		Details: models.QueryDetails{CompartmentID: "c1", Statement: "SELECT * FROM users"},
		Limit:   1,
	}).Return(&models.QueryResultCollection{Items: []map[string]any{{"id": 1}}, NextPage: "1"}, nil)

	body := []byte(`{"compartmentId":"c1","statement":"SELECT * FROM users"}`)
	rr := serve(newMockRouter(ms, nil), http.MethodPost, "/20190828/query?limit=1", body)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "1", rr.Header().Get("opc-next-page"))
	assert.JSONEq(t, `{"items":[{"id":1}],"usage":{"readUnitsConsumed":0,"writeUnitsConsumed":0}}`, rr.Body.String())
	ms.AssertExpectations(t)
}

func TestGetNamespaceHandler(t *testing.T) {
	for _, path := range []string{"/n", "/n/"} {
		mo := new(MockObjectService)
		mo.On("Namespace", mock.Anything).Return("namespace_name")

		rr := serve(newMockRouter(nil, mo), http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, rr.Code, path)
		assert.JSONEq(t, `"namespace_name"`, rr.Body.String(), path)
	}
}

func TestBucketRoutes_TrailingSlash(t *testing.T) {
	for _, path := range []string{"/n/ns/b/", "/n/ns/b"} {
		mo := new(MockObjectService)
		mo.On("ListBuckets", mock.Anything, "ns", "c1").Return([]models.BucketSummary{{Name: "b1"}}, nil)

		rr := serve(newMockRouter(nil, mo), http.MethodGet, path+"?compartmentId=c1", nil)

		assert.Equal(t, http.StatusOK, rr.Code, path)
		mo.AssertExpectations(t)
	}
}

func TestPutObjectHandler_ForwardsHeaders(t *testing.T) {
	mo := new(MockObjectService)
	modified := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	mo.On("PutObject", mock.Anything, mock.MatchedBy(func(req *models.PutObjectRequest) bool {
		return req.Namespace == "ns" &&
			req.BucketName == "bucket" &&
			req.ObjectName == "folder/file.txt" &&
			string(req.Body) == "hello" &&
			req.ContentType == "text/plain" &&
			req.CacheControl == "no-cache" &&
			req.Metadata["owner"] == "alice"
	})).Return(&models.Object{ETag: "etag-1", MD5: "md5==", TimeModified: modified}, nil)

	req := httptest.NewRequest(http.MethodPut, "/n/ns/b/bucket/o/folder/file.txt", bytes.NewBufferString("hello"))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("opc-meta-owner", "alice")
	rr := httptest.NewRecorder()
	newMockRouter(nil, mo).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "etag-1", rr.Header().Get("etag"))
	assert.Equal(t, "md5==", rr.Header().Get("opc-content-md5"))
	assert.Equal(t, modified.Format(http.TimeFormat), rr.Header().Get("last-modified"))
	mo.AssertExpectations(t)
}

func TestGetObjectHandler(t *testing.T) {
	mo := new(MockObjectService)
	mo.On("GetObject", mock.Anything, &models.GetObjectRequest{Namespace: "ns", BucketName: "bucket", ObjectName: "a b.txt"}).Return(&models.Object{
		Name:            "a b.txt",
		Body:            []byte("payload"),
		ContentType:     "text/plain",
		ContentLanguage: "en",
		ETag:            "etag-2",
		MD5:             "md5==",
		Metadata:        map[string]string{"k": "v"},
	}, nil)

	rr := serve(newMockRouter(nil, mo), http.MethodGet, "/n/ns/b/bucket/o/a%20b.txt", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "payload", rr.Body.String())
	assert.Equal(t, "text/plain", rr.Header().Get("Content-Type"))
	assert.Equal(t, "en", rr.Header().Get("Content-Language"))
	assert.Equal(t, "7", rr.Header().Get("Content-Length"))
	assert.Equal(t, "v", rr.Header().Get("opc-meta-k"))
}

func TestHeadObjectHandler_NotFound(t *testing.T) {
	mo := new(MockObjectService)
	mo.On("GetObject", mock.Anything, &models.GetObjectRequest{Namespace: "ns", BucketName: "bucket", ObjectName: "missing"}).Return(nil, models.NotFound("object missing"))

	rr := serve(newMockRouter(nil, mo), http.MethodHead, "/n/ns/b/bucket/o/missing", nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Empty(t, rr.Body.String())
}

func TestGetObjectHandler_ForwardsCustomerKey(t *testing.T) {
	mo := new(MockObjectService)
	want := &models.GetObjectRequest{
		Namespace:  "ns",
		BucketName: "bucket",
		ObjectName: "secret",
		SSECustomerKey: &models.SSECustomerKey{
			Algorithm: "AES256",
			Key:       "a2V5",
			KeySHA256: "ZGlnZXN0",
		},
	}
	mo.On("GetObject", mock.Anything, want).Return(&models.Object{
		Name:         "secret",
		Body:         []byte("plain"),
		SSEKeySHA256: "ZGlnZXN0",
	}, nil)

	req := httptest.NewRequest(http.MethodGet, "/n/ns/b/bucket/o/secret", nil)
	req.Header.Set("opc-sse-customer-algorithm", "AES256")
	req.Header.Set("opc-sse-customer-key", "a2V5")
	req.Header.Set("opc-sse-customer-key-sha256", "ZGlnZXN0")
	rr := httptest.NewRecorder()
	newMockRouter(nil, mo).ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "plain", rr.Body.String())
	assert.Equal(t, "AES256", rr.Header().Get("opc-sse-customer-algorithm"))
	assert.Equal(t, "ZGlnZXN0", rr.Header().Get("opc-sse-customer-key-sha256"))
	mo.AssertExpectations(t)
}

func TestDeleteBucketHandler_NotEmpty(t *testing.T) {
	mo := new(MockObjectService)
	mo.On("DeleteBucket", mock.Anything, "ns", "bucket").
		Return(models.New(models.KindConflict, "BucketNotEmpty", "bucket is not empty"))

	rr := serve(newMockRouter(nil, mo), http.MethodDelete, "/n/ns/b/bucket", nil)

	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Contains(t, rr.Body.String(), "BucketNotEmpty")
}
