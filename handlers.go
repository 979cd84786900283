package main

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tabeth/concreteoci/models"
	"github.com/tabeth/concreteoci/service"
)

// App encapsulates the application's dependencies. Handlers only decode requests,
// call a service and encode the result; every domain decision lives in the services.
type App struct {
	Tables  service.TableServicer
	Objects service.ObjectStorageServicer
	Logger  *slog.Logger
}

// writeAPIError sends the OCI error body. Non-API errors are reported as internal.
func (app *App) writeAPIError(w http.ResponseWriter, r *http.Request, err error) {
	var apiErr *models.APIError
	if !errors.As(err, &apiErr) {
		apiErr = models.Internal("%v", err)
	}
	status := apiErr.Status()
	if status >= http.StatusInternalServerError && app.Logger != nil {
		app.Logger.ErrorContext(r.Context(), "request failed", "error", err, "path", r.URL.Path)
	}
	writeJSON(w, status, models.ErrorResponse{Code: apiErr.Code, Message: apiErr.Message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

// decodeJSON reads a request body, keeping numbers as json.Number so integer
// precision survives until the schema decides the type.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return models.InvalidParameter("request body is required")
		}
		return models.InvalidParameter("invalid request body: %v", err)
	}
	return nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, models.InvalidParameter("%s must be an integer", name)
	}
	return n, nil
}

func queryBool(r *http.Request, name string) bool {
	b, _ := strconv.ParseBool(r.URL.Query().Get(name))
	return b
}

// RegisterNoSQLHandlers registers the NoSQL table, row and query endpoints.
func (app *App) RegisterNoSQLHandlers(r chi.Router) {
	r.Route("/20190828", func(r chi.Router) {
		r.Post("/tables", app.CreateTableHandler)
		r.Get("/tables", app.ListTablesHandler)
		r.Get("/tables/{tableNameOrId}", app.GetTableHandler)
		r.Delete("/tables/{tableNameOrId}", app.DeleteTableHandler)

		r.Put("/tables/{tableNameOrId}/rows", app.UpdateRowHandler)
		r.Get("/tables/{tableNameOrId}/rows", app.GetRowHandler)
		r.Delete("/tables/{tableNameOrId}/rows", app.DeleteRowHandler)

		r.Post("/query", app.QueryHandler)
	})
}

// CreateTableHandler handles requests to create a table from a DDL statement.
func (app *App) CreateTableHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateTableDetails
	if err := decodeJSON(r, &req); err != nil {
		app.writeAPIError(w, r, err)
		return
	}

	table, err := app.Tables.CreateTable(r.Context(), &req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("opc-work-request-id", models.NewOCID("nosqlworkrequest"))
	writeJSON(w, http.StatusOK, table)
}

func (app *App) ListTablesHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit")
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	q := r.URL.Query()
	req := &models.ListTablesRequest{
		CompartmentID:  q.Get("compartmentId"),
		Name:           q.Get("name"),
		LifecycleState: q.Get("lifecycleState"),
		Limit:          limit,
		Page:           q.Get("page"),
	}

	tables, next, err := app.Tables.ListTables(r.Context(), req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	if next != "" {
		w.Header().Set("opc-next-page", next)
	}
	writeJSON(w, http.StatusOK, tables)
}

func (app *App) GetTableHandler(w http.ResponseWriter, r *http.Request) {
	table, err := app.Tables.GetTable(r.Context(), chi.URLParam(r, "tableNameOrId"), r.URL.Query().Get("compartmentId"))
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("etag", table.ID)
	writeJSON(w, http.StatusOK, table)
}

// DeleteTableHandler drops a table and its rows. isIfExists turns a missing table into a no-op.
func (app *App) DeleteTableHandler(w http.ResponseWriter, r *http.Request) {
	err := app.Tables.DeleteTable(r.Context(),
		chi.URLParam(r, "tableNameOrId"),
		r.URL.Query().Get("compartmentId"),
		queryBool(r, "isIfExists"),
	)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	w.Header().Set("opc-work-request-id", models.NewOCID("nosqlworkrequest"))
	w.WriteHeader(http.StatusNoContent)
}

func (app *App) UpdateRowHandler(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateRowDetails
	if err := decodeJSON(r, &req); err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	if req.CompartmentID == "" {
		req.CompartmentID = r.URL.Query().Get("compartmentId")
	}

	res, err := app.Tables.UpdateRow(r.Context(), chi.URLParam(r, "tableNameOrId"), &req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	if res.Version != nil {
		w.Header().Set("etag", *res.Version)
	}
	writeJSON(w, http.StatusOK, res)
}

// GetRowHandler looks a row up by repeated key=column:value parameters. A key that
// matches nothing yields {"value": null}, never a 404.
func (app *App) GetRowHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.GetRowRequest{
		TableNameOrID: chi.URLParam(r, "tableNameOrId"),
		CompartmentID: q.Get("compartmentId"),
		Key:           q["key"],
	}

	row, err := app.Tables.GetRow(r.Context(), req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (app *App) DeleteRowHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := &models.DeleteRowRequest{
		TableNameOrID:  chi.URLParam(r, "tableNameOrId"),
		CompartmentID:  q.Get("compartmentId"),
		Key:            q["key"],
		IsGetReturnRow: queryBool(r, "isGetReturnRow"),
	}

	res, err := app.Tables.DeleteRow(r.Context(), req)
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// QueryHandler runs a SELECT statement. limit and page on the query string page the result.
func (app *App) QueryHandler(w http.ResponseWriter, r *http.Request) {
	var details models.QueryDetails
	if err := decodeJSON(r, &details); err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}

	res, err := app.Tables.Query(r.Context(), &models.QueryRequest{
		Details: details,
		Limit:   limit,
		Page:    r.URL.Query().Get("page"),
	})
	if err != nil {
		app.writeAPIError(w, r, err)
		return
	}
	if res.NextPage != "" {
		w.Header().Set("opc-next-page", res.NextPage)
	}
	writeJSON(w, http.StatusOK, res)
}

// HealthHandler reports liveness.
func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}
