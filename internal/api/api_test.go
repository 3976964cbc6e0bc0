package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"govconnect/internal/nav"
	"govconnect/internal/reference"
	"govconnect/internal/schema"
	"govconnect/internal/store"
	"govconnect/internal/store/sqlstore"
	"govconnect/internal/ui"
)

func newTestApp(t *testing.T, st store.Store) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := zaptest.NewLogger(t)
	cat := reference.DefaultCatalog()
	binder := nav.NewBinder(nav.NewRegistry(cat), st, cat, log)
	require.NoError(t, binder.Boot(context.Background()))
	tpl, err := ui.Templates()
	require.NoError(t, err)
	return NewApp(st, binder, log, Options{Templates: tpl}).Router()
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	e, ok := decode(t, w)["error"].(map[string]any)
	require.True(t, ok, w.Body.String())
	return e["code"].(string)
}

func createFarmers(t *testing.T, r http.Handler) {
	t.Helper()
	w := doJSON(t, r, http.MethodPost, "/api/admin/dynamic/tables", map[string]any{
		"table_name": "farmers",
		"fields":     []string{"name", "plotSize", "aadhaar"},
		"data_types": []string{"string", "float", "string"},
		"show_ui":    []bool{true, true, false},
		"required":   []bool{true, true, false},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestFarmersScenarioOverREST(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())
	createFarmers(t, r)

	w := doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/farmers/metadata", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"table_name":"farmers","fields":[
		{"field_name":"name","data_type":"string","show_ui":true,"required":true},
		{"field_name":"plotSize","data_type":"float","show_ui":true,"required":true},
		{"field_name":"aadhaar","data_type":"string","show_ui":false,"required":false}]}`, w.Body.String())

	w = doJSON(t, r, http.MethodPost, "/api/admin/dynamic/tables/farmers/data", map[string]any{"name": "Ravi", "plotSize": "4.5", "aadhaar": "1234"})
	require.Equal(t, http.StatusCreated, w.Code)
	created := decode(t, w)
	assert.Equal(t, 4.5, created["plotSize"])
	assert.EqualValues(t, 1, created["id"])

	w = doJSON(t, r, http.MethodPost, "/api/admin/dynamic/tables/farmers/data", map[string]any{"name": "Anu", "plotSize": ""})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 0.0, decode(t, w)["plotSize"])

	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/farmers/data", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["ui_only"])
	data := body["data"].([]any)
	require.Len(t, data, 2)
	assert.NotContains(t, data[0].(map[string]any), "aadhaar")

	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/farmers/data?ui_only=false", nil)
	data = decode(t, w)["data"].([]any)
	assert.Equal(t, "1234", data[0].(map[string]any)["aadhaar"])

	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/farmers/data?q=RAV&field=name", nil)
	assert.Len(t, decode(t, w)["data"].([]any), 1)
}

func TestUpdateAndDeleteRecords(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())
	createFarmers(t, r)
	doJSON(t, r, http.MethodPost, "/api/admin/dynamic/tables/farmers/data", map[string]any{"name": "Ravi", "plotSize": 2})

	w := doJSON(t, r, http.MethodPut, "/api/admin/dynamic/tables/farmers/data/1", map[string]any{"name": "Ravi K", "plotSize": "3.25"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/farmers/data/1", nil)
	assert.Equal(t, 3.25, decode(t, w)["plotSize"])

	w = doJSON(t, r, http.MethodPut, "/api/admin/dynamic/tables/farmers/data/9", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "not_found", errorCode(t, w))

	w = doJSON(t, r, http.MethodDelete, "/api/admin/dynamic/tables/farmers/data/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/admin/dynamic/tables/farmers/data/1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/admin/dynamic/tables/farmers/data/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_error", errorCode(t, w))
}

func TestCreateTableErrors(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())
	createFarmers(t, r)

	cases := []struct {
		name   string
		body   map[string]any
		status int
		code   string
	}{
		{"duplicate", map[string]any{"table_name": "FARMERS", "fields": []string{"a"}, "data_types": []string{"int"}}, 409, "duplicate_name"},
		{"no fields", map[string]any{"table_name": "empty", "fields": []string{}, "data_types": []string{}}, 400, "validation_error"},
		{"blank field", map[string]any{"table_name": "t1", "fields": []string{" "}, "data_types": []string{"int"}}, 400, "validation_error"},
		{"dup field", map[string]any{"table_name": "t2", "fields": []string{"a", "A"}, "data_types": []string{"int", "int"}}, 400, "validation_error"},
		{"arrays mismatch", map[string]any{"table_name": "t3", "fields": []string{"a", "b"}, "data_types": []string{"int"}}, 400, "validation_error"},
		{"bad type", map[string]any{"table_name": "t4", "fields": []string{"a"}, "data_types": []string{"money"}}, 400, "validation_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doJSON(t, r, http.MethodPost, "/api/admin/dynamic/tables", tc.body)
			assert.Equal(t, tc.status, w.Code, w.Body.String())
			assert.Equal(t, tc.code, errorCode(t, w))
		})
	}

	req := httptest.NewRequest(http.MethodPost, "/api/admin/dynamic/tables", strings.NewReader("{"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeletionFinality(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())
	createFarmers(t, r)

	w := doJSON(t, r, http.MethodDelete, "/api/admin/dynamic/tables/farmers/fields/aadhaar", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodDelete, "/api/admin/dynamic/tables/farmers/fields/aadhaar", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, r, http.MethodDelete, "/api/admin/dynamic/tables/farmers", nil)
	require.Equal(t, http.StatusOK, w.Code)

	for _, probe := range []struct{ method, path string }{
		{http.MethodGet, "/api/admin/dynamic/tables/farmers/metadata"},
		{http.MethodGet, "/api/admin/dynamic/tables/farmers/data"},
		{http.MethodPost, "/api/admin/dynamic/tables/farmers/data"},
		{http.MethodDelete, "/api/admin/dynamic/tables/farmers"},
	} {
		w := doJSON(t, r, probe.method, probe.path, map[string]any{})
		assert.Equal(t, http.StatusNotFound, w.Code, probe.path)
		assert.Equal(t, "not_found", errorCode(t, w))
	}
}

func TestSectionLifecycle(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())

	w := doJSON(t, r, http.MethodPost, "/api/admin/sections", map[string]any{
		"title":      "Farmer Registry",
		"icon":       "Sprout",
		"table_name": "farmers",
		"fields": []map[string]any{
			{"name": "name", "type": "string", "required": true, "visible": true},
			{"name": "plotSize", "type": "float", "visible": true},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sec := decode(t, w)["section"].(map[string]any)
	id := sec["id"].(string)
	assert.Equal(t, "farmer-registry", sec["route"])

	w = doJSON(t, r, http.MethodGet, "/api/nav/menu", nil)
	assert.Contains(t, w.Body.String(), `"path":"/farmer-registry"`)

	w = doJSON(t, r, http.MethodPost, "/api/admin/sections", map[string]any{
		"title": "farmer registry", "table_name": "farmers2",
		"fields": []map[string]any{{"name": "x", "type": "int"}},
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/farmers2/metadata", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "rejected section leaves no table behind")

	w = doJSON(t, r, http.MethodDelete, "/api/admin/sections/"+id+"?keep_table=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/orphans", nil)
	assert.JSONEq(t, `{"tables":["farmers"]}`, w.Body.String())

	w = doJSON(t, r, http.MethodDelete, "/api/admin/sections/healthcare", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRemoveSectionDropsTable(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())
	w := doJSON(t, r, http.MethodPost, "/api/admin/sections", map[string]any{
		"title": "Water Supply", "fields": []map[string]any{{"name": "village", "type": "string", "visible": true}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	id := decode(t, w)["section"].(map[string]any)["id"].(string)

	w = doJSON(t, r, http.MethodDelete, "/api/admin/sections/"+id, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/water_supply/metadata", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = doJSON(t, r, http.MethodGet, "/water-supply", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

// downStore - хранилище, до которого нельзя достучаться.
type downStore struct{ *store.MemoryStore }

var errDial = &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}

func (downStore) List(context.Context, string, store.ListOptions) ([]*schema.Record, error) {
	return nil, schema.Unavailable(errDial)
}

func TestUnavailableIsNotNotFound(t *testing.T) {
	r := newTestApp(t, downStore{store.NewMemoryStore()})
	w := doJSON(t, r, http.MethodGet, "/api/admin/dynamic/tables/anything/data", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", errorCode(t, w))
}

func TestHealthzReportsSQLOutage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	// Boot читает список таблиц, затем healthz
	mock.ExpectQuery(`select "table_name" from "dynamic_tables"`).WillReturnRows(sqlmock.NewRows([]string{"table_name"}))
	mock.ExpectQuery(`select "table_name" from "dynamic_tables"`).WillReturnError(errDial)

	st := sqlstore.New(db, sqlstore.Postgres, zaptest.NewLogger(t))
	r := newTestApp(t, st)
	w := doJSON(t, r, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "unavailable", errorCode(t, w))
}

func postForm(r http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestSectionPages(t *testing.T) {
	r := newTestApp(t, store.NewMemoryStore())
	w := doJSON(t, r, http.MethodPost, "/api/admin/sections", map[string]any{
		"title": "Farmer Registry", "table_name": "farmers",
		"fields": []map[string]any{
			{"name": "name", "type": "string", "required": true, "visible": true},
			{"name": "plotSize", "type": "float", "visible": true},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = get(r, "/farmer-registry")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "No records found. Add your first record!")

	// обязательное поле пустое: 400, введённое значение остаётся в форме
	w = postForm(r, "/farmer-registry", url.Values{"name": {""}, "plotSize": {"7.5"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `value="7.5"`)

	w = postForm(r, "/farmer-registry", url.Values{"name": {"Ravi"}, "plotSize": {"4.5"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/farmer-registry?saved=1", w.Header().Get("Location"))

	w = get(r, "/farmer-registry?q=nobody")
	assert.Contains(t, w.Body.String(), "No records match your search.")

	w = get(r, "/farmer-registry?edit=1")
	assert.Contains(t, w.Body.String(), `action="/farmer-registry/edit/1"`)
	assert.Contains(t, w.Body.String(), `value="Ravi"`)

	w = postForm(r, "/farmer-registry/edit/1", url.Values{"name": {"Ravi K"}, "plotSize": {"5"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	// запись удалили, пока её редактировали: ввод остаётся на странице
	w = postForm(r, "/farmer-registry", url.Values{"name": {"Anu"}, "plotSize": {"2"}})
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = postForm(r, "/farmer-registry/delete/2", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = postForm(r, "/farmer-registry/edit/2", url.Values{"name": {"Anu Devi"}, "plotSize": {"3.25"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), `value="Anu Devi"`)
	assert.Contains(t, w.Body.String(), `value="3.25"`)
	assert.Contains(t, w.Body.String(), `action="/farmer-registry"`)
	assert.Contains(t, w.Body.String(), "Ravi K")

	w = get(r, "/farmer-registry?confirm_delete=1")
	assert.Contains(t, w.Body.String(), `action="/farmer-registry/delete/1"`)
	assert.Contains(t, w.Body.String(), "Ravi K")

	w = postForm(r, "/farmer-registry/delete/1", nil)
	require.Equal(t, http.StatusSeeOther, w.Code)
	w = get(r, "/farmer-registry")
	assert.Contains(t, w.Body.String(), "No records found. Add your first record!")

	assert.Equal(t, http.StatusOK, get(r, "/healthcare").Code)
	assert.Equal(t, http.StatusNotFound, get(r, "/nowhere").Code)
	assert.Equal(t, http.StatusOK, get(r, "/").Code)
}

// flakyStore - таблицы на месте, но записи прочитать нельзя.
type flakyStore struct{ *store.MemoryStore }

func (flakyStore) Get(context.Context, string, int64) (*schema.Record, error) {
	return nil, schema.Unavailable(errDial)
}

func (flakyStore) List(context.Context, string, store.ListOptions) ([]*schema.Record, error) {
	return nil, schema.Unavailable(errDial)
}

func TestEditSubmitKeepsInputWhenStoreIsDown(t *testing.T) {
	r := newTestApp(t, flakyStore{store.NewMemoryStore()})
	w := doJSON(t, r, http.MethodPost, "/api/admin/sections", map[string]any{
		"title": "Farmer Registry", "table_name": "farmers",
		"fields": []map[string]any{{"name": "name", "type": "string", "required": true, "visible": true}},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	w = postForm(r, "/farmer-registry/edit/1", url.Values{"name": {"Ravi K"}})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `value="Ravi K"`)
	assert.Contains(t, body, `action="/farmer-registry/edit/1"`)
	assert.Contains(t, body, "temporarily unavailable")
	assert.NotContains(t, body, "No records found")
}
