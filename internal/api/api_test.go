package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KaramelBytes/tabinsight/internal/logging"
	"github.com/KaramelBytes/tabinsight/internal/metrics"
	"github.com/KaramelBytes/tabinsight/internal/profile"
	"github.com/KaramelBytes/tabinsight/internal/store"
)

const peopleCSV = "name,city,age\nann,Oslo,31\nbob,Rome,\ncy,Oslo,44\ndee,Lima,29\n"

func newTestServer(t *testing.T) (*Server, http.Handler) {
	t.Helper()
	st, err := store.Open(context.Background(), store.Options{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	srv := NewServer(st, profile.New(profile.DefaultOptions()), metrics.NewManager(), logging.Discard(), Config{
		AllowedOrigins: []string{"http://localhost:3000"},
	})
	return srv, srv.Handler()
}

func uploadRequest(t *testing.T, filename, content string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	req := httptest.NewRequest(http.MethodPost, "/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(h http.Handler, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var body map[string]any
	_ = json.Unmarshal(rec.Body.Bytes(), &body)
	return rec, body
}

func TestUploadAndListTables(t *testing.T) {
	_, h := newTestServer(t)

	rec, body := do(h, uploadRequest(t, "people list.csv", peopleCSV))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Table people_list created and data inserted successfully!", body["message"])
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	rec, body = do(h, uploadRequest(t, "people list.csv", peopleCSV))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Table people_list already exists", body["error"])

	rec, body = do(h, httptest.NewRequest(http.MethodGet, "/get_tables", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"people_list"}, body["tables"])
}

func TestUploadRejectsBadInput(t *testing.T) {
	_, h := newTestServer(t)

	rec, body := do(h, uploadRequest(t, "notes.txt", "hello"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Only CSV and XLSX files are supported", body["error"])

	req := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(""))
	rec, body = do(h, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "No file uploaded", body["error"])

	rec, _ = do(h, uploadRequest(t, "ragged.csv", "a,b\n1,2,3\n"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTableSchema(t *testing.T) {
	_, h := newTestServer(t)
	do(h, uploadRequest(t, "people.csv", peopleCSV))

	rec, body := do(h, httptest.NewRequest(http.MethodGet, "/table_schema?table_name=people", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"name", "city", "age"}, body["columns"])

	rec, body = do(h, httptest.NewRequest(http.MethodGet, "/table_schema", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Table name is required", body["error"])

	rec, _ = do(h, httptest.NewRequest(http.MethodGet, "/table_schema?table_name=ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestFilterData(t *testing.T) {
	_, h := newTestServer(t)
	do(h, uploadRequest(t, "people.csv", peopleCSV))

	payload := `{"table_name":"people","filters":{"city":"oslo","name":""},"page":"1","limit":1}`
	rec, body := do(h, httptest.NewRequest(http.MethodPost, "/filter_data", strings.NewReader(payload)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.EqualValues(t, 2, body["total_records"])
	data, ok := body["data"].([]any)
	require.True(t, ok)
	require.Len(t, data, 1)
	assert.Equal(t, "ann", data[0].(map[string]any)["name"])

	rec, _ = do(h, httptest.NewRequest(http.MethodPost, "/filter_data", strings.NewReader(`{"table_name":"people","filters":{"nope":"x"}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(h, httptest.NewRequest(http.MethodPost, "/filter_data", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = do(h, httptest.NewRequest(http.MethodPost, "/filter_data", strings.NewReader(`{"filters":{}}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Table name is required", body["error"])
}

func TestTableSummary(t *testing.T) {
	_, h := newTestServer(t)
	do(h, uploadRequest(t, "people.csv", peopleCSV))

	rec, body := do(h, httptest.NewRequest(http.MethodGet, "/table_summary?table_name=people", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["summary"].(map[string]any)
	city := summary["city"].([]any)
	require.Len(t, city, 3)
	assert.Equal(t, map[string]any{"city": "Oslo", "count": float64(2)}, city[0])

	age := summary["age"].([]any)
	assert.Len(t, age, 4)
}

func TestAnalyzeTable(t *testing.T) {
	_, h := newTestServer(t)
	do(h, uploadRequest(t, "people.csv", peopleCSV))

	rec, body := do(h, httptest.NewRequest(http.MethodGet, "/analyze_table?table_name=people", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "people", body["table"])
	assert.EqualValues(t, 4, body["rows"])
	assert.Equal(t, map[string]any{"age": float64(1)}, body["missing_data"])
	assert.Len(t, body["insights"], 3)

	rec, _ = do(h, httptest.NewRequest(http.MethodGet, "/analyze_table?table_name=ghost", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORSAndMetrics(t *testing.T) {
	_, h := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/upload", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", "POST")
	rec, _ := do(h, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("Origin", "http://evil.example")
	rec, _ = do(h, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tabinsight_http_requests_total{endpoint="healthz",method="GET",status_code="200"} 1`)
}

type brokenTables struct{ Tables }

func (brokenTables) ListTables(context.Context) ([]string, error) {
	return nil, errors.New("dial tcp 10.0.0.5:3306: connection refused")
}

func TestStoreFailureIsGeneric(t *testing.T) {
	srv := NewServer(brokenTables{}, profile.New(profile.DefaultOptions()), nil, logging.Discard(), Config{})
	rec, body := do(srv.Handler(), httptest.NewRequest(http.MethodGet, "/get_tables", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "internal error", body["error"])
	assert.NotContains(t, rec.Body.String(), "10.0.0.5")
}

func TestFlaggedByReason(t *testing.T) {
	rep := &profile.Report{Anomalies: []profile.AnomalyRecord{
		{Reasons: []profile.Reason{{Kind: profile.ReasonMissing}, {Kind: profile.ReasonDuplicate}}},
		{Reasons: []profile.Reason{{Kind: profile.ReasonImplausibleDate, Column: "a"}, {Kind: profile.ReasonImplausibleDate, Column: "b"}}},
	}}
	assert.Equal(t, map[string]int{"missing": 1, "duplicate": 1, "implausible_date": 1}, FlaggedByReason(rep))
}
