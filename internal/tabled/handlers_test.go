package tabled

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/config"
	"techtrack-backend/internal/db"
	"techtrack-backend/internal/tabular"
)

const testToken = "test-token"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	gormDB, err := db.Init(&config.DatabaseConfig{Driver: "sqlite", DSN: ":memory:"})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Upstream.Token = testToken

	router := NewRouter(cfg, NewStore(gormDB), log.New(io.Discard, "", 0))
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func call(t *testing.T, srv *httptest.Server, method, path, token string, body any) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, srv.URL+path, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, data
}

func TestWireProtocol(t *testing.T) {
	srv := newTestServer(t)

	// A new table gets its header.
	status, _ := call(t, srv, "PUT", "/v1/tables/Items/header", testToken,
		tabular.HeaderRequest{Header: []string{"item_id", "name", "status"}})
	assert.Equal(t, http.StatusCreated, status)

	// Re-putting the identical header is idempotent.
	status, _ = call(t, srv, "PUT", "/v1/tables/Items/header", testToken,
		tabular.HeaderRequest{Header: []string{"item_id", "name", "status"}})
	assert.Equal(t, http.StatusOK, status)

	// A different header is refused.
	status, body := call(t, srv, "PUT", "/v1/tables/Items/header", testToken,
		tabular.HeaderRequest{Header: []string{"something", "else"}})
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), "header")

	// Appends allocate consecutive row numbers starting at 2.
	status, body = call(t, srv, "POST", "/v1/tables/Items/rows", testToken,
		tabular.AppendRequest{Cells: []string{"ITM-00000001", "Drill", "available"}})
	require.Equal(t, http.StatusCreated, status, string(body))
	var row tabular.RowData
	require.NoError(t, json.Unmarshal(body, &row))
	assert.Equal(t, 2, row.Number)

	status, body = call(t, srv, "POST", "/v1/tables/Items/rows", testToken,
		tabular.AppendRequest{Cells: []string{"ITM-00000002", "Multimeter", "available"}})
	require.Equal(t, http.StatusCreated, status)
	require.NoError(t, json.Unmarshal(body, &row))
	assert.Equal(t, 3, row.Number)

	// Listing returns the header and both rows in order.
	status, body = call(t, srv, "GET", "/v1/tables/Items/rows", testToken, nil)
	require.Equal(t, http.StatusOK, status)
	var list tabular.ListResult
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, []string{"item_id", "name", "status"}, list.Header)
	require.Len(t, list.Rows, 2)
	assert.Equal(t, []string{"ITM-00000001", "Drill", "available"}, list.Rows[0].Cells)

	// Patch by column name, addressed by row number.
	status, body = call(t, srv, "PATCH", "/v1/tables/Items/rows/2", testToken,
		tabular.PatchRequest{Updates: map[string]string{"status": "in_use"}})
	require.Equal(t, http.StatusOK, status, string(body))

	status, body = call(t, srv, "GET", "/v1/tables/Items/rows", testToken, nil)
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, "in_use", list.Rows[0].Cells[2])
	assert.Equal(t, "available", list.Rows[1].Cells[2])
}

func TestWireProtocolErrors(t *testing.T) {
	srv := newTestServer(t)

	// Appending before the header exists is a caller bug.
	status, body := call(t, srv, "POST", "/v1/tables/Items/rows", testToken,
		tabular.AppendRequest{Cells: []string{"x"}})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), "no header")

	status, _ = call(t, srv, "PUT", "/v1/tables/Items/header", testToken,
		tabular.HeaderRequest{Header: []string{"item_id"}})
	require.Equal(t, http.StatusCreated, status)

	// Wider than the header.
	status, _ = call(t, srv, "POST", "/v1/tables/Items/rows", testToken,
		tabular.AppendRequest{Cells: []string{"a", "b"}})
	assert.Equal(t, http.StatusBadRequest, status)

	// Unknown column.
	status, _ = call(t, srv, "POST", "/v1/tables/Items/rows", testToken,
		tabular.AppendRequest{Cells: []string{"ITM-00000001"}})
	require.Equal(t, http.StatusCreated, status)
	status, _ = call(t, srv, "PATCH", "/v1/tables/Items/rows/2", testToken,
		tabular.PatchRequest{Updates: map[string]string{"nope": "x"}})
	assert.Equal(t, http.StatusBadRequest, status)

	// Missing row.
	status, _ = call(t, srv, "PATCH", "/v1/tables/Items/rows/99", testToken,
		tabular.PatchRequest{Updates: map[string]string{"item_id": "x"}})
	assert.Equal(t, http.StatusNotFound, status)

	// The header row is not patchable.
	status, _ = call(t, srv, "PATCH", "/v1/tables/Items/rows/1", testToken,
		tabular.PatchRequest{Updates: map[string]string{"item_id": "x"}})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = call(t, srv, "PATCH", "/v1/tables/Items/rows/abc", testToken,
		tabular.PatchRequest{Updates: map[string]string{"item_id": "x"}})
	assert.Equal(t, http.StatusBadRequest, status)

	// Table names are restricted to a safe charset.
	status, _ = call(t, srv, "GET", "/v1/tables/bad%20name/rows", testToken, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestBearerAuth(t *testing.T) {
	srv := newTestServer(t)

	status, _ := call(t, srv, "GET", "/v1/tables/Items/rows", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, srv, "GET", "/v1/tables/Items/rows", "wrong-token", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = call(t, srv, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
