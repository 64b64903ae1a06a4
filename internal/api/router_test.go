package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"techtrack-backend/config"
	"techtrack-backend/internal/auth"
	"techtrack-backend/internal/events"
	"techtrack-backend/internal/inventory"
	"techtrack-backend/internal/labels"
	"techtrack-backend/internal/model"
	"techtrack-backend/internal/notify"
	"techtrack-backend/internal/qrtag"
	"techtrack-backend/internal/record"
	"techtrack-backend/internal/roster"
	"techtrack-backend/internal/tabular"
	"techtrack-backend/internal/triage"
)

// memStore is an in-memory record.Store so handler tests run without the
// remote table backend.
type memStore struct {
	mu     sync.Mutex
	tables map[string][]tabular.Row
}

func newMemStore() *memStore {
	return &memStore{tables: make(map[string][]tabular.Row)}
}

func (s *memStore) Find(_ context.Context, table, keyCol, key string) (tabular.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.tables[table] {
		if row.Fields[keyCol] == key {
			return row, nil
		}
	}
	return tabular.Row{}, fmt.Errorf("%s %s=%q: %w", table, keyCol, key, record.ErrNotFound)
}

func (s *memStore) List(_ context.Context, table string) ([]tabular.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]tabular.Row(nil), s.tables[table]...), nil
}

func (s *memStore) Append(_ context.Context, table string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make(map[string]string, len(fields))
	for k, v := range fields {
		copied[k] = v
	}
	s.tables[table] = append(s.tables[table], tabular.Row{Number: len(s.tables[table]) + 2, Fields: copied})
	return nil
}

func (s *memStore) CompareAndUpdate(_ context.Context, table, keyCol, key string, expected, updates map[string]string) (record.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, row := range s.tables[table] {
		if row.Fields[keyCol] != key {
			continue
		}
		for col, want := range expected {
			if row.Fields[col] != want {
				return record.Conflict, nil
			}
		}
		for col, v := range updates {
			row.Fields[col] = v
		}
		return record.Updated, nil
	}
	return record.NotFound, nil
}

func (s *memStore) EnsureTables(context.Context) error { return nil }

type testEnv struct {
	router  *gin.Engine
	store   *memStore
	archive *labels.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := newMemStore()
	people := roster.New(store)
	_, err := people.SeedDemo(context.Background())
	require.NoError(t, err)

	logger := log.New(io.Discard, "", 0)
	archive := labels.NewMemory()
	hub := events.NewHub(logger)

	cfg := &config.Config{}
	cfg.ApplyDefaults()
	cfg.Server.RateLimitPerSec = 1000
	cfg.Server.RateLimitBurst = 1000
	cfg.Server.CacheTTLSeconds = 1

	router := NewRouter(cfg, Deps{
		Logger:  logger,
		Store:   store,
		Items:   inventory.NewEngine(store),
		Reports: triage.NewEngine(store),
		Roster:  people,
		Tokens:  auth.New("test-secret", time.Hour),
		Labels:  archive,
		Hub:     hub,
		Pool:    notify.NewWorkerPool(1, store, nil, logger),
	})

	return &testEnv{router: router, store: store, archive: archive}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) login(t *testing.T, name string) string {
	t.Helper()

	w := e.do(t, "POST", "/api/auth/login", "", gin.H{"name": name})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (e *testEnv) registerItem(t *testing.T, token, name, category string) model.Item {
	t.Helper()

	w := e.do(t, "POST", "/api/items", token, gin.H{"name": name, "category": category, "location": "Cabinet A"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var resp struct {
		Item    model.Item         `json:"item"`
		Payload model.LabelPayload `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, resp.Item.ItemID, resp.Payload.ItemID)
	return resp.Item
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "POST", "/api/auth/login", "", gin.H{"name": "Nobody Known"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"error":"unknown user"}`, w.Body.String())

	w = env.do(t, "POST", "/api/auth/login", "", gin.H{"name": "Ahmad Technician"})
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Token string     `json:"token"`
		User  model.User `json:"user"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, model.RoleTechnician, resp.User.Role)
	assert.Equal(t, "U001", resp.User.UserID)
}

func TestAuthRequired(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/items", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, "GET", "/api/items", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTechnicianGate(t *testing.T) {
	env := newTestEnv(t)
	userToken := env.login(t, "Ali User")

	w := env.do(t, "POST", "/api/items", userToken, gin.H{"name": "Drill", "category": "Tools"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, "POST", "/api/items/ITM-00000001/checkout", userToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRegisterAndListItems(t *testing.T) {
	env := newTestEnv(t)
	tech := env.login(t, "Ahmad Technician")

	item := env.registerItem(t, tech, "Fluke 87V Multimeter", "Electrical")
	assert.Equal(t, model.StatusAvailable, item.Status)
	assert.Equal(t, "Ahmad Technician", item.RegisteredBy)

	env.registerItem(t, tech, "Torque Wrench", "Tools")

	w := env.do(t, "GET", "/api/items", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var all []model.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &all))
	assert.Len(t, all, 2)

	w = env.do(t, "GET", "/api/items?category=Electrical", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var filtered []model.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, item.ItemID, filtered[0].ItemID)

	w = env.do(t, "GET", "/api/items?q=multimeter", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)
	filtered = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &filtered))
	require.Len(t, filtered, 1)
	assert.Equal(t, item.ItemID, filtered[0].ItemID)

	w = env.do(t, "GET", "/api/items/"+item.ItemID, tech, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "GET", "/api/items/ITM-DEADBEEF", tech, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, "POST", "/api/items", tech, gin.H{"name": "Mystery", "category": "NoSuchCategory"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation")
}

func TestItemLifecycle(t *testing.T) {
	env := newTestEnv(t)
	tech := env.login(t, "Ahmad Technician")
	item := env.registerItem(t, tech, "Impact Driver", "Tools")

	w := env.do(t, "POST", "/api/items/"+item.ItemID+"/checkout", tech, gin.H{"notes": "line 3 job"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var checked model.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checked))
	assert.Equal(t, model.StatusInUse, checked.Status)

	// A second checkout of an in_use item is refused.
	w = env.do(t, "POST", "/api/items/"+item.ItemID+"/checkout", tech, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "invalid_transition")

	w = env.do(t, "POST", "/api/items/"+item.ItemID+"/return", tech, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var returned model.Item
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &returned))
	assert.Equal(t, model.StatusAvailable, returned.Status)

	// The audit log has one CHECK OUT and one RETURN, newest first.
	w = env.do(t, "GET", "/api/activity?item_id="+item.ItemID, tech, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var entries []model.UsageEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionReturn, entries[0].Action)
	assert.Equal(t, model.ActionCheckOut, entries[1].Action)
	assert.Equal(t, "line 3 job", entries[1].Notes)

	// Maintenance takes the item out of circulation until restored.
	w = env.do(t, "POST", "/api/items/"+item.ItemID+"/maintenance", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", "/api/items/"+item.ItemID+"/checkout", tech, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, "POST", "/api/items/"+item.ItemID+"/restore", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, "POST", "/api/items/"+item.ItemID+"/checkout", tech, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestItemLabel(t *testing.T) {
	env := newTestEnv(t)
	tech := env.login(t, "Ahmad Technician")
	item := env.registerItem(t, tech, "Oscilloscope", "Equipment")

	w := env.do(t, "GET", "/api/items/"+item.ItemID+"/label", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))

	payload, err := qrtag.Decode(bytes.NewReader(w.Body.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, item.ItemID, payload.ItemID)
	assert.Equal(t, "Oscilloscope", payload.Name)

	_, info, err := env.archive.Get(context.Background(), labels.Key(item.ItemID))
	require.NoError(t, err)
	assert.Equal(t, "image/png", info.ContentType)
}

func (e *testEnv) scan(t *testing.T, token string, img []byte) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mpw := multipart.NewWriter(&buf)
	fw, err := mpw.CreateFormFile("image", "photo.png")
	require.NoError(t, err)
	_, err = fw.Write(img)
	require.NoError(t, err)
	require.NoError(t, mpw.Close())

	req, err := http.NewRequest("POST", "/api/scan", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", mpw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestScanDecodesLabel(t *testing.T) {
	env := newTestEnv(t)
	tech := env.login(t, "Ahmad Technician")
	item := env.registerItem(t, tech, "Thermal Camera", "Equipment")

	label := env.do(t, "GET", "/api/items/"+item.ItemID+"/label", tech, nil)
	require.Equal(t, http.StatusOK, label.Code)

	w := env.scan(t, tech, label.Body.Bytes())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Decoded bool               `json:"decoded"`
		Payload model.LabelPayload `json:"payload"`
		Item    *model.Item        `json:"item"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Decoded)
	assert.Equal(t, item.ItemID, resp.Payload.ItemID)
	require.NotNil(t, resp.Item)
	assert.Equal(t, model.StatusAvailable, resp.Item.Status)
}

func TestScanUnreadablePhoto(t *testing.T) {
	env := newTestEnv(t)
	tech := env.login(t, "Ahmad Technician")

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 64, 64))))

	w := env.scan(t, tech, buf.Bytes())
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"decoded":false}`, w.Body.String())
}

func TestScanRejectsNonImage(t *testing.T) {
	env := newTestEnv(t)
	tech := env.login(t, "Ahmad Technician")

	w := env.scan(t, tech, []byte("definitely not a picture"))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestReportsWorkflow(t *testing.T) {
	env := newTestEnv(t)
	user := env.login(t, "Ali User")
	tech := env.login(t, "Siti Technician")

	w := env.do(t, "POST", "/api/reports", user, gin.H{
		"title":       "Line 3 conveyor down",
		"description": "Belt snapped near station 4",
		"priority":    model.PriorityHigh,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var report model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &report))
	assert.Equal(t, model.ReportOpen, report.Status)
	assert.Equal(t, "Ali User", report.SubmittedBy)
	assert.Empty(t, report.AssignedTo)

	// Regular users cannot triage.
	w = env.do(t, "POST", "/api/reports/"+report.ReportID+"/triage", user, gin.H{"status": model.ReportInProgress})
	assert.Equal(t, http.StatusForbidden, w.Code)

	// The triaging technician becomes the assignee.
	w = env.do(t, "POST", "/api/reports/"+report.ReportID+"/triage", tech, gin.H{"status": model.ReportInProgress})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var triaged model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &triaged))
	assert.Equal(t, model.ReportInProgress, triaged.Status)
	assert.Equal(t, "Siti Technician", triaged.AssignedTo)
	assert.NotEmpty(t, triaged.UpdatedAt)

	w = env.do(t, "POST", "/api/reports/"+report.ReportID+"/triage", tech, gin.H{
		"status":     model.ReportResolved,
		"resolution": "Belt replaced",
	})
	require.Equal(t, http.StatusOK, w.Code)

	// mine=true hides other submitters' reports.
	w = env.do(t, "GET", "/api/reports?mine=true", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var mine []model.Report
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	require.Len(t, mine, 1)
	assert.Equal(t, model.ReportResolved, mine[0].Status)
	assert.Equal(t, "Belt replaced", mine[0].Resolution)

	w = env.do(t, "GET", "/api/reports?mine=true", tech, nil)
	require.Equal(t, http.StatusOK, w.Code)
	mine = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &mine))
	assert.Empty(t, mine)

	w = env.do(t, "POST", "/api/reports/RPT-DEADBEEF/triage", tech, gin.H{"status": model.ReportResolved})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestSubscriptions(t *testing.T) {
	env := newTestEnv(t)
	user := env.login(t, "Nurul User")

	body := gin.H{"endpoint": "https://push.example/ep1", "p256dh": "key", "auth": "secret", "item_id": "ITM-00000001"}
	w := env.do(t, "PUT", "/api/subscriptions", user, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	// Re-subscribing from the same endpoint replaces, not duplicates.
	body["item_id"] = ""
	w = env.do(t, "PUT", "/api/subscriptions", user, body)
	require.Equal(t, http.StatusCreated, w.Code)
	rows, err := env.store.List(context.Background(), model.TableSubscriptions)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0].Fields["item_id"])

	w = env.do(t, "GET", "/api/subscriptions", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var subs []model.Subscription
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subs))
	require.Len(t, subs, 1)
	assert.Equal(t, "Nurul User", subs[0].UserName)

	w = env.do(t, "DELETE", "/api/subscriptions", user, gin.H{"endpoint": "https://push.example/ep1"})
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = env.do(t, "GET", "/api/subscriptions", user, nil)
	require.Equal(t, http.StatusOK, w.Code)
	subs = nil
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &subs))
	assert.Empty(t, subs)

	// Deleting an already-gone endpoint still succeeds.
	w = env.do(t, "DELETE", "/api/subscriptions", user, gin.H{"endpoint": "https://push.example/never-seen"})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestVAPIDUnconfigured(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/vapid", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}
