package httpapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"productstudio/internal/cache"
	"productstudio/internal/domain"
	"productstudio/internal/generation"
	"productstudio/internal/http/handlers"
	"productstudio/internal/providers/genai"
	"productstudio/internal/resilience"
	"productstudio/internal/storage"
	"productstudio/internal/storage/memory"
)

// A PNG signature is enough for validation; synthetic mode never decodes it.
const refImage = "data:image/png;base64,iVBORw0KGgoAAAANSUhEUg=="

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	client := genai.NewClient(genai.Options{})
	store := storage.NewTaskStore(memory.NewRepository(), storage.TaskStoreOptions{})
	analysisCache := cache.New(cache.Options{Store: cache.NewMemoryStore()})
	orch, err := generation.New(generation.Options{
		Analyzer:  client,
		Generator: client,
		Store:     store,
		Cache:     analysisCache,
		Retry:     resilience.Policy{MaxAttempts: 1},
	})
	if err != nil {
		t.Fatalf("generation.New: %v", err)
	}
	app := &handlers.App{
		Orchestrator: orch,
		Store:        store,
		Cache:        analysisCache,
		Provider:     client,
		Defaults:     handlers.Defaults{ImageCount: 2, Model: domain.ModelAuto},
	}
	srv := httptest.NewServer(NewRouter(app, Options{RateLimitPerMin: 100, CORSOrigins: []string{"*"}}))
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, user string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestTaskLifecycle(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodPost, srv.URL+"/v1/tasks", "alice", map[string]any{
		"productName": "Wool Scarf",
		"description": "hand-knit, soft",
		"vibe":        "cozy",
		"images":      []map[string]string{{"data": refImage}, {"data": refImage}},
	})
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d body=%s", resp.StatusCode, body)
	}
	var created generation.Result
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("decode create: %v", err)
	}
	if len(created.Task.GeneratedImages) != 2 || created.Task.UserID != "alice" {
		t.Fatalf("unexpected task: %d images, user %q", len(created.Task.GeneratedImages), created.Task.UserID)
	}
	if len(created.Task.Analysis.SEO.Titles) == 0 {
		t.Fatalf("expected seo titles")
	}
	id := created.Task.ID

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/tasks?q=scarf", "alice", nil)
	var page domain.TaskPage
	if err := json.Unmarshal(body, &page); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("list: %d %v", resp.StatusCode, err)
	}
	if len(page.Tasks) != 1 || page.HasMore {
		t.Fatalf("list returned %d tasks hasMore=%v", len(page.Tasks), page.HasMore)
	}

	resp, _ = do(t, http.MethodGet, srv.URL+"/v1/tasks", "bob", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bob list status = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/tasks/"+id+"/images/1/regenerate", "alice", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("regenerate status = %d", resp.StatusCode)
	}
	resp, body = do(t, http.MethodPost, srv.URL+"/v1/tasks/"+id+"/images/5/regenerate", "alice", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("out of range regenerate status = %d body=%s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/tasks/"+id+"/archive", "alice", nil)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "application/zip" {
		t.Fatalf("archive status = %d type=%q", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	zr, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		t.Fatalf("open archive: %v", err)
	}
	if len(zr.File) != 3 || zr.File[2].Name != "task.json" {
		t.Fatalf("archive has %d entries", len(zr.File))
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/tasks/"+id, "alice", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status = %d", resp.StatusCode)
	}
	resp, body = do(t, http.MethodGet, srv.URL+"/v1/tasks/"+id, "alice", nil)
	if resp.StatusCode != http.StatusNotFound || !strings.Contains(string(body), "not_found") {
		t.Fatalf("get after delete = %d %s", resp.StatusCode, body)
	}
}

func TestCreateTaskRejectsInvalidInput(t *testing.T) {
	srv := newTestServer(t)
	tests := []struct {
		name string
		body any
	}{
		{"malformed", "not an object"},
		{"no images", map[string]any{"productName": "x", "description": "y"}},
		{"gif", map[string]any{"productName": "x", "description": "y", "images": []map[string]string{{"mimeType": "image/gif", "data": "R0lGODlh"}}}},
		{"count", map[string]any{"productName": "x", "description": "y", "imageCount": 9, "images": []map[string]string{{"data": refImage}}}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, srv.URL+"/v1/tasks", "", tc.body)
			if resp.StatusCode != http.StatusBadRequest {
				t.Fatalf("status = %d body=%s", resp.StatusCode, body)
			}
		})
	}
}

func TestListTasksValidatesQuery(t *testing.T) {
	srv := newTestServer(t)
	for _, q := range []string{"page=-1", "page_size=0", "page_size=101", "sort=random", "page=abc"} {
		resp, _ := do(t, http.MethodGet, fmt.Sprintf("%s/v1/tasks?%s", srv.URL, q), "", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Fatalf("%s: status = %d", q, resp.StatusCode)
		}
	}

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/tasks?page=4611686018427387904&page_size=2", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("huge page index: status = %d body=%s", resp.StatusCode, body)
	}
	var page domain.TaskPage
	if err := json.Unmarshal(body, &page); err != nil || len(page.Tasks) != 0 || page.HasMore {
		t.Fatalf("huge page index: %+v %v", page, err)
	}
}

func TestOperationalEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/v1/healthz", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "ok") {
		t.Fatalf("healthz = %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/info", "", nil)
	var info genai.Info
	if err := json.Unmarshal(body, &info); err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("info: %d %v", resp.StatusCode, err)
	}
	if !info.Synthetic || info.APIKeyConfigured {
		t.Fatalf("unexpected info: %+v", info)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/v1/breaker", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"state":"CLOSED"`) {
		t.Fatalf("breaker = %d %s", resp.StatusCode, body)
	}
	resp, _ = do(t, http.MethodPost, srv.URL+"/v1/breaker/reset", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("breaker reset = %d", resp.StatusCode)
	}

	resp, _ = do(t, http.MethodDelete, srv.URL+"/v1/cache", "", nil)
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("cache clear = %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/metrics", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "go_goroutines") {
		t.Fatalf("metrics = %d", resp.StatusCode)
	}
}
