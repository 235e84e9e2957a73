package middleware

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if seen != "abc" || rec.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("request id = %q / %q, want abc", seen, rec.Header().Get("X-Request-ID"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if len(seen) != 36 {
		t.Fatalf("generated request id %q is not a uuid", seen)
	}
}

func TestRequestIDReplacesUnsafeIDs(t *testing.T) {
	tests := []struct {
		name string
		id   string
	}{
		{name: "too long", id: strings.Repeat("a", maxRequestIDLen+1)},
		{name: "header injection", id: "abc\r\nSet-Cookie: x=1"},
		{name: "space", id: "two words"},
		{name: "non ascii", id: "req-\u00e9"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var seen string
			h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = RequestIDFromContext(r.Context())
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header[RequestIDHeader] = []string{tc.id}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if seen == tc.id || len(seen) != 36 {
				t.Fatalf("unsafe id kept or not replaced by a uuid: %q", seen)
			}
			if rec.Header().Get(RequestIDHeader) != seen {
				t.Fatalf("echoed id %q, want %q", rec.Header().Get(RequestIDHeader), seen)
			}
		})
	}

	if !validRequestID(strings.Repeat("a", maxRequestIDLen)) {
		t.Fatalf("an id of exactly %d bytes should be accepted", maxRequestIDLen)
	}
}

func TestRequestLoggerTagsRequestID(t *testing.T) {
	var buf bytes.Buffer
	base := zerolog.New(&buf)

	log := RequestLogger(ContextWithRequestID(context.Background(), "req-42"), base)
	log.Info().Msg("x")
	if !strings.Contains(buf.String(), `"request_id":"req-42"`) {
		t.Fatalf("log line missing request id: %s", buf.String())
	}

	buf.Reset()
	log = RequestLogger(context.Background(), base)
	log.Info().Msg("x")
	if strings.Contains(buf.String(), "request_id") {
		t.Fatalf("no request id expected: %s", buf.String())
	}
}

func TestUserIDDefaults(t *testing.T) {
	var seen string
	h := UserID("user-1")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if seen != "user-1" {
		t.Fatalf("default user = %q", seen)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(UserHeader, " alice ")
	h.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "alice" {
		t.Fatalf("header user = %q", seen)
	}
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"https://studio.example"})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodOptions, "/v1/tasks", nil)
	req.Header.Set("Origin", "https://studio.example")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://studio.example" {
		t.Fatalf("allow origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/tasks", nil)
	req.Header.Set("Origin", "https://evil.example")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusTeapot || rec.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Fatalf("unexpected cors response: %d %q", rec.Code, rec.Header().Get("Access-Control-Allow-Origin"))
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/tasks", nil))

	line := buf.String()
	for _, want := range []string{`"level":"error"`, `"status":502`, `"path":"/v1/tasks"`, `"request_id":"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %s missing %s", line, want)
		}
	}
}

func TestRateLimitRejectsBurst(t *testing.T) {
	h := RateLimit(2, time.Minute)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	codes := make([]int, 0, 3)
	for range 3 {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.RemoteAddr = "198.51.100.7:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[2] != http.StatusTooManyRequests || codes[0] != http.StatusOK {
		t.Fatalf("codes = %v", codes)
	}
}
