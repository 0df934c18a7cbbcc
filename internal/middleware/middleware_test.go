package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestRequestIDPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "abc")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	if seen != "abc" || rr.Header().Get("X-Request-ID") != "abc" {
		t.Fatalf("seen = %q header = %q", seen, rr.Header().Get("X-Request-ID"))
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" || seen == "abc" {
		t.Fatalf("generated id = %q", seen)
	}

	for _, bad := range []string{strings.Repeat("a", 200), "two words", "tab\there"} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, bad)
		h.ServeHTTP(httptest.NewRecorder(), req)
		if seen == bad {
			t.Fatalf("accepted unsafe id %q", bad)
		}
	}
}

func TestLoggerRecordsStatus(t *testing.T) {
	var buf bytes.Buffer
	h := RequestID(Logger(zerolog.New(&buf))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/v1/webhooks/compute", nil))

	line := buf.String()
	for _, want := range []string{`"status":503`, `"level":"error"`, `"path":"/v1/webhooks/compute"`, `"request_id":"`} {
		if !strings.Contains(line, want) {
			t.Fatalf("log line %q missing %s", line, want)
		}
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	tests := []struct {
		name        string
		origins     []string
		origin      string
		wantAllowed bool
		wantCreds   bool
	}{
		{name: "listed", origins: []string{"https://app.example.com"}, origin: "https://app.example.com", wantAllowed: true, wantCreds: true},
		{name: "unlisted", origins: []string{"https://app.example.com"}, origin: "https://evil.example.com"},
		{name: "wildcard", origins: []string{"*"}, origin: "https://any.example.com", wantAllowed: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.Header.Set("Origin", tc.origin)
			rr := httptest.NewRecorder()
			CORS(tc.origins)(next).ServeHTTP(rr, req)
			if got := rr.Header().Get("Access-Control-Allow-Origin") != ""; got != tc.wantAllowed {
				t.Fatalf("allowed = %v", got)
			}
			if got := rr.Header().Get("Access-Control-Allow-Credentials") == "true"; got != tc.wantCreds {
				t.Fatalf("credentials = %v", got)
			}
		})
	}

	rr := httptest.NewRecorder()
	CORS(nil)(next).ServeHTTP(rr, httptest.NewRequest(http.MethodOptions, "/", nil))
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight = %d", rr.Code)
	}
}
