package middleware

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

var payload = strings.Repeat(`{"session_id":"s1","spin_score":9}`, 64)

func okHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = io.WriteString(w, payload)
}

func TestCompressionGzip(t *testing.T) {
	h := Compression(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip, got %q", w.Header().Get("Content-Encoding"))
	}
	gr, err := gzip.NewReader(w.Body)
	if err != nil {
		t.Fatalf("gzip reader: %v", err)
	}
	b, _ := io.ReadAll(gr)
	if string(b) != payload {
		t.Fatalf("payload mismatch")
	}
}

func TestCompressionZstd(t *testing.T) {
	h := Compression(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	r.Header.Set("Accept-Encoding", "zstd, gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Header().Get("Content-Encoding") != "zstd" {
		t.Fatalf("expected zstd, got %q", w.Header().Get("Content-Encoding"))
	}
	zr, err := zstd.NewReader(w.Body)
	if err != nil {
		t.Fatalf("zstd reader: %v", err)
	}
	defer zr.Close()
	b, _ := io.ReadAll(zr)
	if string(b) != payload {
		t.Fatalf("payload mismatch")
	}
}

func TestCompressionSkipsNoContent(t *testing.T) {
	h := Compression(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	r := httptest.NewRequest(http.MethodOptions, "/v1/sessions", nil)
	r.Header.Set("Accept-Encoding", "gzip")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 || w.Header().Get("Content-Encoding") != "" {
		t.Fatalf("204 must not be compressed: code=%d len=%d enc=%q", w.Code, w.Body.Len(), w.Header().Get("Content-Encoding"))
	}
}

func TestAccessLog(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(AccessLog(log)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	})))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/sessions/x", nil))
	out := buf.String()
	for _, want := range []string{"msg=http.access", "status=404", "level=WARN", "path=/v1/sessions/x", "req_id="} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %s", want, out)
		}
	}
}

func TestCORSPreflight(t *testing.T) {
	h := CORS([]string{"http://app.test"})(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodOptions, "/v1/sessions", nil)
	r.Header.Set("Origin", "http://app.test")
	r.Header.Set("Access-Control-Request-Method", "POST")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://app.test" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestGetReqIdNumPart(t *testing.T) {
	var got string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		got = GetReqIdNumPart(r)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if got == "" || strings.Contains(got, "-") {
		t.Fatalf("unexpected num part %q", got)
	}
}

func TestCompressionHonorsQZero(t *testing.T) {
	h := Compression(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	r.Header.Set("Accept-Encoding", "zstd;q=0, gzip;q=0.5")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Header().Get("Content-Encoding") != "gzip" {
		t.Fatalf("expected gzip when zstd q=0, got %q", w.Header().Get("Content-Encoding"))
	}

	r = httptest.NewRequest(http.MethodGet, "/v1/items", nil)
	r.Header.Set("Accept-Encoding", "br")
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Header().Get("Content-Encoding") != "" || w.Body.String() != payload {
		t.Fatalf("unsupported encoding must pass through")
	}
}

func TestNewCompressionRejectsBadLevel(t *testing.T) {
	if _, err := NewCompression(CompressConfig{GzipLevel: 42, ZstdLevel: zstd.SpeedFastest}); err == nil {
		t.Fatalf("expected error for gzip level 42")
	}
}

func TestRecoverWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewTextHandler(&buf, nil))
	h := RequestID(Recover(log)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/v1/sessions/s1/spin", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"status":500`) || w.Header().Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected body %q", w.Body.String())
	}
	if !strings.Contains(buf.String(), "http.panic") || !strings.Contains(buf.String(), "boom") {
		t.Fatalf("panic not logged: %s", buf.String())
	}
}

func TestRequestIDEchoesHeader(t *testing.T) {
	h := RequestID(http.HandlerFunc(okHandler))
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set(HeaderRequestID, "client-abc-7")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if got := w.Header().Get(HeaderRequestID); got != "client-abc-7" {
		t.Fatalf("expected echoed id, got %q", got)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("generated id missing")
	}
}
