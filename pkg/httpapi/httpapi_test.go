package httpapi

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/yeet-yoink/yeet-yoink/pkg/backbone"
)

func newTestRouter(t *testing.T) (http.Handler, func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	bb := backbone.New(ctx, backbone.Config{
		TempDir: t.TempDir(),
		Lease:   time.Hour,
	})
	go bb.Run()

	readiness := NewReadiness()
	readiness.SetBackboneReady(true)
	readiness.SetDispatcherReady(true)
	readiness.SetAcceptingUploads(true)

	router := NewRouter(Deps{
		Backbone:          bb,
		Readiness:         readiness,
		MaxFileNameLength: 255,
		RequestTimeout:    5 * time.Second,
	})

	cleanup := func() {
		cancel()
		<-bb.Stopped()
	}
	return router, cleanup
}

func TestYeetThenYoinkRoundTrips(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	body := []byte("hello")
	req := httptest.NewRequest(http.MethodPost, "/yeet", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("yeet status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp yeetResponseBody
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.FileSizeBytes != 5 {
		t.Errorf("file_size_bytes = %d, want 5", resp.FileSizeBytes)
	}
	if resp.Hashes["md5"] != "5d41402abc4b2a76b9719d911017c592" {
		t.Errorf("md5 = %q", resp.Hashes["md5"])
	}

	getReq := httptest.NewRequest(http.MethodGet, "/yoink/"+resp.ID, nil)
	getW := httptest.NewRecorder()
	router.ServeHTTP(getW, getReq)

	if getW.Code != http.StatusOK {
		t.Fatalf("yoink status = %d, body = %s", getW.Code, getW.Body.String())
	}
	if getW.Body.String() != "hello" {
		t.Errorf("yoink body = %q, want hello", getW.Body.String())
	}
	if getW.Header().Get("Content-Length") != "5" {
		t.Errorf("Content-Length = %q, want 5", getW.Header().Get("Content-Length"))
	}
}

func TestYoinkUnknownIDReturns404(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/yoink/MDEyMzQ1Njc4OWFiY2RlZg", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestYoinkMalformedIDReturns404(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	req := httptest.NewRequest(http.MethodGet, "/yoink/not-a-valid-id", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestYeetWithMismatchedContentMD5Fails(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	sum := md5.Sum([]byte("wrong"))
	req := httptest.NewRequest(http.MethodPost, "/yeet", bytes.NewReader([]byte("hello")))
	req.Header.Set("Content-MD5", base64.StdEncoding.EncodeToString(sum[:]))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500, body=%s", w.Code, w.Body.String())
	}
}

func TestYeetRejectedWhenNotAcceptingUploads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bb := backbone.New(ctx, backbone.Config{TempDir: t.TempDir(), Lease: time.Hour})
	go bb.Run()
	defer func() {
		cancel()
		<-bb.Stopped()
	}()

	readiness := NewReadiness()
	router := NewRouter(Deps{Backbone: bb, Readiness: readiness, MaxFileNameLength: 255})

	req := httptest.NewRequest(http.MethodPost, "/yeet", bytes.NewReader([]byte("hi")))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", w.Code)
	}
}

func TestHealthLivenessAlwaysOK(t *testing.T) {
	router, cleanup := newTestRouter(t)
	defer cleanup()

	for _, path := range []string{"/health", "/healthz", "/livez"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("%s status = %d, want 200", path, w.Code)
		}
	}
}

func TestHealthReadinessReflectsState(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bb := backbone.New(ctx, backbone.Config{TempDir: t.TempDir(), Lease: time.Hour})
	go bb.Run()
	defer func() {
		cancel()
		<-bb.Stopped()
	}()

	readiness := NewReadiness()
	router := NewRouter(Deps{Backbone: bb, Readiness: readiness, MaxFileNameLength: 255})

	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503 before loops are marked ready", w.Code)
	}

	readiness.SetBackboneReady(true)
	readiness.SetDispatcherReady(true)

	w2 := httptest.NewRecorder()
	router.ServeHTTP(w2, req)
	if w2.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 once loops are ready", w2.Code)
	}
}

func TestStopHandlerTriggersOnce(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bb := backbone.New(ctx, backbone.Config{TempDir: t.TempDir(), Lease: time.Hour})
	go bb.Run()
	defer func() {
		cancel()
		<-bb.Stopped()
	}()

	readiness := NewReadiness()
	readiness.SetAcceptingUploads(true)

	calls := 0
	router := NewRouter(Deps{
		Backbone:        bb,
		Readiness:       readiness,
		TriggerShutdown: func() { calls++ },
	})

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/stop", nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusAccepted {
			t.Fatalf("status = %d, want 202", w.Code)
		}
	}

	if calls != 1 {
		t.Errorf("trigger called %d times, want 1", calls)
	}
	if readiness.AcceptingUploads() {
		t.Error("expected AcceptingUploads to be false after /stop")
	}
}
