package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func TestAssertStatusCode(t *testing.T) {
	t.Parallel()
	AssertStatusCode(t, http.StatusOK, http.StatusOK)
	AssertStatusCode(t, http.StatusNotFound, http.StatusNotFound)
}

func TestNewJSONRequest(t *testing.T) {
	t.Parallel()

	req := NewJSONRequest(t, http.MethodPost, "/api/activities", map[string]int{"steps": 10})
	if req.Method != http.MethodPost {
		t.Errorf("method = %s, want POST", req.Method)
	}
	if ct := req.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("content-type = %q", ct)
	}

	empty := NewJSONRequest(t, http.MethodGet, "/api/session", nil)
	if empty.ContentLength != 0 {
		t.Errorf("expected empty body, got length %d", empty.ContentLength)
	}
}

func TestDecodeJSON(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rec.Body.WriteString(`{"steps": 42}`)

	var got struct {
		Steps int `json:"steps"`
	}
	DecodeJSON(t, rec, &got)
	if got.Steps != 42 {
		t.Errorf("steps = %d, want 42", got.Steps)
	}
}

func TestEventually(t *testing.T) {
	t.Parallel()

	var n atomic.Int32
	go func() {
		time.Sleep(5 * time.Millisecond)
		n.Store(1)
	}()
	Eventually(t, time.Second, func() bool { return n.Load() == 1 }, "flag never set")
}
