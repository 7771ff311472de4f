package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRequestIDGeneratedWhenMissing(t *testing.T) {
	var contextID string
	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if contextID == "" {
		t.Fatal("expected request ID in context")
	}
	if len(contextID) != 16 {
		t.Errorf("expected 16 hex characters, got %q", contextID)
	}
	if rec.Header().Get("X-Request-ID") != contextID {
		t.Errorf("response header %q does not match context ID %q", rec.Header().Get("X-Request-ID"), contextID)
	}
}

func TestRequestIDHonorsClientHeader(t *testing.T) {
	const clientID = "client-request-123"
	var contextID string

	handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contextID = GetRequestID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	req.Header.Set("X-Request-ID", clientID)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if contextID != clientID {
		t.Errorf("expected %q, got %q", clientID, contextID)
	}
	if rec.Header().Get("X-Request-ID") != clientID {
		t.Errorf("response header should echo client ID, got %q", rec.Header().Get("X-Request-ID"))
	}
}

func TestGetRequestIDWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	if id := GetRequestID(req.Context()); id != "" {
		t.Errorf("expected empty string, got %q", id)
	}
}

func TestNewRequestIDUniqueness(t *testing.T) {
	ids := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := newRequestID()
		if len(id) != 16 {
			t.Fatalf("expected 16 hex characters, got %q", id)
		}
		ids[id] = true
	}
	if len(ids) != 100 {
		t.Errorf("expected 100 unique IDs, got %d", len(ids))
	}
}
