package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func corsHandler(cfg CORSConfig) http.Handler {
	return CORS(cfg)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
}

func corsRequest(handler http.Handler, method, origin string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/feedback", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestCORS_DisabledWithoutOrigins(t *testing.T) {
	handler := corsHandler(CORSConfig{})

	rr := corsRequest(handler, http.MethodGet, "https://anywhere.example")
	if rr.Code != http.StatusOK {
		t.Errorf("status = %d, want pass-through 200", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("CORS headers set with no configured origins")
	}
}

func TestCORS_AllowedOrigin(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{"https://app.roamceylon.example"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type"},
	})

	rr := corsRequest(handler, http.MethodGet, "https://app.roamceylon.example")
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "https://app.roamceylon.example" {
		t.Errorf("allow-origin = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Allow-Methods"); got != "GET, POST" {
		t.Errorf("allow-methods = %q", got)
	}
}

func TestCORS_RejectsUnlistedOrigin(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{"https://app.roamceylon.example"},
	})

	rr := corsRequest(handler, http.MethodGet, "https://evil.example")
	if rr.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403 for unlisted origin", rr.Code)
	}
	if rr.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("allow-origin header leaked to rejected origin")
	}
}

func TestCORS_SameOriginPassesThrough(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{"https://app.roamceylon.example"},
	})

	rr := corsRequest(handler, http.MethodGet, "")
	if rr.Code != http.StatusOK {
		t.Errorf("request without Origin header got %d, want 200", rr.Code)
	}
}

func TestCORS_Preflight(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{"https://app.roamceylon.example"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-Request-ID"},
		MaxAge:         600,
	})

	rr := corsRequest(handler, http.MethodOptions, "https://app.roamceylon.example")
	if rr.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Headers"); got != "Content-Type, X-Request-ID" {
		t.Errorf("allow-headers = %q", got)
	}
	if got := rr.Header().Get("Access-Control-Max-Age"); got != "600" {
		t.Errorf("max-age = %q, want 600", got)
	}
}

func TestCORS_Credentials(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins:   []string{"https://app.roamceylon.example"},
		AllowCredentials: true,
	})

	rr := corsRequest(handler, http.MethodGet, "https://app.roamceylon.example")
	if got := rr.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Errorf("allow-credentials = %q, want true", got)
	}

	noCreds := corsHandler(CORSConfig{
		AllowedOrigins: []string{"https://app.roamceylon.example"},
	})
	rr = corsRequest(noCreds, http.MethodGet, "https://app.roamceylon.example")
	if rr.Header().Get("Access-Control-Allow-Credentials") != "" {
		t.Error("allow-credentials set without AllowCredentials")
	}
}

func TestCORS_TrimsConfiguredOrigins(t *testing.T) {
	handler := corsHandler(CORSConfig{
		AllowedOrigins: []string{"  https://app.roamceylon.example  ", ""},
	})

	rr := corsRequest(handler, http.MethodGet, "https://app.roamceylon.example")
	if rr.Code != http.StatusOK {
		t.Errorf("whitespace-padded origin config not matched, status %d", rr.Code)
	}
}

// Full chain: CORS in front of the standard middleware stack, exercising a
// preflight followed by the real request the way a browser issues them.
func TestCORS_WithMiddlewareChain(t *testing.T) {
	cfg := CORSConfig{
		AllowedOrigins: []string{"https://app.roamceylon.example"},
		AllowedMethods: []string{"POST", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})
	handler := CORS(cfg)(RequestID(inner))

	preflight := corsRequest(handler, http.MethodOptions, "https://app.roamceylon.example")
	if preflight.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", preflight.Code)
	}

	actual := corsRequest(handler, http.MethodPost, "https://app.roamceylon.example")
	if actual.Code != http.StatusAccepted {
		t.Fatalf("actual request status = %d, want 202", actual.Code)
	}
	if actual.Header().Get("Access-Control-Allow-Origin") == "" {
		t.Error("actual request missing allow-origin header")
	}
	if actual.Header().Get(RequestIDHeader) == "" {
		t.Error("request id header missing; chain broken")
	}
}
