package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name        string
		allowed     []string
		origin      string
		method      string
		wantOrigin  string
		wantCreds   string
		wantStatus  int
		wantHeaders string
	}{
		{
			name:        "explicit origin",
			allowed:     []string{"http://localhost:5173"},
			origin:      "http://localhost:5173",
			method:      http.MethodPost,
			wantOrigin:  "http://localhost:5173",
			wantCreds:   "true",
			wantStatus:  http.StatusTeapot,
			wantHeaders: "Content-Type, X-Session-ID",
		},
		{
			name:        "wildcard without credentials",
			allowed:     []string{"*"},
			origin:      "http://evil.example",
			method:      http.MethodGet,
			wantOrigin:  "http://evil.example",
			wantStatus:  http.StatusTeapot,
			wantHeaders: "Content-Type, X-Session-ID",
		},
		{
			name:       "unknown origin",
			allowed:    []string{"http://localhost:5173"},
			origin:     "http://other.example",
			method:     http.MethodGet,
			wantStatus: http.StatusTeapot,
		},
		{
			name:        "preflight",
			allowed:     []string{"http://localhost:5173"},
			origin:      "http://localhost:5173",
			method:      http.MethodOptions,
			wantOrigin:  "http://localhost:5173",
			wantCreds:   "true",
			wantStatus:  http.StatusNoContent,
			wantHeaders: "Content-Type, X-Session-ID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := CORS(tt.allowed, "X-Session-ID")(next)
			req := httptest.NewRequest(tt.method, "/api/chat", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if got := rec.Header().Get("Access-Control-Allow-Origin"); got != tt.wantOrigin {
				t.Errorf("Allow-Origin = %q, want %q", got, tt.wantOrigin)
			}
			if got := rec.Header().Get("Access-Control-Allow-Credentials"); got != tt.wantCreds {
				t.Errorf("Allow-Credentials = %q, want %q", got, tt.wantCreds)
			}
			if got := rec.Header().Get("Access-Control-Allow-Headers"); got != tt.wantHeaders {
				t.Errorf("Allow-Headers = %q, want %q", got, tt.wantHeaders)
			}
		})
	}
}
