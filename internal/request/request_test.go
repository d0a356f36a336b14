package request

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/benvon/smartmatch/internal/models"
)

func TestClientIP(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		headers map[string]string
		remote  string
		wantIP  string
	}{
		{"x-forwarded-for", map[string]string{"X-Forwarded-For": "1.2.3.4"}, "", "1.2.3.4"},
		{"x-forwarded-for first", map[string]string{"X-Forwarded-For": " 1.2.3.4 , 5.6.7.8 "}, "", "1.2.3.4"},
		{"x-real-ip", map[string]string{"X-Real-IP": "9.9.9.9"}, "", "9.9.9.9"},
		{"remote addr", nil, "10.0.0.1:12345", "10.0.0.1:12345"},
		{"xff over xri", map[string]string{"X-Forwarded-For": "1.2.3.4", "X-Real-IP": "9.9.9.9"}, "", "1.2.3.4"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := httptest.NewRequest("GET", "/", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if tt.remote != "" {
				r.RemoteAddr = tt.remote
			}
			got := ClientIP(r)
			if got != tt.wantIP {
				t.Errorf("ClientIP() = %q, want %q", got, tt.wantIP)
			}
		})
	}
}

func TestIdentityFromHeaders(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	r.Header.Set(UserIDHeader, " user-1 ")
	r.Header.Set(SessionIDHeader, "sess-1")

	got := IdentityFromHeaders(r)
	if got.UserID != "user-1" || got.SessionID != "sess-1" {
		t.Errorf("IdentityFromHeaders() = %+v", got)
	}
	if !got.Authenticated() {
		t.Error("expected authenticated identity")
	}
}

func TestIdentityFromContext(t *testing.T) {
	t.Parallel()
	id := models.Identity{UserID: "u1", SessionID: "s1"}
	r := httptest.NewRequest("GET", "/", nil).WithContext(WithIdentity(context.Background(), id))
	if got := IdentityFromContext(r); got != id {
		t.Errorf("IdentityFromContext() = %+v, want %+v", got, id)
	}
}

func TestIdentityFromContext_Missing(t *testing.T) {
	t.Parallel()
	r := httptest.NewRequest("GET", "/", nil)
	if got := IdentityFromContext(r); got.Authenticated() {
		t.Errorf("expected anonymous identity, got %+v", got)
	}

	r = r.WithContext(context.WithValue(r.Context(), IdentityContextKey(), "not-an-identity"))
	if got := IdentityFromContext(r); got.Authenticated() {
		t.Errorf("expected anonymous identity for wrong type, got %+v", got)
	}
}
