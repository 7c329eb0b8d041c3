package httpapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestExtractBearerToken(t *testing.T) {
	tests := map[string]struct {
		header  string
		token   string
		wantErr bool
	}{
		"valid":        {"Bearer abc.def", "abc.def", false},
		"lower scheme": {"bearer abc", "abc", false},
		"padded":       {"  Bearer   abc  ", "abc", false},
		"empty":        {"", "", true},
		"basic":        {"Basic abc", "", true},
		"no token":     {"Bearer ", "", true},
		"short":        {"Bear", "", true},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			got, err := extractBearerToken(tt.header)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.token {
				t.Fatalf("token = %q, want %q", got, tt.token)
			}
		})
	}
}

func TestIsPublic(t *testing.T) {
	tests := []struct {
		method string
		path   string
		public bool
	}{
		{http.MethodGet, "/healthz", true},
		{http.MethodGet, "/v1/communities/public", true},
		{http.MethodGet, "/v1/sites/chez-ama", true},
		{http.MethodPost, "/v1/sites/chez-ama", false},
		{http.MethodGet, "/v1/sites/", false},
		{http.MethodPost, "/v1/sites/abc/publish", false},
		{http.MethodGet, "/v1/me", false},
		{http.MethodGet, "/v1/communities", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		if got := isPublic(req); got != tt.public {
			t.Errorf("%s %s: public = %v, want %v", tt.method, tt.path, got, tt.public)
		}
	}
}

func TestWithAuthWithoutSigner(t *testing.T) {
	api := New(Services{}, Options{})
	rr := httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/me", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	api.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
}
