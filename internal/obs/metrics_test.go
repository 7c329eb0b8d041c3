package obs

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCanonicalPath(t *testing.T) {
	cases := map[string]string{
		"":                                "/",
		"/metrics":                        "/metrics",
		"/v1/sites":                       "/v1/sites",
		"/v1/sites/validate":              "/v1/sites/validate",
		"/v1/sites/my-shop-x1y2":          "/v1/sites/:slug",
		"/v1/sites/01HZX/publish":         "/v1/sites/:id/publish",
		"/v1/videos/01HZX":                "/v1/videos/:id",
		"/v1/admin/video-access":          "/v1/admin/video-access",
		"/v1/admin/video-access/01HZX":    "/v1/admin/video-access/:id",
		"/v1/coins/transactions?limit=10": "/v1/coins/transactions",
		"/v1/referrals/apply":             "/v1/referrals/apply",
	}
	for input, expected := range cases {
		if got := CanonicalPath(input); got != expected {
			t.Fatalf("CanonicalPath(%q)=%q, want %q", input, got, expected)
		}
	}
}

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status %d", rec.Code)
	}
	return rec.Body.String()
}

func TestInstrumentCountsByCanonicalPath(t *testing.T) {
	Init()
	Init()

	h := Instrument(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	for _, id := range []string{"a", "b"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/videos/"+id, nil))
		if rec.Code != http.StatusTeapot {
			t.Fatalf("unexpected status %d", rec.Code)
		}
	}
	body := scrape(t)
	want := `http_requests_total{method="GET",path="/v1/videos/:id",status="418"} 2`
	if !strings.Contains(body, want) {
		t.Fatalf("metrics output missing %q", want)
	}
}

func TestDomainCounters(t *testing.T) {
	Init()
	LedgerRejected("self_referral")
	IdentifierCollision("referral_code")

	body := scrape(t)
	for _, want := range []string{
		`ledger_rejections_total{reason="self_referral"}`,
		`identifier_collisions_total{kind="referral_code"}`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q", want)
		}
	}
}

func TestBuildInfoReplacesLabels(t *testing.T) {
	InitBuildInfo("v0.1.0", "abc")
	InitBuildInfo("v0.2.0", "def")

	body := scrape(t)
	if !strings.Contains(body, `build_info{commit="def",version="v0.2.0"} 1`) {
		t.Fatalf("build_info missing current labels")
	}
	if strings.Contains(body, `version="v0.1.0"`) {
		t.Fatalf("stale build_info labels still exported")
	}
}
