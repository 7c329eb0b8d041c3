package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/netip"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/obs"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/storage"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/stream"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/video"
)

const serviceName = "miabesite-api"

// ReadyProbe checks readiness by pinging the database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Services groups the domain services the handlers call. Storage may be nil
// when uploads are not configured.
type Services struct {
	Profiles    *profiles.Service
	Ledger      *ledger.Service
	Gate        *access.Gate
	Grants      *access.GrantService
	Communities *communities.Service
	Sites       *sites.Service
	Video       *video.Service
	Storage     *storage.Service
	Stream      *stream.Hub
}

// Options tunes the HTTP layer.
type Options struct {
	Version        string
	Ready          ReadyProbe
	Signer         *auth.Signer
	RateBurst      int
	RatePerSecond  int
	AllowedOrigins []string
	// TrustedProxies may set X-Forwarded-For.
	TrustedProxies []netip.Prefix
}

// API is the HTTP layer.
type API struct {
	mux        *http.ServeMux
	svc        Services
	signer     *auth.Signer
	readyProbe ReadyProbe
	version    string
	rateBurst  int
	ratePerSec int
	origins    []string
	proxies    []netip.Prefix
}

func New(svc Services, opts Options) *API {
	a := &API{
		mux:        http.NewServeMux(),
		svc:        svc,
		signer:     opts.Signer,
		readyProbe: opts.Ready,
		version:    opts.Version,
		rateBurst:  opts.RateBurst,
		ratePerSec: opts.RatePerSecond,
		origins:    opts.AllowedOrigins,
		proxies:    opts.TrustedProxies,
	}
	if a.rateBurst <= 0 {
		a.rateBurst = 20
	}
	if a.ratePerSec <= 0 {
		a.ratePerSec = 10
	}

	// health/ready/info
	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	// profile and referrals
	a.mux.HandleFunc("/v1/me", a.handleMe)
	a.mux.HandleFunc("/v1/me/capabilities", a.handleCapabilities)
	a.mux.HandleFunc("/v1/referrals/status", a.handleReferralStatus)
	a.mux.HandleFunc("/v1/referrals/apply", a.handleReferralApply)

	// coins
	a.mux.HandleFunc("/v1/coins/transfer", a.handleTransfer)
	a.mux.HandleFunc("/v1/coins/transactions", a.handleTransactions)
	a.mux.HandleFunc("/v1/coins/events", a.Stream)

	// admin
	a.mux.HandleFunc("/v1/admin/coins/credit", a.handleAdminCredit)
	a.mux.HandleFunc("/v1/admin/roles", a.handleAdminRoles)
	a.mux.HandleFunc("/v1/admin/video-access", a.handleVideoAccessCollection)
	a.mux.HandleFunc("/v1/admin/video-access/", a.handleVideoAccessResource)

	// communities, sites, videos, uploads
	a.mux.HandleFunc("/v1/communities", a.handleCommunities)
	a.mux.HandleFunc("/v1/communities/public", a.handlePublicCommunities)
	a.mux.HandleFunc("/v1/communities/join", a.handleCommunityJoin)
	a.mux.HandleFunc("/v1/sites", a.handleSitesCollection)
	a.mux.HandleFunc("/v1/sites/", a.handleSiteResource)
	a.mux.HandleFunc("/v1/videos", a.handleVideosCollection)
	a.mux.HandleFunc("/v1/videos/", a.handleVideoResource)
	a.mux.HandleFunc("/v1/uploads", a.handleUploads)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})

	return a
}

// Handler returns the mux wrapped in the middleware chain.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.mux
	h = a.withAuth(h)
	h = MaxBodyBytes(h, 1<<20)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = CORS(h, a.origins)
	h = SecurityHeaders(h)
	h = Logging(h)
	h = RealIP(h, a.proxies)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- Handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	info := map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
		"uploads": a.svc.Storage != nil,
	}
	if a.svc.Ledger != nil {
		reward := a.svc.Ledger.Reward()
		info["referral_reward"] = map[string]int64{
			"referrer": reward.Referrer,
			"redeemer": reward.Redeemer,
		}
	}
	writeJSON(w, http.StatusOK, info)
}

// --- helpers ---

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}
