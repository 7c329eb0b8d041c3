package httpapi

import (
	"net/http"
	"strings"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
)

type validateStepRequest struct {
	Step   int          `json:"step"`
	Wizard sites.Wizard `json:"wizard"`
}

func (a *API) handleSitesCollection(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := a.svc.Sites.List(r.Context(), uid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list(items))
	case http.MethodPost:
		var req sites.Wizard
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		site, err := a.svc.Sites.Create(r.Context(), uid, req)
		if err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r, "site.create", map[string]any{
			"site_id":  site.ID,
			"slug":     site.Slug,
			"template": string(site.Template),
		})
		w.Header().Set("Location", "/v1/sites/"+site.Slug)
		writeJSON(w, http.StatusCreated, site)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

// handleSiteResource serves /v1/sites/validate, /v1/sites/{slug} and
// /v1/sites/{id}/publish.
func (a *API) handleSiteResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/sites/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if path == "validate" && r.Method != http.MethodGet {
		a.validateStep(w, r)
		return
	}

	if strings.HasSuffix(path, "/publish") {
		id := strings.TrimSuffix(path, "/publish")
		if id == "" || strings.Contains(id, "/") {
			writeError(w, r, http.StatusNotFound, "site not found")
			return
		}
		a.publishSite(w, r, id)
		return
	}

	if strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	viewer, _ := auth.UserIDFromContext(r.Context())
	site, err := a.svc.Sites.GetBySlug(r.Context(), viewer, path)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, site)
}

func (a *API) validateStep(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if _, ok := userID(w, r); !ok {
		return
	}
	var req validateStepRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.Wizard.ValidateStep(sites.Step(req.Step)); err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"step":  req.Step,
		"valid": true,
	})
}

func (a *API) publishSite(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	site, err := a.svc.Sites.Publish(r.Context(), uid, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "site.publish", map[string]any{
		"site_id": site.ID,
		"slug":    site.Slug,
	})
	writeJSON(w, http.StatusOK, site)
}
