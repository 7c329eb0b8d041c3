package httpapi

import (
	"net/http"
	"strings"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
)

type grantRequest struct {
	GranteeID string `json:"grantee_id"`
}

func (a *API) handleVideoAccessCollection(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		grants, err := a.svc.Grants.List(r.Context(), uid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list[access.GrantView](grants))
	case http.MethodPost:
		var req grantRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		g, err := a.svc.Grants.Grant(r.Context(), uid, req.GranteeID)
		if err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r, "access.grant", map[string]any{
			"grant_id":   g.ID,
			"grantee_id": g.GranteeID,
		})
		w.Header().Set("Location", "/v1/admin/video-access/"+g.ID)
		writeJSON(w, http.StatusCreated, g)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleVideoAccessResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/admin/video-access/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodDelete {
		methodNotAllowed(w, r, http.MethodDelete)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if err := a.svc.Grants.Revoke(r.Context(), uid, id); err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "access.revoke", map[string]any{"grant_id": id})
	w.WriteHeader(http.StatusNoContent)
}
