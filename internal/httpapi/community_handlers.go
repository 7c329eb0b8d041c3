package httpapi

import (
	"net/http"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
)

type createCommunityRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
}

type joinCommunityRequest struct {
	Code string `json:"code"`
}

func (a *API) handleCommunities(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		items, err := a.svc.Communities.ListForUser(r.Context(), uid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, list(items))
	case http.MethodPost:
		var req createCommunityRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		c, err := a.svc.Communities.Create(r.Context(), uid, communities.CreateInput{
			Name:        req.Name,
			Description: req.Description,
			Private:     req.Private,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r, "community.create", map[string]any{
			"community_id": c.ID,
			"private":      c.Private,
		})
		writeJSON(w, http.StatusCreated, c)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handlePublicCommunities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 100)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	items, err := a.svc.Communities.ListPublic(r.Context(), limit)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list(items))
}

func (a *API) handleCommunityJoin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req joinCommunityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := a.svc.Communities.Join(r.Context(), uid, req.Code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "community.join", map[string]any{"community_id": c.ID})
	writeJSON(w, http.StatusOK, c)
}
