package httpapi

import (
	"net/http"
	"strings"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/storage"
)

type generateVideoRequest struct {
	Prompt string `json:"prompt"`
}

type uploadRequest struct {
	Kind        string `json:"kind"`
	ContentType string `json:"content_type"`
}

func (a *API) handleVideosCollection(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req generateVideoRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	task, err := a.svc.Video.Generate(r.Context(), uid, req.Prompt)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "video.generate", map[string]any{"task_id": task.ID})
	w.Header().Set("Location", "/v1/videos/"+task.ID)
	writeJSON(w, http.StatusAccepted, task)
}

func (a *API) handleVideoResource(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/videos/")
	if id == "" || strings.Contains(id, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	task, err := a.svc.Video.Get(r.Context(), uid, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, task)
}

func (a *API) handleUploads(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	if a.svc.Storage == nil {
		handleError(w, r, storage.ErrDisabled)
		return
	}
	var req uploadRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	up, err := a.svc.Storage.PresignUpload(r.Context(), uid, storage.Kind(req.Kind), req.ContentType)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "upload.presign", map[string]any{
		"key":  up.Key,
		"kind": req.Kind,
	})
	writeJSON(w, http.StatusCreated, up)
}
