package httpapi

import (
	"fmt"
	"net/http"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
)

type updateProfileRequest struct {
	FullName  *string `json:"full_name"`
	AvatarURL *string `json:"avatar_url"`
}

type applyReferralRequest struct {
	Code string `json:"code"`
}

type applyReferralResponse struct {
	Message       string `json:"message"`
	AwardedPoints int64  `json:"awarded_points"`
	ledger.ApplyResult
}

func (a *API) handleMe(w http.ResponseWriter, r *http.Request) {
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	switch r.Method {
	case http.MethodGet:
		p, err := a.svc.Profiles.Get(r.Context(), uid)
		if err != nil {
			handleError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	case http.MethodPatch:
		var req updateProfileRequest
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error())
			return
		}
		p, err := a.svc.Profiles.Update(r.Context(), uid, profiles.Update{
			FullName:  req.FullName,
			AvatarURL: req.AvatarURL,
		})
		if err != nil {
			handleError(w, r, err)
			return
		}
		a.audit(r, "profile.update", map[string]any{"profile_id": uid})
		writeJSON(w, http.StatusOK, p)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPatch)
	}
}

func (a *API) handleCapabilities(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	caps, err := a.svc.Gate.Capabilities(r.Context(), uid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	out := make(map[string]bool, len(caps))
	for _, c := range auth.Capabilities {
		out[string(c)] = caps[c]
	}
	writeJSON(w, http.StatusOK, map[string]any{"capabilities": out})
}

func (a *API) handleReferralStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	st, err := a.svc.Profiles.ReferralStatus(r.Context(), uid)
	if err != nil {
		handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (a *API) handleReferralApply(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req applyReferralRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	res, err := a.svc.Ledger.ApplyReferral(r.Context(), uid, req.Code)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "referral.apply", map[string]any{
		"referrer_id":      res.ReferrerID,
		"referrer_awarded": res.ReferrerAwarded,
		"redeemer_awarded": res.RedeemerAwarded,
	})
	writeJSON(w, http.StatusOK, applyReferralResponse{
		Message:       fmt.Sprintf("referral code applied, %d points awarded to your referrer", res.ReferrerAwarded),
		AwardedPoints: res.ReferrerAwarded,
		ApplyResult:   res,
	})
}
