package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
)

type transferRequest struct {
	RecipientCode string `json:"recipient_code"`
	Amount        int64  `json:"amount"`
}

type transferResponse struct {
	Message    string `json:"message"`
	NewBalance int64  `json:"new_balance"`
	ledger.TransferResult
}

type creditRequest struct {
	UserID string `json:"user_id"`
	Amount int64  `json:"amount"`
}

type setRoleRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
}

type listTransactionsResponse struct {
	Items     []ledger.Transaction `json:"items"`
	NextAfter uint64               `json:"next_after"`
	AsOf      time.Time            `json:"as_of"`
}

func (a *API) handleTransfer(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	res, err := a.svc.Ledger.Transfer(r.Context(), uid, req.RecipientCode, req.Amount)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "coins.transfer", map[string]any{
		"transaction_id": res.TransactionID,
		"recipient_id":   res.RecipientID,
		"amount":         res.Amount,
	})
	writeJSON(w, http.StatusCreated, transferResponse{
		Message:        fmt.Sprintf("sent %d points", res.Amount),
		NewBalance:     res.SenderBalance,
		TransferResult: res,
	})
}

func (a *API) handleTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	limit, err := parsePositiveInt(r.URL.Query().Get("limit"), 50, 1, 200)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	afterParam := strings.TrimSpace(r.URL.Query().Get("after"))
	var after uint64
	if afterParam != "" {
		v, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, "after must be a non-negative integer")
			return
		}
		after = v
	}

	items, next, err := a.svc.Ledger.History(r.Context(), uid, limit, after)
	if err != nil {
		handleError(w, r, err)
		return
	}
	if items == nil {
		items = []ledger.Transaction{}
	}
	writeJSON(w, http.StatusOK, listTransactionsResponse{
		Items:     items,
		NextAfter: next,
		AsOf:      time.Now().UTC(),
	})
}

func (a *API) handleAdminCredit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req creditRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	tx, err := a.svc.Ledger.AdminCredit(r.Context(), uid, req.UserID, req.Amount)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "coins.admin_credit", map[string]any{
		"transaction_id": tx.ID,
		"user_id":        tx.ToUserID,
		"amount":         tx.Amount,
	})
	writeJSON(w, http.StatusCreated, tx)
}

func (a *API) handleAdminRoles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	uid, ok := userID(w, r)
	if !ok {
		return
	}
	var req setRoleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	role, _ := auth.ParseRole(req.Role)
	p, err := a.svc.Profiles.SetRole(r.Context(), uid, req.UserID, role)
	if err != nil {
		handleError(w, r, err)
		return
	}
	a.audit(r, "roles.set", map[string]any{
		"profile_id": p.ID,
		"role":       string(p.Role),
	})
	writeJSON(w, http.StatusOK, p)
}
