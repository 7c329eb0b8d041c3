// Command smoke runs a referral and a transfer against a live API and checks
// that points are conserved.
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
)

type client struct {
	base  string
	http  *http.Client
	token string
}

func (c *client) call(method, path string, body, dst any, want int) {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			log.Fatalf("marshal %s: %v", path, err)
		}
	}
	req, err := http.NewRequest(method, c.base+path, bytes.NewReader(payload))
	if err != nil {
		log.Fatalf("request %s: %v", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	resp, err := c.http.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != want {
		var e map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&e)
		log.Fatalf("%s %s: status %d, want %d (%v)", method, path, resp.StatusCode, want, e)
	}
	if dst != nil {
		if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
			log.Fatalf("decode %s: %v", path, err)
		}
	}
}

func main() {
	log.SetFlags(0)
	base := os.Getenv("MIABE_API_URL")
	if base == "" {
		base = "http://localhost:8080"
	}
	signer, err := auth.NewSigner(os.Getenv("MIABE_AUTH_SECRET"), os.Getenv("MIABE_AUTH_ISSUER"))
	if err != nil {
		log.Fatalf("signer: %v", err)
	}
	httpClient := &http.Client{Timeout: 10 * time.Second}
	login := func(name string) *client {
		token, err := signer.Issue(auth.Identity{UserID: uuid.NewString(), Name: name}, 10*time.Minute)
		if err != nil {
			log.Fatalf("issue %s: %v", name, err)
		}
		return &client{base: base, http: httpClient, token: token}
	}

	referrer, redeemer := login("smoke-referrer"), login("smoke-redeemer")
	var pr, pd profiles.Profile
	referrer.call(http.MethodGet, "/v1/me", nil, &pr, http.StatusOK)
	redeemer.call(http.MethodGet, "/v1/me", nil, &pd, http.StatusOK)

	var applied ledger.ApplyResult
	redeemer.call(http.MethodPost, "/v1/referrals/apply", map[string]any{"code": pr.ReferralCode}, &applied, http.StatusOK)
	redeemer.call(http.MethodPost, "/v1/referrals/apply", map[string]any{"code": pr.ReferralCode}, nil, http.StatusConflict)

	total := applied.ReferrerAwarded + applied.RedeemerAwarded
	amount := applied.ReferrerAwarded / 2
	if amount < 1 {
		log.Fatalf("referral reward %d too small to exercise a transfer", applied.ReferrerAwarded)
	}

	var tr ledger.TransferResult
	referrer.call(http.MethodPost, "/v1/coins/transfer", map[string]any{"recipient_code": pd.ReferralCode, "amount": amount}, &tr, http.StatusCreated)
	referrer.call(http.MethodPost, "/v1/coins/transfer", map[string]any{"recipient_code": pd.ReferralCode, "amount": applied.ReferrerAwarded}, nil, http.StatusConflict)

	referrer.call(http.MethodGet, "/v1/me", nil, &pr, http.StatusOK)
	redeemer.call(http.MethodGet, "/v1/me", nil, &pd, http.StatusOK)
	if pr.CoinPoints+pd.CoinPoints != total {
		log.Fatalf("conservation failed: %d + %d != %d", pr.CoinPoints, pd.CoinPoints, total)
	}
	if pr.CoinPoints != applied.ReferrerAwarded-amount {
		log.Fatalf("unexpected referrer balance %d", pr.CoinPoints)
	}

	fmt.Printf("smoke test passed: transaction=%s referrer=%s redeemer=%s\n", tr.TransactionID, pr.ID, pd.ID)
}
