package ledger_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/store/memory"
)

func newLedger(reward ledger.Reward) (*memory.Store, *ledger.Service) {
	store := memory.New()
	gate := access.NewGate(store, store)
	return store, ledger.NewService(store, gate, ledger.Config{Reward: reward, CodeLength: 6})
}

func seed(t *testing.T, store *memory.Store, id, code string, coins int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := store.CreateProfile(ctx, profiles.Profile{ID: id, FullName: id, ReferralCode: code}); err != nil {
		t.Fatalf("seed %s: %v", id, err)
	}
	if coins > 0 {
		if _, err := store.Credit(ctx, id, coins); err != nil {
			t.Fatalf("seed credit %s: %v", id, err)
		}
	}
}

func profile(t *testing.T, store *memory.Store, id string) profiles.Profile {
	t.Helper()
	p, err := store.FindProfile(context.Background(), id)
	if err != nil {
		t.Fatalf("FindProfile(%s): %v", id, err)
	}
	return p
}

func TestApplyReferralCreditsReferrer(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "A", "AB12C3", 0)
	seed(t, store, "B", "QQQQQQ", 0)

	res, err := svc.ApplyReferral(context.Background(), "B", " ab12c3 ")
	if err != nil {
		t.Fatalf("ApplyReferral: %v", err)
	}
	if res.ReferrerID != "A" || res.ReferrerAwarded != 50 || res.RedeemerAwarded != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	a, b := profile(t, store, "A"), profile(t, store, "B")
	if a.ReferralCount != 1 || a.CoinPoints != 50 {
		t.Fatalf("referrer not credited: count=%d coins=%d", a.ReferralCount, a.CoinPoints)
	}
	if b.ReferredBy == nil || *b.ReferredBy != "A" || b.CoinPoints != 0 {
		t.Fatalf("redeemer state wrong: %+v", b)
	}
}

func TestApplyReferralRedeemerReward(t *testing.T) {
	store, svc := newLedger(ledger.Reward{Referrer: 50, Redeemer: 10})
	seed(t, store, "A", "AB12C3", 0)
	seed(t, store, "B", "QQQQQQ", 0)

	if _, err := svc.ApplyReferral(context.Background(), "B", "AB12C3"); err != nil {
		t.Fatalf("ApplyReferral: %v", err)
	}
	if got := profile(t, store, "B").CoinPoints; got != 10 {
		t.Fatalf("redeemer coins=%d, want 10", got)
	}
	txs, _, _ := svc.History(context.Background(), "B", 10, 0)
	if len(txs) != 1 || txs[0].Kind != ledger.KindReferralReward || txs[0].Amount != 10 {
		t.Fatalf("unexpected redeemer history: %+v", txs)
	}
}

func TestApplyReferralRejections(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "A", "AB12C3", 0)
	seed(t, store, "B", "QQQQQQ", 0)
	seed(t, store, "C", "CCCCCC", 0)
	ctx := context.Background()

	if _, err := svc.ApplyReferral(ctx, "B", "AB1"); !errors.Is(err, ledger.ErrInvalidCode) {
		t.Fatalf("short code: expected ErrInvalidCode, got %v", err)
	}
	if _, err := svc.ApplyReferral(ctx, "B", "ZZZZZZ"); !errors.Is(err, ledger.ErrCodeNotFound) {
		t.Fatalf("unknown code: expected ErrCodeNotFound, got %v", err)
	}
	if _, err := svc.ApplyReferral(ctx, "B", "QQQQQQ"); !errors.Is(err, ledger.ErrSelfReferral) {
		t.Fatalf("own code: expected ErrSelfReferral, got %v", err)
	}
	if b := profile(t, store, "B"); b.ReferredBy != nil || b.CoinPoints != 0 {
		t.Fatalf("rejected referral mutated redeemer: %+v", b)
	}

	if _, err := svc.ApplyReferral(ctx, "B", "AB12C3"); err != nil {
		t.Fatalf("first apply: %v", err)
	}
	if _, err := svc.ApplyReferral(ctx, "B", "CCCCCC"); !errors.Is(err, ledger.ErrAlreadyReferred) {
		t.Fatalf("second apply: expected ErrAlreadyReferred, got %v", err)
	}
	// already-referred wins over self-referral
	if _, err := svc.ApplyReferral(ctx, "B", "QQQQQQ"); !errors.Is(err, ledger.ErrAlreadyReferred) {
		t.Fatalf("expected ErrAlreadyReferred, got %v", err)
	}
	if c := profile(t, store, "C"); c.ReferralCount != 0 || c.CoinPoints != 0 {
		t.Fatalf("second referrer was credited: %+v", c)
	}
	if apperr.KindOf(ledger.ErrAlreadyReferred) != apperr.KindPrecondition {
		t.Fatal("already_referred must be a precondition failure")
	}
}

func TestConcurrentRedemptionCreditsOnce(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "A", "AB12C3", 0)
	seed(t, store, "B", "QQQQQQ", 0)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyReferral(context.Background(), "B", "AB12C3")
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, ledger.ErrAlreadyReferred) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("expected exactly one successful redemption, got %d", successes)
	}
	a := profile(t, store, "A")
	if a.ReferralCount != 1 || a.CoinPoints != 50 {
		t.Fatalf("referrer credited more than once: %+v", a)
	}
}

func TestTransferScenario(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "C", "CCCCCC", 100)
	seed(t, store, "D", "XY9Z8W", 10)
	ctx := context.Background()

	res, err := svc.Transfer(ctx, "C", "xy9z8w", 30)
	if err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if res.SenderBalance != 70 || res.RecipientBalance != 40 || res.RecipientID != "D" {
		t.Fatalf("unexpected result: %+v", res)
	}

	if _, err := svc.Transfer(ctx, "C", "XY9Z8W", 80); !errors.Is(err, ledger.ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}
	if c, d := profile(t, store, "C"), profile(t, store, "D"); c.CoinPoints != 70 || d.CoinPoints != 40 {
		t.Fatalf("failed transfer mutated balances: C=%d D=%d", c.CoinPoints, d.CoinPoints)
	}
}

func TestTransferRejections(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "C", "CCCCCC", 100)
	seed(t, store, "D", "XY9Z8W", 0)
	ctx := context.Background()

	cases := []struct {
		name   string
		code   string
		amount int64
		want   error
	}{
		{"zero amount", "XY9Z8W", 0, ledger.ErrInvalidAmount},
		{"negative amount", "XY9Z8W", -5, ledger.ErrInvalidAmount},
		{"amount above maximum", "XY9Z8W", ledger.MaxAmount + 1, ledger.ErrInvalidAmount},
		{"malformed code", "XY9", 10, ledger.ErrInvalidCode},
		{"unknown recipient", "ZZZZZZ", 10, ledger.ErrRecipientNotFound},
		{"self transfer", "CCCCCC", 10, ledger.ErrSelfTransfer},
	}
	for _, tc := range cases {
		if _, err := svc.Transfer(ctx, "C", tc.code, tc.amount); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
	}
	if c := profile(t, store, "C"); c.CoinPoints != 100 {
		t.Fatalf("rejected transfers changed balance: %d", c.CoinPoints)
	}
}

func TestConcurrentTransfersNeverOverdraw(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "C", "CCCCCC", 100)
	seed(t, store, "D", "DDDDDD", 0)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = svc.Transfer(context.Background(), "C", "DDDDDD", 7)
		}()
	}
	wg.Wait()

	c, d := profile(t, store, "C"), profile(t, store, "D")
	if c.CoinPoints < 0 {
		t.Fatalf("sender went negative: %d", c.CoinPoints)
	}
	if c.CoinPoints+d.CoinPoints != 100 {
		t.Fatalf("conservation violated: %d + %d", c.CoinPoints, d.CoinPoints)
	}
	if d.CoinPoints != 98 {
		t.Fatalf("expected 14 transfers of 7 to land, recipient has %d", d.CoinPoints)
	}
}

type recordingNotifier struct {
	mu   sync.Mutex
	seen []ledger.TransferResult
}

func (r *recordingNotifier) NotifyTransfer(res ledger.TransferResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seen = append(r.seen, res)
}

func TestTransferNotifies(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "C", "CCCCCC", 100)
	seed(t, store, "D", "DDDDDD", 0)
	n := &recordingNotifier{}
	svc.SetNotifier(n)

	if _, err := svc.Transfer(context.Background(), "C", "DDDDDD", 500); err == nil {
		t.Fatal("expected insufficient funds")
	}
	if _, err := svc.Transfer(context.Background(), "C", "DDDDDD", 5); err != nil {
		t.Fatalf("Transfer: %v", err)
	}
	if len(n.seen) != 1 || n.seen[0].Amount != 5 {
		t.Fatalf("notifier saw %+v", n.seen)
	}
}

func TestAdminCredit(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "admin", "AAAAAA", 0)
	seed(t, store, "user", "UUUUUU", 0)
	ctx := context.Background()

	if _, err := svc.AdminCredit(ctx, "user", "user", 100); !errors.Is(err, access.ErrForbidden) {
		t.Fatalf("standard user: expected ErrForbidden, got %v", err)
	}
	if _, err := store.SetRole(ctx, "admin", auth.RoleSuperAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}
	tx, err := svc.AdminCredit(ctx, "admin", "user", 100)
	if err != nil {
		t.Fatalf("AdminCredit: %v", err)
	}
	if tx.Kind != ledger.KindAdminCredit || tx.ToUserID != "user" {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if _, err := svc.AdminCredit(ctx, "admin", "ghost", 100); !errors.Is(err, ledger.ErrProfileNotFound) {
		t.Fatalf("expected ErrProfileNotFound, got %v", err)
	}
	if _, err := svc.AdminCredit(ctx, "admin", "user", 0); !errors.Is(err, ledger.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
	if got := profile(t, store, "user").CoinPoints; got != 100 {
		t.Fatalf("user coins=%d", got)
	}
}

func TestAdminCreditBoundsAmount(t *testing.T) {
	store, svc := newLedger(ledger.DefaultReward())
	seed(t, store, "root", "RRRRRR", 0)
	seed(t, store, "user", "UUUUUU", 10)
	ctx := context.Background()
	if _, err := store.SetRole(ctx, "root", auth.RoleSuperAdmin); err != nil {
		t.Fatalf("SetRole: %v", err)
	}

	for _, amount := range []int64{ledger.MaxAmount + 1, math.MaxInt64} {
		_, err := svc.AdminCredit(ctx, "root", "user", amount)
		if !errors.Is(err, ledger.ErrInvalidAmount) {
			t.Fatalf("amount %d: expected ErrInvalidAmount, got %v", amount, err)
		}
		if apperr.KindOf(err) != apperr.KindValidation {
			t.Fatalf("amount %d: kind=%v", amount, apperr.KindOf(err))
		}
	}
	if _, err := svc.AdminCredit(ctx, "root", "user", ledger.MaxAmount); err != nil {
		t.Fatalf("AdminCredit(MaxAmount): %v", err)
	}
	if got := profile(t, store, "user").CoinPoints; got != 10+ledger.MaxAmount {
		t.Fatalf("user coins=%d", got)
	}
}

func TestHistoryLimit(t *testing.T) {
	_, svc := newLedger(ledger.DefaultReward())
	if _, _, err := svc.History(context.Background(), "x", 0, 0); !errors.Is(err, ledger.ErrInvalidLimit) {
		t.Fatalf("expected ErrInvalidLimit, got %v", err)
	}
}
