package memory

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
)

func seed(t *testing.T, s *Store, id, code string, coins int64) {
	t.Helper()
	if _, err := s.CreateProfile(context.Background(), profiles.Profile{ID: id, FullName: id, ReferralCode: code}); err != nil {
		t.Fatalf("CreateProfile(%s): %v", id, err)
	}
	if coins > 0 {
		if _, err := s.Credit(context.Background(), id, coins); err != nil {
			t.Fatalf("Credit(%s): %v", id, err)
		}
	}
}

func TestCreateProfileConflicts(t *testing.T) {
	s := New()
	seed(t, s, "a", "AAAAAA", 0)

	if _, err := s.CreateProfile(context.Background(), profiles.Profile{ID: "a", ReferralCode: "ZZZZZZ"}); !errors.Is(err, profiles.ErrExists) {
		t.Fatalf("expected ErrExists, got %v", err)
	}
	if _, err := s.CreateProfile(context.Background(), profiles.Profile{ID: "b", ReferralCode: "AAAAAA"}); !errors.Is(err, profiles.ErrReferralCodeTaken) {
		t.Fatalf("expected ErrReferralCodeTaken, got %v", err)
	}
	role, err := s.UserRole(context.Background(), "a")
	if err != nil || role != auth.RoleStandard {
		t.Fatalf("UserRole=%q err=%v", role, err)
	}
}

func TestReturnedProfilesAreCopies(t *testing.T) {
	s := New()
	seed(t, s, "a", "AAAAAA", 0)
	seed(t, s, "b", "BBBBBB", 0)
	if _, err := s.ApplyReferral(context.Background(), "b", "AAAAAA", ledger.DefaultReward()); err != nil {
		t.Fatalf("ApplyReferral: %v", err)
	}
	p, _ := s.FindProfile(context.Background(), "b")
	*p.ReferredBy = "mutated"
	again, _ := s.FindProfile(context.Background(), "b")
	if *again.ReferredBy != "a" {
		t.Fatalf("stored profile was mutated through a returned copy: %q", *again.ReferredBy)
	}
}

func TestConcurrentTransfersConserveCoins(t *testing.T) {
	s := New()
	seed(t, s, "a", "AAAAAA", 1000)
	seed(t, s, "b", "BBBBBB", 1000)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_, _ = s.Transfer(context.Background(), "a", "BBBBBB", 30)
		}()
		go func() {
			defer wg.Done()
			_, _ = s.Transfer(context.Background(), "b", "AAAAAA", 20)
		}()
	}
	wg.Wait()

	a, _ := s.FindProfile(context.Background(), "a")
	b, _ := s.FindProfile(context.Background(), "b")
	if a.CoinPoints < 0 || b.CoinPoints < 0 {
		t.Fatalf("negative balance: a=%d b=%d", a.CoinPoints, b.CoinPoints)
	}
	if a.CoinPoints+b.CoinPoints != 2000 {
		t.Fatalf("conservation violated: a+b=%d", a.CoinPoints+b.CoinPoints)
	}
}

func TestCreditRefusesOverflow(t *testing.T) {
	s := New()
	seed(t, s, "a", "AAAAAA", 10)
	seed(t, s, "b", "BBBBBB", math.MaxInt64-5)
	ctx := context.Background()

	if _, err := s.Credit(ctx, "a", math.MaxInt64); !errors.Is(err, ledger.ErrBalanceOverflow) {
		t.Fatalf("Credit: expected ErrBalanceOverflow, got %v", err)
	}
	if _, err := s.Transfer(ctx, "a", "BBBBBB", 6); !errors.Is(err, ledger.ErrBalanceOverflow) {
		t.Fatalf("Transfer: expected ErrBalanceOverflow, got %v", err)
	}
	a, _ := s.FindProfile(ctx, "a")
	b, _ := s.FindProfile(ctx, "b")
	if a.CoinPoints != 10 || b.CoinPoints != math.MaxInt64-5 {
		t.Fatalf("refused mutations changed balances: a=%d b=%d", a.CoinPoints, b.CoinPoints)
	}
	txs, _, _ := s.ListTransactions(ctx, "a", 10, 0)
	if len(txs) != 1 {
		t.Fatalf("refused mutations wrote history: %+v", txs)
	}
}

func TestListTransactionsPaging(t *testing.T) {
	s := New()
	seed(t, s, "a", "AAAAAA", 100)
	seed(t, s, "b", "BBBBBB", 0)
	seed(t, s, "c", "CCCCCC", 50)
	for i := 0; i < 3; i++ {
		if _, err := s.Transfer(context.Background(), "a", "BBBBBB", 10); err != nil {
			t.Fatalf("Transfer: %v", err)
		}
	}

	page, next, err := s.ListTransactions(context.Background(), "a", 2, 0)
	if err != nil {
		t.Fatalf("ListTransactions: %v", err)
	}
	if len(page) != 2 || next == 0 {
		t.Fatalf("unexpected first page: %d items, next=%d", len(page), next)
	}
	if page[0].Kind != ledger.KindAdminCredit {
		t.Fatalf("expected the credit first, got %s", page[0].Kind)
	}
	rest, next, _ := s.ListTransactions(context.Background(), "a", 2, next)
	if len(rest) != 2 || rest[0].Sequence <= page[1].Sequence {
		t.Fatalf("unexpected second page: %+v", rest)
	}
	tail, next, _ := s.ListTransactions(context.Background(), "a", 2, next)
	if len(tail) != 0 || next != 0 {
		t.Fatalf("expected exhausted history, got %d items next=%d", len(tail), next)
	}
	for _, tx := range append(page, rest...) {
		if tx.FromUserID != "a" && tx.ToUserID != "a" {
			t.Fatalf("foreign transaction in history: %+v", tx)
		}
	}
}

func TestGrantLifecycle(t *testing.T) {
	s := New()
	seed(t, s, "admin", "AAAAAA", 0)
	seed(t, s, "user", "BBBBBB", 0)

	g, err := s.CreateGrant(context.Background(), access.Grant{ID: "g1", GranteeID: "user", GranterID: "admin"})
	if err != nil {
		t.Fatalf("CreateGrant: %v", err)
	}
	if _, err := s.CreateGrant(context.Background(), access.Grant{ID: "g2", GranteeID: "user", GranterID: "admin"}); !errors.Is(err, access.ErrDuplicateGrant) {
		t.Fatalf("expected ErrDuplicateGrant, got %v", err)
	}
	if _, err := s.CreateGrant(context.Background(), access.Grant{ID: "g3", GranteeID: "ghost"}); !errors.Is(err, access.ErrGranteeNotFound) {
		t.Fatalf("expected ErrGranteeNotFound, got %v", err)
	}
	views, _ := s.ListGrants(context.Background())
	if len(views) != 1 || views[0].GranteeName != "user" || views[0].GrantedByName != "admin" {
		t.Fatalf("unexpected grant views: %+v", views)
	}
	if err := s.DeleteGrant(context.Background(), g.ID); err != nil {
		t.Fatalf("DeleteGrant: %v", err)
	}
	if ok, _ := s.HasGrant(context.Background(), "user"); ok {
		t.Fatal("grant still present after delete")
	}
	if err := s.DeleteGrant(context.Background(), g.ID); !errors.Is(err, access.ErrGrantNotFound) {
		t.Fatalf("expected ErrGrantNotFound, got %v", err)
	}
}
