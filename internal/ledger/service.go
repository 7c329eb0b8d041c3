// Package ledger moves coin points between profiles: referral rewards,
// user-to-user transfers and administrative credits.
package ledger

import (
	"context"
	"strings"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ident"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/obs"
)

// Store applies coin mutations atomically. Every method either commits all
// of its row changes and history entries or none of them.
type Store interface {
	// ApplyReferral checks, in order: the redeemer was not referred yet, the
	// code exists, the code is not the redeemer's own. Concurrent calls for
	// one redeemer must serialize so the referrer is credited once.
	ApplyReferral(ctx context.Context, redeemerID, code string, reward Reward) (ApplyResult, error)
	// Transfer resolves the recipient by referral code and moves amount from
	// the sender, refusing to leave the sender below zero.
	Transfer(ctx context.Context, senderID, recipientCode string, amount int64) (TransferResult, error)
	Credit(ctx context.Context, userID string, amount int64) (Transaction, error)
	// ListTransactions returns the user's history with sequence > after,
	// oldest first, and the cursor for the next page (0 when exhausted).
	ListTransactions(ctx context.Context, userID string, limit int, after uint64) ([]Transaction, uint64, error)
}

// Authorizer checks a capability for a user.
type Authorizer interface {
	Require(ctx context.Context, userID string, c auth.Capability) error
}

// Notifier is told about committed transfers.
type Notifier interface {
	NotifyTransfer(res TransferResult)
}

type Config struct {
	Reward     Reward
	CodeLength int
}

type Service struct {
	store  Store
	gate   Authorizer
	cfg    Config
	notify Notifier
}

func NewService(store Store, gate Authorizer, cfg Config) *Service {
	if cfg.CodeLength == 0 {
		cfg.CodeLength = 6
	}
	return &Service{store: store, gate: gate, cfg: cfg}
}

// SetNotifier registers n to receive committed transfers.
func (s *Service) SetNotifier(n Notifier) { s.notify = n }

// Reward returns the configured referral reward.
func (s *Service) Reward() Reward { return s.cfg.Reward }

// ApplyReferral redeems code on behalf of redeemerID.
func (s *Service) ApplyReferral(ctx context.Context, redeemerID, code string) (ApplyResult, error) {
	code = ident.NormalizeCode(code)
	if !ident.ValidCode(code, s.cfg.CodeLength) {
		return ApplyResult{}, s.rejected(ErrInvalidCode)
	}
	res, err := s.store.ApplyReferral(ctx, redeemerID, code, s.cfg.Reward)
	if err != nil {
		return ApplyResult{}, s.rejected(err)
	}
	obs.ReferralApplied()
	return res, nil
}

// Transfer moves amount points from senderID to the owner of recipientCode.
func (s *Service) Transfer(ctx context.Context, senderID, recipientCode string, amount int64) (TransferResult, error) {
	if amount < 1 || amount > MaxAmount {
		return TransferResult{}, s.rejected(ErrInvalidAmount)
	}
	recipientCode = ident.NormalizeCode(recipientCode)
	if !ident.ValidCode(recipientCode, s.cfg.CodeLength) {
		return TransferResult{}, s.rejected(ErrInvalidCode)
	}
	res, err := s.store.Transfer(ctx, senderID, recipientCode, amount)
	if err != nil {
		return TransferResult{}, s.rejected(err)
	}
	obs.CoinsTransferred(amount)
	if s.notify != nil {
		s.notify.NotifyTransfer(res)
	}
	return res, nil
}

// AdminCredit adds amount points to userID. The actor needs manage_coins.
func (s *Service) AdminCredit(ctx context.Context, actorID, userID string, amount int64) (Transaction, error) {
	if err := s.gate.Require(ctx, actorID, auth.CapManageCoins); err != nil {
		return Transaction{}, err
	}
	if amount < 1 || amount > MaxAmount {
		return Transaction{}, ErrInvalidAmount
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Transaction{}, ErrProfileNotFound
	}
	return s.store.Credit(ctx, userID, amount)
}

// History pages through the user's coin movements.
func (s *Service) History(ctx context.Context, userID string, limit int, after uint64) ([]Transaction, uint64, error) {
	if limit < 1 || limit > 200 {
		return nil, 0, ErrInvalidLimit
	}
	return s.store.ListTransactions(ctx, userID, limit, after)
}

func (s *Service) rejected(err error) error {
	if apperr.Expected(err) {
		obs.LedgerRejected(apperr.CodeOf(err))
	}
	return err
}
