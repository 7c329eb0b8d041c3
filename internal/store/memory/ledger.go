package memory

import (
	"context"
	"math"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
)

// appendTx records a history entry. Callers hold s.mu.
func (s *Store) appendTx(kind ledger.Kind, from, to string, amount int64) ledger.Transaction {
	s.seq++
	tx := ledger.Transaction{
		ID:         ids.New(),
		Sequence:   s.seq,
		Kind:       kind,
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
		CreatedAt:  s.now(),
	}
	s.txs = append(s.txs, tx)
	return tx
}

func (s *Store) ApplyReferral(_ context.Context, redeemerID, code string, reward ledger.Reward) (ledger.ApplyResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	redeemer, ok := s.profiles[redeemerID]
	if !ok {
		return ledger.ApplyResult{}, ledger.ErrProfileNotFound
	}
	if redeemer.ReferredBy != nil {
		return ledger.ApplyResult{}, ledger.ErrAlreadyReferred
	}
	referrerID, ok := s.codes[code]
	if !ok {
		return ledger.ApplyResult{}, ledger.ErrCodeNotFound
	}
	if referrerID == redeemerID {
		return ledger.ApplyResult{}, ledger.ErrSelfReferral
	}
	referrer := s.profiles[referrerID]
	now := s.now()

	ref := referrerID
	redeemer.ReferredBy = &ref
	redeemer.CoinPoints += reward.Redeemer
	redeemer.UpdatedAt = now
	referrer.ReferralCount++
	referrer.CoinPoints += reward.Referrer
	referrer.UpdatedAt = now

	if reward.Referrer > 0 {
		s.appendTx(ledger.KindReferralReward, "", referrerID, reward.Referrer)
	}
	if reward.Redeemer > 0 {
		s.appendTx(ledger.KindReferralReward, "", redeemerID, reward.Redeemer)
	}
	return ledger.ApplyResult{
		ReferrerID:      referrerID,
		ReferrerAwarded: reward.Referrer,
		RedeemerAwarded: reward.Redeemer,
	}, nil
}

func (s *Store) Transfer(_ context.Context, senderID, recipientCode string, amount int64) (ledger.TransferResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 1 {
		return ledger.TransferResult{}, ledger.ErrInvalidAmount
	}
	recipientID, ok := s.codes[recipientCode]
	if !ok {
		return ledger.TransferResult{}, ledger.ErrRecipientNotFound
	}
	if recipientID == senderID {
		return ledger.TransferResult{}, ledger.ErrSelfTransfer
	}
	sender, ok := s.profiles[senderID]
	if !ok {
		return ledger.TransferResult{}, ledger.ErrProfileNotFound
	}
	if sender.CoinPoints < amount {
		return ledger.TransferResult{}, ledger.ErrInsufficientFunds
	}
	recipient := s.profiles[recipientID]
	if recipient.CoinPoints > math.MaxInt64-amount {
		return ledger.TransferResult{}, ledger.ErrBalanceOverflow
	}
	now := s.now()
	sender.CoinPoints -= amount
	sender.UpdatedAt = now
	recipient.CoinPoints += amount
	recipient.UpdatedAt = now
	tx := s.appendTx(ledger.KindTransfer, senderID, recipientID, amount)

	return ledger.TransferResult{
		TransactionID:    tx.ID,
		SenderID:         senderID,
		RecipientID:      recipientID,
		Amount:           amount,
		SenderBalance:    sender.CoinPoints,
		RecipientBalance: recipient.CoinPoints,
		CreatedAt:        tx.CreatedAt,
	}, nil
}

func (s *Store) Credit(_ context.Context, userID string, amount int64) (ledger.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if amount < 1 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	p, ok := s.profiles[userID]
	if !ok {
		return ledger.Transaction{}, ledger.ErrProfileNotFound
	}
	if p.CoinPoints > math.MaxInt64-amount {
		return ledger.Transaction{}, ledger.ErrBalanceOverflow
	}
	p.CoinPoints += amount
	p.UpdatedAt = s.now()
	return s.appendTx(ledger.KindAdminCredit, "", userID, amount), nil
}

func (s *Store) ListTransactions(_ context.Context, userID string, limit int, after uint64) ([]ledger.Transaction, uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]ledger.Transaction, 0, limit)
	for _, tx := range s.txs {
		if tx.Sequence <= after {
			continue
		}
		if tx.FromUserID != userID && tx.ToUserID != userID {
			continue
		}
		out = append(out, tx)
		if len(out) == limit {
			return out, tx.Sequence, nil
		}
	}
	return out, 0, nil
}
