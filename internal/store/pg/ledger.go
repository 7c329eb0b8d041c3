package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ledger"
)

func insertTransaction(ctx context.Context, tx *sql.Tx, kind ledger.Kind, from, to string, amount int64) (ledger.Transaction, error) {
	t := ledger.Transaction{
		ID:         ids.New(),
		Kind:       kind,
		FromUserID: from,
		ToUserID:   to,
		Amount:     amount,
	}
	err := tx.QueryRowContext(ctx, `
		insert into coin_transactions (id, kind, from_user_id, to_user_id, amount)
		values ($1, $2, $3, $4, $5)
		returning sequence, created_at
	`, t.ID, string(kind), nullIfEmpty(from), to, amount).Scan(&t.Sequence, &t.CreatedAt)
	if err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

func (s *Store) ApplyReferral(ctx context.Context, redeemerID, code string, reward ledger.Reward) (ledger.ApplyResult, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.ApplyResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	// Codes never change, so the owner can be resolved before locking.
	var referrerID string
	err = tx.QueryRowContext(ctx, `select id from profiles where referral_code = $1`, code).Scan(&referrerID)
	codeFound := err == nil
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return ledger.ApplyResult{}, err
	}

	lock := []string{redeemerID}
	if codeFound && referrerID != redeemerID {
		lock = sorted(redeemerID, referrerID)
	}
	var redeemerReferredBy sql.NullString
	for _, id := range lock {
		var referredBy sql.NullString
		err := tx.QueryRowContext(ctx, `select referred_by from profiles where id = $1 for update`, id).Scan(&referredBy)
		if errors.Is(err, sql.ErrNoRows) {
			if id == redeemerID {
				return ledger.ApplyResult{}, ledger.ErrProfileNotFound
			}
			return ledger.ApplyResult{}, ledger.ErrCodeNotFound
		}
		if err != nil {
			return ledger.ApplyResult{}, err
		}
		if id == redeemerID {
			redeemerReferredBy = referredBy
		}
	}

	switch {
	case redeemerReferredBy.Valid:
		return ledger.ApplyResult{}, ledger.ErrAlreadyReferred
	case !codeFound:
		return ledger.ApplyResult{}, ledger.ErrCodeNotFound
	case referrerID == redeemerID:
		return ledger.ApplyResult{}, ledger.ErrSelfReferral
	}

	if _, err := tx.ExecContext(ctx, `
		update profiles
		set referred_by = $2, coin_points = coin_points + $3, updated_at = now()
		where id = $1 and referred_by is null
	`, redeemerID, referrerID, reward.Redeemer); err != nil {
		return ledger.ApplyResult{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		update profiles
		set referral_count = referral_count + 1, coin_points = coin_points + $2, updated_at = now()
		where id = $1
	`, referrerID, reward.Referrer); err != nil {
		return ledger.ApplyResult{}, err
	}
	if reward.Referrer > 0 {
		if _, err := insertTransaction(ctx, tx, ledger.KindReferralReward, "", referrerID, reward.Referrer); err != nil {
			return ledger.ApplyResult{}, err
		}
	}
	if reward.Redeemer > 0 {
		if _, err := insertTransaction(ctx, tx, ledger.KindReferralReward, "", redeemerID, reward.Redeemer); err != nil {
			return ledger.ApplyResult{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return ledger.ApplyResult{}, err
	}
	return ledger.ApplyResult{
		ReferrerID:      referrerID,
		ReferrerAwarded: reward.Referrer,
		RedeemerAwarded: reward.Redeemer,
	}, nil
}

func (s *Store) Transfer(ctx context.Context, senderID, recipientCode string, amount int64) (ledger.TransferResult, error) {
	if amount < 1 {
		return ledger.TransferResult{}, ledger.ErrInvalidAmount
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var recipientID string
	err = tx.QueryRowContext(ctx, `select id from profiles where referral_code = $1`, recipientCode).Scan(&recipientID)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.TransferResult{}, ledger.ErrRecipientNotFound
	}
	if err != nil {
		return ledger.TransferResult{}, err
	}
	if recipientID == senderID {
		return ledger.TransferResult{}, ledger.ErrSelfTransfer
	}

	// Lock both rows in a stable order to avoid deadlocks
	balances := make(map[string]int64, 2)
	for _, id := range sorted(senderID, recipientID) {
		var coins int64
		err := tx.QueryRowContext(ctx, `select coin_points from profiles where id = $1 for update`, id).Scan(&coins)
		if errors.Is(err, sql.ErrNoRows) {
			if id == senderID {
				return ledger.TransferResult{}, ledger.ErrProfileNotFound
			}
			return ledger.TransferResult{}, ledger.ErrRecipientNotFound
		}
		if err != nil {
			return ledger.TransferResult{}, err
		}
		balances[id] = coins
	}
	if balances[senderID] < amount {
		return ledger.TransferResult{}, ledger.ErrInsufficientFunds
	}

	res := ledger.TransferResult{SenderID: senderID, RecipientID: recipientID, Amount: amount}
	err = tx.QueryRowContext(ctx, `
		update profiles set coin_points = coin_points - $2, updated_at = now()
		where id = $1 and coin_points >= $2
		returning coin_points
	`, senderID, amount).Scan(&res.SenderBalance)
	if errors.Is(err, sql.ErrNoRows) {
		return ledger.TransferResult{}, ledger.ErrInsufficientFunds
	}
	if err != nil {
		return ledger.TransferResult{}, err
	}
	if err := tx.QueryRowContext(ctx, `
		update profiles set coin_points = coin_points + $2, updated_at = now()
		where id = $1
		returning coin_points
	`, recipientID, amount).Scan(&res.RecipientBalance); err != nil {
		if violates(err, pgErrNumericOutOfRange, "") {
			return ledger.TransferResult{}, ledger.ErrBalanceOverflow
		}
		return ledger.TransferResult{}, err
	}

	t, err := insertTransaction(ctx, tx, ledger.KindTransfer, senderID, recipientID, amount)
	if err != nil {
		return ledger.TransferResult{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.TransferResult{}, err
	}
	res.TransactionID = t.ID
	res.CreatedAt = t.CreatedAt
	return res, nil
}

func (s *Store) Credit(ctx context.Context, userID string, amount int64) (ledger.Transaction, error) {
	if amount < 1 {
		return ledger.Transaction{}, ledger.ErrInvalidAmount
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ledger.Transaction{}, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, `
		update profiles set coin_points = coin_points + $2, updated_at = now()
		where id = $1
	`, userID, amount)
	if violates(err, pgErrNumericOutOfRange, "") {
		return ledger.Transaction{}, ledger.ErrBalanceOverflow
	}
	if err != nil {
		return ledger.Transaction{}, err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return ledger.Transaction{}, err
	}
	if aff == 0 {
		return ledger.Transaction{}, ledger.ErrProfileNotFound
	}
	t, err := insertTransaction(ctx, tx, ledger.KindAdminCredit, "", userID, amount)
	if err != nil {
		return ledger.Transaction{}, err
	}
	if err := tx.Commit(); err != nil {
		return ledger.Transaction{}, err
	}
	return t, nil
}

func (s *Store) ListTransactions(ctx context.Context, userID string, limit int, after uint64) ([]ledger.Transaction, uint64, error) {
	rows, err := s.db.QueryContext(ctx, `
		select sequence, id, kind, coalesce(from_user_id, ''), to_user_id, amount, created_at
		from coin_transactions
		where (from_user_id = $1 or to_user_id = $1) and sequence > $2
		order by sequence asc
		limit $3
	`, userID, int64(after), limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	res := make([]ledger.Transaction, 0, limit)
	for rows.Next() {
		var (
			t    ledger.Transaction
			seq  int64
			kind string
		)
		if err := rows.Scan(&seq, &t.ID, &kind, &t.FromUserID, &t.ToUserID, &t.Amount, &t.CreatedAt); err != nil {
			return nil, 0, err
		}
		t.Sequence = uint64(seq)
		t.Kind = ledger.Kind(kind)
		res = append(res, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	var next uint64
	if len(res) == limit {
		next = res[len(res)-1].Sequence
	}
	return res, next, nil
}
