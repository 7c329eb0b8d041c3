package ledger

import (
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
)

// Kind classifies a coin movement.
type Kind string

const (
	KindReferralReward Kind = "referral_reward"
	KindTransfer       Kind = "transfer"
	KindAdminCredit    Kind = "admin_credit"
)

// Reward fixes how many points a successful referral credits. The referrer
// always earns Referrer; the redeemer earns Redeemer, which may be zero.
type Reward struct {
	Referrer int64
	Redeemer int64
}

// DefaultReward credits the referrer only.
func DefaultReward() Reward { return Reward{Referrer: 50} }

// Transaction is one entry of the coin history.
type Transaction struct {
	ID         string    `json:"id"`
	Sequence   uint64    `json:"sequence"`
	Kind       Kind      `json:"kind"`
	FromUserID string    `json:"from_user_id,omitempty"`
	ToUserID   string    `json:"to_user_id"`
	Amount     int64     `json:"amount"`
	CreatedAt  time.Time `json:"created_at"`
}

// ApplyResult describes a committed referral.
type ApplyResult struct {
	ReferrerID      string `json:"referrer_id"`
	ReferrerAwarded int64  `json:"referrer_awarded"`
	RedeemerAwarded int64  `json:"redeemer_awarded"`
}

// TransferResult describes a committed transfer.
type TransferResult struct {
	TransactionID    string    `json:"transaction_id"`
	SenderID         string    `json:"sender_id"`
	RecipientID      string    `json:"recipient_id"`
	Amount           int64     `json:"amount"`
	SenderBalance    int64     `json:"sender_balance"`
	RecipientBalance int64     `json:"recipient_balance"`
	CreatedAt        time.Time `json:"created_at"`
}

// MaxAmount bounds a single transfer or credit.
const MaxAmount int64 = 1_000_000_000

var (
	ErrInvalidCode       = apperr.Validation("invalid_code", "referral code has the wrong length or characters")
	ErrInvalidAmount     = apperr.Validation("invalid_amount", "amount must be a whole number between 1 and 1000000000")
	ErrBalanceOverflow   = apperr.Precondition("balance_overflow", "coin balance would exceed its maximum")
	ErrAlreadyReferred   = apperr.Precondition("already_referred", "you have already used a referral code")
	ErrCodeNotFound      = apperr.NotFound("code_not_found", "referral code not found")
	ErrSelfReferral      = apperr.Precondition("self_referral", "you cannot use your own referral code")
	ErrRecipientNotFound = apperr.NotFound("recipient_not_found", "no user has this referral code")
	ErrSelfTransfer      = apperr.Precondition("self_transfer", "you cannot transfer coins to yourself")
	ErrInsufficientFunds = apperr.Precondition("insufficient_funds", "insufficient coin balance")
	ErrProfileNotFound   = apperr.NotFound("profile_not_found", "profile not found")
	ErrInvalidLimit      = apperr.Validation("invalid_limit", "limit must be between 1 and 200")
)
