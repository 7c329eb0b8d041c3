// Package profiles owns user profiles: lazy provisioning on first
// authenticated access, profile edits, referral status and role changes.
package profiles

import (
	"context"
	"errors"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
)

// Profile is the per-user record holding role, referral and coin state.
type Profile struct {
	ID            string    `json:"id"`
	FullName      string    `json:"full_name"`
	Email         string    `json:"email"`
	Role          auth.Role `json:"role"`
	ReferralCode  string    `json:"referral_code"`
	ReferralCount int64     `json:"referral_count"`
	CoinPoints    int64     `json:"coin_points"`
	ReferredBy    *string   `json:"referred_by,omitempty"`
	AvatarURL     string    `json:"avatar_url,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Update lists the user-editable fields. Nil means unchanged.
type Update struct {
	FullName  *string
	AvatarURL *string
}

// Referrer is the public view of the profile whose code a user redeemed.
type Referrer struct {
	FullName     string `json:"full_name"`
	ReferralCode string `json:"referral_code"`
}

// ReferralStatus summarizes a user's standing in the referral program.
type ReferralStatus struct {
	ReferralCode  string    `json:"referral_code"`
	ReferralCount int64     `json:"referral_count"`
	CoinPoints    int64     `json:"coin_points"`
	ReferredBy    *Referrer `json:"referred_by"`
}

var (
	ErrNotFound    = apperr.NotFound("profile_not_found", "profile not found")
	ErrInvalidName = apperr.Validation("invalid_name", "full_name must be between 1 and 100 characters")
	ErrInvalidURL  = apperr.Validation("invalid_avatar_url", "avatar_url must be an absolute http(s) URL")
	ErrInvalidRole = apperr.Validation("invalid_role", "role must be standard, community_admin or super_admin")
	ErrMissingUser = apperr.Validation("invalid_user", "user id is required")

	// ErrExists and ErrReferralCodeTaken are returned by Store.CreateProfile
	// when a concurrent insert won the race on the id or the code.
	ErrExists            = errors.New("profiles: profile already exists")
	ErrReferralCodeTaken = errors.New("profiles: referral code already taken")
)

// Store persists profiles.
type Store interface {
	FindProfile(ctx context.Context, id string) (Profile, error)
	FindProfileByReferralCode(ctx context.Context, code string) (Profile, error)
	ReferralCodeExists(ctx context.Context, code string) (bool, error)
	CreateProfile(ctx context.Context, p Profile) (Profile, error)
	UpdateProfile(ctx context.Context, id string, upd Update) (Profile, error)
	SetRole(ctx context.Context, id string, role auth.Role) (Profile, error)
}

// Authorizer checks a capability for a user.
type Authorizer interface {
	Require(ctx context.Context, userID string, c auth.Capability) error
}
