package profiles

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ident"
)

const (
	maxNameRunes   = 100
	maxAvatarBytes = 2048
	createAttempts = 3
)

type Service struct {
	store      Store
	gen        *ident.Generator
	codeLength int
	gate       Authorizer
}

func NewService(store Store, gen *ident.Generator, codeLength int, gate Authorizer) *Service {
	return &Service{store: store, gen: gen, codeLength: codeLength, gate: gate}
}

// Ensure returns the caller's profile, creating it on first access.
func (s *Service) Ensure(ctx context.Context, id auth.Identity) (Profile, error) {
	userID := strings.TrimSpace(id.UserID)
	if userID == "" {
		return Profile{}, ErrMissingUser
	}
	p, err := s.store.FindProfile(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Profile{}, err
	}

	checker := ident.CheckerFunc(s.store.ReferralCodeExists)
	for attempt := 0; attempt < createAttempts; attempt++ {
		code, err := s.gen.Generate(ctx, ident.ReferralCode(s.codeLength), checker)
		if err != nil {
			return Profile{}, fmt.Errorf("generate referral code: %w", err)
		}
		created, err := s.store.CreateProfile(ctx, Profile{
			ID:           userID,
			FullName:     defaultName(id),
			Email:        strings.TrimSpace(id.Email),
			Role:         auth.RoleStandard,
			ReferralCode: code,
		})
		switch {
		case err == nil:
			return created, nil
		case errors.Is(err, ErrExists):
			return s.store.FindProfile(ctx, userID)
		case errors.Is(err, ErrReferralCodeTaken):
			continue
		default:
			return Profile{}, err
		}
	}
	return Profile{}, fmt.Errorf("create profile: %w", ident.ErrExhausted)
}

func (s *Service) Get(ctx context.Context, userID string) (Profile, error) {
	return s.store.FindProfile(ctx, userID)
}

// Update applies user edits after validating them.
func (s *Service) Update(ctx context.Context, userID string, upd Update) (Profile, error) {
	if upd.FullName != nil {
		name := strings.TrimSpace(*upd.FullName)
		if n := utf8.RuneCountInString(name); n < 1 || n > maxNameRunes {
			return Profile{}, ErrInvalidName
		}
		upd.FullName = &name
	}
	if upd.AvatarURL != nil {
		raw := strings.TrimSpace(*upd.AvatarURL)
		if raw != "" && !validHTTPURL(raw) {
			return Profile{}, ErrInvalidURL
		}
		upd.AvatarURL = &raw
	}
	if upd.FullName == nil && upd.AvatarURL == nil {
		return s.store.FindProfile(ctx, userID)
	}
	return s.store.UpdateProfile(ctx, userID, upd)
}

// ReferralStatus returns the caller's code, counters and referrer, if any.
func (s *Service) ReferralStatus(ctx context.Context, userID string) (ReferralStatus, error) {
	p, err := s.store.FindProfile(ctx, userID)
	if err != nil {
		return ReferralStatus{}, err
	}
	status := ReferralStatus{
		ReferralCode:  p.ReferralCode,
		ReferralCount: p.ReferralCount,
		CoinPoints:    p.CoinPoints,
	}
	if p.ReferredBy != nil {
		ref, err := s.store.FindProfile(ctx, *p.ReferredBy)
		switch {
		case err == nil:
			status.ReferredBy = &Referrer{FullName: ref.FullName, ReferralCode: ref.ReferralCode}
		case errors.Is(err, ErrNotFound):
		default:
			return ReferralStatus{}, err
		}
	}
	return status, nil
}

// SetRole changes targetID's role. The actor needs manage_roles.
func (s *Service) SetRole(ctx context.Context, actorID, targetID string, role auth.Role) (Profile, error) {
	if err := s.gate.Require(ctx, actorID, auth.CapManageRoles); err != nil {
		return Profile{}, err
	}
	if !role.Valid() {
		return Profile{}, ErrInvalidRole
	}
	if strings.TrimSpace(targetID) == "" {
		return Profile{}, ErrMissingUser
	}
	return s.store.SetRole(ctx, strings.TrimSpace(targetID), role)
}

func defaultName(id auth.Identity) string {
	if name := strings.TrimSpace(id.Name); name != "" {
		if utf8.RuneCountInString(name) > maxNameRunes {
			name = string([]rune(name)[:maxNameRunes])
		}
		return name
	}
	if at := strings.IndexByte(id.Email, '@'); at > 0 {
		return strings.TrimSpace(id.Email[:at])
	}
	return "Member"
}

func validHTTPURL(raw string) bool {
	if len(raw) > maxAvatarBytes {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "https" || u.Scheme == "http"
}
