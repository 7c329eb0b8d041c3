package access

import (
	"context"
	"strings"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
)

// Grant gives a single user the generate_ai_video capability.
type Grant struct {
	ID        string    `json:"id"`
	GranteeID string    `json:"grantee_id"`
	GranterID string    `json:"granter_id"`
	CreatedAt time.Time `json:"created_at"`
}

// GrantView is the admin listing row.
type GrantView struct {
	ID            string    `json:"id"`
	GranteeID     string    `json:"grantee_id"`
	GranteeName   string    `json:"grantee_name"`
	GranteeEmail  string    `json:"grantee_email"`
	GrantedByName string    `json:"granted_by_name"`
	CreatedAt     time.Time `json:"created_at"`
}

var (
	ErrDuplicateGrant  = apperr.Precondition("duplicate_grant", "this user already has video access")
	ErrGranteeNotFound = apperr.NotFound("grantee_not_found", "grantee profile not found")
	ErrGrantNotFound   = apperr.NotFound("grant_not_found", "access grant not found")
	ErrMissingGrantee  = apperr.Validation("invalid_grantee", "grantee_id is required")
)

// GrantStore persists access grants. CreateGrant enforces one grant per
// grantee and returns ErrDuplicateGrant or ErrGranteeNotFound.
type GrantStore interface {
	GrantLookup
	CreateGrant(ctx context.Context, g Grant) (Grant, error)
	DeleteGrant(ctx context.Context, id string) error
	ListGrants(ctx context.Context) ([]GrantView, error)
}

// GrantService manages video access grants on behalf of super admins.
type GrantService struct {
	store GrantStore
	gate  *Gate
}

func NewGrantService(store GrantStore, gate *Gate) *GrantService {
	return &GrantService{store: store, gate: gate}
}

// Grant gives granteeID video access.
func (s *GrantService) Grant(ctx context.Context, actorID, granteeID string) (Grant, error) {
	if err := s.gate.Require(ctx, actorID, auth.CapManageVideoAccess); err != nil {
		return Grant{}, err
	}
	granteeID = strings.TrimSpace(granteeID)
	if granteeID == "" {
		return Grant{}, ErrMissingGrantee
	}
	exists, err := s.store.HasGrant(ctx, granteeID)
	if err != nil {
		return Grant{}, err
	}
	if exists {
		return Grant{}, ErrDuplicateGrant
	}
	return s.store.CreateGrant(ctx, Grant{
		ID:        ids.New(),
		GranteeID: granteeID,
		GranterID: actorID,
		CreatedAt: time.Now().UTC(),
	})
}

// Revoke deletes a grant by id.
func (s *GrantService) Revoke(ctx context.Context, actorID, grantID string) error {
	if err := s.gate.Require(ctx, actorID, auth.CapManageVideoAccess); err != nil {
		return err
	}
	if !ids.Valid(grantID) {
		return ErrGrantNotFound
	}
	return s.store.DeleteGrant(ctx, grantID)
}

// List returns every grant, newest first.
func (s *GrantService) List(ctx context.Context, actorID string) ([]GrantView, error) {
	if err := s.gate.Require(ctx, actorID, auth.CapManageVideoAccess); err != nil {
		return nil, err
	}
	return s.store.ListGrants(ctx)
}
