// Package access decides whether a user may perform a gated action, based
// on the user's role and, for video generation, an explicit grant.
package access

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
)

var ErrForbidden = apperr.Forbidden("forbidden", "you are not allowed to perform this action")

// RoleLookup resolves a user's current role. Unknown users yield a
// not-found apperr.
type RoleLookup interface {
	UserRole(ctx context.Context, userID string) (auth.Role, error)
}

// GrantLookup reports whether a user holds an explicit video access grant.
type GrantLookup interface {
	HasGrant(ctx context.Context, userID string) (bool, error)
}

// Decision is the outcome of a capability check.
type Decision struct {
	Allowed bool   `json:"allowed"`
	Reason  string `json:"reason"`
}

type rule struct {
	roles      []auth.Role
	grantWorks bool
}

var rules = map[auth.Capability]rule{
	auth.CapManageVideoAccess: {roles: []auth.Role{auth.RoleSuperAdmin}},
	auth.CapGenerateVideo:     {roles: []auth.Role{auth.RoleCommunityAdmin, auth.RoleSuperAdmin}, grantWorks: true},
	auth.CapCreateCommunity:   {roles: []auth.Role{auth.RoleCommunityAdmin, auth.RoleSuperAdmin}},
	auth.CapManageCoins:       {roles: []auth.Role{auth.RoleSuperAdmin}},
	auth.CapManageRoles:       {roles: []auth.Role{auth.RoleSuperAdmin}},
}

// Gate evaluates capability rules against fresh role and grant data.
type Gate struct {
	roles  RoleLookup
	grants GrantLookup
}

func NewGate(roles RoleLookup, grants GrantLookup) *Gate {
	return &Gate{roles: roles, grants: grants}
}

// Check evaluates c for userID. Errors are returned only for lookup failures.
func (g *Gate) Check(ctx context.Context, userID string, c auth.Capability) (Decision, error) {
	r, ok := rules[c]
	if !ok {
		return Decision{Reason: "unknown capability"}, nil
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Decision{Reason: "not authenticated"}, nil
	}
	role, err := g.roles.UserRole(ctx, userID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return Decision{Reason: "unknown user"}, nil
		}
		return Decision{}, fmt.Errorf("lookup role: %w", err)
	}
	if slices.Contains(r.roles, role) {
		return Decision{Allowed: true, Reason: "role " + string(role)}, nil
	}
	if r.grantWorks {
		granted, err := g.grants.HasGrant(ctx, userID)
		if err != nil {
			return Decision{}, fmt.Errorf("lookup grant: %w", err)
		}
		if granted {
			return Decision{Allowed: true, Reason: "access grant"}, nil
		}
	}
	return Decision{Reason: "role " + string(role) + " lacks " + string(c)}, nil
}

// Require returns ErrForbidden unless userID holds c.
func (g *Gate) Require(ctx context.Context, userID string, c auth.Capability) error {
	d, err := g.Check(ctx, userID, c)
	if err != nil {
		return err
	}
	if !d.Allowed {
		return ErrForbidden
	}
	return nil
}

// Capabilities evaluates every known capability for userID.
func (g *Gate) Capabilities(ctx context.Context, userID string) (map[auth.Capability]bool, error) {
	out := make(map[auth.Capability]bool, len(auth.Capabilities))
	for _, c := range auth.Capabilities {
		d, err := g.Check(ctx, userID, c)
		if err != nil {
			return nil, err
		}
		out[c] = d.Allowed
	}
	return out, nil
}
