package memory

import (
	"context"
	"sort"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
)

func (s *Store) HasGrant(_ context.Context, userID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.grantByUser[userID]
	return ok, nil
}

func (s *Store) CreateGrant(_ context.Context, g access.Grant) (access.Grant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[g.GranteeID]; !ok {
		return access.Grant{}, access.ErrGranteeNotFound
	}
	if _, ok := s.grantByUser[g.GranteeID]; ok {
		return access.Grant{}, access.ErrDuplicateGrant
	}
	if g.CreatedAt.IsZero() {
		g.CreatedAt = s.now()
	}
	s.grants[g.ID] = g
	s.grantByUser[g.GranteeID] = g.ID
	return g, nil
}

func (s *Store) DeleteGrant(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.grants[id]
	if !ok {
		return access.ErrGrantNotFound
	}
	delete(s.grants, id)
	delete(s.grantByUser, g.GranteeID)
	return nil
}

func (s *Store) ListGrants(_ context.Context) ([]access.GrantView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]access.GrantView, 0, len(s.grants))
	for _, g := range s.grants {
		v := access.GrantView{ID: g.ID, GranteeID: g.GranteeID, CreatedAt: g.CreatedAt}
		if p, ok := s.profiles[g.GranteeID]; ok {
			v.GranteeName, v.GranteeEmail = p.FullName, p.Email
		}
		if p, ok := s.profiles[g.GranterID]; ok {
			v.GrantedByName = p.FullName
		}
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}
