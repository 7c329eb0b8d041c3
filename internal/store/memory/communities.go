package memory

import (
	"context"
	"sort"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
)

func (s *Store) JoinCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.joinCodes[code]
	return ok, nil
}

func (s *Store) CreateCommunity(_ context.Context, c communities.Community) (communities.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.joinCodes[c.JoinCode]; ok {
		return communities.Community{}, communities.ErrJoinCodeTaken
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	stored := c
	s.communities[c.ID] = &stored
	s.joinCodes[c.JoinCode] = c.ID
	s.members[c.ID] = map[string]time.Time{c.OwnerID: c.CreatedAt}
	return s.communityView(c.ID), nil
}

// communityView copies a community with its live member count. Callers hold s.mu.
func (s *Store) communityView(id string) communities.Community {
	c := *s.communities[id]
	c.MemberCount = len(s.members[id])
	return c
}

func (s *Store) FindCommunityByJoinCode(_ context.Context, code string) (communities.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.joinCodes[code]
	if !ok {
		return communities.Community{}, communities.ErrCodeNotFound
	}
	return s.communityView(id), nil
}

func (s *Store) AddMember(_ context.Context, communityID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	members, ok := s.members[communityID]
	if !ok {
		return communities.ErrCodeNotFound
	}
	if _, ok := members[userID]; ok {
		return communities.ErrAlreadyMember
	}
	members[userID] = s.now()
	return nil
}

func (s *Store) ListCommunitiesForUser(_ context.Context, userID string) ([]communities.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []communities.Community
	for id, members := range s.members {
		if _, ok := members[userID]; ok {
			out = append(out, s.communityView(id))
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) ListPublicCommunities(_ context.Context, limit int) ([]communities.Community, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []communities.Community
	for id, c := range s.communities {
		if !c.Private {
			out = append(out, s.communityView(id))
		}
	}
	sortNewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortNewestFirst(cs []communities.Community) {
	sort.Slice(cs, func(i, j int) bool { return cs[i].ID > cs[j].ID })
}
