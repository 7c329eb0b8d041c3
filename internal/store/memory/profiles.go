package memory

import (
	"context"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
)

func cloneProfile(p *profiles.Profile) profiles.Profile {
	out := *p
	if p.ReferredBy != nil {
		ref := *p.ReferredBy
		out.ReferredBy = &ref
	}
	return out
}

func (s *Store) FindProfile(_ context.Context, id string) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return cloneProfile(p), nil
}

func (s *Store) FindProfileByReferralCode(_ context.Context, code string) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.codes[code]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	return cloneProfile(s.profiles[id]), nil
}

func (s *Store) ReferralCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.codes[code]
	return ok, nil
}

func (s *Store) CreateProfile(_ context.Context, p profiles.Profile) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.ID]; ok {
		return profiles.Profile{}, profiles.ErrExists
	}
	if _, ok := s.codes[p.ReferralCode]; ok {
		return profiles.Profile{}, profiles.ErrReferralCodeTaken
	}
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	if p.Role == "" {
		p.Role = auth.RoleStandard
	}
	stored := p
	s.profiles[p.ID] = &stored
	s.codes[p.ReferralCode] = p.ID
	return cloneProfile(&stored), nil
}

func (s *Store) UpdateProfile(_ context.Context, id string, upd profiles.Update) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	if upd.FullName != nil {
		p.FullName = *upd.FullName
	}
	if upd.AvatarURL != nil {
		p.AvatarURL = *upd.AvatarURL
	}
	p.UpdatedAt = s.now()
	return cloneProfile(p), nil
}

func (s *Store) SetRole(_ context.Context, id string, role auth.Role) (profiles.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	p.Role = role
	p.UpdatedAt = s.now()
	return cloneProfile(p), nil
}

func (s *Store) UserRole(_ context.Context, id string) (auth.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[id]
	if !ok {
		return "", profiles.ErrNotFound
	}
	return p.Role, nil
}
