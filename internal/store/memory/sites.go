package memory

import (
	"context"
	"sort"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
)

func (s *Store) SlugExists(_ context.Context, slug string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slugs[slug]
	return ok, nil
}

func (s *Store) CreateSite(_ context.Context, site sites.Site) (sites.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.slugs[site.Slug]; ok {
		return sites.Site{}, sites.ErrSlugTaken
	}
	s.sites[site.ID] = site
	s.slugs[site.Slug] = site.ID
	return site, nil
}

func (s *Store) FindSite(_ context.Context, id string) (sites.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return sites.Site{}, sites.ErrNotFound
	}
	return site, nil
}

func (s *Store) FindSiteBySlug(_ context.Context, slug string) (sites.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.slugs[slug]
	if !ok {
		return sites.Site{}, sites.ErrNotFound
	}
	return s.sites[id], nil
}

func (s *Store) ListSites(_ context.Context, ownerID string) ([]sites.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sites.Site
	for _, site := range s.sites {
		if site.OwnerID == ownerID {
			out = append(out, site)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (s *Store) UpdateSiteStatus(_ context.Context, id string, status sites.Status) (sites.Site, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	site, ok := s.sites[id]
	if !ok {
		return sites.Site{}, sites.ErrNotFound
	}
	site.Status = status
	site.UpdatedAt = s.now()
	s.sites[id] = site
	return site, nil
}
