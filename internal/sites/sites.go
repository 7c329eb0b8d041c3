// Package sites creates and publishes template-based websites, each served
// on its own subdomain slug.
package sites

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/apperr"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ident"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/ids"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

type Site struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"owner_id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Template  Template  `json:"template"`
	Settings  Wizard    `json:"settings"`
	Status    Status    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrNotFound = apperr.NotFound("site_not_found", "site not found")

	// ErrSlugTaken is returned by Store.CreateSite when the slug was
	// claimed concurrently.
	ErrSlugTaken = errors.New("sites: slug already taken")
)

type Store interface {
	SlugExists(ctx context.Context, slug string) (bool, error)
	CreateSite(ctx context.Context, s Site) (Site, error)
	FindSite(ctx context.Context, id string) (Site, error)
	FindSiteBySlug(ctx context.Context, slug string) (Site, error)
	ListSites(ctx context.Context, ownerID string) ([]Site, error)
	UpdateSiteStatus(ctx context.Context, id string, status Status) (Site, error)
}

type Service struct {
	store Store
	gen   *ident.Generator
}

func NewService(store Store, gen *ident.Generator) *Service {
	return &Service{store: store, gen: gen}
}

// Create validates the wizard input and stores a draft site on a fresh slug.
func (s *Service) Create(ctx context.Context, ownerID string, w Wizard) (Site, error) {
	w = w.Normalize()
	if err := w.Validate(); err != nil {
		return Site{}, err
	}
	checker := ident.CheckerFunc(s.store.SlugExists)
	for attempt := 0; attempt < 3; attempt++ {
		slug, err := s.gen.Generate(ctx, ident.NewSlug(w.Name), checker)
		if err != nil {
			return Site{}, fmt.Errorf("generate slug: %w", err)
		}
		now := time.Now().UTC()
		site, err := s.store.CreateSite(ctx, Site{
			ID:        ids.New(),
			OwnerID:   ownerID,
			Name:      w.Name,
			Slug:      slug,
			Template:  w.Template,
			Settings:  w,
			Status:    StatusDraft,
			CreatedAt: now,
			UpdatedAt: now,
		})
		if errors.Is(err, ErrSlugTaken) {
			continue
		}
		return site, err
	}
	return Site{}, fmt.Errorf("create site: %w", ident.ErrExhausted)
}

func (s *Service) List(ctx context.Context, ownerID string) ([]Site, error) {
	return s.store.ListSites(ctx, ownerID)
}

// GetBySlug returns a published site. Drafts are visible to their owner only.
func (s *Service) GetBySlug(ctx context.Context, viewerID, slug string) (Site, error) {
	site, err := s.store.FindSiteBySlug(ctx, strings.ToLower(strings.TrimSpace(slug)))
	if err != nil {
		return Site{}, err
	}
	if site.Status != StatusPublished && site.OwnerID != viewerID {
		return Site{}, ErrNotFound
	}
	return site, nil
}

// Publish makes a draft visible on its subdomain.
func (s *Service) Publish(ctx context.Context, ownerID, id string) (Site, error) {
	if !ids.Valid(id) {
		return Site{}, ErrNotFound
	}
	site, err := s.store.FindSite(ctx, id)
	if err != nil {
		return Site{}, err
	}
	if site.OwnerID != ownerID {
		return Site{}, ErrNotFound
	}
	if site.Status == StatusPublished {
		return site, nil
	}
	return s.store.UpdateSiteStatus(ctx, id, StatusPublished)
}
