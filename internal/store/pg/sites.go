package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/sites"
)

const siteColumns = `id, owner_id, name, slug, template, settings, status, created_at, updated_at`

func scanSite(row rowScanner) (sites.Site, error) {
	var (
		site             sites.Site
		template, status string
		settings         []byte
	)
	err := row.Scan(&site.ID, &site.OwnerID, &site.Name, &site.Slug, &template, &settings, &status, &site.CreatedAt, &site.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return sites.Site{}, sites.ErrNotFound
	}
	if err != nil {
		return sites.Site{}, err
	}
	site.Template = sites.Template(template)
	site.Status = sites.Status(status)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &site.Settings); err != nil {
			return sites.Site{}, fmt.Errorf("decode settings: %w", err)
		}
	}
	return site, nil
}

func (s *Store) SlugExists(ctx context.Context, slug string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from sites where slug = $1)`, slug).Scan(&exists)
	return exists, err
}

func (s *Store) CreateSite(ctx context.Context, site sites.Site) (sites.Site, error) {
	settings, err := json.Marshal(site.Settings)
	if err != nil {
		return sites.Site{}, fmt.Errorf("marshal settings: %w", err)
	}
	created, err := scanSite(s.db.QueryRowContext(ctx, `
		insert into sites (id, owner_id, name, slug, template, settings, status)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+siteColumns,
		site.ID, site.OwnerID, site.Name, site.Slug, string(site.Template), settings, string(site.Status)))
	if violates(err, pgErrUniqueViolation, "sites_slug_key") {
		return sites.Site{}, sites.ErrSlugTaken
	}
	return created, err
}

func (s *Store) FindSite(ctx context.Context, id string) (sites.Site, error) {
	return scanSite(s.db.QueryRowContext(ctx, `select `+siteColumns+` from sites where id = $1`, id))
}

func (s *Store) FindSiteBySlug(ctx context.Context, slug string) (sites.Site, error) {
	return scanSite(s.db.QueryRowContext(ctx, `select `+siteColumns+` from sites where slug = $1`, slug))
}

func (s *Store) ListSites(ctx context.Context, ownerID string) ([]sites.Site, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+siteColumns+` from sites where owner_id = $1 order by id desc`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []sites.Site
	for rows.Next() {
		site, err := scanSite(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, site)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (s *Store) UpdateSiteStatus(ctx context.Context, id string, status sites.Status) (sites.Site, error) {
	return scanSite(s.db.QueryRowContext(ctx, `
		update sites set status = $2, updated_at = now()
		where id = $1
		returning `+siteColumns, id, string(status)))
}
