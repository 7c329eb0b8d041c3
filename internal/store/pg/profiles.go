package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/auth"
	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/profiles"
)

const profileColumns = `id, full_name, email, role, referral_code, referral_count, coin_points, referred_by, avatar_url, created_at, updated_at`

func scanProfile(row rowScanner) (profiles.Profile, error) {
	var (
		p          profiles.Profile
		role       string
		referredBy sql.NullString
	)
	err := row.Scan(&p.ID, &p.FullName, &p.Email, &role, &p.ReferralCode, &p.ReferralCount,
		&p.CoinPoints, &referredBy, &p.AvatarURL, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return profiles.Profile{}, profiles.ErrNotFound
	}
	if err != nil {
		return profiles.Profile{}, err
	}
	p.Role = auth.Role(role)
	if referredBy.Valid {
		ref := referredBy.String
		p.ReferredBy = &ref
	}
	return p, nil
}

func (s *Store) FindProfile(ctx context.Context, id string) (profiles.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`select `+profileColumns+` from profiles where id = $1`, id))
}

func (s *Store) FindProfileByReferralCode(ctx context.Context, code string) (profiles.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx,
		`select `+profileColumns+` from profiles where referral_code = $1`, code))
}

func (s *Store) ReferralCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from profiles where referral_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (s *Store) CreateProfile(ctx context.Context, p profiles.Profile) (profiles.Profile, error) {
	if p.Role == "" {
		p.Role = auth.RoleStandard
	}
	var referredBy sql.NullString
	if p.ReferredBy != nil {
		referredBy = nullIfEmpty(*p.ReferredBy)
	}
	created, err := scanProfile(s.db.QueryRowContext(ctx, `
		insert into profiles (id, full_name, email, role, referral_code, referred_by, avatar_url)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning `+profileColumns,
		p.ID, p.FullName, p.Email, string(p.Role), p.ReferralCode, referredBy, p.AvatarURL))
	switch {
	case err == nil:
		return created, nil
	case violates(err, pgErrUniqueViolation, "profiles_pkey"):
		return profiles.Profile{}, profiles.ErrExists
	case violates(err, pgErrUniqueViolation, "profiles_referral_code_key"):
		return profiles.Profile{}, profiles.ErrReferralCodeTaken
	}
	return profiles.Profile{}, err
}

func (s *Store) UpdateProfile(ctx context.Context, id string, upd profiles.Update) (profiles.Profile, error) {
	var name, avatar sql.NullString
	if upd.FullName != nil {
		name = sql.NullString{String: *upd.FullName, Valid: true}
	}
	if upd.AvatarURL != nil {
		avatar = sql.NullString{String: *upd.AvatarURL, Valid: true}
	}
	return scanProfile(s.db.QueryRowContext(ctx, `
		update profiles
		set full_name = coalesce($2, full_name),
		    avatar_url = coalesce($3, avatar_url),
		    updated_at = now()
		where id = $1
		returning `+profileColumns, id, name, avatar))
}

func (s *Store) SetRole(ctx context.Context, id string, role auth.Role) (profiles.Profile, error) {
	return scanProfile(s.db.QueryRowContext(ctx, `
		update profiles set role = $2, updated_at = now()
		where id = $1
		returning `+profileColumns, id, string(role)))
}

func (s *Store) UserRole(ctx context.Context, id string) (auth.Role, error) {
	var role string
	err := s.db.QueryRowContext(ctx, `select role from profiles where id = $1`, id).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", profiles.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return auth.Role(role), nil
}
