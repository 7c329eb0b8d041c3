package pg

import (
	"context"
	"database/sql"
	"errors"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/communities"
)

const communityColumns = `c.id, c.name, c.description, c.private, c.join_code, c.owner_id, c.created_at,
	(select count(*) from community_members m where m.community_id = c.id)`

func scanCommunity(row rowScanner) (communities.Community, error) {
	var c communities.Community
	err := row.Scan(&c.ID, &c.Name, &c.Description, &c.Private, &c.JoinCode, &c.OwnerID, &c.CreatedAt, &c.MemberCount)
	return c, err
}

func (s *Store) JoinCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from communities where join_code = $1)`, code).Scan(&exists)
	return exists, err
}

func (s *Store) CreateCommunity(ctx context.Context, c communities.Community) (communities.Community, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return communities.Community{}, err
	}
	defer func() { _ = tx.Rollback() }()

	err = tx.QueryRowContext(ctx, `
		insert into communities (id, name, description, private, join_code, owner_id)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at
	`, c.ID, c.Name, c.Description, c.Private, c.JoinCode, c.OwnerID).Scan(&c.CreatedAt)
	if violates(err, pgErrUniqueViolation, "communities_join_code_key") {
		return communities.Community{}, communities.ErrJoinCodeTaken
	}
	if err != nil {
		return communities.Community{}, err
	}
	if _, err := tx.ExecContext(ctx, `
		insert into community_members (community_id, user_id, joined_at)
		values ($1, $2, $3)
	`, c.ID, c.OwnerID, c.CreatedAt); err != nil {
		return communities.Community{}, err
	}
	if err := tx.Commit(); err != nil {
		return communities.Community{}, err
	}
	c.MemberCount = 1
	return c, nil
}

func (s *Store) FindCommunityByJoinCode(ctx context.Context, code string) (communities.Community, error) {
	c, err := scanCommunity(s.db.QueryRowContext(ctx,
		`select `+communityColumns+` from communities c where c.join_code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return communities.Community{}, communities.ErrCodeNotFound
	}
	return c, err
}

func (s *Store) AddMember(ctx context.Context, communityID, userID string) error {
	_, err := s.db.ExecContext(ctx, `
		insert into community_members (community_id, user_id) values ($1, $2)
	`, communityID, userID)
	switch {
	case err == nil:
		return nil
	case violates(err, pgErrUniqueViolation, ""):
		return communities.ErrAlreadyMember
	case violates(err, pgErrForeignKeyViolation, "community_members_community_id_fkey"):
		return communities.ErrCodeNotFound
	}
	return err
}

func (s *Store) ListCommunitiesForUser(ctx context.Context, userID string) ([]communities.Community, error) {
	return s.listCommunities(ctx, `
		select `+communityColumns+`
		from communities c
		join community_members mine on mine.community_id = c.id and mine.user_id = $1
		order by c.id desc
	`, userID)
}

func (s *Store) ListPublicCommunities(ctx context.Context, limit int) ([]communities.Community, error) {
	return s.listCommunities(ctx, `
		select `+communityColumns+`
		from communities c
		where not c.private
		order by c.id desc
		limit $1
	`, limit)
}

func (s *Store) listCommunities(ctx context.Context, query string, args ...any) ([]communities.Community, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []communities.Community
	for rows.Next() {
		c, err := scanCommunity(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
