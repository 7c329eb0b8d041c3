package pg

import (
	"context"

	"github.com/nicdemeagbeve-afk/miabesite-sub000/internal/access"
)

func (s *Store) HasGrant(ctx context.Context, userID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`select exists(select 1 from access_grants where grantee_id = $1)`, userID).Scan(&exists)
	return exists, err
}

func (s *Store) CreateGrant(ctx context.Context, g access.Grant) (access.Grant, error) {
	err := s.db.QueryRowContext(ctx, `
		insert into access_grants (id, grantee_id, granter_id)
		values ($1, $2, $3)
		returning created_at
	`, g.ID, g.GranteeID, g.GranterID).Scan(&g.CreatedAt)
	switch {
	case err == nil:
		return g, nil
	case violates(err, pgErrUniqueViolation, ""):
		return access.Grant{}, access.ErrDuplicateGrant
	case violates(err, pgErrForeignKeyViolation, "access_grants_grantee_id_fkey"):
		return access.Grant{}, access.ErrGranteeNotFound
	}
	return access.Grant{}, err
}

func (s *Store) DeleteGrant(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from access_grants where id = $1`, id)
	if err != nil {
		return err
	}
	aff, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if aff == 0 {
		return access.ErrGrantNotFound
	}
	return nil
}

func (s *Store) ListGrants(ctx context.Context) ([]access.GrantView, error) {
	rows, err := s.db.QueryContext(ctx, `
		select g.id, g.grantee_id, coalesce(p.full_name, ''), coalesce(p.email, ''),
		       coalesce(a.full_name, ''), g.created_at
		from access_grants g
		left join profiles p on p.id = g.grantee_id
		left join profiles a on a.id = g.granter_id
		order by g.created_at desc, g.id desc
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []access.GrantView
	for rows.Next() {
		var v access.GrantView
		if err := rows.Scan(&v.ID, &v.GranteeID, &v.GranteeName, &v.GranteeEmail, &v.GrantedByName, &v.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
