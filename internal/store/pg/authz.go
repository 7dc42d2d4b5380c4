package pg

import (
	"context"
	"database/sql"
	"errors"

	"alugix.app/internal/authz"
	"alugix.app/internal/ids"
)

var (
	_ authz.Store      = (*Store)(nil)
	_ authz.AdminStore = (*Store)(nil)
)

// ProfileIDByUser returns the user's profile id, nil when the column is null
// or the user row is gone.
func (s *Store) ProfileIDByUser(ctx context.Context, userID string) (*string, error) {
	var profileID sql.NullString
	err := s.db.QueryRowContext(ctx,
		`select profile_id from users where id = $1`, userID,
	).Scan(&profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if !profileID.Valid {
		return nil, nil
	}
	return &profileID.String, nil
}

// GrantAllowed reports whether an allowing grant row exists. A missing row
// and allowed=false are the same decision.
func (s *Store) GrantAllowed(ctx context.Context, profileID string, module authz.Module, action authz.Action) (bool, error) {
	var allowed bool
	err := s.db.QueryRowContext(ctx,
		`select allowed from profile_permissions
		 where profile_id = $1 and module = $2 and action = $3`,
		profileID, string(module), string(action),
	).Scan(&allowed)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return allowed, nil
}

// Management side -----------------------------------------------------------

func (s *Store) CreateProfile(ctx context.Context, profile *authz.Profile) error {
	if profile.ID == "" {
		profile.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx,
		`insert into profiles (id, tenant_id, name)
		 values ($1, $2, $3)
		 returning created_at, updated_at`,
		profile.ID, profile.TenantID, profile.Name,
	)
	if err := row.Scan(&profile.CreatedAt, &profile.UpdatedAt); err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrUniqueViolation {
			return authz.ErrConflict
		}
		return err
	}
	return nil
}

func (s *Store) ListProfiles(ctx context.Context, tenantID string) ([]authz.Profile, error) {
	rows, err := s.db.QueryContext(ctx,
		`select id, tenant_id, name, created_at, updated_at
		 from profiles where tenant_id = $1 order by name`, tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Profile
	for rows.Next() {
		var p authz.Profile
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

func (s *Store) GetProfile(ctx context.Context, tenantID, id string) (authz.Profile, error) {
	var p authz.Profile
	err := s.db.QueryRowContext(ctx,
		`select id, tenant_id, name, created_at, updated_at
		 from profiles where tenant_id = $1 and id = $2`, tenantID, id,
	).Scan(&p.ID, &p.TenantID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authz.Profile{}, authz.ErrNotFound
		}
		return authz.Profile{}, err
	}
	return p, nil
}

func (s *Store) SetGrants(ctx context.Context, profileID string, grants []authz.Grant) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`delete from profile_permissions where profile_id = $1`, profileID); err != nil {
		return err
	}
	for _, g := range grants {
		if _, err := tx.ExecContext(ctx,
			`insert into profile_permissions (profile_id, module, action, allowed)
			 values ($1, $2, $3, $4)`,
			profileID, string(g.Module), string(g.Action), g.Allowed,
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *Store) ListGrants(ctx context.Context, profileID string) ([]authz.Grant, error) {
	rows, err := s.db.QueryContext(ctx,
		`select profile_id, module, action, allowed
		 from profile_permissions where profile_id = $1 order by module, action`, profileID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []authz.Grant
	for rows.Next() {
		var g authz.Grant
		if err := rows.Scan(&g.ProfileID, &g.Module, &g.Action, &g.Allowed); err != nil {
			return nil, err
		}
		result = append(result, g)
	}
	return result, rows.Err()
}

func (s *Store) AssignProfile(ctx context.Context, tenantID, userID string, profileID *string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set profile_id = $1, updated_at = now()
		 where id = $2 and tenant_id = $3`,
		profileID, userID, tenantID,
	)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return authz.ErrNotFound
		}
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return authz.ErrNotFound
	}
	return nil
}
