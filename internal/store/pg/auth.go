package pg

import (
	"context"
	"database/sql"
	"errors"

	"alugix.app/internal/auth"
)

var _ auth.Store = (*Store)(nil)

func (s *Store) FindUser(ctx context.Context, id string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select id, tenant_id, email, password_hash, is_admin, profile_id, status, created_at, updated_at
		 from users where id = $1`, id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`select id, tenant_id, email, password_hash, is_admin, profile_id, status, created_at, updated_at
		 from users where email = $1`, email))
}

func (s *Store) scanUser(row *sql.Row) (*auth.User, error) {
	var (
		u         auth.User
		tenantID  sql.NullString
		profileID sql.NullString
	)
	err := row.Scan(&u.ID, &tenantID, &u.Email, &u.PasswordHash, &u.Admin,
		&profileID, &u.Status, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	u.TenantID = tenantID.String
	if profileID.Valid {
		u.ProfileID = &profileID.String
	}
	return &u, nil
}

func (s *Store) CreateRefreshToken(ctx context.Context, tok *auth.RefreshToken) error {
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens (id, user_id, token_hash, expires_at)
		 values ($1, $2, $3, $4)`,
		tok.ID, tok.UserID, tok.TokenHash, tok.ExpiresAt,
	)
	return err
}

func (s *Store) FindRefreshToken(ctx context.Context, id string) (*auth.RefreshToken, error) {
	var tok auth.RefreshToken
	err := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, expires_at, created_at, revoked
		 from refresh_tokens where id = $1`, id,
	).Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &tok, nil
}

func (s *Store) RevokeRefreshToken(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true where id = $1`, id)
	return err
}
