package auth

import (
	"context"
	"database/sql"
	"time"

	"taskera.org/internal/ids"
)

var (
	_ UserStore         = (*PGUserStore)(nil)
	_ RefreshTokenStore = (*PGRefreshTokenStore)(nil)
)

// PGUserStore implements UserStore on PostgreSQL.
type PGUserStore struct {
	db *sql.DB
}

func NewPGUserStore(db *sql.DB) *PGUserStore {
	return &PGUserStore{db: db}
}

const userColumns = `id, name, email, password_hash, active, failed_login_attempts, locked_out_at, lockout_expires_at, created_at, updated_at`

func (s *PGUserStore) FindByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id)
	return s.scanUser(ctx, row)
}

func (s *PGUserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email)
	return s.scanUser(ctx, row)
}

func (s *PGUserStore) scanUser(ctx context.Context, row *sql.Row) (*User, error) {
	var (
		user             User
		lockedOutAt      sql.NullTime
		lockoutExpiresAt sql.NullTime
	)
	if err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Active,
		&user.FailedLoginAttempts, &lockedOutAt, &lockoutExpiresAt, &user.CreatedAt, &user.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if lockedOutAt.Valid {
		t := lockedOutAt.Time
		user.LockedOutAt = &t
	}
	if lockoutExpiresAt.Valid {
		t := lockoutExpiresAt.Time
		user.LockoutExpiresAt = &t
	}
	roles, err := s.rolesFor(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	user.Roles = roles
	return &user, nil
}

func (s *PGUserStore) rolesFor(ctx context.Context, userID string) ([]SystemRole, error) {
	rows, err := s.db.QueryContext(ctx,
		`select role from user_roles where user_id = $1 order by role`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var roles []SystemRole
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		if role, ok := ParseSystemRole(raw); ok {
			roles = append(roles, role)
		}
	}
	return roles, rows.Err()
}

func (s *PGUserStore) UpdateLockout(ctx context.Context, u *User) error {
	var lockedOutAt, lockoutExpiresAt any
	if u.LockedOutAt != nil {
		lockedOutAt = *u.LockedOutAt
	}
	if u.LockoutExpiresAt != nil {
		lockoutExpiresAt = *u.LockoutExpiresAt
	}
	res, err := s.db.ExecContext(ctx,
		`update users set failed_login_attempts = $2, locked_out_at = $3, lockout_expires_at = $4, updated_at = now() where id = $1`,
		u.ID, u.FailedLoginAttempts, lockedOutAt, lockoutExpiresAt,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGUserStore) UpdatePasswordHash(ctx context.Context, userID, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`update users set password_hash = $2, updated_at = now() where id = $1`,
		userID, passwordHash,
	)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// PGRefreshTokenStore implements RefreshTokenStore on PostgreSQL.
type PGRefreshTokenStore struct {
	db *sql.DB
}

func NewPGRefreshTokenStore(db *sql.DB) *PGRefreshTokenStore {
	return &PGRefreshTokenStore{db: db}
}

func (s *PGRefreshTokenStore) Create(ctx context.Context, tok *RefreshToken) error {
	if tok.ID == "" {
		tok.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx,
		`insert into refresh_tokens(id, user_id, token_hash, access_token_id, expires_at, created_at, revoked)
		 values($1, $2, $3, $4, $5, $6, false)`,
		tok.ID, tok.UserID, tok.TokenHash, tok.AccessTokenID, tok.ExpiresAt, tok.CreatedAt,
	)
	return err
}

func (s *PGRefreshTokenStore) Find(ctx context.Context, id string) (*RefreshToken, error) {
	row := s.db.QueryRowContext(ctx,
		`select id, user_id, token_hash, access_token_id, expires_at, created_at, revoked, revoked_at
		 from refresh_tokens where id = $1`, id)
	var (
		tok       RefreshToken
		revokedAt sql.NullTime
	)
	if err := row.Scan(&tok.ID, &tok.UserID, &tok.TokenHash, &tok.AccessTokenID,
		&tok.ExpiresAt, &tok.CreatedAt, &tok.Revoked, &revokedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if revokedAt.Valid {
		t := revokedAt.Time
		tok.RevokedAt = &t
	}
	return &tok, nil
}

// Revoke is a compare-and-swap on the revoked flag. The `and not revoked`
// predicate makes rotation single-use under concurrent refresh calls.
func (s *PGRefreshTokenStore) Revoke(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true, revoked_at = $2 where id = $1 and not revoked`,
		id, at,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PGRefreshTokenStore) RevokeAllForUser(ctx context.Context, userID string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update refresh_tokens set revoked = true, revoked_at = $2 where user_id = $1 and not revoked`,
		userID, at,
	)
	return err
}
