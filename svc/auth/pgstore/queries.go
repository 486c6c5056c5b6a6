package pgstore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/authsvc/svc/auth"
)

// queries implements auth.Queries on top of a pool or a transaction.
type queries struct {
	db DB
}

// OAuth-only users have a NULL password hash; it is read back as an empty
// string so callers only test for "".
const userColumns = `id, email, COALESCE(password_hash, ''), email_verified, role, name, avatar_url, created_at, updated_at`

func scanUser(row pgx.Row) (*auth.User, error) {
	var (
		u    auth.User
		role int16
	)
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.EmailVerified, &role, &u.Name, &u.AvatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	u.Role = auth.Role(role)
	return &u, nil
}

func (q *queries) CreateUser(ctx context.Context, u *auth.User) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, email_verified, role, name, avatar_url, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.PasswordHash, u.EmailVerified, int16(u.Role), u.Name, u.AvatarURL, u.CreatedAt, u.UpdatedAt,
	)
	return mapErr(err)
}

func (q *queries) GetUserByID(ctx context.Context, id uuid.UUID) (*auth.User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (q *queries) GetUserByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(q.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// execOne runs a statement that must touch exactly one row.
func (q *queries) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := q.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return auth.ErrRecordNotFound
	}
	return nil
}

func (q *queries) MarkEmailVerified(ctx context.Context, id uuid.UUID, now time.Time) error {
	return q.execOne(ctx, `UPDATE users SET email_verified = TRUE, updated_at = $2 WHERE id = $1`, id, now)
}

func (q *queries) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string, now time.Time) error {
	return q.execOne(ctx, `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`, id, hash, now)
}

func (q *queries) UpdateUserName(ctx context.Context, id uuid.UUID, name string, now time.Time) error {
	return q.execOne(ctx, `UPDATE users SET name = $2, updated_at = $3 WHERE id = $1`, id, name, now)
}

func (q *queries) UpdateUserAvatar(ctx context.Context, id uuid.UUID, avatarURL string, now time.Time) error {
	return q.execOne(ctx, `UPDATE users SET avatar_url = $2, updated_at = $3 WHERE id = $1`, id, avatarURL, now)
}

func (q *queries) SetUserRole(ctx context.Context, id uuid.UUID, role auth.Role, now time.Time) error {
	return q.execOne(ctx, `UPDATE users SET role = $2, updated_at = $3 WHERE id = $1`, id, int16(role), now)
}

func (q *queries) CountUsersByRole(ctx context.Context, role auth.Role) (int, error) {
	var n int
	err := q.db.QueryRow(ctx, `SELECT count(*) FROM users WHERE role = $1`, int16(role)).Scan(&n)
	return n, mapErr(err)
}

// ListUsers returns one page plus the total count. The two reads are not
// in one snapshot, so the total can be off by a concurrent signup.
func (q *queries) ListUsers(ctx context.Context, limit, offset int) ([]auth.User, int, error) {
	var total int
	if err := q.db.QueryRow(ctx, `SELECT count(*) FROM users`).Scan(&total); err != nil {
		return nil, 0, mapErr(err)
	}
	rows, err := q.db.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY created_at, email LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, mapErr(err)
	}
	defer rows.Close()

	users := []auth.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, err
		}
		users = append(users, *u)
	}
	return users, total, mapErr(rows.Err())
}

func (q *queries) insertOneTimeToken(ctx context.Context, table string, t *auth.OneTimeToken) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO `+table+` (id, user_id, token_hash, used, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		t.ID, t.UserID, t.TokenHash, t.Used, t.ExpiresAt, t.CreatedAt,
	)
	return mapErr(err)
}

// consumeOneTimeToken flips used in a single conditional UPDATE. Postgres
// row locking lets exactly one concurrent caller match the NOT used filter;
// the rest see no row and get ErrRecordNotFound.
func (q *queries) consumeOneTimeToken(ctx context.Context, table, hash string, now time.Time) (*auth.OneTimeToken, error) {
	var t auth.OneTimeToken
	err := q.db.QueryRow(ctx, `
		UPDATE `+table+` SET used = TRUE
		WHERE token_hash = $1 AND NOT used AND expires_at > $2
		RETURNING id, user_id, token_hash, used, expires_at, created_at`,
		hash, now,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Used, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

const (
	emailTokensTable = "email_verification_tokens"
	resetTokensTable = "password_reset_tokens"
)

func (q *queries) CreateEmailToken(ctx context.Context, t *auth.OneTimeToken) error {
	return q.insertOneTimeToken(ctx, emailTokensTable, t)
}

func (q *queries) ConsumeEmailToken(ctx context.Context, hash string, now time.Time) (*auth.OneTimeToken, error) {
	return q.consumeOneTimeToken(ctx, emailTokensTable, hash, now)
}

func (q *queries) CreateResetToken(ctx context.Context, t *auth.OneTimeToken) error {
	return q.insertOneTimeToken(ctx, resetTokensTable, t)
}

func (q *queries) ConsumeResetToken(ctx context.Context, hash string, now time.Time) (*auth.OneTimeToken, error) {
	return q.consumeOneTimeToken(ctx, resetTokensTable, hash, now)
}

func (q *queries) CreateRefreshToken(ctx context.Context, t *auth.RefreshToken) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO refresh_tokens (id, user_id, token_hash, revoked, revoked_at, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		t.ID, t.UserID, t.TokenHash, t.Revoked, t.RevokedAt, t.ExpiresAt, t.CreatedAt,
	)
	return mapErr(err)
}

// RevokeRefreshToken is the rotation gate. Like token consumption it is a
// conditional UPDATE, so two refreshes racing on the same token produce one
// new session.
func (q *queries) RevokeRefreshToken(ctx context.Context, hash string, now time.Time) (*auth.RefreshToken, error) {
	var t auth.RefreshToken
	err := q.db.QueryRow(ctx, `
		UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2
		WHERE token_hash = $1 AND NOT revoked AND expires_at > $2
		RETURNING id, user_id, token_hash, revoked, revoked_at, expires_at, created_at`,
		hash, now,
	).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.Revoked, &t.RevokedAt, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (q *queries) RevokeUserRefreshTokens(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx,
		`UPDATE refresh_tokens SET revoked = TRUE, revoked_at = $2 WHERE user_id = $1 AND NOT revoked`,
		userID, now)
	if err != nil {
		return 0, mapErr(err)
	}
	return tag.RowsAffected(), nil
}

const identityColumns = `id, user_id, provider, provider_user_id, access_token_encrypted, refresh_token_encrypted, metadata, created_at, updated_at`

func scanIdentity(row pgx.Row) (*auth.Identity, error) {
	var i auth.Identity
	if err := row.Scan(&i.ID, &i.UserID, &i.Provider, &i.ProviderUserID, &i.AccessTokenEncrypted,
		&i.RefreshTokenEncrypted, &i.Metadata, &i.CreatedAt, &i.UpdatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &i, nil
}

func (q *queries) GetIdentity(ctx context.Context, provider, providerUserID string) (*auth.Identity, error) {
	return scanIdentity(q.db.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM oauth_identities WHERE provider = $1 AND provider_user_id = $2`,
		provider, providerUserID))
}

// GetUserIdentity returns the oldest identity of userID for provider.
func (q *queries) GetUserIdentity(ctx context.Context, userID uuid.UUID, provider string) (*auth.Identity, error) {
	return scanIdentity(q.db.QueryRow(ctx,
		`SELECT `+identityColumns+` FROM oauth_identities WHERE user_id = $1 AND provider = $2 ORDER BY created_at LIMIT 1`,
		userID, provider))
}

func (q *queries) ListUserIdentities(ctx context.Context, userID uuid.UUID) ([]auth.Identity, error) {
	rows, err := q.db.Query(ctx,
		`SELECT `+identityColumns+` FROM oauth_identities WHERE user_id = $1 ORDER BY created_at`, userID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()

	var out []auth.Identity
	for rows.Next() {
		i, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *i)
	}
	return out, mapErr(rows.Err())
}

func (q *queries) CreateIdentity(ctx context.Context, i *auth.Identity) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO oauth_identities (`+identityColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		i.ID, i.UserID, i.Provider, i.ProviderUserID, i.AccessTokenEncrypted, i.RefreshTokenEncrypted,
		i.Metadata, i.CreatedAt, i.UpdatedAt,
	)
	return mapErr(err)
}

// UpdateIdentity replaces the stored tokens after a fresh OAuth login.
func (q *queries) UpdateIdentity(ctx context.Context, i *auth.Identity) error {
	return q.execOne(ctx, `
		UPDATE oauth_identities
		SET access_token_encrypted = $3, refresh_token_encrypted = $4, metadata = $5, updated_at = $6
		WHERE provider = $1 AND provider_user_id = $2`,
		i.Provider, i.ProviderUserID, i.AccessTokenEncrypted, i.RefreshTokenEncrypted, i.Metadata, i.UpdatedAt,
	)
}

// PurgeTokens deletes expired tokens and spent ones older than before. The
// statements run separately, so on error the count covers what was deleted
// so far.
func (q *queries) PurgeTokens(ctx context.Context, before time.Time) (int64, error) {
	statements := []string{
		`DELETE FROM email_verification_tokens WHERE expires_at < $1 OR (used AND created_at < $1)`,
		`DELETE FROM password_reset_tokens WHERE expires_at < $1 OR (used AND created_at < $1)`,
		`DELETE FROM refresh_tokens WHERE expires_at < $1 OR (revoked AND created_at < $1)`,
	}
	var total int64
	for _, sql := range statements {
		tag, err := q.db.Exec(ctx, sql, before)
		if err != nil {
			return total, mapErr(err)
		}
		total += tag.RowsAffected()
	}
	return total, nil
}
