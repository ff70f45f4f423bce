package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/volunteer-map/internal/model"
)

// TokenRepo is the refresh token ledger.  Only token hashes are stored and
// rows are never deleted.
type TokenRepo struct {
	DB  *sql.DB
	Now func() time.Time
}

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db, Now: time.Now} }

func (r *TokenRepo) now() time.Time { return r.Now().UTC() }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Issue inserts a refresh token hash row.
func (r *TokenRepo) Issue(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	return issue(ctx, r.DB, userID, tokenHash, exp)
}

func issue(ctx context.Context, db execer, userID uint64, tokenHash string, exp time.Time) error {
	_, err := db.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	if _, dup := duplicateKey(err); dup {
		return ErrConflict
	}
	return err
}

// FindActive returns the record for tokenHash only if it is neither revoked
// nor expired.  It returns ErrNotFound otherwise.
func (r *TokenRepo) FindActive(ctx context.Context, tokenHash string) (*model.RefreshToken, error) {
	var (
		t         model.RefreshToken
		revokedAt sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_tokens WHERE token_hash=? AND revoked_at IS NULL AND expires_at > ? LIMIT 1",
		tokenHash, r.now()).Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &revokedAt, &t.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if revokedAt.Valid {
		t.RevokedAt = &revokedAt.Time
	}
	return &t, nil
}

// Revoke marks a record as revoked.  Revoking twice is a no-op.
func (r *TokenRepo) Revoke(ctx context.Context, id uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE id=? AND revoked_at IS NULL",
		r.now(), id)
	return err
}

// RevokeByHash marks a token as revoked given only its hash.
func (r *TokenRepo) RevokeByHash(ctx context.Context, tokenHash string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		r.now(), tokenHash)
	return err
}

// Rotate revokes the consumed record and issues its replacement in one
// transaction.  If another request consumed the record first, nothing is
// written and ErrTokenNotActive is returned.
func (r *TokenRepo) Rotate(ctx context.Context, consumedID, userID uint64, newHash string, exp time.Time) (err error) {
	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	res, err := tx.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE id=? AND revoked_at IS NULL AND expires_at > ?",
		now, consumedID, now)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenNotActive
	}
	if err = issue(ctx, tx, userID, newHash, exp); err != nil {
		return err
	}
	return tx.Commit()
}
