package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/volunteer-map/internal/model"
)

// MaxLoginCandidates bounds the rows fetched for an email-or-name login.
const MaxLoginCandidates = 5

const userColumns = "id,email,name,password_hash,role,provider,google_id,avatar_url,created_at,updated_at"

// UserRepo is the credential store backed by the `users` table.
type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

// Create inserts u and fills in its ID.  The email is normalised to lower
// case first.
func (r *UserRepo) Create(ctx context.Context, u *model.User) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (email,name,password_hash,role,provider,google_id,avatar_url) VALUES (?,?,?,?,?,?,?)",
		u.Email, u.Name, u.PasswordHash, u.Role, u.Provider, u.GoogleID, u.AvatarURL)
	if err != nil {
		return mapUserWriteErr(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = uint64(id)
	return nil
}

// FindByLogin returns up to MaxLoginCandidates users whose email or name
// equals login, compared case-insensitively.
func (r *UserRepo) FindByLogin(ctx context.Context, login string) ([]model.User, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	rows, err := r.DB.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email)=? OR LOWER(name)=? ORDER BY id LIMIT ?",
		login, login, MaxLoginCandidates)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	return r.getOne(ctx, "id=?", id)
}

// GetByEmail fetches a user by normalised email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.getOne(ctx, "email=?", strings.ToLower(strings.TrimSpace(email)))
}

// GetByGoogleID fetches the user linked to a Google subject.
func (r *UserRepo) GetByGoogleID(ctx context.Context, googleID string) (*model.User, error) {
	return r.getOne(ctx, "google_id=?", googleID)
}

// LinkGoogle persists the Google link fields of u (google_id, provider and
// the possibly backfilled avatar and name).
func (r *UserRepo) LinkGoogle(ctx context.Context, u *model.User) error {
	res, err := r.DB.ExecContext(ctx,
		"UPDATE users SET google_id=?, provider=?, avatar_url=?, name=? WHERE id=?",
		u.GoogleID, u.Provider, u.AvatarURL, u.Name, u.ID)
	if err != nil {
		return mapUserWriteErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// MySQL reports 0 for unchanged rows too; confirm existence.
		if _, err := r.GetByID(ctx, u.ID); err != nil {
			return err
		}
	}
	return nil
}

func (r *UserRepo) getOne(ctx context.Context, where string, arg any) (*model.User, error) {
	row := r.DB.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+where+" LIMIT 1", arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(s rowScanner) (*model.User, error) {
	var (
		u                               model.User
		name, hash, googleID, avatarURL sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Email, &name, &hash, &u.Role, &u.Provider, &googleID, &avatarURL, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Name = nullString(name)
	u.PasswordHash = nullString(hash)
	u.GoogleID = nullString(googleID)
	u.AvatarURL = nullString(avatarURL)
	return &u, nil
}

func mapUserWriteErr(err error) error {
	msg, ok := duplicateKey(err)
	switch {
	case !ok:
		return err
	case strings.Contains(msg, "google_id"):
		return ErrGoogleIDExists
	case strings.Contains(msg, "email"):
		return ErrEmailExists
	default:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	}
}

func nullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
