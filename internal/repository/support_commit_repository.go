package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/volunteer-map/internal/model"
)

// SupportCommitRepo stores support commits, one row per (post, user).
type SupportCommitRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewSupportCommitRepo(db *sql.DB) *SupportCommitRepo {
	return &SupportCommitRepo{db: db, now: time.Now}
}

const commitSelect = `SELECT s.id, s.post_id, s.user_id, s.quantity, s.message, s.status, s.confirmed_at, s.canceled_at,
  s.created_at, s.updated_at, u.id, u.email, u.name, u.avatar_url
FROM support_commits s JOIN users u ON u.id = s.user_id`

// GetByPostAndUser returns the caller's commit for a post.
func (r *SupportCommitRepo) GetByPostAndUser(ctx context.Context, postID, userID uint64) (*model.SupportCommit, error) {
	return r.getOne(ctx, " WHERE s.post_id = ? AND s.user_id = ?", postID, userID)
}

// GetInPost returns a commit by id, scoped to postID.
func (r *SupportCommitRepo) GetInPost(ctx context.Context, postID, id uint64) (*model.SupportCommit, error) {
	return r.getOne(ctx, " WHERE s.id = ? AND s.post_id = ?", id, postID)
}

func (r *SupportCommitRepo) getOne(ctx context.Context, where string, args ...any) (*model.SupportCommit, error) {
	c, err := scanCommit(r.db.QueryRowContext(ctx, commitSelect+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Upsert creates the (post, user) commit or resets the existing one back to
// PENDING with the new quantity and message.
func (r *SupportCommitRepo) Upsert(ctx context.Context, postID, userID uint64, quantity int, message *string) (*model.SupportCommit, error) {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO support_commits (post_id, user_id, quantity, message, status) VALUES (?,?,?,?,'PENDING')
ON DUPLICATE KEY UPDATE quantity=VALUES(quantity), message=VALUES(message), status='PENDING', confirmed_at=NULL, canceled_at=NULL`,
		postID, userID, quantity, message)
	if err != nil {
		return nil, err
	}
	return r.GetByPostAndUser(ctx, postID, userID)
}

// SetStatus moves a commit to CONFIRMED or CANCELED and stamps the matching
// timestamp.
func (r *SupportCommitRepo) SetStatus(ctx context.Context, id uint64, status string) error {
	now := r.now().UTC()
	var q string
	switch status {
	case model.CommitConfirmed:
		q = "UPDATE support_commits SET status=?, confirmed_at=?, canceled_at=NULL WHERE id=?"
	case model.CommitCanceled:
		q = "UPDATE support_commits SET status=?, canceled_at=? WHERE id=?"
	default:
		return errors.New("support commit: unsupported status " + status)
	}
	_, err := r.db.ExecContext(ctx, q, status, now, id)
	return err
}

// ListByPost returns up to limit commits of a post, newest first, optionally
// filtered by status.
func (r *SupportCommitRepo) ListByPost(ctx context.Context, postID uint64, status string, limit int) ([]model.SupportCommit, error) {
	q := commitSelect + " WHERE s.post_id = ?"
	args := []any{postID}
	if status != "" {
		q += " AND s.status = ?"
		args = append(args, status)
	}
	q += " ORDER BY s.created_at DESC, s.id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.SupportCommit{}
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// Summary aggregates count and quantity per status.
func (r *SupportCommitRepo) Summary(ctx context.Context, postID uint64) (model.CommitSummary, error) {
	var s model.CommitSummary
	rows, err := r.db.QueryContext(ctx,
		"SELECT status, COUNT(id), COALESCE(SUM(quantity),0) FROM support_commits WHERE post_id = ? GROUP BY status", postID)
	if err != nil {
		return s, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status     string
			count, qty int64
		)
		if err := rows.Scan(&status, &count, &qty); err != nil {
			return s, err
		}
		switch status {
		case model.CommitPending:
			s.PendingCount, s.PendingQty = count, qty
		case model.CommitConfirmed:
			s.ConfirmedCount, s.ConfirmedQty = count, qty
		case model.CommitCanceled:
			s.CanceledCount, s.CanceledQty = count, qty
		}
	}
	s.ActiveCount = s.PendingCount + s.ConfirmedCount
	s.ActiveQty = s.PendingQty + s.ConfirmedQty
	return s, rows.Err()
}

func scanCommit(s rowScanner) (*model.SupportCommit, error) {
	var (
		c                       model.SupportCommit
		a                       model.UserBrief
		message, aName, aAvatar sql.NullString
		confirmedAt, canceledAt sql.NullTime
	)
	if err := s.Scan(&c.ID, &c.PostID, &c.UserID, &c.Quantity, &message, &c.Status, &confirmedAt, &canceledAt,
		&c.CreatedAt, &c.UpdatedAt, &a.ID, &a.Email, &aName, &aAvatar); err != nil {
		return nil, err
	}
	c.Message = nullString(message)
	if confirmedAt.Valid {
		c.ConfirmedAt = &confirmedAt.Time
	}
	if canceledAt.Valid {
		c.CanceledAt = &canceledAt.Time
	}
	a.Name = nullString(aName)
	a.AvatarURL = nullString(aAvatar)
	c.User = &a
	return &c, nil
}
