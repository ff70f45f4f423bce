package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/volunteer-map/internal/model"
)

// CommentRepo stores post comments.  Deletion is soft so threads keep their
// shape; soft-deleted rows are still returned and callers blank them.
type CommentRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db, now: time.Now} }

const commentSelect = `SELECT c.id, c.post_id, c.user_id, c.parent_id, c.content, c.created_at, c.updated_at, c.deleted_at,
  u.id, u.email, u.name, u.avatar_url
FROM post_comments c JOIN users u ON u.id = c.user_id`

// ListByPost returns the newest limit comments of a post.
func (r *CommentRepo) ListByPost(ctx context.Context, postID uint64, limit int) ([]model.Comment, error) {
	rows, err := r.db.QueryContext(ctx, commentSelect+" WHERE c.post_id = ? ORDER BY c.created_at DESC, c.id DESC LIMIT ?", postID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// GetInPost fetches a comment by id, scoped to postID.
func (r *CommentRepo) GetInPost(ctx context.Context, postID, id uint64) (*model.Comment, error) {
	c, err := scanComment(r.db.QueryRowContext(ctx, commentSelect+" WHERE c.id = ? AND c.post_id = ?", id, postID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return c, err
}

// Create inserts c and reloads it with its author.
func (r *CommentRepo) Create(ctx context.Context, c *model.Comment) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO post_comments (post_id, user_id, parent_id, content) VALUES (?,?,?,?)",
		c.PostID, c.UserID, c.ParentID, c.Content)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	full, err := r.GetInPost(ctx, c.PostID, uint64(id))
	if err != nil {
		return err
	}
	*c = *full
	return nil
}

// UpdateContent replaces the text of a live comment.
func (r *CommentRepo) UpdateContent(ctx context.Context, id uint64, content string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE post_comments SET content=?, updated_at=? WHERE id=? AND deleted_at IS NULL",
		content, r.now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete sets deleted_at; deleting twice is a no-op.
func (r *CommentRepo) SoftDelete(ctx context.Context, id uint64) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE post_comments SET deleted_at=? WHERE id=? AND deleted_at IS NULL", r.now().UTC(), id)
	return err
}

func scanComment(s rowScanner) (*model.Comment, error) {
	var (
		c              model.Comment
		a              model.UserBrief
		parentID       sql.NullInt64
		content        sql.NullString
		deletedAt      sql.NullTime
		aName, aAvatar sql.NullString
	)
	if err := s.Scan(&c.ID, &c.PostID, &c.UserID, &parentID, &content, &c.CreatedAt, &c.UpdatedAt, &deletedAt,
		&a.ID, &a.Email, &aName, &aAvatar); err != nil {
		return nil, err
	}
	if parentID.Valid {
		v := uint64(parentID.Int64)
		c.ParentID = &v
	}
	c.Content = nullString(content)
	if deletedAt.Valid {
		c.DeletedAt = &deletedAt.Time
	}
	a.Name = nullString(aName)
	a.AvatarURL = nullString(aAvatar)
	c.Author = &a
	return &c, nil
}
