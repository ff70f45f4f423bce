package service

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/repository"
)

const (
	defaultCommentLimit = 200
	maxCommentLimit     = 500
	maxCommentLen       = 2000
)

// CommentStore persists comments.
type CommentStore interface {
	ListByPost(ctx context.Context, postID uint64, limit int) ([]model.Comment, error)
	GetInPost(ctx context.Context, postID, id uint64) (*model.Comment, error)
	Create(ctx context.Context, c *model.Comment) error
	UpdateContent(ctx context.Context, id uint64, content string) error
	SoftDelete(ctx context.Context, id uint64) error
}

// CommentPage is the thread listing of a post.
type CommentPage struct {
	Items []*model.CommentNode `json:"items"`
	Total int                  `json:"total"`
}

// CommentService manages post comments.
type CommentService struct {
	Comments CommentStore
}

func NewCommentService(comments CommentStore) *CommentService {
	return &CommentService{Comments: comments}
}

// List returns the newest limit comments of p arranged as threads.
func (s *CommentService) List(ctx context.Context, p *model.Post, viewer *auth.Identity, limit int) (CommentPage, error) {
	if err := EnsureReadable(p, viewer); err != nil {
		return CommentPage{}, err
	}
	if limit < 1 {
		limit = defaultCommentLimit
	}
	if limit > maxCommentLimit {
		limit = maxCommentLimit
	}
	flat, err := s.Comments.ListByPost(ctx, p.ID, limit)
	if err != nil {
		return CommentPage{}, err
	}
	return CommentPage{Items: BuildForest(flat), Total: len(flat)}, nil
}

// Create adds a comment, optionally as a reply, to an APPROVED post.
func (s *CommentService) Create(ctx context.Context, p *model.Post, viewer *auth.Identity, content string, parentID *uint64) (*model.CommentNode, error) {
	if err := auth.RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	if err := EnsureReadable(p, viewer); err != nil {
		return nil, err
	}
	if p.ApprovalStatus != model.ApprovalApproved {
		return nil, apierr.BadRequest("post is not approved yet")
	}
	text, err := cleanComment(content)
	if err != nil {
		return nil, err
	}

	c := &model.Comment{PostID: p.ID, UserID: viewer.ID, Content: &text}
	if parentID != nil && *parentID != 0 {
		parent, err := s.Comments.GetInPost(ctx, p.ID, *parentID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apierr.BadRequest("invalid parent comment")
		}
		if err != nil {
			return nil, err
		}
		c.ParentID = &parent.ID
	}
	if err := s.Comments.Create(ctx, c); err != nil {
		return nil, err
	}
	return toNode(c), nil
}

// Update edits the text of a live comment; author or admin only.
func (s *CommentService) Update(ctx context.Context, p *model.Post, viewer *auth.Identity, commentID uint64, content string) (*model.CommentNode, error) {
	c, err := s.ownComment(ctx, p, viewer, commentID)
	if err != nil {
		return nil, err
	}
	if c.DeletedAt != nil {
		return nil, apierr.BadRequest("comment was deleted")
	}
	text, err := cleanComment(content)
	if err != nil {
		return nil, err
	}
	if err := s.Comments.UpdateContent(ctx, c.ID, text); err != nil {
		return nil, err
	}
	updated, err := s.Comments.GetInPost(ctx, p.ID, c.ID)
	if err != nil {
		return nil, err
	}
	return toNode(updated), nil
}

// Delete soft-deletes a comment; author or admin only.  Replies stay.
func (s *CommentService) Delete(ctx context.Context, p *model.Post, viewer *auth.Identity, commentID uint64) error {
	c, err := s.ownComment(ctx, p, viewer, commentID)
	if err != nil {
		return err
	}
	return s.Comments.SoftDelete(ctx, c.ID)
}

func (s *CommentService) ownComment(ctx context.Context, p *model.Post, viewer *auth.Identity, commentID uint64) (*model.Comment, error) {
	if err := auth.RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	if err := EnsureReadable(p, viewer); err != nil {
		return nil, err
	}
	c, err := s.Comments.GetInPost(ctx, p.ID, commentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("comment not found")
	}
	if err != nil {
		return nil, err
	}
	if err := auth.RequireOwnerOrAdmin(viewer, &c.UserID); err != nil {
		return nil, err
	}
	return c, nil
}

func cleanComment(content string) (string, error) {
	text := strings.TrimSpace(content)
	if text == "" {
		return "", apierr.BadRequest("comment content is required")
	}
	if utf8.RuneCountInString(text) > maxCommentLen {
		return "", apierr.BadRequest("comment is too long (max 2000 characters)")
	}
	return text, nil
}
