package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/queue"
	"github.com/iliyamo/volunteer-map/internal/repository"
)

// DefaultRejectReason is stored when an admin rejects without a reason.
const DefaultRejectReason = "Not suitable"

const adminListLimit = 100

// ModerationStore is the post persistence the admin service needs.
type ModerationStore interface {
	GetByID(ctx context.Context, id uint64) (*model.Post, error)
	List(ctx context.Context, f repository.PostFilter) ([]model.Post, int64, error)
	SetApproval(ctx context.Context, id uint64, status string, adminID uint64, reason *string) error
	Stats(ctx context.Context) (model.PostStats, error)
}

// AdminQuery filters the moderation queue.
type AdminQuery struct {
	ApprovalStatus string
	Status         string
	Q              string
}

// AdminService implements post moderation.  Role checks happen in the
// router.
type AdminService struct {
	Posts     ModerationStore
	Publisher EventPublisher
	Logger    *zap.Logger
}

func NewAdminService(posts ModerationStore, pub EventPublisher, log *zap.Logger) *AdminService {
	return &AdminService{Posts: posts, Publisher: pub, Logger: loggerOrNop(log)}
}

// Dashboard counts posts per state.
func (s *AdminService) Dashboard(ctx context.Context) (model.PostStats, error) {
	return s.Posts.Stats(ctx)
}

// ListPosts returns up to 100 posts of any state, newest first.  Unknown
// filter values are ignored.
func (s *AdminService) ListPosts(ctx context.Context, q AdminQuery) ([]model.PostView, error) {
	f := repository.PostFilter{Q: q.Q, Limit: adminListLimit}
	switch st := strings.ToUpper(strings.TrimSpace(q.ApprovalStatus)); st {
	case model.ApprovalPending, model.ApprovalApproved, model.ApprovalRejected:
		f.ApprovalStatus = st
	}
	switch st := strings.ToUpper(strings.TrimSpace(q.Status)); st {
	case model.PostOpen, model.PostClosed:
		f.Status = st
	}
	posts, _, err := s.Posts.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return views(posts, true), nil
}

// Approve publishes a post on the map.
func (s *AdminService) Approve(ctx context.Context, postID, adminID uint64) (model.PostView, error) {
	return s.moderate(ctx, postID, adminID, model.ApprovalApproved, nil)
}

// Reject hides a post with a reason shown to its owner.
func (s *AdminService) Reject(ctx context.Context, postID, adminID uint64, reason string) (model.PostView, error) {
	r := strings.TrimSpace(reason)
	if r == "" {
		r = DefaultRejectReason
	}
	return s.moderate(ctx, postID, adminID, model.ApprovalRejected, &r)
}

func (s *AdminService) moderate(ctx context.Context, postID, adminID uint64, status string, reason *string) (model.PostView, error) {
	err := s.Posts.SetApproval(ctx, postID, status, adminID, reason)
	if errors.Is(err, repository.ErrNotFound) {
		return model.PostView{}, apierr.NotFound("post not found")
	}
	if err != nil {
		return model.PostView{}, err
	}
	p, err := s.Posts.GetByID(ctx, postID)
	if err != nil {
		return model.PostView{}, err
	}
	s.Logger.Info("post moderated", zap.Uint64("post_id", postID), zap.Uint64("admin_id", adminID), zap.String("status", status))
	publish(ctx, s.Publisher, s.Logger, queue.EventPostModerated, queue.PostModerated{
		PostID:  p.ID,
		OwnerID: p.UserID,
		AdminID: adminID,
		Status:  status,
		Reason:  reason,
	})
	return p.View(true), nil
}
