package service

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/queue"
	"github.com/iliyamo/volunteer-map/internal/repository"
)

const (
	commitListLimit     = 300
	defaultPublicCommit = 6
	maxPublicCommit     = 500
)

// CommitStore persists support commits.
type CommitStore interface {
	GetByPostAndUser(ctx context.Context, postID, userID uint64) (*model.SupportCommit, error)
	GetInPost(ctx context.Context, postID, id uint64) (*model.SupportCommit, error)
	Upsert(ctx context.Context, postID, userID uint64, quantity int, message *string) (*model.SupportCommit, error)
	SetStatus(ctx context.Context, id uint64, status string) error
	ListByPost(ctx context.Context, postID uint64, status string, limit int) ([]model.SupportCommit, error)
	Summary(ctx context.Context, postID uint64) (model.CommitSummary, error)
}

// CommitInput is the body of a support pledge.
type CommitInput struct {
	Quantity *int
	Message  *string
}

// SupportService manages support commits.  A user has at most one commit
// per post; it moves PENDING -> CONFIRMED and from any state to CANCELED.
type SupportService struct {
	Commits   CommitStore
	Publisher EventPublisher
	Logger    *zap.Logger
}

func NewSupportService(commits CommitStore, pub EventPublisher, log *zap.Logger) *SupportService {
	return &SupportService{Commits: commits, Publisher: pub, Logger: loggerOrNop(log)}
}

// CreateOrUpdateMine pledges support, or re-pledges after a cancel.
func (s *SupportService) CreateOrUpdateMine(ctx context.Context, p *model.Post, viewer *auth.Identity, in CommitInput) (*model.SupportCommit, error) {
	if err := auth.RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	if p.ApprovalStatus != model.ApprovalApproved {
		return nil, apierr.BadRequest("post is not approved yet")
	}
	if p.Status != model.PostOpen {
		return nil, apierr.BadRequest("post is closed for support")
	}
	if p.UserID == viewer.ID {
		return nil, apierr.BadRequest("you cannot support your own post")
	}
	qty := 1
	if in.Quantity != nil {
		qty = *in.Quantity
	}
	if qty < 1 {
		return nil, apierr.BadRequest("quantity must be >= 1")
	}
	var msg *string
	if in.Message != nil {
		if m := strings.TrimSpace(*in.Message); m != "" {
			msg = &m
		}
	}

	existing, err := s.Commits.GetByPostAndUser(ctx, p.ID, viewer.ID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing != nil && existing.Status == model.CommitConfirmed {
		return nil, apierr.BadRequest("commit already confirmed, cancel it first to change it")
	}
	return s.Commits.Upsert(ctx, p.ID, viewer.ID, qty, msg)
}

// GetMine returns the caller's commit for p, or nil.
func (s *SupportService) GetMine(ctx context.Context, p *model.Post, viewer *auth.Identity) (*model.SupportCommit, error) {
	if err := auth.RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	c, err := s.Commits.GetByPostAndUser(ctx, p.ID, viewer.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return c, err
}

// List returns the commits of p for its owner or an admin.
func (s *SupportService) List(ctx context.Context, p *model.Post, viewer *auth.Identity, status string) ([]model.SupportCommit, error) {
	if err := auth.RequireOwnerOrAdmin(viewer, &p.UserID); err != nil {
		return nil, err
	}
	st := strings.ToUpper(strings.TrimSpace(status))
	switch st {
	case "", model.CommitPending, model.CommitConfirmed, model.CommitCanceled:
	default:
		return nil, apierr.BadRequest("invalid status filter")
	}
	return s.Commits.ListByPost(ctx, p.ID, st, commitListLimit)
}

// Confirm accepts a pending commit.  Confirming twice is a no-op.
func (s *SupportService) Confirm(ctx context.Context, p *model.Post, viewer *auth.Identity, commitID uint64) (*model.SupportCommit, error) {
	if err := auth.RequireOwnerOrAdmin(viewer, &p.UserID); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, p.ID, commitID)
	if err != nil {
		return nil, err
	}
	switch c.Status {
	case model.CommitCanceled:
		return nil, apierr.BadRequest("commit was canceled")
	case model.CommitConfirmed:
		return c, nil
	}
	return s.transition(ctx, p, viewer, c, model.CommitConfirmed)
}

// Cancel withdraws a commit.  The post owner, an admin or the supporter
// may cancel; canceling twice is a no-op.
func (s *SupportService) Cancel(ctx context.Context, p *model.Post, viewer *auth.Identity, commitID uint64) (*model.SupportCommit, error) {
	if err := auth.RequireAuthenticated(viewer); err != nil {
		return nil, err
	}
	c, err := s.load(ctx, p.ID, commitID)
	if err != nil {
		return nil, err
	}
	if viewer.ID != p.UserID && viewer.ID != c.UserID && !viewer.IsAdmin() {
		return nil, apierr.Forbidden("Forbidden")
	}
	if c.Status == model.CommitCanceled {
		return c, nil
	}
	return s.transition(ctx, p, viewer, c, model.CommitCanceled)
}

// Summary aggregates commits of p.
func (s *SupportService) Summary(ctx context.Context, p *model.Post) (model.CommitSummary, error) {
	return s.Commits.Summary(ctx, p.ID)
}

// PublicConfirmed lists confirmed supporters without contact details.
func (s *SupportService) PublicConfirmed(ctx context.Context, p *model.Post, limit int) ([]model.PublicCommit, error) {
	if limit < 1 {
		limit = defaultPublicCommit
	}
	if limit > maxPublicCommit {
		limit = maxPublicCommit
	}
	rows, err := s.Commits.ListByPost(ctx, p.ID, model.CommitConfirmed, limit)
	if err != nil {
		return nil, err
	}
	out := make([]model.PublicCommit, 0, len(rows))
	for _, c := range rows {
		pc := model.PublicCommit{ID: c.ID, Message: c.Message, CreatedAt: c.CreatedAt}
		if c.User != nil {
			pc.User = &model.UserBrief{ID: c.User.ID, Email: c.User.Email, Name: c.User.Name}
		}
		out = append(out, pc)
	}
	return out, nil
}

func (s *SupportService) load(ctx context.Context, postID, commitID uint64) (*model.SupportCommit, error) {
	c, err := s.Commits.GetInPost(ctx, postID, commitID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("support commit not found")
	}
	return c, err
}

func (s *SupportService) transition(ctx context.Context, p *model.Post, actor *auth.Identity, c *model.SupportCommit, status string) (*model.SupportCommit, error) {
	if err := s.Commits.SetStatus(ctx, c.ID, status); err != nil {
		return nil, err
	}
	updated, err := s.Commits.GetInPost(ctx, p.ID, c.ID)
	if err != nil {
		return nil, err
	}
	publish(ctx, s.Publisher, s.Logger, queue.EventSupportCommit, queue.SupportCommitChanged{
		CommitID: updated.ID,
		PostID:   p.ID,
		UserID:   updated.UserID,
		ActorID:  actor.ID,
		Status:   updated.Status,
		Quantity: updated.Quantity,
	})
	return updated, nil
}
