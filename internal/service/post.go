package service

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/geo"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/repository"
)

const (
	maxTitleLen    = 180
	maxMinePosts   = 100
	defaultPageLen = 20
	maxPageLen     = 50
	defaultNearKM  = 5
	minNearKM      = 1
	maxNearKM      = 50
)

var phonePattern = regexp.MustCompile(`^(0\d{9,10}|\+84\d{8,10})$`)

// PostStore is the post persistence used by the post and admin services.
type PostStore interface {
	Create(ctx context.Context, p *model.Post) error
	GetByID(ctx context.Context, id uint64) (*model.Post, error)
	Update(ctx context.Context, p *model.Post) error
	SoftDelete(ctx context.Context, id uint64) error
	List(ctx context.Context, f repository.PostFilter) ([]model.Post, int64, error)
}

// LocationGuard rejects coordinates too close to a live post.
type LocationGuard interface {
	AssertNoNearbyLivePost(ctx context.Context, lat, lng float64, excludeID uint64) error
}

// PostInput carries create and update fields.  A nil field is "not sent";
// for updates only sent fields change.
type PostInput struct {
	Title        *string
	Description  *string
	Address      *string
	Lat          *float64
	Lng          *float64
	NeedTags     []string // nil when not sent
	Status       *string
	ContactName  *string
	ContactPhone *string
}

// PublicQuery filters the public listing.
type PublicQuery struct {
	Q        string
	Status   string
	Tag      string
	Page     int
	Limit    int
	Lat      *float64
	Lng      *float64
	RadiusKM *float64
}

// PostPage is one page of a listing.
type PostPage struct {
	Items []model.PostView `json:"items"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
	Total int64            `json:"total"`
}

// PostService implements post CRUD and the public listing.
type PostService struct {
	Posts  PostStore
	Guard  LocationGuard
	Logger *zap.Logger
}

func NewPostService(posts PostStore, guard LocationGuard, log *zap.Logger) *PostService {
	return &PostService{Posts: posts, Guard: guard, Logger: loggerOrNop(log)}
}

// Load fetches a post or fails with 404.
func (s *PostService) Load(ctx context.Context, id uint64) (*model.Post, error) {
	p, err := s.Posts.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.NotFound("post not found")
	}
	return p, err
}

// EnsureReadable lets anyone read APPROVED posts; other posts are visible to
// their owner and admins only.
func EnsureReadable(p *model.Post, viewer *auth.Identity) error {
	if p.ApprovalStatus == model.ApprovalApproved {
		return nil
	}
	return auth.RequireOwnerOrAdmin(viewer, &p.UserID)
}

// Create validates in, checks the location and stores a PENDING post.
func (s *PostService) Create(ctx context.Context, userID uint64, in PostInput) (model.PostView, error) {
	title, err := cleanTitle(in.Title, true)
	if err != nil {
		return model.PostView{}, err
	}
	if in.Lat == nil || in.Lng == nil {
		return model.PostView{}, apierr.BadRequest("lat and lng are required numbers")
	}
	if !geo.ValidCoordinates(*in.Lat, *in.Lng) {
		return model.PostView{}, apierr.BadRequest("lat/lng out of range")
	}
	phone, err := normalizePhone(in.ContactPhone)
	if err != nil {
		return model.PostView{}, err
	}
	if err := s.Guard.AssertNoNearbyLivePost(ctx, *in.Lat, *in.Lng, 0); err != nil {
		return model.PostView{}, err
	}

	p := &model.Post{
		UserID:         userID,
		Title:          title,
		Description:    optionalText(in.Description, false),
		Address:        optionalText(in.Address, false),
		Lat:            *in.Lat,
		Lng:            *in.Lng,
		NeedTags:       cleanTags(in.NeedTags),
		Status:         normalizeStatus(in.Status),
		ApprovalStatus: model.ApprovalPending,
		ContactName:    optionalText(in.ContactName, true),
		ContactPhone:   phone,
	}
	if err := s.Posts.Create(ctx, p); err != nil {
		return model.PostView{}, err
	}
	s.Logger.Info("post created", zap.Uint64("post_id", p.ID), zap.Uint64("user_id", userID))
	return p.View(true), nil
}

// ListPublic lists APPROVED posts with contact details hidden.
func (s *PostService) ListPublic(ctx context.Context, q PublicQuery) (PostPage, error) {
	page := q.Page
	if page < 1 {
		page = 1
	}
	limit := q.Limit
	if limit < 1 {
		limit = defaultPageLen
	}
	if limit > maxPageLen {
		limit = maxPageLen
	}

	f := repository.PostFilter{
		Q:              q.Q,
		Tag:            strings.TrimSpace(q.Tag),
		ApprovalStatus: model.ApprovalApproved,
		Limit:          limit,
		Offset:         (page - 1) * limit,
	}
	if st := strings.ToUpper(strings.TrimSpace(q.Status)); st == model.PostOpen || st == model.PostClosed {
		f.Status = st
	}
	if q.Lat != nil && q.Lng != nil && geo.ValidCoordinates(*q.Lat, *q.Lng) {
		r := float64(defaultNearKM)
		if q.RadiusKM != nil && !math.IsNaN(*q.RadiusKM) {
			r = clamp(*q.RadiusKM, minNearKM, maxNearKM)
		}
		f.Near = &repository.Near{Point: geo.Point{Lat: *q.Lat, Lng: *q.Lng}, RadiusKM: r}
	}

	posts, total, err := s.Posts.List(ctx, f)
	if err != nil {
		return PostPage{}, err
	}
	return PostPage{Items: views(posts, false), Page: page, Limit: limit, Total: total}, nil
}

// ListMine lists the caller's posts in every state, contact included.
func (s *PostService) ListMine(ctx context.Context, userID uint64) ([]model.PostView, error) {
	posts, _, err := s.Posts.List(ctx, repository.PostFilter{UserID: userID, Limit: maxMinePosts})
	if err != nil {
		return nil, err
	}
	return views(posts, true), nil
}

// Get renders a loaded post for viewer.  Contact details require login.
func (s *PostService) Get(p *model.Post, viewer *auth.Identity) (model.PostView, error) {
	if err := EnsureReadable(p, viewer); err != nil {
		return model.PostView{}, err
	}
	return p.View(viewer != nil), nil
}

// Update applies the sent fields.  Moving the post re-runs the location
// check against every other live post, and any edit sends the post back to
// moderation.
func (s *PostService) Update(ctx context.Context, p *model.Post, in PostInput) (model.PostView, error) {
	next := *p

	if in.Title != nil {
		title, err := cleanTitle(in.Title, true)
		if err != nil {
			return model.PostView{}, err
		}
		next.Title = title
	}
	moved := in.Lat != nil || in.Lng != nil
	if in.Lat != nil {
		next.Lat = *in.Lat
	}
	if in.Lng != nil {
		next.Lng = *in.Lng
	}
	if moved && !geo.ValidCoordinates(next.Lat, next.Lng) {
		return model.PostView{}, apierr.BadRequest("lat/lng out of range")
	}
	if in.Description != nil {
		next.Description = optionalText(in.Description, false)
	}
	if in.Address != nil {
		next.Address = optionalText(in.Address, false)
	}
	if in.NeedTags != nil {
		next.NeedTags = cleanTags(in.NeedTags)
	}
	if in.Status != nil {
		next.Status = normalizeStatus(in.Status)
	}
	if in.ContactName != nil {
		next.ContactName = optionalText(in.ContactName, true)
	}
	if in.ContactPhone != nil {
		phone, err := normalizePhone(in.ContactPhone)
		if err != nil {
			return model.PostView{}, err
		}
		next.ContactPhone = phone
	}

	if moved {
		if err := s.Guard.AssertNoNearbyLivePost(ctx, next.Lat, next.Lng, p.ID); err != nil {
			return model.PostView{}, err
		}
	}
	next.ApprovalStatus = model.ApprovalPending

	if err := s.Posts.Update(ctx, &next); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.PostView{}, apierr.NotFound("post not found")
		}
		return model.PostView{}, err
	}
	*p = next
	return p.View(true), nil
}

// Delete soft-deletes a post.
func (s *PostService) Delete(ctx context.Context, p *model.Post) error {
	err := s.Posts.SoftDelete(ctx, p.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return apierr.NotFound("post not found")
	}
	if err == nil {
		s.Logger.Info("post deleted", zap.Uint64("post_id", p.ID))
	}
	return err
}

func cleanTitle(v *string, required bool) (string, error) {
	title := ""
	if v != nil {
		title = strings.TrimSpace(*v)
	}
	if title == "" && required {
		return "", apierr.BadRequest("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return "", apierr.BadRequest("title is too long")
	}
	return title, nil
}

// cleanTags trims tags, drops empties and splits comma lists.
func cleanTags(in []string) []string {
	out := []string{}
	for _, raw := range in {
		for _, t := range strings.Split(raw, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}

func normalizeStatus(v *string) string {
	if v != nil && strings.EqualFold(strings.TrimSpace(*v), model.PostClosed) {
		return model.PostClosed
	}
	return model.PostOpen
}

// normalizePhone strips whitespace and validates Vietnamese numbers.  An
// empty value clears the field.
func normalizePhone(v *string) (*string, error) {
	if v == nil {
		return nil, nil
	}
	s := strings.Join(strings.Fields(*v), "")
	if s == "" {
		return nil, nil
	}
	if !phonePattern.MatchString(s) {
		return nil, apierr.BadRequest("invalid phone number")
	}
	return &s, nil
}

func optionalText(v *string, trim bool) *string {
	if v == nil {
		return nil
	}
	s := *v
	if trim {
		s = strings.TrimSpace(s)
	}
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}

func views(posts []model.Post, showContact bool) []model.PostView {
	out := make([]model.PostView, 0, len(posts))
	for i := range posts {
		out = append(out, posts[i].View(showContact))
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	switch {
	case v < lo:
		return lo
	case v > hi:
		return hi
	}
	return v
}
