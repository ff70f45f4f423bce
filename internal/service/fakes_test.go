package service

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/volunteer-map/internal/geo"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/queue"
	"github.com/iliyamo/volunteer-map/internal/repository"
)

type memUsers struct {
	mu     sync.Mutex
	users  map[uint64]*model.User
	nextID uint64
}

func newMemUsers() *memUsers { return &memUsers{users: map[uint64]*model.User{}} }

func (m *memUsers) Create(_ context.Context, u *model.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.users {
		if strings.EqualFold(x.Email, u.Email) {
			return repository.ErrEmailExists
		}
	}
	m.nextID++
	u.ID = m.nextID
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) GetByID(_ context.Context, id uint64) (*model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type memLedger struct {
	mu     sync.Mutex
	rows   []*model.RefreshToken
	nextID uint64
	now    func() time.Time
}

func newMemLedger() *memLedger { return &memLedger{now: time.Now} }

func (m *memLedger) Issue(_ context.Context, userID uint64, hash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.issue(userID, hash, exp)
	return nil
}

func (m *memLedger) issue(userID uint64, hash string, exp time.Time) {
	m.nextID++
	m.rows = append(m.rows, &model.RefreshToken{ID: m.nextID, UserID: userID, TokenHash: hash, ExpiresAt: exp, CreatedAt: m.now()})
}

func (m *memLedger) FindActive(_ context.Context, hash string) (*model.RefreshToken, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TokenHash == hash && r.Active(m.now()) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memLedger) Rotate(_ context.Context, consumedID, userID uint64, newHash string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == consumedID && r.Active(m.now()) {
			t := m.now()
			r.RevokedAt = &t
			m.issue(userID, newHash, exp)
			return nil
		}
	}
	return repository.ErrTokenNotActive
}

func (m *memLedger) RevokeByHash(_ context.Context, hash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TokenHash == hash && r.RevokedAt == nil {
			t := m.now()
			r.RevokedAt = &t
		}
	}
	return nil
}

func (m *memLedger) byHash(hash string) *model.RefreshToken {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TokenHash == hash {
			cp := *r
			return &cp
		}
	}
	return nil
}

type memPosts struct {
	posts  map[uint64]*model.Post
	nextID uint64
	filter repository.PostFilter
}

func newMemPosts() *memPosts { return &memPosts{posts: map[uint64]*model.Post{}} }

func (m *memPosts) put(p model.Post) *model.Post {
	m.nextID++
	p.ID = m.nextID
	if p.Status == "" {
		p.Status = model.PostOpen
	}
	m.posts[p.ID] = &p
	return &p
}

func (m *memPosts) Create(_ context.Context, p *model.Post) error {
	stored := m.put(*p)
	*p = *stored
	return nil
}

func (m *memPosts) GetByID(_ context.Context, id uint64) (*model.Post, error) {
	p, ok := m.posts[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPosts) Update(_ context.Context, p *model.Post) error {
	if _, ok := m.posts[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.posts[p.ID] = &cp
	return nil
}

func (m *memPosts) SoftDelete(_ context.Context, id uint64) error {
	if _, ok := m.posts[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.posts, id)
	return nil
}

func (m *memPosts) List(_ context.Context, f repository.PostFilter) ([]model.Post, int64, error) {
	m.filter = f
	var out []model.Post
	for _, p := range m.posts {
		if f.ApprovalStatus != "" && p.ApprovalStatus != f.ApprovalStatus {
			continue
		}
		if f.Status != "" && p.Status != f.Status {
			continue
		}
		if f.UserID != 0 && p.UserID != f.UserID {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, int64(len(out)), nil
}

func (m *memPosts) SetApproval(_ context.Context, id uint64, status string, adminID uint64, reason *string) error {
	p, ok := m.posts[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.ApprovalStatus = status
	p.ApprovedBy = &adminID
	p.RejectedReason = reason
	return nil
}

func (m *memPosts) Stats(_ context.Context) (model.PostStats, error) {
	var s model.PostStats
	for _, p := range m.posts {
		s.Total++
		switch p.ApprovalStatus {
		case model.ApprovalPending:
			s.Pending++
		case model.ApprovalApproved:
			s.Approved++
		case model.ApprovalRejected:
			s.Rejected++
		}
	}
	return s, nil
}

func (m *memPosts) LivePostsNear(_ context.Context, _ geo.Point, _ float64, excludeID uint64) ([]geo.LivePost, error) {
	var out []geo.LivePost
	for _, p := range m.posts {
		if p.ID != excludeID && p.Live() {
			out = append(out, geo.LivePost{
				ID:             p.ID,
				Title:          p.Title,
				ApprovalStatus: p.ApprovalStatus,
				Point:          geo.Point{Lat: p.Lat, Lng: p.Lng},
			})
		}
	}
	return out, nil
}

type memComments struct {
	rows   []*model.Comment
	nextID uint64
	clock  time.Time
}

func (m *memComments) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memComments) ListByPost(_ context.Context, postID uint64, limit int) ([]model.Comment, error) {
	var out []model.Comment
	for _, c := range m.rows {
		if c.PostID == postID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memComments) GetInPost(_ context.Context, postID, id uint64) (*model.Comment, error) {
	for _, c := range m.rows {
		if c.ID == id && c.PostID == postID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memComments) Create(_ context.Context, c *model.Comment) error {
	m.nextID++
	c.ID = m.nextID
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	cp := *c
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memComments) UpdateContent(_ context.Context, id uint64, content string) error {
	for _, c := range m.rows {
		if c.ID == id && c.DeletedAt == nil {
			c.Content = &content
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memComments) SoftDelete(_ context.Context, id uint64) error {
	for _, c := range m.rows {
		if c.ID == id && c.DeletedAt == nil {
			t := m.tick()
			c.DeletedAt = &t
		}
	}
	return nil
}

type memCommits struct {
	rows   []*model.SupportCommit
	nextID uint64
}

func (m *memCommits) GetByPostAndUser(_ context.Context, postID, userID uint64) (*model.SupportCommit, error) {
	for _, c := range m.rows {
		if c.PostID == postID && c.UserID == userID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCommits) GetInPost(_ context.Context, postID, id uint64) (*model.SupportCommit, error) {
	for _, c := range m.rows {
		if c.PostID == postID && c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memCommits) Upsert(_ context.Context, postID, userID uint64, quantity int, message *string) (*model.SupportCommit, error) {
	for _, c := range m.rows {
		if c.PostID == postID && c.UserID == userID {
			c.Quantity, c.Message, c.Status = quantity, message, model.CommitPending
			c.ConfirmedAt, c.CanceledAt = nil, nil
			cp := *c
			return &cp, nil
		}
	}
	m.nextID++
	c := &model.SupportCommit{ID: m.nextID, PostID: postID, UserID: userID, Quantity: quantity, Message: message, Status: model.CommitPending}
	m.rows = append(m.rows, c)
	cp := *c
	return &cp, nil
}

func (m *memCommits) SetStatus(_ context.Context, id uint64, status string) error {
	for _, c := range m.rows {
		if c.ID == id {
			c.Status = status
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memCommits) ListByPost(_ context.Context, postID uint64, status string, limit int) ([]model.SupportCommit, error) {
	var out []model.SupportCommit
	for _, c := range m.rows {
		if c.PostID == postID && (status == "" || c.Status == status) {
			out = append(out, *c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memCommits) Summary(_ context.Context, postID uint64) (model.CommitSummary, error) {
	var s model.CommitSummary
	for _, c := range m.rows {
		if c.PostID != postID {
			continue
		}
		switch c.Status {
		case model.CommitPending:
			s.PendingCount++
			s.PendingQty += int64(c.Quantity)
		case model.CommitConfirmed:
			s.ConfirmedCount++
			s.ConfirmedQty += int64(c.Quantity)
		case model.CommitCanceled:
			s.CanceledCount++
			s.CanceledQty += int64(c.Quantity)
		}
	}
	s.ActiveCount = s.PendingCount + s.ConfirmedCount
	s.ActiveQty = s.PendingQty + s.ConfirmedQty
	return s, nil
}

type recordingPublisher struct {
	events []queue.Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, ev queue.Event) error {
	r.events = append(r.events, ev)
	return r.err
}
