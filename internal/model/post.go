package model

import "time"

// Post approval states.  PENDING and APPROVED posts are "live" for the
// duplicate-location check.
const (
	ApprovalPending  = "PENDING"
	ApprovalApproved = "APPROVED"
	ApprovalRejected = "REJECTED"
)

// Post availability states.
const (
	PostOpen   = "OPEN"
	PostClosed = "CLOSED"
)

// Post mirrors the `posts` table joined with its author.
type Post struct {
	ID             uint64
	UserID         uint64
	Title          string
	Description    *string
	Address        *string
	Lat            float64
	Lng            float64
	NeedTags       []string
	Status         string
	ApprovalStatus string
	ApprovedBy     *uint64
	ApprovedAt     *time.Time
	RejectedReason *string
	ContactName    *string
	ContactPhone   *string
	CreatedAt      time.Time
	UpdatedAt      time.Time

	Author     *UserBrief
	DistanceKM *float64 // set by near-me searches only
}

// Live reports whether the post takes part in duplicate-location checks.
func (p *Post) Live() bool {
	return p.ApprovalStatus == ApprovalPending || p.ApprovalStatus == ApprovalApproved
}

// PostView is the JSON representation of a post.
type PostView struct {
	ID             uint64     `json:"id"`
	UserID         uint64     `json:"userId"`
	Title          string     `json:"title"`
	Description    *string    `json:"description"`
	Address        *string    `json:"address"`
	Lat            float64    `json:"lat"`
	Lng            float64    `json:"lng"`
	NeedTags       []string   `json:"needTags"`
	Status         string     `json:"status"`
	ApprovalStatus string     `json:"approvalStatus"`
	RejectedReason *string    `json:"rejectedReason,omitempty"`
	ContactName    *string    `json:"contactName"`
	ContactPhone   *string    `json:"contactPhone"`
	DistanceKM     *float64   `json:"distanceKm,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
	User           *UserBrief `json:"user,omitempty"`
}

// View renders p; contact details are only included when showContact is set.
func (p *Post) View(showContact bool) PostView {
	tags := p.NeedTags
	if tags == nil {
		tags = []string{}
	}
	v := PostView{
		ID:             p.ID,
		UserID:         p.UserID,
		Title:          p.Title,
		Description:    p.Description,
		Address:        p.Address,
		Lat:            p.Lat,
		Lng:            p.Lng,
		NeedTags:       tags,
		Status:         p.Status,
		ApprovalStatus: p.ApprovalStatus,
		RejectedReason: p.RejectedReason,
		DistanceKM:     p.DistanceKM,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
		User:           p.Author,
	}
	if showContact {
		v.ContactName = p.ContactName
		v.ContactPhone = p.ContactPhone
	}
	return v
}

// PostStats is the admin dashboard summary.
type PostStats struct {
	Total    int64 `json:"total"`
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Open     int64 `json:"open"`
	Closed   int64 `json:"closed"`
}
