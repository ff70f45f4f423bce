package model

import "time"

// Support commit states.
const (
	CommitPending   = "PENDING"
	CommitConfirmed = "CONFIRMED"
	CommitCanceled  = "CANCELED"
)

// SupportCommit is a volunteer's pledge against a post (`support_commits`).
// There is at most one row per (post, user).
type SupportCommit struct {
	ID          uint64     `json:"id"`
	PostID      uint64     `json:"postId"`
	UserID      uint64     `json:"userId"`
	Quantity    int        `json:"quantity"`
	Message     *string    `json:"message"`
	Status      string     `json:"status"`
	ConfirmedAt *time.Time `json:"confirmedAt"`
	CanceledAt  *time.Time `json:"canceledAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	User        *UserBrief `json:"user,omitempty"`
}

// PublicCommit is what anonymous visitors see of a confirmed supporter.
type PublicCommit struct {
	ID        uint64     `json:"id"`
	User      *UserBrief `json:"user"`
	Message   *string    `json:"message"`
	CreatedAt time.Time  `json:"createdAt"`
}

// CommitSummary aggregates commits of a post per status.
type CommitSummary struct {
	PendingCount   int64 `json:"pendingCount"`
	PendingQty     int64 `json:"pendingQty"`
	ConfirmedCount int64 `json:"confirmedCount"`
	ConfirmedQty   int64 `json:"confirmedQty"`
	CanceledCount  int64 `json:"canceledCount"`
	CanceledQty    int64 `json:"canceledQty"`
	ActiveCount    int64 `json:"activeCount"`
	ActiveQty      int64 `json:"activeQty"`
}
