package model

import "time"

// Comment mirrors `post_comments`.  A soft-deleted comment keeps its row
// (and therefore its replies) but has DeletedAt set.
type Comment struct {
	ID        uint64
	PostID    uint64
	UserID    uint64
	ParentID  *uint64
	Content   *string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time

	Author *UserBrief
}

// CommentNode is one node of a reconstructed thread.
type CommentNode struct {
	ID        uint64         `json:"id"`
	PostID    uint64         `json:"postId"`
	UserID    uint64         `json:"userId"`
	ParentID  *uint64        `json:"parentId"`
	Content   *string        `json:"content"`
	IsDeleted bool           `json:"isDeleted"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	User      *UserBrief     `json:"user"`
	Replies   []*CommentNode `json:"replies"`
}
