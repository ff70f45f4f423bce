package service

import (
	"sort"

	"github.com/iliyamo/volunteer-map/internal/model"
)

// BuildForest turns a flat comment list into threads.  A comment whose
// parent is not in the batch becomes a root.  Replies read oldest first,
// roots newest first.  Soft-deleted comments keep their place and replies
// but lose their content.
func BuildForest(flat []model.Comment) []*model.CommentNode {
	nodes := make(map[uint64]*model.CommentNode, len(flat))
	order := make([]*model.CommentNode, 0, len(flat))
	for i := range flat {
		n := toNode(&flat[i])
		nodes[n.ID] = n
		order = append(order, n)
	}

	roots := []*model.CommentNode{}
	for _, n := range order {
		if n.ParentID != nil && *n.ParentID != n.ID {
			if parent, ok := nodes[*n.ParentID]; ok {
				parent.Replies = append(parent.Replies, n)
				continue
			}
		}
		roots = append(roots, n)
	}

	for _, n := range order {
		sortOldestFirst(n.Replies)
	}
	sort.SliceStable(roots, func(i, j int) bool {
		a, b := roots[i], roots[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
	return roots
}

func sortOldestFirst(ns []*model.CommentNode) {
	sort.SliceStable(ns, func(i, j int) bool {
		a, b := ns[i], ns[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

func toNode(c *model.Comment) *model.CommentNode {
	deleted := c.DeletedAt != nil
	n := &model.CommentNode{
		ID:        c.ID,
		PostID:    c.PostID,
		UserID:    c.UserID,
		ParentID:  c.ParentID,
		Content:   c.Content,
		IsDeleted: deleted,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
		User:      c.Author,
		Replies:   []*model.CommentNode{},
	}
	if deleted {
		n.Content = nil
	}
	return n
}
