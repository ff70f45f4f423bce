package service

import (
	"context"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/model"
)

var (
	volunteer = &auth.Identity{ID: 2, Role: model.RoleVolunteer}
	stranger  = &auth.Identity{ID: 3, Role: model.RoleVolunteer}
	admin     = &auth.Identity{ID: 9, Role: model.RoleAdmin}
)

func approvedPost() *model.Post {
	return &model.Post{ID: 1, UserID: 1, Status: model.PostOpen, ApprovalStatus: model.ApprovalApproved}
}

func TestCommentCreateAndThread(t *testing.T) {
	store := &memComments{}
	svc := NewCommentService(store)
	ctx := context.Background()
	p := approvedPost()

	root, err := svc.Create(ctx, p, volunteer, "  hello  ", nil)
	require.NoError(t, err)
	assert.Equal(t, "hello", *root.Content)

	_, err = svc.Create(ctx, p, stranger, "reply", &root.ID)
	require.NoError(t, err)

	page, err := svc.List(ctx, p, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	require.Len(t, page.Items, 1)
	require.Len(t, page.Items[0].Replies, 1)
}

func TestCommentCreateRejects(t *testing.T) {
	store := &memComments{}
	svc := NewCommentService(store)
	ctx := context.Background()

	_, err := svc.Create(ctx, approvedPost(), nil, "x", nil)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))

	pending := approvedPost()
	pending.ApprovalStatus = model.ApprovalPending
	_, err = svc.Create(ctx, pending, &auth.Identity{ID: 1}, "x", nil)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))

	_, err = svc.Create(ctx, approvedPost(), volunteer, "   ", nil)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))

	_, err = svc.Create(ctx, approvedPost(), volunteer, strings.Repeat("a", maxCommentLen+1), nil)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))

	_, err = svc.Create(ctx, approvedPost(), volunteer, "x", ptrU(42))
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "invalid parent comment", e.Message)

	// A parent from another post is not accepted either.
	other := approvedPost()
	other.ID = 2
	c, err := svc.Create(ctx, other, volunteer, "elsewhere", nil)
	require.NoError(t, err)
	_, err = svc.Create(ctx, approvedPost(), volunteer, "x", &c.ID)
	assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err))
}

func TestCommentUpdateDeleteOwnership(t *testing.T) {
	store := &memComments{}
	svc := NewCommentService(store)
	ctx := context.Background()
	p := approvedPost()

	c, err := svc.Create(ctx, p, volunteer, "mine", nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, p, stranger, c.ID, "hijack")
	assert.Equal(t, http.StatusForbidden, apierr.StatusOf(err))

	up, err := svc.Update(ctx, p, admin, c.ID, "moderated")
	require.NoError(t, err)
	assert.Equal(t, "moderated", *up.Content)

	require.NoError(t, svc.Delete(ctx, p, volunteer, c.ID))
	_, err = svc.Update(ctx, p, volunteer, c.ID, "again")
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "comment was deleted", e.Message)

	err = svc.Delete(ctx, p, volunteer, 999)
	assert.Equal(t, http.StatusNotFound, apierr.StatusOf(err))

	page, err := svc.List(ctx, p, nil, 0)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.True(t, page.Items[0].IsDeleted)
	assert.Nil(t, page.Items[0].Content)
}
