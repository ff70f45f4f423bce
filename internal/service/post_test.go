package service

import (
	"context"
	"math"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/geo"
	"github.com/iliyamo/volunteer-map/internal/model"
)

func f64(v float64) *float64 { return &v }

func newPostFixture() (*PostService, *memPosts) {
	posts := newMemPosts()
	return NewPostService(posts, geo.NewGuard(posts, 0.05), nil), posts
}

func TestPostCreateDefaults(t *testing.T) {
	svc, _ := newPostFixture()
	v, err := svc.Create(context.Background(), 7, PostInput{
		Title:        ptrS("  Flood relief  "),
		Lat:          f64(10),
		Lng:          f64(106),
		NeedTags:     []string{"food, water", " ", "medicine"},
		ContactPhone: ptrS("0901 234 567"),
	})
	require.NoError(t, err)
	assert.Equal(t, "Flood relief", v.Title)
	assert.Equal(t, model.ApprovalPending, v.ApprovalStatus)
	assert.Equal(t, model.PostOpen, v.Status)
	assert.Equal(t, []string{"food", "water", "medicine"}, v.NeedTags)
	require.NotNil(t, v.ContactPhone)
	assert.Equal(t, "0901234567", *v.ContactPhone)
}

func TestPostCreateValidation(t *testing.T) {
	svc, _ := newPostFixture()
	ctx := context.Background()
	cases := map[string]PostInput{
		"no title":  {Lat: f64(10), Lng: f64(106)},
		"no coords": {Title: ptrS("x")},
		"range":     {Title: ptrS("x"), Lat: f64(91), Lng: f64(106)},
		"phone":     {Title: ptrS("x"), Lat: f64(10), Lng: f64(106), ContactPhone: ptrS("12345")},
	}
	for name, in := range cases {
		_, err := svc.Create(ctx, 1, in)
		assert.Equal(t, http.StatusBadRequest, apierr.StatusOf(err), name)
	}
}

func TestPostCreateDuplicateLocation(t *testing.T) {
	svc, posts := newPostFixture()
	posts.put(model.Post{UserID: 1, Title: "a", Lat: 10, Lng: 106, ApprovalStatus: model.ApprovalApproved})

	_, err := svc.Create(context.Background(), 2, PostInput{Title: ptrS("b"), Lat: f64(10.0003), Lng: f64(106.0003)})
	e, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, "duplicate location", e.Message)
	details, ok := e.Details.(map[string]any)
	require.True(t, ok)
	existing, ok := details["existingPost"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(1), existing["id"])
	assert.Equal(t, "a", existing["title"])

	// Rejected posts are not live.
	posts.posts[1].ApprovalStatus = model.ApprovalRejected
	_, err = svc.Create(context.Background(), 2, PostInput{Title: ptrS("b"), Lat: f64(10.0003), Lng: f64(106.0003)})
	assert.NoError(t, err)
}

func TestPostUpdateResetsApprovalAndSkipsSelf(t *testing.T) {
	svc, posts := newPostFixture()
	p := posts.put(model.Post{UserID: 1, Title: "a", Lat: 10, Lng: 106, ApprovalStatus: model.ApprovalApproved})

	v, err := svc.Update(context.Background(), p, PostInput{Lat: f64(10.0001), Status: ptrS("closed")})
	require.NoError(t, err)
	assert.Equal(t, model.ApprovalPending, v.ApprovalStatus)
	assert.Equal(t, model.PostClosed, v.Status)
	assert.Equal(t, "a", v.Title)
	assert.Equal(t, model.ApprovalPending, posts.posts[p.ID].ApprovalStatus)
}

func TestPostReadability(t *testing.T) {
	svc, posts := newPostFixture()
	p := posts.put(model.Post{UserID: 1, Title: "a", ApprovalStatus: model.ApprovalPending, ContactName: ptrS("Ann")})

	_, err := svc.Get(p, nil)
	assert.Equal(t, http.StatusUnauthorized, apierr.StatusOf(err))
	_, err = svc.Get(p, &auth.Identity{ID: 2, Role: model.RoleVolunteer})
	assert.Equal(t, http.StatusForbidden, apierr.StatusOf(err))
	v, err := svc.Get(p, &auth.Identity{ID: 1, Role: model.RoleVolunteer})
	require.NoError(t, err)
	assert.Equal(t, "Ann", *v.ContactName)

	p.ApprovalStatus = model.ApprovalApproved
	v, err = svc.Get(p, nil)
	require.NoError(t, err)
	assert.Nil(t, v.ContactName)
}

func TestListPublicNormalizesQuery(t *testing.T) {
	svc, posts := newPostFixture()
	posts.put(model.Post{UserID: 1, Title: "a", ApprovalStatus: model.ApprovalApproved})
	posts.put(model.Post{UserID: 1, Title: "b", ApprovalStatus: model.ApprovalPending})

	page, err := svc.ListPublic(context.Background(), PublicQuery{Status: "bogus", Page: 0, Limit: 500, Lat: f64(10), Lng: f64(106), RadiusKM: f64(math.NaN())})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, maxPageLen, page.Limit)
	assert.Equal(t, "", posts.filter.Status)
	assert.Equal(t, model.ApprovalApproved, posts.filter.ApprovalStatus)
	require.NotNil(t, posts.filter.Near)
	assert.Equal(t, float64(defaultNearKM), posts.filter.Near.RadiusKM)

	_, err = svc.ListPublic(context.Background(), PublicQuery{Page: 3, Limit: 10, Lat: f64(10), Lng: f64(106), RadiusKM: f64(500)})
	require.NoError(t, err)
	assert.Equal(t, 20, posts.filter.Offset)
	assert.Equal(t, float64(maxNearKM), posts.filter.Near.RadiusKM)
}

func TestPostDeleteMissing(t *testing.T) {
	svc, _ := newPostFixture()
	err := svc.Delete(context.Background(), &model.Post{ID: 99})
	assert.Equal(t, http.StatusNotFound, apierr.StatusOf(err))
}
