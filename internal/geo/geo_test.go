package geo

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/volunteer-map/internal/apierr"
)

type fakeSource struct {
	points    []LivePost
	excluded  uint64
	err       error
	radiusArg float64
}

func (f *fakeSource) LivePostsNear(_ context.Context, _ Point, radiusKM float64, excludeID uint64) ([]LivePost, error) {
	f.excluded = excludeID
	f.radiusArg = radiusKM
	return f.points, f.err
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0, Haversine(Point{10, 106}, Point{10, 106}), 1e-9)
	// one degree of latitude is ~111.19 km
	assert.InDelta(t, 111.19, Haversine(Point{0, 0}, Point{1, 0}), 0.01)
	assert.InDelta(t, 0.0468, Haversine(Point{10, 106}, Point{10.0003, 106.0003}), 0.001)
}

func TestGuardRejectsNearbyPost(t *testing.T) {
	src := &fakeSource{points: []LivePost{
		{ID: 3, Title: "Far", ApprovalStatus: "APPROVED", Point: Point{Lat: 10.0008, Lng: 106.0008}},
		{ID: 4, Title: "Food bank", ApprovalStatus: "PENDING", Point: Point{Lat: 10, Lng: 106}},
	}}
	g := NewGuard(src, 0)

	err := g.AssertNoNearbyLivePost(context.Background(), 10.0003, 106.0003, 0)
	require.Error(t, err)
	ae, ok := apierr.As(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "duplicate location", ae.Message)
	assert.Equal(t, DefaultDupRadiusKM, src.radiusArg)

	details, ok := ae.Details.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, DefaultDupRadiusKM, details["radiusKm"])
	existing, ok := details["existingPost"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, uint64(4), existing["id"])
	assert.Equal(t, "Food bank", existing["title"])
	assert.Equal(t, "PENDING", existing["approvalStatus"])
	assert.Equal(t, 10.0, existing["lat"])
	assert.Equal(t, 106.0, existing["lng"])
}

func TestGuardAllowsDistantPost(t *testing.T) {
	src := &fakeSource{points: []LivePost{{ID: 1, Point: Point{Lat: 10, Lng: 106}}}}
	g := NewGuard(src, 0.05)
	assert.NoError(t, g.AssertNoNearbyLivePost(context.Background(), 10.001, 106.001, 0))
}

func TestGuardPassesExclusion(t *testing.T) {
	src := &fakeSource{}
	g := NewGuard(src, 0.05)
	require.NoError(t, g.AssertNoNearbyLivePost(context.Background(), 10, 106, 9))
	assert.Equal(t, uint64(9), src.excluded)
}

func TestGuardPropagatesStoreError(t *testing.T) {
	boom := errors.New("db down")
	g := NewGuard(&fakeSource{err: boom}, 0.05)
	assert.ErrorIs(t, g.AssertNoNearbyLivePost(context.Background(), 10, 106, 0), boom)
}

func TestBoundingBoxContainsRadius(t *testing.T) {
	p := Point{Lat: 10, Lng: 106}
	b := BoundingBox(p, 0.05)
	q := Point{Lat: 10.0003, Lng: 106.0003}
	assert.True(t, q.Lat >= b.MinLat && q.Lat <= b.MaxLat)
	assert.True(t, q.Lng >= b.MinLng && q.Lng <= b.MaxLng)
}

func TestBoundingBoxAcrossAntimeridian(t *testing.T) {
	east := Point{Lat: 0, Lng: 179.9999}
	west := Point{Lat: 0, Lng: -179.9999}
	require.Less(t, Haversine(east, west), 0.05)

	b := BoundingBox(east, 0.05)
	assert.True(t, b.Contains(west))
	assert.True(t, b.Contains(east))
	ranges := b.LngRanges()
	require.Len(t, ranges, 2)
	assert.Equal(t, 180.0, ranges[0][1])
	assert.Equal(t, -180.0, ranges[1][0])
	assert.InDelta(t, -179.99965, ranges[1][1], 1e-6)

	b = BoundingBox(west, 0.05)
	assert.True(t, b.Contains(east))
	require.Len(t, b.LngRanges(), 2)
	assert.InDelta(t, 179.99965, b.LngRanges()[0][0], 1e-6)
}

func TestBoundingBoxSingleRange(t *testing.T) {
	b := BoundingBox(Point{Lat: 10, Lng: 106}, 0.05)
	require.Len(t, b.LngRanges(), 1)
	assert.False(t, b.Contains(Point{Lat: 10, Lng: -106}))
}

func TestBoundingBoxOverPole(t *testing.T) {
	b := BoundingBox(Point{Lat: 89.99995, Lng: 10}, 0.05)
	assert.Equal(t, [][2]float64{{-180, 180}}, b.LngRanges())
	assert.True(t, b.Contains(Point{Lat: 89.99995, Lng: -170}))
}

func TestValidCoordinates(t *testing.T) {
	assert.True(t, ValidCoordinates(10, 106))
	assert.False(t, ValidCoordinates(91, 0))
	assert.False(t, ValidCoordinates(0, -181))
}
