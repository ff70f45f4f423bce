// Package geo holds great-circle helpers and the duplicate-location guard
// for posts.
package geo

import (
	"context"
	"math"

	"github.com/iliyamo/volunteer-map/internal/apierr"
)

// EarthRadiusKM is the mean Earth radius used by Haversine.
const EarthRadiusKM = 6371.0

// DefaultDupRadiusKM is the default minimum distance between live posts.
const DefaultDupRadiusKM = 0.05

// Point is a coordinate pair in decimal degrees.
type Point struct {
	Lat float64
	Lng float64
}

// Box is a lat/lng bounding rectangle.
type Box struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// Haversine returns the great-circle distance between a and b in kilometres.
func Haversine(a, b Point) float64 {
	dLat := rad(b.Lat - a.Lat)
	dLng := rad(b.Lng - a.Lng)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(rad(a.Lat))*math.Cos(rad(b.Lat))*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKM * math.Asin(math.Min(1, math.Sqrt(h)))
}

// BoundingBox returns a rectangle that contains every point within radiusKM
// of p.  It is only a prefilter; callers still compare exact distances.
// Longitudes may fall outside [-180, 180] near the antimeridian; use
// LngRanges to query them.  A box reaching over a pole spans every longitude.
func BoundingBox(p Point, radiusKM float64) Box {
	dLat := radiusKM / 111.0
	cos := math.Cos(rad(p.Lat))
	dLng := 180.0
	if cos > 1e-6 && p.Lat+dLat < 90 && p.Lat-dLat > -90 {
		dLng = math.Min(180, radiusKM/(111.0*cos))
	}
	return Box{
		MinLat: p.Lat - dLat, MaxLat: p.Lat + dLat,
		MinLng: p.Lng - dLng, MaxLng: p.Lng + dLng,
	}
}

// LngRanges returns the longitude window as ranges inside [-180, 180]: one
// range normally, two when the box crosses the antimeridian.
func (b Box) LngRanges() [][2]float64 {
	switch {
	case b.MaxLng-b.MinLng >= 360:
		return [][2]float64{{-180, 180}}
	case b.MinLng < -180:
		return [][2]float64{{b.MinLng + 360, 180}, {-180, b.MaxLng}}
	case b.MaxLng > 180:
		return [][2]float64{{b.MinLng, 180}, {-180, b.MaxLng - 360}}
	}
	return [][2]float64{{b.MinLng, b.MaxLng}}
}

// Contains reports whether q passes the box prefilter.
func (b Box) Contains(q Point) bool {
	if q.Lat < b.MinLat || q.Lat > b.MaxLat {
		return false
	}
	for _, r := range b.LngRanges() {
		if q.Lng >= r[0] && q.Lng <= r[1] {
			return true
		}
	}
	return false
}

// ValidCoordinates reports whether lat/lng are finite and in range.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

func rad(deg float64) float64 { return deg * math.Pi / 180 }

// LivePost is a PENDING or APPROVED post as seen by the guard.
type LivePost struct {
	ID             uint64
	Title          string
	ApprovalStatus string
	Point
}

// LivePointSource yields the live posts near a point, skipping excludeID when
// it is non-zero.
type LivePointSource interface {
	LivePostsNear(ctx context.Context, p Point, radiusKM float64, excludeID uint64) ([]LivePost, error)
}

// Guard rejects posts placed too close to an existing live post.
type Guard struct {
	Source   LivePointSource
	RadiusKM float64
}

// NewGuard returns a Guard; a non-positive radius selects the default.
func NewGuard(src LivePointSource, radiusKM float64) *Guard {
	if radiusKM <= 0 {
		radiusKM = DefaultDupRadiusKM
	}
	return &Guard{Source: src, RadiusKM: radiusKM}
}

// AssertNoNearbyLivePost fails with BadRequest("duplicate location") when a
// live post other than excludeID lies within the configured radius.  The
// error details name the closest such post.
func (g *Guard) AssertNoNearbyLivePost(ctx context.Context, lat, lng float64, excludeID uint64) error {
	p := Point{Lat: lat, Lng: lng}
	posts, err := g.Source.LivePostsNear(ctx, p, g.RadiusKM, excludeID)
	if err != nil {
		return err
	}
	var (
		hit  *LivePost
		best float64
	)
	for i := range posts {
		d := Haversine(p, posts[i].Point)
		if d <= g.RadiusKM && (hit == nil || d < best) {
			hit, best = &posts[i], d
		}
	}
	if hit == nil {
		return nil
	}
	existing := map[string]any{
		"id":             hit.ID,
		"title":          hit.Title,
		"lat":            hit.Lat,
		"lng":            hit.Lng,
		"approvalStatus": hit.ApprovalStatus,
	}
	return apierr.BadRequest("duplicate location").WithDetails(map[string]any{
		"radiusKm":     g.RadiusKM,
		"distanceKm":   math.Round(best*1000) / 1000,
		"existingPost": existing,
	})
}
