package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/volunteer-map/internal/geo"
	"github.com/iliyamo/volunteer-map/internal/model"
)

// PostFilter narrows post listings.  Zero values mean "no filter".
type PostFilter struct {
	Q              string
	Status         string
	ApprovalStatus string
	Tag            string
	UserID         uint64
	Near           *Near
	Limit          int
	Offset         int
}

// Near restricts a listing to posts within RadiusKM of a point and makes the
// repository fill in Post.DistanceKM.
type Near struct {
	Point    geo.Point
	RadiusKM float64
}

// PostRepo encapsulates all database queries related to posts.  Soft-deleted
// rows are invisible to every method.
type PostRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewPostRepo(db *sql.DB) *PostRepo { return &PostRepo{db: db, now: time.Now} }

const postSelect = `SELECT p.id, p.user_id, p.title, p.description, p.address, p.lat, p.lng, p.need_tags,
  p.status, p.approval_status, p.approved_by, p.approved_at, p.rejected_reason,
  p.contact_name, p.contact_phone, p.created_at, p.updated_at,
  u.id, u.email, u.name, u.avatar_url`

const postFrom = ` FROM posts p JOIN users u ON u.id = p.user_id`

// haversineSQL computes the distance in km between p and (?, ?, ?) bound as
// lat, lat, lng.
const haversineSQL = `(6371 * 2 * ASIN(LEAST(1, SQRT(POWER(SIN(RADIANS(p.lat - ?) / 2), 2) +
  COS(RADIANS(?)) * COS(RADIANS(p.lat)) * POWER(SIN(RADIANS(p.lng - ?) / 2), 2)))))`

// Create inserts p.  On success ID and timestamps are populated.
func (r *PostRepo) Create(ctx context.Context, p *model.Post) error {
	tags, err := encodeTags(p.NeedTags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO posts (user_id, title, description, address, lat, lng, need_tags, status, approval_status, contact_name, contact_phone)
VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		p.UserID, p.Title, p.Description, p.Address, p.Lat, p.Lng, tags, p.Status, p.ApprovalStatus, p.ContactName, p.ContactPhone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	created, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*p = *created
	return nil
}

// GetByID fetches a post with its author.
func (r *PostRepo) GetByID(ctx context.Context, id uint64) (*model.Post, error) {
	row := r.db.QueryRowContext(ctx, postSelect+postFrom+" WHERE p.id = ? AND p.deleted_at IS NULL", id)
	p, err := scanPost(row, false)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

// Update writes the editable fields of p and its approval state.
func (r *PostRepo) Update(ctx context.Context, p *model.Post) error {
	tags, err := encodeTags(p.NeedTags)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE posts SET title=?, description=?, address=?, lat=?, lng=?, need_tags=?, status=?,
  approval_status=?, approved_by=?, approved_at=?, rejected_reason=?, contact_name=?, contact_phone=?
WHERE id=? AND deleted_at IS NULL`,
		p.Title, p.Description, p.Address, p.Lat, p.Lng, tags, p.Status,
		p.ApprovalStatus, p.ApprovedBy, p.ApprovedAt, p.RejectedReason, p.ContactName, p.ContactPhone, p.ID)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, p.ID)
}

// SoftDelete hides a post by setting deleted_at.
func (r *PostRepo) SoftDelete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE posts SET deleted_at=? WHERE id=? AND deleted_at IS NULL", r.now().UTC(), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetApproval moves a post to APPROVED or REJECTED on behalf of adminID.
// approvedAt is only set on approval and reason only on rejection.
func (r *PostRepo) SetApproval(ctx context.Context, id uint64, status string, adminID uint64, reason *string) error {
	var approvedAt *time.Time
	if status == model.ApprovalApproved {
		now := r.now().UTC()
		approvedAt = &now
		reason = nil
	}
	res, err := r.db.ExecContext(ctx,
		"UPDATE posts SET approval_status=?, approved_by=?, approved_at=?, rejected_reason=? WHERE id=? AND deleted_at IS NULL",
		status, adminID, approvedAt, reason, id)
	if err != nil {
		return err
	}
	return r.requireRow(ctx, res, id)
}

// requireRow distinguishes "no such row" from "row unchanged", which MySQL
// both report as zero affected rows.
func (r *PostRepo) requireRow(ctx context.Context, res sql.Result, id uint64) error {
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM posts WHERE id=? AND deleted_at IS NULL", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

// LivePostsNear implements geo.LivePointSource using a bounding-box query.
func (r *PostRepo) LivePostsNear(ctx context.Context, p geo.Point, radiusKM float64, excludeID uint64) ([]geo.LivePost, error) {
	b := geo.BoundingBox(p, radiusKM)
	lngSQL, lngArgs := lngBetween("lng", b)
	q := `SELECT id, title, approval_status, lat, lng FROM posts
WHERE deleted_at IS NULL AND approval_status IN ('PENDING','APPROVED')
  AND lat BETWEEN ? AND ? AND ` + lngSQL
	args := append([]any{b.MinLat, b.MaxLat}, lngArgs...)
	if excludeID != 0 {
		q += " AND id <> ?"
		args = append(args, excludeID)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []geo.LivePost
	for rows.Next() {
		var lp geo.LivePost
		if err := rows.Scan(&lp.ID, &lp.Title, &lp.ApprovalStatus, &lp.Lat, &lp.Lng); err != nil {
			return nil, err
		}
		out = append(out, lp)
	}
	return out, rows.Err()
}

// lngBetween renders the longitude part of a bounding-box filter.  A box
// crossing the antimeridian becomes two ORed ranges.
func lngBetween(col string, b geo.Box) (string, []any) {
	var (
		parts []string
		args  []any
	)
	for _, rg := range b.LngRanges() {
		parts = append(parts, col+" BETWEEN ? AND ?")
		args = append(args, rg[0], rg[1])
	}
	if len(parts) == 1 {
		return parts[0], args
	}
	return "(" + strings.Join(parts, " OR ") + ")", args
}

// List returns one page of posts matching f, newest first (nearest first when
// f.Near is set), plus the total number of matches.
func (r *PostRepo) List(ctx context.Context, f PostFilter) ([]model.Post, int64, error) {
	where := []string{"p.deleted_at IS NULL"}
	var args []any

	if f.ApprovalStatus != "" {
		where = append(where, "p.approval_status = ?")
		args = append(args, f.ApprovalStatus)
	}
	if f.Status != "" {
		where = append(where, "p.status = ?")
		args = append(args, f.Status)
	}
	if f.UserID != 0 {
		where = append(where, "p.user_id = ?")
		args = append(args, f.UserID)
	}
	if q := strings.ToLower(strings.TrimSpace(f.Q)); q != "" {
		like := "%" + escapeLike(q) + "%"
		where = append(where, "(LOWER(p.title) LIKE ? OR LOWER(p.address) LIKE ? OR LOWER(p.description) LIKE ?)")
		args = append(args, like, like, like)
	}
	if f.Tag != "" {
		where = append(where, "JSON_CONTAINS(p.need_tags, JSON_QUOTE(?))")
		args = append(args, f.Tag)
	}

	var distArgs []any
	if f.Near != nil {
		b := geo.BoundingBox(f.Near.Point, f.Near.RadiusKM)
		lngSQL, lngArgs := lngBetween("p.lng", b)
		distArgs = []any{f.Near.Point.Lat, f.Near.Point.Lat, f.Near.Point.Lng}
		where = append(where, "p.lat BETWEEN ? AND ? AND "+lngSQL, haversineSQL+" <= ?")
		args = append(args, b.MinLat, b.MaxLat)
		args = append(args, lngArgs...)
		args = append(args, distArgs...)
		args = append(args, f.Near.RadiusKM)
	}
	whereSQL := " WHERE " + strings.Join(where, " AND ")

	var total int64
	if err := r.db.QueryRowContext(ctx, "SELECT COUNT(*)"+postFrom+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sel := postSelect
	order := " ORDER BY p.created_at DESC, p.id DESC"
	var qArgs []any
	if f.Near != nil {
		sel += ", " + haversineSQL + " AS distance_km"
		qArgs = append(qArgs, distArgs...)
		order = " ORDER BY distance_km ASC, p.created_at DESC"
	}
	qArgs = append(qArgs, args...)
	limit := f.Limit
	if limit <= 0 {
		limit = 20
	}
	qArgs = append(qArgs, limit, f.Offset)

	rows, err := r.db.QueryContext(ctx, sel+postFrom+whereSQL+order+" LIMIT ? OFFSET ?", qArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	posts := []model.Post{}
	for rows.Next() {
		p, err := scanPost(rows, f.Near != nil)
		if err != nil {
			return nil, 0, err
		}
		posts = append(posts, *p)
	}
	return posts, total, rows.Err()
}

// Stats counts non-deleted posts per state.
func (r *PostRepo) Stats(ctx context.Context) (model.PostStats, error) {
	var s model.PostStats
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*),
  COALESCE(SUM(approval_status='PENDING'),0), COALESCE(SUM(approval_status='APPROVED'),0),
  COALESCE(SUM(approval_status='REJECTED'),0), COALESCE(SUM(status='OPEN'),0), COALESCE(SUM(status='CLOSED'),0)
FROM posts WHERE deleted_at IS NULL`).Scan(&s.Total, &s.Pending, &s.Approved, &s.Rejected, &s.Open, &s.Closed)
	return s, err
}

func scanPost(s rowScanner, withDistance bool) (*model.Post, error) {
	var (
		p                                 model.Post
		a                                 model.UserBrief
		desc, addr, reason, cName, cPhone sql.NullString
		aName, aAvatar                    sql.NullString
		tags                              []byte
		approvedBy                        sql.NullInt64
		approvedAt                        sql.NullTime
		distance                          sql.NullFloat64
	)
	dest := []any{&p.ID, &p.UserID, &p.Title, &desc, &addr, &p.Lat, &p.Lng, &tags,
		&p.Status, &p.ApprovalStatus, &approvedBy, &approvedAt, &reason,
		&cName, &cPhone, &p.CreatedAt, &p.UpdatedAt,
		&a.ID, &a.Email, &aName, &aAvatar}
	if withDistance {
		dest = append(dest, &distance)
	}
	if err := s.Scan(dest...); err != nil {
		return nil, err
	}
	p.Description = nullString(desc)
	p.Address = nullString(addr)
	p.RejectedReason = nullString(reason)
	p.ContactName = nullString(cName)
	p.ContactPhone = nullString(cPhone)
	if approvedBy.Valid {
		v := uint64(approvedBy.Int64)
		p.ApprovedBy = &v
	}
	if approvedAt.Valid {
		p.ApprovedAt = &approvedAt.Time
	}
	if distance.Valid {
		d := distance.Float64
		p.DistanceKM = &d
	}
	a.Name = nullString(aName)
	a.AvatarURL = nullString(aAvatar)
	p.Author = &a

	p.NeedTags = []string{}
	if len(tags) > 0 {
		if err := json.Unmarshal(tags, &p.NeedTags); err != nil {
			return nil, err
		}
	}
	return &p, nil
}

func encodeTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	return string(b), err
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
