package model

import "time"

// Role values stored in users.role.
const (
	RoleAdmin     = "ADMIN"
	RoleVolunteer = "VOLUNTEER"
)

// Provider values stored in users.provider.  They record which sign-in
// methods are attached to an account.
const (
	ProviderLocal       = "LOCAL"
	ProviderGoogle      = "GOOGLE"
	ProviderLocalGoogle = "LOCAL+GOOGLE"
)

// User represents a row of the `users` table.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, stored lower-cased.
//  Name         – optional display name; also accepted as a login.
//  PasswordHash – bcrypt hash; nil for Google-only accounts.
//  Role         – ADMIN or VOLUNTEER.
//  Provider     – LOCAL, GOOGLE or LOCAL+GOOGLE.
//  GoogleID     – unique Google subject, nil until linked.
//  AvatarURL    – optional profile picture.
type User struct {
	ID           uint64
	Email        string
	Name         *string
	PasswordHash *string
	Role         string
	Provider     string
	GoogleID     *string
	AvatarURL    *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the local strategy may authenticate this user.
func (u *User) HasPassword() bool { return u.PasswordHash != nil && *u.PasswordHash != "" }

// RefreshToken models an entry in the `refresh_tokens` table.  The raw token
// is never stored, only its SHA-256 hex digest.  Rows are never deleted; a
// row is active while RevokedAt is nil and ExpiresAt lies in the future.
type RefreshToken struct {
	ID        uint64     // refresh_tokens.id
	UserID    uint64     // refresh_tokens.user_id
	TokenHash string     // refresh_tokens.token_hash
	ExpiresAt time.Time  // refresh_tokens.expires_at
	RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
	CreatedAt time.Time  // refresh_tokens.created_at
}

// Active reports whether the record may still be exchanged at now.
func (t *RefreshToken) Active(now time.Time) bool {
	return t.RevokedAt == nil && t.ExpiresAt.After(now)
}

// PublicUser is the user shape returned to clients.
type PublicUser struct {
	ID        uint64  `json:"id"`
	Email     string  `json:"email"`
	Name      *string `json:"name"`
	Role      string  `json:"role"`
	AvatarURL *string `json:"avatarUrl"`
	Provider  string  `json:"provider,omitempty"`
}

// Public strips credentials from u.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		Name:      u.Name,
		Role:      u.Role,
		AvatarURL: u.AvatarURL,
		Provider:  u.Provider,
	}
}

// UserBrief is the author block embedded in posts, comments and commits.
type UserBrief struct {
	ID        uint64  `json:"id"`
	Email     string  `json:"email,omitempty"`
	Name      *string `json:"name"`
	AvatarURL *string `json:"avatarUrl,omitempty"`
}
