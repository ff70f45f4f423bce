package service

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/iliyamo/volunteer-map/internal/apierr"
	"github.com/iliyamo/volunteer-map/internal/auth"
	"github.com/iliyamo/volunteer-map/internal/logger"
	"github.com/iliyamo/volunteer-map/internal/model"
	"github.com/iliyamo/volunteer-map/internal/repository"
	"github.com/iliyamo/volunteer-map/internal/utils"
)

// Refresh failure messages.
const (
	MsgMissingRefresh   = "missing refresh token"
	MsgInvalidRefresh   = "invalid refresh token"
	MsgWrongTokenType   = "invalid refresh token type"
	MsgInvalidSubject   = "invalid token subject"
	MsgRefreshNotActive = "refresh token revoked/expired"
	MsgRefreshMismatch  = "refresh token mismatch"
)

// SessionUserStore is the credential store as seen by the session service.
type SessionUserStore interface {
	Create(ctx context.Context, u *model.User) error
	GetByID(ctx context.Context, id uint64) (*model.User, error)
}

// TokenLedger persists refresh token hashes.
type TokenLedger interface {
	Issue(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	FindActive(ctx context.Context, tokenHash string) (*model.RefreshToken, error)
	Rotate(ctx context.Context, consumedID, userID uint64, newHash string, exp time.Time) error
	RevokeByHash(ctx context.Context, tokenHash string) error
}

// Session is the result of login and refresh.  RefreshToken goes into the
// cookie, everything else into the response body.
type Session struct {
	AccessToken    string
	RefreshToken   string
	RefreshExpires time.Time
	User           model.PublicUser
}

// RegisterInput is the body of POST /auth/register.
type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// SessionService implements register, login, refresh and logout.
type SessionService struct {
	Users      SessionUserStore
	Ledger     TokenLedger
	Codec      *utils.TokenCodec
	BcryptCost int
	Logger     *zap.Logger
}

// NewSessionService wires a session service.
func NewSessionService(users SessionUserStore, ledger TokenLedger, codec *utils.TokenCodec, bcryptCost int, log *zap.Logger) *SessionService {
	return &SessionService{Users: users, Ledger: ledger, Codec: codec, BcryptCost: bcryptCost, Logger: loggerOrNop(log)}
}

// Register creates a local VOLUNTEER account.
func (s *SessionService) Register(ctx context.Context, in RegisterInput) (model.PublicUser, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || in.Password == "" {
		return model.PublicUser{}, apierr.BadRequest("email and password are required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return model.PublicUser{}, apierr.BadRequest("invalid email")
	}
	if len(in.Password) < utils.MinPasswordLength {
		return model.PublicUser{}, apierr.BadRequest("password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(in.Password, s.BcryptCost)
	if err != nil {
		return model.PublicUser{}, err
	}
	u := &model.User{
		Email:        email,
		PasswordHash: &hash,
		Role:         model.RoleVolunteer,
		Provider:     model.ProviderLocal,
	}
	if name := strings.TrimSpace(in.Name); name != "" {
		u.Name = &name
	}
	if err := s.Users.Create(ctx, u); err != nil {
		if errors.Is(err, repository.ErrEmailExists) {
			return model.PublicUser{}, apierr.BadRequest("email already exists")
		}
		return model.PublicUser{}, err
	}
	s.Logger.Info("user registered", zap.Uint64("user_id", u.ID), zap.String("email", logger.MaskEmail(email)))
	return u.Public(), nil
}

// Login issues an access/refresh pair for a resolved identity and records
// the refresh token in the ledger.
func (s *SessionService) Login(ctx context.Context, id *auth.Identity) (*Session, error) {
	if id == nil {
		return nil, apierr.Unauthorized("Unauthorized")
	}
	sess, err := s.sign(id)
	if err != nil {
		return nil, err
	}
	if err := s.Ledger.Issue(ctx, id.ID, utils.HashToken(sess.RefreshToken), sess.RefreshExpires); err != nil {
		return nil, err
	}
	s.Logger.Info("login", zap.Uint64("user_id", id.ID), zap.String("provider", id.Provider))
	return sess, nil
}

// Refresh exchanges a refresh token for a new pair.  The consumed token is
// revoked and its replacement recorded in the same transaction, so a
// replayed token always fails.
func (s *SessionService) Refresh(ctx context.Context, raw string) (*Session, error) {
	if raw == "" {
		return nil, apierr.Unauthorized(MsgMissingRefresh)
	}
	claims, err := s.Codec.VerifyRefresh(raw)
	if err != nil {
		return nil, apierr.Unauthorized(MsgInvalidRefresh)
	}
	if claims.Type != utils.TokenTypeRefresh {
		return nil, apierr.Unauthorized(MsgWrongTokenType)
	}
	userID, ok := claims.UserID()
	if !ok {
		return nil, apierr.Unauthorized(MsgInvalidSubject)
	}

	rec, err := s.Ledger.FindActive(ctx, utils.HashToken(raw))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.Unauthorized(MsgRefreshNotActive)
	}
	if err != nil {
		return nil, err
	}
	if rec.UserID != userID {
		s.Logger.Warn("refresh token subject mismatch", zap.Uint64("token_user_id", userID), zap.Uint64("ledger_user_id", rec.UserID))
		return nil, apierr.Unauthorized(MsgRefreshMismatch)
	}

	// Re-read the user so role changes since issuance apply.
	u, err := s.Users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apierr.Unauthorized("user not found")
	}
	if err != nil {
		return nil, err
	}
	sess, err := s.sign(auth.FromUser(u))
	if err != nil {
		return nil, err
	}
	err = s.Ledger.Rotate(ctx, rec.ID, u.ID, utils.HashToken(sess.RefreshToken), sess.RefreshExpires)
	if errors.Is(err, repository.ErrTokenNotActive) {
		return nil, apierr.Unauthorized(MsgRefreshNotActive)
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout revokes the refresh token if there is one.  It never fails the
// caller: an unknown or already revoked token is simply ignored.
func (s *SessionService) Logout(ctx context.Context, raw string) {
	if raw == "" {
		return
	}
	if err := s.Ledger.RevokeByHash(ctx, utils.HashToken(raw)); err != nil {
		s.Logger.Warn("logout revoke failed", zap.Error(err))
	}
}

// Me re-reads the caller's profile.
func (s *SessionService) Me(ctx context.Context, id *auth.Identity) (model.PublicUser, error) {
	if id == nil {
		return model.PublicUser{}, apierr.Unauthorized("Unauthorized")
	}
	return id.Public(), nil
}

func (s *SessionService) sign(id *auth.Identity) (*Session, error) {
	access, err := s.Codec.SignAccess(id.Subject())
	if err != nil {
		return nil, err
	}
	refresh, err := s.Codec.SignRefresh(id.Subject())
	if err != nil {
		return nil, err
	}
	return &Session{
		AccessToken:    access.Token,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
		User:           id.Public(),
	}, nil
}
