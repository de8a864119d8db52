// Package auth mints and verifies bearer tokens. A token is valid only if
// it is correctly signed, carries both identity claims, and equals the
// currently stored token for that user, so revocation is one row delete.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/authz"
)

// TokenPair is the result of a successful login.
type TokenPair struct {
	AuthToken    string `json:"auth_token"`
	RefreshToken string `json:"refresh_token"`
}

// Service signs, verifies and stores tokens.
type Service struct {
	db      *sqlx.DB
	secret  []byte
	authTTL time.Duration
}

// NewService builds a token service. authTTL bounds the lifetime of auth
// tokens; refresh tokens do not expire and are only revoked by replacement.
func NewService(db *sqlx.DB, secret string, authTTL time.Duration) *Service {
	return &Service{db: db, secret: []byte(secret), authTTL: authTTL}
}

type authClaims struct {
	UserID  *int64 `json:"user_id"`
	GroupID *int64 `json:"group_id"`
	jwt.RegisteredClaims
}

type refreshClaims struct {
	UserID *int64 `json:"user_id"`
	jwt.RegisteredClaims
}

// Verify implements authz.TokenVerifier. Beyond cryptographic validity it
// requires both the user_id and group_id claims and equality with the
// stored token for that user; any mismatch is a hard failure, not a
// downgrade to the unauthenticated tier.
func (s *Service) Verify(ctx context.Context, token string) (int64, authz.Group, error) {
	claims := &authClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, s.keyFunc)
	if err != nil || !parsed.Valid {
		return 0, 0, apierr.InvalidAuthToken("")
	}
	if claims.UserID == nil || claims.GroupID == nil {
		return 0, 0, apierr.InvalidAuthToken("Token does not have required claims")
	}
	group := authz.Group(*claims.GroupID)
	if group < 0 || group >= authz.NumGroups {
		return 0, 0, apierr.InvalidAuthToken("Unknown permission group")
	}

	var stored string
	err = s.db.GetContext(ctx, &stored, s.db.Rebind("SELECT auth_token FROM auth_tokens WHERE user_id = ?"), *claims.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, apierr.InvalidAuthToken("")
	}
	if err != nil {
		return 0, 0, apierr.Store(fmt.Errorf("lookup stored auth token: %w", err))
	}
	if stored != token {
		return 0, 0, apierr.InvalidAuthToken("")
	}
	return *claims.UserID, group, nil
}

// Issue mints a signed auth/refresh token pair for the user and replaces
// any previously stored pair, revoking earlier sessions.
func (s *Service) Issue(ctx context.Context, userID int64, group authz.Group) (TokenPair, error) {
	now := time.Now()
	groupID := int64(group)

	authTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		UserID:  &userID,
		GroupID: &groupID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.authTTL)),
			Issuer:    "picstore",
		},
	}).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign auth token: %w", err)
	}

	refreshTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims{
		UserID: &userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(now),
			Issuer:   "picstore",
		},
	}).SignedString(s.secret)
	if err != nil {
		return TokenPair{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.replaceToken(ctx, "auth_tokens", "auth_token", userID, authTok); err != nil {
		return TokenPair{}, err
	}
	if err := s.replaceToken(ctx, "refresh_tokens", "refresh_token", userID, refreshTok); err != nil {
		return TokenPair{}, err
	}
	return TokenPair{AuthToken: authTok, RefreshToken: refreshTok}, nil
}

// Refresh verifies a refresh token the same three-step way against the
// refresh_tokens table and mints a fresh auth token for the user's current
// permission group.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (string, error) {
	claims := &refreshClaims{}
	parsed, err := jwt.ParseWithClaims(refreshToken, claims, s.keyFunc)
	if err != nil || !parsed.Valid {
		return "", apierr.InvalidRefreshToken("")
	}
	if claims.UserID == nil {
		return "", apierr.InvalidRefreshToken("Token does not have required claims")
	}
	userID := *claims.UserID

	var stored string
	err = s.db.GetContext(ctx, &stored, s.db.Rebind("SELECT refresh_token FROM refresh_tokens WHERE user_id = ?"), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apierr.InvalidRefreshToken("")
	}
	if err != nil {
		return "", apierr.Store(fmt.Errorf("lookup stored refresh token: %w", err))
	}
	if stored != refreshToken {
		return "", apierr.InvalidRefreshToken("")
	}

	var groupID int64
	err = s.db.GetContext(ctx, &groupID, s.db.Rebind("SELECT permission_group FROM users WHERE id = ?"), userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apierr.InvalidRefreshToken("")
	}
	if err != nil {
		return "", apierr.Store(fmt.Errorf("lookup user group: %w", err))
	}

	now := time.Now()
	authTok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, authClaims{
		UserID:  &userID,
		GroupID: &groupID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.authTTL)),
			Issuer:    "picstore",
		},
	}).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign auth token: %w", err)
	}
	if err := s.replaceToken(ctx, "auth_tokens", "auth_token", userID, authTok); err != nil {
		return "", err
	}
	return authTok, nil
}

// Revoke drops the user's stored tokens, invalidating both the auth and
// refresh token regardless of their cryptographic validity.
func (s *Service) Revoke(ctx context.Context, userID int64) error {
	for _, table := range []string{"auth_tokens", "refresh_tokens"} {
		q := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", table))
		if _, err := s.db.ExecContext(ctx, q, userID); err != nil {
			return apierr.Store(fmt.Errorf("revoke %s: %w", table, err))
		}
	}
	return nil
}

func (s *Service) keyFunc(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return s.secret, nil
}

// replaceToken is delete-then-insert; the delete finding no prior row is
// not an error.
func (s *Service) replaceToken(ctx context.Context, table, column string, userID int64, token string) error {
	del := s.db.Rebind(fmt.Sprintf("DELETE FROM %s WHERE user_id = ?", table))
	if _, err := s.db.ExecContext(ctx, del, userID); err != nil {
		return apierr.Store(fmt.Errorf("replace %s: %w", table, err))
	}
	ins := s.db.Rebind(fmt.Sprintf("INSERT INTO %s (user_id, %s) VALUES (?, ?)", table, column))
	if _, err := s.db.ExecContext(ctx, ins, userID, token); err != nil {
		return apierr.Store(fmt.Errorf("store %s: %w", table, err))
	}
	return nil
}
