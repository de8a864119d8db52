package action

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/auth"
	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
)

// HashPassword replaces the record's plaintext password field with its
// bcrypt hash. Call it after validation, which checks the plaintext shape.
func (a *Actions) HashPassword(rec *record.Record) error {
	password, ok := rec.Get("password")
	if !ok {
		return nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password.(string)), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return rec.Set("password", string(hash))
}

// Login authenticates a credentials record against the users table and
// mints a fresh token pair, replacing any previously stored pair for that
// user. Passwords are verified against stored bcrypt hashes; the lookup
// failure and the password mismatch are indistinguishable to the caller.
func (a *Actions) Login(ctx context.Context, tokens *auth.Service, creds *record.Record) (auth.TokenPair, error) {
	username, haveUser := creds.Get("username")
	password, havePass := creds.Get("password")
	if !haveUser || !havePass {
		return auth.TokenPair{}, apierr.InvalidParams("Username or password missing")
	}

	var row struct {
		ID       int64  `db:"id"`
		Password string `db:"password"`
		Group    int64  `db:"permission_group"`
	}
	q := a.db.Rebind("SELECT id, password, permission_group FROM users WHERE username = ?")
	err := a.db.GetContext(ctx, &row, q, username)
	if errors.Is(err, sql.ErrNoRows) {
		return auth.TokenPair{}, apierr.InvalidParams("Invalid username or password")
	}
	if err != nil {
		return auth.TokenPair{}, apierr.Store(fmt.Errorf("lookup user: %w", err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(row.Password), []byte(password.(string))); err != nil {
		return auth.TokenPair{}, apierr.InvalidParams("Invalid username or password")
	}

	return tokens.Issue(ctx, row.ID, authz.Group(row.Group))
}
