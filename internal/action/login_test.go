package action

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"

	"github.com/picstore/picstore/internal/auth"
	"github.com/picstore/picstore/internal/authz"
	"github.com/picstore/picstore/internal/record"
)

func credentials(t *testing.T, username, password string) *record.Record {
	t.Helper()
	creds := record.Credentials.New()
	if username != "" {
		creds.Set("username", username)
	}
	if password != "" {
		creds.Set("password", password)
	}
	return creds
}

func newLoginFixture(t *testing.T) (*Actions, *auth.Service, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlite")
	tokens := auth.NewService(db, "test-secret", time.Hour)
	return New(db, tokens, authz.NewMatrixLoader(db, 0)), tokens, mock
}

func TestLoginMissingCredentials(t *testing.T) {
	actions, tokens, _ := newLoginFixture(t)
	ctx := context.Background()

	_, err := actions.Login(ctx, tokens, credentials(t, "alice", ""))
	assertAPIError(t, err, "InvalidParamsError")

	_, err = actions.Login(ctx, tokens, credentials(t, "", "Passw0rd"))
	assertAPIError(t, err, "InvalidParamsError")
}

func TestLoginUnknownUser(t *testing.T) {
	actions, tokens, mock := newLoginFixture(t)
	mock.ExpectQuery("SELECT id, password, permission_group FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password", "permission_group"}))

	_, err := actions.Login(context.Background(), tokens, credentials(t, "ghost", "Passw0rd"))
	assertAPIError(t, err, "InvalidParamsError")
}

func TestLoginWrongPassword(t *testing.T) {
	actions, tokens, mock := newLoginFixture(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("Passw0rd"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT id, password, permission_group FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password", "permission_group"}).
			AddRow(int64(1), string(hash), int64(authz.GroupUser)))

	_, err := actions.Login(context.Background(), tokens, credentials(t, "alice", "WrongPass1"))
	assertAPIError(t, err, "InvalidParamsError")
}

func TestLoginIssuesTokenPair(t *testing.T) {
	actions, tokens, mock := newLoginFixture(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("Passw0rd"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT id, password, permission_group FROM users").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password", "permission_group"}).
			AddRow(int64(1), string(hash), int64(authz.GroupUser)))
	mock.ExpectExec("DELETE FROM auth_tokens").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO auth_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	pair, err := actions.Login(context.Background(), tokens, credentials(t, "alice", "Passw0rd"))
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if pair.AuthToken == "" || pair.RefreshToken == "" {
		t.Error("Login returned an empty token pair")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestHashPassword(t *testing.T) {
	actions, _, _ := newLoginFixture(t)

	rec := record.Users.New()
	rec.Set("password", "Passw0rd")
	if err := actions.HashPassword(rec); err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	hashed, _ := rec.Get("password")
	if hashed == "Passw0rd" {
		t.Fatal("password was not hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hashed.(string)), []byte("Passw0rd")); err != nil {
		t.Errorf("stored hash does not match the original password: %v", err)
	}

	// A record without a password is a no-op.
	if err := actions.HashPassword(record.Users.New()); err != nil {
		t.Errorf("HashPassword on unset field: %v", err)
	}
}
