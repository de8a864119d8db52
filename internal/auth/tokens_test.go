package auth

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"

	"github.com/picstore/picstore/internal/apierr"
	"github.com/picstore/picstore/internal/authz"
)

const testSecret = "test-secret"

func newTestService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { mockDB.Close() })
	db := sqlx.NewDb(mockDB, "sqlite")
	return NewService(db, testSecret, time.Hour), mock
}

// signToken builds a token the way the service does, for verification tests.
func signToken(t *testing.T, secret string, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign test token: %v", err)
	}
	return token
}

func authTokenClaims(userID, groupID int64, exp time.Time) jwt.MapClaims {
	return jwt.MapClaims{
		"user_id":  userID,
		"group_id": groupID,
		"iat":      time.Now().Unix(),
		"exp":      exp.Unix(),
		"iss":      "picstore",
	}
}

func expectStoredAuthToken(mock sqlmock.Sqlmock, token string) {
	mock.ExpectQuery("SELECT auth_token FROM auth_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"auth_token"}).AddRow(token))
}

func TestVerifyAcceptsStoredToken(t *testing.T) {
	svc, mock := newTestService(t)
	token := signToken(t, testSecret, authTokenClaims(7, int64(authz.GroupUser), time.Now().Add(time.Hour)))
	expectStoredAuthToken(mock, token)

	userID, group, err := svc.Verify(context.Background(), token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if userID != 7 {
		t.Errorf("userID = %d, want 7", userID)
	}
	if group != authz.GroupUser {
		t.Errorf("group = %v, want user", group)
	}
}

func TestVerifyRejectsReplacedToken(t *testing.T) {
	// A cryptographically valid token that no longer equals the stored one
	// has been revoked by replacement.
	svc, mock := newTestService(t)
	token := signToken(t, testSecret, authTokenClaims(7, int64(authz.GroupUser), time.Now().Add(time.Hour)))
	expectStoredAuthToken(mock, "some-newer-token")

	_, _, err := svc.Verify(context.Background(), token)
	assertAPIError(t, err, "InvalidAuthTokenError")
}

func TestVerifyRejectsUnknownUser(t *testing.T) {
	svc, mock := newTestService(t)
	token := signToken(t, testSecret, authTokenClaims(7, int64(authz.GroupUser), time.Now().Add(time.Hour)))
	mock.ExpectQuery("SELECT auth_token FROM auth_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"auth_token"}))

	_, _, err := svc.Verify(context.Background(), token)
	assertAPIError(t, err, "InvalidAuthTokenError")
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-jwt"},
		{"wrong secret", signToken(t, "other-secret", authTokenClaims(7, int64(authz.GroupUser), future))},
		{"expired", signToken(t, testSecret, authTokenClaims(7, int64(authz.GroupUser), time.Now().Add(-time.Minute)))},
		{"missing group claim", signToken(t, testSecret, jwt.MapClaims{"user_id": int64(7), "exp": future.Unix()})},
		{"missing user claim", signToken(t, testSecret, jwt.MapClaims{"group_id": int64(3), "exp": future.Unix()})},
		{"group out of range", signToken(t, testSecret, authTokenClaims(7, 42, future))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Verify(ctx, tt.token)
			assertAPIError(t, err, "InvalidAuthTokenError")
		})
	}
}

func TestIssueStoresReplacementPair(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectExec("DELETE FROM auth_tokens").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO auth_tokens").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("DELETE FROM refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO refresh_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	pair, err := svc.Issue(context.Background(), 7, authz.GroupUser)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if pair.AuthToken == "" || pair.RefreshToken == "" {
		t.Fatal("Issue returned an empty token")
	}
	if pair.AuthToken == pair.RefreshToken {
		t.Error("auth and refresh tokens must differ")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}

	// The minted auth token verifies against its own stored copy.
	expectStoredAuthToken(mock, pair.AuthToken)
	userID, group, err := svc.Verify(context.Background(), pair.AuthToken)
	if err != nil {
		t.Fatalf("Verify minted token: %v", err)
	}
	if userID != 7 || group != authz.GroupUser {
		t.Errorf("Verify = (%d, %v), want (7, user)", userID, group)
	}
}

func TestRefreshMintsAuthToken(t *testing.T) {
	svc, mock := newTestService(t)
	refreshToken := signToken(t, testSecret, jwt.MapClaims{
		"user_id": int64(7),
		"iat":     time.Now().Unix(),
		"iss":     "picstore",
	})

	mock.ExpectQuery("SELECT refresh_token FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"refresh_token"}).AddRow(refreshToken))
	mock.ExpectQuery("SELECT permission_group FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"permission_group"}).AddRow(int64(authz.GroupUser)))
	mock.ExpectExec("DELETE FROM auth_tokens").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO auth_tokens").WillReturnResult(sqlmock.NewResult(1, 1))

	authToken, err := svc.Refresh(context.Background(), refreshToken)
	if err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if authToken == "" {
		t.Fatal("Refresh returned an empty token")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestRefreshRejectsReplacedToken(t *testing.T) {
	svc, mock := newTestService(t)
	refreshToken := signToken(t, testSecret, jwt.MapClaims{"user_id": int64(7)})
	mock.ExpectQuery("SELECT refresh_token FROM refresh_tokens").
		WillReturnRows(sqlmock.NewRows([]string{"refresh_token"}).AddRow("a-newer-refresh-token"))

	_, err := svc.Refresh(context.Background(), refreshToken)
	assertAPIError(t, err, "InvalidRefreshTokenError")
}

func TestRefreshRejectsAuthTokenShape(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Refresh(context.Background(), "garbage")
	assertAPIError(t, err, "InvalidRefreshTokenError")
}

func TestRevokeDropsBothTables(t *testing.T) {
	svc, mock := newTestService(t)
	mock.ExpectExec("DELETE FROM auth_tokens").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("DELETE FROM refresh_tokens").WillReturnResult(sqlmock.NewResult(0, 1))

	if err := svc.Revoke(context.Background(), 7); err != nil {
		t.Fatalf("Revoke: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func assertAPIError(t *testing.T, err error, wantID string) {
	t.Helper()
	apiErr, ok := apierr.From(err)
	if !ok {
		t.Fatalf("error = %v, want typed %s", err, wantID)
	}
	if apiErr.ID != wantID {
		t.Fatalf("error id = %s, want %s", apiErr.ID, wantID)
	}
}
