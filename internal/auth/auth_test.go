package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inamate/draftview/internal/db/dbgen"
)

type memUsers struct {
	byID map[string]dbgen.User
}

func newMemUsers() *memUsers {
	return &memUsers{byID: map[string]dbgen.User{}}
}

func (m *memUsers) CreateUser(_ context.Context, arg dbgen.CreateUserParams) (dbgen.User, error) {
	for _, u := range m.byID {
		if u.Email == arg.Email {
			return dbgen.User{}, &pgconn.PgError{Code: "23505"}
		}
	}
	u := dbgen.User{ID: arg.ID, Email: arg.Email, Password: arg.Password, DisplayName: arg.DisplayName}
	m.byID[u.ID] = u
	return u, nil
}

func (m *memUsers) GetUserByEmail(_ context.Context, email string) (dbgen.User, error) {
	for _, u := range m.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return dbgen.User{}, pgx.ErrNoRows
}

func (m *memUsers) GetUserByID(_ context.Context, id string) (dbgen.User, error) {
	u, ok := m.byID[id]
	if !ok {
		return dbgen.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func TestRegisterLoginAndValidate(t *testing.T) {
	svc := NewService(newMemUsers(), "test-secret")
	ctx := context.Background()

	reg, err := svc.Register(ctx, "ada@example.com", "correct horse", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "Ada", reg.User.DisplayName)

	userID, err := svc.ValidateToken(reg.Token)
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, userID)

	login, err := svc.Login(ctx, "ada@example.com", "correct horse")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "ada@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "whatever")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Register(ctx, "ada@example.com", "another one", "Ada 2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestValidateTokenRejectsForeignSecret(t *testing.T) {
	users := newMemUsers()
	a := NewService(users, "secret-a")
	b := NewService(users, "secret-b")

	reg, err := a.Register(context.Background(), "x@example.com", "password1", "X")
	require.NoError(t, err)

	_, err = b.ValidateToken(reg.Token)
	assert.Error(t, err)
}

func TestGetUserAndLookup(t *testing.T) {
	svc := NewService(newMemUsers(), "s")
	ctx := context.Background()
	reg, err := svc.Register(ctx, "grace@example.com", "password1", "Grace")
	require.NoError(t, err)

	u, err := svc.GetUser(ctx, reg.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "grace@example.com", u.Email)

	_, err = svc.GetUser(ctx, "user_missing")
	assert.ErrorIs(t, err, ErrUserNotFound)

	found, err := svc.LookupEmail(ctx, "grace@example.com")
	require.NoError(t, err)
	assert.Equal(t, reg.User.ID, found.ID)
}

func TestHandlerRegisterValidation(t *testing.T) {
	h := NewHandler(NewService(newMemUsers(), "s"))

	tests := []struct {
		name   string
		body   string
		status int
	}{
		{"malformed", "{", http.StatusBadRequest},
		{"missing fields", `{"email":"a@b.c"}`, http.StatusBadRequest},
		{"short password", `{"email":"a@b.c","password":"short","displayName":"A"}`, http.StatusBadRequest},
		{"ok", `{"email":"a@b.c","password":"long enough","displayName":"A"}`, http.StatusCreated},
		{"duplicate", `{"email":"a@b.c","password":"long enough","displayName":"A"}`, http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(tt.body))
			h.Register(rec, req)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestMiddlewareAndMe(t *testing.T) {
	svc := NewService(newMemUsers(), "s")
	h := NewHandler(svc)
	reg, err := svc.Register(context.Background(), "m@example.com", "password1", "M")
	require.NoError(t, err)

	protected := svc.AuthMiddleware(http.HandlerFunc(h.Me))

	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/me", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Token abc")
	protected.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+reg.Token)
	protected.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var got User
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, reg.User.ID, got.ID)
}

func TestTokenFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer header", "/x", "Bearer abc", "abc", false},
		{"lowercase scheme", "/x", "bearer abc", "abc", false},
		{"query parameter", "/x?token=q1", "", "q1", false},
		{"header wins over query", "/x?token=q1", "Bearer h1", "h1", false},
		{"missing", "/x", "", "", true},
		{"wrong scheme", "/x", "Basic abc", "", true},
		{"empty bearer", "/x", "Bearer ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			got, err := TokenFromRequest(req)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddlewareAcceptsQueryToken(t *testing.T) {
	svc := NewService(newMemUsers(), "s")
	reg, err := svc.Register(context.Background(), "q@example.com", "password1", "Q")
	require.NoError(t, err)

	var seen string
	protected := svc.AuthMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = UserIDFromContext(r.Context())
	}))
	rec := httptest.NewRecorder()
	protected.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/drawings/x/thumbnail?token="+reg.Token, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, reg.User.ID, seen)
}

func TestEmailsAreNormalized(t *testing.T) {
	svc := NewService(newMemUsers(), "s")
	ctx := context.Background()
	reg, err := svc.Register(ctx, "  Linus@Example.COM ", "password1", "Linus")
	require.NoError(t, err)
	assert.Equal(t, "linus@example.com", reg.User.Email)

	_, err = svc.Login(ctx, "LINUS@example.com", "password1")
	require.NoError(t, err)
	_, err = svc.Register(ctx, "linus@example.com", "password2", "Other")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestTokensExpire(t *testing.T) {
	svc := NewService(newMemUsers(), "s")
	start := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return start }

	reg, err := svc.Register(context.Background(), "t@example.com", "password1", "T")
	require.NoError(t, err)
	_, err = svc.ValidateToken(reg.Token)
	require.NoError(t, err)

	svc.now = func() time.Time { return start.Add(tokenTTL + time.Minute) }
	_, err = svc.ValidateToken(reg.Token)
	assert.Error(t, err)
}

func TestRegisterRejectsBadEmail(t *testing.T) {
	h := NewHandler(NewService(newMemUsers(), "s"))
	rec := httptest.NewRecorder()
	body := `{"email":"not-an-email","password":"long enough","displayName":"A"}`
	h.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid email")
}
