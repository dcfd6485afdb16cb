package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"
	"fintrack/pkg/auth"
	"fintrack/pkg/config"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var errNoRows = errors.New("no rows in result set")

type authFixture struct {
	users         *MockUserStore
	sessions      *MockSessionStore
	accounts      *MockAccountStore
	verifications *MockVerificationStore
	cache         *MockSessionCacher
	svc           *AuthService
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:         &MockUserStore{},
		sessions:      &MockSessionStore{},
		accounts:      &MockAccountStore{},
		verifications: &MockVerificationStore{},
		cache:         &MockSessionCacher{},
	}
	cfg := &config.AuthConfig{
		Secret:             "test-secret",
		BaseURL:            "http://localhost:8080",
		SessionTTL:         time.Hour,
		GoogleClientID:     "client-id",
		GoogleClientSecret: "client-secret",
	}
	f.svc = NewAuthService(f.users, f.sessions, f.accounts, f.verifications, f.cache, cfg, zap.NewNop())
	return f
}

func TestSignUp_CreatesUserAccountAndSession(t *testing.T) {
	f := newAuthFixture(t)
	req := &dto.SignUpRequest{Name: "Ada", Email: "ada@example.com", Password: "strong-password"}

	f.users.On("GetByEmail", mock.Anything, req.Email).Return(nil, errNoRows)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)

	var account *models.Account
	f.accounts.On("Create", mock.Anything, mock.AnythingOfType("*models.Account")).
		Run(func(args mock.Arguments) { account = args.Get(1).(*models.Account) }).
		Return(nil)
	f.verifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Verification")).Return(nil)
	f.sessions.On("Create", mock.Anything, mock.AnythingOfType("*models.Session")).Return(nil)
	f.cache.On("Set", mock.Anything, mock.Anything).Return(nil)

	resp, err := f.svc.SignUp(context.Background(), req, SessionMeta{IPAddress: "203.0.113.9"})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.False(t, resp.User.EmailVerified)

	require.NotNil(t, account)
	assert.Equal(t, models.ProviderCredential, account.ProviderID)
	assert.Equal(t, req.Email, account.AccountID)
	require.NotNil(t, account.Password)
	assert.True(t, auth.CheckPasswordHash(req.Password, *account.Password))
}

func TestSignUp_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").
		Return(&models.User{ID: uuid.New(), Email: "ada@example.com"}, nil)

	_, err := f.svc.SignUp(context.Background(), &dto.SignUpRequest{
		Name: "Ada", Email: "ada@example.com", Password: "strong-password",
	}, SessionMeta{})
	assert.ErrorIs(t, err, ErrUserExists)
	f.users.AssertNotCalled(t, "Create")
}

func TestSignIn(t *testing.T) {
	f := newAuthFixture(t)
	userID := uuid.New()
	hash, err := auth.HashPassword("correct-password")
	require.NoError(t, err)

	user := &models.User{ID: userID, Email: "ada@example.com", Name: "Ada"}
	account := &models.Account{UserID: userID, ProviderID: models.ProviderCredential, Password: &hash}

	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(user, nil)
	f.accounts.On("GetByUserAndProvider", mock.Anything, userID, models.ProviderCredential).Return(account, nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Set", mock.Anything, mock.Anything).Return(nil)

	t.Run("wrong password", func(t *testing.T) {
		_, err := f.svc.SignIn(context.Background(), &dto.SignInRequest{
			Email: "ada@example.com", Password: "wrong",
		}, SessionMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("unknown email", func(t *testing.T) {
		f.users.On("GetByEmail", mock.Anything, "ghost@example.com").Return(nil, errNoRows)
		_, err := f.svc.SignIn(context.Background(), &dto.SignInRequest{
			Email: "ghost@example.com", Password: "whatever",
		}, SessionMeta{})
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("success", func(t *testing.T) {
		resp, err := f.svc.SignIn(context.Background(), &dto.SignInRequest{
			Email: "ada@example.com", Password: "correct-password",
		}, SessionMeta{})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Token)
		assert.Equal(t, userID.String(), resp.User.ID)
	})
}

func TestResolveSession(t *testing.T) {
	userID := uuid.New()
	user := &models.User{ID: userID, Email: "ada@example.com"}

	t.Run("empty token", func(t *testing.T) {
		f := newAuthFixture(t)
		_, _, err := f.svc.ResolveSession(context.Background(), "")
		assert.ErrorIs(t, err, ErrNoSession)
	})

	t.Run("cache hit", func(t *testing.T) {
		f := newAuthFixture(t)
		session := &models.Session{UserID: userID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		f.cache.On("Get", mock.Anything, "tok").Return(session, nil)
		f.users.On("GetByID", mock.Anything, userID).Return(user, nil)

		gotUser, gotSession, err := f.svc.ResolveSession(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, user, gotUser)
		assert.Equal(t, session, gotSession)
		f.sessions.AssertNotCalled(t, "GetByToken")
	})

	t.Run("cache miss falls back to database", func(t *testing.T) {
		f := newAuthFixture(t)
		session := &models.Session{UserID: userID, Token: "tok", ExpiresAt: time.Now().Add(time.Hour)}
		f.cache.On("Get", mock.Anything, "tok").Return(nil, nil)
		f.sessions.On("GetByToken", mock.Anything, "tok").Return(session, nil)
		f.cache.On("Set", mock.Anything, session).Return(nil)
		f.users.On("GetByID", mock.Anything, userID).Return(user, nil)

		gotUser, _, err := f.svc.ResolveSession(context.Background(), "tok")
		require.NoError(t, err)
		assert.Equal(t, user, gotUser)
		f.cache.AssertExpectations(t)
	})

	t.Run("expired session is rejected and purged", func(t *testing.T) {
		f := newAuthFixture(t)
		session := &models.Session{UserID: userID, Token: "tok", ExpiresAt: time.Now().Add(-time.Minute)}
		f.cache.On("Get", mock.Anything, "tok").Return(session, nil)
		f.cache.On("Delete", mock.Anything, "tok").Return(nil)
		f.sessions.On("DeleteByToken", mock.Anything, "tok").Return(nil)

		_, _, err := f.svc.ResolveSession(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrNoSession)
		f.sessions.AssertCalled(t, "DeleteByToken", mock.Anything, "tok")
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.cache.On("Get", mock.Anything, "tok").Return(nil, nil)
		f.sessions.On("GetByToken", mock.Anything, "tok").Return(nil, errNoRows)

		_, _, err := f.svc.ResolveSession(context.Background(), "tok")
		assert.ErrorIs(t, err, ErrNoSession)
	})
}

func TestVerifyEmail(t *testing.T) {
	userID := uuid.New()

	t.Run("valid token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.verifications.On("Consume", mock.Anything, emailVerifyPrefix+"tok").
			Return(&models.Verification{Value: userID.String(), ExpiresAt: time.Now().Add(time.Hour)}, nil)
		f.users.On("SetEmailVerified", mock.Anything, userID).Return(nil)

		require.NoError(t, f.svc.VerifyEmail(context.Background(), "tok"))
		f.users.AssertExpectations(t)
	})

	t.Run("expired token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.verifications.On("Consume", mock.Anything, emailVerifyPrefix+"tok").
			Return(&models.Verification{Value: userID.String(), ExpiresAt: time.Now().Add(-time.Hour)}, nil)

		assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), "tok"), ErrInvalidVerification)
	})

	t.Run("unknown token", func(t *testing.T) {
		f := newAuthFixture(t)
		f.verifications.On("Consume", mock.Anything, emailVerifyPrefix+"tok").Return(nil, errNoRows)
		assert.ErrorIs(t, f.svc.VerifyEmail(context.Background(), "tok"), ErrInvalidVerification)
	})
}

func TestSocialBegin(t *testing.T) {
	f := newAuthFixture(t)

	t.Run("unsupported provider", func(t *testing.T) {
		_, err := f.svc.SocialBegin(context.Background(), "github", "")
		assert.ErrorIs(t, err, ErrUnsupportedProvider)
	})

	t.Run("google", func(t *testing.T) {
		f.verifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Verification")).Return(nil)

		redirect, err := f.svc.SocialBegin(context.Background(), "google", "http://app.example.com/done")
		require.NoError(t, err)

		u, err := url.Parse(redirect)
		require.NoError(t, err)
		assert.Equal(t, "accounts.google.com", u.Host)
		q := u.Query()
		assert.Equal(t, "client-id", q.Get("client_id"))
		assert.Equal(t, "http://localhost:8080/api/auth/callback/google", q.Get("redirect_uri"))
		assert.NotEmpty(t, q.Get("state"))
		f.verifications.AssertExpectations(t)
	})
}

func TestSocialCallback(t *testing.T) {
	f := newAuthFixture(t)

	// Mint a state exactly the way SocialBegin does and capture the
	// persisted verification row.
	var stateRow *models.Verification
	f.verifications.On("Create", mock.Anything, mock.AnythingOfType("*models.Verification")).
		Run(func(args mock.Arguments) { stateRow = args.Get(1).(*models.Verification) }).
		Return(nil)

	redirect, err := f.svc.SocialBegin(context.Background(), "google", "http://app.example.com/done")
	require.NoError(t, err)
	state := mustQuery(t, redirect, "state")

	// Fake Google token endpoint returning an id_token with the claims
	// the service reads.
	idToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":            "google-subject-1",
		"email":          "ada@example.com",
		"email_verified": true,
		"name":           "Ada Lovelace",
	}).SignedString([]byte("google-signing-key"))
	require.NoError(t, err)

	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.FormValue("grant_type"))
		assert.Equal(t, "auth-code", r.FormValue("code"))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": "at",
			"id_token":     idToken,
		})
	}))
	defer tokenServer.Close()
	f.svc.tokenURL = tokenServer.URL

	f.verifications.On("Consume", mock.Anything, stateRow.Identifier).Return(stateRow, nil)
	f.accounts.On("GetByProvider", mock.Anything, models.ProviderGoogle, "google-subject-1").Return(nil, errNoRows)
	f.users.On("GetByEmail", mock.Anything, "ada@example.com").Return(nil, errNoRows)
	f.users.On("Create", mock.Anything, mock.AnythingOfType("*models.User")).Return(nil)
	f.accounts.On("Create", mock.Anything, mock.AnythingOfType("*models.Account")).Return(nil)
	f.sessions.On("Create", mock.Anything, mock.Anything).Return(nil)
	f.cache.On("Set", mock.Anything, mock.Anything).Return(nil)

	resp, callbackURL, err := f.svc.SocialCallback(context.Background(), "google", "auth-code", state, SessionMeta{})
	require.NoError(t, err)
	assert.Equal(t, "http://app.example.com/done", callbackURL)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.True(t, resp.User.EmailVerified)
}

func TestSocialCallback_BadState(t *testing.T) {
	f := newAuthFixture(t)

	_, _, err := f.svc.SocialCallback(context.Background(), "google", "code", "not-a-state", SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidState)

	// A state signed with a different secret is rejected before any
	// verification lookup.
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"jti": "x", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("wrong-secret"))
	require.NoError(t, err)

	_, _, err = f.svc.SocialCallback(context.Background(), "google", "code", forged, SessionMeta{})
	assert.ErrorIs(t, err, ErrInvalidState)
	f.verifications.AssertNotCalled(t, "Consume")
}

func mustQuery(t *testing.T, rawURL, key string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	v := u.Query().Get(key)
	require.NotEmpty(t, v)
	return v
}

func TestSignOut(t *testing.T) {
	f := newAuthFixture(t)
	f.cache.On("Delete", mock.Anything, "tok").Return(nil)
	f.sessions.On("DeleteByToken", mock.Anything, "tok").Return(nil)

	require.NoError(t, f.svc.SignOut(context.Background(), "tok"))
	assert.ErrorIs(t, f.svc.SignOut(context.Background(), ""), ErrNoSession)
}
