package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"fintrack/internal/dto"
	"fintrack/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrInvalidState means the OAuth state was missing, tampered with,
	// expired, or already redeemed.
	ErrInvalidState = errors.New("invalid oauth state")
	// ErrOAuthExchange means the provider rejected the code exchange.
	ErrOAuthExchange = errors.New("oauth code exchange failed")
)

const (
	googleAuthURL  = "https://accounts.google.com/o/oauth2/v2/auth"
	googleTokenURL = "https://oauth2.googleapis.com/token"

	oauthStatePrefix = "oauth-state:"
	oauthStateTTL    = 10 * time.Minute
)

// SocialBegin builds the provider consent URL. The state parameter is a
// signed token whose jti is also persisted, so a callback can only redeem
// a state this server minted, and only once.
func (s *AuthService) SocialBegin(ctx context.Context, provider, callbackURL string) (string, error) {
	if provider != models.ProviderGoogle {
		return "", ErrUnsupportedProvider
	}
	if callbackURL == "" {
		callbackURL = s.cfg.BaseURL
	}

	now := s.now()
	stateID := uuid.NewString()
	claims := jwt.MapClaims{
		"jti":         stateID,
		"provider":    provider,
		"callbackURL": callbackURL,
		"exp":         now.Add(oauthStateTTL).Unix(),
		"iat":         now.Unix(),
	}
	state, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign oauth state: %w", err)
	}

	v := &models.Verification{
		ID:         uuid.New(),
		Identifier: oauthStatePrefix + stateID,
		Value:      callbackURL,
		ExpiresAt:  now.Add(oauthStateTTL),
		CreatedAt:  now,
	}
	if err := s.verifications.Create(ctx, v); err != nil {
		return "", err
	}

	params := url.Values{}
	params.Set("client_id", s.cfg.GoogleClientID)
	params.Set("redirect_uri", s.cfg.BaseURL+"/api/auth/callback/google")
	params.Set("response_type", "code")
	params.Set("scope", "openid email profile")
	params.Set("state", state)

	return s.authURL + "?" + params.Encode(), nil
}

// SocialCallback validates state, exchanges the authorization code and
// signs the resolved identity in, creating the user on first login.
// It returns the session and the URL the client should be redirected to.
func (s *AuthService) SocialCallback(ctx context.Context, provider, code, state string, meta SessionMeta) (*dto.SessionResponse, string, error) {
	if provider != models.ProviderGoogle {
		return nil, "", ErrUnsupportedProvider
	}

	callbackURL, err := s.redeemState(ctx, state)
	if err != nil {
		return nil, "", err
	}

	identity, err := s.exchangeGoogleCode(ctx, code)
	if err != nil {
		s.logger.Error("Google code exchange failed", zap.Error(err))
		return nil, "", ErrOAuthExchange
	}

	user, err := s.findOrCreateSocialUser(ctx, identity)
	if err != nil {
		return nil, "", err
	}

	resp, err := s.createSession(ctx, user, meta)
	if err != nil {
		return nil, "", err
	}

	return resp, callbackURL, nil
}

func (s *AuthService) redeemState(ctx context.Context, state string) (string, error) {
	token, err := jwt.Parse(state, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return "", ErrInvalidState
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidState
	}
	stateID, _ := claims["jti"].(string)
	if stateID == "" {
		return "", ErrInvalidState
	}

	v, err := s.verifications.Consume(ctx, oauthStatePrefix+stateID)
	if err != nil {
		return "", ErrInvalidState
	}
	if !v.ExpiresAt.After(s.now()) {
		return "", ErrInvalidState
	}

	return v.Value, nil
}

// googleIdentity is what this system needs from the provider.
type googleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

// exchangeGoogleCode swaps the authorization code for tokens and reads the
// identity claims out of the id_token. The token arrives over TLS straight
// from the provider, so the claims are read without signature verification.
func (s *AuthService) exchangeGoogleCode(ctx context.Context, code string) (*googleIdentity, error) {
	form := url.Values{}
	form.Set("code", code)
	form.Set("client_id", s.cfg.GoogleClientID)
	form.Set("client_secret", s.cfg.GoogleClientSecret)
	form.Set("redirect_uri", s.cfg.BaseURL+"/api/auth/callback/google")
	form.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("token endpoint returned status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		IDToken     string `json:"id_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenResp.IDToken == "" {
		return nil, errors.New("token response carried no id_token")
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenResp.IDToken, claims); err != nil {
		return nil, fmt.Errorf("failed to parse id_token: %w", err)
	}

	identity := &googleIdentity{}
	identity.Subject, _ = claims["sub"].(string)
	identity.Email, _ = claims["email"].(string)
	identity.EmailVerified, _ = claims["email_verified"].(bool)
	identity.Name, _ = claims["name"].(string)
	identity.Picture, _ = claims["picture"].(string)

	if identity.Subject == "" || identity.Email == "" {
		return nil, errors.New("id_token missing subject or email")
	}

	return identity, nil
}

func (s *AuthService) findOrCreateSocialUser(ctx context.Context, identity *googleIdentity) (*models.User, error) {
	account, err := s.accounts.GetByProvider(ctx, models.ProviderGoogle, identity.Subject)
	if err == nil {
		return s.users.GetByID(ctx, account.UserID)
	}

	// First social login. Attach to an existing user with the same
	// verified email, otherwise create one.
	now := s.now()
	user, err := s.users.GetByEmail(ctx, identity.Email)
	if err != nil {
		user = &models.User{
			ID:            uuid.New(),
			Email:         identity.Email,
			EmailVerified: identity.EmailVerified,
			Name:          identity.Name,
			Image:         nilIfEmpty(identity.Picture),
			CreatedAt:     now,
			UpdatedAt:     now,
		}
		if err := s.users.Create(ctx, user); err != nil {
			return nil, err
		}
	}

	newAccount := &models.Account{
		ID:         uuid.New(),
		UserID:     user.ID,
		ProviderID: models.ProviderGoogle,
		AccountID:  identity.Subject,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.accounts.Create(ctx, newAccount); err != nil {
		return nil, err
	}

	return user, nil
}
