package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/streamtweet/backend/internal/models"
)

var (
	// ErrInvalidToken indicates a token that is missing, malformed, expired,
	// or signed with the wrong key.
	ErrInvalidToken = errors.New("invalid or expired token")
	// ErrTokenReused indicates a refresh token that no longer matches the one
	// persisted for the user, i.e. it was already rotated or revoked.
	ErrTokenReused = errors.New("refresh token is invalid or already used")
)

// RefreshTokenStore persists the single active refresh token per user.
// Saving overwrites any prior value; saving an empty token revokes it.
type RefreshTokenStore interface {
	SetRefreshToken(ctx context.Context, userID, token string) error
	RefreshTokenFor(ctx context.Context, userID string) (string, error)
}

type claims struct {
	jwt.RegisteredClaims
}

// Manager issues and validates the access/refresh token pair. Access tokens
// are stateless; refresh tokens are additionally checked against the value
// persisted on the user record so only the most recently issued one is valid.
type Manager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration

	store RefreshTokenStore

	// NowFunc overrides the time source in tests.
	NowFunc func() time.Time
}

// NewManager constructs a Manager signing tokens with the provided secrets.
func NewManager(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore) *Manager {
	if store == nil {
		panic("auth: refresh token store must not be nil")
	}
	return &Manager{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		store:         store,
	}
}

// Issue creates a new token pair for the user and persists the refresh token,
// implicitly revoking any previously issued one.
func (m *Manager) Issue(ctx context.Context, userID string) (models.SessionTokens, error) {
	if userID == "" {
		return models.SessionTokens{}, errors.New("user id must be provided")
	}

	now := m.now()

	accessToken, accessExp, err := m.sign(userID, now, m.accessTTL, m.accessSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign access token: %w", err)
	}

	refreshToken, refreshExp, err := m.sign(userID, now, m.refreshTTL, m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := m.store.SetRefreshToken(ctx, userID, refreshToken); err != nil {
		return models.SessionTokens{}, fmt.Errorf("persist refresh token: %w", err)
	}

	return models.SessionTokens{
		AccessToken:      accessToken,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refreshToken,
		RefreshExpiresAt: refreshExp,
	}, nil
}

// Refresh exchanges a refresh token for a new pair, rotating both tokens.
// The presented token must match the one currently persisted for the user.
func (m *Manager) Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error) {
	if refreshToken == "" {
		return models.SessionTokens{}, ErrInvalidToken
	}

	userID, err := m.verify(refreshToken, m.refreshSecret)
	if err != nil {
		return models.SessionTokens{}, err
	}

	stored, err := m.store.RefreshTokenFor(ctx, userID)
	if err != nil {
		return models.SessionTokens{}, ErrInvalidToken
	}

	if stored == "" || stored != refreshToken {
		return models.SessionTokens{}, ErrTokenReused
	}

	return m.Issue(ctx, userID)
}

// Verify checks an access token's signature and expiry and returns the user id
// it was issued to. It never consults the store.
func (m *Manager) Verify(accessToken string) (string, error) {
	return m.verify(accessToken, m.accessSecret)
}

// Revoke clears the persisted refresh token so future refresh calls fail.
// Already-issued unexpired access tokens stay valid until they expire.
func (m *Manager) Revoke(ctx context.Context, userID string) error {
	if userID == "" {
		return nil
	}
	return m.store.SetRefreshToken(ctx, userID, "")
}

func (m *Manager) sign(userID string, now time.Time, ttl time.Duration, secret []byte) (string, time.Time, error) {
	expiresAt := now.Add(ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	})

	signed, err := token.SignedString(secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (m *Manager) verify(tokenString string, secret []byte) (string, error) {
	token, err := jwt.ParseWithClaims(tokenString, &claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return "", ErrInvalidToken
	}

	parsed, ok := token.Claims.(*claims)
	if !ok || !token.Valid || parsed.Subject == "" {
		return "", ErrInvalidToken
	}

	return parsed.Subject, nil
}

func (m *Manager) now() time.Time {
	if m.NowFunc != nil {
		return m.NowFunc()
	}
	return time.Now().UTC()
}
