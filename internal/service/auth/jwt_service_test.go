package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/scry-scheduler/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	secret      = "test-secret-that-is-long-enough-for-testing"
	wrongSecret = "wrong-secret-that-is-long-enough-for-testing"
)

var fixedTime = time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, key string, now time.Time) *hmacJWTService {
	t.Helper()
	svc, err := newHMACJWTService(key, func() time.Time { return now })
	require.NoError(t, err)
	return svc
}

func TestNewJWTService(t *testing.T) {
	t.Parallel()

	_, err := NewJWTService(config.AuthConfig{JWTSecret: "short"})
	assert.Error(t, err)

	svc, err := NewJWTService(config.AuthConfig{JWTSecret: secret})
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestGenerateAndValidateToken(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	svc := newTestService(t, secret, fixedTime)

	token, err := svc.GenerateToken(context.Background(), userID, time.Hour)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, fixedTime.Unix(), claims.IssuedAt.Unix())
	assert.Equal(t, fixedTime.Add(time.Hour).Unix(), claims.ExpiresAt.Unix())
	assert.NotEmpty(t, claims.ID)
}

func TestValidateTokenErrors(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	issuer := newTestService(t, secret, fixedTime)
	valid, err := issuer.GenerateToken(context.Background(), userID, time.Hour)
	require.NoError(t, err)

	signWith := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}

	tests := []struct {
		name    string
		svc     *hmacJWTService
		token   string
		wantErr error
	}{
		{
			name:    "missing token",
			svc:     issuer,
			token:   "",
			wantErr: ErrMissingToken,
		},
		{
			name:    "malformed token",
			svc:     issuer,
			token:   "not-a-jwt",
			wantErr: ErrInvalidToken,
		},
		{
			name:    "wrong secret",
			svc:     newTestService(t, wrongSecret, fixedTime),
			token:   valid,
			wantErr: ErrInvalidToken,
		},
		{
			name:    "expired beyond clock skew",
			svc:     newTestService(t, secret, fixedTime.Add(time.Hour+3*time.Minute)),
			token:   valid,
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			svc:  issuer,
			token: signWith(jwt.RegisteredClaims{
				Subject:   userID.String(),
				NotBefore: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
				ExpiresAt: jwt.NewNumericDate(fixedTime.Add(2 * time.Hour)),
			}, jwt.SigningMethodHS256, []byte(secret)),
			wantErr: ErrTokenNotYetValid,
		},
		{
			name: "missing expiry",
			svc:  issuer,
			token: signWith(jwt.RegisteredClaims{
				Subject: userID.String(),
			}, jwt.SigningMethodHS256, []byte(secret)),
			wantErr: ErrInvalidToken,
		},
		{
			name: "other HMAC algorithm",
			svc:  issuer,
			token: signWith(jwt.RegisteredClaims{
				Subject:   userID.String(),
				ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
			}, jwt.SigningMethodHS512, []byte(secret)),
			wantErr: ErrInvalidToken,
		},
		{
			name: "subject is not a UUID",
			svc:  issuer,
			token: signWith(jwt.RegisteredClaims{
				Subject:   "alice",
				ExpiresAt: jwt.NewNumericDate(fixedTime.Add(time.Hour)),
			}, jwt.SigningMethodHS256, []byte(secret)),
			wantErr: ErrInvalidSubject,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			claims, err := tc.svc.ValidateToken(context.Background(), tc.token)
			assert.Nil(t, claims)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestValidateTokenWithinClockSkew(t *testing.T) {
	t.Parallel()

	issuer := newTestService(t, secret, fixedTime)
	token, err := issuer.GenerateToken(context.Background(), uuid.New(), time.Hour)
	require.NoError(t, err)

	late := newTestService(t, secret, fixedTime.Add(time.Hour+time.Minute))
	_, err = late.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}
