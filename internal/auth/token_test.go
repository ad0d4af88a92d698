package auth

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-key"

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService(testSecret, 0)
	require.NoError(t, err)

	token, err := svc.Issue(42)
	require.NoError(t, err)

	id, err := svc.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)
}

func TestTokenClaims(t *testing.T) {
	t.Run("no ttl omits exp", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, 0)
		require.NoError(t, err)
		claims := issuedClaims(t, svc, 7)
		assert.Nil(t, claims.ExpiresAt)
		assert.NotNil(t, claims.IssuedAt)
		assert.NotEmpty(t, claims.ID)
		assert.Equal(t, "7", claims.Subject)
	})

	t.Run("ttl sets exp", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, time.Hour)
		require.NoError(t, err)
		claims := issuedClaims(t, svc, 7)
		require.NotNil(t, claims.ExpiresAt)
		assert.WithinDuration(t, claims.IssuedAt.Add(time.Hour), claims.ExpiresAt.Time, time.Second)
	})

	t.Run("jti differs per token", func(t *testing.T) {
		svc, err := NewTokenService(testSecret, 0)
		require.NoError(t, err)
		assert.NotEqual(t, issuedClaims(t, svc, 7).ID, issuedClaims(t, svc, 7).ID)
	})
}

func TestTokenVerifyRejects(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Hour)
	require.NoError(t, err)
	good, err := svc.Issue(5)
	require.NoError(t, err)

	other, err := NewTokenService("another-key", time.Hour)
	require.NoError(t, err)
	foreign, err := other.Issue(5)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	require.Len(t, parts, 3)
	tamperedPayload := parts[0] + "." + encodeSegment(t, `{"sub":"1"}`) + "." + parts[2]

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "5"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "5"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	textSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "alice"}).
		SignedString([]byte(testSecret))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":            "",
		"garbage":          "not.a.token",
		"wrong secret":     foreign,
		"tampered payload": tamperedPayload,
		"alg none":         unsigned,
		"other hmac alg":   hs512,
		"non-numeric sub":  textSubject,
		"truncated":        good[:len(good)-4],
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Verify(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenExpired(t *testing.T) {
	svc, err := NewTokenService(testSecret, time.Minute)
	require.NoError(t, err)

	svc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	token, err := svc.Issue(9)
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewTokenServiceValidation(t *testing.T) {
	_, err := NewTokenService("   ", 0)
	assert.Error(t, err)

	_, err = NewTokenService(testSecret, -time.Second)
	assert.Error(t, err)

	svc, err := NewTokenService(testSecret, 0)
	require.NoError(t, err)
	_, err = svc.Issue(0)
	assert.Error(t, err)
}

func issuedClaims(t *testing.T, svc *TokenService, id int64) jwt.RegisteredClaims {
	t.Helper()
	token, err := svc.Issue(id)
	require.NoError(t, err)

	claims := jwt.RegisteredClaims{}
	_, _, err = jwt.NewParser().ParseUnverified(token, &claims)
	require.NoError(t, err)
	return claims
}

func encodeSegment(t *testing.T, raw string) string {
	t.Helper()
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}
