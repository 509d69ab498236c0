package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tomlord1122/task-tracker/internal/config"
)

func newIssuer(t *testing.T, ttl time.Duration) *Issuer {
	t.Helper()
	iss, err := NewIssuer(config.AuthConfig{JWTSecret: "test-secret", Issuer: "task-tracker", TokenTTL: ttl})
	require.NoError(t, err)
	return iss
}

func TestIssueAndParse(t *testing.T) {
	iss := newIssuer(t, time.Hour)
	token, err := iss.Issue(42)
	require.NoError(t, err)

	id, err := iss.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), id)
}

func TestParseRejects(t *testing.T) {
	iss := newIssuer(t, time.Hour)
	good, err := iss.Issue(1)
	require.NoError(t, err)

	other := newIssuer(t, time.Hour)
	other.secret = []byte("another-secret")
	forged, err := other.Issue(1)
	require.NoError(t, err)

	expiredIssuer := newIssuer(t, time.Minute)
	expiredIssuer.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, err := expiredIssuer.Issue(1)
	require.NoError(t, err)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{Subject: "1", Issuer: "task-tracker"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Issuer: "task-tracker"}).
		SignedString([]byte("test-secret"))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"garbage":     "not.a.token",
		"wrong key":   forged,
		"expired":     expired,
		"alg none":    none,
		"no subject":  noSubject,
		"tampered":    good + "x",
		"empty token": "",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := iss.Parse(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	_, err := NewIssuer(config.AuthConfig{})
	assert.ErrorIs(t, err, ErrNoSecret)
}
