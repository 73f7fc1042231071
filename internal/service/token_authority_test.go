package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/target/todo-platform/internal/domain/auth"
)

type fakeClock struct{ now time.Time }

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestTokenAuthority(clock *fakeClock) *TokenAuthority {
	return NewTokenAuthority(TokenAuthorityOptions{
		Config: TokenAuthorityConfig{
			Secret: []byte("test-secret"),
			TTL:    time.Hour,
			Issuer: "todo-platform",
			Now:    clock.Now,
		},
	})
}

func TestNewTokenAuthority_RequiresSecret(t *testing.T) {
	assert.Panics(t, func() {
		NewTokenAuthority(TokenAuthorityOptions{})
	})
}

func TestNewTokenAuthority_DefaultTTL(t *testing.T) {
	ta := NewTokenAuthority(TokenAuthorityOptions{Config: TokenAuthorityConfig{Secret: []byte("s")}})
	assert.Equal(t, DefaultTokenTTL, ta.ttl)
}

func TestTokenAuthority_RoundTrip(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	ta := newTestTokenAuthority(clock)

	token, err := ta.Issue("alice")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	assert.True(t, ta.Validate(token))
	username, err := ta.ExtractUsername(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", username)
}

func TestTokenAuthority_Expiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	ta := newTestTokenAuthority(clock)

	token, err := ta.Issue("alice")
	require.NoError(t, err)

	clock.Advance(59 * time.Minute)
	assert.True(t, ta.Validate(token))

	clock.Advance(2 * time.Minute)
	assert.False(t, ta.Validate(token))

	_, err = ta.ExtractUsername(token)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainauth.ErrTokenInvalid)

	var tokErr *domainauth.TokenError
	require.ErrorAs(t, err, &tokErr)
	assert.Equal(t, "expired", tokErr.Reason)
}

func TestTokenAuthority_IssueDoesNotCheckExistence(t *testing.T) {
	ta := newTestTokenAuthority(&fakeClock{now: time.Now()})

	token, err := ta.Issue("nobody-by-this-name")
	require.NoError(t, err)
	assert.True(t, ta.Validate(token))
}

func TestTokenAuthority_Rejects(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	ta := newTestTokenAuthority(clock)

	good, err := ta.Issue("alice")
	require.NoError(t, err)

	otherKey := NewTokenAuthority(TokenAuthorityOptions{Config: TokenAuthorityConfig{
		Secret: []byte("another-secret"),
		TTL:    time.Hour,
		Issuer: "todo-platform",
		Now:    clock.Now,
	}})
	forged, err := otherKey.Issue("alice")
	require.NoError(t, err)

	otherIssuer := NewTokenAuthority(TokenAuthorityOptions{Config: TokenAuthorityConfig{
		Secret: []byte("test-secret"),
		TTL:    time.Hour,
		Issuer: "someone-else",
		Now:    clock.Now,
	}})
	wrongIssuer, err := otherIssuer.Issue("alice")
	require.NoError(t, err)

	noneAlg, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "alice",
		Issuer:    "todo-platform",
		ExpiresAt: jwt.NewNumericDate(clock.now.Add(time.Hour)),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	parts := strings.Split(good, ".")
	tampered := parts[0] + "." + parts[1] + "x." + parts[2]

	tests := []struct {
		name   string
		token  string
		reason string
	}{
		{name: "empty", token: "", reason: "empty token"},
		{name: "garbage", token: "not-a-token", reason: "malformed"},
		{name: "wrong key", token: forged, reason: "bad signature"},
		{name: "wrong issuer", token: wrongIssuer, reason: "wrong issuer"},
		{name: "alg none", token: noneAlg},
		{name: "tampered payload", token: tampered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, ta.Validate(tt.token))

			_, err := ta.ExtractUsername(tt.token)
			require.Error(t, err)
			assert.True(t, errors.Is(err, domainauth.ErrTokenInvalid))
			if tt.reason != "" {
				var tokErr *domainauth.TokenError
				require.ErrorAs(t, err, &tokErr)
				assert.Equal(t, tt.reason, tokErr.Reason)
			}
		})
	}
}

func TestFingerprint(t *testing.T) {
	assert.Empty(t, Fingerprint(""))
	fp := Fingerprint("abc")
	assert.Len(t, fp, 12)
	assert.Equal(t, fp, Fingerprint("abc"))
	assert.NotEqual(t, fp, Fingerprint("abd"))
}
