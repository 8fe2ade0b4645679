package token

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prohmpiriya/storefront/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-that-is-long-enough-123"

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestService(clock *fakeClock) *Service {
	return NewService(Config{Secret: testSecret, TTL: time.Hour, Issuer: "storefront"}, WithClock(clock.Now))
}

var alice = domain.Principal{UserID: "u-1", Email: "alice@example.com", Role: domain.RoleUser}

func TestIssueVerify_RoundTrip(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock)

	raw, exp, err := svc.Issue(alice)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(time.Hour), exp)

	clock.Advance(59 * time.Minute)
	claims, err := svc.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.Equal(t, domain.RoleUser, claims.Role)
	assert.True(t, claims.ExpiresAt.Equal(exp))
}

func TestVerify_Expired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	svc := newTestService(clock)

	raw, _, err := svc.Issue(alice)
	require.NoError(t, err)

	clock.Advance(time.Hour + time.Second)
	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrExpired)
}

func TestVerify_TamperedSignature(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	svc := newTestService(clock)

	raw, _, err := svc.Issue(alice)
	require.NoError(t, err)

	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	claims, err := svc.Verify(tampered)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Nil(t, claims)
}

func TestVerify_SignatureCheckedBeforeExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	other := NewService(Config{Secret: "another-secret-key-that-is-long-enough", TTL: time.Hour}, WithClock(clock.Now))
	svc := newTestService(clock)

	raw, _, err := other.Issue(alice)
	require.NoError(t, err)

	clock.Advance(2 * time.Hour)
	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_RejectsOtherAlgorithms(t *testing.T) {
	svc := newTestService(&fakeClock{t: time.Now()})

	claims := jwt.MapClaims{"id": "u-1", "sub": "a@b.c", "exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = svc.Verify(none)
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestVerify_MissingClaims(t *testing.T) {
	svc := newTestService(&fakeClock{t: time.Now()})

	claims := jwt.MapClaims{"sub": "a@b.c", "iss": "storefront", "exp": time.Now().Add(time.Hour).Unix()}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = svc.Verify(raw)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_TamperedPayload(t *testing.T) {
	svc := newTestService(&fakeClock{t: time.Now()})

	raw, _, err := svc.Issue(alice)
	require.NoError(t, err)
	parts := strings.Split(raw, ".")
	require.Len(t, parts, 3)

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	require.NoError(t, err)
	require.Contains(t, string(payload), `"USER"`)
	promoted := strings.Replace(string(payload), `"USER"`, `"ADMIN"`, 1)

	forged := parts[0] + "." + base64.RawURLEncoding.EncodeToString([]byte(promoted)) + "." + parts[2]
	_, err = svc.Verify(forged)
	assert.ErrorIs(t, err, ErrInvalidSignature)

	undecodable := parts[0] + ".%%%" + parts[1] + "." + parts[2]
	_, err = svc.Verify(undecodable)
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestVerify_Garbage(t *testing.T) {
	svc := newTestService(&fakeClock{t: time.Now()})
	_, err := svc.Verify("not-a-token")
	assert.ErrorIs(t, err, ErrMalformed)
}
