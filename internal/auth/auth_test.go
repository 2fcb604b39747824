package auth

import (
	"context"
	"testing"
	"time"

	"bookdot/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-at-least-32-characters-long"

func setupIssuer(t *testing.T) (*Issuer, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewIssuer(rdb, testSecret, time.Hour), mr
}

func TestIssuer_SignInAndVerify(t *testing.T) {
	issuer, mr := setupIssuer(t)
	ctx := context.Background()

	s, err := issuer.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, s.UID)
	assert.True(t, mr.Exists("auth:session:"+s.UID))

	uid, err := issuer.Verify(ctx, s.Token)
	require.NoError(t, err)
	assert.Equal(t, s.UID, uid)

	other, err := issuer.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, s.UID, other.UID)
}

func TestIssuer_VerifyRejects(t *testing.T) {
	issuer, _ := setupIssuer(t)
	ctx := context.Background()
	s, err := issuer.SignInAnonymously(ctx)
	require.NoError(t, err)

	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": s.UID, "iss": "someone-else", "exp": time.Now().Add(time.Hour).Unix(), "jti": "x",
	})
	foreignToken, err := foreign.SignedString([]byte(testSecret))
	require.NoError(t, err)

	wrongKey := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": s.UID, "iss": issuerName, "exp": time.Now().Add(time.Hour).Unix(), "jti": "x",
	})
	wrongKeyToken, err := wrongKey.SignedString([]byte("another-secret-another-secret-000"))
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"foreign issuer", foreignToken},
		{"wrong key", wrongKeyToken},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(ctx, tt.token)
			assert.True(t, models.IsCode(err, models.CodeNotAuthenticated))
		})
	}
}

func TestIssuer_RevokeAndExpiry(t *testing.T) {
	issuer, mr := setupIssuer(t)
	ctx := context.Background()

	s, err := issuer.SignInAnonymously(ctx)
	require.NoError(t, err)
	require.NoError(t, issuer.Revoke(ctx, s.UID))
	_, err = issuer.Verify(ctx, s.Token)
	assert.True(t, models.IsCode(err, models.CodeNotAuthenticated))

	s, err = issuer.SignInAnonymously(ctx)
	require.NoError(t, err)
	mr.FastForward(2 * time.Hour)
	issuer.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = issuer.Verify(ctx, s.Token)
	assert.True(t, models.IsCode(err, models.CodeNotAuthenticated))
}

type stubProvider struct {
	next    int
	revoked []string
	revoke  error
}

func (p *stubProvider) SignInAnonymously(context.Context) (*Session, error) {
	p.next++
	uid := string(rune('a' + p.next))
	return &Session{UID: uid, Token: "token-" + uid}, nil
}

func (p *stubProvider) Revoke(_ context.Context, uid string) error {
	p.revoked = append(p.revoked, uid)
	return p.revoke
}

func TestClient_SessionLifecycle(t *testing.T) {
	p := &stubProvider{}
	c := NewClient(p)
	ctx := context.Background()

	assert.Nil(t, c.CurrentSession())
	assert.Equal(t, "", c.CurrentUserID())
	assert.Equal(t, "", c.Token())

	s, err := c.SignInAnonymously(ctx)
	require.NoError(t, err)
	assert.Equal(t, s.UID, c.CurrentUserID())
	assert.Equal(t, "token-"+s.UID, c.Token())

	c.SignOut(ctx)
	assert.Nil(t, c.CurrentSession())
	assert.Equal(t, []string{s.UID}, p.revoked)

	c.SignOut(ctx)
	assert.Len(t, p.revoked, 1, "signing out twice revokes once")
}

func TestClient_SignOutClearsEvenWhenRevokeFails(t *testing.T) {
	p := &stubProvider{revoke: assert.AnError}
	c := NewClient(p)
	ctx := context.Background()

	_, err := c.SignInAnonymously(ctx)
	require.NoError(t, err)
	c.SignOut(ctx)
	assert.Equal(t, "", c.CurrentUserID())
}
