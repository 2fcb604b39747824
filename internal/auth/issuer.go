// Package auth issues and holds anonymous sessions. The Issuer runs next to
// the backend and records every live session in Redis; the Client keeps the
// one session a device currently has.
package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bookdot/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	issuerName       = "bookdot-auth"
	sessionKeyPrefix = "auth:session:"
)

// Session is an anonymous identity plus the bearer token proving it.
type Session struct {
	UID       string    `json:"uid"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Issuer creates anonymous sessions and verifies their tokens.
type Issuer struct {
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewIssuer builds an Issuer signing with secret. Sessions live for ttl.
func NewIssuer(rdb *redis.Client, secret string, ttl time.Duration) *Issuer {
	return &Issuer{
		rdb:    rdb,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// SignInAnonymously creates a fresh uid with a signed token.
func (i *Issuer) SignInAnonymously(ctx context.Context) (*Session, error) {
	if len(i.secret) == 0 {
		return nil, fmt.Errorf("JWT secret not configured")
	}

	uid := uuid.NewString()
	jti := uuid.NewString()
	now := i.now()
	expiresAt := now.Add(i.ttl)

	claims := jwt.MapClaims{
		"sub": uid,
		"iss": issuerName,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": expiresAt.Unix(),
		"jti": jti,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	if err := i.rdb.Set(ctx, sessionKeyPrefix+uid, jti, i.ttl).Err(); err != nil {
		return nil, fmt.Errorf("record session: %w", err)
	}

	return &Session{UID: uid, Token: token, ExpiresAt: expiresAt}, nil
}

// Verify checks the token signature, issuer and expiry and that its session
// has not been revoked. It returns the session uid.
func (i *Issuer) Verify(ctx context.Context, tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return i.secret, nil
	},
		jwt.WithIssuer(issuerName),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return "", models.NewNotAuthenticatedError()
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", models.NewNotAuthenticatedError()
	}
	uid, _ := claims["sub"].(string)
	jti, _ := claims["jti"].(string)
	if uid == "" || jti == "" {
		return "", models.NewNotAuthenticatedError()
	}

	current, err := i.rdb.Get(ctx, sessionKeyPrefix+uid).Result()
	if errors.Is(err, redis.Nil) {
		return "", models.NewNotAuthenticatedError()
	}
	if err != nil {
		return "", models.NewInternalError(err)
	}
	if current != jti {
		return "", models.NewNotAuthenticatedError()
	}
	return uid, nil
}

// Revoke ends the session of uid. Revoking an unknown uid is a no-op.
func (i *Issuer) Revoke(ctx context.Context, uid string) error {
	return i.rdb.Del(ctx, sessionKeyPrefix+uid).Err()
}
