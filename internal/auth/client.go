package auth

import (
	"context"
	"log/slog"
	"sync"

	"bookdot/internal/observability"
)

// Provider hands out and revokes anonymous sessions.
type Provider interface {
	SignInAnonymously(ctx context.Context) (*Session, error)
	Revoke(ctx context.Context, uid string) error
}

// Client holds the device's current session in memory.
type Client struct {
	provider Provider

	mu      sync.RWMutex
	session *Session
}

func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// SignInAnonymously replaces the current session with a new one.
func (c *Client) SignInAnonymously(ctx context.Context) (*Session, error) {
	s, err := c.provider.SignInAnonymously(ctx)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
	return s, nil
}

// SignOut drops the current session. The local session is cleared even when
// revocation fails.
func (c *Client) SignOut(ctx context.Context) {
	c.mu.Lock()
	s := c.session
	c.session = nil
	c.mu.Unlock()

	if s == nil {
		return
	}
	if err := c.provider.Revoke(ctx, s.UID); err != nil {
		observability.Logger.WarnContext(ctx, "session revocation failed",
			slog.String("uid", s.UID),
			slog.String("error", err.Error()),
		)
	}
}

// CurrentSession returns the active session or nil.
func (c *Client) CurrentSession() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.session
}

// CurrentUserID returns the uid of the active session, or "" when signed out.
func (c *Client) CurrentUserID() string {
	if s := c.CurrentSession(); s != nil {
		return s.UID
	}
	return ""
}

// Token returns the bearer token of the active session, or "".
func (c *Client) Token() string {
	if s := c.CurrentSession(); s != nil {
		return s.Token
	}
	return ""
}
