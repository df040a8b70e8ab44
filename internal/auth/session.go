// Package auth supplies the bearer credential for the remote expense
// API. The identity provider is external; this package only fetches an
// opaque session and reports whether a token is present.
package auth

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// Session is the opaque result of a session fetch. The token is never
// inspected; DisplayName is an optional capability for the UI header.
type Session struct {
	Token       string
	DisplayName string
}

// Authenticated reports whether a credential is present.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Provider fetches the current session from the identity provider.
type Provider interface {
	Session(ctx context.Context) (Session, error)
}

// EnvProvider reads the session token from an environment-supplied
// value or a token file, whichever is set. A missing token is not an
// error: the session is simply unauthenticated.
type EnvProvider struct {
	Token       string
	TokenFile   string
	DisplayName string
}

func (p *EnvProvider) Session(_ context.Context) (Session, error) {
	token := strings.TrimSpace(p.Token)
	if token == "" && p.TokenFile != "" {
		raw, err := os.ReadFile(p.TokenFile)
		if err != nil {
			return Session{}, fmt.Errorf("read session token file: %w", err)
		}
		token = strings.TrimSpace(string(raw))
	}
	return Session{Token: token, DisplayName: p.DisplayName}, nil
}

// Cached wraps a Provider with a TTL so token files are not re-read on
// every API call. SignOut drops the cached session.
type Cached struct {
	mu        sync.Mutex
	inner     Provider
	ttl       time.Duration
	session   Session
	fetchedAt time.Time
}

func NewCached(inner Provider, ttl time.Duration) *Cached {
	return &Cached{inner: inner, ttl: ttl}
}

func (c *Cached) Session(ctx context.Context) (Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.fetchedAt.IsZero() && time.Since(c.fetchedAt) < c.ttl {
		return c.session, nil
	}
	s, err := c.inner.Session(ctx)
	if err != nil {
		return Session{}, err
	}
	c.session = s
	c.fetchedAt = time.Now()
	return s, nil
}

// SignOut forgets the cached session; the next call hits the provider.
func (c *Cached) SignOut() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = Session{}
	c.fetchedAt = time.Time{}
}
