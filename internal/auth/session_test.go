package auth

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvProviderInlineToken(t *testing.T) {
	p := &EnvProvider{Token: " tok-123 ", DisplayName: "jenna"}
	s, err := p.Session(context.Background())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.Token != "tok-123" || !s.Authenticated() {
		t.Fatalf("unexpected session: %+v", s)
	}
	if s.DisplayName != "jenna" {
		t.Fatalf("unexpected display name: %q", s.DisplayName)
	}
}

func TestEnvProviderTokenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token")
	if err := os.WriteFile(path, []byte("file-tok\n"), 0o600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	p := &EnvProvider{TokenFile: path}
	s, err := p.Session(context.Background())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.Token != "file-tok" {
		t.Fatalf("unexpected token: %q", s.Token)
	}
}

func TestEnvProviderMissingTokenIsNotAnError(t *testing.T) {
	s, err := (&EnvProvider{}).Session(context.Background())
	if err != nil {
		t.Fatalf("session: %v", err)
	}
	if s.Authenticated() {
		t.Fatalf("expected unauthenticated session")
	}
}

type countingProvider struct {
	calls int
	s     Session
}

func (p *countingProvider) Session(context.Context) (Session, error) {
	p.calls++
	return p.s, nil
}

func TestCachedProvider(t *testing.T) {
	inner := &countingProvider{s: Session{Token: "t"}}
	c := NewCached(inner, time.Hour)

	for i := 0; i < 3; i++ {
		if _, err := c.Session(context.Background()); err != nil {
			t.Fatalf("session: %v", err)
		}
	}
	if inner.calls != 1 {
		t.Fatalf("expected 1 provider call, got %d", inner.calls)
	}

	c.SignOut()
	if _, err := c.Session(context.Background()); err != nil {
		t.Fatalf("session: %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected refetch after sign-out, got %d calls", inner.calls)
	}
}
