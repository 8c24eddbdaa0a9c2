package auth

import (
	"errors"
	"testing"
	"time"

	"audioshelf/internal/config"
)

func newTestAuthenticator(t *testing.T) *Authenticator {
	t.Helper()
	cfg := config.Default()
	cfg.Auth.TokenSecret = "secret"
	cfg.Auth.TokenTTLHours = 1
	cfg.Auth.Users = []config.User{{ID: "alice", Username: "alice", CanUpdate: true}}
	return New(&cfg)
}

func TestIssueAndVerify(t *testing.T) {
	a := newTestAuthenticator(t)
	if !a.Enabled() {
		t.Fatal("expected auth enabled with users")
	}
	token, expires, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if time.Until(expires) <= 0 {
		t.Fatalf("expected future expiry, got %v", expires)
	}
	user, err := a.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if user.ID != "alice" || !user.CanUpdate || user.CanDelete {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestIssueUnknownUser(t *testing.T) {
	a := newTestAuthenticator(t)
	if _, _, err := a.Issue("bob"); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected unknown user, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	a.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := a.Verify(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected expired token to fail, got %v", err)
	}
}

func TestVerifyRejectsForeignSecret(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	other := newTestAuthenticator(t)
	other.secret = []byte("different")
	if _, err := other.Verify(token); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected signature failure, got %v", err)
	}
	if _, err := a.Verify(""); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("expected empty token to fail, got %v", err)
	}
}

func TestVerifyRejectsRemovedUser(t *testing.T) {
	a := newTestAuthenticator(t)
	token, _, err := a.Issue("alice")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	delete(a.users, "alice")
	if _, err := a.Verify(token); !errors.Is(err, ErrUnknownUser) {
		t.Fatalf("expected unknown user, got %v", err)
	}
}

func TestFromHeader(t *testing.T) {
	if got := FromHeader("Bearer abc "); got != "abc" {
		t.Fatalf("unexpected token %q", got)
	}
	if got := FromHeader("Basic abc"); got != "" {
		t.Fatalf("expected empty token, got %q", got)
	}
}
