package cli

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"doseclock/internal/adapters/auth/jwtauth"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append(args, "--log-level", "error"))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestToken_IssuesVerifiableToken(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")

	out, err := run(t, "token", "--user", "u1", "--ttl", "1h")
	if err != nil {
		t.Fatalf("token: %v", err)
	}

	claims, err := jwtauth.NewVerifier("s3cret", "").Verify(context.Background(), strings.TrimSpace(out))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != "u1" {
		t.Fatalf("expected u1, got %+v", claims)
	}
}

func TestToken_RequiresSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := run(t, "token", "--user", "u1"); err == nil {
		t.Fatalf("expected error without JWT_SECRET")
	}
}

func TestEvaluate_DryRunOnEmptyStore(t *testing.T) {
	db := filepath.Join(t.TempDir(), "doseclock.db")

	out, err := run(t, "evaluate", "--dry-run", "--at", "2025-03-01T08:00:00Z", "--sqlite", db)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if !strings.Contains(out, "dry-run") || !strings.Contains(out, "storage=sqlite") {
		t.Fatalf("unexpected output:\n%s", out)
	}
	if !strings.Contains(out, "missed:     0") {
		t.Fatalf("expected nothing missed:\n%s", out)
	}
}

func TestEvaluate_RejectsBadInstant(t *testing.T) {
	if _, err := run(t, "evaluate", "--at", "mañana"); err == nil {
		t.Fatalf("expected error for bad --at")
	}
}

func TestUpcoming_ValidatesFlags(t *testing.T) {
	if _, err := run(t, "upcoming"); err == nil {
		t.Fatalf("expected error without --user")
	}
	if _, err := run(t, "upcoming", "--user", "u1", "--days", "31"); err == nil {
		t.Fatalf("expected error for --days 31")
	}

	out, err := run(t, "upcoming", "--user", "u1")
	if err != nil {
		t.Fatalf("upcoming: %v", err)
	}
	if !strings.Contains(out, "no upcoming doses") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestCountdown_PastTargetFiresImmediately(t *testing.T) {
	past := time.Now().Add(-time.Minute).UTC().Format(time.RFC3339)

	out, err := run(t, "countdown", "--to", past, "--reference", "not-a-time", "--tick", "10ms")
	if err != nil {
		t.Fatalf("countdown: %v", err)
	}
	if strings.TrimSpace(out) != "now" {
		t.Fatalf("expected only %q, got %q", "now", out)
	}
}
