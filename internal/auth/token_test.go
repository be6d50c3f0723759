package auth

import (
	"errors"
	"testing"
	"time"
)

func TestIssueAndValidate_Success(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("super-secret")

	tok, err := svc.Issue(7, "a@b.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	claims, err := svc.Validate(tok)
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	if claims.SubjectID != 7 {
		t.Fatalf("subject mismatch: got %d want 7", claims.SubjectID)
	}
	if claims.Email != "a@b.com" {
		t.Fatalf("email mismatch: got %q want %q", claims.Email, "a@b.com")
	}
	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 || ttl > TokenTTL {
		t.Fatalf("unexpected expiry %v from now", ttl)
	}
}

func TestValidate_Expired(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("secret")
	svc.ttl = -time.Second

	tok, err := svc.Issue(1, "u@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := svc.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	t.Parallel()

	tok, err := NewTokenService("right-secret").Issue(2, "u2@x.com")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := NewTokenService("wrong-secret").Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}
}

func TestValidate_MalformedString(t *testing.T) {
	t.Parallel()

	if _, err := NewTokenService("k").Validate("not.a.jwt"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for malformed token, got %v", err)
	}
}

func TestValidate_MissingIdentityClaims(t *testing.T) {
	t.Parallel()

	svc := NewTokenService("k")

	tok, err := svc.Issue(0, "")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := svc.Validate(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for empty identity, got %v", err)
	}
}
