package auth

import (
	"testing"
	"time"
)

func newTestManager(accessTTL time.Duration) *Manager {
	return NewManager("test-secret-key", accessTTL, 24*time.Hour)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := newTestManager(time.Hour)

	token, err := m.GenerateAccessToken("u-1", "sam", "user")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	claims, err := m.VerifyAccessToken(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.UserID != "u-1" || claims.Username != "sam" || claims.Role != "user" {
		t.Fatalf("claims = %+v, want u-1/sam/user", claims)
	}
	if claims.TokenType != "access" {
		t.Fatalf("typ = %q, want access", claims.TokenType)
	}
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	m := newTestManager(time.Hour)

	raw, jti, expiresAt, err := m.GenerateRefreshToken("u-1", "sam", "user")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if jti == "" {
		t.Fatalf("expected a jti")
	}
	if !expiresAt.After(time.Now()) {
		t.Fatalf("expiry %v must be in the future", expiresAt)
	}

	claims, err := m.VerifyRefreshToken(raw)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if claims.JTI != jti {
		t.Fatalf("jti = %q, want %q", claims.JTI, jti)
	}
}

func TestTokenTypeIsEnforced(t *testing.T) {
	m := newTestManager(time.Hour)

	access, err := m.GenerateAccessToken("u-1", "sam", "user")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	refresh, _, _, err := m.GenerateRefreshToken("u-1", "sam", "user")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}

	// a refresh token cannot act as an access token, and vice versa
	if _, err := m.VerifyAccessToken(refresh); err == nil {
		t.Fatalf("refresh token accepted as access token")
	}
	if _, err := m.VerifyRefreshToken(access); err == nil {
		t.Fatalf("access token accepted as refresh token")
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	m := newTestManager(-time.Minute)

	token, err := m.GenerateAccessToken("u-1", "sam", "user")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := m.VerifyAccessToken(token); err == nil {
		t.Fatalf("expired token accepted")
	}
}

func TestWrongSecretRejected(t *testing.T) {
	m := newTestManager(time.Hour)
	other := NewManager("a-different-secret", time.Hour, 24*time.Hour)

	token, err := m.GenerateAccessToken("u-1", "sam", "user")
	if err != nil {
		t.Fatalf("generate failed: %v", err)
	}
	if _, err := other.VerifyAccessToken(token); err == nil {
		t.Fatalf("token verified with the wrong secret")
	}
}

func TestHashRefreshToken(t *testing.T) {
	m := newTestManager(time.Hour)

	h1 := m.HashRefreshToken("raw-token")
	h2 := m.HashRefreshToken("raw-token")
	h3 := m.HashRefreshToken("other-token")

	if h1 != h2 {
		t.Fatalf("hash must be deterministic")
	}
	if h1 == h3 {
		t.Fatalf("different tokens must not collide")
	}
	if h1 == "raw-token" || len(h1) != 64 {
		t.Fatalf("hash %q does not look like hex sha256", h1)
	}
}
