package jwt

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Options{
		AccessDuration:  time.Minute,
		RefreshDuration: time.Hour,
		Issuer:          "test",
	})
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestTokenPairSharesSession(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, err := m.GenerateTokenPair(Identity{UserID: "u1", Email: "a@campus.edu", Username: "ada"})
	if err != nil {
		t.Fatal(err)
	}

	access, err := m.ValidateAccessToken(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("access: %v", err)
	}
	refresh, err := m.ValidateToken(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if access.SessionID == "" || access.SessionID != refresh.SessionID || access.SessionID != pair.SessionID {
		t.Errorf("session ids differ: %q %q %q", access.SessionID, refresh.SessionID, pair.SessionID)
	}
	if access.Username != "ada" || access.Type != TypeAccess || refresh.Type != TypeRefresh {
		t.Errorf("claims = %+v / %+v", access, refresh)
	}

	if _, err := m.ValidateAccessToken(ctx, pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh as access: err = %v, want ErrInvalidToken", err)
	}
}

func TestRevokeSessionLeavesOthersValid(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()
	id := Identity{UserID: "u1", Email: "a@campus.edu", Username: "ada"}

	first, _ := m.GenerateTokenPair(id)
	second, _ := m.GenerateTokenPair(id)

	if err := m.RevokeSession(ctx, first.SessionID); err != nil {
		t.Fatal(err)
	}

	if _, err := m.ValidateAccessToken(ctx, first.AccessToken); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("revoked access: err = %v", err)
	}
	if _, _, err := m.RefreshTokens(ctx, first.RefreshToken); !errors.Is(err, ErrRevokedToken) {
		t.Errorf("revoked refresh: err = %v", err)
	}
	if _, err := m.ValidateAccessToken(ctx, second.AccessToken); err != nil {
		t.Errorf("other session: %v", err)
	}
}

func TestRefreshKeepsSessionID(t *testing.T) {
	m := newTestManager(t)
	ctx := context.Background()

	pair, _ := m.GenerateTokenPair(Identity{UserID: "u1"})
	next, claims, err := m.RefreshTokens(ctx, pair.RefreshToken)
	if err != nil {
		t.Fatal(err)
	}
	if next.SessionID != pair.SessionID || claims.UserID != "u1" {
		t.Errorf("refreshed session = %q, want %q", next.SessionID, pair.SessionID)
	}
	if _, _, err := m.RefreshTokens(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access as refresh: err = %v", err)
	}
}

func TestRejectsForeignAndExpiredTokens(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	other := newTestManager(t)

	pair, _ := other.GenerateTokenPair(Identity{UserID: "u1"})
	if _, err := m.ValidateToken(ctx, pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("foreign key: err = %v", err)
	}
	if _, err := m.ValidateToken(ctx, "not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("garbage: err = %v", err)
	}

	short, err := NewManager(Options{AccessDuration: -time.Minute, RefreshDuration: time.Hour, Issuer: "test"})
	if err != nil {
		t.Fatal(err)
	}
	expired, _ := short.GenerateTokenPair(Identity{UserID: "u1"})
	if _, err := short.ValidateAccessToken(ctx, expired.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("expired: err = %v", err)
	}
}

func TestMemoryRevocationExpires(t *testing.T) {
	s := NewMemoryRevocationStore()
	ctx := context.Background()

	s.Revoke(ctx, "live", time.Now().Add(time.Hour))
	s.Revoke(ctx, "stale", time.Now().Add(-time.Second))

	if ok, _ := s.IsRevoked(ctx, "live"); !ok {
		t.Error("live revocation not reported")
	}
	if ok, _ := s.IsRevoked(ctx, "stale"); ok {
		t.Error("stale revocation still reported")
	}
	s.Cleanup()
	if ok, _ := s.IsRevoked(ctx, "missing"); ok {
		t.Error("unknown session reported revoked")
	}
}
