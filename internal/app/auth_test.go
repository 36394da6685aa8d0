package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
	"classquiz-service/internal/infra/memory"
)

func newAuthFixture() (*memory.Store, *app.Authenticator) {
	store := memory.NewStore(nil)
	store.AddUser(domain.User{Username: "teacher", Password: "demo123", Role: "teacher"})
	return store, app.NewAuthenticator(store, "test-secret", time.Hour)
}

func TestLoginAndVerify(t *testing.T) {
	_, auth := newAuthFixture()

	token, user, err := auth.Login(context.Background(), "teacher", "demo123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if user.Role != "teacher" {
		t.Fatalf("expected teacher role, got %q", user.Role)
	}

	username, role, err := auth.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if username != "teacher" || role != "teacher" {
		t.Fatalf("unexpected claims: %q %q", username, role)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	_, auth := newAuthFixture()

	if _, _, err := auth.Login(context.Background(), "teacher", "wrong"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if _, _, err := auth.Login(context.Background(), "nobody", "demo123"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for unknown user, got %v", err)
	}
}

func TestVerifyRejectsForeignToken(t *testing.T) {
	store, _ := newAuthFixture()
	issuer := app.NewAuthenticator(store, "secret-a", time.Hour)
	verifier := app.NewAuthenticator(store, "secret-b", time.Hour)

	token, _, err := issuer.Login(context.Background(), "teacher", "demo123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, _, err := verifier.Verify(token); err == nil {
		t.Fatalf("expected verification failure with wrong secret")
	}
	if _, _, err := verifier.Verify("not-a-token"); err == nil {
		t.Fatalf("expected verification failure for garbage input")
	}
}
