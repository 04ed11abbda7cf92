package httpapi

import (
	"testing"
	"time"

	"brewpos/backend/internal/domain"
	"brewpos/backend/internal/store/memory"
)

func TestLoginAndParseToken(t *testing.T) {
	auth := NewAuthManager("unit-test-secret", time.Hour, memory.New())

	resp, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "admin123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if resp.Role != "admin" {
		t.Fatalf("role = %s, want admin", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("ParseToken: %v", err)
	}
	if actor.Username != "admin" || actor.Role != "admin" {
		t.Fatalf("actor = %+v, want admin/admin", actor)
	}
}

func TestLoginRejectsBadPassword(t *testing.T) {
	auth := NewAuthManager("unit-test-secret", time.Hour, memory.New())

	if _, err := auth.Login(domain.LoginRequest{Username: "admin", Password: "wrong"}); err == nil {
		t.Fatalf("expected login to fail with a bad password")
	}
}

func TestParseTokenRejectsForeignSecret(t *testing.T) {
	issuer := NewAuthManager("secret-one", time.Hour, memory.New())
	verifier := NewAuthManager("secret-two", time.Hour, memory.New())

	resp, err := issuer.Login(domain.LoginRequest{Username: "cashier", Password: "cashier123"})
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestCreateCashierValidation(t *testing.T) {
	auth := NewAuthManager("unit-test-secret", time.Hour, memory.New())

	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "ab", Password: "longenough"}); err == nil {
		t.Fatalf("expected short username to be rejected")
	}
	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "barista1", Password: "123"}); err == nil {
		t.Fatalf("expected short password to be rejected")
	}

	created, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "barista1", Password: "secret99"})
	if err != nil {
		t.Fatalf("CreateCashier: %v", err)
	}
	if created.Role != "cashier" || !created.Active {
		t.Fatalf("cashier = %+v, want active cashier", created)
	}

	if _, err := auth.CreateCashier(domain.CashierCreateRequest{Username: "barista1", Password: "secret99"}); err == nil {
		t.Fatalf("expected duplicate username to be rejected")
	}
}
