package auth

import (
	"testing"
)

func TestNewTokenServiceRequiresSecret(t *testing.T) {
	if _, err := NewTokenService(""); err == nil {
		t.Error("esperava erro para segredo vazio")
	}
}

func TestTokenRoundTrip(t *testing.T) {
	svc, err := NewTokenService("segredo-de-teste")
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}

	tokenString, err := svc.NewToken(123456789, "alice")
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}

	token, err := svc.ValidateToken(tokenString)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	userID, err := svc.GetUserIDFromToken(token)
	if err != nil {
		t.Fatalf("GetUserIDFromToken: %v", err)
	}
	if userID != 123456789 {
		t.Errorf("esperava 123456789, obteve %d", userID)
	}
	if username := svc.GetUsernameFromToken(token); username != "alice" {
		t.Errorf("esperava 'alice', obteve %q", username)
	}
}

func TestValidateTokenWrongSecret(t *testing.T) {
	svc1, _ := NewTokenService("segredo-a")
	svc2, _ := NewTokenService("segredo-b")

	tokenString, err := svc1.NewToken(1, "")
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if _, err := svc2.ValidateToken(tokenString); err == nil {
		t.Error("token assinado com outro segredo deveria falhar")
	}
}

func TestValidateTokenGarbage(t *testing.T) {
	svc, _ := NewTokenService("segredo")
	if _, err := svc.ValidateToken("nem.um.jwt"); err == nil {
		t.Error("lixo deveria falhar na validação")
	}
}
