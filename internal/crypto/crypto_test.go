package crypto

import (
	"encoding/base64"
	"errors"
	"strings"
	"testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	svc, err := NewWithRandomKey()
	if err != nil {
		t.Fatalf("NewWithRandomKey: %v", err)
	}

	tests := []string{
		"senha do wifi: hunter2",
		"",
		"conteúdo com acentuação e emoji 🤫",
		strings.Repeat("x", 64*1024),
	}
	for _, plaintext := range tests {
		ciphertext, err := svc.EncryptText(plaintext)
		if err != nil {
			t.Fatalf("EncryptText: %v", err)
		}
		if ciphertext == plaintext && plaintext != "" {
			t.Error("ciphertext igual ao plaintext")
		}

		got, err := svc.DecryptText(ciphertext)
		if err != nil {
			t.Fatalf("DecryptText: %v", err)
		}
		if got != plaintext {
			t.Errorf("round-trip divergente: esperava %q, obteve %q", plaintext, got)
		}
	}
}

func TestEncryptProducesDistinctCiphertexts(t *testing.T) {
	svc, _ := NewWithRandomKey()

	a, _ := svc.EncryptText("mesmo conteúdo")
	b, _ := svc.EncryptText("mesmo conteúdo")
	if a == b {
		t.Error("dois EncryptText do mesmo texto não podem coincidir (nonce aleatório)")
	}
}

func TestDecryptWithWrongKeyFails(t *testing.T) {
	svc1, _ := NewWithRandomKey()
	svc2, _ := NewWithRandomKey()

	ciphertext, _ := svc1.EncryptText("segredo")
	if _, err := svc2.DecryptText(ciphertext); !errors.Is(err, ErrCrypto) {
		t.Errorf("esperava ErrCrypto com chave trocada, obteve %v", err)
	}
}

func TestDecryptMalformedInput(t *testing.T) {
	svc, _ := NewWithRandomKey()

	for _, bad := range []string{"", "não é base64!", "YWJj", "YQ=="} {
		if _, err := svc.DecryptText(bad); !errors.Is(err, ErrCrypto) {
			t.Errorf("DecryptText(%q): esperava ErrCrypto, obteve %v", bad, err)
		}
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	svc, _ := NewWithRandomKey()

	ciphertext, _ := svc.EncryptText("segredo")
	tampered := []byte(ciphertext)
	// Troca um caractere do corpo base64 por outro válido
	if tampered[len(tampered)-5] == 'A' {
		tampered[len(tampered)-5] = 'B'
	} else {
		tampered[len(tampered)-5] = 'A'
	}

	if _, err := svc.DecryptText(string(tampered)); !errors.Is(err, ErrCrypto) {
		t.Errorf("esperava ErrCrypto em ciphertext adulterado, obteve %v", err)
	}
}

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("correto cavalo bateria grampo")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}

	if !VerifyPassword("correto cavalo bateria grampo", hash) {
		t.Error("senha correta não verificou")
	}
	if VerifyPassword("senha errada", hash) {
		t.Error("senha errada verificou")
	}
	if VerifyPassword("", hash) {
		t.Error("senha vazia verificou")
	}
}

func TestHashPasswordUsesFreshSalt(t *testing.T) {
	a, _ := HashPassword("mesma senha")
	b, _ := HashPassword("mesma senha")
	if a == b {
		t.Error("dois hashes da mesma senha não podem coincidir (salt por chamada)")
	}
	if !VerifyPassword("mesma senha", a) || !VerifyPassword("mesma senha", b) {
		t.Error("ambos os hashes deveriam verificar")
	}
}

func TestVerifyPasswordMalformedHash(t *testing.T) {
	// Nunca deve retornar true nem entrar em pânico
	for _, bad := range []string{"", "lixo", "YWJj", "====", "\x00\x01"} {
		if VerifyPassword("qualquer", bad) {
			t.Errorf("VerifyPassword aceitou hash malformado %q", bad)
		}
	}
}

func TestGenerateTransferID(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id, err := GenerateTransferID()
		if err != nil {
			t.Fatalf("GenerateTransferID: %v", err)
		}
		// 32 bytes em base64url sem padding = 43 caracteres
		if len(id) != 43 {
			t.Fatalf("tamanho inesperado de ID: %d (%s)", len(id), id)
		}
		if strings.ContainsAny(id, "+/=") {
			t.Fatalf("ID não é seguro para URL: %s", id)
		}
		if seen[id] {
			t.Fatalf("ID repetido: %s", id)
		}
		seen[id] = true
	}
}

func TestParseKey(t *testing.T) {
	svc, _ := NewWithRandomKey()
	ciphertext, _ := svc.EncryptText("durável")

	// Chave exportada e reimportada decifra o mesmo conteúdo
	encoded := base64.URLEncoding.EncodeToString(svc.key)
	key, err := ParseKey(encoded)
	if err != nil {
		t.Fatalf("ParseKey: %v", err)
	}
	svc2, err := New(key)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	got, err := svc2.DecryptText(ciphertext)
	if err != nil || got != "durável" {
		t.Errorf("esperava decifrar com a chave reimportada, obteve (%q, %v)", got, err)
	}

	if _, err := ParseKey("curta"); err == nil {
		t.Error("esperava erro para chave de tamanho errado")
	}
}
