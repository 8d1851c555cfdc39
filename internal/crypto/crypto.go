package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// KeySize é o tamanho da chave simétrica (AES-256)
	KeySize = 32

	saltSize       = 16
	derivedKeySize = 32
	kdfIterations  = 100_000
)

// ErrCrypto é retornado quando um ciphertext é malformado ou a autenticação
// falha (dado corrompido ou chave trocada, ex.: após um restart)
var ErrCrypto = fmt.Errorf("falha criptográfica no conteúdo armazenado")

// Service cifra textos armazenados e deriva/verifica hashes de senha.
// A chave vive pela duração do processo e é injetada na construção,
// nunca um singleton global.
type Service struct {
	key []byte
}

// New cria um Service com a chave fornecida (32 bytes)
func New(key []byte) (*Service, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("chave de criptografia deve ter %d bytes, recebeu %d", KeySize, len(key))
	}
	return &Service{key: key}, nil
}

// NewWithRandomKey cria um Service com uma chave aleatória de processo.
// Ciphertexts persistidos não sobrevivem a um restart neste modo.
func NewWithRandomKey() (*Service, error) {
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("falha ao gerar chave aleatória: %w", err)
	}
	return New(key)
}

// EncryptText cifra um texto UTF-8 com AES-256-GCM. O resultado é
// auto-contido (nonce prefixado, tag embutida) e codificado em base64url,
// seguro para armazenar como string opaca.
func (s *Service) EncryptText(plaintext string) (string, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("falha ao inicializar cifra: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("falha ao inicializar GCM: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("falha ao gerar nonce: %w", err)
	}

	sealed := gcm.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

// DecryptText decifra um ciphertext produzido por EncryptText.
// Retorna ErrCrypto se o dado for malformado ou a autenticação falhar.
func (s *Service) DecryptText(ciphertext string) (string, error) {
	raw, err := base64.URLEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", ErrCrypto
	}

	block, err := aes.NewCipher(s.key)
	if err != nil {
		return "", fmt.Errorf("falha ao inicializar cifra: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("falha ao inicializar GCM: %w", err)
	}

	if len(raw) < gcm.NonceSize() {
		return "", ErrCrypto
	}

	nonce, sealed := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		// Tag inválida: dado adulterado ou chave diferente
		return "", ErrCrypto
	}
	return string(plaintext), nil
}

// HashPassword deriva um hash de senha com PBKDF2-HMAC-SHA256 (100k
// iterações) e salt aleatório por chamada. Salt e chave derivada são
// empacotados juntos em base64url.
func HashPassword(password string) (string, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return "", fmt.Errorf("falha ao gerar salt: %w", err)
	}

	key := pbkdf2.Key([]byte(password), salt, kdfIterations, derivedKeySize, sha256.New)
	return base64.URLEncoding.EncodeToString(append(salt, key...)), nil
}

// VerifyPassword recomputa a derivação com o salt embutido e compara em
// tempo constante. Retorna false (nunca erro) para hashes malformados.
func VerifyPassword(password, packedHash string) bool {
	decoded, err := base64.URLEncoding.DecodeString(packedHash)
	if err != nil || len(decoded) != saltSize+derivedKeySize {
		return false
	}

	salt, stored := decoded[:saltSize], decoded[saltSize:]
	key := pbkdf2.Key([]byte(password), salt, kdfIterations, derivedKeySize, sha256.New)
	return hmac.Equal(stored, key)
}

// GenerateTransferID gera um identificador de transferência com 32 bytes
// de entropia (crypto/rand), seguro para URL e não-adivinhável
func GenerateTransferID() (string, error) {
	b := make([]byte, 32)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return "", fmt.Errorf("falha ao gerar ID de transferência: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// ParseKey decodifica uma chave base64url de 32 bytes vinda da configuração
func ParseKey(encoded string) ([]byte, error) {
	key, err := base64.URLEncoding.DecodeString(encoded)
	if err != nil {
		// Aceita também a variante sem padding
		key, err = base64.RawURLEncoding.DecodeString(encoded)
		if err != nil {
			return nil, fmt.Errorf("chave de criptografia não é base64url válido: %w", err)
		}
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("chave de criptografia deve ter %d bytes, recebeu %d", KeySize, len(key))
	}
	return key, nil
}
