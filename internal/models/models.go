package models

import (
	"time"
)

// TransferKind indica o tipo de conteúdo de uma transferência
type TransferKind string

const (
	KindText TransferKind = "text"
	KindFile TransferKind = "file"
)

// User representa um usuário do sistema com rastreamento de uso.
// O ID é um identificador numérico opaco fornecido pela camada externa
// (o backend do bot); não há cadastro nem senha de conta.
type User struct {
	ID                 int64  `json:"id"`
	Username           string `json:"username,omitempty"`
	IsPremium          bool   `json:"isPremium"`
	TransfersSentToday int    `json:"transfersSentToday"`
	LastResetDate      string `json:"lastResetDate"` // formato YYYY-MM-DD
	TotalTransfers     int64  `json:"totalTransfers"`
}

// Transfer representa uma transferência de uso único com expiração
type Transfer struct {
	ID          string       `json:"id"`
	SenderID    int64        `json:"senderId"`
	RecipientID *int64       `json:"recipientId,omitempty"`
	Kind        TransferKind `json:"kind"`

	// Para KindText: texto cifrado (AES-GCM, auto-contido, opaco)
	Ciphertext string `json:"ciphertext,omitempty"`

	// Para KindFile: referência ao blob no storage externo + metadados
	BlobKey  string `json:"blobKey,omitempty"`
	FileName string `json:"fileName,omitempty"`
	FileSize int64  `json:"fileSize,omitempty"`

	// Hash de senha (PBKDF2, salt embutido); vazio se sem senha
	PasswordHash string `json:"passwordHash,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"` // imutável após a criação
}

// Expired informa se a transferência já passou do prazo no instante dado
func (t *Transfer) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}

// HasPassword informa se a transferência exige senha para ser lida
func (t *Transfer) HasPassword() bool {
	return t.PasswordHash != ""
}
