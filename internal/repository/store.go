package repository

import (
	"context"
	"errors"
	"time"

	"secshare-backend/internal/models"
)

// ErrNotFound indica registro ausente do store
var ErrNotFound = errors.New("registro não encontrado")

// ErrDuplicateID indica colisão de ID na inserção de uma transferência.
// Com 256 bits de entropia é praticamente impossível, mas o chamador deve
// gerar um novo ID e tentar de novo.
var ErrDuplicateID = errors.New("ID de transferência já existe")

// UserStore define as operações de usuário no store
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
	AllUsers(ctx context.Context) ([]*models.User, error)
}

// TransferStore define as operações de transferência no store.
// RemoveTransfer e RemoveExpired são as únicas formas de remoção e cada
// registro só é devolvido por elas uma única vez, mesmo sob concorrência —
// é isso que garante a liberação exatamente-uma-vez do blob associado.
type TransferStore interface {
	GetTransfer(ctx context.Context, id string) (*models.Transfer, error)
	InsertTransfer(ctx context.Context, transfer *models.Transfer) error
	RemoveTransfer(ctx context.Context, id string) (*models.Transfer, error)
	RemoveExpired(ctx context.Context, now time.Time) ([]*models.Transfer, error)
	AllTransfers(ctx context.Context) ([]*models.Transfer, error)
}

// Store é uma interface agregada para todas as operações de store
// Facilita a injeção de dependência
type Store interface {
	UserStore
	TransferStore
}

// Snapshot é o colaborador de persistência durável: grava e lê coleções
// inteiras de uma vez (estilo snapshot JSON). Atomicidade entre as duas
// coleções não é exigida; cada uma é gravada de forma independente.
type Snapshot interface {
	LoadUsers(ctx context.Context) (map[int64]*models.User, error)
	SaveUsers(ctx context.Context, users map[int64]*models.User) error
	LoadTransfers(ctx context.Context) (map[string]*models.Transfer, error)
	SaveTransfers(ctx context.Context, transfers map[string]*models.Transfer) error
}
