package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"secshare-backend/internal/models"
	"secshare-backend/internal/repository"
)

// UserService lida com a lógica de negócios de usuários: criação
// preguiçosa, contadores de uso e serialização por usuário
type UserService struct {
	store  repository.UserStore
	policy *QuotaPolicy

	// Um mutex por usuário: mutações de contador (e a admissão de cota no
	// engine) são serializadas por ID, sem lock global entre usuários
	locks sync.Map // int64 -> *sync.Mutex
}

// NewUserService cria um novo serviço de usuário
func NewUserService(store repository.UserStore, policy *QuotaPolicy) *UserService {
	return &UserService{
		store:  store,
		policy: policy,
	}
}

// LockUser adquire o mutex do usuário e devolve a função de liberação.
// O engine o segura da checagem de cota até o incremento do contador, para
// que dois envios concorrentes não sejam ambos admitidos com contador velho.
func (s *UserService) LockUser(userID int64) func() {
	v, _ := s.locks.LoadOrStore(userID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// GetOrCreate devolve o usuário existente ou cria um com contadores
// zerados. IDs da lista de administradores são forçados a premium em todo
// acesso — o privilégio não é estado que alguém consiga desligar sem querer.
func (s *UserService) GetOrCreate(ctx context.Context, userID int64, username string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, userID)
	changed := false
	if errors.Is(err, repository.ErrNotFound) {
		user = &models.User{
			ID:       userID,
			Username: username,
		}
		changed = true
	} else if err != nil {
		return nil, fmt.Errorf("falha ao buscar usuário %d: %w", userID, err)
	}

	if username != "" && user.Username != username {
		user.Username = username
		changed = true
	}
	if s.policy.IsAdmin(userID) && !user.IsPremium {
		user.IsPremium = true
		changed = true
	}

	if changed {
		if err := s.store.SaveUser(ctx, user); err != nil {
			// Persistência é best-effort; o estado em memória segue valendo
			log.Printf("Erro ao salvar usuário %d: %v", userID, err)
		}
	}
	return user, nil
}

// Save persiste o estado atual do usuário (ex.: após o reset diário)
func (s *UserService) Save(ctx context.Context, user *models.User) error {
	return s.store.SaveUser(ctx, user)
}

// RecordTransferSent incrementa os contadores de envio do usuário.
// Deve ser chamado com o lock do usuário em posse (via LockUser).
func (s *UserService) RecordTransferSent(ctx context.Context, userID int64) error {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("falha ao buscar usuário %d: %w", userID, err)
	}

	user.TransfersSentToday++
	user.TotalTransfers++

	if err := s.store.SaveUser(ctx, user); err != nil {
		return fmt.Errorf("falha ao salvar contadores do usuário %d: %w", userID, err)
	}
	return nil
}
