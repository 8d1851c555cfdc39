package repository

import (
	"context"
	"log"
	"sync"
	"time"

	"secshare-backend/internal/models"
)

// InMemoryStore é a implementação em-memória da interface Store. O estado
// em memória é a verdade autoritativa; cada mutação agenda um flush
// assíncrono e best-effort do snapshot para o colaborador de persistência,
// fora da seção crítica (falha de persistência é logada, nunca desfaz a
// mutação em memória).
type InMemoryStore struct {
	mu        sync.RWMutex
	users     map[int64]*models.User
	transfers map[string]*models.Transfer

	snap  Snapshot
	dirty chan struct{}
	done  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

// NewInMemoryStore cria um store em memória. O snapshot pode ser nil
// (sem persistência, útil em testes).
func NewInMemoryStore(snap Snapshot) *InMemoryStore {
	s := &InMemoryStore{
		users:     make(map[int64]*models.User),
		transfers: make(map[string]*models.Transfer),
		snap:      snap,
		dirty:     make(chan struct{}, 1),
		done:      make(chan struct{}),
	}
	if snap != nil {
		s.wg.Add(1)
		go s.flushLoop()
	}
	return s
}

// Load carrega o estado persistido para a memória. Deve ser chamado uma
// vez no startup, antes de servir requisições.
func (s *InMemoryStore) Load(ctx context.Context) error {
	if s.snap == nil {
		return nil
	}

	users, err := s.snap.LoadUsers(ctx)
	if err != nil {
		return err
	}
	transfers, err := s.snap.LoadTransfers(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if users != nil {
		s.users = users
	}
	if transfers != nil {
		s.transfers = transfers
	}
	return nil
}

// Close encerra o flusher de snapshots, gravando um último flush síncrono
func (s *InMemoryStore) Close() {
	s.once.Do(func() {
		close(s.done)
	})
	s.wg.Wait()
}

// --- UserStore ---

func (s *InMemoryStore) GetUser(ctx context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyUser(user), nil
}

func (s *InMemoryStore) SaveUser(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	s.users[user.ID] = copyUser(user)
	s.mu.Unlock()

	s.markDirty()
	return nil
}

func (s *InMemoryStore) AllUsers(ctx context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, copyUser(u))
	}
	return users, nil
}

// --- TransferStore ---

func (s *InMemoryStore) GetTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfer, exists := s.transfers[id]
	if !exists {
		return nil, ErrNotFound
	}
	return copyTransfer(transfer), nil
}

func (s *InMemoryStore) InsertTransfer(ctx context.Context, transfer *models.Transfer) error {
	s.mu.Lock()
	if _, exists := s.transfers[transfer.ID]; exists {
		s.mu.Unlock()
		return ErrDuplicateID
	}
	s.transfers[transfer.ID] = copyTransfer(transfer)
	s.mu.Unlock()

	s.markDirty()
	return nil
}

// RemoveTransfer remove e devolve o registro. Sob concorrência, apenas um
// chamador recebe o registro; os demais recebem ErrNotFound.
func (s *InMemoryStore) RemoveTransfer(ctx context.Context, id string) (*models.Transfer, error) {
	s.mu.Lock()
	transfer, exists := s.transfers[id]
	if !exists {
		s.mu.Unlock()
		return nil, ErrNotFound
	}
	delete(s.transfers, id)
	s.mu.Unlock()

	s.markDirty()
	return transfer, nil
}

// RemoveExpired remove todas as transferências com ExpiresAt <= now e as
// devolve para que o chamador libere os blobs associados.
func (s *InMemoryStore) RemoveExpired(ctx context.Context, now time.Time) ([]*models.Transfer, error) {
	s.mu.Lock()
	var evicted []*models.Transfer
	for id, t := range s.transfers {
		if !t.ExpiresAt.After(now) {
			evicted = append(evicted, t)
			delete(s.transfers, id)
		}
	}
	s.mu.Unlock()

	if len(evicted) > 0 {
		s.markDirty()
	}
	return evicted, nil
}

func (s *InMemoryStore) AllTransfers(ctx context.Context) ([]*models.Transfer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	transfers := make([]*models.Transfer, 0, len(s.transfers))
	for _, t := range s.transfers {
		transfers = append(transfers, copyTransfer(t))
	}
	return transfers, nil
}

// --- flush assíncrono de snapshots ---

// markDirty agenda um flush sem bloquear o caminho da mutação
func (s *InMemoryStore) markDirty() {
	if s.snap == nil {
		return
	}
	select {
	case s.dirty <- struct{}{}:
	default:
		// Já existe um flush pendente
	}
}

func (s *InMemoryStore) flushLoop() {
	defer s.wg.Done()
	for {
		select {
		case <-s.dirty:
			s.flush()
		case <-s.done:
			// Último flush antes de encerrar
			s.flush()
			return
		}
	}
}

// flush grava um snapshot das duas coleções. Erros são logados e o estado
// em memória segue autoritativo até o próximo flush bem-sucedido.
func (s *InMemoryStore) flush() {
	s.mu.RLock()
	users := make(map[int64]*models.User, len(s.users))
	for id, u := range s.users {
		users[id] = copyUser(u)
	}
	transfers := make(map[string]*models.Transfer, len(s.transfers))
	for id, t := range s.transfers {
		transfers[id] = copyTransfer(t)
	}
	s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.snap.SaveUsers(ctx, users); err != nil {
		log.Printf("Erro ao persistir snapshot de usuários: %v", err)
	}
	if err := s.snap.SaveTransfers(ctx, transfers); err != nil {
		log.Printf("Erro ao persistir snapshot de transferências: %v", err)
	}
}

func copyUser(u *models.User) *models.User {
	c := *u
	return &c
}

func copyTransfer(t *models.Transfer) *models.Transfer {
	c := *t
	if t.RecipientID != nil {
		r := *t.RecipientID
		c.RecipientID = &r
	}
	return &c
}
