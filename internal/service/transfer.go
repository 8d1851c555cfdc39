package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"secshare-backend/internal/crypto"
	"secshare-backend/internal/models"
	"secshare-backend/internal/repository"
	"secshare-backend/internal/storage"
)

// TransferService é a fachada do motor de transferências: compõe
// usuários + política de cotas + store de transferências e expõe as
// operações de criar/buscar/confirmar/expirar chamadas pela camada externa
type TransferService struct {
	store  repository.Store
	users  *UserService
	policy *QuotaPolicy
	crypto *crypto.Service
	blobs  storage.BlobStorage

	expiry time.Duration
	now    func() time.Time
}

// NewTransferService cria um novo serviço de transferência
func NewTransferService(
	store repository.Store,
	users *UserService,
	policy *QuotaPolicy,
	cryptoSvc *crypto.Service,
	blobs storage.BlobStorage,
	expiry time.Duration,
) *TransferService {
	return &TransferService{
		store:  store,
		users:  users,
		policy: policy,
		crypto: cryptoSvc,
		blobs:  blobs,
		expiry: expiry,
		now:    time.Now,
	}
}

// UsageSnapshot é a visão de uso devolvida por Stats
type UsageSnapshot struct {
	IsPremium              bool  `json:"isPremium"`
	TransfersUsedToday     int   `json:"transfersUsedToday"`
	TransfersRemainingToday int  `json:"transfersRemainingToday"`
	TotalTransfers         int64 `json:"totalTransfers"`
	MaxFileSizeMB          int64 `json:"maxFileSizeMb"`
	MaxTransfersPerDay     int   `json:"maxTransfersPerDay"`
}

// CreateTextTransfer cria uma transferência de texto: checa a cota, cifra
// o conteúdo e insere o registro. Todo o caminho roda com o lock do
// usuário em posse, então admissão e incremento do contador são atômicos.
func (s *TransferService) CreateTextTransfer(ctx context.Context, userID int64, username, content, password string) (*models.Transfer, error) {
	unlock := s.users.LockUser(userID)
	defer unlock()

	user, err := s.users.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(DateLayout)
	quotaErr := s.policy.CheckTransferAllowed(user, today)
	// Persiste o reset diário mesmo quando a cota nega
	if err := s.users.Save(ctx, user); err != nil {
		log.Printf("Erro ao salvar reset diário do usuário %d: %v", userID, err)
	}
	if quotaErr != nil {
		return nil, quotaErr
	}

	ciphertext, err := s.crypto.EncryptText(content)
	if err != nil {
		log.Printf("Erro ao cifrar conteúdo do usuário %d: %v", userID, err)
		return nil, fmt.Errorf("erro interno ao cifrar conteúdo")
	}

	transfer := &models.Transfer{
		SenderID:   userID,
		Kind:       models.KindText,
		Ciphertext: ciphertext,
	}
	if err := s.finishCreate(ctx, transfer, password); err != nil {
		return nil, err
	}

	if err := s.users.RecordTransferSent(ctx, userID); err != nil {
		log.Printf("Erro ao atualizar contadores do usuário %d: %v", userID, err)
	}
	return transfer, nil
}

// CreateFileTransfer cria uma transferência de arquivo. O blob já foi
// gravado pelo chamador; o engine guarda só a referência — a partir da
// inserção, a posse do blob passa a ser do store de transferências.
func (s *TransferService) CreateFileTransfer(ctx context.Context, userID int64, username, blobKey, fileName string, sizeBytes int64, password string) (*models.Transfer, error) {
	unlock := s.users.LockUser(userID)
	defer unlock()

	user, err := s.users.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	today := s.now().Format(DateLayout)
	quotaErr := s.policy.CheckTransferAllowed(user, today)
	if quotaErr == nil {
		quotaErr = s.policy.CheckSizeAllowed(user, sizeBytes, today)
	}
	if err := s.users.Save(ctx, user); err != nil {
		log.Printf("Erro ao salvar reset diário do usuário %d: %v", userID, err)
	}
	if quotaErr != nil {
		return nil, quotaErr
	}

	transfer := &models.Transfer{
		SenderID: userID,
		Kind:     models.KindFile,
		BlobKey:  blobKey,
		FileName: fileName,
		FileSize: sizeBytes,
	}
	if err := s.finishCreate(ctx, transfer, password); err != nil {
		return nil, err
	}

	if err := s.users.RecordTransferSent(ctx, userID); err != nil {
		log.Printf("Erro ao atualizar contadores do usuário %d: %v", userID, err)
	}
	return transfer, nil
}

// finishCreate preenche senha, prazos e ID, e insere o registro.
// Colisão de ID gera um novo ID e tenta de novo.
func (s *TransferService) finishCreate(ctx context.Context, transfer *models.Transfer, password string) error {
	if password != "" {
		hash, err := crypto.HashPassword(password)
		if err != nil {
			log.Printf("Erro ao derivar hash de senha: %v", err)
			return fmt.Errorf("erro interno ao processar senha")
		}
		transfer.PasswordHash = hash
	}

	now := s.now()
	transfer.CreatedAt = now
	transfer.ExpiresAt = now.Add(s.expiry)

	for {
		id, err := crypto.GenerateTransferID()
		if err != nil {
			return fmt.Errorf("erro interno ao gerar identificador")
		}
		transfer.ID = id

		err = s.store.InsertTransfer(ctx, transfer)
		if err == nil {
			return nil
		}
		if errors.Is(err, repository.ErrDuplicateID) {
			log.Printf("Colisão de ID de transferência (%s), gerando outro", id)
			continue
		}
		return fmt.Errorf("falha ao inserir transferência: %w", err)
	}
}

// Retrieve busca uma transferência pelo ID, aplicando expiração e senha.
// Para texto, devolve também o conteúdo decifrado. A leitura NÃO consome a
// transferência; consumir é papel do Confirm, depois que o conteúdo foi
// entregue de fato.
func (s *TransferService) Retrieve(ctx context.Context, transferID, password string) (*models.Transfer, string, error) {
	transfer, err := s.store.GetTransfer(ctx, transferID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, "", ErrNotFound
	} else if err != nil {
		return nil, "", fmt.Errorf("falha ao buscar transferência: %w", err)
	}

	// Expirada: remove na hora (quem chegar primeiro, este acesso ou a
	// varredura, libera o blob — nunca os dois)
	if transfer.Expired(s.now()) {
		if removed, err := s.store.RemoveTransfer(ctx, transferID); err == nil {
			s.releaseBlob(ctx, removed)
		}
		return nil, "", ErrNotFound
	}

	// Senha exigida mas ausente ou errada: mesmo resultado de "não existe"
	if transfer.HasPassword() {
		if password == "" || !crypto.VerifyPassword(password, transfer.PasswordHash) {
			return nil, "", ErrNotFound
		}
	}

	var content string
	if transfer.Kind == models.KindText {
		content, err = s.crypto.DecryptText(transfer.Ciphertext)
		if err != nil {
			// Dado corrompido ou chave trocada num restart
			log.Printf("Erro ao decifrar transferência %s: %v", transferID, err)
			return nil, "", crypto.ErrCrypto
		}
	}
	return transfer, content, nil
}

// ReadFile lê os bytes do blob de uma transferência de arquivo
func (s *TransferService) ReadFile(ctx context.Context, transfer *models.Transfer) ([]byte, error) {
	if transfer.Kind != models.KindFile {
		return nil, fmt.Errorf("transferência %s não é de arquivo", transfer.ID)
	}
	return s.blobs.Read(ctx, transfer.BlobKey)
}

// Confirm registra o recebimento e destrói a transferência. Idempotente:
// confirmar algo que já se foi não é erro.
func (s *TransferService) Confirm(ctx context.Context, transferID string, recipientID int64) error {
	removed, err := s.store.RemoveTransfer(ctx, transferID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	} else if err != nil {
		return fmt.Errorf("falha ao remover transferência: %w", err)
	}

	removed.RecipientID = &recipientID
	log.Printf("Transferência %s entregue ao usuário %d e destruída", transferID, recipientID)
	s.releaseBlob(ctx, removed)
	return nil
}

// DeleteNow é o cancelamento antecipado pelo remetente
func (s *TransferService) DeleteNow(ctx context.Context, transferID string, requesterID int64) error {
	transfer, err := s.store.GetTransfer(ctx, transferID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	} else if err != nil {
		return fmt.Errorf("falha ao buscar transferência: %w", err)
	}

	if transfer.SenderID != requesterID {
		return ErrPermissionDenied
	}

	removed, err := s.store.RemoveTransfer(ctx, transferID)
	if errors.Is(err, repository.ErrNotFound) {
		// Alguém consumiu/expirou no meio do caminho; nada a liberar
		return nil
	} else if err != nil {
		return fmt.Errorf("falha ao remover transferência: %w", err)
	}

	log.Printf("Transferência %s apagada pelo remetente %d", transferID, requesterID)
	s.releaseBlob(ctx, removed)
	return nil
}

// SweepExpired evacua todas as transferências vencidas e devolve quantas
// foram removidas. Seguro para rodar concorrente com o tráfego normal.
func (s *TransferService) SweepExpired(ctx context.Context) (int, error) {
	evicted, err := s.store.RemoveExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("falha na varredura de expirados: %w", err)
	}
	for _, t := range evicted {
		s.releaseBlob(ctx, t)
	}
	return len(evicted), nil
}

// Stats devolve a visão de uso do usuário combinada com os tetos do plano
func (s *TransferService) Stats(ctx context.Context, userID int64, username string) (*UsageSnapshot, error) {
	unlock := s.users.LockUser(userID)
	defer unlock()

	user, err := s.users.GetOrCreate(ctx, userID, username)
	if err != nil {
		return nil, err
	}

	// O snapshot deve refletir o dia corrente, não o do último envio
	ResetDailyIfNeeded(user, s.now().Format(DateLayout))
	if err := s.users.Save(ctx, user); err != nil {
		log.Printf("Erro ao salvar reset diário do usuário %d: %v", userID, err)
	}

	limits := s.policy.LimitsFor(user)
	remaining := limits.MaxTransfersPerDay - user.TransfersSentToday
	if remaining < 0 {
		remaining = 0
	}

	return &UsageSnapshot{
		IsPremium:               user.IsPremium,
		TransfersUsedToday:      user.TransfersSentToday,
		TransfersRemainingToday: remaining,
		TotalTransfers:          user.TotalTransfers,
		MaxFileSizeMB:           limits.MaxFileSize / (1024 * 1024),
		MaxTransfersPerDay:      limits.MaxTransfersPerDay,
	}, nil
}

// releaseBlob apaga o blob associado, se houver. Falha é logada; o delete
// do storage é idempotente, então repetir nunca é problema.
func (s *TransferService) releaseBlob(ctx context.Context, transfer *models.Transfer) {
	if transfer == nil || transfer.Kind != models.KindFile || transfer.BlobKey == "" {
		return
	}
	if err := s.blobs.Delete(ctx, transfer.BlobKey); err != nil {
		log.Printf("Erro ao liberar blob %s da transferência %s: %v", transfer.BlobKey, transfer.ID, err)
	}
}
