package repository

import (
	"context"
	"fmt"
	"log"

	"secshare-backend/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresSnapshot é a implementação da interface Snapshot para o
// PostgreSQL. Cada Save substitui a coleção inteira numa transação, o que
// mantém a semântica de snapshot do store em memória.
type PostgresSnapshot struct {
	db *pgxpool.Pool
}

// NewPostgresSnapshot cria uma nova instância e o pool de conexões
func NewPostgresSnapshot(ctx context.Context, databaseURL string) (*PostgresSnapshot, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("não foi possível criar pool de conexão: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("não foi possível pingar o banco de dados: %w", err)
	}

	log.Println("Pool de conexão com PostgreSQL estabelecido.")
	return &PostgresSnapshot{db: pool}, nil
}

// Close fecha o pool de conexões
func (s *PostgresSnapshot) Close() {
	s.db.Close()
}

// RunMigrations executa o script SQL de migração
func (s *PostgresSnapshot) RunMigrations(ctx context.Context, migrationSQL string) error {
	_, err := s.db.Exec(ctx, migrationSQL)
	if err != nil {
		return fmt.Errorf("falha ao executar migração: %w", err)
	}
	return nil
}

func (s *PostgresSnapshot) LoadUsers(ctx context.Context) (map[int64]*models.User, error) {
	sql := `
        SELECT id, username, is_premium, transfers_sent_today, last_reset_date, total_transfers
        FROM users`

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar usuários: %w", err)
	}
	defer rows.Close()

	users := make(map[int64]*models.User)
	for rows.Next() {
		user := &models.User{}
		err := rows.Scan(
			&user.ID,
			&user.Username,
			&user.IsPremium,
			&user.TransfersSentToday,
			&user.LastResetDate,
			&user.TotalTransfers,
		)
		if err != nil {
			return nil, fmt.Errorf("falha ao escanear linha de usuário: %w", err)
		}
		users[user.ID] = user
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar sobre os usuários: %w", err)
	}
	return users, nil
}

func (s *PostgresSnapshot) SaveUsers(ctx context.Context, users map[int64]*models.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE users`); err != nil {
		return fmt.Errorf("falha ao limpar usuários: %w", err)
	}

	batch := &pgx.Batch{}
	for _, user := range users {
		batch.Queue(`
            INSERT INTO users (id, username, is_premium, transfers_sent_today, last_reset_date, total_transfers)
            VALUES ($1, $2, $3, $4, $5, $6)`,
			user.ID,
			user.Username,
			user.IsPremium,
			user.TransfersSentToday,
			user.LastResetDate,
			user.TotalTransfers,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("falha ao gravar usuários: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao confirmar snapshot de usuários: %w", err)
	}
	return nil
}

func (s *PostgresSnapshot) LoadTransfers(ctx context.Context) (map[string]*models.Transfer, error) {
	sql := `
        SELECT id, sender_id, recipient_id, kind, ciphertext, blob_key,
               file_name, file_size, password_hash, created_at, expires_at
        FROM transfers`

	rows, err := s.db.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar transferências: %w", err)
	}
	defer rows.Close()

	transfers := make(map[string]*models.Transfer)
	for rows.Next() {
		transfer := &models.Transfer{}
		err := rows.Scan(
			&transfer.ID,
			&transfer.SenderID,
			&transfer.RecipientID,
			&transfer.Kind,
			&transfer.Ciphertext,
			&transfer.BlobKey,
			&transfer.FileName,
			&transfer.FileSize,
			&transfer.PasswordHash,
			&transfer.CreatedAt,
			&transfer.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("falha ao escanear linha de transferência: %w", err)
		}
		transfers[transfer.ID] = transfer
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("erro ao iterar sobre as transferências: %w", err)
	}
	return transfers, nil
}

func (s *PostgresSnapshot) SaveTransfers(ctx context.Context, transfers map[string]*models.Transfer) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("falha ao abrir transação: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE transfers`); err != nil {
		return fmt.Errorf("falha ao limpar transferências: %w", err)
	}

	batch := &pgx.Batch{}
	for _, transfer := range transfers {
		batch.Queue(`
            INSERT INTO transfers (id, sender_id, recipient_id, kind, ciphertext, blob_key,
                                   file_name, file_size, password_hash, created_at, expires_at)
            VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			transfer.ID,
			transfer.SenderID,
			transfer.RecipientID,
			transfer.Kind,
			transfer.Ciphertext,
			transfer.BlobKey,
			transfer.FileName,
			transfer.FileSize,
			transfer.PasswordHash,
			transfer.CreatedAt,
			transfer.ExpiresAt,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("falha ao gravar transferências: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("falha ao confirmar snapshot de transferências: %w", err)
	}
	return nil
}
