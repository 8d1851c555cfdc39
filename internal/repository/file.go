package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"secshare-backend/internal/models"
)

const (
	usersFile     = "users.json"
	transfersFile = "transfers.json"
)

// FileSnapshot persiste as coleções como arquivos JSON no diretório de
// dados (users.json e transfers.json), um snapshot completo por gravação
type FileSnapshot struct {
	dataDir string
}

// NewFileSnapshot cria o snapshot em arquivos, garantindo o diretório
func NewFileSnapshot(dataDir string) (*FileSnapshot, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de dados '%s': %w", dataDir, err)
	}
	return &FileSnapshot{dataDir: dataDir}, nil
}

func (f *FileSnapshot) LoadUsers(ctx context.Context) (map[int64]*models.User, error) {
	users := make(map[int64]*models.User)
	if err := f.readJSON(usersFile, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (f *FileSnapshot) SaveUsers(ctx context.Context, users map[int64]*models.User) error {
	return f.writeJSON(usersFile, users)
}

func (f *FileSnapshot) LoadTransfers(ctx context.Context) (map[string]*models.Transfer, error) {
	transfers := make(map[string]*models.Transfer)
	if err := f.readJSON(transfersFile, &transfers); err != nil {
		return nil, err
	}
	return transfers, nil
}

func (f *FileSnapshot) SaveTransfers(ctx context.Context, transfers map[string]*models.Transfer) error {
	return f.writeJSON(transfersFile, transfers)
}

func (f *FileSnapshot) readJSON(name string, v interface{}) error {
	path := filepath.Join(f.dataDir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Primeira execução: começa vazio
			return nil
		}
		return fmt.Errorf("falha ao ler '%s': %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("falha ao decodificar '%s': %w", path, err)
	}
	return nil
}

// writeJSON grava em arquivo temporário e renomeia, para nunca deixar um
// snapshot truncado no lugar do anterior
func (f *FileSnapshot) writeJSON(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("falha ao serializar '%s': %w", name, err)
	}

	path := filepath.Join(f.dataDir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("falha ao gravar '%s': %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("falha ao renomear '%s': %w", tmp, err)
	}
	return nil
}
