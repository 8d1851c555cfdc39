package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// LocalStorage guarda blobs como arquivos num diretório temporário local.
// A chave é um UUID gerado na gravação; o nome sugerido fica só como
// extensão para facilitar inspeção manual.
type LocalStorage struct {
	dir string
}

// NewLocalStorage cria o storage local, garantindo o diretório
func NewLocalStorage(dir string) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("falha ao criar diretório de blobs '%s': %w", dir, err)
	}
	return &LocalStorage{dir: dir}, nil
}

func (s *LocalStorage) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	key := uuid.New().String()
	if ext := filepath.Ext(suggestedName); ext != "" {
		key += ext
	}

	path := filepath.Join(s.dir, key)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("falha ao gravar blob '%s': %w", key, err)
	}
	return key, nil
}

func (s *LocalStorage) Read(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, key))
	if err != nil {
		return nil, fmt.Errorf("falha ao ler blob '%s': %w", key, err)
	}
	return data, nil
}

// Delete remove o blob; blob já ausente não é erro
func (s *LocalStorage) Delete(ctx context.Context, key string) error {
	err := os.Remove(filepath.Join(s.dir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("falha ao remover blob '%s': %w", key, err)
	}
	return nil
}
