package storage

import (
	"context"
)

// BlobStorage é o colaborador externo que guarda os bytes dos arquivos
// transferidos. O engine só guarda a chave (referência opaca); quem é dono
// dos bytes é o storage. Delete deve ser seguro mesmo se o blob já se foi.
type BlobStorage interface {
	Save(ctx context.Context, data []byte, suggestedName string) (string, error)
	Read(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
}
