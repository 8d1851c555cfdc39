package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// S3Storage guarda blobs num bucket S3. A chave tem o formato
// uploads/ARQUIVO_UUID, nunca derivada do nome original.
type S3Storage struct {
	s3Client   *s3.Client
	bucketName string
}

// NewS3Storage cria um novo storage S3
func NewS3Storage(s3Client *s3.Client, bucketName string) *S3Storage {
	return &S3Storage{
		s3Client:   s3Client,
		bucketName: bucketName,
	}
}

func (s *S3Storage) Save(ctx context.Context, data []byte, suggestedName string) (string, error) {
	key := fmt.Sprintf("uploads/%s", uuid.New().String())
	if ext := filepath.Ext(suggestedName); ext != "" {
		key += ext
	}

	_, err := s.s3Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		log.Printf("Erro ao gravar objeto %s no S3: %v", key, err)
		return "", fmt.Errorf("falha ao gravar blob no S3")
	}
	return key, nil
}

func (s *S3Storage) Read(ctx context.Context, key string) ([]byte, error) {
	out, err := s.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("Erro ao ler objeto %s do S3: %v", key, err)
		return nil, fmt.Errorf("falha ao ler blob do S3")
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("falha ao ler corpo do objeto '%s': %w", key, err)
	}
	return data, nil
}

// Delete remove o objeto; DeleteObject no S3 já é idempotente
func (s *S3Storage) Delete(ctx context.Context, key string) error {
	_, err := s.s3Client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucketName),
		Key:    aws.String(key),
	})
	if err != nil {
		log.Printf("Erro ao remover objeto %s do S3: %v", key, err)
		return fmt.Errorf("falha ao remover blob do S3")
	}
	return nil
}
