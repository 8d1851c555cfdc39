package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"secshare-backend/internal/api"
	"secshare-backend/internal/auth"
	"secshare-backend/internal/config"
	"secshare-backend/internal/crypto"
	"secshare-backend/internal/repository"
	"secshare-backend/internal/service"
	"secshare-backend/internal/storage"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joho/godotenv"
)

func main() {
	// Carregar o .env antes da configuração. Em produção o app pode rodar
	// sem .env, desde que as variáveis estejam no ambiente (Docker/K8s)
	if err := godotenv.Load(); err != nil {
		log.Printf("Aviso: Não foi possível carregar o arquivo .env: %v. (Usando variáveis de ambiente existentes)", err)
	}

	var cfg config.Config
	if err := config.Load(&cfg); err != nil {
		log.Fatalf("Falha ao carregar configuração: %v", err)
	}

	initCtx, cancelInit := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelInit()

	// 1. Serviço de criptografia (chave do processo)
	cryptoSvc, err := buildCrypto(cfg)
	if err != nil {
		log.Fatalf("Falha ao iniciar serviço de criptografia: %v", err)
	}

	// 2. Persistência de snapshots: PostgreSQL ou arquivos JSON
	snap, closeSnap, err := buildSnapshot(initCtx, cfg)
	if err != nil {
		log.Fatalf("Falha ao iniciar persistência: %v", err)
	}
	defer closeSnap()

	store := repository.NewInMemoryStore(snap)
	defer store.Close()
	if err := store.Load(initCtx); err != nil {
		// Estado ilegível não derruba o serviço; começa vazio
		log.Printf("Aviso ao carregar estado persistido: %v. (Começando vazio)", err)
	}

	// 3. Storage de blobs: S3 ou disco local
	blobs, err := buildBlobStorage(initCtx, cfg)
	if err != nil {
		log.Fatalf("Falha ao iniciar storage de blobs: %v", err)
	}

	// 4. Política de cotas e serviços de domínio
	policy := service.NewQuotaPolicy(
		cfg.AdminUserIDs,
		service.Limits{MaxTransfersPerDay: cfg.FreeTransfersPerDay, MaxFileSize: cfg.FreeFileSizeLimit},
		service.Limits{MaxTransfersPerDay: cfg.PremiumTransfersPerDay, MaxFileSize: cfg.PremiumFileSizeLimit},
	)
	userService := service.NewUserService(store, policy)
	transferService := service.NewTransferService(store, userService, policy, cryptoSvc, blobs, cfg.TransferExpiry)

	// 5. Varredura periódica de expirados
	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	sweeper := service.NewSweeper(transferService, cfg.SweepInterval)
	go sweeper.Run(sweepCtx)

	// 6. Autenticação da superfície de chamada
	tokenService, err := auth.NewTokenService(cfg.JWTSecret)
	if err != nil {
		log.Fatalf("Falha ao iniciar TokenService: %v", err)
	}

	// 7. Camada de API
	handler := api.NewHandler(transferService, policy, tokenService, blobs, cfg.BotAPIKey, cfg.PremiumFileSizeLimit)

	// 8. Configurar Servidor HTTP
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      handler.Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Printf("Servidor iniciado em http://localhost:%d/v1", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Erro ao iniciar servidor: %v", err)
		}
	}()

	// Aguardar sinal de interrupção
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Recebido sinal de desligamento, encerrando servidor...")

	cancelSweep()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Erro no graceful shutdown: %v", err)
	}
	log.Println("Servidor encerrado.")
}

// buildCrypto monta o serviço de criptografia a partir da configuração
func buildCrypto(cfg config.Config) (*crypto.Service, error) {
	if cfg.EncryptionKey != "" {
		key, err := crypto.ParseKey(cfg.EncryptionKey)
		if err != nil {
			return nil, err
		}
		return crypto.New(key)
	}

	log.Println("Aviso: ENCRYPTION_KEY não configurada; usando chave aleatória de processo. " +
		"Textos cifrados persistidos ficarão ilegíveis após um restart.")
	return crypto.NewWithRandomKey()
}

// buildSnapshot escolhe o backend de persistência de snapshots
func buildSnapshot(ctx context.Context, cfg config.Config) (repository.Snapshot, func(), error) {
	if cfg.DatabaseURL == "" {
		snap, err := repository.NewFileSnapshot(cfg.DataDir)
		if err != nil {
			return nil, nil, err
		}
		log.Printf("Persistência em arquivos JSON (%s).", cfg.DataDir)
		return snap, func() {}, nil
	}

	snap, err := repository.NewPostgresSnapshot(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	migrationSQL, err := os.ReadFile("./migrations/001_init.sql")
	if err != nil {
		log.Printf("Aviso ao ler arquivo de migração: %v. (Continuando...)", err)
	} else if err := snap.RunMigrations(ctx, string(migrationSQL)); err != nil {
		log.Printf("Aviso ao rodar migrações: %v. (Continuando...)", err)
	} else {
		log.Println("Migrações do banco de dados aplicadas com sucesso.")
	}

	return snap, snap.Close, nil
}

// buildBlobStorage escolhe o backend de blobs
func buildBlobStorage(ctx context.Context, cfg config.Config) (storage.BlobStorage, error) {
	if cfg.AWSBucketName == "" {
		log.Printf("Storage de blobs em disco local (%s).", cfg.TempDir)
		return storage.NewLocalStorage(cfg.TempDir)
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("falha ao carregar configuração AWS: %w", err)
	}

	log.Printf("Storage de blobs no S3 (bucket %s).", cfg.AWSBucketName)
	return storage.NewS3Storage(s3.NewFromConfig(awsCfg), cfg.AWSBucketName), nil
}
