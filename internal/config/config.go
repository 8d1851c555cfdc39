package config

import (
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config armazena a configuração da aplicação
type Config struct {
	ServerPort int    `envconfig:"SERVER_PORT" default:"8080"`
	JWTSecret  string `envconfig:"JWT_SECRET" required:"true"`

	// Chave de API usada pela camada do bot para trocar por tokens JWT
	BotAPIKey string `envconfig:"BOT_API_KEY" required:"true"`

	// Chave simétrica de 32 bytes (base64url) para cifrar textos armazenados.
	// Se vazia, uma chave aleatória é gerada no startup — nesse caso todo
	// ciphertext persistido fica ilegível após um restart.
	EncryptionKey string `envconfig:"ENCRYPTION_KEY"`

	// Persistência de snapshots: PostgreSQL se DATABASE_URL estiver setada,
	// senão arquivos JSON em DATA_DIR
	DatabaseURL string `envconfig:"DATABASE_URL"`
	DataDir     string `envconfig:"DATA_DIR" default:"data"`

	// Storage de blobs: S3 se AWS_BUCKET_NAME estiver setado, senão disco local
	AWSBucketName string `envconfig:"AWS_BUCKET_NAME"`
	AWSRegion     string `envconfig:"AWS_REGION"`
	TempDir       string `envconfig:"TEMP_DIR" default:"temp_files"`

	// IDs de administradores (isentos de cota e sempre premium)
	AdminUserIDs []int64 `envconfig:"ADMIN_USER_IDS"`

	// Política de cotas e limites por plano
	FreeTransfersPerDay    int   `envconfig:"FREE_TRANSFERS_PER_DAY" default:"5"`
	PremiumTransfersPerDay int   `envconfig:"PREMIUM_TRANSFERS_PER_DAY" default:"20"`
	FreeFileSizeLimit      int64 `envconfig:"FREE_FILE_SIZE_LIMIT" default:"52428800"`     // 50 MiB
	PremiumFileSizeLimit   int64 `envconfig:"PREMIUM_FILE_SIZE_LIMIT" default:"1073741824"` // 1 GiB

	// Janela de expiração das transferências e intervalo da varredura
	TransferExpiry time.Duration `envconfig:"TRANSFER_EXPIRY" default:"15m"`
	SweepInterval  time.Duration `envconfig:"SWEEP_INTERVAL" default:"60s"`
}

// Load carrega a configuração das variáveis de ambiente
func Load(cfg *Config) error {
	return envconfig.Process("", cfg)
}
